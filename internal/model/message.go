package model

import "time"

type Message struct {
	ID             uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	ConversationID uint64    `gorm:"column:conversation_id;index:idx_conv_created" json:"conversationId"`
	SenderUID      string    `gorm:"column:sender_uid;size:128;index" json:"senderUid"`
	Text           *string   `gorm:"type:text" json:"text,omitempty"`
	ImageURL       *string   `gorm:"column:image_url;size:512" json:"imageUrl,omitempty"`
	CreatedAt      time.Time `gorm:"autoCreateTime;index:idx_conv_created" json:"createdAt"`
}

func (Message) TableName() string {
	return "messages"
}
