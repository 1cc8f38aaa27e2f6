package model

import "time"

type Favorite struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	UID       string    `gorm:"column:uid;size:128;uniqueIndex:uniq_uid_item"`
	ItemID    uint64    `gorm:"column:item_id;uniqueIndex:uniq_uid_item;index"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (Favorite) TableName() string {
	return "favorites"
}
