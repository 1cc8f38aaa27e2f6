package repository

import (
	"context"
	"time"

	"github.com/yutasaka/fleamarket-backend/internal/model"
	"gorm.io/gorm"
)

type MessageRepository interface {
	Create(ctx context.Context, msg *model.Message) error
	ListByConversation(ctx context.Context, convID uint64, limit, offset int) ([]model.Message, int64, error)
	CountUnreadSince(ctx context.Context, convID uint64, uid string, since time.Time) (int64, error)
	SetDB(db *gorm.DB)
}

type messageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) SetDB(db *gorm.DB) {
	r.db = db
}

func (r *messageRepository) Create(ctx context.Context, msg *model.Message) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	return r.db.WithContext(ctx).Create(msg).Error
}

// ListByConversation returns messages in chronological reading order.
// id breaks created_at ties so insertion order is preserved exactly.
func (r *messageRepository) ListByConversation(ctx context.Context, convID uint64, limit, offset int) ([]model.Message, int64, error) {
	if r.db == nil {
		return nil, 0, ErrDBNotReady
	}
	var total int64
	if err := r.db.WithContext(ctx).Model(&model.Message{}).
		Where("conversation_id = ?", convID).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var msgs []model.Message
	if err := r.db.WithContext(ctx).
		Where("conversation_id = ?", convID).
		Order("created_at ASC, id ASC").
		Limit(limit).
		Offset(offset).
		Find(&msgs).Error; err != nil {
		return nil, 0, err
	}
	return msgs, total, nil
}

func (r *messageRepository) CountUnreadSince(ctx context.Context, convID uint64, uid string, since time.Time) (int64, error) {
	if r.db == nil {
		return 0, ErrDBNotReady
	}
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Message{}).
		Where("conversation_id = ? AND sender_uid <> ? AND created_at > ?", convID, uid, since).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
