package repository

import (
	"context"
	"errors"
	"time"

	"github.com/yutasaka/fleamarket-backend/internal/model"
	"gorm.io/gorm"
)

var ErrDBNotReady = errors.New("database not initialized")

// ConversationSummary is a conversation annotated with its most recent
// message, for the conversation list screen.
type ConversationSummary struct {
	Conversation  model.Conversation
	LastMessage   *string
	LastMessageAt *time.Time
}

type ConversationRepository interface {
	FindOrCreate(ctx context.Context, itemID uint64, sellerUID, buyerUID string) (*model.Conversation, error)
	FindByID(ctx context.Context, id uint64) (*model.Conversation, error)
	ListByUser(ctx context.Context, uid string, limit, offset int) ([]ConversationSummary, int64, error)
	Touch(ctx context.Context, id uint64) error
	Delete(ctx context.Context, id uint64) error
	SetDB(db *gorm.DB)
}

type conversationRepository struct {
	db *gorm.DB
}

func NewConversationRepository(db *gorm.DB) ConversationRepository {
	return &conversationRepository{db: db}
}

func (r *conversationRepository) SetDB(db *gorm.DB) {
	r.db = db
}

// FindOrCreate relies on the unique (item_id, buyer_uid) index to settle
// concurrent first-contact attempts: the losing insert gets a duplicate-key
// error and falls back to re-reading the winner's row.
func (r *conversationRepository) FindOrCreate(ctx context.Context, itemID uint64, sellerUID, buyerUID string) (*model.Conversation, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var cv model.Conversation
	err := r.db.WithContext(ctx).
		Where("item_id = ? AND buyer_uid = ?", itemID, buyerUID).
		First(&cv).Error
	if err == nil {
		return &cv, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	cv = model.Conversation{ItemID: itemID, SellerUID: sellerUID, BuyerUID: buyerUID}
	err = r.db.WithContext(ctx).Create(&cv).Error
	if err == nil {
		return &cv, nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		var existing model.Conversation
		if err := r.db.WithContext(ctx).
			Where("item_id = ? AND buyer_uid = ?", itemID, buyerUID).
			First(&existing).Error; err != nil {
			return nil, err
		}
		return &existing, nil
	}
	return nil, err
}

func (r *conversationRepository) FindByID(ctx context.Context, id uint64) (*model.Conversation, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var cv model.Conversation
	if err := r.db.WithContext(ctx).First(&cv, id).Error; err != nil {
		return nil, err
	}
	return &cv, nil
}

func (r *conversationRepository) ListByUser(ctx context.Context, uid string, limit, offset int) ([]ConversationSummary, int64, error) {
	if r.db == nil {
		return nil, 0, ErrDBNotReady
	}
	var total int64
	if err := r.db.WithContext(ctx).Model(&model.Conversation{}).
		Where("seller_uid = ? OR buyer_uid = ?", uid, uid).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var convs []model.Conversation
	if err := r.db.WithContext(ctx).
		Where("seller_uid = ? OR buyer_uid = ?", uid, uid).
		Order("updated_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&convs).Error; err != nil {
		return nil, 0, err
	}

	summaries := make([]ConversationSummary, len(convs))
	ids := make([]uint64, len(convs))
	for i, cv := range convs {
		summaries[i] = ConversationSummary{Conversation: cv}
		ids[i] = cv.ID
	}
	if len(ids) == 0 {
		return summaries, total, nil
	}

	var lasts []model.Message
	latest := r.db.WithContext(ctx).Model(&model.Message{}).
		Select("MAX(id)").
		Where("conversation_id IN ?", ids).
		Group("conversation_id")
	if err := r.db.WithContext(ctx).
		Where("id IN (?)", latest).
		Find(&lasts).Error; err != nil {
		return nil, 0, err
	}
	byConv := make(map[uint64]model.Message, len(lasts))
	for _, m := range lasts {
		byConv[m.ConversationID] = m
	}
	for i := range summaries {
		if m, ok := byConv[summaries[i].Conversation.ID]; ok {
			at := m.CreatedAt
			summaries[i].LastMessage = m.Text
			summaries[i].LastMessageAt = &at
		}
	}
	return summaries, total, nil
}

func (r *conversationRepository) Touch(ctx context.Context, id uint64) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	return r.db.WithContext(ctx).Model(&model.Conversation{}).
		Where("id = ?", id).
		UpdateColumn("updated_at", time.Now()).Error
}

// Delete removes the conversation together with its messages and read
// states in one transaction.
func (r *conversationRepository) Delete(ctx context.Context, id uint64) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("conversation_id = ?", id).Delete(&model.Message{}).Error; err != nil {
			return err
		}
		if err := tx.Where("conversation_id = ?", id).Delete(&model.ConversationRead{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&model.Conversation{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
