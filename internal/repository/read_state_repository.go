package repository

import (
	"context"
	"errors"
	"time"

	"github.com/yutasaka/fleamarket-backend/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ReadStateRepository interface {
	Upsert(ctx context.Context, convID uint64, uid string, readAt time.Time) error
	Find(ctx context.Context, convID uint64, uid string) (*model.ConversationRead, error)
	SetDB(db *gorm.DB)
}

type readStateRepository struct {
	db *gorm.DB
}

func NewReadStateRepository(db *gorm.DB) ReadStateRepository {
	return &readStateRepository{db: db}
}

func (r *readStateRepository) SetDB(db *gorm.DB) {
	r.db = db
}

func (r *readStateRepository) Upsert(ctx context.Context, convID uint64, uid string, readAt time.Time) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	rec := model.ConversationRead{ConversationID: convID, UID: uid, LastReadAt: readAt}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "conversation_id"}, {Name: "uid"}},
		DoUpdates: clause.AssignmentColumns([]string{"last_read_at", "updated_at"}),
	}).Create(&rec).Error
}

// Find returns nil without error when the user has never read the
// conversation.
func (r *readStateRepository) Find(ctx context.Context, convID uint64, uid string) (*model.ConversationRead, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var rec model.ConversationRead
	err := r.db.WithContext(ctx).
		Where("conversation_id = ? AND uid = ?", convID, uid).
		First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}
