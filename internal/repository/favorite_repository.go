package repository

import (
	"context"
	"errors"

	"github.com/yutasaka/fleamarket-backend/internal/model"
	"gorm.io/gorm"
)

type FavoriteRepository interface {
	Create(ctx context.Context, fav *model.Favorite) error
	Delete(ctx context.Context, uid string, itemID uint64) (bool, error)
	Exists(ctx context.Context, uid string, itemID uint64) (bool, error)
	ListByUser(ctx context.Context, uid string, limit, offset int) ([]model.Favorite, int64, error)
	CountByItem(ctx context.Context, itemID uint64) (int64, error)
	SetDB(db *gorm.DB)
}

type favoriteRepository struct {
	db *gorm.DB
}

func NewFavoriteRepository(db *gorm.DB) FavoriteRepository {
	return &favoriteRepository{db: db}
}

func (r *favoriteRepository) SetDB(db *gorm.DB) {
	r.db = db
}

func (r *favoriteRepository) Create(ctx context.Context, fav *model.Favorite) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	err := r.db.WithContext(ctx).Create(fav).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// concurrent double-tap, already favorited
		return nil
	}
	return err
}

func (r *favoriteRepository) Delete(ctx context.Context, uid string, itemID uint64) (bool, error) {
	if r.db == nil {
		return false, ErrDBNotReady
	}
	res := r.db.WithContext(ctx).
		Where("uid = ? AND item_id = ?", uid, itemID).
		Delete(&model.Favorite{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *favoriteRepository) Exists(ctx context.Context, uid string, itemID uint64) (bool, error) {
	if r.db == nil {
		return false, ErrDBNotReady
	}
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Favorite{}).
		Where("uid = ? AND item_id = ?", uid, itemID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *favoriteRepository) ListByUser(ctx context.Context, uid string, limit, offset int) ([]model.Favorite, int64, error) {
	if r.db == nil {
		return nil, 0, ErrDBNotReady
	}
	var total int64
	if err := r.db.WithContext(ctx).Model(&model.Favorite{}).
		Where("uid = ?", uid).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var favs []model.Favorite
	if err := r.db.WithContext(ctx).
		Where("uid = ?", uid).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&favs).Error; err != nil {
		return nil, 0, err
	}
	return favs, total, nil
}

func (r *favoriteRepository) CountByItem(ctx context.Context, itemID uint64) (int64, error) {
	if r.db == nil {
		return 0, ErrDBNotReady
	}
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Favorite{}).
		Where("item_id = ?", itemID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
