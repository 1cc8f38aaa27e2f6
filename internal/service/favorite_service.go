package service

import (
	"context"
	"errors"

	"github.com/yutasaka/fleamarket-backend/internal/model"
	"github.com/yutasaka/fleamarket-backend/internal/pagination"
	"github.com/yutasaka/fleamarket-backend/internal/repository"
	"gorm.io/gorm"
)

// FavoriteEntry pairs a favorite with its item for the list screen.
// Item is nil when the listing has since been removed.
type FavoriteEntry struct {
	Favorite model.Favorite
	Item     *model.Item
}

type FavoriteService interface {
	Toggle(ctx context.Context, uid string, itemID uint64) (bool, error)
	ListByUser(ctx context.Context, uid string, page, limit int) ([]FavoriteEntry, pagination.Page, error)
	CountByItem(ctx context.Context, itemID uint64) (int64, error)
}

type favoriteService struct {
	favRepo  repository.FavoriteRepository
	itemRepo repository.ItemRepository
}

func NewFavoriteService(favRepo repository.FavoriteRepository, itemRepo repository.ItemRepository) FavoriteService {
	return &favoriteService{favRepo: favRepo, itemRepo: itemRepo}
}

// Toggle flips the favorite and reports the new state: true means the
// item is now favorited.
func (s *favoriteService) Toggle(ctx context.Context, uid string, itemID uint64) (bool, error) {
	if uid == "" || itemID == 0 {
		return false, ErrMissingParameter
	}
	if _, err := s.itemRepo.FindByID(ctx, itemID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, ErrNotFound
		}
		return false, err
	}
	removed, err := s.favRepo.Delete(ctx, uid, itemID)
	if err != nil {
		return false, err
	}
	if removed {
		return false, nil
	}
	if err := s.favRepo.Create(ctx, &model.Favorite{UID: uid, ItemID: itemID}); err != nil {
		return false, err
	}
	return true, nil
}

func (s *favoriteService) ListByUser(ctx context.Context, uid string, page, limit int) ([]FavoriteEntry, pagination.Page, error) {
	if uid == "" {
		return nil, pagination.Page{}, ErrMissingParameter
	}
	page, limit = pagination.Normalize(page, limit)
	favs, total, err := s.favRepo.ListByUser(ctx, uid, limit, pagination.Offset(page, limit))
	if err != nil {
		return nil, pagination.Page{}, err
	}
	entries := make([]FavoriteEntry, len(favs))
	for i, f := range favs {
		entries[i] = FavoriteEntry{Favorite: f}
		item, err := s.itemRepo.FindByID(ctx, f.ItemID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return nil, pagination.Page{}, err
		}
		entries[i].Item = item
	}
	return entries, pagination.New(page, limit, total), nil
}

func (s *favoriteService) CountByItem(ctx context.Context, itemID uint64) (int64, error) {
	return s.favRepo.CountByItem(ctx, itemID)
}
