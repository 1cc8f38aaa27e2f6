package service

import (
	"context"
	"errors"
	"testing"

	"github.com/yutasaka/fleamarket-backend/internal/model"
	"github.com/yutasaka/fleamarket-backend/internal/repository"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newFavoriteFixture(t *testing.T) (FavoriteService, uint64) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&model.Item{}, &model.ItemImage{}, &model.Favorite{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	item := model.Item{SellerUID: "seller", Title: "lamp", Description: "warm light", Price: 800}
	if err := db.Create(&item).Error; err != nil {
		t.Fatalf("seed item: %v", err)
	}
	itemRepo := repository.NewItemRepository(db)
	return NewFavoriteService(repository.NewFavoriteRepository(db), itemRepo), item.ID
}

func TestFavoriteToggle(t *testing.T) {
	svc, itemID := newFavoriteFixture(t)
	ctx := context.Background()

	on, err := svc.Toggle(ctx, "u1", itemID)
	if err != nil {
		t.Fatalf("first toggle: %v", err)
	}
	if !on {
		t.Fatalf("first toggle should favorite")
	}
	count, err := svc.CountByItem(ctx, itemID)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("count = %d", count)
	}

	off, err := svc.Toggle(ctx, "u1", itemID)
	if err != nil {
		t.Fatalf("second toggle: %v", err)
	}
	if off {
		t.Fatalf("second toggle should unfavorite")
	}
	count, _ = svc.CountByItem(ctx, itemID)
	if count != 0 {
		t.Fatalf("count after unfavorite = %d", count)
	}

	if _, err := svc.Toggle(ctx, "u1", 9999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing item: got %v", err)
	}
	if _, err := svc.Toggle(ctx, "", itemID); !errors.Is(err, ErrMissingParameter) {
		t.Fatalf("missing uid: got %v", err)
	}
}

func TestFavoriteList(t *testing.T) {
	svc, itemID := newFavoriteFixture(t)
	ctx := context.Background()

	if _, err := svc.Toggle(ctx, "u1", itemID); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	entries, pg, err := svc.ListByUser(ctx, "u1", 1, 20)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 1 || pg.TotalCount != 1 {
		t.Fatalf("len=%d total=%d", len(entries), pg.TotalCount)
	}
	if entries[0].Item == nil || entries[0].Item.Title != "lamp" {
		t.Fatalf("item not joined: %+v", entries[0])
	}
}
