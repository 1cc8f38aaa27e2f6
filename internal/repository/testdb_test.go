package repository

import (
	"testing"

	"github.com/yutasaka/fleamarket-backend/internal/model"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
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
	// a single in-memory sqlite connection, shared by the whole test
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(
		&model.Item{},
		&model.ItemImage{},
		&model.Favorite{},
		&model.Conversation{},
		&model.Message{},
		&model.ConversationRead{},
	); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}
