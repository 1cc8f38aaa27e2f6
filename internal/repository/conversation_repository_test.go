package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yutasaka/fleamarket-backend/internal/model"
	"gorm.io/gorm"
)

func strptr(s string) *string { return &s }

func TestFindOrCreateIdempotent(t *testing.T) {
	db := openTestDB(t)
	repo := NewConversationRepository(db)
	ctx := context.Background()

	first, err := repo.FindOrCreate(ctx, 42, "s1", "b1")
	if err != nil {
		t.Fatalf("first FindOrCreate: %v", err)
	}
	second, err := repo.FindOrCreate(ctx, 42, "s1", "b1")
	if err != nil {
		t.Fatalf("second FindOrCreate: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected same conversation, got %d and %d", first.ID, second.ID)
	}

	other, err := repo.FindOrCreate(ctx, 42, "s1", "b2")
	if err != nil {
		t.Fatalf("other buyer FindOrCreate: %v", err)
	}
	if other.ID == first.ID {
		t.Fatalf("different buyer must get a new conversation")
	}
}

func TestUniqueIndexRejectsDuplicatePair(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	cv := model.Conversation{ItemID: 7, SellerUID: "s1", BuyerUID: "b1"}
	if err := db.WithContext(ctx).Create(&cv).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}
	dup := model.Conversation{ItemID: 7, SellerUID: "s1", BuyerUID: "b1"}
	err := db.WithContext(ctx).Create(&dup).Error
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		t.Fatalf("want ErrDuplicatedKey, got %v", err)
	}

	// FindOrCreate must still settle on the existing row.
	repo := NewConversationRepository(db)
	got, err := repo.FindOrCreate(ctx, 7, "s1", "b1")
	if err != nil {
		t.Fatalf("FindOrCreate after dup: %v", err)
	}
	if got.ID != cv.ID {
		t.Fatalf("got %d want %d", got.ID, cv.ID)
	}
}

func TestListByUserRecencyAndLastMessage(t *testing.T) {
	db := openTestDB(t)
	convRepo := NewConversationRepository(db)
	msgRepo := NewMessageRepository(db)
	ctx := context.Background()

	a, err := convRepo.FindOrCreate(ctx, 1, "s1", "b1")
	if err != nil {
		t.Fatalf("create a: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	b, err := convRepo.FindOrCreate(ctx, 2, "s2", "b1")
	if err != nil {
		t.Fatalf("create b: %v", err)
	}

	if err := msgRepo.Create(ctx, &model.Message{ConversationID: b.ID, SenderUID: "s2", Text: strptr("hello")}); err != nil {
		t.Fatalf("msg b: %v", err)
	}
	if err := convRepo.Touch(ctx, b.ID); err != nil {
		t.Fatalf("touch b: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	if err := msgRepo.Create(ctx, &model.Message{ConversationID: a.ID, SenderUID: "b1", Text: strptr("still available?")}); err != nil {
		t.Fatalf("msg a: %v", err)
	}
	if err := convRepo.Touch(ctx, a.ID); err != nil {
		t.Fatalf("touch a: %v", err)
	}

	list, total, err := convRepo.ListByUser(ctx, "b1", 20, 0)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if total != 2 || len(list) != 2 {
		t.Fatalf("total=%d len=%d", total, len(list))
	}
	if list[0].Conversation.ID != a.ID || list[1].Conversation.ID != b.ID {
		t.Fatalf("recency order wrong: got [%d %d] want [%d %d]", list[0].Conversation.ID, list[1].Conversation.ID, a.ID, b.ID)
	}
	if list[0].LastMessage == nil || *list[0].LastMessage != "still available?" {
		t.Fatalf("last message of a = %v", list[0].LastMessage)
	}
	if list[0].LastMessageAt == nil {
		t.Fatalf("last message time missing")
	}

	// stranger sees nothing
	_, total, err = convRepo.ListByUser(ctx, "x", 20, 0)
	if err != nil {
		t.Fatalf("stranger list: %v", err)
	}
	if total != 0 {
		t.Fatalf("stranger total = %d", total)
	}
}

func TestListByUserNoMessages(t *testing.T) {
	db := openTestDB(t)
	convRepo := NewConversationRepository(db)
	ctx := context.Background()

	if _, err := convRepo.FindOrCreate(ctx, 9, "s1", "b1"); err != nil {
		t.Fatalf("create: %v", err)
	}
	list, _, err := convRepo.ListByUser(ctx, "s1", 20, 0)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("len = %d", len(list))
	}
	if list[0].LastMessage != nil || list[0].LastMessageAt != nil {
		t.Fatalf("expected nil last message annotation, got %v %v", list[0].LastMessage, list[0].LastMessageAt)
	}
}

func TestDeleteCascades(t *testing.T) {
	db := openTestDB(t)
	convRepo := NewConversationRepository(db)
	msgRepo := NewMessageRepository(db)
	readRepo := NewReadStateRepository(db)
	ctx := context.Background()

	cv, err := convRepo.FindOrCreate(ctx, 5, "s1", "b1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := msgRepo.Create(ctx, &model.Message{ConversationID: cv.ID, SenderUID: "b1", Text: strptr("m")}); err != nil {
			t.Fatalf("msg: %v", err)
		}
	}
	if err := readRepo.Upsert(ctx, cv.ID, "b1", time.Now()); err != nil {
		t.Fatalf("upsert read: %v", err)
	}

	if err := convRepo.Delete(ctx, cv.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := convRepo.FindByID(ctx, cv.ID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("conversation still present: %v", err)
	}
	msgs, total, err := msgRepo.ListByConversation(ctx, cv.ID, 20, 0)
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	if total != 0 || len(msgs) != 0 {
		t.Fatalf("messages survived cascade: total=%d", total)
	}
	state, err := readRepo.Find(ctx, cv.ID, "b1")
	if err != nil {
		t.Fatalf("find read: %v", err)
	}
	if state != nil {
		t.Fatalf("read state survived cascade")
	}

	if err := convRepo.Delete(ctx, cv.ID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("deleting missing conversation: %v", err)
	}
}

func TestTouchBumpsUpdatedAt(t *testing.T) {
	db := openTestDB(t)
	convRepo := NewConversationRepository(db)
	ctx := context.Background()

	cv, err := convRepo.FindOrCreate(ctx, 3, "s1", "b1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	before := cv.UpdatedAt
	time.Sleep(5 * time.Millisecond)
	if err := convRepo.Touch(ctx, cv.ID); err != nil {
		t.Fatalf("touch: %v", err)
	}
	after, err := convRepo.FindByID(ctx, cv.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !after.UpdatedAt.After(before) {
		t.Fatalf("updated_at not bumped: %v -> %v", before, after.UpdatedAt)
	}
}
