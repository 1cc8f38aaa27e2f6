package repository

import (
	"context"
	"testing"
	"time"

	"github.com/yutasaka/fleamarket-backend/internal/model"
)

func TestListByConversationChronological(t *testing.T) {
	db := openTestDB(t)
	convRepo := NewConversationRepository(db)
	msgRepo := NewMessageRepository(db)
	ctx := context.Background()

	cv, err := convRepo.FindOrCreate(ctx, 1, "s1", "b1")
	if err != nil {
		t.Fatalf("create conv: %v", err)
	}

	bodies := []string{"first", "second", "third"}
	for _, b := range bodies {
		body := b
		if err := msgRepo.Create(ctx, &model.Message{ConversationID: cv.ID, SenderUID: "b1", Text: &body}); err != nil {
			t.Fatalf("create msg %q: %v", b, err)
		}
	}

	msgs, total, err := msgRepo.ListByConversation(ctx, cv.ID, 20, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 3 || len(msgs) != 3 {
		t.Fatalf("total=%d len=%d", total, len(msgs))
	}
	for i, want := range bodies {
		if msgs[i].Text == nil || *msgs[i].Text != want {
			t.Fatalf("position %d: got %v want %q", i, msgs[i].Text, want)
		}
	}
}

func TestListByConversationPaging(t *testing.T) {
	db := openTestDB(t)
	convRepo := NewConversationRepository(db)
	msgRepo := NewMessageRepository(db)
	ctx := context.Background()

	cv, err := convRepo.FindOrCreate(ctx, 1, "s1", "b1")
	if err != nil {
		t.Fatalf("create conv: %v", err)
	}
	for i := 0; i < 5; i++ {
		body := string(rune('a' + i))
		if err := msgRepo.Create(ctx, &model.Message{ConversationID: cv.ID, SenderUID: "b1", Text: &body}); err != nil {
			t.Fatalf("create msg: %v", err)
		}
	}

	page2, total, err := msgRepo.ListByConversation(ctx, cv.ID, 2, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 5 || len(page2) != 2 {
		t.Fatalf("total=%d len=%d", total, len(page2))
	}
	if *page2[0].Text != "c" || *page2[1].Text != "d" {
		t.Fatalf("page 2 = [%s %s]", *page2[0].Text, *page2[1].Text)
	}
}

func TestCountUnreadSince(t *testing.T) {
	db := openTestDB(t)
	convRepo := NewConversationRepository(db)
	msgRepo := NewMessageRepository(db)
	ctx := context.Background()

	cv, err := convRepo.FindOrCreate(ctx, 1, "s1", "b1")
	if err != nil {
		t.Fatalf("create conv: %v", err)
	}

	if err := msgRepo.Create(ctx, &model.Message{ConversationID: cv.ID, SenderUID: "s1", Text: strptr("old")}); err != nil {
		t.Fatalf("old msg: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	since := time.Now()
	time.Sleep(5 * time.Millisecond)
	if err := msgRepo.Create(ctx, &model.Message{ConversationID: cv.ID, SenderUID: "s1", Text: strptr("new from seller")}); err != nil {
		t.Fatalf("new msg: %v", err)
	}
	if err := msgRepo.Create(ctx, &model.Message{ConversationID: cv.ID, SenderUID: "b1", Text: strptr("own message")}); err != nil {
		t.Fatalf("own msg: %v", err)
	}

	count, err := msgRepo.CountUnreadSince(ctx, cv.ID, "b1", since)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("unread = %d, want 1 (own and pre-since messages excluded)", count)
	}

	count, err = msgRepo.CountUnreadSince(ctx, cv.ID, "b1", time.Time{})
	if err != nil {
		t.Fatalf("count from zero: %v", err)
	}
	if count != 2 {
		t.Fatalf("unread from zero = %d, want 2", count)
	}
}
