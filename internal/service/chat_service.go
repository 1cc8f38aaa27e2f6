package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yutasaka/fleamarket-backend/internal/blob"
	"github.com/yutasaka/fleamarket-backend/internal/model"
	"github.com/yutasaka/fleamarket-backend/internal/pagination"
	"github.com/yutasaka/fleamarket-backend/internal/repository"
	"gorm.io/gorm"
)

const maxImageBytes = 5 << 20 // 5 MiB

// ConversationEntry is one row of a user's conversation list.
type ConversationEntry struct {
	Conversation  model.Conversation
	LastMessage   *string
	LastMessageAt *time.Time
	UnreadCount   int64
}

type ChatService interface {
	StartConversation(ctx context.Context, itemID uint64, buyerUID string) (*model.Conversation, error)
	SendTextMessage(ctx context.Context, convID uint64, senderUID, text string) (*model.Message, error)
	SendImageMessage(ctx context.Context, convID uint64, senderUID string, data []byte, contentType string) (*model.Message, error)
	ListConversations(ctx context.Context, uid string, page, limit int) ([]ConversationEntry, pagination.Page, error)
	ListMessages(ctx context.Context, convID uint64, uid string, page, limit int) ([]model.Message, pagination.Page, error)
	GetConversation(ctx context.Context, convID uint64, uid string) (*model.Conversation, error)
	DeleteConversation(ctx context.Context, convID uint64, uid string) error
	MarkRead(ctx context.Context, convID uint64, uid string) error
	UnreadCount(ctx context.Context, convID uint64, uid string) (int64, error)
}

type chatService struct {
	convRepo repository.ConversationRepository
	msgRepo  repository.MessageRepository
	readRepo repository.ReadStateRepository
	itemRepo repository.ItemRepository
	uploader blob.Uploader
}

func NewChatService(convRepo repository.ConversationRepository, msgRepo repository.MessageRepository, readRepo repository.ReadStateRepository, itemRepo repository.ItemRepository, uploader blob.Uploader) ChatService {
	return &chatService{
		convRepo: convRepo,
		msgRepo:  msgRepo,
		readRepo: readRepo,
		itemRepo: itemRepo,
		uploader: uploader,
	}
}

// authorize is the single gate in front of every conversation read or
// write. A missing conversation and a non-participant caller are
// indistinguishable to the caller.
func (s *chatService) authorize(ctx context.Context, convID uint64, uid string) (*model.Conversation, error) {
	cv, err := s.convRepo.FindByID(ctx, convID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccessDenied
		}
		return nil, err
	}
	if !cv.HasParticipant(uid) {
		return nil, ErrAccessDenied
	}
	return cv, nil
}

func (s *chatService) StartConversation(ctx context.Context, itemID uint64, buyerUID string) (*model.Conversation, error) {
	if itemID == 0 || buyerUID == "" {
		return nil, ErrMissingParameter
	}
	item, err := s.itemRepo.FindByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if item.SellerUID == "" {
		return nil, ErrInvalidParticipants
	}
	if item.SellerUID == buyerUID {
		return nil, ErrInvalidParticipants
	}
	return s.convRepo.FindOrCreate(ctx, itemID, item.SellerUID, buyerUID)
}

func (s *chatService) SendTextMessage(ctx context.Context, convID uint64, senderUID, text string) (*model.Message, error) {
	if convID == 0 || senderUID == "" {
		return nil, ErrMissingParameter
	}
	if _, err := s.authorize(ctx, convID, senderUID); err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}
	msg := &model.Message{
		ConversationID: convID,
		SenderUID:      senderUID,
		Text:           &text,
	}
	if err := s.msgRepo.Create(ctx, msg); err != nil {
		return nil, err
	}
	if err := s.convRepo.Touch(ctx, convID); err != nil {
		return nil, err
	}
	return msg, nil
}

func (s *chatService) SendImageMessage(ctx context.Context, convID uint64, senderUID string, data []byte, contentType string) (*model.Message, error) {
	if convID == 0 || senderUID == "" {
		return nil, ErrMissingParameter
	}
	if _, err := s.authorize(ctx, convID, senderUID); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, ErrEmptyMessage
	}
	if !strings.HasPrefix(contentType, "image/") {
		return nil, ErrInvalidImage
	}
	if len(data) > maxImageBytes {
		return nil, ErrImageTooLarge
	}
	if s.uploader == nil {
		return nil, ErrUploadFailed
	}

	objectPath := fmt.Sprintf("messages/%d/%s%s", convID, uuid.NewString(), extensionFor(contentType))
	url, err := s.uploader.Upload(ctx, data, objectPath, contentType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}

	msg := &model.Message{
		ConversationID: convID,
		SenderUID:      senderUID,
		ImageURL:       &url,
	}
	if err := s.msgRepo.Create(ctx, msg); err != nil {
		// the uploaded object is orphaned here; reclaiming it is left
		// to an offline sweep
		return nil, err
	}
	if err := s.convRepo.Touch(ctx, convID); err != nil {
		return nil, err
	}
	return msg, nil
}

func (s *chatService) ListConversations(ctx context.Context, uid string, page, limit int) ([]ConversationEntry, pagination.Page, error) {
	if uid == "" {
		return nil, pagination.Page{}, ErrMissingParameter
	}
	page, limit = pagination.Normalize(page, limit)
	summaries, total, err := s.convRepo.ListByUser(ctx, uid, limit, pagination.Offset(page, limit))
	if err != nil {
		return nil, pagination.Page{}, err
	}
	entries := make([]ConversationEntry, len(summaries))
	for i, sum := range summaries {
		entries[i] = ConversationEntry{
			Conversation:  sum.Conversation,
			LastMessage:   sum.LastMessage,
			LastMessageAt: sum.LastMessageAt,
		}
		since := time.Time{}
		state, err := s.readRepo.Find(ctx, sum.Conversation.ID, uid)
		if err != nil {
			return nil, pagination.Page{}, err
		}
		if state != nil {
			since = state.LastReadAt
		}
		unread, err := s.msgRepo.CountUnreadSince(ctx, sum.Conversation.ID, uid, since)
		if err != nil {
			return nil, pagination.Page{}, err
		}
		entries[i].UnreadCount = unread
	}
	return entries, pagination.New(page, limit, total), nil
}

func (s *chatService) ListMessages(ctx context.Context, convID uint64, uid string, page, limit int) ([]model.Message, pagination.Page, error) {
	if convID == 0 || uid == "" {
		return nil, pagination.Page{}, ErrMissingParameter
	}
	if _, err := s.authorize(ctx, convID, uid); err != nil {
		return nil, pagination.Page{}, err
	}
	page, limit = pagination.Normalize(page, limit)
	msgs, total, err := s.msgRepo.ListByConversation(ctx, convID, limit, pagination.Offset(page, limit))
	if err != nil {
		return nil, pagination.Page{}, err
	}
	return msgs, pagination.New(page, limit, total), nil
}

func (s *chatService) GetConversation(ctx context.Context, convID uint64, uid string) (*model.Conversation, error) {
	if convID == 0 || uid == "" {
		return nil, ErrMissingParameter
	}
	return s.authorize(ctx, convID, uid)
}

func (s *chatService) DeleteConversation(ctx context.Context, convID uint64, uid string) error {
	if convID == 0 || uid == "" {
		return ErrMissingParameter
	}
	if _, err := s.authorize(ctx, convID, uid); err != nil {
		return err
	}
	return s.convRepo.Delete(ctx, convID)
}

func (s *chatService) MarkRead(ctx context.Context, convID uint64, uid string) error {
	if convID == 0 || uid == "" {
		return ErrMissingParameter
	}
	if _, err := s.authorize(ctx, convID, uid); err != nil {
		return err
	}
	return s.readRepo.Upsert(ctx, convID, uid, time.Now())
}

func (s *chatService) UnreadCount(ctx context.Context, convID uint64, uid string) (int64, error) {
	if convID == 0 || uid == "" {
		return 0, ErrMissingParameter
	}
	if _, err := s.authorize(ctx, convID, uid); err != nil {
		return 0, err
	}
	since := time.Time{}
	state, err := s.readRepo.Find(ctx, convID, uid)
	if err != nil {
		return 0, err
	}
	if state != nil {
		since = state.LastReadAt
	}
	return s.msgRepo.CountUnreadSince(ctx, convID, uid, since)
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	}
	return ""
}
