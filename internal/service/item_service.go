package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/yutasaka/fleamarket-backend/internal/blob"
	"github.com/yutasaka/fleamarket-backend/internal/model"
	"github.com/yutasaka/fleamarket-backend/internal/pagination"
	"github.com/yutasaka/fleamarket-backend/internal/repository"
	"gorm.io/gorm"
)

type ItemService interface {
	Create(ctx context.Context, sellerUID, title, description string, price uint, imageURL *string) (*model.Item, error)
	Update(ctx context.Context, id uint64, sellerUID, title, description string, price uint, imageURL *string) (*model.Item, error)
	Get(ctx context.Context, id uint64) (*model.Item, error)
	List(ctx context.Context, filter repository.ItemFilter, page, limit int) ([]model.Item, pagination.Page, error)
	UploadImage(ctx context.Context, sellerUID string, data []byte, contentType string) (string, error)
	AttachImage(ctx context.Context, itemID uint64, sellerUID, imageURL string) (*model.ItemImage, error)
}

type itemService struct {
	repo     repository.ItemRepository
	uploader blob.Uploader
}

func NewItemService(repo repository.ItemRepository, uploader blob.Uploader) ItemService {
	return &itemService{repo: repo, uploader: uploader}
}

func (s *itemService) Create(ctx context.Context, sellerUID, title, description string, price uint, imageURL *string) (*model.Item, error) {
	title = strings.TrimSpace(title)
	description = strings.TrimSpace(description)
	if sellerUID == "" {
		return nil, ErrMissingParameter
	}
	if title == "" || len(title) > 120 {
		return nil, errors.New("invalid title")
	}
	if description == "" {
		return nil, errors.New("invalid description")
	}
	if imageURL != nil && strings.HasPrefix(strings.TrimSpace(*imageURL), "data:") {
		return nil, errors.New("imageUrl must be a URL, not data URI")
	}

	item := &model.Item{
		SellerUID:   sellerUID,
		Title:       title,
		Description: description,
		Price:       price,
		ImageURL:    imageURL,
	}
	if err := s.repo.Create(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *itemService) Update(ctx context.Context, id uint64, sellerUID, title, description string, price uint, imageURL *string) (*model.Item, error) {
	item, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if item.SellerUID != sellerUID {
		return nil, ErrAccessDenied
	}
	title = strings.TrimSpace(title)
	description = strings.TrimSpace(description)
	if title == "" || len(title) > 120 {
		return nil, errors.New("invalid title")
	}
	if description == "" {
		return nil, errors.New("invalid description")
	}
	item.Title = title
	item.Description = description
	item.Price = price
	if imageURL != nil {
		item.ImageURL = imageURL
	}
	if err := s.repo.Update(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *itemService) Get(ctx context.Context, id uint64) (*model.Item, error) {
	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return item, nil
}

func (s *itemService) List(ctx context.Context, filter repository.ItemFilter, page, limit int) ([]model.Item, pagination.Page, error) {
	page, limit = pagination.Normalize(page, limit)
	items, total, err := s.repo.List(ctx, filter, limit, pagination.Offset(page, limit))
	if err != nil {
		return nil, pagination.Page{}, err
	}
	return items, pagination.New(page, limit, total), nil
}

func (s *itemService) UploadImage(ctx context.Context, sellerUID string, data []byte, contentType string) (string, error) {
	if sellerUID == "" {
		return "", ErrMissingParameter
	}
	if !strings.HasPrefix(contentType, "image/") {
		return "", ErrInvalidImage
	}
	if len(data) == 0 {
		return "", ErrInvalidImage
	}
	if len(data) > maxImageBytes {
		return "", ErrImageTooLarge
	}
	if s.uploader == nil {
		return "", ErrUploadFailed
	}
	objectPath := fmt.Sprintf("items/%s/%s%s", sellerUID, uuid.NewString(), extensionFor(contentType))
	url, err := s.uploader.Upload(ctx, data, objectPath, contentType)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	return url, nil
}

func (s *itemService) AttachImage(ctx context.Context, itemID uint64, sellerUID, imageURL string) (*model.ItemImage, error) {
	item, err := s.Get(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.SellerUID != sellerUID {
		return nil, ErrAccessDenied
	}
	if imageURL == "" {
		return nil, ErrMissingParameter
	}
	img := &model.ItemImage{ItemID: itemID, ImageURL: imageURL}
	if err := s.repo.AddImage(ctx, img); err != nil {
		return nil, err
	}
	return img, nil
}
