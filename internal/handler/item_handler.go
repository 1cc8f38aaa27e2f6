package handler

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/yutasaka/fleamarket-backend/internal/model"
	"github.com/yutasaka/fleamarket-backend/internal/pagination"
	"github.com/yutasaka/fleamarket-backend/internal/repository"
	"github.com/yutasaka/fleamarket-backend/internal/service"
)

type ItemHandler struct {
	svc    service.ItemService
	favSvc service.FavoriteService
}

func NewItemHandler(svc service.ItemService, favSvc service.FavoriteService) *ItemHandler {
	return &ItemHandler{svc: svc, favSvc: favSvc}
}

type ItemResponse struct {
	ID            uint64   `json:"id"`
	SellerUID     string   `json:"sellerUid"`
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	Price         uint     `json:"price"`
	ImageURL      *string  `json:"imageUrl,omitempty"`
	ImageURLs     []string `json:"imageUrls"`
	FavoriteCount *int64   `json:"favoriteCount,omitempty"`
	CreatedAt     string   `json:"createdAt"`
	UpdatedAt     string   `json:"updatedAt"`
}

type ItemListResponse struct {
	Items      []ItemResponse  `json:"items"`
	Pagination pagination.Page `json:"pagination"`
}

type CreateItemRequest struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Price       uint    `json:"price"`
	ImageURL    *string `json:"imageUrl"`
}

func toItemResponse(item *model.Item) ItemResponse {
	urls := make([]string, 0, len(item.Images))
	for _, img := range item.Images {
		urls = append(urls, img.ImageURL)
	}
	return ItemResponse{
		ID:          item.ID,
		SellerUID:   item.SellerUID,
		Title:       item.Title,
		Description: item.Description,
		Price:       item.Price,
		ImageURL:    item.ImageURL,
		ImageURLs:   urls,
		CreatedAt:   item.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   item.UpdatedAt.Format(time.RFC3339),
	}
}

type AttachImageRequest struct {
	ImageURL string `json:"imageUrl"`
}

func (h *ItemHandler) Create(c echo.Context) error {
	uid, ok := callerUID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	var req CreateItemRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid json"))
	}
	item, err := h.svc.Create(c.Request().Context(), uid, req.Title, req.Description, req.Price, req.ImageURL)
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", err.Error()))
	}
	return c.JSON(http.StatusCreated, toItemResponse(item))
}

func (h *ItemHandler) Update(c echo.Context) error {
	uid, ok := callerUID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid id"))
	}
	var req CreateItemRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid json"))
	}
	item, err := h.svc.Update(c.Request().Context(), id, uid, req.Title, req.Description, req.Price, req.ImageURL)
	if err != nil {
		switch err {
		case service.ErrNotFound, service.ErrAccessDenied:
			return serviceError(c, err)
		}
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", err.Error()))
	}
	return c.JSON(http.StatusOK, toItemResponse(item))
}

func (h *ItemHandler) Get(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid id"))
	}
	item, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return serviceError(c, err)
	}
	resp := toItemResponse(item)
	count, err := h.favSvc.CountByItem(c.Request().Context(), id)
	if err != nil {
		return serviceError(c, err)
	}
	resp.FavoriteCount = &count
	return c.JSON(http.StatusOK, resp)
}

func (h *ItemHandler) AttachImage(c echo.Context) error {
	uid, ok := callerUID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid id"))
	}
	var req AttachImageRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid json"))
	}
	img, err := h.svc.AttachImage(c.Request().Context(), id, uid, req.ImageURL)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"id":       img.ID,
		"itemId":   img.ItemID,
		"imageUrl": img.ImageURL,
	})
}

func (h *ItemHandler) List(c echo.Context) error {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	filter := repository.ItemFilter{Keyword: c.QueryParam("q")}
	if v := c.QueryParam("minPrice"); v != "" {
		if p, err := strconv.ParseUint(v, 10, 32); err == nil {
			mp := uint(p)
			filter.MinPrice = &mp
		}
	}
	if v := c.QueryParam("maxPrice"); v != "" {
		if p, err := strconv.ParseUint(v, 10, 32); err == nil {
			mp := uint(p)
			filter.MaxPrice = &mp
		}
	}
	items, pg, err := h.svc.List(c.Request().Context(), filter, page, limit)
	if err != nil {
		return serviceError(c, err)
	}
	resp := ItemListResponse{
		Items:      make([]ItemResponse, 0, len(items)),
		Pagination: pg,
	}
	for i := range items {
		resp.Items = append(resp.Items, toItemResponse(&items[i]))
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *ItemHandler) ListMine(c echo.Context) error {
	uid, ok := callerUID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	page, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	items, pg, err := h.svc.List(c.Request().Context(), repository.ItemFilter{Seller: uid}, page, limit)
	if err != nil {
		return serviceError(c, err)
	}
	resp := ItemListResponse{
		Items:      make([]ItemResponse, 0, len(items)),
		Pagination: pg,
	}
	for i := range items {
		resp.Items = append(resp.Items, toItemResponse(&items[i]))
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *ItemHandler) UploadImage(c echo.Context) error {
	uid, ok := callerUID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	fh, err := c.FormFile("image")
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "image file is required"))
	}
	f, err := fh.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "could not read image"))
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "could not read image"))
	}
	url, err := h.svc.UploadImage(c.Request().Context(), uid, data, fh.Header.Get("Content-Type"))
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusCreated, map[string]string{"url": url})
}
