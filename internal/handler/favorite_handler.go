package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/yutasaka/fleamarket-backend/internal/pagination"
	"github.com/yutasaka/fleamarket-backend/internal/service"
)

type FavoriteHandler struct {
	svc service.FavoriteService
}

func NewFavoriteHandler(svc service.FavoriteService) *FavoriteHandler {
	return &FavoriteHandler{svc: svc}
}

type FavoriteResponse struct {
	ItemID    uint64        `json:"itemId"`
	Item      *ItemResponse `json:"item,omitempty"`
	CreatedAt string        `json:"createdAt"`
}

type FavoriteListResponse struct {
	Favorites  []FavoriteResponse `json:"favorites"`
	Pagination pagination.Page    `json:"pagination"`
}

func (h *FavoriteHandler) Toggle(c echo.Context) error {
	uid, ok := callerUID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	itemID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid item id"))
	}
	favorited, err := h.svc.Toggle(c.Request().Context(), uid, itemID)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"favorited": favorited})
}

func (h *FavoriteHandler) ListMine(c echo.Context) error {
	uid, ok := callerUID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	page, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	entries, pg, err := h.svc.ListByUser(c.Request().Context(), uid, page, limit)
	if err != nil {
		return serviceError(c, err)
	}
	resp := FavoriteListResponse{
		Favorites:  make([]FavoriteResponse, 0, len(entries)),
		Pagination: pg,
	}
	for _, e := range entries {
		fr := FavoriteResponse{
			ItemID:    e.Favorite.ItemID,
			CreatedAt: e.Favorite.CreatedAt.Format(time.RFC3339),
		}
		if e.Item != nil {
			ir := toItemResponse(e.Item)
			fr.Item = &ir
		}
		resp.Favorites = append(resp.Favorites, fr)
	}
	return c.JSON(http.StatusOK, resp)
}
