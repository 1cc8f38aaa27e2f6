package handler

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/yutasaka/fleamarket-backend/internal/model"
	"github.com/yutasaka/fleamarket-backend/internal/pagination"
	"github.com/yutasaka/fleamarket-backend/internal/service"
)

type ChatHandler struct {
	svc service.ChatService
}

func NewChatHandler(svc service.ChatService) *ChatHandler {
	return &ChatHandler{svc: svc}
}

type ConversationResponse struct {
	ConversationID uint64  `json:"conversationId"`
	ItemID         uint64  `json:"itemId"`
	SellerUID      string  `json:"sellerUid"`
	BuyerUID       string  `json:"buyerUid"`
	LastMessage    *string `json:"lastMessage,omitempty"`
	LastMessageAt  *string `json:"lastMessageAt,omitempty"`
	UnreadCount    int64   `json:"unreadCount"`
	UpdatedAt      string  `json:"updatedAt"`
}

type ConversationListResponse struct {
	Chats      []ConversationResponse `json:"chats"`
	Pagination pagination.Page        `json:"pagination"`
}

type MessageResponse struct {
	ID             uint64  `json:"id"`
	ConversationID uint64  `json:"conversationId"`
	SenderUID      string  `json:"senderUid"`
	Text           *string `json:"text,omitempty"`
	ImageURL       *string `json:"imageUrl,omitempty"`
	CreatedAt      string  `json:"createdAt"`
}

type MessageListResponse struct {
	Messages   []MessageResponse `json:"messages"`
	Pagination pagination.Page   `json:"pagination"`
}

type SendMessageRequest struct {
	Text string `json:"text"`
}

func toMessageResponse(m *model.Message) MessageResponse {
	return MessageResponse{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderUID:      m.SenderUID,
		Text:           m.Text,
		ImageURL:       m.ImageURL,
		CreatedAt:      m.CreatedAt.Format(time.RFC3339),
	}
}

func toConversationResponse(cv *model.Conversation) ConversationResponse {
	return ConversationResponse{
		ConversationID: cv.ID,
		ItemID:         cv.ItemID,
		SellerUID:      cv.SellerUID,
		BuyerUID:       cv.BuyerUID,
		UpdatedAt:      cv.UpdatedAt.Format(time.RFC3339),
	}
}

func (h *ChatHandler) CreateFromItem(c echo.Context) error {
	uid, ok := callerUID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	itemID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid item id"))
	}
	cv, err := h.svc.StartConversation(c.Request().Context(), itemID, uid)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, toConversationResponse(cv))
}

func (h *ChatHandler) List(c echo.Context) error {
	uid, ok := callerUID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	page, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	entries, pg, err := h.svc.ListConversations(c.Request().Context(), uid, page, limit)
	if err != nil {
		return serviceError(c, err)
	}
	resp := ConversationListResponse{
		Chats:      make([]ConversationResponse, 0, len(entries)),
		Pagination: pg,
	}
	for i := range entries {
		cr := toConversationResponse(&entries[i].Conversation)
		cr.LastMessage = entries[i].LastMessage
		if at := entries[i].LastMessageAt; at != nil {
			s := at.Format(time.RFC3339)
			cr.LastMessageAt = &s
		}
		cr.UnreadCount = entries[i].UnreadCount
		resp.Chats = append(resp.Chats, cr)
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *ChatHandler) Get(c echo.Context) error {
	uid, ok := callerUID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	convID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid conversation id"))
	}
	cv, err := h.svc.GetConversation(c.Request().Context(), convID, uid)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, toConversationResponse(cv))
}

func (h *ChatHandler) Delete(c echo.Context) error {
	uid, ok := callerUID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	convID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid conversation id"))
	}
	if err := h.svc.DeleteConversation(c.Request().Context(), convID, uid); err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (h *ChatHandler) ListMessages(c echo.Context) error {
	uid, ok := callerUID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	convID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid conversation id"))
	}
	page, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	msgs, pg, err := h.svc.ListMessages(c.Request().Context(), convID, uid, page, limit)
	if err != nil {
		return serviceError(c, err)
	}
	resp := MessageListResponse{
		Messages:   make([]MessageResponse, 0, len(msgs)),
		Pagination: pg,
	}
	for i := range msgs {
		resp.Messages = append(resp.Messages, toMessageResponse(&msgs[i]))
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *ChatHandler) CreateMessage(c echo.Context) error {
	uid, ok := callerUID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	convID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid conversation id"))
	}
	var req SendMessageRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid json"))
	}
	msg, err := h.svc.SendTextMessage(c.Request().Context(), convID, uid, req.Text)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusCreated, toMessageResponse(msg))
}

func (h *ChatHandler) CreateImageMessage(c echo.Context) error {
	uid, ok := callerUID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	convID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid conversation id"))
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
	msg, err := h.svc.SendImageMessage(c.Request().Context(), convID, uid, data, fh.Header.Get("Content-Type"))
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusCreated, toMessageResponse(msg))
}

func (h *ChatHandler) MarkRead(c echo.Context) error {
	uid, ok := callerUID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	convID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid conversation id"))
	}
	if err := h.svc.MarkRead(c.Request().Context(), convID, uid); err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (h *ChatHandler) Unread(c echo.Context) error {
	uid, ok := callerUID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	convID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid conversation id"))
	}
	count, err := h.svc.UnreadCount(c.Request().Context(), convID, uid)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]int64{"unreadCount": count})
}
