package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"basera/internal/usecase"
	"basera/pkg/response"
	"basera/pkg/utils"
)

type ChatHandler struct {
	chatUseCase        *usecase.ChatUseCase
	negotiationUseCase *usecase.NegotiationUseCase
}

func NewChatHandler(chatUseCase *usecase.ChatUseCase, negotiationUseCase *usecase.NegotiationUseCase) *ChatHandler {
	return &ChatHandler{
		chatUseCase:        chatUseCase,
		negotiationUseCase: negotiationUseCase,
	}
}

type createConversationRequest struct {
	ListingID string `json:"listing_id" validate:"required"`
}

type sendMessageRequest struct {
	Text     string `json:"text"`
	ImageURL string `json:"image_url" validate:"omitempty,url"`
}

type respondDealRequest struct {
	Accept *bool `json:"accept" validate:"required"`
}

// CreateConversation gets or creates the conversation between the caller and
// a listing's owner.
func (h *ChatHandler) CreateConversation(c echo.Context) error {
	var req createConversationRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	userID := c.Get("uid").(string)

	conv, err := h.chatUseCase.GetOrCreate(c.Request().Context(), userID, req.ListingID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, conv)
}

// GetConversations lists the caller's conversations with unread counts.
func (h *ChatHandler) GetConversations(c echo.Context) error {
	userID := c.Get("uid").(string)
	params := utils.GetPaginationParams(c)

	conversations, total, err := h.chatUseCase.ListForUser(c.Request().Context(), userID, params.PageSize, params.Offset)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Paginated(c, conversations, total, params.Page, params.PageSize)
}

// GetConversation fetches one conversation; fetching marks the caller's
// unread messages as read.
func (h *ChatHandler) GetConversation(c echo.Context) error {
	conversationID := c.Param("id")
	userID := c.Get("uid").(string)

	conv, err := h.chatUseCase.Get(c.Request().Context(), userID, conversationID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, conv)
}

// SendMessage appends a message to the conversation.
func (h *ChatHandler) SendMessage(c echo.Context) error {
	conversationID := c.Param("id")
	userID := c.Get("uid").(string)

	var req sendMessageRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	message, err := h.chatUseCase.AppendMessage(c.Request().Context(), userID, usecase.AppendMessageInput{
		ConversationID: conversationID,
		Text:           req.Text,
		ImageURL:       req.ImageURL,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, message)
}

// ProposeDeal opens a deal proposal on the conversation.
func (h *ChatHandler) ProposeDeal(c echo.Context) error {
	conversationID := c.Param("id")
	userID := c.Get("uid").(string)

	conv, err := h.negotiationUseCase.Propose(c.Request().Context(), userID, conversationID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, conv)
}

// RespondDeal accepts or rejects the pending deal.
func (h *ChatHandler) RespondDeal(c echo.Context) error {
	conversationID := c.Param("id")
	userID := c.Get("uid").(string)

	var req respondDealRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	conv, err := h.negotiationUseCase.Respond(c.Request().Context(), userID, conversationID, *req.Accept)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, conv)
}

// DeleteConversation soft-deletes the conversation; the log is retained.
func (h *ChatHandler) DeleteConversation(c echo.Context) error {
	conversationID := c.Param("id")
	userID := c.Get("uid").(string)

	if err := h.chatUseCase.SetInactive(c.Request().Context(), userID, conversationID); err != nil {
		return response.Error(c, err)
	}

	return c.NoContent(http.StatusOK)
}
