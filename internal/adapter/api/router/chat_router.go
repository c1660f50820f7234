package router

import (
	"github.com/labstack/echo/v4"

	"basera/internal/adapter/api/handler"
	"basera/internal/adapter/api/middleware"
)

// SetupChatRouter sets up conversation and deal routes (excluding WebSocket)
func SetupChatRouter(e *echo.Echo, chatHandler *handler.ChatHandler, authMiddleware *middleware.AuthMiddleware) {
	conversations := e.Group("/v1/conversations")
	conversations.Use(authMiddleware.Authenticate)

	// Conversation management
	conversations.POST("", chatHandler.CreateConversation)      // POST /v1/conversations - Get or create conversation for a listing
	conversations.GET("", chatHandler.GetConversations)         // GET /v1/conversations - List user's conversations
	conversations.GET("/:id", chatHandler.GetConversation)      // GET /v1/conversations/:id - Fetch one (marks messages read)
	conversations.DELETE("/:id", chatHandler.DeleteConversation) // DELETE /v1/conversations/:id - Hide conversation

	// Messages
	conversations.POST("/:id/messages", chatHandler.SendMessage) // POST /v1/conversations/:id/messages

	// Deal negotiation
	conversations.POST("/:id/deal/propose", chatHandler.ProposeDeal) // POST /v1/conversations/:id/deal/propose
	conversations.POST("/:id/deal/respond", chatHandler.RespondDeal) // POST /v1/conversations/:id/deal/respond
}
