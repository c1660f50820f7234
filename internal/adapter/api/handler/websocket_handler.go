package handler

import (
	"net/http"
	"strings"

	gorillaws "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	ws "basera/internal/infrastructure/websocket"
	"basera/pkg/logger"
)

type WebSocketHandler struct {
	hub      *ws.Hub
	verifier ws.TokenVerifier
}

var upgrader = gorillaws.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // restrict to known origins in production
	},
}

func NewWebSocketHandler(hub *ws.Hub, verifier ws.TokenVerifier) *WebSocketHandler {
	return &WebSocketHandler{
		hub:      hub,
		verifier: verifier,
	}
}

// HandleWebSocket authenticates the capability token and upgrades the
// connection. Verification happens before the upgrade: a connection without
// a valid token never reaches the hub.
func (h *WebSocketHandler) HandleWebSocket(c echo.Context) error {
	token := c.QueryParam("token")
	if token == "" {
		if authHeader := c.Request().Header.Get("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
			token = strings.TrimPrefix(authHeader, "Bearer ")
		}
	}
	if token == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "Authentication token required")
	}

	userID, err := h.verifier.Verify(c.Request().Context(), token)
	if err != nil {
		logger.Warn("WebSocket handshake rejected: %v", err)
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired token")
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade has already written its own error response.
		return nil
	}

	client := ws.NewClient(userID, conn)
	h.hub.Register <- client

	go client.ReadPump(h.hub)
	go client.WritePump()

	return nil
}
