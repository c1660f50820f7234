package handler

import (
	"time"

	"github.com/labstack/echo/v4"

	"basera/internal/infrastructure/auth"
	"basera/pkg/response"
)

// DevTokenHandler mints development tokens so the API and websocket can be
// exercised without the identity provider. Routed only when
// ENVIRONMENT=development.
type DevTokenHandler struct {
	verifier *auth.DevVerifier
}

func NewDevTokenHandler(verifier *auth.DevVerifier) *DevTokenHandler {
	return &DevTokenHandler{
		verifier: verifier,
	}
}

type devTokenRequest struct {
	UID string `json:"uid" validate:"required"`
}

func (h *DevTokenHandler) CreateToken(c echo.Context) error {
	var req devTokenRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	token, err := h.verifier.Mint(req.UID, 24*time.Hour)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]string{"token": token})
}
