package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/khanghh/tokend/internal/issuer"
	"github.com/spf13/cast"
)

const GrantTypePassword = "password"

type ErrorResponse struct {
	Error string `json:"error"`
}

type CheckTokenResponse struct {
	Username  string `json:"username"`
	Scope     string `json:"scope,omitempty"`
	ExpiresIn int64  `json:"expires_in"`
}

type OAuthHandler struct {
	issuer *issuer.Service
}

func NewOAuthHandler(issuerService *issuer.Service) *OAuthHandler {
	return &OAuthHandler{
		issuer: issuerService,
	}
}

func renderOAuthError(ctx *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, issuer.ErrInvalidGrant):
		return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{Error: "invalid_grant"})
	case errors.Is(err, issuer.ErrInvalidScope):
		return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{Error: "invalid_scope"})
	default:
		return ctx.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "server_error"})
	}
}

// POST /oauth/token
func (h *OAuthHandler) PostToken(ctx *fiber.Ctx) error {
	if ctx.FormValue("grant_type") != GrantTypePassword {
		return ctx.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "unsupported_grant_type"})
	}
	username := ctx.FormValue("username")
	password := ctx.FormValue("password")
	if username == "" || password == "" {
		return ctx.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid_request"})
	}

	grant, err := h.issuer.Issue(ctx.Context(), issuer.IssueRequest{
		Username:  username,
		Password:  password,
		Scope:     ctx.FormValue("scope"),
		ExpiresIn: time.Duration(cast.ToInt64(ctx.FormValue("expires_in"))) * time.Second,
	})
	if err != nil {
		return renderOAuthError(ctx, err)
	}
	return ctx.JSON(grant)
}

// GET /oauth/checktoken?access_token=...
func (h *OAuthHandler) GetCheckToken(ctx *fiber.Ctx) error {
	token := ctx.Query("access_token")
	if token == "" {
		return ctx.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid_request"})
	}
	record, err := h.issuer.Check(ctx.Context(), token)
	if err != nil {
		return renderOAuthError(ctx, err)
	}
	return ctx.JSON(CheckTokenResponse{
		Username:  record.Username,
		Scope:     record.Scope,
		ExpiresIn: int64(record.RemainingTTL(time.Now()) / time.Second),
	})
}

// DELETE /oauth/token
func (h *OAuthHandler) DeleteToken(ctx *fiber.Ctx) error {
	token := ctx.FormValue("access_token")
	if token == "" {
		return ctx.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid_request"})
	}
	if err := h.issuer.Revoke(ctx.Context(), token); err != nil {
		return renderOAuthError(ctx, err)
	}
	return ctx.SendStatus(fiber.StatusNoContent)
}
