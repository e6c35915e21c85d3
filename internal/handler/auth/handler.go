package auth

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/followup-api/internal/handler"
	"github.com/jwalitptl/followup-api/internal/model"
)

type Service interface {
	Login(ctx context.Context, username, password string) (*model.TokenResponse, error)
	Me(ctx context.Context, userID uuid.UUID) (*model.UserProfile, error)
}

type Handler struct {
	svc Service
}

func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts login behind limit and me behind authenticate.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup, limit, authenticate gin.HandlerFunc) {
	auth := r.Group("/auth")
	{
		auth.POST("/login", limit, h.Login)
		auth.GET("/me", authenticate, h.Me)
	}
}

func (h *Handler) Login(c *gin.Context) {
	var req model.LoginRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	tokens, err := h.svc.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(tokens))
}

func (h *Handler) Me(c *gin.Context) {
	actor, ok := handler.Actor(c)
	if !ok {
		return
	}

	profile, err := h.svc.Me(c.Request.Context(), actor.UserID)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(profile))
}
