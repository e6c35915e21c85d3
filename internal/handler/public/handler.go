package public

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/followup-api/internal/handler"
	"github.com/jwalitptl/followup-api/internal/service/disclosure"
)

type Discloser interface {
	Disclose(ctx context.Context, token string, client disclosure.ClientInfo) (*disclosure.View, error)
}

// Handler serves the unauthenticated patient page.
type Handler struct {
	svc Discloser
}

func NewHandler(svc Discloser) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(r gin.IRoutes) {
	r.GET("/p/:token", h.View)
}

func (h *Handler) View(c *gin.Context) {
	client := disclosure.ClientInfo{
		UserAgent:    c.Request.UserAgent(),
		ForwardedFor: c.GetHeader("X-Forwarded-For"),
		RemoteAddr:   c.Request.RemoteAddr,
	}

	view, err := h.svc.Disclose(c.Request.Context(), c.Param("token"), client)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(view))
}
