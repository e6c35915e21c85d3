package followup

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/followup-api/internal/handler"
	"github.com/jwalitptl/followup-api/internal/model"
	followupsvc "github.com/jwalitptl/followup-api/internal/service/followup"
	apperrors "github.com/jwalitptl/followup-api/pkg/errors"
)

// Guard is the tenant-scoped follow-up surface staff requests go through.
type Guard interface {
	ListFor(ctx context.Context, actorID uuid.UUID, filter model.FollowUpFilter) (*followupsvc.Listing, error)
	CreateFor(ctx context.Context, actorID uuid.UUID, in model.FollowUpInput) (*model.FollowUp, error)
	GetFor(ctx context.Context, actorID, id uuid.UUID) (*model.FollowUp, error)
	UpdateFor(ctx context.Context, actorID, id uuid.UUID, in model.FollowUpInput) (*model.FollowUp, error)
	MarkDoneFor(ctx context.Context, actorID, id uuid.UUID) (*model.FollowUp, error)
}

type Handler struct {
	guard Guard
}

func NewHandler(guard Guard) *Handler {
	return &Handler{guard: guard}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	followups := r.Group("/followups")
	{
		followups.GET("", h.ListFollowUps)
		followups.POST("", h.CreateFollowUp)
		followups.GET("/:id", h.GetFollowUp)
		followups.PUT("/:id", h.UpdateFollowUp)
		followups.POST("/:id/done", h.MarkDone)
	}
}

func (h *Handler) ListFollowUps(c *gin.Context) {
	actor, ok := handler.Actor(c)
	if !ok {
		return
	}

	filter, err := parseFilter(c)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	listing, err := h.guard.ListFor(c.Request.Context(), actor.UserID, filter)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(listing))
}

func (h *Handler) CreateFollowUp(c *gin.Context) {
	actor, ok := handler.Actor(c)
	if !ok {
		return
	}

	var in model.FollowUpInput
	if !handler.BindJSON(c, &in) {
		return
	}

	f, err := h.guard.CreateFor(c.Request.Context(), actor.UserID, in)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(f))
}

func (h *Handler) GetFollowUp(c *gin.Context) {
	actor, ok := handler.Actor(c)
	if !ok {
		return
	}
	id, ok := handler.ParseID(c, "id", "follow-up")
	if !ok {
		return
	}

	f, err := h.guard.GetFor(c.Request.Context(), actor.UserID, id)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(f))
}

func (h *Handler) UpdateFollowUp(c *gin.Context) {
	actor, ok := handler.Actor(c)
	if !ok {
		return
	}
	id, ok := handler.ParseID(c, "id", "follow-up")
	if !ok {
		return
	}

	var in model.FollowUpInput
	if !handler.BindJSON(c, &in) {
		return
	}

	f, err := h.guard.UpdateFor(c.Request.Context(), actor.UserID, id, in)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(f))
}

func (h *Handler) MarkDone(c *gin.Context) {
	actor, ok := handler.Actor(c)
	if !ok {
		return
	}
	id, ok := handler.ParseID(c, "id", "follow-up")
	if !ok {
		return
	}

	f, err := h.guard.MarkDoneFor(c.Request.Context(), actor.UserID, id)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(f))
}

// parseFilter reads status, date_from and date_to. Empty values are unset.
func parseFilter(c *gin.Context) (model.FollowUpFilter, error) {
	var filter model.FollowUpFilter

	if raw := c.Query("status"); raw != "" {
		status := model.FollowUpStatus(raw)
		if !status.Valid() {
			return filter, apperrors.Validation("status", "status must be pending or done")
		}
		filter.Status = &status
	}

	for _, bound := range []struct {
		param string
		dst   **model.Date
	}{
		{"date_from", &filter.DueFrom},
		{"date_to", &filter.DueTo},
	} {
		raw := c.Query(bound.param)
		if raw == "" {
			continue
		}
		d, err := model.ParseDate(raw)
		if err != nil {
			return filter, apperrors.Validation(bound.param, bound.param+" must be a date in YYYY-MM-DD format")
		}
		*bound.dst = &d
	}

	return filter, nil
}
