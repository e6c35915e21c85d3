package admin

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/followup-api/internal/handler"
	"github.com/jwalitptl/followup-api/internal/model"
	apperrors "github.com/jwalitptl/followup-api/pkg/errors"
)

type followUpQuery struct {
	Search   string `form:"search"`
	Status   string `form:"status"`
	ClinicID string `form:"clinic_id"`
	Language string `form:"language"`
}

func (q followUpQuery) filter() (model.AdminFollowUpFilter, error) {
	filter := model.AdminFollowUpFilter{Search: q.Search}
	if q.Status != "" {
		status := model.FollowUpStatus(q.Status)
		filter.Status = &status
	}
	if q.Language != "" {
		lang := model.Language(q.Language)
		filter.Language = &lang
	}
	if q.ClinicID != "" {
		id, err := uuid.Parse(q.ClinicID)
		if err != nil {
			return filter, apperrors.Validation("clinic_id", "clinic_id must be a valid id")
		}
		filter.ClinicID = &id
	}
	return filter, nil
}

func (h *Handler) SearchFollowUps(c *gin.Context) {
	var query followUpQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		handler.RespondError(c, apperrors.BadRequest("invalid query", err))
		return
	}
	filter, err := query.filter()
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	items, err := h.records.SearchFollowUps(c.Request.Context(), filter)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(items))
}

func (h *Handler) GetFollowUp(c *gin.Context) {
	id, ok := handler.ParseID(c, "id", "follow-up")
	if !ok {
		return
	}

	detail, err := h.records.GetFollowUp(c.Request.Context(), id)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(detail))
}

func (h *Handler) ListViewLogs(c *gin.Context) {
	var filter model.ViewLogFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		handler.RespondError(c, apperrors.BadRequest("invalid query", err))
		return
	}

	entries, err := h.records.ListViewLogs(c.Request.Context(), filter)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(entries))
}
