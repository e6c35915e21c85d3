package admin

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/followup-api/internal/handler"
	"github.com/jwalitptl/followup-api/internal/model"
	apperrors "github.com/jwalitptl/followup-api/pkg/errors"
)

func (h *Handler) ListClinics(c *gin.Context) {
	var filter model.ClinicFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		handler.RespondError(c, apperrors.BadRequest("invalid query", err))
		return
	}

	clinics, err := h.clinics.ListClinics(c.Request.Context(), filter)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(clinics))
}

func (h *Handler) CreateClinic(c *gin.Context) {
	var req model.ClinicRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	clinic, err := h.clinics.CreateClinic(c.Request.Context(), req.Name)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(clinic))
}

func (h *Handler) GetClinic(c *gin.Context) {
	id, ok := handler.ParseID(c, "id", "clinic")
	if !ok {
		return
	}

	clinic, err := h.clinics.GetClinic(c.Request.Context(), id)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(clinic))
}

// RenameClinic changes the display name only; the clinic code is fixed.
func (h *Handler) RenameClinic(c *gin.Context) {
	id, ok := handler.ParseID(c, "id", "clinic")
	if !ok {
		return
	}

	var req model.ClinicRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	clinic, err := h.clinics.RenameClinic(c.Request.Context(), id, req.Name)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(clinic))
}

func (h *Handler) ListStaff(c *gin.Context) {
	id, ok := handler.ParseID(c, "id", "clinic")
	if !ok {
		return
	}

	staff, err := h.clinics.ListStaff(c.Request.Context(), id)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(staff))
}

func (h *Handler) AssignStaff(c *gin.Context) {
	id, ok := handler.ParseID(c, "id", "clinic")
	if !ok {
		return
	}

	var req model.AssignStaffRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	membership, err := h.clinics.AssignStaff(c.Request.Context(), id, req.UserID)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(membership))
}
