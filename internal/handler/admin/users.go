package admin

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/followup-api/internal/handler"
	"github.com/jwalitptl/followup-api/internal/model"
	apperrors "github.com/jwalitptl/followup-api/pkg/errors"
)

func (h *Handler) ListUsers(c *gin.Context) {
	var filter model.UserFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		handler.RespondError(c, apperrors.BadRequest("invalid query", err))
		return
	}

	users, err := h.users.ListUsers(c.Request.Context(), filter)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(users))
}

func (h *Handler) CreateUser(c *gin.Context) {
	var req model.CreateUserRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	user, err := h.users.CreateUser(c.Request.Context(), req)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(user))
}

func (h *Handler) GetUser(c *gin.Context) {
	id, ok := handler.ParseID(c, "id", "user")
	if !ok {
		return
	}

	user, err := h.users.GetUser(c.Request.Context(), id)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(user))
}

// DeleteUser removes the account; follow-ups they created are kept.
func (h *Handler) DeleteUser(c *gin.Context) {
	id, ok := handler.ParseID(c, "id", "user")
	if !ok {
		return
	}

	if err := h.users.DeleteUser(c.Request.Context(), id); err != nil {
		handler.RespondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) RemoveStaff(c *gin.Context) {
	id, ok := handler.ParseID(c, "id", "user")
	if !ok {
		return
	}

	if err := h.clinics.RemoveStaff(c.Request.Context(), id); err != nil {
		handler.RespondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
