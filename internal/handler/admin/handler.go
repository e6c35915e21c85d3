// Package admin serves the operator console. Routes here are not scoped to
// a clinic and must be mounted behind the operator role check.
package admin

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/followup-api/internal/model"
	adminsvc "github.com/jwalitptl/followup-api/internal/service/admin"
	"github.com/jwalitptl/followup-api/internal/service/clinic"
	"github.com/jwalitptl/followup-api/internal/service/user"
)

// Records is the cross-tenant read surface.
type Records interface {
	SearchFollowUps(ctx context.Context, filter model.AdminFollowUpFilter) ([]*model.FollowUpWithViews, error)
	GetFollowUp(ctx context.Context, id uuid.UUID) (*adminsvc.FollowUpDetail, error)
	ListViewLogs(ctx context.Context, filter model.ViewLogFilter) ([]*model.ViewLogEntry, error)
}

type Handler struct {
	clinics clinic.ClinicServicer
	users   user.UserServicer
	records Records
}

func NewHandler(clinics clinic.ClinicServicer, users user.UserServicer, records Records) *Handler {
	return &Handler{
		clinics: clinics,
		users:   users,
		records: records,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	admin := r.Group("/admin")

	clinics := admin.Group("/clinics")
	{
		clinics.GET("", h.ListClinics)
		clinics.POST("", h.CreateClinic)
		clinics.GET("/:id", h.GetClinic)
		clinics.PUT("/:id", h.RenameClinic)
		clinics.GET("/:id/staff", h.ListStaff)
		clinics.POST("/:id/staff", h.AssignStaff)
	}

	users := admin.Group("/users")
	{
		users.GET("", h.ListUsers)
		users.POST("", h.CreateUser)
		users.GET("/:id", h.GetUser)
		users.DELETE("/:id", h.DeleteUser)
		users.DELETE("/:id/membership", h.RemoveStaff)
	}

	followups := admin.Group("/followups")
	{
		followups.GET("", h.SearchFollowUps)
		followups.GET("/:id", h.GetFollowUp)
	}

	admin.GET("/view-logs", h.ListViewLogs)
}
