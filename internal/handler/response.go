package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/followup-api/internal/model"
	apperrors "github.com/jwalitptl/followup-api/pkg/errors"
)

// ContextActor is the gin context key holding the authenticated *model.Actor.
const ContextActor = "actor"

type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Field   string      `json:"field,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Status: "success",
		Data:   data,
	}
}

func NewErrorResponse(message string) *Response {
	return &Response{
		Status:  "error",
		Message: message,
	}
}

// ErrorBody converts err into a status code and an error envelope. Only
// AppError messages reach the client; anything else is a bare 500.
func ErrorBody(err error) (int, *Response) {
	appErr, ok := apperrors.As(err)
	if !ok {
		return http.StatusInternalServerError, NewErrorResponse("internal server error")
	}

	status := appErr.StatusCode()
	if status >= http.StatusInternalServerError {
		return status, NewErrorResponse("internal server error")
	}

	resp := NewErrorResponse(appErr.Message)
	resp.Field = appErr.Field
	return status, resp
}

// RespondError records err on the context for the error middleware and
// aborts the chain.
func RespondError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// ParseID reads a uuid path parameter; a malformed id is a 404 for resource.
func ParseID(c *gin.Context, param, resource string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		RespondError(c, apperrors.NotFound(resource, err))
		return uuid.Nil, false
	}
	return id, true
}

// Actor returns the authenticated actor set by the auth middleware.
func Actor(c *gin.Context) (*model.Actor, bool) {
	v, ok := c.Get(ContextActor)
	if !ok {
		RespondError(c, apperrors.Unauthorized(nil))
		return nil, false
	}
	actor, ok := v.(*model.Actor)
	if !ok {
		RespondError(c, apperrors.Unauthorized(nil))
		return nil, false
	}
	return actor, true
}

// BindJSON binds the request body; a malformed body is a 400.
func BindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		if errors.Is(err, model.ErrInvalidDate) {
			RespondError(c, apperrors.Validation("due_date", err.Error()))
			return false
		}
		RespondError(c, apperrors.BadRequest("invalid request body", err))
		return false
	}
	return true
}
