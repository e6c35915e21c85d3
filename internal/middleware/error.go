package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/followup-api/internal/handler"
	apperrors "github.com/jwalitptl/followup-api/pkg/errors"
)

// ErrorHandler renders the last error recorded on the context as the
// response envelope.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		requestID := c.GetString(ContextRequestID)
		for _, e := range c.Errors {
			level := zerolog.WarnLevel
			if appErr, ok := apperrors.As(e.Err); !ok || appErr.StatusCode() >= http.StatusInternalServerError {
				level = zerolog.ErrorLevel
			}
			log.WithLevel(level).
				Err(e.Err).
				Str("request_id", requestID).
				Str("path", c.FullPath()).
				Str("method", c.Request.Method).
				Msg("Request error")
		}

		if c.Writer.Written() {
			return
		}
		status, body := handler.ErrorBody(c.Errors.Last().Err)
		c.JSON(status, body)
	}
}
