package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// SecurityConfig represents security headers configuration
type SecurityConfig struct {
	FrameOptions       string
	ContentTypeOptions string
	ReferrerPolicy     string
	CacheControl       string
	CSPDirectives      []string
}

// DefaultSecurityConfig returns the headers for the JSON API
func DefaultSecurityConfig() SecurityConfig {
	return SecurityConfig{
		FrameOptions:       "DENY",
		ContentTypeOptions: "nosniff",
		ReferrerPolicy:     "strict-origin-when-cross-origin",
		CacheControl:       "no-store",
		CSPDirectives: []string{
			"default-src 'none'",
			"frame-ancestors 'none'",
		},
	}
}

// PublicPageConfig is used for token pages: the token must not leak through
// Referer headers or shared caches.
func PublicPageConfig() SecurityConfig {
	cfg := DefaultSecurityConfig()
	cfg.ReferrerPolicy = "no-referrer"
	cfg.CacheControl = "no-store, private"
	return cfg
}

// SecurityHeaders adds security headers to responses
func SecurityHeaders(config SecurityConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Frame-Options", config.FrameOptions)
		c.Header("X-Content-Type-Options", config.ContentTypeOptions)
		c.Header("Referrer-Policy", config.ReferrerPolicy)
		if config.CacheControl != "" {
			c.Header("Cache-Control", config.CacheControl)
		}
		if len(config.CSPDirectives) > 0 {
			c.Header("Content-Security-Policy", strings.Join(config.CSPDirectives, "; "))
		}

		c.Next()
	}
}
