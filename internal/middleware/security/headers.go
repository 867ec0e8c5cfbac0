// Package security sets baseline response headers for the API surface.
package security

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

type HeadersConfig struct {
	AllowedOrigins []string
	IsDevelopment  bool
}

// Headers returns middleware applying a conservative header set. The API
// serves JSON only, so the content security policy locks everything to
// self plus the configured dashboard origins.
func Headers(cfg HeadersConfig) fiber.Handler {
	csp := strings.Join([]string{
		"default-src 'self'",
		"img-src 'self' data: https:",
		"connect-src 'self' " + strings.Join(cfg.AllowedOrigins, " "),
		"frame-ancestors 'none'",
		"base-uri 'self'",
	}, "; ")

	return func(c *fiber.Ctx) error {
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("Content-Security-Policy", csp)

		if !cfg.IsDevelopment {
			c.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		return c.Next()
	}
}
