package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"
)

// SecurityHeaders returns middleware that sets security-related HTTP headers
// on every response. The service only emits JSON and stored media files, so
// the content policy forbids everything except same-origin images.
func SecurityHeaders() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()

			h.Set("Content-Security-Policy",
				"default-src 'none'; img-src 'self'; frame-ancestors 'none'; base-uri 'none'")

			// TLS terminates at the reverse proxy.
			h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")

			// Uploaded documents must never be sniffed into something executable.
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")

			// Documents are served as downloads, never rendered inline.
			if strings.Contains(c.Request().URL.Path, "/documentos/") {
				h.Set("Content-Disposition", "attachment")
			}

			return next(c)
		}
	}
}
