package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// UserIDHeader is set by the ERP gateway after it authenticates the caller.
// This service trusts it as-is; it only uses it to attribute uploads.
const UserIDHeader = "X-User-ID"

const userIDKey = "user_id"

// UserIdentity returns middleware that reads the authenticated user's id
// forwarded by the gateway. Requests without a valid id proceed anonymously.
func UserIdentity() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := c.Request().Header.Get(UserIDHeader)
			if id, err := strconv.ParseInt(raw, 10, 64); err == nil && id > 0 {
				c.Set(userIDKey, id)
			}
			return next(c)
		}
	}
}

// GetUserID returns the caller's user id, or nil for anonymous requests.
func GetUserID(c echo.Context) *int64 {
	id, ok := c.Get(userIDKey).(int64)
	if !ok {
		return nil
	}
	return &id
}
