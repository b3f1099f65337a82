package middleware

// identity.go holds helpers shared across middleware files for naming
// the caller of a request.

import (
	"fmt"

	"github.com/labstack/echo/v4"
)

// callerKey identifies the client of a request for rate limiting.  An
// authenticated request is keyed by its user id so that one user cannot
// exhaust the budget of everyone behind the same NAT; anonymous
// requests fall back to the client IP.
func callerKey(c echo.Context) string {
	if v := c.Get("user_id"); v != nil {
		return "user:" + fmt.Sprint(v)
	}
	ip := c.RealIP()
	if ip == "" {
		ip = "unknown"
	}
	return "ip:" + ip
}
