package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// subject identifies the caller for rate-limit keys: the authenticated
// user id when JWTAuth ran, "anon" otherwise.
func subject(c echo.Context) string {
	if uid, ok := c.Get(UserIDKey).(uint64); ok && uid > 0 {
		return strconv.FormatUint(uid, 10)
	}
	return "anon"
}
