package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// Context keys set by JWTAuth.
const (
	UserIDKey = "user_id"
	RoleKey   = "role"
)

// JWTAuth verifies an HS256 Bearer access token signed with secret. The
// token's subject must be the numeric user id; it is stored in the context
// as uint64 under UserIDKey, and the optional role claim under RoleKey.
// Tokens are issued elsewhere; this service only verifies them.
func JWTAuth(secret string) echo.MiddlewareFunc {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	keyFunc := func(*jwt.Token) (interface{}, error) { return []byte(secret), nil }

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get(echo.HeaderAuthorization)
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))

			claims := jwt.MapClaims{}
			tok, err := parser.ParseWithClaims(raw, claims, keyFunc)
			if err != nil || !tok.Valid {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}

			uid, ok := subjectID(claims)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid subject"})
			}
			c.Set(UserIDKey, uid)
			if role, ok := claims["role"].(string); ok {
				c.Set(RoleKey, role)
			}
			return next(c)
		}
	}
}

// subjectID reads the user id from "sub", falling back to "user_id".
// Both string and numeric encodings are accepted.
func subjectID(claims jwt.MapClaims) (uint64, bool) {
	for _, k := range []string{"sub", "user_id"} {
		switch v := claims[k].(type) {
		case string:
			if n, err := strconv.ParseUint(v, 10, 64); err == nil && n > 0 {
				return n, true
			}
		case float64:
			if v > 0 && v == float64(uint64(v)) {
				return uint64(v), true
			}
		}
	}
	return 0, false
}
