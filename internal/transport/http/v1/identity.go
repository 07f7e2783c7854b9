package v1

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const (
	// HeaderUserID carries the caller identity set by the upstream auth gateway.
	HeaderUserID = "X-User-ID"

	userIDKey = "user_id"
)

// HeaderIdentity resolves the caller from X-User-ID. Requests without an
// identity are rejected with 401.
func HeaderIdentity() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID := strings.TrimSpace(c.Request().Header.Get(HeaderUserID))
			if userID == "" {
				return c.JSON(http.StatusUnauthorized, errorBody("authentication required"))
			}
			c.Set(userIDKey, userID)
			return next(c)
		}
	}
}

// BearerKey requires "Authorization: Bearer <apiKey>" on every request.
func BearerKey(apiKey string) echo.MiddlewareFunc {
	return middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
		KeyLookup:  "header:" + echo.HeaderAuthorization,
		AuthScheme: "Bearer",
		Validator: func(key string, c echo.Context) (bool, error) {
			return subtle.ConstantTimeCompare([]byte(key), []byte(apiKey)) == 1, nil
		},
		ErrorHandler: func(err error, c echo.Context) error {
			return c.JSON(http.StatusUnauthorized, errorBody("authentication required"))
		},
	})
}

// Identity returns the middleware chain guarding the chat routes.
func Identity(apiKey string) []echo.MiddlewareFunc {
	if apiKey == "" {
		return []echo.MiddlewareFunc{HeaderIdentity()}
	}
	return []echo.MiddlewareFunc{BearerKey(apiKey), HeaderIdentity()}
}

func userID(c echo.Context) string {
	id, _ := c.Get(userIDKey).(string)
	return id
}
