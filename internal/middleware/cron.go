package middleware

import (
	"crypto/subtle"

	"github.com/anonto42/circles/backend/internal/apperr"
	"github.com/anonto42/circles/backend/internal/auth"
	"github.com/labstack/echo/v4"
)

// CronSecret only lets through requests that carry secret as their bearer token.
func CronSecret(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := auth.BearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if secret == "" || subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
				return apperr.Unauthenticated()
			}
			return next(c)
		}
	}
}
