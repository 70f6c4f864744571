// Package middleware holds the echo middleware that sits in front of the handlers.
package middleware

import (
	"context"
	"errors"

	"github.com/anonto42/circles/backend/internal/auth"
	"github.com/labstack/echo/v4"
)

// Authenticate runs every request of a route group through gate. The bearer
// token of the Authorization header is resolved into an identity that
// handlers read with auth.FromContext. With required set, requests without a
// valid token are rejected before the handler runs.
func Authenticate(gate *auth.Gate, required bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			credential := auth.BearerToken(c.Request().Header.Get(echo.HeaderAuthorization))

			// echo errors carry their own status and skip translation
			var httpErr *echo.HTTPError
			err := gate.Run(c.Request().Context(), credential, required, func(ctx context.Context, _ *auth.Identity) error {
				c.SetRequest(c.Request().WithContext(ctx))
				err := next(c)
				if errors.As(err, &httpErr) {
					return nil
				}
				return err
			})
			if httpErr != nil {
				return httpErr
			}
			return err
		}
	}
}

// UserID returns the id of the authenticated caller, or "" for anonymous requests.
func UserID(c echo.Context) string {
	if id := auth.FromContext(c.Request().Context()); id != nil {
		return id.ID
	}
	return ""
}
