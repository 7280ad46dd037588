// Package middleware holds the Echo middleware that resolves sessions and
// gates routes by authentication and role.
package middleware

import (
	"context"

	"github.com/labstack/echo/v4"

	apperrors "nanum/internal/errors"
	"nanum/internal/logging"
	"nanum/internal/model"
	"nanum/internal/policy"
)

const (
	userContextKey      = "user"
	sessionIDContextKey = "session_id"
)

type ctxKey struct{}

// UserResolver maps a session ID to its user; nil means anonymous.
type UserResolver interface {
	CurrentUser(ctx context.Context, sessionID string) (*model.User, error)
}

// Identify reads the session cookie and attaches the user, if any, to the
// Echo context and the request context. It never rejects a request and never
// touches session state.
func Identify(resolver UserResolver, cookieName string, log logging.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cookie, err := c.Cookie(cookieName)
			if err != nil || cookie.Value == "" {
				return next(c)
			}
			c.Set(sessionIDContextKey, cookie.Value)

			ctx := c.Request().Context()
			user, err := resolver.CurrentUser(ctx, cookie.Value)
			if err != nil {
				log.Error(ctx, "resolve session failed", "error", err)
				return next(c)
			}
			if user != nil {
				c.Set(userContextKey, user)
				c.SetRequest(c.Request().WithContext(context.WithValue(ctx, ctxKey{}, user)))
			}
			return next(c)
		}
	}
}

// RequireUser rejects anonymous requests with 401.
func RequireUser() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if CurrentUser(c) == nil {
				return reject(apperrors.ErrUnauthenticated)
			}
			return next(c)
		}
	}
}

// RequireAdmin rejects anonymous requests with 401 and non-admins with 403.
func RequireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			d := policy.CanAdminister(CurrentUser(c))
			switch {
			case d.Allowed:
				return next(c)
			case d.Reason == policy.ReasonAuthRequired:
				return reject(apperrors.ErrUnauthenticated)
			default:
				return reject(apperrors.ErrForbidden)
			}
		}
	}
}

func reject(err error) error {
	httpErr := apperrors.MapErrorToHTTP(err)
	return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
}

// CurrentUser returns the user resolved by Identify, or nil.
func CurrentUser(c echo.Context) *model.User {
	u, _ := c.Get(userContextKey).(*model.User)
	return u
}

// SessionID returns the raw session cookie value seen by Identify.
func SessionID(c echo.Context) string {
	id, _ := c.Get(sessionIDContextKey).(string)
	return id
}

// UserFromContext returns the user attached to a request context.
func UserFromContext(ctx context.Context) *model.User {
	u, _ := ctx.Value(ctxKey{}).(*model.User)
	return u
}
