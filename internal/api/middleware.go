package api

import (
	"errors"
	"net/http"
	"time"

	"ecommerce-backend/internal/auth"
	"ecommerce-backend/internal/entity"

	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

const claimsKey = "user"

type TokenVerifier interface {
	Verify(token string, kind auth.TokenType) (*auth.Claims, error)
}

// RequireAuth accepts only valid access tokens and stores their claims on the context.
func RequireAuth(tokens TokenVerifier) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		ContextKey:  claimsKey,
		TokenLookup: "header:Authorization:Bearer ",
		ParseTokenFunc: func(c echo.Context, token string) (interface{}, error) {
			return tokens.Verify(token, auth.AccessToken)
		},
		ErrorHandler: func(c echo.Context, err error) error {
			switch {
			case errors.Is(err, auth.ErrTokenExpired):
				return echo.NewHTTPError(http.StatusUnauthorized, "Token has expired")
			case errors.Is(err, auth.ErrTokenInvalid):
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token")
			}
			return echo.NewHTTPError(http.StatusUnauthorized, "Authorization header missing or malformed")
		},
	})
}

// RequireRole must run after RequireAuth.
func RequireRole(role entity.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, ok := c.Get(claimsKey).(*auth.Claims)
			if !ok || claims.Role != role {
				return echo.NewHTTPError(http.StatusForbidden, "Admin access required")
			}
			return next(c)
		}
	}
}

func currentUserID(c echo.Context) (int64, error) {
	claims, ok := c.Get(claimsKey).(*auth.Claims)
	if !ok {
		return 0, echo.NewHTTPError(http.StatusUnauthorized, "Authorization header missing or malformed")
	}
	id, err := claims.UserID()
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusUnauthorized, "Invalid token")
	}
	return id, nil
}

// RateLimiter limits each client address to limit requests per second with the given burst.
func RateLimiter(limit float64, burst int) echo.MiddlewareFunc {
	limiterConfig := middleware.RateLimiterConfig{
		Skipper: middleware.DefaultSkipper,
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(
			middleware.RateLimiterMemoryStoreConfig{
				Rate:      rate.Limit(limit),
				Burst:     burst,
				ExpiresIn: 3 * time.Minute,
			}),
		IdentifierExtractor: func(context echo.Context) (string, error) {
			return context.RealIP(), nil
		},
		DenyHandler: func(context echo.Context, identifier string, err error) error {
			return fail(context, http.StatusTooManyRequests, "Rate limit exceeded")
		},
	}
	return middleware.RateLimiterWithConfig(limiterConfig)
}
