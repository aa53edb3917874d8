package http

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/verdantlabs/accountd/internal/server/auth"
)

const claimsContextKey = "claims"

// accessTokenMiddleware validates the Bearer access token and stores its
// parsed claims in the request context for the handlers.
func (s *HTTPServer) accessTokenMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get(echo.HeaderAuthorization)
		if !strings.HasPrefix(header, "Bearer ") {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
		}

		claims, err := auth.ParseToken(strings.TrimPrefix(header, "Bearer "), s.jwtSecret)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
		}

		c.Set(claimsContextKey, claims)
		return next(c)
	}
}

// requestClaims returns the claims stored by accessTokenMiddleware.
func requestClaims(c echo.Context) *auth.Claims {
	claims, _ := c.Get(claimsContextKey).(*auth.Claims)
	return claims
}
