package middleware

import (
	"context"
	"net/http"
	"strings"

	"firebase.google.com/go/v4/auth"
	"github.com/labstack/echo/v4"
)

// TokenVerifier verifies Firebase ID tokens
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// FirebaseAuthMiddleware verifies the caller's Firebase ID token on callable
// routes. With required=false a missing header is let through, an invalid
// token is always rejected. The UID is stored under "firebaseUID".
func FirebaseAuthMiddleware(verifier TokenVerifier, required bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				if !required {
					return next(c)
				}
				return unauthenticated(c, "Authorization header is missing")
			}

			tokenParts := strings.Split(authHeader, " ")
			if len(tokenParts) != 2 || strings.ToLower(tokenParts[0]) != "bearer" {
				return unauthenticated(c, "Authorization header must be in Bearer format")
			}

			token, err := verifier.VerifyIDToken(c.Request().Context(), tokenParts[1])
			if err != nil {
				return unauthenticated(c, "Invalid or expired ID token")
			}

			c.Set("firebaseUID", token.UID)
			c.Set("firebaseToken", token)
			return next(c)
		}
	}
}

func unauthenticated(c echo.Context, message string) error {
	return c.JSON(http.StatusUnauthorized, map[string]any{
		"error": map[string]string{"status": "UNAUTHENTICATED", "message": message},
	})
}
