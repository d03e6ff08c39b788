package middleware

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/notewave/notewave/internal/sessions"
)

// Identity is the verified caller of a request.
type Identity struct {
	UserID string
	Name   string
	Email  string
}

// Verifier checks a raw bearer token and returns the identity it carries.
type Verifier interface {
	Verify(ctx context.Context, raw string) (*Identity, error)
}

// VerifierFunc adapts a plain function to the Verifier interface.
type VerifierFunc func(ctx context.Context, raw string) (*Identity, error)

func (f VerifierFunc) Verify(ctx context.Context, raw string) (*Identity, error) {
	return f(ctx, raw)
}

// AuthMiddleware returns a Gin middleware that verifies Bearer tokens.
// Tokens revoked through logout are rejected before signature verification.
func AuthMiddleware(ver Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing Authorization header"})
			return
		}
		// Expect 'Bearer <token>'
		var token string
		if n, _ := fmt.Sscanf(auth, "Bearer %s", &token); n != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid Authorization header"})
			return
		}

		if black, err := sessions.IsAccessTokenBlacklisted(c.Request.Context(), token); err == nil && black {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token revoked"})
			return
		}

		ident, err := ver.Verify(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token", "details": err.Error()})
			return
		}

		c.Set("identity", ident)
		c.Set("userId", ident.UserID)
		c.Next()
	}
}

// IdentityFrom returns the authenticated caller set by AuthMiddleware.
func IdentityFrom(c *gin.Context) (*Identity, bool) {
	v, ok := c.Get("identity")
	if !ok {
		return nil, false
	}
	ident, ok := v.(*Identity)
	return ident, ok
}
