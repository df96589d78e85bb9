package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/oggyb/talenthub/internal/auth"
	svcErr "github.com/oggyb/talenthub/internal/errors"
	"github.com/oggyb/talenthub/internal/http/response"
)

const claimsKey = "claims"

// RequireAuth rejects requests without a valid bearer token.
func RequireAuth(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr, ok := bearer(c)
		if !ok {
			response.Error(c, svcErr.Unauthorized("Missing bearer token"))
			return
		}
		claims, err := auth.Parse(jwtSecret, tokenStr)
		if err != nil {
			response.Error(c, svcErr.Unauthorized("Invalid or expired token"))
			return
		}
		c.Set(claimsKey, claims)
		c.Next()
	}
}

// OptionalAuth attaches claims when a valid token is present and otherwise
// lets the request through anonymously.
func OptionalAuth(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokenStr, ok := bearer(c); ok {
			if claims, err := auth.Parse(jwtSecret, tokenStr); err == nil {
				c.Set(claimsKey, claims)
			}
		}
		c.Next()
	}
}

// RequireAdmin must run after RequireAuth.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := Claims(c)
		if claims == nil {
			response.Error(c, svcErr.Unauthorized("Authentication required"))
			return
		}
		if !claims.IsAdmin() {
			response.Error(c, svcErr.Forbidden("Admin access required"))
			return
		}
		c.Next()
	}
}

// Claims returns the caller's claims, or nil for anonymous requests.
func Claims(c *gin.Context) *auth.Claims {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*auth.Claims)
	return claims
}

// UserID returns the caller's id, or "" for anonymous requests.
func UserID(c *gin.Context) string {
	if claims := Claims(c); claims != nil {
		return claims.UserID
	}
	return ""
}

// ActingAs reports whether the caller may act as userID: anonymous
// requests and admins may, everyone else only as themselves.
func ActingAs(c *gin.Context, userID string) bool {
	claims := Claims(c)
	if claims == nil || claims.IsAdmin() || userID == "" {
		return true
	}
	return claims.UserID == userID
}

func bearer(c *gin.Context) (string, bool) {
	h := c.GetHeader("Authorization")
	if h == "" || !strings.HasPrefix(h, "Bearer ") {
		return "", false
	}
	tok := strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	return tok, tok != ""
}
