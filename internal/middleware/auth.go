package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/flicky/storefront/internal/model"
)

const sessionKey = "session"

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*model.Session, error)
}

// Authenticate resolves the bearer token to the shopper's stored session.
func Authenticate(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			token = c.Query("access_token")
		}
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		sess, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, model.ErrStorage) {
				c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "session store unavailable"})
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}

		c.Set(sessionKey, sess)
		c.Next()
	}
}

// RequireRole must run after Authenticate.
func RequireRole(role model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := GetSession(c)
		if sess == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		if !allowed(sess.Role, role) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}

func allowed(have, want model.Role) bool {
	switch want {
	case model.RoleAdmin:
		return have.IsAdmin()
	case model.RoleUser:
		return have == model.RoleUser || have.IsAdmin()
	default:
		return false
	}
}

// GetSession returns nil outside an authenticated route.
func GetSession(c *gin.Context) *model.Session {
	v, _ := c.Get(sessionKey)
	sess, _ := v.(*model.Session)
	return sess
}
