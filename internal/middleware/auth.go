package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/TANKominator5/crowdmedics-api/internal/handler"
	"github.com/TANKominator5/crowdmedics-api/internal/model"
	"github.com/TANKominator5/crowdmedics-api/internal/service/auth"
)

const (
	// ContextSession is the gin context key the authenticated session is
	// stored under.
	ContextSession = "session"
	// ContextToken holds the raw bearer token so logout can revoke it.
	ContextToken = "token"
)

type AuthMiddleware struct {
	authService auth.Service
}

func NewAuthMiddleware(authService auth.Service) *AuthMiddleware {
	return &AuthMiddleware{
		authService: authService,
	}
}

// Authenticate verifies the bearer token and sets the session in context
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("missing authorization header"))
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("invalid authorization format"))
			c.Abort()
			return
		}

		session, err := m.authService.ValidateToken(c.Request.Context(), parts[1])
		if err != nil {
			c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("invalid token"))
			c.Abort()
			return
		}

		c.Set(ContextSession, session)
		c.Set(ContextToken, parts[1])
		c.Next()
	}
}

// RequireRole rejects callers whose session role is not in roles.
func (m *AuthMiddleware) RequireRole(roles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := SessionFromContext(c)
		for _, role := range roles {
			if session.Role == role {
				c.Next()
				return
			}
		}
		c.JSON(http.StatusForbidden, handler.NewErrorResponse("insufficient role"))
		c.Abort()
	}
}

// SessionFromContext returns the session set by Authenticate, or the zero
// session when unauthenticated.
func SessionFromContext(c *gin.Context) model.Session {
	if v, exists := c.Get(ContextSession); exists {
		if session, ok := v.(model.Session); ok {
			return session
		}
	}
	return model.Session{}
}
