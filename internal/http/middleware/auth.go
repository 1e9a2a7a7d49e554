package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/yungbote/lexbridge-backend/internal/platform/envutil"
	"github.com/yungbote/lexbridge-backend/internal/platform/logger"
)

// AuthMiddleware guards mutating admin routes with a bearer token. Tokens
// are HS256 JWTs minted out of band (there is no user table); the "role"
// claim must be "admin". With no ADMIN_JWT_SECRET configured the guard is
// disabled, which is the local dev mode.
type AuthMiddleware struct {
	log    *logger.Logger
	secret []byte
}

func NewAuthMiddleware(baseLog *logger.Logger) *AuthMiddleware {
	log := baseLog.With("middleware", "AuthMiddleware")
	secret := strings.TrimSpace(envutil.String("ADMIN_JWT_SECRET", ""))
	if secret == "" {
		log.Warn("ADMIN_JWT_SECRET not set; admin routes are unguarded")
	}
	return &AuthMiddleware{log: log, secret: []byte(secret)}
}

func (am *AuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if len(am.secret) == 0 {
			c.Next()
			return
		}

		tokenString := extractToken(c)
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{"message": "missing or invalid token", "code": "unauthorized"},
			})
			return
		}

		claims := jwt.MapClaims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
			return am.secret, nil
		}, jwt.WithValidMethods([]string{"HS256"}))
		if err != nil || token == nil || !token.Valid {
			if err == nil {
				err = fmt.Errorf("invalid token")
			}
			am.log.Debug("Admin token rejected", "error", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{"message": "missing or invalid token", "code": "unauthorized"},
			})
			return
		}

		role, _ := claims["role"].(string)
		if !strings.EqualFold(strings.TrimSpace(role), "admin") {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": gin.H{"message": "forbidden", "code": "forbidden"},
			})
			return
		}

		if sub, ok := claims["sub"].(string); ok && sub != "" {
			c.Set("admin_subject", sub)
		}
		c.Next()
	}
}

// extractToken reads the bearer header, falling back to a token query
// parameter so EventSource clients, which cannot set headers, can pass one.
func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	if qToken := strings.TrimSpace(c.Query("token")); qToken != "" {
		return qToken
	}
	return ""
}
