package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/ArowuTest/loyalty-ledger/internal/config"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/exp/slog"
)

// Roles carried in the "role" claim.
const (
	RoleMember  = "member"
	RoleService = "service"
	RoleAdmin   = "admin"
)

// Context keys set by JWTAuthMiddleware.
const (
	ContextUserID = "userID"
	ContextRole   = "userRole"
)

// JWTAuthMiddleware verifies HS256 bearer tokens issued by the auth service
// and stores the subject and role on the context.
func JWTAuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	jwtSecret := []byte(cfg.JWT.Secret)

	return func(c *gin.Context) {
		const BearerSchema = "Bearer "
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header is required"})
			return
		}
		if !strings.HasPrefix(authHeader, BearerSchema) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header must start with Bearer "})
			return
		}
		tokenString := authHeader[len(BearerSchema):]

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return jwtSecret, nil
		})
		if err != nil {
			slog.Warn("Token validation failed", "error", err, "path", c.FullPath())
			if errors.Is(err, jwt.ErrTokenExpired) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Token has expired"})
			} else {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			}
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token claims"})
			return
		}
		sub, _ := claims["sub"].(string)
		role, _ := claims["role"].(string)
		if sub == "" || role == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Token is missing sub or role"})
			return
		}
		c.Set(ContextUserID, sub)
		c.Set(ContextRole, role)
		c.Next()
	}
}

// RequireRole lets the request through only for one of roles.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if hasRole(c, roles) {
			c.Next()
			return
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Insufficient role"})
	}
}

// RequireSelfOrRole lets members reach only their own :param resources;
// holders of roles reach anyone's.
func RequireSelfOrRole(param string, roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if hasRole(c, roles) || c.GetString(ContextUserID) == c.Param(param) {
			c.Next()
			return
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Access to another member's ledger is not allowed"})
	}
}

func hasRole(c *gin.Context, roles []string) bool {
	role := c.GetString(ContextRole)
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
