package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"motoshop/models"
	"motoshop/utils"
)

const (
	ContextUserID = "userID"
	ContextRole   = "role"
)

// AuthMiddleware verifies the bearer token and attaches the user id
// and role to the request context.
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication token missing"})
			return
		}

		tokenString, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token format"})
			return
		}

		claims, err := utils.ParseToken(secret, tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextRole, claims.Role)
		c.Next()
	}
}

// AdminRequired gates admin endpoints on the role capability check.
// It must run after AuthMiddleware.
func AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := c.Get(ContextRole)
		if !exists || !role.(models.Role).CanManage() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			return
		}
		c.Next()
	}
}

// UserID returns the authenticated user id from the context.
func UserID(c *gin.Context) (string, bool) {
	v, exists := c.Get(ContextUserID)
	if !exists {
		return "", false
	}
	return v.(string), true
}

// RoleOf returns the authenticated role, defaulting to customer.
func RoleOf(c *gin.Context) models.Role {
	v, exists := c.Get(ContextRole)
	if !exists {
		return models.RoleCustomer
	}
	return v.(models.Role)
}
