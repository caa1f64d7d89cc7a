// internal/middleware/auth.go
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/paydesk/commission-backend/internal/models"
	"github.com/paydesk/commission-backend/internal/utils"
)

func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Authentication required",
			})
			c.Abort()
			return
		}

		// Extract token from "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid authorization header",
			})
			c.Abort()
			return
		}

		claims, err := utils.ValidateJWT(parts[1])
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid or expired token",
			})
			c.Abort()
			return
		}

		c.Set("operator_id", claims.OperatorID)
		c.Set("username", claims.Username)
		c.Set("capabilities", claims.Capabilities)
		c.Next()
	}
}

// CapabilityRequired gates a route on one capability. Admin passes every
// gate.
func CapabilityRequired(capability models.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, exists := c.Get("capabilities")
		if !exists {
			c.JSON(http.StatusForbidden, gin.H{
				"error": "Access denied",
			})
			c.Abort()
			return
		}

		capabilities, ok := raw.([]string)
		if !ok || !hasCapability(capabilities, capability) {
			c.JSON(http.StatusForbidden, gin.H{
				"error": "Access denied",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

func AdminRequired() gin.HandlerFunc {
	return CapabilityRequired(models.CapabilityAdmin)
}

func hasCapability(capabilities []string, want models.Capability) bool {
	for _, cap := range capabilities {
		if cap == string(want) || cap == string(models.CapabilityAdmin) {
			return true
		}
	}
	return false
}
