package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yoockh/jobhunt/internal/models"
	"github.com/yoockh/jobhunt/internal/utils"
)

func RequireRole(allowed ...models.UserRole) gin.HandlerFunc {
	allow := map[string]struct{}{}
	for _, a := range allowed {
		if s := strings.ToLower(strings.TrimSpace(string(a))); s != "" {
			allow[s] = struct{}{}
		}
	}

	return func(c *gin.Context) {
		role, _ := c.Get("role")
		s, _ := role.(string)
		s = strings.ToLower(strings.TrimSpace(s))

		if _, ok := allow[s]; !ok || s == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, apiError{
				Code:    utils.CodeForbidden,
				Message: "forbidden",
			})
			return
		}
		c.Next()
	}
}

func RequireAdmin() gin.HandlerFunc { return RequireRole(models.RoleAdmin) }
