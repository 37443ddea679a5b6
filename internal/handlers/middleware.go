package handlers

import (
	"net/http"
	"strings"

	"smart_office/internal/models"

	"github.com/gin-gonic/gin"
)

const (
	principalCtx = "principal"
	userIDCtx    = "userId"
)

// userIdMiddleware authenticates the bearer token and stores the caller in
// the Gin context.
func (h *Handler) userIdMiddleware(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if header == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": "missing Authorization header",
		})
		return
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": "invalid Authorization header format",
		})
		return
	}

	p, err := h.services.Authorization.ParseToken(strings.TrimSpace(parts[1]))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": "invalid or expired token",
		})
		return
	}

	c.Set(userIDCtx, p.OperatorID)
	c.Set(principalCtx, p)
	c.Next()
}

// requireRole rejects callers whose token does not carry role. It must run
// after userIdMiddleware.
func (h *Handler) requireRole(role models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := principalFrom(c)
		if !ok || p.Role != role {
			if h.log != nil {
				h.log.Infow("auth_forbidden", "path", c.FullPath(), "operator_id", p.OperatorID, "role", p.Role)
			}
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": strings.ToLower(string(role)) + " role required",
			})
			return
		}
		c.Next()
	}
}

func principalFrom(c *gin.Context) (models.Principal, bool) {
	v, ok := c.Get(principalCtx)
	if !ok {
		return models.Principal{}, false
	}
	p, ok := v.(models.Principal)
	return p, ok
}
