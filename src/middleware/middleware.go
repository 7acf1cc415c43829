package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"access-coordinator/src/models"
	"access-coordinator/src/utils"
)

// Context keys set by IdentityRequired.
const (
	ContextUserID    = "user_id"
	ContextUserEmail = "user_email"
	ContextUserRole  = "user_role"
)

// Middleware carries the injected role hierarchy used for identity and
// privilege checks. Authentication itself happens in the gateway in front
// of this service; it forwards the verified identity as headers.
type Middleware struct {
	hierarchy *models.RoleHierarchy
}

// NewMiddleware creates the middleware set.
func NewMiddleware(hierarchy *models.RoleHierarchy) *Middleware {
	return &Middleware{
		hierarchy: hierarchy,
	}
}

// IdentityRequired extracts the caller's identity from the gateway headers
// and rejects requests without one.
func (m *Middleware) IdentityRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader("X-User-ID")
		userEmail := c.GetHeader("X-User-Email")
		role := models.Role(c.GetHeader("X-User-Role"))

		if userID == "" || role == "" {
			utils.SendError(c, http.StatusUnauthorized, "Unauthorized", "Identity headers missing", "https://access-coordinator.com/validation-error", c.FullPath())
			c.Abort()
			return
		}
		if !m.hierarchy.Known(role) {
			utils.SendError(c, http.StatusForbidden, "Forbidden", "Unknown role: "+string(role), "https://access-coordinator.com/validation-error", c.FullPath())
			c.Abort()
			return
		}

		c.Set(ContextUserID, userID)
		c.Set(ContextUserEmail, userEmail)
		c.Set(ContextUserRole, role)
		c.Next()
	}
}

// PrivilegedRequired allows only roles configured as privileged past it.
// Must run after IdentityRequired.
func (m *Middleware) PrivilegedRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		role := CallerRole(c)
		if !m.hierarchy.IsPrivileged(role) {
			utils.SendError(c, http.StatusForbidden, "Forbidden", "Privileged role required", "https://access-coordinator.com/permission-error", c.FullPath())
			c.Abort()
			return
		}
		c.Next()
	}
}

// CallerID returns the authenticated caller's user id.
func CallerID(c *gin.Context) string {
	return c.GetString(ContextUserID)
}

// CallerEmail returns the authenticated caller's email.
func CallerEmail(c *gin.Context) string {
	return c.GetString(ContextUserEmail)
}

// CallerRole returns the authenticated caller's role.
func CallerRole(c *gin.Context) models.Role {
	if v, ok := c.Get(ContextUserRole); ok {
		if role, ok := v.(models.Role); ok {
			return role
		}
	}
	return ""
}
