package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"access-coordinator/src/models"
)

func testRouter() (*gin.Engine, *Middleware) {
	gin.SetMode(gin.TestMode)
	hierarchy := models.NewRoleHierarchy(
		[]models.Role{models.RoleSuperadmin, models.RoleAdmin, models.RoleUser, models.RoleGuest},
		[]models.Role{models.RoleSuperadmin, models.RoleAdmin},
		[]models.Role{models.RoleGuest},
	)
	mw := NewMiddleware(hierarchy)
	router := gin.New()
	return router, mw
}

func perform(router *gin.Engine, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

// TestIdentityRequiredExtractsCaller verifies the gateway headers populate
// the caller accessors.
func TestIdentityRequiredExtractsCaller(t *testing.T) {
	router, mw := testRouter()
	router.GET("/probe", mw.IdentityRequired(), func(c *gin.Context) {
		assert.Equal(t, "alice", CallerID(c))
		assert.Equal(t, "alice@example.com", CallerEmail(c))
		assert.Equal(t, models.RoleUser, CallerRole(c))
		c.Status(http.StatusOK)
	})

	recorder := perform(router, map[string]string{
		"X-User-ID":    "alice",
		"X-User-Email": "alice@example.com",
		"X-User-Role":  "user",
	})
	assert.Equal(t, http.StatusOK, recorder.Code)
}

// TestIdentityRequiredRejectsMissingHeaders verifies requests without an
// identity are rejected before the handler runs.
func TestIdentityRequiredRejectsMissingHeaders(t *testing.T) {
	router, mw := testRouter()
	handlerRan := false
	router.GET("/probe", mw.IdentityRequired(), func(c *gin.Context) {
		handlerRan = true
	})

	recorder := perform(router, nil)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.False(t, handlerRan)
}

// TestIdentityRequiredRejectsUnknownRole verifies a role outside the
// configured hierarchy is forbidden.
func TestIdentityRequiredRejectsUnknownRole(t *testing.T) {
	router, mw := testRouter()
	router.GET("/probe", mw.IdentityRequired(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	recorder := perform(router, map[string]string{
		"X-User-ID":   "eve",
		"X-User-Role": "intruder",
	})
	assert.Equal(t, http.StatusForbidden, recorder.Code)
}

// TestPrivilegedRequired verifies only configured privileged roles pass.
func TestPrivilegedRequired(t *testing.T) {
	router, mw := testRouter()
	router.GET("/probe", mw.IdentityRequired(), mw.PrivilegedRequired(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	admin := perform(router, map[string]string{
		"X-User-ID":   "ada",
		"X-User-Role": "admin",
	})
	assert.Equal(t, http.StatusOK, admin.Code)

	user := perform(router, map[string]string{
		"X-User-ID":   "bob",
		"X-User-Role": "user",
	})
	assert.Equal(t, http.StatusForbidden, user.Code)
}
