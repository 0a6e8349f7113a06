package middlewares

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"motoshop/models"
	"motoshop/utils"
)

const testSecret = "test-secret"

func protectedRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	authed := r.Group("/", AuthMiddleware(testSecret))
	authed.GET("/me", func(c *gin.Context) {
		id, _ := UserID(c)
		c.JSON(http.StatusOK, gin.H{"userId": id, "role": RoleOf(c)})
	})
	admin := authed.Group("/admin", AdminRequired())
	admin.GET("/ping", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func get(r *gin.Engine, path, token string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddlewareMissingToken(t *testing.T) {
	r := protectedRouter()

	w := get(r, "/me", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Token abcdef")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddlewareInvalidToken(t *testing.T) {
	r := protectedRouter()

	w := get(r, "/me", "not.a.token")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Signed with another secret.
	token, err := utils.GenerateToken("wrong-secret", "user-1", models.RoleCustomer)
	require.NoError(t, err)
	w = get(r, "/me", token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddlewareAttachesIdentity(t *testing.T) {
	r := protectedRouter()

	token, err := utils.GenerateToken(testSecret, "user-1", models.RoleCustomer)
	require.NoError(t, err)

	w := get(r, "/me", token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"user-1"`)
	assert.Contains(t, w.Body.String(), `"customer"`)
}

func TestAdminRequired(t *testing.T) {
	r := protectedRouter()

	customer, err := utils.GenerateToken(testSecret, "user-1", models.RoleCustomer)
	require.NoError(t, err)
	w := get(r, "/admin/ping", customer)
	assert.Equal(t, http.StatusForbidden, w.Code)

	admin, err := utils.GenerateToken(testSecret, "admin-1", models.RoleAdmin)
	require.NoError(t, err)
	w = get(r, "/admin/ping", admin)
	assert.Equal(t, http.StatusOK, w.Code)
}
