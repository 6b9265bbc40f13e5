package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/mendten/camp-mitzvah-tracker-sub001/internal/models"
	apperrors "github.com/mendten/camp-mitzvah-tracker-sub001/pkg/errors"
)

type stubValidator struct {
	claims *models.JWTClaims
}

func (s *stubValidator) ValidateToken(token string) (*models.JWTClaims, error) {
	if token == "good" && s.claims != nil {
		return s.claims, nil
	}
	return nil, apperrors.ErrUnauthorized
}

func newAuthRouter(validator *stubValidator, roles ...models.UserRole) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	group := router.Group("", Auth(validator))
	if len(roles) > 0 {
		group.Use(RequireRoles(roles...))
	}
	group.GET("/protected", func(c *gin.Context) {
		claims := CurrentUser(c)
		c.JSON(http.StatusOK, gin.H{"user_id": claims.UserID})
	})
	return router
}

func TestAuthMissingHeader(t *testing.T) {
	router := newAuthRouter(&stubValidator{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/protected", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthBadScheme(t *testing.T) {
	router := newAuthRouter(&stubValidator{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Basic abc123")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthValidTokenSetsClaims(t *testing.T) {
	validator := &stubValidator{claims: &models.JWTClaims{UserID: "yoni_cotlar", Role: models.RoleCamper}}
	router := newAuthRouter(validator)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer good")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "yoni_cotlar")
}

func TestRequireRolesBlocksCamper(t *testing.T) {
	validator := &stubValidator{claims: &models.JWTClaims{UserID: "yoni_cotlar", Role: models.RoleCamper}}
	router := newAuthRouter(validator, models.RoleStaff, models.RoleAdmin)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer good")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRequireRolesAllowsStaff(t *testing.T) {
	validator := &stubValidator{claims: &models.JWTClaims{UserID: "staff-1", Role: models.RoleStaff}}
	router := newAuthRouter(validator, models.RoleStaff, models.RoleAdmin)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer good")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
