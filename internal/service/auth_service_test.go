package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/mendten/camp-mitzvah-tracker-sub001/internal/models"
	"github.com/mendten/camp-mitzvah-tracker-sub001/pkg/config"
	apperrors "github.com/mendten/camp-mitzvah-tracker-sub001/pkg/errors"
)

type stubUserStore struct {
	users      map[string]*models.User
	lastLogins []string
}

func (s *stubUserStore) FindByEmail(_ context.Context, email string) (*models.User, error) {
	if user, ok := s.users[email]; ok {
		return user, nil
	}
	return nil, sql.ErrNoRows
}

func (s *stubUserStore) UpdateLastLogin(_ context.Context, id string, _ time.Time) error {
	s.lastLogins = append(s.lastLogins, id)
	return nil
}

type stubCodeResolver struct {
	byCode map[string]*models.CamperWithBunk
}

func (s *stubCodeResolver) FindCamperByCode(_ context.Context, code string) (*models.CamperWithBunk, error) {
	if camper, ok := s.byCode[code]; ok {
		return camper, nil
	}
	return nil, sql.ErrNoRows
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{Secret: "test-secret", Expiration: time.Hour, Issuer: "camp-tracker"}
}

func newTestAuthService(t *testing.T) (*AuthService, *stubUserStore) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	require.NoError(t, err)

	bunkID := "bunk-alef"
	users := &stubUserStore{users: map[string]*models.User{
		"alef.counselor@camp.example": {
			ID:           "staff-1",
			Email:        "alef.counselor@camp.example",
			PasswordHash: string(hash),
			FullName:     "Shloimy Raskin",
			Role:         models.RoleStaff,
			BunkID:       &bunkID,
			Active:       true,
		},
	}}
	campers := &stubCodeResolver{byCode: map[string]*models.CamperWithBunk{
		"XK7P2N": {
			Camper:   models.Camper{ID: "yoni_cotlar", Name: "Yoni Cotlar", BunkID: "bunk-alef", Code: "XK7P2N"},
			BunkName: "Bunk Alef",
		},
	}}
	return NewAuthService(users, campers, &stubAudit{}, nil, testJWTConfig(), nil), users
}

func TestStaffLoginSuccess(t *testing.T) {
	svc, users := newTestAuthService(t)

	result, err := svc.StaffLogin(context.Background(), models.StaffLoginRequest{
		Email:    "alef.counselor@camp.example",
		Password: "correct-horse",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, result.AccessToken)
	assert.Equal(t, models.RoleStaff, result.Identity.Role)
	assert.Equal(t, "bunk-alef", result.Identity.BunkID)
	assert.Contains(t, users.lastLogins, "staff-1")

	claims, err := svc.ValidateToken(result.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "staff-1", claims.UserID)
	assert.Equal(t, models.RoleStaff, claims.Role)
	assert.Equal(t, "bunk-alef", claims.BunkID)
}

func TestStaffLoginWrongPassword(t *testing.T) {
	svc, _ := newTestAuthService(t)

	_, err := svc.StaffLogin(context.Background(), models.StaffLoginRequest{
		Email:    "alef.counselor@camp.example",
		Password: "wrong",
	})
	var appErr *apperrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperrors.ErrInvalidCredentials.Code, appErr.Code)
}

func TestStaffLoginDisabledAccount(t *testing.T) {
	svc, users := newTestAuthService(t)
	users.users["alef.counselor@camp.example"].Active = false

	_, err := svc.StaffLogin(context.Background(), models.StaffLoginRequest{
		Email:    "alef.counselor@camp.example",
		Password: "correct-horse",
	})
	var appErr *apperrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperrors.ErrForbidden.Code, appErr.Code)
}

func TestCamperLoginByCode(t *testing.T) {
	svc, _ := newTestAuthService(t)

	result, err := svc.CamperLogin(context.Background(), models.CamperLoginRequest{Code: "XK7P2N"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleCamper, result.Identity.Role)
	assert.Equal(t, "yoni_cotlar", result.Identity.ID)
	assert.Equal(t, "Bunk Alef", result.Identity.BunkName)

	claims, err := svc.ValidateToken(result.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, models.RoleCamper, claims.Role)
	assert.Equal(t, "bunk-alef", claims.BunkID)
}

func TestCamperLoginUnknownCode(t *testing.T) {
	svc, _ := newTestAuthService(t)

	_, err := svc.CamperLogin(context.Background(), models.CamperLoginRequest{Code: "ZZZZZZ"})
	var appErr *apperrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperrors.ErrUnknownCode.Code, appErr.Code)
}

func TestValidateTokenRejectsTampering(t *testing.T) {
	svc, _ := newTestAuthService(t)

	result, err := svc.CamperLogin(context.Background(), models.CamperLoginRequest{Code: "XK7P2N"})
	require.NoError(t, err)

	_, err = svc.ValidateToken(result.AccessToken + "x")
	assert.Error(t, err)

	other := NewAuthService(nil, nil, nil, nil, config.JWTConfig{Secret: "different", Expiration: time.Hour}, nil)
	_, err = other.ValidateToken(result.AccessToken)
	assert.Error(t, err)
}
