package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/mendten/camp-mitzvah-tracker-sub001/internal/models"
	"github.com/mendten/camp-mitzvah-tracker-sub001/pkg/config"
	apperrors "github.com/mendten/camp-mitzvah-tracker-sub001/pkg/errors"
)

type userStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id string, ts time.Time) error
}

type camperCodeResolver interface {
	FindCamperByCode(ctx context.Context, code string) (*models.CamperWithBunk, error)
}

type authMetrics interface {
	LoginRecorded(role string)
}

// AuthService issues and validates access tokens. Staff and admins sign in
// with email and password; campers with a short access code.
type AuthService struct {
	users    userStore
	campers  camperCodeResolver
	audit    auditRecorder
	metrics  authMetrics
	cfg      config.JWTConfig
	validate *validator.Validate
	logger   *zap.Logger
}

// NewAuthService constructs the service.
func NewAuthService(users userStore, campers camperCodeResolver, audit auditRecorder, metrics authMetrics, cfg config.JWTConfig, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		users:    users,
		campers:  campers,
		audit:    audit,
		metrics:  metrics,
		cfg:      cfg,
		validate: validator.New(),
		logger:   logger,
	}
}

// StaffLogin authenticates a staff or admin account.
func (s *AuthService) StaffLogin(ctx context.Context, req models.StaffLoginRequest) (*models.LoginResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrValidation.Code, apperrors.ErrValidation.Status, "invalid login request")
	}
	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, apperrors.FromError(err)
	}
	if !user.Active {
		return nil, apperrors.Clone(apperrors.ErrForbidden, "account is disabled")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, apperrors.ErrInvalidCredentials
	}

	now := time.Now().UTC()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		s.logger.Sugar().Warnw("last login update failed", "user_id", user.ID, "error", err)
	}

	identity := models.IdentityInfo{ID: user.ID, Name: user.FullName, Role: user.Role}
	bunkID := ""
	if user.BunkID != nil {
		bunkID = *user.BunkID
		identity.BunkID = bunkID
	}
	token, err := s.issueToken(user.ID, user.FullName, user.Role, bunkID, now)
	if err != nil {
		return nil, err
	}
	s.recordLogin(ctx, user.ID, string(user.Role), req.IP, req.UserAgent)
	return &models.LoginResponse{
		AccessToken: token,
		ExpiresIn:   int64(s.cfg.Expiration.Seconds()),
		IssuedAt:    now,
		Identity:    identity,
	}, nil
}

// CamperLogin authenticates a camper by access code. Codes are compared
// verbatim; an unknown code gets a distinct error so the client can show
// a friendlier message than a failed password.
func (s *AuthService) CamperLogin(ctx context.Context, req models.CamperLoginRequest) (*models.LoginResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrValidation.Code, apperrors.ErrValidation.Status, "invalid login request")
	}
	camper, err := s.campers.FindCamperByCode(ctx, req.Code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.ErrUnknownCode
		}
		return nil, apperrors.FromError(err)
	}

	now := time.Now().UTC()
	token, err := s.issueToken(camper.ID, camper.Name, models.RoleCamper, camper.BunkID, now)
	if err != nil {
		return nil, err
	}
	s.recordLogin(ctx, camper.ID, string(models.RoleCamper), req.IP, req.UserAgent)
	return &models.LoginResponse{
		AccessToken: token,
		ExpiresIn:   int64(s.cfg.Expiration.Seconds()),
		IssuedAt:    now,
		Identity: models.IdentityInfo{
			ID:       camper.ID,
			Name:     camper.Name,
			Role:     models.RoleCamper,
			BunkID:   camper.BunkID,
			BunkName: camper.BunkName,
		},
	}, nil
}

// ValidateToken parses and verifies an access token.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	claims := &models.JWTClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(s.cfg.Secret), nil
	})
	if err != nil || !token.Valid {
		return nil, apperrors.ErrUnauthorized
	}
	return claims, nil
}

func (s *AuthService) issueToken(subject, name string, role models.UserRole, bunkID string, now time.Time) (string, error) {
	claims := models.JWTClaims{
		UserID: subject,
		Role:   role,
		Name:   name,
		BunkID: bunkID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    s.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.Expiration)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "sign token")
	}
	return signed, nil
}

func (s *AuthService) recordLogin(ctx context.Context, subjectID, role, ip, userAgent string) {
	if s.metrics != nil {
		s.metrics.LoginRecorded(role)
	}
	if s.audit == nil {
		return
	}
	log := &models.AuditLog{
		Action:    models.AuditActionLogin,
		Resource:  "auth",
		IPAddress: ip,
		UserAgent: userAgent,
	}
	log.UserID = &subjectID
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Sugar().Warnw("audit write failed", "action", log.Action, "error", err)
	}
}
