package service

import (
	"context"
	"database/sql"
	"encoding/base64"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/campus-clearance-api/internal/models"
	"github.com/noah-isme/campus-clearance-api/pkg/config"
	appErrors "github.com/noah-isme/campus-clearance-api/pkg/errors"
)

type userStore interface {
	Create(ctx context.Context, user *models.User) error
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id string, ts time.Time) error
}

type identityGate interface {
	Classify(ctx context.Context, selfie, document []byte) GateOutcome
}

// AuthService handles signup, credential checks, and token issuance. New
// accounts pass through the identity verification gate before they can log in.
type AuthService struct {
	repo     userStore
	gate     identityGate
	audit    auditLogger
	validate *validator.Validate
	jwtCfg   config.JWTConfig
	logger   *zap.Logger
}

// NewAuthService constructs the service.
func NewAuthService(repo userStore, gate identityGate, audit auditLogger, validate *validator.Validate, jwtCfg config.JWTConfig, logger *zap.Logger) *AuthService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{repo: repo, gate: gate, audit: audit, validate: validate, jwtCfg: jwtCfg, logger: logger}
}

// Signup registers a student account and runs the verification gate. The
// account starts disabled unless the gate auto-approves it.
func (s *AuthService) Signup(ctx context.Context, req models.SignupRequest) (*models.SignupResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid signup payload")
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "an account with this email already exists")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing account")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	outcome := s.gate.Classify(ctx, decodeImage(req.SelfieImage), decodeImage(req.DocumentImage))

	user := &models.User{
		Email:              email,
		PasswordHash:       string(hash),
		FullName:           strings.TrimSpace(req.FullName),
		Role:               models.RoleStudent,
		AccountEnabled:     outcome.AccountEnabled,
		VerificationStatus: outcome.Status,
		FaceVerified:       outcome.FaceVerified,
		FaceSimilarity:     outcome.Similarity,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create account")
	}

	s.emitAuthAudit(ctx, user.ID, models.AuditActionSignup, true, req.IP, req.UserAgent, nil)
	s.emitAuthAudit(ctx, user.ID, models.AuditActionGateEvaluate, true, req.IP, req.UserAgent, map[string]interface{}{
		"status":     outcome.Status,
		"similarity": outcome.Similarity,
	})

	return &models.SignupResponse{
		User:               toUserInfo(user),
		VerificationStatus: user.VerificationStatus,
		AccountEnabled:     user.AccountEnabled,
	}, nil
}

// Login verifies credentials and issues tokens. Disabled accounts (pending
// review or rejected) cannot authenticate even with correct credentials.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrInvalidCredentials
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load account")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		s.emitAuthAudit(ctx, user.ID, models.AuditActionLogin, false, req.IP, req.UserAgent, nil)
		return nil, appErrors.ErrInvalidCredentials
	}
	if !user.AccountEnabled {
		s.emitAuthAudit(ctx, user.ID, models.AuditActionLogin, false, req.IP, req.UserAgent, map[string]interface{}{
			"verification_status": user.VerificationStatus,
		})
		return nil, appErrors.Clone(appErrors.ErrInactiveAccount, "account is not enabled; identity verification is pending or was rejected")
	}

	now := time.Now().UTC()
	accessToken, err := s.signToken(user, now, s.jwtCfg.Expiration)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to issue access token")
	}
	refreshToken, err := s.signToken(user, now, s.jwtCfg.RefreshExpiration)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to issue refresh token")
	}

	if err := s.repo.UpdateLastLogin(ctx, user.ID, now); err != nil {
		s.logger.Warn("failed to update last login", zap.String("user_id", user.ID), zap.Error(err))
	}
	s.emitAuthAudit(ctx, user.ID, models.AuditActionLogin, true, req.IP, req.UserAgent, nil)

	return &models.LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.jwtCfg.Expiration.Seconds()),
		User:         toUserInfo(user),
		IssuedAt:     now,
	}, nil
}

// ValidateToken parses and verifies an access token.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	claims := &models.JWTClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(s.jwtCfg.Secret), nil
	})
	if err != nil || !token.Valid {
		return nil, appErrors.ErrUnauthorized
	}
	return claims, nil
}

func (s *AuthService) signToken(user *models.User, issuedAt time.Time, ttl time.Duration) (string, error) {
	claims := models.JWTClaims{
		UserID:   user.ID,
		Role:     user.Role,
		Email:    user.Email,
		FullName: user.FullName,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtCfg.Secret))
}

func (s *AuthService) emitAuthAudit(ctx context.Context, userID, action string, success bool, ip, userAgent string, metadata map[string]interface{}) {
	if s.audit == nil {
		return
	}
	if ip == "" {
		ip = "unknown"
	}
	if userAgent == "" {
		userAgent = "unknown"
	}
	log := &models.AuditLog{
		UserID:    &userID,
		Action:    action,
		Resource:  "user",
		Success:   success,
		Metadata:  auditMetadata(metadata),
		IPAddress: ip,
		UserAgent: userAgent,
	}
	log.ResourceID = &userID
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to persist audit log", zap.Error(err))
	}
}

func toUserInfo(user *models.User) models.UserInfo {
	return models.UserInfo{
		ID:       user.ID,
		Email:    user.Email,
		FullName: user.FullName,
		Role:     user.Role,
	}
}

func decodeImage(raw string) []byte {
	if raw == "" {
		return nil
	}
	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil
	}
	return data
}
