package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/catchyfabric/market-backend/internal/auditlog"
	"github.com/catchyfabric/market-backend/internal/notifications"
	"github.com/catchyfabric/market-backend/internal/users"
	pkgAuth "github.com/catchyfabric/market-backend/pkg/auth"
	"github.com/catchyfabric/market-backend/pkg/auth/session"
	"github.com/catchyfabric/market-backend/pkg/config"
	"github.com/catchyfabric/market-backend/pkg/db/models"
	"github.com/catchyfabric/market-backend/pkg/enums"
	pkgerrors "github.com/catchyfabric/market-backend/pkg/errors"
	"github.com/catchyfabric/market-backend/pkg/outbox"
	"github.com/catchyfabric/market-backend/pkg/security"
)

const invalidCredentialsMessage = "invalid credentials"

const tempPasswordLength = 12

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type sessionManager interface {
	Start(ctx context.Context, userID uuid.UUID) (session.Issued, error)
	Rotate(ctx context.Context, oldAccessID string, userID uuid.UUID, provided string) (session.Issued, error)
	Revoke(ctx context.Context, accessID string) error
}

// Service covers registration, login, token rotation, and admin provisioning.
type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*SessionResponse, error)
	Login(ctx context.Context, req LoginRequest) (*SessionResponse, error)
	Refresh(ctx context.Context, accessToken string, req RefreshRequest) (*SessionResponse, error)
	Logout(ctx context.Context, actor pkgAuth.Actor, accessID string) error
	ChangePassword(ctx context.Context, actor pkgAuth.Actor, req ChangePasswordRequest) error
	CreateUserAsAdmin(ctx context.Context, actor pkgAuth.Actor, req AdminCreateUserRequest) (*AdminCreateUserResponse, error)
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	Users          *users.Repository
	Notifications  notifications.Repository
	Tx             txRunner
	Outbox         outboxPublisher
	SessionManager sessionManager
	Audit          auditlog.Writer
	JWTConfig      config.JWTConfig
	PasswordConfig config.PasswordConfig
}

type service struct {
	users       *users.Repository
	notes       notifications.Repository
	tx          txRunner
	outbox      outboxPublisher
	session     sessionManager
	audit       auditlog.Writer
	jwtCfg      config.JWTConfig
	passwordCfg config.PasswordConfig
	now         func() time.Time
}

// NewService constructs the auth service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Users == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if params.Notifications == nil {
		return nil, fmt.Errorf("notifications repository is required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner is required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher is required")
	}
	if params.SessionManager == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	audit := params.Audit
	if audit == nil {
		audit = auditlog.Nop{}
	}
	return &service{
		users:       params.Users,
		notes:       params.Notifications,
		tx:          params.Tx,
		outbox:      params.Outbox,
		session:     params.SessionManager,
		audit:       audit,
		jwtCfg:      params.JWTConfig,
		passwordCfg: params.PasswordConfig,
		now:         func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*SessionResponse, error) {
	user, err := s.authenticate(ctx, req.Email, req.Password)
	var userID uuid.UUID
	if user != nil {
		userID = user.ID
	}
	var resp *SessionResponse
	if err == nil {
		resp, err = s.startSession(ctx, user)
	}
	s.audit.Record(ctx, auditlog.Outcome(userID, enums.AuditActionLogin, err, map[string]any{"email": normalizeEmail(req.Email)}))
	return resp, err
}

func (s *service) authenticate(ctx context.Context, email, password string) (*models.User, error) {
	input := normalizeEmail(email)
	if input == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	user, err := s.users.FindByEmail(ctx, input)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}

	valid, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return user, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !valid {
		return user, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	if !user.IsActive {
		return user, pkgerrors.New(pkgerrors.CodeForbidden, "account is deactivated")
	}
	s.upgradeHash(ctx, user, password)
	return user, nil
}

// upgradeHash re-hashes with the configured cost when the stored hash is
// cheaper. Failures leave the old hash in place.
func (s *service) upgradeHash(ctx context.Context, user *models.User, password string) {
	if !security.NeedsRehash(user.PasswordHash, s.passwordCfg) {
		return
	}
	hash, err := security.HashPassword(password, s.passwordCfg)
	if err != nil {
		return
	}
	if s.users.UpdatePasswordHash(ctx, user.ID, hash) == nil {
		user.PasswordHash = hash
	}
}

// startSession records the login, opens a refresh session, and mints the access token.
func (s *service) startSession(ctx context.Context, user *models.User) (*SessionResponse, error) {
	now := s.now()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update last login")
	}
	user.LastLoginAt = &now

	issued, err := s.session.Start(ctx, user.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store refresh token")
	}
	accessToken, err := pkgAuth.MintAccessToken(s.jwtCfg, now, pkgAuth.AccessTokenPayload{
		UserID: user.ID,
		Role:   user.Role,
		JTI:    issued.AccessID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}
	return &SessionResponse{
		AccessToken:  accessToken,
		RefreshToken: issued.RefreshToken,
		User:         users.FromModel(user),
	}, nil
}

// Refresh accepts an expired access token with its refresh token and rotates both.
func (s *service) Refresh(ctx context.Context, accessToken string, req RefreshRequest) (*SessionResponse, error) {
	claims, err := pkgAuth.ParseAccessTokenAllowExpired(s.jwtCfg, accessToken)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	}
	if claims.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session id")
	}

	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid refresh token")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	if !user.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "account is deactivated")
	}

	issued, err := s.session.Rotate(ctx, claims.ID, user.ID, req.RefreshToken)
	if err != nil {
		if errors.Is(err, session.ErrInvalidRefreshToken) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid refresh token")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rotate session")
	}

	// The role is read from the user row so admin role changes apply on refresh.
	token, err := pkgAuth.MintAccessToken(s.jwtCfg, s.now(), pkgAuth.AccessTokenPayload{
		UserID: user.ID,
		Role:   user.Role,
		JTI:    issued.AccessID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}
	return &SessionResponse{AccessToken: token, RefreshToken: issued.RefreshToken}, nil
}

func (s *service) Logout(ctx context.Context, actor pkgAuth.Actor, accessID string) error {
	err := s.logout(ctx, actor, accessID)
	s.audit.Record(ctx, auditlog.Outcome(actor.ID, enums.AuditActionLogout, err, nil))
	return err
}

func (s *service) logout(ctx context.Context, actor pkgAuth.Actor, accessID string) error {
	if actor.IsZero() {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if strings.TrimSpace(accessID) == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session id")
	}
	if err := s.session.Revoke(ctx, accessID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke session")
	}
	return nil
}

func (s *service) ChangePassword(ctx context.Context, actor pkgAuth.Actor, req ChangePasswordRequest) error {
	err := s.changePassword(ctx, actor, req)
	s.audit.Record(ctx, auditlog.Outcome(actor.ID, enums.AuditActionPasswordChange, err, nil))
	return err
}

func (s *service) changePassword(ctx context.Context, actor pkgAuth.Actor, req ChangePasswordRequest) error {
	if actor.IsZero() {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if err := security.CheckPasswordPolicy(req.NewPassword); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}
	user, err := s.users.FindByID(ctx, actor.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeUnauthorized, "account not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	valid, err := security.VerifyPassword(req.CurrentPassword, user.PasswordHash)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !valid {
		return pkgerrors.New(pkgerrors.CodeValidation, "current password is incorrect")
	}
	hash, err := security.HashPassword(req.NewPassword, s.passwordCfg)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	if err := s.users.UpdatePasswordHash(ctx, user.ID, hash); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store password")
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func normalizeLocale(locale string) string {
	if strings.EqualFold(strings.TrimSpace(locale), users.LocaleArabic) {
		return users.LocaleArabic
	}
	return users.LocaleEnglish
}
