package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/catchyfabric/market-backend/internal/auditlog"
	"github.com/catchyfabric/market-backend/internal/notifications"
	"github.com/catchyfabric/market-backend/internal/users"
	"github.com/catchyfabric/market-backend/pkg/db"
	"github.com/catchyfabric/market-backend/pkg/db/models"
	"github.com/catchyfabric/market-backend/pkg/enums"
	pkgerrors "github.com/catchyfabric/market-backend/pkg/errors"
	"github.com/catchyfabric/market-backend/pkg/outbox"
	"github.com/catchyfabric/market-backend/pkg/outbox/payloads"
	"github.com/catchyfabric/market-backend/pkg/security"
)

// Register creates a buyer account, writes the welcome notification, and opens a session.
func (s *service) Register(ctx context.Context, req RegisterRequest) (*SessionResponse, error) {
	user, err := s.register(ctx, req)
	var resp *SessionResponse
	if err == nil {
		resp, err = s.startSession(ctx, user)
	}
	if user != nil {
		s.audit.Record(ctx, auditlog.Outcome(user.ID, enums.AuditActionRegister, err, map[string]any{"role": string(user.Role)}))
	} else {
		s.audit.Record(ctx, auditlog.Failure(uuid.Nil, enums.AuditActionRegister, err, map[string]any{"email": normalizeEmail(req.Email)}))
	}
	return resp, err
}

func (s *service) register(ctx context.Context, req RegisterRequest) (*models.User, error) {
	email := normalizeEmail(req.Email)
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if err := security.CheckPasswordPolicy(req.Password); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}

	passwordHash, err := security.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	var created *models.User
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		user, err := s.createUser(ctx, tx, users.CreateUserDTO{
			Name:         name,
			Email:        email,
			PasswordHash: passwordHash,
			Role:         enums.RoleBuyer,
			Phone:        req.Phone,
			Locale:       normalizeLocale(req.Locale),
		})
		if err != nil {
			return err
		}

		welcome := notifications.Welcome(user)
		if err := s.notes.WithTx(tx).Create(ctx, &welcome); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create welcome notification")
		}

		id := user.ID
		event := outbox.DomainEvent{
			EventType:     enums.EventUserRegistered,
			AggregateType: enums.AggregateUser,
			AggregateID:   user.ID,
			Actor:         &outbox.ActorRef{UserID: &id, Role: string(user.Role)},
			Data: payloads.UserRegisteredEvent{
				UserID: user.ID,
				Email:  user.Email,
				Name:   user.Name,
				Role:   user.Role,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit user registered event")
		}
		created = user
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// createUser inserts the user inside tx after an email uniqueness check. A
// concurrent sign-up that wins the race still surfaces as a conflict.
func (s *service) createUser(ctx context.Context, tx *gorm.DB, dto users.CreateUserDTO) (*models.User, error) {
	repo := s.users.WithTx(tx)
	if _, err := repo.FindByEmail(ctx, dto.Email); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check user email")
	}
	user, err := repo.Create(ctx, dto)
	switch {
	case db.IsUniqueViolation(err, ""):
		return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "email already registered")
	case err != nil:
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create user")
	}
	return user, nil
}
