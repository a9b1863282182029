package auth

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/catchyfabric/market-backend/internal/auditlog"
	"github.com/catchyfabric/market-backend/internal/users"
	pkgAuth "github.com/catchyfabric/market-backend/pkg/auth"
	"github.com/catchyfabric/market-backend/pkg/db/models"
	"github.com/catchyfabric/market-backend/pkg/enums"
	pkgerrors "github.com/catchyfabric/market-backend/pkg/errors"
	"github.com/catchyfabric/market-backend/pkg/outbox"
	"github.com/catchyfabric/market-backend/pkg/outbox/payloads"
	"github.com/catchyfabric/market-backend/pkg/security"
)

// CreateUserAsAdmin provisions an account with an explicit role. A temporary
// password is generated and returned once when none is supplied.
func (s *service) CreateUserAsAdmin(ctx context.Context, actor pkgAuth.Actor, req AdminCreateUserRequest) (*AdminCreateUserResponse, error) {
	resp, err := s.createUserAsAdmin(ctx, actor, req)
	metadata := map[string]any{"email": normalizeEmail(req.Email), "role": string(req.Role)}
	if resp != nil {
		metadata["created_user_id"] = resp.User.ID.String()
	}
	s.audit.Record(ctx, auditlog.Outcome(actor.ID, enums.AuditActionAdminCreateUser, err, metadata))
	return resp, err
}

func (s *service) createUserAsAdmin(ctx context.Context, actor pkgAuth.Actor, req AdminCreateUserRequest) (*AdminCreateUserResponse, error) {
	if actor.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if !actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	email := normalizeEmail(req.Email)
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	role, err := enums.ParseRole(string(req.Role))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid role")
	}

	var generated string
	password := ""
	if req.Password != nil {
		password = *req.Password
	}
	if strings.TrimSpace(password) == "" {
		if generated, err = security.GenerateTempPassword(tempPasswordLength); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate password")
		}
		password = generated
	} else if err := security.CheckPasswordPolicy(password); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}

	passwordHash, err := security.HashPassword(password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	var created *models.User
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		user, err := s.createUser(ctx, tx, users.CreateUserDTO{
			Name:         name,
			Email:        email,
			PasswordHash: passwordHash,
			Role:         role,
			Phone:        req.Phone,
			Locale:       normalizeLocale(req.Locale),
		})
		if err != nil {
			return err
		}

		adminID := actor.ID
		event := outbox.DomainEvent{
			EventType:     enums.EventUserCreatedByAdmin,
			AggregateType: enums.AggregateUser,
			AggregateID:   user.ID,
			Actor:         &outbox.ActorRef{UserID: &adminID, Role: string(actor.Role)},
			Data: payloads.UserCreatedByAdminEvent{
				UserID:    user.ID,
				Email:     user.Email,
				Name:      user.Name,
				Role:      user.Role,
				CreatedBy: actor.ID,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit user created event")
		}
		created = user
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &AdminCreateUserResponse{User: users.FromModel(created), TemporaryPassword: generated}, nil
}
