package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/catchyfabric/market-backend/internal/auditlog"
	"github.com/catchyfabric/market-backend/pkg/auth"
	"github.com/catchyfabric/market-backend/pkg/enums"
	pkgerrors "github.com/catchyfabric/market-backend/pkg/errors"
)

// Service exposes profile reads and edits plus admin account control.
type Service struct {
	repo  *Repository
	audit auditlog.Writer
}

func NewService(repo *Repository, audit auditlog.Writer) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if audit == nil {
		audit = auditlog.Nop{}
	}
	return &Service{repo: repo, audit: audit}, nil
}

// GetProfile returns the actor's own user record.
func (s *Service) GetProfile(ctx context.Context, actor auth.Actor) (*UserDTO, error) {
	if actor.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	user, err := s.repo.FindByID(ctx, actor.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	return FromModel(user), nil
}

// UpdateProfile edits name, avatar, phone, and locale on the actor's own record.
func (s *Service) UpdateProfile(ctx context.Context, actor auth.Actor, input UpdateProfileInput) (*UserDTO, error) {
	updated, err := s.updateProfile(ctx, actor, input)
	s.audit.Record(ctx, auditlog.Outcome(actor.ID, enums.AuditActionProfileUpdate, err, nil))
	return updated, err
}

func (s *Service) updateProfile(ctx context.Context, actor auth.Actor, input UpdateProfileInput) (*UserDTO, error) {
	if actor.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	updates, err := profileUpdates(input)
	if err != nil {
		return nil, err
	}
	if len(updates) > 0 {
		found, err := s.repo.UpdateProfile(ctx, actor.ID, updates)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update profile")
		}
		if !found {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
	}
	return s.GetProfile(ctx, actor)
}

func profileUpdates(input UpdateProfileInput) (map[string]any, error) {
	updates := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
		}
		updates["name"] = name
	}
	if input.AvatarURL != nil {
		updates["avatar_url"] = nullable(*input.AvatarURL)
	}
	if input.Phone != nil {
		updates["phone"] = nullable(*input.Phone)
	}
	if input.Locale != nil {
		locale := strings.ToLower(strings.TrimSpace(*input.Locale))
		if locale != LocaleEnglish && locale != LocaleArabic {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "locale must be en or ar")
		}
		updates["locale"] = locale
	}
	return updates, nil
}

// nullable clears the column when the trimmed value is empty.
func nullable(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// Deactivate disables a user account. Users are never hard-deleted.
func (s *Service) Deactivate(ctx context.Context, actor auth.Actor, userID uuid.UUID) error {
	err := s.deactivate(ctx, actor, userID)
	s.audit.Record(ctx, auditlog.Outcome(actor.ID, enums.AuditActionAdminDeactivate, err, map[string]any{"target_user_id": userID.String()}))
	return err
}

func (s *Service) deactivate(ctx context.Context, actor auth.Actor, userID uuid.UUID) error {
	if actor.IsZero() {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if !actor.IsAdmin() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if userID == actor.ID {
		return pkgerrors.New(pkgerrors.CodeValidation, "admins cannot deactivate themselves")
	}
	found, err := s.repo.SetActive(ctx, userID, false)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deactivate user")
	}
	if !found {
		return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	return nil
}
