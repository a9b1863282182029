package auditlog

import (
	"context"

	"github.com/google/uuid"

	"github.com/catchyfabric/market-backend/pkg/auth"
	"github.com/catchyfabric/market-backend/pkg/db/models"
	pkgerrors "github.com/catchyfabric/market-backend/pkg/errors"
	"github.com/catchyfabric/market-backend/pkg/pagination"
)

// Service exposes audit history reads.
type Service struct {
	repo *Repository
}

func NewService(repo *Repository) (*Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "audit log repository required")
	}
	return &Service{repo: repo}, nil
}

// ListForUser returns the user's audit entries, newest first. Admins may read
// any user's history; everyone else only their own.
func (s *Service) ListForUser(ctx context.Context, actor auth.Actor, userID uuid.UUID, params pagination.Params) (pagination.Page[models.AuditLog], error) {
	if actor.IsZero() {
		return pagination.Page[models.AuditLog]{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if userID == uuid.Nil {
		return pagination.Page[models.AuditLog]{}, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if !actor.IsAdmin() && actor.ID != userID {
		return pagination.Page[models.AuditLog]{}, pkgerrors.New(pkgerrors.CodeForbidden, "cannot read another user's logs")
	}

	if _, err := pagination.ParseCursor(params.Cursor); err != nil {
		return pagination.Page[models.AuditLog]{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	page, err := s.repo.ListForUser(ctx, userID, params)
	if err != nil {
		return pagination.Page[models.AuditLog]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list audit logs")
	}
	return page, nil
}
