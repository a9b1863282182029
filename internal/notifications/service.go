package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/catchyfabric/market-backend/pkg/auth"
	"github.com/catchyfabric/market-backend/pkg/db/models"
	pkgerrors "github.com/catchyfabric/market-backend/pkg/errors"
	"github.com/catchyfabric/market-backend/pkg/pagination"
)

// Service defines notification list/read/dismiss operations scoped to the actor.
type Service interface {
	List(ctx context.Context, actor auth.Actor, params ListParams) (pagination.Page[models.Notification], error)
	MarkRead(ctx context.Context, actor auth.Actor, notificationID uuid.UUID) error
	MarkAllRead(ctx context.Context, actor auth.Actor) (int64, error)
	Delete(ctx context.Context, actor auth.Actor, notificationID uuid.UUID) error
}

type service struct {
	repo Repository
	now  func() time.Time
}

// ListParams configures pagination for notifications.
type ListParams struct {
	Limit      int
	Cursor     string
	UnreadOnly bool
}

// NewService wires notifications dependencies.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifications repository required")
	}
	return &service{repo: repo, now: func() time.Time { return time.Now().UTC() }}, nil
}

func requireActor(actor auth.Actor) error {
	if actor.IsZero() {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	return nil
}

func (s *service) List(ctx context.Context, actor auth.Actor, params ListParams) (pagination.Page[models.Notification], error) {
	if err := requireActor(actor); err != nil {
		return pagination.Page[models.Notification]{}, err
	}

	query := listNotificationsParams{
		UserID:     actor.ID,
		Limit:      params.Limit,
		UnreadOnly: params.UnreadOnly,
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return pagination.Page[models.Notification]{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	query.Cursor = cursor

	page, err := s.repo.List(ctx, query)
	if err != nil {
		return pagination.Page[models.Notification]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list notifications")
	}
	return page, nil
}

func (s *service) MarkRead(ctx context.Context, actor auth.Actor, notificationID uuid.UUID) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	if notificationID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification id required")
	}

	found, err := s.repo.MarkRead(ctx, actor.ID, notificationID, s.now())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notification read")
	}
	if !found {
		return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
	}
	return nil
}

func (s *service) MarkAllRead(ctx context.Context, actor auth.Actor) (int64, error) {
	if err := requireActor(actor); err != nil {
		return 0, err
	}

	count, err := s.repo.MarkAllRead(ctx, actor.ID, s.now())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notifications read")
	}
	return count, nil
}

func (s *service) Delete(ctx context.Context, actor auth.Actor, notificationID uuid.UUID) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	if notificationID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification id required")
	}
	found, err := s.repo.Delete(ctx, actor.ID, notificationID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete notification")
	}
	if !found {
		return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
	}
	return nil
}
