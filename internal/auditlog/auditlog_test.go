package auditlog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catchyfabric/market-backend/pkg/auth"
	"github.com/catchyfabric/market-backend/pkg/db/dbtest"
	"github.com/catchyfabric/market-backend/pkg/db/models"
	"github.com/catchyfabric/market-backend/pkg/enums"
	pkgerrors "github.com/catchyfabric/market-backend/pkg/errors"
	"github.com/catchyfabric/market-backend/pkg/logger"
	"github.com/catchyfabric/market-backend/pkg/pagination"
)

func TestRecorderWritesRequestInfoAndFailure(t *testing.T) {
	conn := dbtest.Open(t)
	recorder := NewRecorder(NewRepository(conn), logger.Nop())
	userID := uuid.New()

	ctx := WithRequestInfo(context.Background(), RequestInfo{UserAgent: "curl/8.0", IPAddress: "10.0.0.7"})
	recorder.Record(ctx, Failure(userID, enums.AuditActionLogin, errors.New("invalid credentials"), map[string]any{"email": "a@b.c"}))

	var row models.AuditLog
	require.NoError(t, conn.First(&row).Error)
	assert.Equal(t, enums.AuditActionLogin, row.ActionType)
	assert.Equal(t, enums.AuditStatusFailure, row.Status)
	require.NotNil(t, row.UserID)
	assert.Equal(t, userID, *row.UserID)
	require.NotNil(t, row.DeviceInfo)
	assert.Equal(t, "curl/8.0", *row.DeviceInfo)
	require.NotNil(t, row.IPAddress)
	assert.Equal(t, "10.0.0.7", *row.IPAddress)
	require.NotNil(t, row.ErrorMessage)
	assert.Equal(t, "invalid credentials", *row.ErrorMessage)
	assert.JSONEq(t, `{"email":"a@b.c"}`, string(row.Metadata))
}

func TestRecorderSwallowsWriteErrors(t *testing.T) {
	conn := dbtest.Open(t)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	recorder := NewRecorder(NewRepository(conn), logger.Nop())
	assert.NotPanics(t, func() {
		recorder.Record(context.Background(), Success(uuid.New(), enums.AuditActionLogout, nil))
	})

	var nilRecorder *Recorder
	assert.NotPanics(t, func() {
		nilRecorder.Record(context.Background(), Success(uuid.Nil, enums.AuditActionLogout, nil))
	})
}

func TestListForUserAuthorizationAndOrdering(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	svc, err := NewService(repo)
	require.NoError(t, err)

	owner := uuid.New()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		row := models.AuditLog{
			UserID:     &owner,
			ActionType: enums.AuditActionLogin,
			Status:     enums.AuditStatusSuccess,
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, repo.Create(context.Background(), &row))
	}
	other := uuid.New()
	require.NoError(t, repo.Create(context.Background(), &models.AuditLog{UserID: &other, ActionType: enums.AuditActionLogin, Status: enums.AuditStatusSuccess}))

	ctx := context.Background()

	_, err = svc.ListForUser(ctx, auth.Actor{}, owner, pagination.Params{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))

	_, err = svc.ListForUser(ctx, auth.Actor{ID: other, Role: enums.RoleBuyer}, owner, pagination.Params{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	admin := auth.Actor{ID: uuid.New(), Role: enums.RoleAdmin}
	page, err := svc.ListForUser(ctx, admin, owner, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.True(t, page.Items[0].CreatedAt.After(page.Items[1].CreatedAt))
	require.NotEmpty(t, page.NextCursor)

	next, err := svc.ListForUser(ctx, auth.Actor{ID: owner, Role: enums.RoleBuyer}, owner, pagination.Params{Limit: 2, Cursor: page.NextCursor})
	require.NoError(t, err)
	require.Len(t, next.Items, 1)
	assert.Empty(t, next.NextCursor)
	assert.Equal(t, base, next.Items[0].CreatedAt.UTC())

	_, err = svc.ListForUser(ctx, admin, owner, pagination.Params{Cursor: "%%%"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
