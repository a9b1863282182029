package stats

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/catchyfabric/market-backend/pkg/auth"
	"github.com/catchyfabric/market-backend/pkg/enums"
	pkgerrors "github.com/catchyfabric/market-backend/pkg/errors"
)

func newMockService(t *testing.T) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	conn, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	svc, err := NewService(NewRepository(conn), "EGP")
	require.NoError(t, err)
	return svc, mock
}

var admin = auth.Actor{ID: uuid.New(), Role: enums.RoleAdmin}

func TestGetSystemStatsAggregates(t *testing.T) {
	svc, mock := newMockService(t)

	mock.ExpectQuery(regexp.QuoteMeta(usersByRoleQuery)).
		WillReturnRows(sqlmock.NewRows([]string{"role", "count"}).
			AddRow("buyer", 7).
			AddRow("seller", 3))
	mock.ExpectQuery(regexp.QuoteMeta(ordersByStatusQuery)).
		WillReturnRows(sqlmock.NewRows([]string{"status", "count"}).
			AddRow("approved", 2).
			AddRow("paid_in_full", 4).
			AddRow("cancelled", 1))
	mock.ExpectQuery(regexp.QuoteMeta(balancesQuery)).
		WillReturnRows(sqlmock.NewRows([]string{"paid_cents", "outstanding_cents"}).AddRow(52500, 17500))
	mock.ExpectQuery(regexp.QuoteMeta(transactionsQuery)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(9))
	mock.ExpectQuery(regexp.QuoteMeta(deadLetteredQuery)).
		WillReturnRows(sqlmock.NewRows([]string{"error_reason", "count"}).AddRow("max_attempts", 2))

	stats, err := svc.GetSystemStats(context.Background(), admin)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	assert.Equal(t, int64(10), stats.TotalUsers)
	assert.Equal(t, int64(7), stats.UsersByRole[enums.RoleBuyer])
	assert.Equal(t, int64(0), stats.UsersByRole[enums.RoleShipping])
	assert.Contains(t, stats.UsersByRole, enums.RoleAdmin)
	assert.Equal(t, int64(7), stats.TotalOrders)
	assert.Equal(t, int64(4), stats.OrdersByStatus[enums.OrderStatusPaidInFull])
	assert.Equal(t, int64(52500), stats.TotalPaidCents)
	assert.Equal(t, int64(17500), stats.TotalOutstandingCents)
	assert.Equal(t, int64(9), stats.TransactionCount)
	assert.Equal(t, "EGP", stats.Currency)
	assert.Equal(t, map[string]int64{"max_attempts": 2}, stats.DeadLetteredEvents)
}

func TestGetSystemStatsAdminOnly(t *testing.T) {
	svc, mock := newMockService(t)

	_, err := svc.GetSystemStats(context.Background(), auth.Actor{ID: uuid.New(), Role: enums.RoleSeller})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	_, err = svc.GetSystemStats(context.Background(), auth.Actor{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetSystemStatsQueryFailure(t *testing.T) {
	svc, mock := newMockService(t)
	mock.ExpectQuery(regexp.QuoteMeta(usersByRoleQuery)).WillReturnError(errors.New("connection reset"))

	_, err := svc.GetSystemStats(context.Background(), admin)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
	assert.NoError(t, mock.ExpectationsWereMet())
}
