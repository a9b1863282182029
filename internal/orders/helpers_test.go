package orders

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/catchyfabric/market-backend/internal/auditlog"
	"github.com/catchyfabric/market-backend/pkg/auth"
	"github.com/catchyfabric/market-backend/pkg/db"
	"github.com/catchyfabric/market-backend/pkg/db/dbtest"
	"github.com/catchyfabric/market-backend/pkg/db/models"
	"github.com/catchyfabric/market-backend/pkg/enums"
	"github.com/catchyfabric/market-backend/pkg/logger"
	"github.com/catchyfabric/market-backend/pkg/outbox"
)

type fakeUsers struct {
	byID map[uuid.UUID]*models.User
}

func (f *fakeUsers) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	if u, ok := f.byID[id]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUsers) add(role enums.Role, active bool) *models.User {
	u := &models.User{ID: uuid.New(), Name: string(role) + " user", Email: uuid.NewString() + "@example.com", Role: role, IsActive: active}
	f.byID[u.ID] = u
	return u
}

type recordingAudit struct {
	actions []enums.AuditAction
	failed  []bool
}

func (r *recordingAudit) Record(_ context.Context, entry auditlog.Entry) {
	r.actions = append(r.actions, entry.Action)
	r.failed = append(r.failed, entry.Err != nil)
}

type fixture struct {
	conn  *gorm.DB
	repo  Repository
	svc   Service
	users *fakeUsers
	audit *recordingAudit
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	client := dbtest.Client(t)
	return newFixtureWithRepo(t, client, NewRepository(client.DB()))
}

func newFixtureWithRepo(t *testing.T, client *db.Client, repo Repository) *fixture {
	t.Helper()
	users := &fakeUsers{byID: map[uuid.UUID]*models.User{}}
	audit := &recordingAudit{}
	emitter := outbox.NewService(outbox.NewRepository(client.DB()), logger.Nop())
	svc, err := NewService(repo, client, emitter, users, audit, logger.Nop())
	require.NoError(t, err)
	return &fixture{conn: client.DB(), repo: repo, svc: svc, users: users, audit: audit}
}

func actorOf(u *models.User) auth.Actor {
	return auth.Actor{ID: u.ID, Role: u.Role}
}

func (f *fixture) seedOrder(t *testing.T, mutate func(*models.Order)) *models.Order {
	t.Helper()
	order := &models.Order{
		BuyerID:        uuid.New(),
		BuyerName:      "Buyer",
		BuyerEmail:     "buyer@example.com",
		SellerID:       uuid.New(),
		SellerName:     "Seller",
		TotalCents:     10000,
		RemainingCents: 10000,
		Currency:       Currency,
		DeliveryMethod: enums.DeliveryMethodPickup,
		Status:         enums.OrderStatusPendingApproval,
		Version:        1,
	}
	deposit := DepositCents(order.TotalCents)
	order.DepositCents = &deposit
	if mutate != nil {
		mutate(order)
	}
	require.NoError(t, f.repo.Create(context.Background(), order))
	return order
}

func (f *fixture) outboxEvents(t *testing.T, eventType enums.OutboxEventType) []outbox.PayloadEnvelope {
	t.Helper()
	var rows []models.OutboxEvent
	require.NoError(t, f.conn.Where("event_type = ?", eventType).Order("created_at ASC").Find(&rows).Error)
	out := make([]outbox.PayloadEnvelope, 0, len(rows))
	for _, row := range rows {
		env, err := outbox.DecodeEnvelope(row.Payload)
		require.NoError(t, err)
		out = append(out, env)
	}
	return out
}

func decodeData[T any](t *testing.T, env outbox.PayloadEnvelope) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

func (f *fixture) reload(t *testing.T, id uuid.UUID) *models.Order {
	t.Helper()
	order, err := f.repo.FindByID(context.Background(), id)
	require.NoError(t, err)
	return order
}
