package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/catchyfabric/market-backend/pkg/auth"
	"github.com/catchyfabric/market-backend/pkg/db/dbtest"
	"github.com/catchyfabric/market-backend/pkg/db/models"
	"github.com/catchyfabric/market-backend/pkg/enums"
	pkgerrors "github.com/catchyfabric/market-backend/pkg/errors"
	"github.com/catchyfabric/market-backend/pkg/outbox/payloads"
	"github.com/catchyfabric/market-backend/pkg/pagination"
)

func strPtr(v string) *string { return &v }

func TestPlaceOrderSplitsCartPerSeller(t *testing.T) {
	f := newFixture(t)
	buyer := f.users.add(enums.RoleBuyer, true)
	s1, s2 := f.users.add(enums.RoleSeller, true).ID, f.users.add(enums.RoleSeller, true).ID

	created, err := f.svc.PlaceOrder(context.Background(), PlaceOrderInput{
		Actor:          actorOf(buyer),
		DeliveryMethod: enums.DeliveryMethodPickup,
		Items: []CartItem{
			{ProductID: "p1", Name: "Cotton", UnitPriceCents: 1000, Quantity: 1, SellerID: s1, SellerName: "S1"},
			{ProductID: "p2", Name: "Silk", UnitPriceCents: 500, Quantity: 1, SellerID: s2, SellerName: "S2"},
			{ProductID: "p3", Name: "Linen", UnitPriceCents: 1000, Quantity: 1, SellerID: s1, SellerName: "S1"},
		},
	})
	require.NoError(t, err)
	require.Len(t, created, 2)

	first, second := created[0], created[1]
	assert.Equal(t, s1, first.SellerID)
	assert.Equal(t, int64(2000), first.TotalCents)
	require.NotNil(t, first.DepositCents)
	assert.Equal(t, int64(500), *first.DepositCents)
	assert.Len(t, first.Items, 2)

	assert.Equal(t, s2, second.SellerID)
	assert.Equal(t, int64(500), second.TotalCents)
	require.NotNil(t, second.DepositCents)
	assert.Equal(t, int64(125), *second.DepositCents)

	for _, order := range created {
		stored := f.reload(t, order.ID)
		assert.Equal(t, enums.OrderStatusPendingApproval, stored.Status)
		assert.Equal(t, 1, stored.Version)
		assert.Equal(t, int64(0), stored.PaidCents)
		assert.Equal(t, stored.TotalCents, stored.PaidCents+stored.RemainingCents)
		assert.Equal(t, buyer.Name, stored.BuyerName)
		assert.Equal(t, buyer.Email, stored.BuyerEmail)
		assert.Nil(t, stored.ShippingFeeCents)
	}

	events := f.outboxEvents(t, enums.EventOrderCreated)
	require.Len(t, events, 2)
	byOrder := map[uuid.UUID]payloads.OrderCreatedEvent{}
	for _, env := range events {
		payload := decodeData[payloads.OrderCreatedEvent](t, env)
		byOrder[payload.OrderID] = payload
	}
	require.Contains(t, byOrder, first.ID)
	assert.Equal(t, 2, byOrder[first.ID].ItemCount)
	assert.Equal(t, int64(500), byOrder[first.ID].DepositCents)
	assert.Equal(t, s2, byOrder[second.ID].SellerID)
	require.NotNil(t, events[0].Actor)
	assert.Equal(t, string(enums.RoleBuyer), events[0].Actor.Role)

	assert.Equal(t, []enums.AuditAction{enums.AuditActionOrderPlace}, f.audit.actions)
	assert.Equal(t, []bool{false}, f.audit.failed)
}

func TestPlaceOrderShippingAddsFeeWithoutDeposit(t *testing.T) {
	f := newFixture(t)
	buyer := f.users.add(enums.RoleBuyer, true)

	created, err := f.svc.PlaceOrder(context.Background(), PlaceOrderInput{
		Actor:           actorOf(buyer),
		DeliveryMethod:  enums.DeliveryMethodShipping,
		ShippingAddress: strPtr("  12 Tahrir St, Cairo "),
		Items: []CartItem{
			{ProductID: "p1", Name: "Wool", UnitPriceCents: 4500, Quantity: 2, SellerID: f.users.add(enums.RoleSeller, true).ID, SellerName: "S"},
		},
	})
	require.NoError(t, err)
	require.Len(t, created, 1)

	order := f.reload(t, created[0].ID)
	assert.Equal(t, int64(9000)+ShippingFeeCents, order.TotalCents)
	require.NotNil(t, order.ShippingFeeCents)
	assert.Equal(t, ShippingFeeCents, *order.ShippingFeeCents)
	assert.Nil(t, order.DepositCents)
	require.NotNil(t, order.ShippingAddress)
	assert.Equal(t, "12 Tahrir St, Cairo", *order.ShippingAddress)
	require.Len(t, order.Items, 1)
	assert.Equal(t, int64(9000), order.Items[0].LineTotalCents)
}

func TestPlaceOrderValidation(t *testing.T) {
	f := newFixture(t)
	buyer := f.users.add(enums.RoleBuyer, true)
	seller := f.users.add(enums.RoleSeller, true)
	inactive := f.users.add(enums.RoleBuyer, false)
	closedShop := f.users.add(enums.RoleSeller, false)
	item := CartItem{ProductID: "p", Name: "n", UnitPriceCents: 100, Quantity: 1, SellerID: seller.ID, SellerName: "s"}
	offer := func(price int64, qty int, sellerID uuid.UUID) []CartItem {
		return []CartItem{{ProductID: "p", Name: "n", UnitPriceCents: price, Quantity: qty, SellerID: sellerID}}
	}

	cases := []struct {
		name  string
		input PlaceOrderInput
		code  pkgerrors.Code
	}{
		{name: "anonymous", input: PlaceOrderInput{DeliveryMethod: enums.DeliveryMethodPickup, Items: []CartItem{item}}, code: pkgerrors.CodeUnauthorized},
		{name: "seller", input: PlaceOrderInput{Actor: actorOf(seller), DeliveryMethod: enums.DeliveryMethodPickup, Items: []CartItem{item}}, code: pkgerrors.CodeForbidden},
		{name: "empty cart", input: PlaceOrderInput{Actor: actorOf(buyer), DeliveryMethod: enums.DeliveryMethodPickup}, code: pkgerrors.CodeValidation},
		{name: "bad method", input: PlaceOrderInput{Actor: actorOf(buyer), DeliveryMethod: "drone", Items: []CartItem{item}}, code: pkgerrors.CodeValidation},
		{name: "no address", input: PlaceOrderInput{Actor: actorOf(buyer), DeliveryMethod: enums.DeliveryMethodShipping, ShippingAddress: strPtr(" "), Items: []CartItem{item}}, code: pkgerrors.CodeValidation},
		{name: "zero qty", input: PlaceOrderInput{Actor: actorOf(buyer), DeliveryMethod: enums.DeliveryMethodPickup, Items: offer(100, 0, seller.ID)}, code: pkgerrors.CodeValidation},
		{name: "negative price", input: PlaceOrderInput{Actor: actorOf(buyer), DeliveryMethod: enums.DeliveryMethodPickup, Items: offer(-1, 1, seller.ID)}, code: pkgerrors.CodeValidation},
		{name: "free pickup", input: PlaceOrderInput{Actor: actorOf(buyer), DeliveryMethod: enums.DeliveryMethodPickup, Items: offer(0, 3, seller.ID)}, code: pkgerrors.CodeValidation},
		{name: "overflowing line", input: PlaceOrderInput{Actor: actorOf(buyer), DeliveryMethod: enums.DeliveryMethodPickup, Items: offer(4611686018427387929, 4, seller.ID)}, code: pkgerrors.CodeValidation},
		{name: "unknown seller", input: PlaceOrderInput{Actor: actorOf(buyer), DeliveryMethod: enums.DeliveryMethodPickup, Items: offer(100, 1, uuid.New())}, code: pkgerrors.CodeValidation},
		{name: "buyer as seller", input: PlaceOrderInput{Actor: actorOf(buyer), DeliveryMethod: enums.DeliveryMethodPickup, Items: offer(100, 1, buyer.ID)}, code: pkgerrors.CodeValidation},
		{name: "deactivated seller", input: PlaceOrderInput{Actor: actorOf(buyer), DeliveryMethod: enums.DeliveryMethodPickup, Items: offer(100, 1, closedShop.ID)}, code: pkgerrors.CodeValidation},
		{name: "deactivated buyer", input: PlaceOrderInput{Actor: actorOf(inactive), DeliveryMethod: enums.DeliveryMethodPickup, Items: []CartItem{item}}, code: pkgerrors.CodeForbidden},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			created, err := f.svc.PlaceOrder(context.Background(), tc.input)
			require.Error(t, err)
			assert.Nil(t, created)
			assert.Equal(t, tc.code, pkgerrors.CodeOf(err))
		})
	}

	var count int64
	require.NoError(t, f.conn.Model(&models.Order{}).Count(&count).Error)
	assert.Zero(t, count)
	assert.Empty(t, f.outboxEvents(t, enums.EventOrderCreated))
}

func TestUpdateStatusSellerApprovesOwnOrder(t *testing.T) {
	f := newFixture(t)
	seller := f.users.add(enums.RoleSeller, true)
	order := f.seedOrder(t, func(o *models.Order) { o.SellerID = seller.ID })

	updated, err := f.svc.UpdateStatus(context.Background(), UpdateStatusInput{
		Actor:   actorOf(seller),
		OrderID: order.ID,
		Status:  enums.OrderStatusApproved,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusApproved, updated.Status)
	assert.Equal(t, 2, updated.Version)

	stored := f.reload(t, order.ID)
	assert.Equal(t, enums.OrderStatusApproved, stored.Status)
	assert.Equal(t, 2, stored.Version)

	events := f.outboxEvents(t, enums.EventOrderStatusChanged)
	require.Len(t, events, 1)
	payload := decodeData[payloads.OrderStatusChangedEvent](t, events[0])
	assert.Equal(t, enums.OrderStatusPendingApproval, payload.From)
	assert.Equal(t, enums.OrderStatusApproved, payload.To)
	assert.Equal(t, order.BuyerID, payload.BuyerID)
}

func TestUpdateStatusForeignSellerLeavesOrderUnchanged(t *testing.T) {
	f := newFixture(t)
	intruder := f.users.add(enums.RoleSeller, true)
	order := f.seedOrder(t, nil)

	_, err := f.svc.UpdateStatus(context.Background(), UpdateStatusInput{
		Actor:   actorOf(intruder),
		OrderID: order.ID,
		Status:  enums.OrderStatusRejected,
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	stored := f.reload(t, order.ID)
	assert.Equal(t, enums.OrderStatusPendingApproval, stored.Status)
	assert.Equal(t, 1, stored.Version)
	assert.Empty(t, f.outboxEvents(t, enums.EventOrderStatusChanged))
	assert.Equal(t, []bool{true}, f.audit.failed)
}

func TestUpdateStatusRules(t *testing.T) {
	courier := uuid.New()
	cases := []struct {
		name   string
		role   enums.Role
		owner  bool
		from   enums.OrderStatus
		method enums.DeliveryMethod
		target enums.OrderStatus
		code   pkgerrors.Code
	}{
		{name: "buyer forbidden", role: enums.RoleBuyer, owner: true, from: enums.OrderStatusPendingApproval, method: enums.DeliveryMethodPickup, target: enums.OrderStatusCancelled, code: pkgerrors.CodeForbidden},
		{name: "manual deposit_paid", role: enums.RoleAdmin, from: enums.OrderStatusApproved, method: enums.DeliveryMethodPickup, target: enums.OrderStatusDepositPaid, code: pkgerrors.CodeStateConflict},
		{name: "manual paid_in_full", role: enums.RoleSeller, owner: true, from: enums.OrderStatusApproved, method: enums.DeliveryMethodPickup, target: enums.OrderStatusPaidInFull, code: pkgerrors.CodeStateConflict},
		{name: "terminal", role: enums.RoleAdmin, from: enums.OrderStatusRejected, method: enums.DeliveryMethodPickup, target: enums.OrderStatusApproved, code: pkgerrors.CodeStateConflict},
		{name: "skip ahead", role: enums.RoleAdmin, from: enums.OrderStatusPendingApproval, method: enums.DeliveryMethodPickup, target: enums.OrderStatusProcessing, code: pkgerrors.CodeStateConflict},
		{name: "pickup shipped", role: enums.RoleAdmin, from: enums.OrderStatusProcessing, method: enums.DeliveryMethodPickup, target: enums.OrderStatusShipped, code: pkgerrors.CodeStateConflict},
		{name: "shipping skips shipped", role: enums.RoleAdmin, from: enums.OrderStatusProcessing, method: enums.DeliveryMethodShipping, target: enums.OrderStatusDelivered, code: pkgerrors.CodeStateConflict},
		{name: "seller ships", role: enums.RoleSeller, owner: true, from: enums.OrderStatusProcessing, method: enums.DeliveryMethodShipping, target: enums.OrderStatusShipped, code: pkgerrors.CodeForbidden},
		{name: "courier approves", role: enums.RoleShipping, owner: true, from: enums.OrderStatusPendingApproval, method: enums.DeliveryMethodShipping, target: enums.OrderStatusApproved, code: pkgerrors.CodeForbidden},
		{name: "unassigned courier", role: enums.RoleShipping, from: enums.OrderStatusProcessing, method: enums.DeliveryMethodShipping, target: enums.OrderStatusShipped, code: pkgerrors.CodeForbidden},
		{name: "seller delivers pickup", role: enums.RoleSeller, owner: true, from: enums.OrderStatusProcessing, method: enums.DeliveryMethodPickup, target: enums.OrderStatusDelivered},
		{name: "courier ships", role: enums.RoleShipping, owner: true, from: enums.OrderStatusProcessing, method: enums.DeliveryMethodShipping, target: enums.OrderStatusShipped},
		{name: "admin cancels", role: enums.RoleAdmin, from: enums.OrderStatusDepositPaid, method: enums.DeliveryMethodPickup, target: enums.OrderStatusCancelled},
		{name: "seller starts processing", role: enums.RoleSeller, owner: true, from: enums.OrderStatusPaidInFull, method: enums.DeliveryMethodPickup, target: enums.OrderStatusProcessing},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			actor := auth.Actor{ID: uuid.New(), Role: tc.role}
			order := f.seedOrder(t, func(o *models.Order) {
				o.Status = tc.from
				o.DeliveryMethod = tc.method
				if tc.role == enums.RoleShipping && tc.owner {
					o.ShippingCompanyID = &actor.ID
				} else if tc.method == enums.DeliveryMethodShipping {
					o.ShippingCompanyID = &courier
				}
				if tc.owner && tc.role == enums.RoleSeller {
					o.SellerID = actor.ID
				}
				if tc.owner && tc.role == enums.RoleBuyer {
					o.BuyerID = actor.ID
				}
			})

			updated, err := f.svc.UpdateStatus(context.Background(), UpdateStatusInput{Actor: actor, OrderID: order.ID, Status: tc.target})
			stored := f.reload(t, order.ID)
			if tc.code == "" {
				require.NoError(t, err)
				assert.Equal(t, tc.target, updated.Status)
				assert.Equal(t, tc.target, stored.Status)
				assert.Equal(t, 2, stored.Version)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tc.code, pkgerrors.CodeOf(err))
			assert.Equal(t, tc.from, stored.Status)
			assert.Equal(t, 1, stored.Version)
		})
	}
}

func TestUpdateStatusMissingOrder(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.UpdateStatus(context.Background(), UpdateStatusInput{
		Actor:   auth.Actor{ID: uuid.New(), Role: enums.RoleAdmin},
		OrderID: uuid.New(),
		Status:  enums.OrderStatusApproved,
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = f.svc.UpdateStatus(context.Background(), UpdateStatusInput{OrderID: uuid.New(), Status: enums.OrderStatusApproved})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
}

func TestUpdateDeliveryStatus(t *testing.T) {
	f := newFixture(t)
	courier := f.users.add(enums.RoleShipping, true)
	seller := f.users.add(enums.RoleSeller, true)
	order := f.seedOrder(t, func(o *models.Order) {
		o.Status = enums.OrderStatusProcessing
		o.DeliveryMethod = enums.DeliveryMethodShipping
		o.ShippingCompanyID = &courier.ID
		o.SellerID = seller.ID
	})
	ctx := context.Background()

	_, err := f.svc.UpdateDeliveryStatus(ctx, UpdateStatusInput{Actor: actorOf(seller), OrderID: order.ID, Status: enums.OrderStatusShipped})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	_, err = f.svc.UpdateDeliveryStatus(ctx, UpdateStatusInput{Actor: actorOf(courier), OrderID: order.ID, Status: enums.OrderStatusCancelled})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	updated, err := f.svc.UpdateDeliveryStatus(ctx, UpdateStatusInput{Actor: actorOf(courier), OrderID: order.ID, Status: enums.OrderStatusShipped})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusShipped, updated.Status)

	updated, err = f.svc.UpdateDeliveryStatus(ctx, UpdateStatusInput{Actor: actorOf(courier), OrderID: order.ID, Status: enums.OrderStatusDelivered})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusDelivered, updated.Status)
	assert.Equal(t, 3, f.reload(t, order.ID).Version)
	assert.Len(t, f.outboxEvents(t, enums.EventOrderStatusChanged), 2)
}

// racingRepository bumps the stored version right after every read, as if a
// concurrent writer committed first.
type racingRepository struct {
	Repository
}

func (r *racingRepository) WithTx(tx *gorm.DB) Repository {
	return &racingRepository{Repository: r.Repository.WithTx(tx)}
}

func (r *racingRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, err := r.Repository.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := r.Repository.UpdateWithVersion(ctx, id, order.Version, map[string]any{}); err != nil {
		return nil, err
	}
	return order, nil
}

func TestUpdateStatusLosingRaceIsConflict(t *testing.T) {
	client := dbtest.Client(t)
	base := NewRepository(client.DB())
	f := newFixtureWithRepo(t, client, &racingRepository{Repository: base})
	admin := auth.Actor{ID: uuid.New(), Role: enums.RoleAdmin}
	order := f.seedOrder(t, nil)

	_, err := f.svc.UpdateStatus(context.Background(), UpdateStatusInput{Actor: admin, OrderID: order.ID, Status: enums.OrderStatusApproved})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
	assert.Equal(t, "order was modified concurrently", pkgerrors.As(err).Message())
	assert.Empty(t, f.outboxEvents(t, enums.EventOrderStatusChanged))

	stored, err := base.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPendingApproval, stored.Status)
}

func TestAssignShippingCompany(t *testing.T) {
	f := newFixture(t)
	seller := f.users.add(enums.RoleSeller, true)
	courier := f.users.add(enums.RoleShipping, true)
	retired := f.users.add(enums.RoleShipping, false)
	buyer := f.users.add(enums.RoleBuyer, true)
	order := f.seedOrder(t, func(o *models.Order) {
		o.SellerID = seller.ID
		o.DeliveryMethod = enums.DeliveryMethodShipping
		o.Status = enums.OrderStatusApproved
	})
	pickup := f.seedOrder(t, func(o *models.Order) { o.SellerID = seller.ID })
	ctx := context.Background()

	_, err := f.svc.AssignShippingCompany(ctx, AssignShippingInput{Actor: actorOf(buyer), OrderID: order.ID, ShippingCompanyID: courier.ID})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	_, err = f.svc.AssignShippingCompany(ctx, AssignShippingInput{Actor: actorOf(seller), OrderID: order.ID, ShippingCompanyID: retired.ID})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.AssignShippingCompany(ctx, AssignShippingInput{Actor: actorOf(seller), OrderID: order.ID, ShippingCompanyID: buyer.ID})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.AssignShippingCompany(ctx, AssignShippingInput{Actor: actorOf(seller), OrderID: pickup.ID, ShippingCompanyID: courier.ID})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	updated, err := f.svc.AssignShippingCompany(ctx, AssignShippingInput{Actor: actorOf(seller), OrderID: order.ID, ShippingCompanyID: courier.ID})
	require.NoError(t, err)
	require.NotNil(t, updated.ShippingCompanyID)
	assert.Equal(t, courier.ID, *updated.ShippingCompanyID)

	stored := f.reload(t, order.ID)
	require.NotNil(t, stored.ShippingCompanyID)
	assert.Equal(t, courier.ID, *stored.ShippingCompanyID)
	assert.Equal(t, 2, stored.Version)

	events := f.outboxEvents(t, enums.EventOrderShippingAssigned)
	require.Len(t, events, 1)
	payload := decodeData[payloads.OrderShippingAssignedEvent](t, events[0])
	assert.Equal(t, courier.ID, payload.ShippingCompanyID)
	assert.Nil(t, payload.PreviousCompanyID)

	closed := f.seedOrder(t, func(o *models.Order) {
		o.SellerID = seller.ID
		o.DeliveryMethod = enums.DeliveryMethodShipping
		o.Status = enums.OrderStatusDelivered
	})
	_, err = f.svc.AssignShippingCompany(ctx, AssignShippingInput{Actor: actorOf(seller), OrderID: closed.ID, ShippingCompanyID: courier.ID})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
}

func TestGetRequiresReadRelation(t *testing.T) {
	f := newFixture(t)
	order := f.seedOrder(t, nil)
	ctx := context.Background()

	got, err := f.svc.Get(ctx, auth.Actor{ID: order.BuyerID, Role: enums.RoleBuyer}, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)

	_, err = f.svc.Get(ctx, auth.Actor{ID: uuid.New(), Role: enums.RoleBuyer}, order.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	_, err = f.svc.Get(ctx, auth.Actor{ID: uuid.New(), Role: enums.RoleAdmin}, uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestListUsesActorScopeAndCursor(t *testing.T) {
	f := newFixture(t)
	buyer := uuid.New()
	base := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		f.seedOrder(t, func(o *models.Order) {
			o.BuyerID = buyer
			o.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		})
	}
	f.seedOrder(t, nil)
	ctx := context.Background()
	actor := auth.Actor{ID: buyer, Role: enums.RoleBuyer}

	page, err := f.svc.List(ctx, actor, pagination.Params{Limit: 2}, ListFilters{})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.NotEmpty(t, page.NextCursor)
	assert.Equal(t, base.Add(2*time.Hour), page.Items[0].CreatedAt.UTC())

	rest, err := f.svc.List(ctx, actor, pagination.Params{Limit: 2, Cursor: page.NextCursor}, ListFilters{})
	require.NoError(t, err)
	require.Len(t, rest.Items, 1)
	assert.Empty(t, rest.NextCursor)

	all, err := f.svc.List(ctx, auth.Actor{ID: uuid.New(), Role: enums.RoleAdmin}, pagination.Params{}, ListFilters{})
	require.NoError(t, err)
	assert.Len(t, all.Items, 4)

	approved := enums.OrderStatusApproved
	filtered, err := f.svc.List(ctx, actor, pagination.Params{}, ListFilters{Status: &approved})
	require.NoError(t, err)
	assert.Empty(t, filtered.Items)

	_, err = f.svc.List(ctx, actor, pagination.Params{Cursor: "not-a-cursor!"}, ListFilters{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestAdvanceFulfillmentMovesSettledOrders(t *testing.T) {
	f := newFixture(t)
	now := time.Now().UTC()
	old := now.Add(-time.Minute)
	fresh := now.Add(time.Minute)

	due := f.seedOrder(t, func(o *models.Order) {
		o.Status = enums.OrderStatusPaidInFull
		o.PaidCents = o.TotalCents
		o.RemainingCents = 0
		o.PaidInFullAt = &old
	})
	notDue := f.seedOrder(t, func(o *models.Order) {
		o.Status = enums.OrderStatusPaidInFull
		o.PaidCents = o.TotalCents
		o.RemainingCents = 0
		o.PaidInFullAt = &fresh
	})

	advanced, err := f.svc.AdvanceFulfillment(context.Background(), now, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, advanced)
	assert.Equal(t, enums.OrderStatusProcessing, f.reload(t, due.ID).Status)
	assert.Equal(t, enums.OrderStatusPaidInFull, f.reload(t, notDue.ID).Status)

	events := f.outboxEvents(t, enums.EventOrderStatusChanged)
	require.Len(t, events, 1)
	require.NotNil(t, events[0].Actor)
	assert.Equal(t, "system", events[0].Actor.Role)
	assert.Nil(t, events[0].Actor.UserID)
}
