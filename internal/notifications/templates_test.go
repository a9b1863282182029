package notifications

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catchyfabric/market-backend/pkg/db/models"
	"github.com/catchyfabric/market-backend/pkg/enums"
	"github.com/catchyfabric/market-backend/pkg/outbox/payloads"
)

func TestForEventRecipients(t *testing.T) {
	orderID := uuid.MustParse("1a2b3c4d-0000-4000-8000-000000000000")
	buyer, seller, shipper := uuid.New(), uuid.New(), uuid.New()

	created := ForEvent(&payloads.OrderCreatedEvent{OrderID: orderID, BuyerID: buyer, SellerID: seller, TotalCents: 12550, Currency: "EGP"})
	require.Len(t, created, 1)
	assert.Equal(t, seller, created[0].UserID)
	assert.Equal(t, enums.NotificationTypeOrder, created[0].Type)
	assert.Contains(t, created[0].Message, "#1A2B3C4D")
	assert.Contains(t, created[0].Message, "EGP 125.50")
	assert.NotEmpty(t, created[0].TitleAr)
	assert.NotEmpty(t, created[0].MessageAr)
	require.NotNil(t, created[0].RelatedID)
	assert.Equal(t, orderID, *created[0].RelatedID)

	assigned := ForEvent(&payloads.OrderShippingAssignedEvent{OrderID: orderID, ShippingCompanyID: shipper})
	require.Len(t, assigned, 1)
	assert.Equal(t, shipper, assigned[0].UserID)
	assert.Equal(t, enums.NotificationTypeShipping, assigned[0].Type)

	paid := ForEvent(&payloads.OrderPaymentAppliedEvent{OrderID: orderID, BuyerID: buyer, SellerID: seller, AmountCents: 2500, RemainingCents: 7500, Currency: "EGP"})
	require.Len(t, paid, 2)
	assert.Equal(t, buyer, paid[0].UserID)
	assert.Equal(t, seller, paid[1].UserID)
	for _, n := range paid {
		assert.Equal(t, enums.NotificationTypePayment, n.Type)
	}

	admin := ForEvent(&payloads.UserCreatedByAdminEvent{UserID: buyer, Email: "x@example.com", Role: enums.RoleSeller})
	require.Len(t, admin, 1)
	assert.Equal(t, enums.NotificationTypeAdmin, admin[0].Type)
	assert.Nil(t, admin[0].RelatedID)

	assert.Empty(t, ForEvent(&payloads.UserRegisteredEvent{UserID: buyer}))
}

func TestForEventStatusChanges(t *testing.T) {
	buyer := uuid.New()
	cases := []struct {
		to   enums.OrderStatus
		kind enums.NotificationType
		want bool
	}{
		{to: enums.OrderStatusApproved, kind: enums.NotificationTypeOrder, want: true},
		{to: enums.OrderStatusRejected, kind: enums.NotificationTypeOrder, want: true},
		{to: enums.OrderStatusCancelled, kind: enums.NotificationTypeOrder, want: true},
		{to: enums.OrderStatusProcessing, kind: enums.NotificationTypeOrder, want: true},
		{to: enums.OrderStatusShipped, kind: enums.NotificationTypeShipping, want: true},
		{to: enums.OrderStatusDelivered, kind: enums.NotificationTypeShipping, want: true},
		{to: enums.OrderStatusDepositPaid},
		{to: enums.OrderStatusPaidInFull},
	}
	for _, tc := range cases {
		t.Run(string(tc.to), func(t *testing.T) {
			notes := ForEvent(&payloads.OrderStatusChangedEvent{OrderID: uuid.New(), BuyerID: buyer, To: tc.to})
			if !tc.want {
				assert.Empty(t, notes)
				return
			}
			require.Len(t, notes, 1)
			assert.Equal(t, buyer, notes[0].UserID)
			assert.Equal(t, tc.kind, notes[0].Type)
		})
	}
}

func TestWelcome(t *testing.T) {
	user := &models.User{ID: uuid.New(), Name: "Mona"}
	n := Welcome(user)
	assert.Equal(t, user.ID, n.UserID)
	assert.Equal(t, enums.NotificationTypeSystem, n.Type)
	assert.Contains(t, n.Message, "Mona")
	assert.Contains(t, n.MessageAr, "Mona")
}
