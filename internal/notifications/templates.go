package notifications

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/catchyfabric/market-backend/pkg/db/models"
	"github.com/catchyfabric/market-backend/pkg/enums"
	"github.com/catchyfabric/market-backend/pkg/outbox/payloads"
)

type message struct {
	title, body     string
	titleAr, bodyAr string
}

func (m message) build(userID uuid.UUID, kind enums.NotificationType, related *uuid.UUID) models.Notification {
	return models.Notification{
		UserID:    userID,
		Type:      kind,
		Title:     m.title,
		Message:   m.body,
		TitleAr:   m.titleAr,
		MessageAr: m.bodyAr,
		RelatedID: related,
	}
}

// orderRef is the short reference shown to users, e.g. #1A2B3C4D.
func orderRef(id uuid.UUID) string {
	return "#" + strings.ToUpper(strings.ReplaceAll(id.String(), "-", "")[:8])
}

func formatMoney(cents int64, currency string) string {
	return fmt.Sprintf("%s %s", currency, decimal.New(cents, -2).StringFixed(2))
}

// Welcome is written inside the registration transaction.
func Welcome(user *models.User) models.Notification {
	msg := message{
		title:   "Welcome to Catchy Fabric Market",
		body:    fmt.Sprintf("Hi %s, your account is ready. Start browsing fabrics from local sellers.", user.Name),
		titleAr: "مرحباً بك في كاتشي فابريك ماركت",
		bodyAr:  fmt.Sprintf("أهلاً %s، حسابك جاهز. ابدأ بتصفح الأقمشة من البائعين المحليين.", user.Name),
	}
	return msg.build(user.ID, enums.NotificationTypeSystem, nil)
}

func orderCreated(p *payloads.OrderCreatedEvent) []models.Notification {
	ref := orderRef(p.OrderID)
	amount := formatMoney(p.TotalCents, p.Currency)
	msg := message{
		title:   "New order received",
		body:    fmt.Sprintf("Order %s for %s is waiting for your approval.", ref, amount),
		titleAr: "تم استلام طلب جديد",
		bodyAr:  fmt.Sprintf("الطلب %s بقيمة %s بانتظار موافقتك.", ref, amount),
	}
	return []models.Notification{msg.build(p.SellerID, enums.NotificationTypeOrder, &p.OrderID)}
}

var statusMessages = map[enums.OrderStatus]struct {
	kind enums.NotificationType
	en   string
	ar   string
}{
	enums.OrderStatusApproved:   {enums.NotificationTypeOrder, "has been approved by the seller", "تمت الموافقة عليه من البائع"},
	enums.OrderStatusRejected:   {enums.NotificationTypeOrder, "was rejected by the seller", "تم رفضه من البائع"},
	enums.OrderStatusCancelled:  {enums.NotificationTypeOrder, "was cancelled", "تم إلغاؤه"},
	enums.OrderStatusProcessing: {enums.NotificationTypeOrder, "is being prepared", "قيد التجهيز"},
	enums.OrderStatusShipped:    {enums.NotificationTypeShipping, "is on its way", "في الطريق إليك"},
	enums.OrderStatusDelivered:  {enums.NotificationTypeShipping, "has been delivered", "تم تسليمه"},
}

func orderStatusChanged(p *payloads.OrderStatusChangedEvent) []models.Notification {
	entry, ok := statusMessages[p.To]
	if !ok {
		return nil
	}
	ref := orderRef(p.OrderID)
	msg := message{
		title:   "Order update",
		body:    fmt.Sprintf("Your order %s %s.", ref, entry.en),
		titleAr: "تحديث الطلب",
		bodyAr:  fmt.Sprintf("طلبك %s %s.", ref, entry.ar),
	}
	return []models.Notification{msg.build(p.BuyerID, entry.kind, &p.OrderID)}
}

func orderShippingAssigned(p *payloads.OrderShippingAssignedEvent) []models.Notification {
	ref := orderRef(p.OrderID)
	msg := message{
		title:   "New delivery assigned",
		body:    fmt.Sprintf("Order %s has been assigned to you for delivery.", ref),
		titleAr: "تم تعيين توصيل جديد",
		bodyAr:  fmt.Sprintf("تم تعيين الطلب %s لك للتوصيل.", ref),
	}
	return []models.Notification{msg.build(p.ShippingCompanyID, enums.NotificationTypeShipping, &p.OrderID)}
}

func orderPaymentApplied(p *payloads.OrderPaymentAppliedEvent) []models.Notification {
	ref := orderRef(p.OrderID)
	amount := formatMoney(p.AmountCents, p.Currency)
	remaining := formatMoney(p.RemainingCents, p.Currency)
	buyer := message{
		title:   "Payment received",
		body:    fmt.Sprintf("We received %s for order %s. Remaining balance: %s.", amount, ref, remaining),
		titleAr: "تم استلام الدفعة",
		bodyAr:  fmt.Sprintf("استلمنا %s للطلب %s. المبلغ المتبقي: %s.", amount, ref, remaining),
	}
	seller := message{
		title:   "Order payment received",
		body:    fmt.Sprintf("The buyer paid %s for order %s.", amount, ref),
		titleAr: "تم دفع قيمة الطلب",
		bodyAr:  fmt.Sprintf("دفع المشتري %s للطلب %s.", amount, ref),
	}
	return []models.Notification{
		buyer.build(p.BuyerID, enums.NotificationTypePayment, &p.OrderID),
		seller.build(p.SellerID, enums.NotificationTypePayment, &p.OrderID),
	}
}

func userCreatedByAdmin(p *payloads.UserCreatedByAdminEvent) []models.Notification {
	msg := message{
		title:   "Your account was created",
		body:    fmt.Sprintf("An administrator created a %s account for %s.", p.Role, p.Email),
		titleAr: "تم إنشاء حسابك",
		bodyAr:  fmt.Sprintf("قام أحد المسؤولين بإنشاء حساب %s للبريد %s.", p.Role, p.Email),
	}
	return []models.Notification{msg.build(p.UserID, enums.NotificationTypeAdmin, nil)}
}

// ForEvent maps a decoded event payload to the notifications it produces.
// Unhandled payloads produce none.
func ForEvent(payload any) []models.Notification {
	switch p := payload.(type) {
	case *payloads.OrderCreatedEvent:
		return orderCreated(p)
	case *payloads.OrderStatusChangedEvent:
		return orderStatusChanged(p)
	case *payloads.OrderShippingAssignedEvent:
		return orderShippingAssigned(p)
	case *payloads.OrderPaymentAppliedEvent:
		return orderPaymentApplied(p)
	case *payloads.UserCreatedByAdminEvent:
		return userCreatedByAdmin(p)
	default:
		return nil
	}
}
