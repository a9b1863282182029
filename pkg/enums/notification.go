package enums

import "slices"

// NotificationType maps to the notification_type enum in Postgres.
type NotificationType string

const (
	NotificationTypeOrder    NotificationType = "order"
	NotificationTypeSystem   NotificationType = "system"
	NotificationTypePayment  NotificationType = "payment"
	NotificationTypeShipping NotificationType = "shipping"
	NotificationTypeAdmin    NotificationType = "admin"
)

var validNotificationTypes = []NotificationType{
	NotificationTypeOrder,
	NotificationTypeSystem,
	NotificationTypePayment,
	NotificationTypeShipping,
	NotificationTypeAdmin,
}

// IsValid checks whether the given type matches the canonical enum.
func (n NotificationType) IsValid() bool {
	return slices.Contains(validNotificationTypes, n)
}

// ParseNotificationType converts raw strings into NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	return parseEnum(validNotificationTypes, value, "notification type")
}
