package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/catchyfabric/market-backend/pkg/enums"
)

// Notification stores bilingual in-app notifications scoped to a user.
type Notification struct {
	ID        uuid.UUID              `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID              `gorm:"column:user_id;type:uuid;not null;index" json:"user_id"`
	Type      enums.NotificationType `gorm:"column:type;type:notification_type;not null" json:"type"`
	Title     string                 `gorm:"column:title;type:text;not null" json:"title"`
	Message   string                 `gorm:"column:message;type:text;not null" json:"message"`
	TitleAr   string                 `gorm:"column:title_ar;type:text;not null" json:"title_ar"`
	MessageAr string                 `gorm:"column:message_ar;type:text;not null" json:"message_ar"`
	RelatedID *uuid.UUID             `gorm:"column:related_id;type:uuid" json:"related_id"`
	ReadAt    *time.Time             `gorm:"column:read_at" json:"read_at"`
	CreatedAt time.Time              `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (n *Notification) BeforeCreate(*gorm.DB) error {
	ensureID(&n.ID)
	return nil
}
