package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/catchyfabric/market-backend/pkg/enums"
)

// AuditLog is a row of the logs table.
type AuditLog struct {
	ID           uuid.UUID         `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserID       *uuid.UUID        `gorm:"column:user_id;type:uuid;index" json:"user_id"`
	ActionType   enums.AuditAction `gorm:"column:action_type;not null" json:"action_type"`
	Status       enums.AuditStatus `gorm:"column:status;not null" json:"status"`
	DeviceInfo   *string           `gorm:"column:device_info" json:"device_info"`
	IPAddress    *string           `gorm:"column:ip_address" json:"ip_address"`
	ErrorMessage *string           `gorm:"column:error_message" json:"error_message"`
	Metadata     json.RawMessage   `gorm:"column:metadata;type:jsonb" json:"metadata"`
	CreatedAt    time.Time         `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (AuditLog) TableName() string {
	return "logs"
}

func (a *AuditLog) BeforeCreate(*gorm.DB) error {
	ensureID(&a.ID)
	return nil
}
