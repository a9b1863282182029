package db

import (
	"gorm.io/gorm"

	"github.com/catchyfabric/market-backend/pkg/db/models"
)

// AutoMigrate creates the schema through gorm. Postgres deployments use the
// goose migrations instead; this path serves SQLite.
func AutoMigrate(conn *gorm.DB) error {
	return conn.AutoMigrate(
		&models.User{},
		&models.Order{},
		&models.OrderItem{},
		&models.PaymentTransaction{},
		&models.Notification{},
		&models.AuditLog{},
		&models.OutboxEvent{},
		&models.OutboxDLQ{},
	)
}
