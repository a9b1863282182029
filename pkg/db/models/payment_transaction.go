package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/catchyfabric/market-backend/pkg/enums"
)

// PaymentTransaction records a settled charge against an order.
type PaymentTransaction struct {
	ID               uuid.UUID           `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	OrderID          uuid.UUID           `gorm:"column:order_id;type:uuid;not null;index" json:"order_id"`
	PayerID          uuid.UUID           `gorm:"column:payer_id;type:uuid;not null" json:"payer_id"`
	AmountCents      int64               `gorm:"column:amount_cents;not null" json:"amount_cents"`
	Currency         string              `gorm:"column:currency;not null" json:"currency"`
	PaymentMethod    enums.PaymentMethod `gorm:"column:payment_method;type:payment_method;not null" json:"payment_method"`
	Kind             enums.PaymentKind   `gorm:"column:kind;type:payment_kind;not null" json:"kind"`
	Status           enums.PaymentStatus `gorm:"column:status;type:payment_status;not null" json:"status"`
	CardBrand        *string             `gorm:"column:card_brand" json:"card_brand"`
	CardLast4        *string             `gorm:"column:card_last4" json:"card_last4"`
	Gateway          string              `gorm:"column:gateway;not null" json:"gateway"`
	GatewayReference string              `gorm:"column:gateway_reference;not null" json:"gateway_reference"`
	Metadata         json.RawMessage     `gorm:"column:metadata;type:jsonb" json:"metadata"`
	CreatedAt        time.Time           `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time           `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (p *PaymentTransaction) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}
