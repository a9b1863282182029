package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/catchyfabric/market-backend/pkg/enums"
)

// Order is one seller's partition of a checkout.
type Order struct {
	ID                uuid.UUID            `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	BuyerID           uuid.UUID            `gorm:"column:buyer_id;type:uuid;not null;index" json:"buyer_id"`
	BuyerName         string               `gorm:"column:buyer_name;not null" json:"buyer_name"`
	BuyerEmail        string               `gorm:"column:buyer_email;not null" json:"buyer_email"`
	SellerID          uuid.UUID            `gorm:"column:seller_id;type:uuid;not null;index" json:"seller_id"`
	SellerName        string               `gorm:"column:seller_name;not null" json:"seller_name"`
	TotalCents        int64                `gorm:"column:total_cents;not null" json:"total_cents"`
	DepositCents      *int64               `gorm:"column:deposit_cents" json:"deposit_cents"`
	PaidCents         int64                `gorm:"column:paid_cents;not null;default:0" json:"paid_cents"`
	RemainingCents    int64                `gorm:"column:remaining_cents;not null" json:"remaining_cents"`
	ShippingFeeCents  *int64               `gorm:"column:shipping_fee_cents" json:"shipping_fee_cents"`
	Currency          string               `gorm:"column:currency;not null;default:EGP" json:"currency"`
	DeliveryMethod    enums.DeliveryMethod `gorm:"column:delivery_method;type:delivery_method;not null" json:"delivery_method"`
	Status            enums.OrderStatus    `gorm:"column:status;type:order_status;not null" json:"status"`
	ShippingAddress   *string              `gorm:"column:shipping_address" json:"shipping_address"`
	ShippingCompanyID *uuid.UUID           `gorm:"column:shipping_company_id;type:uuid;index" json:"shipping_company_id"`
	PaymentMethod     *enums.PaymentMethod `gorm:"column:payment_method;type:payment_method" json:"payment_method"`
	Version           int                  `gorm:"column:version;not null;default:1" json:"version"`
	PaidInFullAt      *time.Time           `gorm:"column:paid_in_full_at" json:"paid_in_full_at"`
	CreatedAt         time.Time            `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time            `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`

	Items        []OrderItem          `gorm:"foreignKey:OrderID" json:"items,omitempty"`
	Transactions []PaymentTransaction `gorm:"foreignKey:OrderID" json:"transactions,omitempty"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	return nil
}

// OrderItem snapshots a cart line at placement time.
type OrderItem struct {
	ID                  uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	OrderID             uuid.UUID `gorm:"column:order_id;type:uuid;not null;index" json:"order_id"`
	ProductID           string    `gorm:"column:product_id;not null" json:"product_id"`
	Name                string    `gorm:"column:name;not null" json:"name"`
	UnitPriceCents      int64     `gorm:"column:unit_price_cents;not null" json:"unit_price_cents"`
	Quantity            int       `gorm:"column:quantity;not null" json:"quantity"`
	LineTotalCents      int64     `gorm:"column:line_total_cents;not null" json:"line_total_cents"`
	ImageURL            *string   `gorm:"column:image_url" json:"image_url"`
	IsReserved          bool      `gorm:"column:is_reserved;not null;default:false" json:"is_reserved"`
	DownPaymentRequired bool      `gorm:"column:down_payment_required;not null;default:false" json:"down_payment_required"`
	CreatedAt           time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (i *OrderItem) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}
