package analytics

import (
	"encoding/json"
	"fmt"
	"time"

	cbigquery "cloud.google.com/go/bigquery"
	"github.com/google/uuid"

	"github.com/catchyfabric/market-backend/pkg/enums"
	"github.com/catchyfabric/market-backend/pkg/outbox/payloads"
	"github.com/catchyfabric/market-backend/pkg/outbox/registry"
)

// MarketplaceEventRow is one row of the marketplace_events table.
type MarketplaceEventRow struct {
	EventID       string               `bigquery:"event_id"`
	EventType     string               `bigquery:"event_type"`
	OccurredAt    time.Time            `bigquery:"occurred_at"`
	OrderID       string               `bigquery:"order_id"`
	BuyerID       cbigquery.NullString `bigquery:"buyer_id"`
	SellerID      cbigquery.NullString `bigquery:"seller_id"`
	Status        cbigquery.NullString `bigquery:"status"`
	PaymentMethod cbigquery.NullString `bigquery:"payment_method"`
	PaymentKind   cbigquery.NullString `bigquery:"payment_kind"`
	AmountCents   cbigquery.NullInt64  `bigquery:"amount_cents"`
	Currency      cbigquery.NullString `bigquery:"currency"`
	Payload       cbigquery.NullJSON   `bigquery:"payload"`
}

// BuildRow maps a resolved order event to its analytics row. Events that
// analytics does not track report ok=false.
func BuildRow(event *registry.ResolvedEvent) (row *MarketplaceEventRow, ok bool, err error) {
	if event == nil {
		return nil, false, nil
	}
	occurred := event.Envelope.OccurredAt.UTC()
	if occurred.IsZero() {
		occurred = time.Now().UTC()
	}
	row = &MarketplaceEventRow{
		EventID:    event.Envelope.EventID,
		EventType:  string(event.Descriptor.EventType),
		OccurredAt: occurred,
	}

	switch p := event.Payload.(type) {
	case *payloads.OrderCreatedEvent:
		row.OrderID = p.OrderID.String()
		row.BuyerID = nullID(p.BuyerID)
		row.SellerID = nullID(p.SellerID)
		row.Status = nullString(string(enums.OrderStatusPendingApproval))
		if p.PaymentMethod != nil {
			row.PaymentMethod = nullString(string(*p.PaymentMethod))
		}
		row.AmountCents = cbigquery.NullInt64{Int64: p.TotalCents, Valid: true}
		row.Currency = nullString(p.Currency)
	case *payloads.OrderStatusChangedEvent:
		row.OrderID = p.OrderID.String()
		row.BuyerID = nullID(p.BuyerID)
		row.SellerID = nullID(p.SellerID)
		row.Status = nullString(string(p.To))
		row.AmountCents = cbigquery.NullInt64{Int64: p.TotalCents, Valid: true}
		row.Currency = nullString(p.Currency)
	case *payloads.OrderShippingAssignedEvent:
		row.OrderID = p.OrderID.String()
		row.BuyerID = nullID(p.BuyerID)
		row.SellerID = nullID(p.SellerID)
	case *payloads.OrderPaymentAppliedEvent:
		row.OrderID = p.OrderID.String()
		row.BuyerID = nullID(p.BuyerID)
		row.SellerID = nullID(p.SellerID)
		row.Status = nullString(string(p.Status))
		row.PaymentMethod = nullString(string(p.Method))
		row.PaymentKind = nullString(string(p.Kind))
		row.AmountCents = cbigquery.NullInt64{Int64: p.AmountCents, Valid: true}
		row.Currency = nullString(p.Currency)
	default:
		return nil, false, nil
	}

	payload, err := EncodeJSON(event.Envelope.Data)
	if err != nil {
		return nil, false, err
	}
	row.Payload = payload
	return row, true, nil
}

// EncodeJSON serializes payload for a BigQuery JSON column.
func EncodeJSON(payload any) (cbigquery.NullJSON, error) {
	switch value := payload.(type) {
	case nil:
		return cbigquery.NullJSON{}, nil
	case json.RawMessage:
		if len(value) == 0 {
			return cbigquery.NullJSON{}, nil
		}
		return cbigquery.NullJSON{Valid: true, JSONVal: string(value)}, nil
	case []byte:
		if len(value) == 0 {
			return cbigquery.NullJSON{}, nil
		}
		return cbigquery.NullJSON{Valid: true, JSONVal: string(value)}, nil
	}
	marshaled, err := json.Marshal(payload)
	if err != nil {
		return cbigquery.NullJSON{}, fmt.Errorf("marshal json: %w", err)
	}
	return cbigquery.NullJSON{Valid: true, JSONVal: string(marshaled)}, nil
}

func nullID(id uuid.UUID) cbigquery.NullString {
	if id == uuid.Nil {
		return cbigquery.NullString{}
	}
	return cbigquery.NullString{StringVal: id.String(), Valid: true}
}

func nullString(value string) cbigquery.NullString {
	if value == "" {
		return cbigquery.NullString{}
	}
	return cbigquery.NullString{StringVal: value, Valid: true}
}
