package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/catchyfabric/market-backend/pkg/logger"
)

const (
	defaultFulfillmentDelay = 5 * time.Second
	defaultFulfillmentBatch = 100
)

type fulfillmentAdvancer interface {
	AdvanceFulfillment(ctx context.Context, cutoff time.Time, limit int) (int, error)
}

// FulfillmentJobParams configure the fulfillment-advance job.
type FulfillmentJobParams struct {
	Logger    *logger.Logger
	Orders    fulfillmentAdvancer
	Delay     time.Duration
	BatchSize int
}

// NewFulfillmentJob moves orders paid in full at least Delay ago into processing.
func NewFulfillmentJob(params FulfillmentJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders service required")
	}
	delay := params.Delay
	if delay <= 0 {
		delay = defaultFulfillmentDelay
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultFulfillmentBatch
	}
	return &fulfillmentJob{
		logg:   params.Logger,
		orders: params.Orders,
		delay:  delay,
		batch:  batch,
		now:    time.Now,
	}, nil
}

type fulfillmentJob struct {
	logg   *logger.Logger
	orders fulfillmentAdvancer
	delay  time.Duration
	batch  int
	now    func() time.Time
}

func (j *fulfillmentJob) Name() string { return "fulfillment-advance" }

func (j *fulfillmentJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.delay)
	advanced, err := j.orders.AdvanceFulfillment(ctx, cutoff, j.batch)
	if err != nil {
		return fmt.Errorf("advance fulfillment: %w", err)
	}
	if advanced > 0 {
		j.logg.Info(j.logg.WithFields(ctx, map[string]any{
			"cutoff":   cutoff,
			"advanced": advanced,
		}), "orders moved to processing")
	}
	return nil
}
