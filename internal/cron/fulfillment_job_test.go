package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/catchyfabric/market-backend/pkg/logger"
)

type fakeAdvancer struct {
	cutoff time.Time
	limit  int
	result int
	err    error
}

func (f *fakeAdvancer) AdvanceFulfillment(_ context.Context, cutoff time.Time, limit int) (int, error) {
	f.cutoff = cutoff
	f.limit = limit
	return f.result, f.err
}

func TestFulfillmentJobUsesDelayCutoff(t *testing.T) {
	now := time.Date(2026, 4, 2, 12, 0, 0, 0, time.UTC)
	advancer := &fakeAdvancer{result: 3}
	jobIface, err := NewFulfillmentJob(FulfillmentJobParams{
		Logger: logger.Nop(),
		Orders: advancer,
		Delay:  10 * time.Second,
	})
	if err != nil {
		t.Fatalf("NewFulfillmentJob: %v", err)
	}
	job := jobIface.(*fulfillmentJob)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !advancer.cutoff.Equal(now.Add(-10 * time.Second)) {
		t.Fatalf("unexpected cutoff %s", advancer.cutoff)
	}
	if advancer.limit != defaultFulfillmentBatch {
		t.Fatalf("expected default batch, got %d", advancer.limit)
	}
}

func TestFulfillmentJobPropagatesErrors(t *testing.T) {
	job, err := NewFulfillmentJob(FulfillmentJobParams{
		Logger: logger.Nop(),
		Orders: &fakeAdvancer{err: errors.New("db down")},
	})
	if err != nil {
		t.Fatalf("NewFulfillmentJob: %v", err)
	}
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
