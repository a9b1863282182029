package bootstrap

import (
	"context"
	"fmt"

	"github.com/catchyfabric/market-backend/pkg/logger"
)

// Check is one dependency probed before a worker starts consuming.
type Check struct {
	Name string
	Ping func(context.Context) error
}

// Ready pings checks in order and stops at the first failure.
func Ready(ctx context.Context, logg *logger.Logger, checks ...Check) error {
	for _, c := range checks {
		if err := c.Ping(ctx); err != nil {
			logg.Error(ctx, c.Name+" ping failed", err)
			return fmt.Errorf("%s ping failed: %w", c.Name, err)
		}
	}
	return nil
}
