// Package bootstrap is the start-up and shutdown sequence shared by every
// binary under cmd/.
package bootstrap

import (
	"context"
	"errors"
	"maps"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"

	"github.com/catchyfabric/market-backend/pkg/config"
	"github.com/catchyfabric/market-backend/pkg/instance"
	"github.com/catchyfabric/market-backend/pkg/logger"
)

var exit = os.Exit

type closer struct {
	name  string
	close func() error
}

// Process owns the config, the logger and the resources opened during start-up.
type Process struct {
	Kind   string
	Config *config.Config
	Logger *logger.Logger

	closers []closer
}

// Start loads .env when present, then config, then the leveled logger. A bad
// config exits the process.
func Start(kind string) *Process {
	p := &Process{Kind: kind, Logger: logger.New(logger.Options{ServiceName: kind})}
	if err := godotenv.Load(); err != nil {
		p.Logger.Debug(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	p.Require("config", err)
	cfg.Service.Kind = kind
	p.Config = cfg
	p.Logger = logger.New(logger.Options{
		ServiceName: kind,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	return p
}

// Require exits after closing what is already open when err is non-nil.
func (p *Process) Require(resource string, err error) {
	if err == nil {
		return
	}
	p.Logger.Error(context.Background(), "resource not working: "+resource, err)
	_ = p.Close()
	exit(1)
}

// OnClose registers fn to run at shutdown. Closers run newest first.
func (p *Process) OnClose(name string, fn func() error) {
	p.closers = append(p.closers, closer{name: name, close: fn})
}

// Close runs every registered closer once and returns their combined error.
func (p *Process) Close() error {
	var err error
	for _, c := range slices.Backward(p.closers) {
		if cerr := c.close(); cerr != nil {
			p.Logger.Error(context.Background(), "error closing "+c.name, cerr)
			err = multierr.Append(err, cerr)
		}
	}
	p.closers = nil
	return err
}

// SignalContext is cancelled on SIGINT or SIGTERM and carries the standard
// start-up log fields plus extra.
func (p *Process) SignalContext(extra map[string]any) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	fields := map[string]any{
		"serviceKind": p.Kind,
		"instance":    instance.GetID(),
	}
	if p.Config != nil {
		fields["env"] = p.Config.App.Env
	}
	maps.Copy(fields, extra)
	return p.Logger.WithFields(ctx, fields), stop
}

// Finish closes resources and exits non-zero when runErr is anything other
// than a shutdown signal.
func (p *Process) Finish(ctx context.Context, runErr error) {
	_ = p.Close()
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		p.Logger.Error(ctx, p.Kind+" stopped unexpectedly", runErr)
		exit(1)
		return
	}
	p.Logger.Info(ctx, p.Kind+" shut down gracefully")
}
