// Package square wraps the Square payments SDK for card charges.
package square

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	sq "github.com/square/square-go-sdk"
	sqclient "github.com/square/square-go-sdk/client"
	sqoption "github.com/square/square-go-sdk/option"

	"github.com/catchyfabric/market-backend/pkg/config"
	"github.com/catchyfabric/market-backend/pkg/logger"
)

const (
	sandboxEnv    = "sandbox"
	productionEnv = "production"

	// SandboxCardNonce always approves in the Square sandbox.
	SandboxCardNonce = "cnon:card-nonce-ok"
)

var (
	errAccessTokenRequired = errors.New("square access token is required")
	errLocationRequired    = errors.New("square location id is required")
	errInvalidSquareEnv    = fmt.Errorf("square environment must be %q or %q", sandboxEnv, productionEnv)
	errLoggerRequired      = errors.New("square logger is required")
)

var baseURLs = map[string]string{
	sandboxEnv:    "https://connect.squareupsandbox.com",
	productionEnv: "https://connect.squareup.com",
}

type paymentsAPI interface {
	Create(ctx context.Context, request *sq.CreatePaymentRequest, opts ...sqoption.RequestOption) (*sq.CreatePaymentResponse, error)
}

type Client struct {
	payments    paymentsAPI
	environment string
	locationID  string
	logger      *logger.Logger
}

func NewClient(ctx context.Context, cfg config.SquareConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	env := strings.ToLower(strings.TrimSpace(cfg.Environment()))
	if env == "" {
		env = sandboxEnv
	}
	baseURL, ok := baseURLs[env]
	if !ok {
		return nil, errInvalidSquareEnv
	}
	token := strings.TrimSpace(cfg.AccessToken)
	if token == "" {
		return nil, errAccessTokenRequired
	}
	location := strings.TrimSpace(cfg.LocationID)
	if location == "" {
		return nil, errLocationRequired
	}

	sdk := sqclient.NewClient(sqoption.WithBaseURL(baseURL), sqoption.WithToken(token))
	logg.Info(logg.WithField(ctx, "square_env", env), "square client initialized")
	return &Client{payments: sdk.Payments, environment: env, locationID: location, logger: logg}, nil
}

func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return c.environment
}

func (c *Client) Sandbox() bool {
	return c.Environment() == sandboxEnv
}

// CreatePayment charges params.SourceID and returns the completed payment.
// Errors come back as typed errors from pkg/errors.
func (c *Client) CreatePayment(ctx context.Context, params PaymentCreateParams) (*sq.Payment, error) {
	if params.LocationID == "" {
		params.LocationID = c.locationID
	}
	key := ensureIdempotencyKey("payment", params.IdempotencyKey)
	ctx = c.logger.WithFields(ctx, redactAll(map[string]any{
		"operation":       "create_payment",
		"location_id":     params.LocationID,
		"reference_id":    params.ReferenceID,
		"amount":          params.AmountCents,
		"source_token":    params.SourceID,
		"idempotency_key": key,
	}))
	c.logger.Debug(ctx, "square request")

	resp, err := c.payments.Create(ctx, params.request(key))
	if err != nil {
		mapped := mapSquareError(err, "create payment")
		c.logger.Error(ctx, "square create_payment failed", mapped)
		return nil, mapped
	}

	payment := resp.GetPayment()
	c.logger.Debug(c.logger.WithFields(ctx, map[string]any{
		"payment_id": stringValue(payment.GetID()),
		"status":     stringValue(payment.GetStatus()),
	}), "square response")
	return payment, nil
}

func ensureIdempotencyKey(prefix, provided string) string {
	if strings.TrimSpace(provided) != "" {
		return provided
	}
	return prefix + "-" + uuid.NewString()
}

var sensitiveKeyParts = []string{"card", "nonce", "token", "cvv", "cvc", "secret", "email", "phone"}

func redact(key string, value any) any {
	lower := strings.ToLower(key)
	for _, part := range sensitiveKeyParts {
		if strings.Contains(lower, part) {
			return "[REDACTED]"
		}
	}
	return value
}

func redactAll(fields map[string]any) map[string]any {
	for k, v := range fields {
		fields[k] = redact(k, v)
	}
	return fields
}

func stringValue(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}
