package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"github.com/catchyfabric/market-backend/pkg/config"
	"github.com/catchyfabric/market-backend/pkg/logger"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Client wraps the Pub/Sub v2 client with the topic and subscription names
// this deployment uses. Each binary declares the resources it depends on so
// readiness only checks what that process touches.
type Client struct {
	client        *pubsub.Client
	projectID     string
	cfg           config.PubSubConfig
	subscriptions []string
	topics        []string

	mu         sync.Mutex
	publishers map[string]*pubsub.Publisher
}

// Requirements lists the resources a process needs to exist at startup.
type Requirements struct {
	Topics        []string
	Subscriptions []string
}

var (
	errProjectIDRequired = errors.New("gcp project id is required")
	errNothingRequired   = errors.New("pubsub client requires at least one topic or subscription")
)

// NewClient creates a Pub/Sub v2 client and verifies the required resources exist.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, req Requirements, logg *logger.Logger) (*Client, error) {
	if strings.TrimSpace(gcp.ProjectID) == "" {
		return nil, errProjectIDRequired
	}

	psClient, err := pubsub.NewClient(ctx, gcp.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	c := newClient(psClient, gcp.ProjectID, cfg, req)
	if err := c.Ping(ctx); err != nil {
		_ = psClient.Close()
		return nil, err
	}

	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"topics":        c.topics,
			"subscriptions": c.subscriptions,
		}), "pubsub client initialized")
	}
	return c, nil
}

func newClient(psClient *pubsub.Client, projectID string, cfg config.PubSubConfig, req Requirements) *Client {
	return &Client{
		client:        psClient,
		projectID:     projectID,
		cfg:           cfg,
		subscriptions: compact(req.Subscriptions),
		topics:        compact(req.Topics),
		publishers:    make(map[string]*pubsub.Publisher),
	}
}

// PublisherRequirements covers the topics the outbox publisher writes to.
func PublisherRequirements(cfg config.PubSubConfig) Requirements {
	return Requirements{Topics: []string{cfg.OrdersTopic, cfg.UsersTopic}}
}

// NotificationRequirements covers both subscriptions the notification worker drains.
func NotificationRequirements(cfg config.PubSubConfig) Requirements {
	return Requirements{Subscriptions: []string{cfg.NotificationSubscription, cfg.UserEventsSubscription}}
}

// AnalyticsRequirements covers the analytics worker subscription.
func AnalyticsRequirements(cfg config.PubSubConfig) Requirements {
	return Requirements{Subscriptions: []string{cfg.AnalyticsSubscription}}
}

func compact(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// Subscription returns a subscriber handle for the given ID or full resource name.
func (c *Client) Subscription(name string) *pubsub.Subscriber {
	if c == nil || c.client == nil {
		return nil
	}
	fullName := c.subscriptionResourceName(name)
	if fullName == "" {
		return nil
	}
	return c.client.Subscriber(fullName)
}

// NotificationSubscription drains order events for in-app notifications.
func (c *Client) NotificationSubscription() *pubsub.Subscriber {
	return c.Subscription(c.cfg.NotificationSubscription)
}

// UserEventsSubscription drains user lifecycle events for in-app notifications.
func (c *Client) UserEventsSubscription() *pubsub.Subscriber {
	return c.Subscription(c.cfg.UserEventsSubscription)
}

func (c *Client) AnalyticsSubscription() *pubsub.Subscriber {
	return c.Subscription(c.cfg.AnalyticsSubscription)
}

// Publisher returns a cached publisher for the topic ID or resource name.
func (c *Client) Publisher(name string) *pubsub.Publisher {
	if c == nil || c.client == nil {
		return nil
	}
	fullName := c.topicResourceName(name)
	if fullName == "" {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if pub, ok := c.publishers[fullName]; ok {
		return pub
	}
	pub := c.client.Publisher(fullName)
	c.publishers[fullName] = pub
	return pub
}

// Ping verifies that every required topic and subscription exists.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errors.New("pubsub client not initialized")
	}
	if len(c.topics) == 0 && len(c.subscriptions) == 0 {
		return errNothingRequired
	}
	for _, name := range c.topics {
		_, err := c.client.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: c.topicResourceName(name)})
		if err := classify("topic", name, err); err != nil {
			return err
		}
	}
	for _, name := range c.subscriptions {
		_, err := c.client.SubscriptionAdminClient.GetSubscription(ctx, &pubsubpb.GetSubscriptionRequest{Subscription: c.subscriptionResourceName(name)})
		if err := classify("subscription", name, err); err != nil {
			return err
		}
	}
	return nil
}

func classify(kind, name string, err error) error {
	if err == nil {
		return nil
	}
	if status.Code(err) == codes.NotFound {
		return fmt.Errorf("%s %q does not exist", kind, name)
	}
	return fmt.Errorf("checking %s %q: %w", kind, name, err)
}

// Close flushes cached publishers and releases the client.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	c.mu.Lock()
	for _, pub := range c.publishers {
		pub.Stop()
	}
	c.publishers = map[string]*pubsub.Publisher{}
	c.mu.Unlock()
	return c.client.Close()
}

func (c *Client) subscriptionResourceName(name string) string {
	return c.resourceName("subscriptions", name)
}

func (c *Client) topicResourceName(name string) string {
	return c.resourceName("topics", name)
}

func (c *Client) resourceName(collection, name string) string {
	if c == nil {
		return ""
	}
	n := strings.TrimSpace(name)
	if n == "" {
		return ""
	}
	if strings.HasPrefix(n, "projects/") && strings.Contains(n, "/"+collection+"/") {
		return n
	}
	p := strings.TrimSpace(c.projectID)
	if p == "" {
		return ""
	}
	return fmt.Sprintf("projects/%s/%s/%s", p, collection, n)
}
