// Package bigquery streams analytics rows into the marketplace events table.
package bigquery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/catchyfabric/market-backend/pkg/config"
	"github.com/catchyfabric/market-backend/pkg/logger"
)

const metadataCheckTimeout = 10 * time.Second

var (
	errProjectIDRequired    = errors.New("gcp project id is required")
	errDatasetRequired      = errors.New("bigquery dataset is required")
	errTableNameRequired    = errors.New("bigquery table name is required")
	errClientNotInitialized = errors.New("bigquery client not initialized")
)

// Client is bound to one dataset and one events table inside it.
type Client struct {
	bq      *bigquery.Client
	dataset *bigquery.Dataset
	table   string
}

type location struct {
	project, dataset, table string
}

func resolveLocation(gcp config.GCPConfig, cfg config.BigQueryConfig) (location, error) {
	loc := location{
		project: strings.TrimSpace(gcp.ProjectID),
		dataset: strings.TrimSpace(cfg.Dataset),
		table:   strings.TrimSpace(cfg.MarketplaceEventsTable),
	}
	switch {
	case loc.project == "":
		return loc, errProjectIDRequired
	case loc.dataset == "":
		return loc, errDatasetRequired
	case loc.table == "":
		return loc, errTableNameRequired
	}
	return loc, nil
}

// NewClient dials BigQuery and fails unless the dataset and table already exist.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.BigQueryConfig, logg *logger.Logger) (*Client, error) {
	loc, err := resolveLocation(gcp, cfg)
	if err != nil {
		return nil, err
	}

	bq, err := bigquery.NewClient(ctx, loc.project, clientOptions(gcp)...)
	if err != nil {
		return nil, fmt.Errorf("creating bigquery client: %w", err)
	}
	c := &Client{bq: bq, dataset: bq.Dataset(loc.dataset), table: loc.table}
	if err := c.Ping(ctx); err != nil {
		return nil, errors.Join(err, bq.Close())
	}

	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"project": loc.project,
			"dataset": loc.dataset,
			"table":   loc.table,
		}), "bigquery client initialized")
	}
	return c, nil
}

// clientOptions prefers inline credentials over a credentials file and falls
// back to application default credentials.
func clientOptions(gcp config.GCPConfig) []option.ClientOption {
	if raw := strings.TrimSpace(gcp.CredentialsJSON); raw != "" {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(raw))}
	}
	if path := strings.TrimSpace(gcp.ApplicationCredentials); path != "" {
		return []option.ClientOption{option.WithCredentialsFile(path)}
	}
	return nil
}

func (c *Client) EventsTable() string {
	if c == nil {
		return ""
	}
	return c.table
}

// Ping reads dataset and table metadata.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.dataset == nil {
		return errClientNotInitialized
	}
	ctx, cancel := context.WithTimeout(ctx, metadataCheckTimeout)
	defer cancel()

	if err := exists(ctx, "dataset", c.dataset.DatasetID, func(ctx context.Context) error {
		_, err := c.dataset.Metadata(ctx)
		return err
	}); err != nil {
		return err
	}
	return exists(ctx, "table", c.table, func(ctx context.Context) error {
		_, err := c.dataset.Table(c.table).Metadata(ctx)
		return err
	})
}

func exists(ctx context.Context, kind, id string, fetch func(context.Context) error) error {
	err := fetch(ctx)
	switch {
	case err == nil:
		return nil
	case isNotFound(err):
		return fmt.Errorf("%s %q does not exist", kind, id)
	default:
		return fmt.Errorf("checking %s %q: %w", kind, id, err)
	}
}

// InsertRows streams rows into table. Each row must be a ValueSaver or a
// struct with bigquery tags.
func (c *Client) InsertRows(ctx context.Context, table string, rows []any) error {
	if c == nil || c.bq == nil {
		return errClientNotInitialized
	}
	if table = strings.TrimSpace(table); table == "" {
		return errTableNameRequired
	}
	if len(rows) == 0 {
		return nil
	}
	return c.dataset.Table(table).Inserter().Put(ctx, rows)
}

func (c *Client) Close() error {
	if c == nil || c.bq == nil {
		return nil
	}
	return c.bq.Close()
}

func isNotFound(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound
}
