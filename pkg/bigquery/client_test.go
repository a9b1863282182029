package bigquery

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"

	"github.com/catchyfabric/market-backend/pkg/config"
)

func TestNewClientRejectsIncompleteLocation(t *testing.T) {
	cases := map[string]struct {
		gcp  config.GCPConfig
		cfg  config.BigQueryConfig
		want error
	}{
		"project": {config.GCPConfig{}, config.BigQueryConfig{Dataset: "d", MarketplaceEventsTable: "t"}, errProjectIDRequired},
		"dataset": {config.GCPConfig{ProjectID: "p"}, config.BigQueryConfig{MarketplaceEventsTable: "t"}, errDatasetRequired},
		"table":   {config.GCPConfig{ProjectID: "p"}, config.BigQueryConfig{Dataset: "d", MarketplaceEventsTable: " "}, errTableNameRequired},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewClient(context.Background(), tc.gcp, tc.cfg, nil)
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestResolveLocationTrims(t *testing.T) {
	loc, err := resolveLocation(
		config.GCPConfig{ProjectID: " proj "},
		config.BigQueryConfig{Dataset: "market\n", MarketplaceEventsTable: " events"},
	)
	require.NoError(t, err)
	assert.Equal(t, location{project: "proj", dataset: "market", table: "events"}, loc)
}

func TestClientOptionsPrefersInlineCredentials(t *testing.T) {
	assert.Len(t, clientOptions(config.GCPConfig{
		CredentialsJSON:        `{"dummy": "value"}`,
		ApplicationCredentials: "/tmp/creds",
	}), 1)
	assert.Len(t, clientOptions(config.GCPConfig{ApplicationCredentials: "/tmp/creds"}), 1)
	assert.Empty(t, clientOptions(config.GCPConfig{CredentialsJSON: "  "}))
}

func TestNilClient(t *testing.T) {
	var c *Client
	assert.ErrorIs(t, c.InsertRows(context.Background(), "t", []any{1}), errClientNotInitialized)
	assert.ErrorIs(t, c.Ping(context.Background()), errClientNotInitialized)
	assert.Empty(t, c.EventsTable())
	assert.NoError(t, c.Close())
}

func TestExistsClassifiesMetadataErrors(t *testing.T) {
	ctx := context.Background()
	missing := func(context.Context) error { return &googleapi.Error{Code: http.StatusNotFound} }
	denied := func(context.Context) error {
		return fmt.Errorf("wrapped: %w", &googleapi.Error{Code: http.StatusForbidden})
	}

	assert.NoError(t, exists(ctx, "table", "events", func(context.Context) error { return nil }))
	assert.EqualError(t, exists(ctx, "dataset", "market", missing), `dataset "market" does not exist`)

	err := exists(ctx, "table", "events", denied)
	require.Error(t, err)
	assert.False(t, isNotFound(err))
	assert.Contains(t, err.Error(), `checking table "events"`)
}

func TestIsNotFoundUnwraps(t *testing.T) {
	assert.True(t, isNotFound(fmt.Errorf("wrapped: %w", &googleapi.Error{Code: http.StatusNotFound})))
	assert.False(t, isNotFound(&googleapi.Error{Code: http.StatusForbidden}))
	assert.False(t, isNotFound(nil))
}
