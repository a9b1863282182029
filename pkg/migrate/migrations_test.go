package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/catchyfabric/market-backend/pkg/migrate"
)

func readMigration(t *testing.T, suffix string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", "*_"+suffix+".sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no %s migration file found", suffix)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func TestOrdersMigrationEnforcesBalances(t *testing.T) {
	content := readMigration(t, "create_orders")

	checks := []string{
		"CREATE TYPE order_status AS ENUM",
		"'pending_approval'",
		"'deposit_paid'",
		"'paid_in_full'",
		"CREATE TABLE IF NOT EXISTS orders",
		"version integer NOT NULL DEFAULT 1",
		"CHECK (paid_cents + remaining_cents = total_cents)",
		"CHECK (deposit_cents IS NULL OR (deposit_cents > 0 AND deposit_cents <= total_cents))",
		"CREATE TABLE IF NOT EXISTS order_items",
		"FOREIGN KEY (order_id) REFERENCES orders(id) ON DELETE CASCADE",
		"DROP TABLE IF EXISTS orders",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestSupportingMigrationsContainTables(t *testing.T) {
	cases := map[string][]string{
		"create_users":                {"CREATE TYPE user_role AS ENUM ('buyer', 'seller', 'shipping', 'admin')", "CONSTRAINT users_email_key UNIQUE (email)"},
		"create_payment_transactions": {"CREATE TABLE IF NOT EXISTS payment_transactions", "CHECK (amount_cents > 0)"},
		"create_notifications":        {"CREATE TYPE notification_type AS ENUM ('order', 'system', 'payment', 'shipping', 'admin')", "title_ar text NOT NULL"},
		"create_logs":                 {"CREATE TABLE IF NOT EXISTS logs", "CHECK (status IN ('success', 'failure'))"},
		"create_outbox":               {"CREATE TABLE IF NOT EXISTS outbox_events", "CREATE TABLE IF NOT EXISTS outbox_dlq", "'order_payment_applied'"},
	}
	for suffix, checks := range cases {
		content := readMigration(t, suffix)
		for _, sub := range checks {
			if !strings.Contains(content, sub) {
				t.Errorf("%s: missing expected statement %q", suffix, sub)
			}
		}
	}
}

func TestValidateDirAcceptsRepositoryMigrations(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("expected repository migrations to validate: %v", err)
	}
}

func TestValidateDirRejectsBadFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "create_things.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := migrate.ValidateDir(dir); err == nil {
		t.Fatal("expected invalid filename to fail validation")
	}

	dir = t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "20260101000000_missing_down.sql"), []byte("-- +goose Up\nSELECT 1;\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := migrate.ValidateDir(dir); err == nil {
		t.Fatal("expected missing down marker to fail validation")
	}
}

func TestCreateSQLMigrationSanitizesName(t *testing.T) {
	dir := t.TempDir()
	path, err := migrate.CreateSQLMigration(dir, "Add Order Notes!", time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("create migration: %v", err)
	}
	if filepath.Base(path) != "20260302100000_add_order_notes.sql" {
		t.Fatalf("unexpected migration path %q", path)
	}
	if err := migrate.ValidateDir(dir); err != nil {
		t.Fatalf("generated migration should validate: %v", err)
	}
}

func TestCreateSQLMigrationBumpsPastNewestVersion(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	first, err := migrate.CreateSQLMigration(dir, "first", now)
	if err != nil {
		t.Fatalf("create first: %v", err)
	}
	second, err := migrate.CreateSQLMigration(dir, "second", now)
	if err != nil {
		t.Fatalf("create second: %v", err)
	}
	if filepath.Base(first) != "20260302100000_first.sql" || filepath.Base(second) != "20260302100001_second.sql" {
		t.Fatalf("unexpected versions %q %q", first, second)
	}
	if err := migrate.ValidateDir(dir); err != nil {
		t.Fatalf("generated migrations should validate: %v", err)
	}
}

func TestValidateDirReportsEveryProblem(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"bad_name.sql":                  "-- +goose Up\n-- +goose Down\n",
		"20260101000000_down_first.sql": "-- +goose Down\n-- +goose Up\n",
		"20260101000001_unbalanced.sql": "-- +goose Up\n-- +goose StatementBegin\n-- +goose Down\n",
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	err := migrate.ValidateDir(dir)
	if err == nil {
		t.Fatal("expected validation errors")
	}
	for _, want := range []string{"bad_name.sql", "Down before Up", "StatementBegin"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected %q in %v", want, err)
		}
	}
}

func TestParseVersion(t *testing.T) {
	if v, err := migrate.ParseVersion("20260301090000"); err != nil || v != 20260301090000 {
		t.Fatalf("unexpected parse result %d %v", v, err)
	}
	for _, raw := range []string{"", "2026", "2026030109000x"} {
		if _, err := migrate.ParseVersion(raw); err == nil {
			t.Errorf("expected %q to be rejected", raw)
		}
	}
}
