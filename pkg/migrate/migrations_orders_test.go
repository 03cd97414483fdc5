package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bookhaven/storefront-backend/pkg/migrate"
)

func TestOrdersMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "*_create_orders.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS orders",
		"CHECK (delivery_type IN ('physical', 'pdf'))",
		"CHECK (status IN ('pending', 'payment_pending_verification', 'completed'))",
		"CHECK (transport_fee >= 0)",
		"idx_orders_payment_reference",
		"DROP TABLE IF EXISTS orders",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestBackofficeAlertsMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "*_create_backoffice_alerts.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS backoffice_alerts",
		"CHECK (severity IN ('success', 'warning', 'error', 'info'))",
		"FOREIGN KEY (order_id) REFERENCES orders(id) ON DELETE SET NULL",
		"DROP TABLE IF EXISTS backoffice_alerts",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestMigrationDirValidates(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("validate migrations dir: %v", err)
	}
}

func readMigration(t *testing.T, pattern string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", pattern))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no migration matching %q", pattern)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}
