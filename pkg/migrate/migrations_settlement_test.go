package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDepositMigrationContainsPendingUniqueIndex(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_deposit_requests.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no deposit_requests migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE TABLE IF NOT EXISTS deposit_requests",
		"ux_deposit_requests_pending",
		"WHERE status = 'pending'",
		"CHECK (amount_paise > 0)",
		"DROP TABLE IF EXISTS deposit_requests",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestCoinTransactionMigrationContainsRewardIndex(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_coin_transactions.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no coin_transactions migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"ux_coin_tx_order_reward",
		"WHERE type = 'order_reward'",
		"DROP TABLE IF EXISTS coin_transactions",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}
