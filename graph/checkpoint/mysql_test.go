package checkpoint

import (
	"os"
	"testing"
)

// TestMySQLBackend exercises the Backend contract against a live MySQL
// server. Set MYSQL_TEST_DSN to run it, e.g.
//
//	MYSQL_TEST_DSN="user:pass@tcp(localhost:3306)/graphflow_test?parseTime=true" go test ./...
func TestMySQLBackend(t *testing.T) {
	dsn := os.Getenv("MYSQL_TEST_DSN")
	if dsn == "" {
		t.Skip("MYSQL_TEST_DSN not set; skipping MySQL backend tests")
	}

	backend, err := NewMySQLBackend(dsn)
	if err != nil {
		t.Fatalf("NewMySQLBackend() error: %v", err)
	}
	defer backend.Close()

	// start from a clean table so reruns don't hit key conflicts
	if _, err := backend.db.Exec("DELETE FROM checkpoints"); err != nil {
		t.Fatalf("truncate checkpoints: %v", err)
	}

	testBackend(t, backend)
}
