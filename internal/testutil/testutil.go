// Package testutil holds helpers shared by package tests
package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/alexbotov/highscore/internal/database"
)

// PostgresDSNEnv names the variable that enables PostgreSQL-backed tests
const PostgresDSNEnv = "HIGHSCORE_TEST_POSTGRES_DSN"

// SetupTestDB opens a migrated SQLite database in a temp directory
func SetupTestDB(t *testing.T) *database.DB {
	t.Helper()
	return open(t, database.DriverSQLite, filepath.Join(t.TempDir(), "highscores.sqlite3"))
}

// SetupPostgresDB opens a clean PostgreSQL database, skipping the test
// when HIGHSCORE_TEST_POSTGRES_DSN is not set
func SetupPostgresDB(t *testing.T) *database.DB {
	t.Helper()

	dsn := os.Getenv(PostgresDSNEnv)
	if dsn == "" {
		t.Skipf("%s not set", PostgresDSNEnv)
	}
	db := open(t, database.DriverPostgres, dsn)
	if err := db.CleanData(context.Background()); err != nil {
		t.Fatalf("Failed to clean data: %v", err)
	}
	return db
}

func open(t *testing.T, driver, dsn string) *database.DB {
	t.Helper()

	db, err := database.New(driver, dsn)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	if err := db.Migrate(context.Background()); err != nil {
		db.Close()
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// MakeRequest creates an HTTP test request. Strings and byte slices are sent
// verbatim; anything else is JSON encoded.
func MakeRequest(method, path string, body interface{}) *http.Request {
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	case []byte:
		reader = bytes.NewReader(b)
	default:
		jsonBody, _ := json.Marshal(b)
		reader = bytes.NewReader(jsonBody)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// DecodeJSON decodes the response body into the provided value
func DecodeJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}
