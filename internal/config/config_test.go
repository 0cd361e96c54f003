package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

// expectPanic fails t unless fn panics
func expectPanic(t *testing.T, name string, fn func()) {
	t.Helper()
	defer func() {
		if r := recover(); r == nil {
			t.Errorf("%s should have panicked", name)
		}
	}()
	fn()
}

func TestRequireEnv(t *testing.T) {
	t.Setenv("NEWSDESK_TEST_VAR", "test_value")
	if got := requireEnv("NEWSDESK_TEST_VAR"); got != "test_value" {
		t.Errorf("requireEnv() = %q, want test_value", got)
	}
	expectPanic(t, "requireEnv(missing)", func() { requireEnv("NEWSDESK_TEST_VAR_MISSING") })
}

func TestRequireEnvInt(t *testing.T) {
	tests := []struct {
		name      string
		value     string
		expected  int
		wantPanic bool
	}{
		{name: "valid integer", value: "42", expected: 42},
		{name: "invalid integer", value: "not_a_number", wantPanic: true},
		{name: "missing variable", value: "", wantPanic: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("NEWSDESK_TEST_INT", tt.value)
			if tt.wantPanic {
				expectPanic(t, "requireEnvInt()", func() { requireEnvInt("NEWSDESK_TEST_INT") })
				return
			}
			if got := requireEnvInt("NEWSDESK_TEST_INT"); got != tt.expected {
				t.Errorf("requireEnvInt() = %d, want %d", got, tt.expected)
			}
		})
	}
}

func TestGetenvInt(t *testing.T) {
	tests := []struct {
		value string
		def   int
		want  int
	}{
		{"25", 5, 25},
		{"", 5, 5},
		{"five", 5, 5},
	}
	for _, tt := range tests {
		t.Setenv("NEWSDESK_TEST_MAX_ITEMS", tt.value)
		if got := getenvInt("NEWSDESK_TEST_MAX_ITEMS", tt.def); got != tt.want {
			t.Errorf("getenvInt(%q, %d) = %d, want %d", tt.value, tt.def, got, tt.want)
		}
	}
}

func TestMustDuration(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		def      time.Duration
		expected time.Duration
	}{
		{name: "valid duration", value: "45m", def: 30 * time.Minute, expected: 45 * time.Minute},
		{name: "invalid duration uses default", value: "half an hour", def: 30 * time.Minute, expected: 30 * time.Minute},
		{name: "missing variable uses default", value: "", def: 2 * time.Second, expected: 2 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("NEWSDESK_TEST_DURATION", tt.value)
			if got := mustDuration("NEWSDESK_TEST_DURATION", tt.def); got != tt.expected {
				t.Errorf("mustDuration() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestMustBool(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		def      bool
		expected bool
	}{
		{name: "true value", value: "true", def: false, expected: true},
		{name: "numeric false", value: "0", def: true, expected: false},
		{name: "invalid value uses default", value: "nope", def: true, expected: true},
		{name: "missing variable uses default", value: "", def: false, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("NEWSDESK_TEST_BOOL", tt.value)
			if got := mustBool("NEWSDESK_TEST_BOOL", tt.def); got != tt.expected {
				t.Errorf("mustBool() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestSplitAndTrim(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		expected []string
	}{
		{name: "empty", value: "", expected: nil},
		{name: "single value", value: "news.example.com", expected: []string{"news.example.com"}},
		{name: "spaces and quotes", value: ` "a.example", 'b.example' ,, c.example`, expected: []string{"a.example", "b.example", "c.example"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.expected, splitAndTrim(tt.value)); diff != "" {
				t.Errorf("splitAndTrim() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	t.Setenv("NEWSDESK_ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("NEWSDESK_OPERATOR_USER", "editor")
	t.Setenv("NEWSDESK_OPERATOR_PASSWORD", "s3cret")
	t.Setenv("NEWSDESK_STORE", "SQLite")
	t.Setenv("NEWSDESK_SCRAPE_INTERVAL", "15m")
	t.Setenv("NEWSDESK_ALLOWED_CIDRS", "10.0.0.0/8, 192.168.1.4")

	cfg := Load()

	if cfg.Store != StoreSQLite {
		t.Errorf("Store = %q, want %q", cfg.Store, StoreSQLite)
	}
	if cfg.ScrapeInterval != 15*time.Minute {
		t.Errorf("ScrapeInterval = %v", cfg.ScrapeInterval)
	}
	if cfg.FeedCapacity != 100 || cfg.SummaryLimit != 150 || !cfg.RespectRobots {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if diff := cmp.Diff([]string{"10.0.0.0/8", "192.168.1.4"}, cfg.AllowedCIDRS); diff != "" {
		t.Errorf("AllowedCIDRS mismatch (-want +got):\n%s", diff)
	}
	if cfg.Location().String() != "America/Sao_Paulo" {
		t.Errorf("Location = %v", cfg.Location())
	}
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	content := "NEWSDESK_OPERATOR_USER=from-file\nNEWSDESK_OPERATOR_PASSWORD=pw\nNEWSDESK_STORE=memory\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("NEWSDESK_ENV_FILE", path)
	// the real environment wins over the file
	t.Setenv("NEWSDESK_OPERATOR_USER", "from-env")
	for _, key := range []string{"NEWSDESK_OPERATOR_PASSWORD", "NEWSDESK_STORE"} {
		t.Setenv(key, "")
		if err := os.Unsetenv(key); err != nil {
			t.Fatal(err)
		}
	}

	cfg := Load()

	if cfg.OperatorUser != "from-env" {
		t.Errorf("OperatorUser = %q, want from-env", cfg.OperatorUser)
	}
	if cfg.Store != StoreMemory {
		t.Errorf("Store = %q, want memory", cfg.Store)
	}
}

func TestLoadUnknownStorePanics(t *testing.T) {
	t.Setenv("NEWSDESK_ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("NEWSDESK_OPERATOR_USER", "editor")
	t.Setenv("NEWSDESK_OPERATOR_PASSWORD", "s3cret")
	t.Setenv("NEWSDESK_STORE", "cassandra")

	expectPanic(t, "Load()", func() { Load() })
}

func TestRedacted(t *testing.T) {
	cfg := &Config{OperatorPassword: "pw", OperatorToken: "tok", RedisUser: "default"}
	r := cfg.Redacted()
	if r.OperatorPassword == "pw" || r.OperatorToken == "tok" || r.RedisUser == "default" {
		t.Errorf("secrets leaked: %+v", r)
	}
	if cfg.OperatorPassword != "pw" {
		t.Error("Redacted modified the receiver")
	}
}
