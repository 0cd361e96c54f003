package mw

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/MrSnakeDoc/newsdesk/internal/auth"
	"github.com/MrSnakeDoc/newsdesk/internal/logger"
)

type staticAuth map[string]string

func (s staticAuth) Authenticate(token string) (string, bool) {
	who, ok := s[token]
	return who, ok
}

func TestRequireOperator(t *testing.T) {
	var seen string
	h := RequireOperator(staticAuth{"good": "editor"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = auth.OperatorFrom(r.Context())
	}))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic good", http.StatusUnauthorized},
		{"unknown token", "Bearer bad", http.StatusUnauthorized},
		{"valid", "Bearer good", http.StatusOK},
		{"lower-case scheme", "bearer good", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = ""
			req := httptest.NewRequest(http.MethodGet, "/pending", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
			if tt.want == http.StatusUnauthorized && rec.Header().Get("WWW-Authenticate") != "Bearer" {
				t.Error("missing WWW-Authenticate challenge")
			}
			if tt.want == http.StatusOK && seen != "editor" {
				t.Errorf("operator = %q, want editor", seen)
			}
		})
	}
}

func TestCORSPreflight(t *testing.T) {
	called := false
	h := CORS()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))

	req := httptest.NewRequest(http.MethodOptions, "/approve/x", nil)
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent || called {
		t.Errorf("preflight status = %d, handler called = %v", rec.Code, called)
	}
	if rec.Header().Get("Access-Control-Allow-Headers") == "" {
		t.Error("missing Access-Control-Allow-Headers")
	}
}

func TestRateLimitRejectsPastBurst(t *testing.T) {
	h := RateLimit(RateLimitConfig{Name: "login", Burst: 2, PerMin: 1})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	codes := make([]int, 0, 3)
	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = "10.0.0.9:1234"
		last = httptest.NewRecorder()
		h.ServeHTTP(last, req)
		codes = append(codes, last.Code)
	}
	if codes[0] != 200 || codes[1] != 200 || codes[2] != http.StatusTooManyRequests {
		t.Errorf("codes = %v, want [200 200 429]", codes)
	}
	if got := last.Header().Get("Retry-After"); got != "60" {
		t.Errorf("Retry-After = %q, want 60", got)
	}

	// another client has its own bucket
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.RemoteAddr = "10.0.0.10:1234"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("second client status = %d", rec.Code)
	}
}

func TestLimiterRefills(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l := NewLimiter(RateLimitConfig{Burst: 1, PerMin: 60, Now: func() time.Time { return now }})

	if ok, _, _ := l.Take("ip"); !ok {
		t.Fatal("first request rejected")
	}
	if ok, _, wait := l.Take("ip"); ok || wait != time.Second {
		t.Errorf("second request ok = %v, wait = %v", ok, wait)
	}
	now = now.Add(time.Second)
	if ok, _, _ := l.Take("ip"); !ok {
		t.Error("bucket did not refill after one second")
	}
}

func TestLimiterBoundsClients(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l := NewLimiter(RateLimitConfig{Burst: 1, PerMin: 1, MaxEntries: 2, Now: func() time.Time { return now }})

	for _, key := range []string{"a", "b", "c"} {
		now = now.Add(time.Second)
		l.Take(key)
	}
	if got := l.Len(); got != 2 {
		t.Errorf("Len() = %d, want 2", got)
	}
	// "a" was evicted, so it starts with a full bucket again
	if ok, _, _ := l.Take("a"); !ok {
		t.Error("evicted client should start over")
	}
}

func TestLimiterSweepsIdleClients(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l := NewLimiter(RateLimitConfig{Burst: 1, PerMin: 1, IdleTTL: time.Minute, Now: func() time.Time { return now }})

	l.Take("a")
	l.Take("b")
	now = now.Add(5 * time.Minute)
	l.Take("c")
	if got := l.Len(); got != 1 {
		t.Errorf("Len() = %d, want 1 after sweep", got)
	}
}

func TestAllowOnlyCIDRS(t *testing.T) {
	h := AllowOnlyCIDRS([]string{"10.0.0.0/8", "bogus"}, false, logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	for addr, want := range map[string]int{"10.1.2.3:80": 200, "192.168.1.1:80": 403, "[::ffff:10.9.9.9]:80": 200} {
		req := httptest.NewRequest(http.MethodPost, "/refresh", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != want {
			t.Errorf("%s: status = %d, want %d", addr, rec.Code, want)
		}
	}
}

func TestAllowOnlyCIDRSEmptyIsPassthrough(t *testing.T) {
	h := AllowOnlyCIDRS(nil, false, logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	req.RemoteAddr = "203.0.113.1:80"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestHostRules(t *testing.T) {
	rules := newHostRules([]string{"News.Example.com", "*.example.org", ""})
	tests := []struct {
		host string
		want bool
	}{
		{"news.example.com", true},
		{"NEWS.example.com:8080", true},
		{"news.example.com.", true},
		{"api.example.org", true},
		{"example.org", false},
		{"badexample.org", false},
		{"other.example.com", false},
	}
	for _, tt := range tests {
		if got := rules.match(tt.host); got != tt.want {
			t.Errorf("match(%q) = %v, want %v", tt.host, got, tt.want)
		}
	}
}

func TestEnforceHost(t *testing.T) {
	h := EnforceHost([]string{"news.example.com"}, logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	for host, want := range map[string]int{"news.example.com": 200, "evil.test": 403} {
		req := httptest.NewRequest(http.MethodPost, "/refresh", nil)
		req.Host = host
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != want {
			t.Errorf("%s: status = %d, want %d", host, rec.Code, want)
		}
	}
}
