package routes

import (
	"net/http"
	"sort"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/go-cmp/cmp"

	"github.com/MrSnakeDoc/newsdesk/internal/httpserver/deps"
	"github.com/MrSnakeDoc/newsdesk/internal/logger"
)

func TestRegisterAllMountsEveryGroup(t *testing.T) {
	r := chi.NewRouter()
	groups := RegisterAll(r, deps.Deps{Logger: logger.Nop()})

	if diff := cmp.Diff([]string{"admin", "health", "public", "refresh"}, groups); diff != "" {
		t.Errorf("groups mismatch (-want +got):\n%s", diff)
	}

	var got []string
	err := chi.Walk(r, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		got = append(got, method+" "+route)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	sort.Strings(got)

	want := []string{
		"GET /approved",
		"GET /categories",
		"GET /feed",
		"GET /healthz",
		"GET /infra",
		"GET /pending",
		"GET /readyz",
		"GET /rejected",
		"GET /sources",
		"GET /stats",
		"POST /approve/{id}",
		"POST /login",
		"POST /logout",
		"POST /reconsider/{id}",
		"POST /refresh",
		"POST /reject/{id}",
		"POST /republish/{id}",
		"POST /unpublish/{id}",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("routes mismatch (-want +got):\n%s", diff)
	}
}

func TestRegisterTwicePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("duplicate registration did not panic")
		}
	}()
	Register("health", func(chi.Router, deps.Deps) {})
}
