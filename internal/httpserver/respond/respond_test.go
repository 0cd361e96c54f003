package respond

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MrSnakeDoc/newsdesk/internal/domain"
	"github.com/MrSnakeDoc/newsdesk/internal/logger"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		kind domain.Kind
		want int
	}{
		{domain.KindValidation, 400},
		{domain.KindUnauthorized, 401},
		{domain.KindNotFound, 404},
		{domain.KindForbidden, 403},
		{domain.KindConflict, 409},
		{domain.KindRateLimited, 429},
		{domain.KindPublication, 502},
		{domain.KindPersistence, 500},
		{domain.KindInternal, 500},
	}
	for _, tt := range tests {
		if got := StatusFor(tt.kind); got != tt.want {
			t.Errorf("StatusFor(%s) = %d, want %d", tt.kind, got, tt.want)
		}
	}
}

func TestErrorHidesInternalText(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, logger.Nop(), errors.New("dial tcp 10.0.0.5:6379: connection refused"))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Error struct{ Kind, Message string }
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Error.Kind != "internal" || body.Error.Message != "internal error" {
		t.Errorf("body = %+v", body)
	}
}

func TestErrorUnauthorizedChallenges(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, nil, domain.Unauthorized("missing token"))
	if rec.Code != http.StatusUnauthorized || rec.Header().Get("WWW-Authenticate") != "Bearer" {
		t.Errorf("status = %d, WWW-Authenticate = %q", rec.Code, rec.Header().Get("WWW-Authenticate"))
	}
}
