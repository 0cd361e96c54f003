package redis

import (
	"testing"
	"time"

	"github.com/MrSnakeDoc/newsdesk/internal/domain"
)

func TestCollectionKey(t *testing.T) {
	tests := []struct {
		c    domain.Collection
		want string
	}{
		{domain.CollectionPending, "newsdesk:collection:pending"},
		{domain.CollectionApproved, "newsdesk:collection:approved"},
		{domain.CollectionRejected, "newsdesk:collection:rejected"},
	}
	for _, tt := range tests {
		if got := CollectionKey(tt.c); got != tt.want {
			t.Errorf("CollectionKey(%s) = %q, want %q", tt.c, got, tt.want)
		}
	}
}

func TestConnectOptionsValidate(t *testing.T) {
	valid := ConnectOptions{ConnectTimeout: time.Second, RetryInterval: time.Millisecond, MaxWait: time.Second, PingTimeout: time.Second}
	if err := valid.validate(); err != nil {
		t.Fatalf("validate() on valid options = %v", err)
	}

	tests := map[string]func(*ConnectOptions){
		"no connect timeout": func(o *ConnectOptions) { o.ConnectTimeout = 0 },
		"no retry interval":  func(o *ConnectOptions) { o.RetryInterval = 0 },
		"no max wait":        func(o *ConnectOptions) { o.MaxWait = -1 },
		"no ping timeout":    func(o *ConnectOptions) { o.PingTimeout = 0 },
		"negative threshold": func(o *ConnectOptions) { o.WarnThreshold = -1 },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			o := valid
			mutate(&o)
			if err := o.validate(); err == nil {
				t.Error("validate() = nil, want error")
			}
		})
	}
}
