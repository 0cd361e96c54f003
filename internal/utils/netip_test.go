package utils

import (
	"net/http/httptest"
	"net/netip"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseAddr(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"10.0.0.9", "10.0.0.9", true},
		{"10.0.0.9:1234", "10.0.0.9", true},
		{"[2001:db8::1]:443", "2001:db8::1", true},
		{"2001:db8::1", "2001:db8::1", true},
		{"[2001:db8::1]", "2001:db8::1", true},
		{"::ffff:192.0.2.7", "192.0.2.7", true},
		{" 192.0.2.1 ", "192.0.2.1", true},
		{"", "", false},
		{"unknown", "", false},
	}
	for _, tt := range tests {
		addr, ok := ParseAddr(tt.in)
		if ok != tt.ok {
			t.Errorf("ParseAddr(%q) ok = %v, want %v", tt.in, ok, tt.ok)
			continue
		}
		if ok && addr.String() != tt.want {
			t.Errorf("ParseAddr(%q) = %s, want %s", tt.in, addr, tt.want)
		}
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		headers    map[string]string
		trustProxy bool
		want       string
	}{
		{
			name:    "remote addr only",
			headers: map[string]string{"X-Forwarded-For": "203.0.113.5"},
			want:    "192.0.2.1",
		},
		{
			name:       "cloudflare header first",
			headers:    map[string]string{"CF-Connecting-IP": "198.51.100.7", "X-Forwarded-For": "203.0.113.5"},
			trustProxy: true,
			want:       "198.51.100.7",
		},
		{
			name:       "forwarded header",
			headers:    map[string]string{"Forwarded": `for="[2001:db8::7]:4711";proto=https, for=203.0.113.9`},
			trustProxy: true,
			want:       "2001:db8::7",
		},
		{
			name:       "left-most forwarded-for",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.5, 10.0.0.1"},
			trustProxy: true,
			want:       "203.0.113.5",
		},
		{
			name:       "garbage headers fall back to remote addr",
			headers:    map[string]string{"X-Forwarded-For": "unknown", "X-Real-IP": "nope"},
			trustProxy: true,
			want:       "192.0.2.1",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = "192.0.2.1:5555"
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := ClientIP(r, tt.trustProxy); got != tt.want {
				t.Errorf("ClientIP() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestAddrSet(t *testing.T) {
	set, invalid := ParseAddrSet([]string{"10.0.0.0/8", "192.168.1.4", " ", "2001:db8::/32", "not-an-ip"})

	if diff := cmp.Diff([]string{"not-an-ip"}, invalid); diff != "" {
		t.Errorf("invalid entries mismatch (-want +got):\n%s", diff)
	}
	if set.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", set.Len())
	}

	tests := map[string]bool{
		"10.20.30.40":      true,
		"::ffff:10.1.1.1":  true,
		"192.168.1.4":      true,
		"192.168.1.5":      false,
		"2001:db8:abcd::1": true,
		"2001:db9::1":      false,
	}
	for in, want := range tests {
		if got := set.Contains(netip.MustParseAddr(in)); got != want {
			t.Errorf("Contains(%s) = %v, want %v", in, got, want)
		}
	}
	if set.Contains(netip.Addr{}) {
		t.Error("zero address matched")
	}
}

func TestEmptyAddrSet(t *testing.T) {
	set, invalid := ParseAddrSet(nil)
	if !set.Empty() || invalid != nil {
		t.Errorf("ParseAddrSet(nil) = %+v, %v", set, invalid)
	}
}
