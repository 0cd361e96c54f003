package version

import (
	"strings"
	"testing"
)

func TestDefaultsAreFilled(t *testing.T) {
	for name, v := range map[string]string{"Version": Version, "Commit": Commit, "BuildDate": BuildDate, "GoVersion": GoVersion} {
		if strings.TrimSpace(v) == "" {
			t.Errorf("%s is empty", name)
		}
	}
}

func TestString(t *testing.T) {
	v, c, b, g := Version, Commit, BuildDate, GoVersion
	t.Cleanup(func() { Version, Commit, BuildDate, GoVersion = v, c, b, g })

	Version, Commit, BuildDate, GoVersion = "v1.2.0", "abc1234", "2026-03-01T12:00:00Z", "go1.25.5"

	want := "v1.2.0 (commit=abc1234, built=2026-03-01T12:00:00Z, go=go1.25.5)"
	if got := String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
