package version

import "testing"

func TestString(t *testing.T) {
	orig := []string{Version, GitSHA, BuildTime}
	defer func() { Version, GitSHA, BuildTime = orig[0], orig[1], orig[2] }()

	if got := String(); got != "dev (unknown, built unknown)" {
		t.Errorf("String() = %q", got)
	}

	Version, GitSHA, BuildTime = "v1.2.0", "abc1234", "2025-06-01T00:00:00Z"
	if got, want := String(), "v1.2.0 (abc1234, built 2025-06-01T00:00:00Z)"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
