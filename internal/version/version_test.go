package version

import "testing"

func setVersion(t *testing.T, version, commit, buildTime string) {
	t.Helper()
	v, c, b := Version, Commit, BuildTime
	t.Cleanup(func() { Version, Commit, BuildTime = v, c, b })
	Version, Commit, BuildTime = version, commit, buildTime
}

func TestString(t *testing.T) {
	setVersion(t, "1.2.3", "abc1234", "2025-01-01T00:00:00Z")

	if got, want := String(), "1.2.3 (abc1234) built 2025-01-01T00:00:00Z"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestUserAgent(t *testing.T) {
	tests := []struct {
		version string
		want    string
	}{
		{"dev", "tickwire/dev"},
		{"1.2.3", "tickwire/1.2.3"},
		{"0.9.0-rc.1", "tickwire/0.9.0-rc.1"},
	}

	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			setVersion(t, tt.version, "abc1234", "unknown")
			if got := UserAgent(); got != tt.want {
				t.Errorf("UserAgent() = %q, want %q", got, tt.want)
			}
		})
	}
}
