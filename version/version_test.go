package version

import (
	"fmt"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		tag  string
		want string
	}{
		{tag: "v1.2.3", want: "1.2.3"},
		{tag: "1.2.3", want: "1.2.3"},
		{tag: "nightly", want: "nightly"},
		{tag: "", want: ""},
		{tag: "release-1.4", want: "1.4"},
		{tag: "v2.0.0-rc.1+build5", want: "2.0.0-rc.1+build5"},
		{tag: "myapp/v0.9.1", want: "0.9.1"},
		{tag: "1.2.3 (stable)", want: "1.2.3"},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("Tag '%s' normalizes to '%s'", tt.tag, tt.want), func(t *testing.T) {
			if got := Normalize(tt.tag); got != tt.want {
				t.Errorf("Normalize() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsNewer(t *testing.T) {
	tests := []struct {
		local  string
		remote string
		want   bool
	}{
		{local: "1.2.3", remote: "1.3.0", want: true},
		{local: "1.3.0", remote: "1.2.3", want: false},
		{local: "1.2", remote: "1.2.0", want: false},
		{local: "1.2.0", remote: "1.2", want: false},
		{local: "1.2.3", remote: "1.2.3", want: false},
		{local: "1.2", remote: "1.2.1", want: true},
		{local: "0.0.0", remote: "0.0.1", want: true},
		{local: "0.0.0", remote: "2024.10.1", want: true},
		{local: "1.10.0", remote: "1.9.9", want: false},
		{local: "1.9.0", remote: "1.10.0", want: true},
		{local: "1.0.0-rc1", remote: "1.0.0", want: false},
		{local: "1.0.0", remote: "1.0.0-rc1", want: false},
		{local: "nightly", remote: "0.1", want: true},
		{local: "2.0", remote: "nightly", want: false},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s vs %s", tt.local, tt.remote), func(t *testing.T) {
			if got := IsNewer(tt.local, tt.remote); got != tt.want {
				t.Errorf("IsNewer(%q, %q) = %v, want %v", tt.local, tt.remote, got, tt.want)
			}
		})
	}
}
