package version_test

import (
	"testing"

	"otapush/internal/version"
)

func TestIntersect(t *testing.T) {
	cases := []struct {
		a, b string
		want bool
	}{
		// exact vs exact
		{"1.3.0", "1.3.0", true},
		{"1.3.0", "2.0.0", false},

		// exact vs range
		{"1.3.0", "1.*", true},
		{"1.3.0", "1.x", true},
		{"1.3.0", "~1.3.0", true},
		{"1.3.0", ">=1.2.0 <2.0.0", true},
		{"2.0.0", "1.*", false},
		{"1.1.0", "~1.3.0", false},

		// range vs exact (symmetry)
		{"1.x", "1.3.0", true},
		{"1.*", "2.0.0", false},

		// range vs range
		{"1.x", "1.*", true},
		{"1.x", "1.x", true},
		{">=1.2.0 <2.0.0", "1.*", true},
		{"1.x", "2.x", false},

		// malformed targets never intersect
		{"", "1.0.0", false},
		{"not-a-version", "1.0.0", false},
		{"1.0.0", "banana", false},
		{"not-a-version", "not-a-version", false},
	}

	for _, c := range cases {
		if got := version.Intersect(c.a, c.b); got != c.want {
			t.Errorf("Intersect(%q, %q) = %v, want %v", c.a, c.b, got, c.want)
		}
	}
}
