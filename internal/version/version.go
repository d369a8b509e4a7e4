// Package version decides whether two target application-version
// expressions can match the same device. Each side is either an exact
// semantic version ("1.3.0") or a range ("1.x", "1.*", "~1.2.3",
// ">=1.2.0 <2.0.0").
package version

import (
	"regexp"
	"strings"

	semver "github.com/Masterminds/semver/v3"
)

var versionToken = regexp.MustCompile(`\d+(?:\.(?:\d+|[xX*]))?(?:\.(?:\d+|[xX*]))?`)

// Intersect reports whether targets a and b overlap. Malformed expressions
// never intersect: a release whose target cannot be parsed is simply not
// diff-eligible.
func Intersect(a, b string) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	if a == "" || b == "" {
		return false
	}
	if a == b {
		return parsable(a)
	}

	av, aExact := exact(a)
	bv, bExact := exact(b)

	switch {
	case aExact && bExact:
		return av.Equal(bv)
	case aExact:
		bc, err := semver.NewConstraint(b)
		if err != nil {
			return false
		}
		return bc.Check(av)
	case bExact:
		ac, err := semver.NewConstraint(a)
		if err != nil {
			return false
		}
		return ac.Check(bv)
	}

	// Range vs range: approximate by probing each side's version tokens
	// (wildcards grounded to zero) against the other side's constraint.
	ac, aerr := semver.NewConstraint(a)
	bc, berr := semver.NewConstraint(b)
	if aerr != nil || berr != nil {
		return false
	}
	return probe(a, bc) || probe(b, ac)
}

func exact(expr string) (*semver.Version, bool) {
	if strings.ContainsAny(expr, "*xX~^<>| -") {
		// Treat wildcard/operator forms as ranges even when the version
		// parser would accept them.
		if _, err := semver.StrictNewVersion(expr); err != nil {
			return nil, false
		}
	}
	v, err := semver.NewVersion(expr)
	return v, err == nil
}

func parsable(expr string) bool {
	if _, err := semver.NewVersion(expr); err == nil {
		return true
	}
	_, err := semver.NewConstraint(expr)
	return err == nil
}

// probe extracts version-shaped tokens from a range expression and checks
// whether any of them satisfies the other constraint.
func probe(expr string, c *semver.Constraints) bool {
	for _, tok := range versionToken.FindAllString(expr, -1) {
		grounded := strings.NewReplacer("x", "0", "X", "0", "*", "0").Replace(tok)
		v, err := semver.NewVersion(grounded)
		if err != nil {
			continue
		}
		if c.Check(v) {
			return true
		}
	}
	return false
}
