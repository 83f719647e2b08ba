package version

import (
	"fmt"
	"regexp"

	version2 "github.com/hashicorp/go-version"
	rpmversion "github.com/knqyf263/go-rpm-version"
)

// Unknown is reported by the port scanner when version detection failed.
const Unknown = "unknown"

type Scheme string

const (
	// Semver orders dotted numeric versions segment by segment,
	// missing trailing segments count as zero.
	Semver Scheme = "semver"
	// RPM orders distro package versions such as "2.4.6-93.el7".
	RPM Scheme = "rpm"
)

var leadingDigit = regexp.MustCompile(`^[0-9]`)

// Matcher evaluates version ranges with one ordering scheme.
type Matcher struct {
	scheme Scheme
}

var defaultMatcher = NewMatcher(Semver)

func NewMatcher(scheme Scheme) *Matcher {
	if scheme == "" {
		scheme = Semver
	}
	return &Matcher{scheme: scheme}
}

func (m *Matcher) Scheme() Scheme {
	return m.scheme
}

func (m *Matcher) order(a, b string) (int, error) {
	switch m.scheme {
	case RPM:
		if !leadingDigit.MatchString(a) || !leadingDigit.MatchString(b) {
			return 0, fmt.Errorf("not a version: %q / %q", a, b)
		}
		return rpmversion.NewVersion(a).Compare(rpmversion.NewVersion(b)), nil
	default:
		if !plainVersion.MatchString(a) || !plainVersion.MatchString(b) {
			return 0, fmt.Errorf("not a dotted numeric version: %q / %q", a, b)
		}
		va, err := version2.NewVersion(a)
		if err != nil {
			return 0, err
		}
		vb, err := version2.NewVersion(b)
		if err != nil {
			return 0, err
		}
		return va.Compare(vb), nil
	}
}

// Compare reports whether "observed <op> target" holds. Unparseable versions
// and unknown operators yield false.
func (m *Matcher) Compare(observed string, op Operator, target string) bool {
	c, err := m.order(observed, target)
	if err != nil {
		return false
	}

	switch op {
	case GTE:
		return c >= 0
	case LTE:
		return c <= 0
	case GT:
		return c > 0
	case LT:
		return c < 0
	case EQ:
		return c == 0
	default:
		return false
	}
}

// Match reports whether observed satisfies every predicate of rng.
//
// An "unknown" observed version always matches, so that a failed version
// probe reports the service as vulnerable. An empty observed version or a
// range without any usable predicate never matches.
func (m *Matcher) Match(observed, rng string) bool {
	if observed == Unknown {
		return true
	}
	if observed == "" {
		return false
	}

	preds := ParsePredicates(rng)
	if len(preds) == 0 {
		return false
	}

	for _, p := range preds {
		if !m.Compare(observed, p.Operator, p.Value) {
			return false
		}
	}

	return true
}

// Compare uses the Semver scheme.
func Compare(observed string, op Operator, target string) bool {
	return defaultMatcher.Compare(observed, op, target)
}

// Match uses the Semver scheme.
func Match(observed, rng string) bool {
	return defaultMatcher.Match(observed, rng)
}
