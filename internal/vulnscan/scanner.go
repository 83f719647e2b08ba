package vulnscan

import (
	"github.com/kvesta/portvuln/pkg/service"
	"github.com/kvesta/portvuln/pkg/version"
	"github.com/kvesta/portvuln/pkg/vulnlib"
)

// Finding is one open port flagged by one catalog record.
type Finding struct {
	Port       int              `csv:"port" json:"port"`
	Service    string           `csv:"service" json:"service"`
	Version    string           `csv:"version" json:"version"`
	CVEID      string           `csv:"cve_id" json:"cve_id"`
	Severity   vulnlib.Severity `csv:"severity" json:"severity"`
	Summary    string           `csv:"summary" json:"summary"`
	Mitigation string           `csv:"mitigation" json:"mitigation"`
	Reference  string           `csv:"reference" json:"reference"`
}

// Correlator matches port observations against a catalog.
type Correlator struct {
	Normalizer *service.Normalizer
	Matcher    *version.Matcher
}

// NewCorrelator falls back to the default tables for nil arguments.
func NewCorrelator(n *service.Normalizer, m *version.Matcher) *Correlator {
	if n == nil {
		n = service.Default()
	}
	if m == nil {
		m = version.NewMatcher(version.Semver)
	}

	return &Correlator{
		Normalizer: n,
		Matcher:    m,
	}
}
