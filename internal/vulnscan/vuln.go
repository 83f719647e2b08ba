package vulnscan

import (
	"log"

	"github.com/kvesta/portvuln/config"
	"github.com/kvesta/portvuln/pkg/portscan"
	"github.com/kvesta/portvuln/pkg/version"
	"github.com/kvesta/portvuln/pkg/vulnlib"
)

type findingKey struct {
	port  int
	cveID string
}

// Correlate returns the findings in observation order, then catalog order.
// A port whose version is unknown is flagged by every candidate record.
func (c *Correlator) Correlate(observations []portscan.Observation, catalog *vulnlib.Catalog) []Finding {
	findings := []Finding{}
	seen := map[findingKey]bool{}

	for _, obs := range observations {
		name := c.Normalizer.Normalize(obs.Service, obs.Product)

		candidates := catalog.Lookup(name)
		if len(candidates) == 0 {
			if hint := catalog.Suggest(name); hint != "" {
				log.Printf("  Port %d (%s): No CVEs found in database, did you mean %s?", obs.Port, obs.Service, hint)
			} else {
				log.Printf("  Port %d (%s): No CVEs found in database", obs.Port, obs.Service)
			}
			continue
		}

		for _, r := range candidates {
			if !c.vulnerable(obs.Version, r.VersionRange) {
				continue
			}

			key := findingKey{port: obs.Port, cveID: r.ID}
			if seen[key] {
				continue
			}
			seen[key] = true

			findings = append(findings, Finding{
				Port:       obs.Port,
				Service:    obs.Service,
				Version:    obs.Version,
				CVEID:      r.ID,
				Severity:   vulnlib.ParseSeverity(string(r.Severity)),
				Summary:    r.Summary,
				Mitigation: r.Mitigation,
				Reference:  r.Reference,
			})
			log.Printf(config.Pink("  Port %d: Found %s (%s)"), obs.Port, r.ID, r.Severity)
		}
	}

	return findings
}

func (c *Correlator) vulnerable(observed, rng string) bool {
	if observed == version.Unknown {
		return true
	}
	return c.Matcher.Match(observed, rng)
}
