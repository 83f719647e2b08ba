// Package risk turns findings into a weighted score and a risk level.
package risk

import (
	"sort"

	"github.com/kvesta/portvuln/internal/vulnscan"
	"github.com/kvesta/portvuln/pkg/vulnlib"
)

const (
	LevelNone     = "No vulnerabilities found"
	LevelLow      = "Low Risk"
	LevelMedium   = "Medium Risk"
	LevelHigh     = "High Risk"
	LevelCritical = "Critical Risk"
)

type Assessment struct {
	TotalScore        int                      `json:"total_score"`
	TotalFindings     int                      `json:"total_findings"`
	SeverityBreakdown map[vulnlib.Severity]int `json:"severity_breakdown"`
	RiskLevel         string                   `json:"risk_level"`
}

// PortScore is the score of the findings on a single port.
type PortScore struct {
	Port      int    `json:"port"`
	Score     int    `json:"score"`
	Findings  int    `json:"findings"`
	RiskLevel string `json:"risk_level"`
}

type Scorer struct {
	weights map[vulnlib.Severity]int
}

func DefaultWeights() map[vulnlib.Severity]int {
	return map[vulnlib.Severity]int{
		vulnlib.SeverityLow:      1,
		vulnlib.SeverityMedium:   3,
		vulnlib.SeverityHigh:     5,
		vulnlib.SeverityCritical: 8,
		vulnlib.SeverityUnknown:  2,
	}
}

// New copies weights over the defaults, so a partial table is fine.
func New(weights map[vulnlib.Severity]int) *Scorer {
	s := &Scorer{weights: DefaultWeights()}

	keys := make([]string, 0, len(weights))
	for sev := range weights {
		keys = append(keys, string(sev))
	}
	sort.Strings(keys)

	for _, k := range keys {
		s.weights[vulnlib.ParseSeverity(k)] = weights[vulnlib.Severity(k)]
	}
	return s
}

func (s *Scorer) Weight(sev vulnlib.Severity) int {
	return s.weights[vulnlib.ParseSeverity(string(sev))]
}

// Score sums the weights of findings. Every severity is present in the
// breakdown, zero or not.
func (s *Scorer) Score(findings []vulnscan.Finding) Assessment {
	a := Assessment{
		SeverityBreakdown: map[vulnlib.Severity]int{},
	}
	for _, sev := range vulnlib.Severities() {
		a.SeverityBreakdown[sev] = 0
	}

	for _, f := range findings {
		sev := vulnlib.ParseSeverity(string(f.Severity))
		a.SeverityBreakdown[sev]++
		a.TotalScore += s.weights[sev]
	}

	a.TotalFindings = len(findings)
	a.RiskLevel = Level(a.TotalScore)

	return a
}

// PortScores scores every port that has findings, highest score first.
func (s *Scorer) PortScores(findings []vulnscan.Finding) []PortScore {
	byPort := map[int]*PortScore{}
	order := []int{}

	for _, f := range findings {
		ps, ok := byPort[f.Port]
		if !ok {
			ps = &PortScore{Port: f.Port}
			byPort[f.Port] = ps
			order = append(order, f.Port)
		}
		ps.Score += s.Weight(f.Severity)
		ps.Findings++
	}

	scores := make([]PortScore, 0, len(order))
	for _, port := range order {
		ps := byPort[port]
		ps.RiskLevel = Level(ps.Score)
		scores = append(scores, *ps)
	}

	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].Score > scores[j].Score
	})

	return scores
}

// Level maps a total score onto its risk level, upper bounds inclusive.
func Level(score int) string {
	switch {
	case score <= 0:
		return LevelNone
	case score <= 5:
		return LevelLow
	case score <= 15:
		return LevelMedium
	case score <= 30:
		return LevelHigh
	default:
		return LevelCritical
	}
}
