package internal

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/kvesta/portvuln/config"
	"github.com/kvesta/portvuln/internal/risk"
	"github.com/kvesta/portvuln/internal/vulnscan"
	"github.com/kvesta/portvuln/pkg/portscan"
	"github.com/kvesta/portvuln/pkg/vulnlib"

	"k8s.io/apimachinery/pkg/util/json"
)

var ErrInvalidTarget = errors.New("invalid target address")

// Result is the outcome of one scan. Only Success, Error and Target are
// set when the scan failed.
type Result struct {
	Success bool
	ScanID  string
	Target  string

	OpenPorts      []portscan.Observation
	Findings       []vulnscan.Finding
	RiskAssessment risk.Assessment
	PortScores     []risk.PortScore

	Error string
	// Err keeps the cause for errors.Is.
	Err error
}

type successJSON struct {
	Success        bool                   `json:"success"`
	ScanID         string                 `json:"scan_id"`
	Target         string                 `json:"target"`
	OpenPorts      []portscan.Observation `json:"open_ports"`
	Findings       []vulnscan.Finding     `json:"findings"`
	RiskAssessment risk.Assessment        `json:"risk_assessment"`
	PortScores     []risk.PortScore       `json:"port_scores"`
}

type failureJSON struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Target  string `json:"target"`
}

func (r *Result) MarshalJSON() ([]byte, error) {
	if !r.Success {
		return json.Marshal(failureJSON{Error: r.Error, Target: r.Target})
	}

	return json.Marshal(successJSON{
		Success:        true,
		ScanID:         r.ScanID,
		Target:         r.Target,
		OpenPorts:      r.OpenPorts,
		Findings:       r.Findings,
		RiskAssessment: r.RiskAssessment,
		PortScores:     r.PortScores,
	})
}

func failed(target string, err error) *Result {
	log.Printf(config.Red("Scan failed: %v"), err)
	return &Result{
		Target: target,
		Error:  err.Error(),
		Err:    err,
	}
}

// Pipeline wires the collaborators of a scan. It keeps no state between
// runs; each run loads its own catalog snapshot.
type Pipeline struct {
	Catalog    vulnlib.Provider
	Scanner    portscan.Provider
	Correlator *vulnscan.Correlator
	Scorer     *risk.Scorer
}

// Run validates target, loads a fresh catalog, scans, correlates and
// scores. Only an invalid target or an unavailable catalog fail the scan.
func (p *Pipeline) Run(ctx context.Context, target string, ports []int) *Result {
	log.Printf(config.Green("[1/5] Validating target %s"), target)
	if !portscan.ValidateTarget(target) {
		return failed(target, fmt.Errorf("%w: %s", ErrInvalidTarget, target))
	}

	log.Printf(config.Green("[2/5] Loading CVE database"))
	catalog, err := p.Catalog.Load(ctx)
	if err != nil {
		if !errors.Is(err, vulnlib.ErrCatalogUnavailable) {
			err = fmt.Errorf("%w: %w", vulnlib.ErrCatalogUnavailable, err)
		}
		return failed(target, err)
	}
	if catalog.Len() == 0 {
		return failed(target, fmt.Errorf("%w: catalog is empty", vulnlib.ErrCatalogUnavailable))
	}

	log.Printf(config.Green("[3/5] Scanning ports"))
	observations, err := p.Scanner.Scan(ctx, target, ports)
	if err != nil {
		log.Printf(config.Yellow("Port scan failed, continuing with no open ports: %v"), err)
		observations = nil
	}
	if observations == nil {
		observations = []portscan.Observation{}
	}

	log.Printf(config.Green("[4/5] Matching CVEs"))
	findings := p.Correlator.Correlate(observations, catalog)

	log.Printf(config.Green("[5/5] Calculating risk score"))
	assessment := p.Scorer.Score(findings)

	log.Printf("Scan complete, %d findings, risk level: %s (score %d)",
		assessment.TotalFindings, assessment.RiskLevel, assessment.TotalScore)

	return &Result{
		Success:        true,
		ScanID:         uuid.NewString(),
		Target:         target,
		OpenPorts:      observations,
		Findings:       findings,
		RiskAssessment: assessment,
		PortScores:     p.Scorer.PortScores(findings),
	}
}
