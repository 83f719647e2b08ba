package internal

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/kvesta/portvuln/config"
	"github.com/kvesta/portvuln/internal/risk"
	"github.com/kvesta/portvuln/internal/vulnscan"
	"github.com/kvesta/portvuln/pkg/discovery"
	"github.com/kvesta/portvuln/pkg/inspector"
	"github.com/kvesta/portvuln/pkg/portscan"
	"github.com/kvesta/portvuln/pkg/version"
	"github.com/kvesta/portvuln/pkg/vulnlib"
)

// NewCatalogProvider returns the csv or sqlite provider named by s.Source.
func NewCatalogProvider(s config.CatalogSettings) (vulnlib.Provider, error) {
	switch strings.ToLower(s.Source) {
	case "", "csv":
		p := &vulnlib.CSVProvider{Path: s.Path}
		if s.Signature != "" {
			if s.Key == "" {
				return nil, fmt.Errorf("catalog signature %s given without a public key", s.Signature)
			}
			v, err := vulnlib.NewVerifier(s.Key)
			if err != nil {
				return nil, err
			}
			p.Verifier = v
			p.Signature = s.Signature
		}
		return p, nil

	case "db", "sqlite":
		return &vulnlib.DBProvider{Client: &vulnlib.Client{Store: s.Store}}, nil

	default:
		return nil, fmt.Errorf("unknown catalog source %q", s.Source)
	}
}

// NewScanProvider returns the port scanner named by s.Provider. The
// returned func releases its resources.
func NewScanProvider(s config.ScannerSettings) (portscan.Provider, func(), error) {
	noop := func() {}

	switch strings.ToLower(s.Provider) {
	case "", "nmap":
		return &portscan.NmapProvider{
			Binary:    s.Binary,
			Arguments: s.Arguments,
			Timeout:   s.TimeoutDuration(),
		}, noop, nil

	case "docker":
		da, err := inspector.New()
		if err != nil {
			return nil, noop, err
		}

		if v, err := da.GetDockerServerVersion(context.Background()); err != nil {
			log.Printf("Cannot get docker server version, error: %v", err)
		} else {
			log.Printf("Docker server version: %s", v)
		}

		return &portscan.DockerProvider{
				Runner:      da,
				Image:       s.Image,
				Arguments:   s.Arguments,
				Timeout:     s.TimeoutDuration(),
				NetworkMode: s.Network,
			}, func() {
				da.Close()
			}, nil

	case "local":
		return &portscan.LocalProvider{}, noop, nil

	default:
		return nil, noop, fmt.Errorf("unknown scan provider %q", s.Provider)
	}
}

// Weights converts the configured weight table. Names that are not a
// severity are skipped so they cannot override the UNKNOWN weight.
func Weights(s config.ScoringSettings) map[vulnlib.Severity]int {
	names := make([]string, 0, len(s.Weights))
	for name := range s.Weights {
		names = append(names, name)
	}
	sort.Strings(names)

	weights := map[vulnlib.Severity]int{}
	for _, name := range names {
		sev := vulnlib.ParseSeverity(name)
		if string(sev) != strings.ToUpper(strings.TrimSpace(name)) {
			log.Printf(config.Yellow("Ignoring weight of unknown severity %q"), name)
			continue
		}
		weights[sev] = s.Weights[name]
	}
	return weights
}

func NewPipeline(s *config.Settings, catalog vulnlib.Provider, scanner portscan.Provider) *Pipeline {
	return &Pipeline{
		Catalog: catalog,
		Scanner: scanner,
		Correlator: vulnscan.NewCorrelator(
			s.Normalizer.NewNormalizer(),
			version.NewMatcher(version.Scheme(strings.ToLower(s.Normalizer.Scheme))),
		),
		Scorer: risk.New(Weights(s.Scoring)),
	}
}

// NewNVDClient builds the NVD fetcher and the list of searches to run.
func NewNVDClient(s *config.Settings) (*vulnlib.Client, []vulnlib.ServiceQuery) {
	cli := vulnlib.NewClient(s.Catalog.Store, s.NVD.APIKey, s.NVD.DelayDuration())

	services := []vulnlib.ServiceQuery{}
	for _, svc := range s.NVD.Services {
		services = append(services, vulnlib.ServiceQuery{Name: svc.Name, Max: svc.Max})
	}
	if len(services) == 0 {
		services = vulnlib.DefaultServices()
	}

	return cli, services
}

// ScanTargets runs the pipeline once per discovered service, one after
// another.
func ScanTargets(ctx context.Context, p *Pipeline, targets []discovery.Target) []*Result {
	results := []*Result{}

	for _, t := range targets {
		if ctx.Err() != nil {
			break
		}

		log.Printf(config.Green("Scanning service %s/%s at %s, ports %s"), t.Namespace, t.Name,
			t.Address, portscan.FormatPorts(t.Ports))
		results = append(results, p.Run(ctx, t.Address, t.Ports))
	}

	return results
}
