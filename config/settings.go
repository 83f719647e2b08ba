package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/kvesta/portvuln/pkg/service"
	"gopkg.in/yaml.v3"
)

const apiKeyEnv = "NVD_API_KEY"

// Settings is the file configuration. Maps in a file are merged over the
// defaults by canonical key (upper case severities, lower case aliases),
// lists replace them.
type Settings struct {
	Catalog    CatalogSettings    `yaml:"catalog" toml:"catalog"`
	Scanner    ScannerSettings    `yaml:"scanner" toml:"scanner"`
	Scoring    ScoringSettings    `yaml:"scoring" toml:"scoring"`
	Normalizer NormalizerSettings `yaml:"normalizer" toml:"normalizer"`
	NVD        NVDSettings        `yaml:"nvd" toml:"nvd"`
}

type CatalogSettings struct {
	// Source is "csv" or "db".
	Source string `yaml:"source" toml:"source"`
	Path   string `yaml:"path" toml:"path"`
	// Store is the folder of the sqlite database, ~/.portvuln when empty.
	Store     string `yaml:"store" toml:"store"`
	Signature string `yaml:"signature" toml:"signature"`
	Key       string `yaml:"key" toml:"key"`
}

type ScannerSettings struct {
	// Provider is "nmap", "docker" or "local".
	Provider  string   `yaml:"provider" toml:"provider"`
	Binary    string   `yaml:"binary" toml:"binary"`
	Arguments []string `yaml:"arguments" toml:"arguments"`
	Image     string   `yaml:"image" toml:"image"`
	Network   string   `yaml:"network" toml:"network"`
	// Timeout in seconds.
	Timeout int   `yaml:"timeout" toml:"timeout"`
	Ports   []int `yaml:"ports" toml:"ports"`
}

type ScoringSettings struct {
	Weights map[string]int `yaml:"weights" toml:"weights"`
}

type NormalizerSettings struct {
	// Scheme is "semver" or "rpm".
	Scheme     string              `yaml:"scheme" toml:"scheme"`
	Signatures []service.Signature `yaml:"signatures" toml:"signatures"`
	Aliases    map[string]string   `yaml:"aliases" toml:"aliases"`
}

type NVDSettings struct {
	APIKey string `yaml:"api_key" toml:"api_key"`
	// Delay between requests in seconds.
	Delay    int               `yaml:"delay" toml:"delay"`
	Services []ServiceSettings `yaml:"services" toml:"services"`
}

type ServiceSettings struct {
	Name string `yaml:"name" toml:"name"`
	Max  int    `yaml:"max" toml:"max"`
}

func Default() *Settings {
	return &Settings{
		Catalog: CatalogSettings{
			Source: "csv",
			Path:   filepath.Join("data", "cve_database.csv"),
		},
		Scanner: ScannerSettings{
			Provider:  "nmap",
			Binary:    "nmap",
			Arguments: []string{"-sV", "-T4"},
			Image:     "instrumentisto/nmap:latest",
			Network:   "bridge",
			Timeout:   300,
		},
		Scoring: ScoringSettings{
			Weights: map[string]int{
				"LOW":      1,
				"MEDIUM":   3,
				"HIGH":     5,
				"CRITICAL": 8,
				"UNKNOWN":  2,
			},
		},
		Normalizer: NormalizerSettings{
			Scheme:     "semver",
			Signatures: service.DefaultSignatures(),
			Aliases:    service.DefaultAliases(),
		},
		NVD: NVDSettings{
			Delay: 7,
			Services: []ServiceSettings{
				{Name: "OpenSSH", Max: 5},
				{Name: "Apache HTTP", Max: 5},
				{Name: "nginx", Max: 4},
				{Name: "MySQL", Max: 5},
				{Name: "vsftpd", Max: 3},
				{Name: "ProFTPD", Max: 3},
			},
		},
	}
}

// Load reads a yaml or toml file over the defaults. An empty path returns
// the defaults. NVD_API_KEY always wins over the file.
func Load(path string) (*Settings, error) {
	s := Default()
	weights, aliases := s.Scoring.Weights, s.Normalizer.Aliases

	if path != "" {
		s.Scoring.Weights = nil
		s.Normalizer.Aliases = nil

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}

		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			err = yaml.Unmarshal(data, s)
		case ".toml":
			_, err = toml.Decode(string(data), s)
		default:
			return nil, fmt.Errorf("unsupported config format %q, use yaml or toml", filepath.Ext(path))
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	s.Scoring.Weights = mergeKeys(weights, s.Scoring.Weights, strings.ToUpper)
	s.Normalizer.Aliases = mergeKeys(aliases, s.Normalizer.Aliases, strings.ToLower)

	if key := os.Getenv(apiKeyEnv); key != "" {
		s.NVD.APIKey = key
	}

	return s, nil
}

// mergeKeys lays override over base in a fresh map keyed by canon(key).
// Keys of override that collide after canon are applied in sorted order.
func mergeKeys[V any](base, override map[string]V, canon func(string) string) map[string]V {
	merged := map[string]V{}
	for _, m := range []map[string]V{base, override} {
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, k := range keys {
			merged[canon(strings.TrimSpace(k))] = m[k]
		}
	}
	return merged
}

func (s ScannerSettings) TimeoutDuration() time.Duration {
	return time.Duration(s.Timeout) * time.Second
}

func (s NVDSettings) DelayDuration() time.Duration {
	return time.Duration(s.Delay) * time.Second
}

// NewNormalizer builds the service normalizer from the configured tables.
func (s NormalizerSettings) NewNormalizer() *service.Normalizer {
	return service.New(s.Signatures, s.Aliases)
}
