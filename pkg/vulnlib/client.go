package vulnlib

import (
	"database/sql"
	"net/http"
	"strings"
	"time"
)

type Client struct {
	Cli *http.Client
	DB  *sql.DB

	// Store is the directory holding the database and its date log.
	Store string

	BaseURL string
	APIKey  string
	// Delay between two NVD requests.
	Delay time.Duration
}

type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
	SeverityUnknown  Severity = "UNKNOWN"
)

// Severities lists every severity from the most to the least severe.
func Severities() []Severity {
	return []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow, SeverityUnknown}
}

// ParseSeverity folds anything that is not LOW, MEDIUM, HIGH or CRITICAL
// into UNKNOWN.
func ParseSeverity(s string) Severity {
	switch sev := Severity(strings.ToUpper(strings.TrimSpace(s))); sev {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return sev
	default:
		return SeverityUnknown
	}
}

// Record is one catalog entry. VersionRange is a comma separated list of
// predicates, e.g. ">=7.0,<8.9".
type Record struct {
	ID           string   `csv:"cve_id" json:"cve_id"`
	Service      string   `csv:"service" json:"service"`
	VersionRange string   `csv:"version_range" json:"version_range"`
	Severity     Severity `csv:"severity" json:"severity"`
	Summary      string   `csv:"summary" json:"summary"`
	Mitigation   string   `csv:"mitigation" json:"mitigation"`
	Reference    string   `csv:"reference" json:"reference"`
}

func NewClient(store, apiKey string, delay time.Duration) *Client {
	tr := &http.Transport{
		IdleConnTimeout:    60 * time.Second,
		DisableCompression: true,
	}

	return &Client{
		Cli: &http.Client{
			Transport: tr,
			Timeout:   30 * time.Second,
		},
		Store:   store,
		BaseURL: nvdURL,
		APIKey:  apiKey,
		Delay:   delay,
	}
}
