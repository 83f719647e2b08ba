package vulnlib

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kvesta/portvuln/pkg/match"
)

var ErrCatalogUnavailable = errors.New("vulnerability catalog unavailable")

// Provider loads the catalog used by one scan.
type Provider interface {
	Load(ctx context.Context) (*Catalog, error)
}

// Catalog is a read-only snapshot of vulnerability records.
type Catalog struct {
	records []*Record
	// lowercase Service of records[i]
	index []string
}

// NewCatalog copies records and folds their severities.
func NewCatalog(records []*Record) *Catalog {
	c := &Catalog{
		records: make([]*Record, 0, len(records)),
		index:   make([]string, 0, len(records)),
	}

	for _, r := range records {
		if r == nil {
			continue
		}
		rec := *r
		rec.Severity = ParseSeverity(string(r.Severity))

		c.records = append(c.records, &rec)
		c.index = append(c.index, strings.ToLower(rec.Service))
	}

	return c
}

func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.records)
}

func (c *Catalog) Records() []*Record {
	if c == nil {
		return nil
	}
	return append([]*Record{}, c.records...)
}

// Lookup returns the records whose service contains name, ignoring case,
// in catalog order.
func (c *Catalog) Lookup(name string) []*Record {
	found := []*Record{}
	if c == nil {
		return found
	}

	name = strings.ToLower(name)
	for i, s := range c.index {
		if strings.Contains(s, name) {
			found = append(found, c.records[i])
		}
	}

	return found
}

// Services lists the distinct catalog service names in first-seen order.
func (c *Catalog) Services() []string {
	services := []string{}
	if c == nil {
		return services
	}

	seen := map[string]bool{}
	for _, r := range c.records {
		if seen[r.Service] {
			continue
		}
		seen[r.Service] = true
		services = append(services, r.Service)
	}

	return services
}

// Suggest returns a catalog service name that name is probably a misspelling of.
func (c *Catalog) Suggest(name string) string {
	return match.Suggest(name, c.Services())
}

// Validate reports duplicate IDs and severities outside the recognised set.
// Neither is fatal.
func Validate(records []*Record) []string {
	warnings := []string{}

	ids := map[string]int{}
	invalid := 0
	for _, r := range records {
		ids[r.ID]++

		switch Severity(strings.ToUpper(strings.TrimSpace(string(r.Severity)))) {
		case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical, SeverityUnknown:
		default:
			invalid++
		}
	}

	duplicates := 0
	for _, n := range ids {
		if n > 1 {
			duplicates += n
		}
	}

	if duplicates > 0 {
		warnings = append(warnings, fmt.Sprintf("found %d duplicate CVE entries", duplicates))
	}
	if invalid > 0 {
		warnings = append(warnings, fmt.Sprintf("found %d entries with invalid severity levels", invalid))
	}

	return warnings
}
