package vulnlib

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/kvesta/portvuln/config"
)

var ErrMissingColumns = errors.New("catalog is missing required columns")

var requiredColumns = []string{"cve_id", "service", "version_range", "severity", "summary", "mitigation", "reference"}

// CSVProvider loads the catalog from a CSV file, optionally checking a
// detached signature first.
type CSVProvider struct {
	Path string

	Verifier  *Verifier
	Signature string
}

func (p *CSVProvider) Load(ctx context.Context) (*Catalog, error) {
	if !exists(p.Path) {
		return nil, fmt.Errorf("%w: %s not found, run 'portvuln catalog update' first",
			ErrCatalogUnavailable, p.Path)
	}

	if p.Verifier != nil && p.Signature != "" {
		if err := p.Verifier.VerifyFile(p.Path, p.Signature); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCatalogUnavailable, err)
		}
	}

	data, err := os.ReadFile(p.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCatalogUnavailable, err)
	}

	records, err := ReadCSV(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCatalogUnavailable, err)
	}

	for _, w := range Validate(records) {
		log.Printf(config.Yellow("Warning: %s"), w)
	}

	catalog := NewCatalog(records)
	if catalog.Len() == 0 {
		return nil, fmt.Errorf("%w: %s has no entries", ErrCatalogUnavailable, p.Path)
	}

	log.Printf("Loaded %d CVEs from %s", catalog.Len(), p.Path)

	return catalog, nil
}

// ReadCSV parses catalog rows. The header must carry every required column.
func ReadCSV(data []byte) ([]*Record, error) {
	header, err := csv.NewReader(bytes.NewReader(data)).Read()
	if err != nil {
		if err == io.EOF {
			return nil, errors.New("empty catalog file")
		}
		return nil, err
	}

	present := map[string]bool{}
	for _, h := range header {
		present[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = true
	}

	missing := []string{}
	for _, c := range requiredColumns {
		if !present[c] {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %v", ErrMissingColumns, missing)
	}

	records := []*Record{}
	if err := gocsv.UnmarshalBytes(data, &records); err != nil {
		return nil, err
	}

	return records, nil
}

func WriteCSV(w io.Writer, records []*Record) error {
	return gocsv.Marshal(records, w)
}

// SaveCSV writes records to filename, creating its folder if needed.
func SaveCSV(filename string, records []*Record) error {
	if err := mkFolder(parentDir(filename)); err != nil {
		return err
	}

	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	return WriteCSV(f, records)
}
