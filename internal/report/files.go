package report

import (
	"bytes"
	"fmt"
	"io/ioutil"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/kvesta/portvuln/config"
	"github.com/kvesta/portvuln/internal"
	"github.com/kvesta/portvuln/internal/vulnscan"

	"k8s.io/apimachinery/pkg/util/json"
)

// DefaultOutput puts reports under ./output named by date.
const DefaultOutput = "output"

func exists(path string) bool {
	_, err := os.Stat(path)
	if err != nil {
		if os.IsExist(err) {
			return true
		}

		return false
	}
	return true
}

func getOutputFile(outfile, ext string) (string, error) {
	if outfile == "" || outfile == DefaultOutput {
		pwd, _ := os.Getwd()
		folder := filepath.Join(pwd, DefaultOutput)
		if !exists(folder) {
			err := os.MkdirAll(folder, os.FileMode(0755))
			if err != nil {
				return "", err
			}
		}
		nowStamp := time.Now().Format("2006-01-02")
		file := filepath.Join(folder, fmt.Sprintf("%s.%s", nowStamp, ext))

		return file, nil

	} else {
		folder := filepath.Dir(outfile)
		if !exists(folder) {
			err := os.MkdirAll(folder, os.FileMode(0755))
			if err != nil {
				return "", err
			}
		}

		return outfile, nil

	}

}

// ScanToJson saves one result, or a list of results when there are several.
func ScanToJson(results []*internal.Result, outfile string) (string, error) {
	filename, err := getOutputFile(outfile, "json")
	if err != nil {
		return "", err
	}

	var data []byte
	if len(results) == 1 {
		data, err = json.Marshal(results[0])
	} else {
		data, err = json.Marshal(results)
	}
	if err != nil {
		return "", err
	}

	err = ioutil.WriteFile(filename, data, 0644)
	if err != nil {
		return "", err
	}

	fmt.Printf("\n")
	log.Printf("Output file is saved in: %s", config.Yellow(filename))

	return filename, nil
}

// FindingsToCSV saves the findings of every successful result. Nothing is
// written when there are none.
func FindingsToCSV(results []*internal.Result, outfile string) (string, error) {
	findings := []vulnscan.Finding{}
	for _, r := range results {
		if r.Success {
			findings = append(findings, r.Findings...)
		}
	}

	if len(findings) == 0 {
		log.Printf("No findings, CSV report not written")
		return "", nil
	}

	filename, err := getOutputFile(outfile, "csv")
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err = gocsv.Marshal(findings, &buf); err != nil {
		return "", err
	}

	err = ioutil.WriteFile(filename, buf.Bytes(), 0644)
	if err != nil {
		return "", err
	}

	fmt.Printf("\n")
	log.Printf("Output file is saved in: %s", config.Yellow(filename))

	return filename, nil
}

// Save writes results in format, "console" prints them instead.
func Save(results []*internal.Result, format, outfile string) error {
	switch format {
	case "", "console":
		for _, r := range results {
			if err := ResolveScanData(r); err != nil {
				return err
			}
		}
		return nil
	case "json":
		_, err := ScanToJson(results, outfile)
		return err
	case "csv":
		_, err := FindingsToCSV(results, outfile)
		return err
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}
