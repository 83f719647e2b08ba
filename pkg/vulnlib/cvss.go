package vulnlib

import (
	"context"
	"fmt"
	"io/ioutil"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const (
	nvdURL = "https://services.nvd.nist.gov/rest/json/cves/2.0"

	// placeholderRange matches every version when NVD gives no usable cpe range.
	placeholderRange  = ">=0.0,<999.0"
	defaultMitigation = "Update to latest version"
	summaryLimit      = 200
)

// ServiceQuery is one NVD keyword search.
type ServiceQuery struct {
	Name string
	Max  int
}

func DefaultServices() []ServiceQuery {
	return []ServiceQuery{
		{Name: "OpenSSH", Max: 5},
		{Name: "Apache HTTP", Max: 5},
		{Name: "nginx", Max: 4},
		{Name: "MySQL", Max: 5},
		{Name: "vsftpd", Max: 3},
		{Name: "ProFTPD", Max: 3},
	}
}

// FetchNVD searches NVD for every service, waiting Delay between requests.
// A failed search is logged and skipped.
func (c *Client) FetchNVD(ctx context.Context, services []ServiceQuery) ([]*Record, error) {
	all := []*Record{}

	for i, s := range services {
		if i > 0 && c.Delay > 0 {
			log.Printf("Waiting %s to avoid rate limit", c.Delay)
			select {
			case <-ctx.Done():
				return all, ctx.Err()
			case <-time.After(c.Delay):
			}
		}

		records, err := c.FetchService(ctx, s)
		if err != nil {
			if ctx.Err() != nil {
				return all, ctx.Err()
			}
			log.Printf("failed to fetch CVEs for %s, error: %v", s.Name, err)
			continue
		}

		log.Printf("Fetched %d CVEs for %s", len(records), s.Name)
		all = append(all, records...)
	}

	return all, nil
}

func (c *Client) FetchService(ctx context.Context, s ServiceQuery) ([]*Record, error) {
	base := c.BaseURL
	if base == "" {
		base = nvdURL
	}

	params := url.Values{}
	params.Set("keywordSearch", s.Name)
	if s.Max > 0 {
		params.Set("resultsPerPage", strconv.Itoa(s.Max))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	if c.APIKey != "" {
		req.Header.Set("apiKey", c.APIKey)
	}

	res, err := c.Cli.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("nvd returned %s", res.Status)
	}

	body, err := ioutil.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}

	return parseNVD(body, s.Name), nil
}

func parseNVD(data []byte, service string) []*Record {
	records := []*Record{}

	gjson.GetBytes(data, "vulnerabilities").ForEach(func(_, item gjson.Result) bool {
		cve := item.Get("cve")

		cveID := cve.Get("id").String()
		if cveID == "" {
			cveID = "Unknown"
		}

		summary := cve.Get("descriptions.0.value").String()
		if summary == "" {
			summary = "No description available"
		}

		records = append(records, &Record{
			ID:           cveID,
			Service:      service,
			VersionRange: cpeRange(cve.Get("configurations"), service),
			Severity:     nvdSeverity(cve.Get("metrics")),
			Summary:      truncate(summary, summaryLimit),
			Mitigation:   defaultMitigation,
			Reference:    fmt.Sprintf("https://nvd.nist.gov/vuln/detail/%s", cveID),
		})

		return true
	})

	return records
}

// nvdSeverity prefers CVSS v3.1, then v3.0, then maps the v2 base score.
func nvdSeverity(metrics gjson.Result) Severity {
	for _, key := range []string{"cvssMetricV31", "cvssMetricV30"} {
		if sev := metrics.Get(key + ".0.cvssData.baseSeverity"); sev.Exists() {
			return ParseSeverity(sev.String())
		}
	}

	if v2 := metrics.Get("cvssMetricV2.0"); v2.Exists() {
		score := v2.Get("cvssData.baseScore").Float()
		switch {
		case score >= 9.0:
			return SeverityCritical
		case score >= 7.0:
			return SeverityHigh
		case score >= 4.0:
			return SeverityMedium
		default:
			return SeverityLow
		}
	}

	return SeverityUnknown
}

// cpeRange builds a version range from the first vulnerable cpe match that
// belongs to service.
func cpeRange(configurations gjson.Result, service string) string {
	words := strings.Fields(strings.ToLower(service))
	rng := ""

	configurations.ForEach(func(_, conf gjson.Result) bool {
		conf.Get("nodes").ForEach(func(_, node gjson.Result) bool {
			node.Get("cpeMatch").ForEach(func(_, m gjson.Result) bool {
				if !m.Get("vulnerable").Bool() {
					return true
				}

				cpe23Split := strings.Split(m.Get("criteria").String(), ":")
				if len(cpe23Split) < 6 || !cpeBelongs(cpe23Split[3]+":"+cpe23Split[4], words) {
					return true
				}

				rng = matchRange(m, cpe23Split[5])
				return rng == ""
			})
			return rng == ""
		})
		return rng == ""
	})

	if rng == "" {
		return placeholderRange
	}
	return rng
}

func cpeBelongs(vendorProduct string, words []string) bool {
	if len(words) == 0 {
		return false
	}
	for _, w := range words {
		if !strings.Contains(vendorProduct, w) {
			return false
		}
	}
	return true
}

func matchRange(m gjson.Result, cpeVersion string) string {
	preds := []string{}

	if v := m.Get("versionStartIncluding"); v.Exists() {
		preds = append(preds, ">="+v.String())
	} else if v := m.Get("versionStartExcluding"); v.Exists() {
		preds = append(preds, ">"+v.String())
	}

	if v := m.Get("versionEndIncluding"); v.Exists() {
		preds = append(preds, "<="+v.String())
	} else if v := m.Get("versionEndExcluding"); v.Exists() {
		preds = append(preds, "<"+v.String())
	}

	if len(preds) == 0 && cpeVersion != "*" && cpeVersion != "-" && cpeVersion != "" {
		preds = append(preds, "=="+cpeVersion)
	}

	return strings.Join(preds, ",")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
