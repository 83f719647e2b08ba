package vulnlib

import (
	"context"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/tidwall/gjson"
)

const nvdResponse = `{
  "resultsPerPage": 2,
  "vulnerabilities": [
    {
      "cve": {
        "id": "CVE-2018-15473",
        "descriptions": [{"lang": "en", "value": "OpenSSH through 7.7 is prone to a user enumeration vulnerability."}],
        "metrics": {
          "cvssMetricV31": [{"cvssData": {"baseScore": 5.3, "baseSeverity": "MEDIUM"}}],
          "cvssMetricV2": [{"cvssData": {"baseScore": 5.0}}]
        },
        "configurations": [{
          "nodes": [{
            "cpeMatch": [
              {"vulnerable": false, "criteria": "cpe:2.3:o:debian:debian_linux:8.0:*:*:*:*:*:*:*"},
              {"vulnerable": true, "criteria": "cpe:2.3:a:openbsd:openssh:*:*:*:*:*:*:*:*", "versionEndIncluding": "7.7"}
            ]
          }]
        }]
      }
    },
    {
      "cve": {
        "id": "CVE-2006-5051",
        "descriptions": [],
        "metrics": {
          "cvssMetricV2": [{"cvssData": {"baseScore": 9.3}}]
        }
      }
    }
  ]
}`

func TestParseNVD(t *testing.T) {
	records := parseNVD([]byte(nvdResponse), "OpenSSH")

	want := []*Record{
		{
			ID:           "CVE-2018-15473",
			Service:      "OpenSSH",
			VersionRange: "<=7.7",
			Severity:     SeverityMedium,
			Summary:      "OpenSSH through 7.7 is prone to a user enumeration vulnerability.",
			Mitigation:   defaultMitigation,
			Reference:    "https://nvd.nist.gov/vuln/detail/CVE-2018-15473",
		},
		{
			ID:           "CVE-2006-5051",
			Service:      "OpenSSH",
			VersionRange: placeholderRange,
			Severity:     SeverityCritical,
			Summary:      "No description available",
			Mitigation:   defaultMitigation,
			Reference:    "https://nvd.nist.gov/vuln/detail/CVE-2006-5051",
		},
	}

	if !reflect.DeepEqual(records, want) {
		t.Errorf("parseNVD() got = %+v, want %+v", records, want)
	}
}

func TestNVDSeverity(t *testing.T) {
	tests := []struct {
		name    string
		metrics string
		want    Severity
	}{
		{name: "v31", metrics: `{"cvssMetricV31":[{"cvssData":{"baseSeverity":"CRITICAL"}}]}`, want: SeverityCritical},
		{name: "v30", metrics: `{"cvssMetricV30":[{"cvssData":{"baseSeverity":"HIGH"}}]}`, want: SeverityHigh},
		{name: "v31BeatsV30", metrics: `{"cvssMetricV31":[{"cvssData":{"baseSeverity":"LOW"}}],"cvssMetricV30":[{"cvssData":{"baseSeverity":"HIGH"}}]}`, want: SeverityLow},
		{name: "v2High", metrics: `{"cvssMetricV2":[{"cvssData":{"baseScore":7.5}}]}`, want: SeverityHigh},
		{name: "v2Medium", metrics: `{"cvssMetricV2":[{"cvssData":{"baseScore":4.0}}]}`, want: SeverityMedium},
		{name: "v2Low", metrics: `{"cvssMetricV2":[{"cvssData":{"baseScore":2.1}}]}`, want: SeverityLow},
		{name: "none", metrics: `{}`, want: SeverityUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := nvdSeverity(gjson.Parse(tt.metrics)); got != tt.want {
				t.Errorf("nvdSeverity() got = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCPERange(t *testing.T) {
	tests := []struct {
		name    string
		conf    string
		service string
		want    string
	}{
		{
			name:    "startAndEnd",
			conf:    `[{"nodes":[{"cpeMatch":[{"vulnerable":true,"criteria":"cpe:2.3:a:f5:nginx:*:*:*:*:*:*:*:*","versionStartIncluding":"0.6.18","versionEndExcluding":"1.20.1"}]}]}]`,
			service: "nginx",
			want:    ">=0.6.18,<1.20.1",
		},
		{
			name:    "exclusiveBounds",
			conf:    `[{"nodes":[{"cpeMatch":[{"vulnerable":true,"criteria":"cpe:2.3:a:oracle:mysql:*:*:*:*:*:*:*:*","versionStartExcluding":"5.7","versionEndIncluding":"5.7.40"}]}]}]`,
			service: "MySQL",
			want:    ">5.7,<=5.7.40",
		},
		{
			name:    "exactVersion",
			conf:    `[{"nodes":[{"cpeMatch":[{"vulnerable":true,"criteria":"cpe:2.3:a:beasts:vsftpd:2.3.4:*:*:*:*:*:*:*"}]}]}]`,
			service: "vsftpd",
			want:    "==2.3.4",
		},
		{
			name:    "multiWordService",
			conf:    `[{"nodes":[{"cpeMatch":[{"vulnerable":true,"criteria":"cpe:2.3:a:apache:http_server:2.4.49:*:*:*:*:*:*:*"}]}]}]`,
			service: "Apache HTTP",
			want:    "==2.4.49",
		},
		{
			name:    "otherProduct",
			conf:    `[{"nodes":[{"cpeMatch":[{"vulnerable":true,"criteria":"cpe:2.3:o:debian:debian_linux:9.0:*:*:*:*:*:*:*"}]}]}]`,
			service: "OpenSSH",
			want:    placeholderRange,
		},
		{
			name:    "wildcardVersion",
			conf:    `[{"nodes":[{"cpeMatch":[{"vulnerable":true,"criteria":"cpe:2.3:a:proftpd:proftpd:*:*:*:*:*:*:*:*"}]}]}]`,
			service: "ProFTPD",
			want:    placeholderRange,
		},
		{
			name:    "missing",
			conf:    ``,
			service: "OpenSSH",
			want:    placeholderRange,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cpeRange(gjson.Parse(tt.conf), tt.service); got != tt.want {
				t.Errorf("cpeRange() got = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	long := strings.Repeat("é", summaryLimit+10)

	got := truncate(long, summaryLimit)
	if want := strings.Repeat("é", summaryLimit) + "..."; got != want {
		t.Errorf("truncate() kept %d runes", len([]rune(got)))
	}

	if got := truncate("short", summaryLimit); got != "short" {
		t.Errorf("truncate() got = %v, want short", got)
	}
}

func newNVDServer(t *testing.T, requests *[]string) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*requests = append(*requests, r.URL.Query().Get("keywordSearch"))

		if r.Header.Get("apiKey") != "secret" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		if r.URL.Query().Get("keywordSearch") == "broken" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(nvdResponse))
	}))
}

func TestFetchNVD(t *testing.T) {
	var requests []string
	srv := newNVDServer(t, &requests)
	defer srv.Close()

	c := NewClient(t.TempDir(), "secret", 0)
	c.BaseURL = srv.URL

	records, err := c.FetchNVD(context.Background(), []ServiceQuery{
		{Name: "OpenSSH", Max: 2},
		{Name: "broken", Max: 2},
		{Name: "nginx", Max: 2},
	})
	if err != nil {
		t.Fatalf("FetchNVD() error = %v", err)
	}

	if want := []string{"OpenSSH", "broken", "nginx"}; !reflect.DeepEqual(requests, want) {
		t.Errorf("requests got = %v, want %v", requests, want)
	}
	if len(records) != 4 {
		t.Fatalf("FetchNVD() got %d records, want 4", len(records))
	}
	if records[2].Service != "nginx" {
		t.Errorf("records[2].Service = %v, want nginx", records[2].Service)
	}
}

func TestFetchNVDCancelled(t *testing.T) {
	var requests []string
	srv := newNVDServer(t, &requests)
	defer srv.Close()

	c := NewClient(t.TempDir(), "secret", time.Hour)
	c.BaseURL = srv.URL

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := c.FetchNVD(ctx, DefaultServices()); err == nil {
		t.Errorf("FetchNVD() ignored a cancelled context")
	}
}

func TestUpdate(t *testing.T) {
	var requests []string
	srv := newNVDServer(t, &requests)
	defer srv.Close()

	store := t.TempDir()
	c := NewClient(store, "secret", 0)
	c.BaseURL = srv.URL

	services := []ServiceQuery{{Name: "OpenSSH", Max: 2}}
	if err := c.Update(context.Background(), services, false); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	// still fresh, nothing fetched
	if err := c.Update(context.Background(), services, false); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if len(requests) != 1 {
		t.Errorf("fresh store refetched, %d requests", len(requests))
	}

	catalog, err := (&DBProvider{Client: &Client{Store: store}}).Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if catalog.Len() != 2 {
		t.Errorf("catalog got %d records, want 2", catalog.Len())
	}
}
