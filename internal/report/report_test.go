package report

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gocarina/gocsv"
	"github.com/kvesta/portvuln/internal"
	"github.com/kvesta/portvuln/internal/risk"
	"github.com/kvesta/portvuln/internal/vulnscan"
	"github.com/kvesta/portvuln/pkg/portscan"
	"github.com/kvesta/portvuln/pkg/vulnlib"

	"k8s.io/apimachinery/pkg/util/json"
)

func testResult() *internal.Result {
	findings := []vulnscan.Finding{
		{Port: 22, Service: "ssh", Version: "7.4", CVEID: "CVE-2018-15473", Severity: vulnlib.SeverityMedium,
			Summary: strings.Repeat("a", 200), Mitigation: "Upgrade OpenSSH", Reference: "https://nvd.nist.gov/vuln/detail/CVE-2018-15473"},
		{Port: 80, Service: "http", Version: "1.14.0", CVEID: "CVE-2021-23017", Severity: vulnlib.SeverityHigh,
			Summary: "1-byte memory overwrite", Mitigation: "Upgrade nginx", Reference: "https://nvd.nist.gov/vuln/detail/CVE-2021-23017"},
	}
	scorer := risk.New(nil)

	return &internal.Result{
		Success: true,
		ScanID:  "4f1c1f38-7d0e-4c1e-9d5e-000000000000",
		Target:  "192.168.1.10",
		OpenPorts: []portscan.Observation{
			{Port: 22, Protocol: "tcp", Service: "ssh", Product: "OpenSSH", Version: "7.4", Banner: "OpenSSH 7.4p1"},
			{Port: 80, Protocol: "tcp", Service: "http", Product: "nginx", Version: "1.14.0", Banner: "nginx 1.14.0"},
		},
		Findings:       findings,
		RiskAssessment: scorer.Score(findings),
		PortScores:     scorer.PortScores(findings),
	}
}

func TestWriteConsole(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteConsole(&buf, testResult()); err != nil {
		t.Fatalf("WriteConsole() error = %v", err)
	}
	out := buf.String()

	for _, want := range []string{"192.168.1.10", "CVE-2018-15473", "CVE-2021-23017", "nginx 1.14.0", "Medium Risk", "score 8"} {
		if !strings.Contains(out, want) {
			t.Errorf("console output misses %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, strings.Repeat("a", 151)) {
		t.Errorf("summary not truncated")
	}
}

func TestWriteConsoleFailure(t *testing.T) {
	var buf bytes.Buffer
	WriteConsole(&buf, &internal.Result{Target: "bad", Error: "invalid target address: bad"})

	if !strings.Contains(buf.String(), "Scan failed: invalid target address: bad") {
		t.Errorf("WriteConsole() got = %s", buf.String())
	}
}

func TestWriteConsoleNoPorts(t *testing.T) {
	r := &internal.Result{Success: true, Target: "10.0.0.1", RiskAssessment: risk.New(nil).Score(nil)}

	var buf bytes.Buffer
	WriteConsole(&buf, r)
	if !strings.Contains(buf.String(), "No open ports found") || !strings.Contains(buf.String(), "No vulnerabilities found") {
		t.Errorf("WriteConsole() got = %s", buf.String())
	}
}

func TestResolveCatalogData(t *testing.T) {
	var buf bytes.Buffer
	ResolveCatalogData(&buf, []*vulnlib.Record{{ID: "CVE-2011-2523", Service: "vsftpd", VersionRange: "==2.3.4", Severity: vulnlib.SeverityCritical}})

	if !strings.Contains(buf.String(), "CVE-2011-2523") || !strings.Contains(buf.String(), "==2.3.4") {
		t.Errorf("ResolveCatalogData() got = %s", buf.String())
	}
}

func TestScanToJson(t *testing.T) {
	outfile := filepath.Join(t.TempDir(), "reports", "scan.json")

	filename, err := ScanToJson([]*internal.Result{testResult()}, outfile)
	if err != nil {
		t.Fatalf("ScanToJson() error = %v", err)
	}
	if filename != outfile {
		t.Errorf("filename got = %v, want %v", filename, outfile)
	}

	data, err := os.ReadFile(outfile)
	if err != nil {
		t.Fatal(err)
	}

	var got struct {
		Success        bool   `json:"success"`
		Target         string `json:"target"`
		Findings       []vulnscan.Finding
		RiskAssessment struct {
			TotalScore        int            `json:"total_score"`
			SeverityBreakdown map[string]int `json:"severity_breakdown"`
		} `json:"risk_assessment"`
	}
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if !got.Success || got.Target != "192.168.1.10" || len(got.Findings) != 2 || got.RiskAssessment.TotalScore != 8 {
		t.Errorf("json got = %s", data)
	}
	if len(got.RiskAssessment.SeverityBreakdown) != 5 {
		t.Errorf("breakdown got = %v", got.RiskAssessment.SeverityBreakdown)
	}
}

func TestScanToJsonMany(t *testing.T) {
	outfile := filepath.Join(t.TempDir(), "scan.json")
	failed := &internal.Result{Target: "10.0.0.2", Error: "catalog unavailable"}

	if _, err := ScanToJson([]*internal.Result{testResult(), failed}, outfile); err != nil {
		t.Fatalf("ScanToJson() error = %v", err)
	}

	data, _ := os.ReadFile(outfile)
	var got []map[string]interface{}
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if len(got) != 2 || got[1]["success"] != false {
		t.Errorf("json got = %s", data)
	}
}

func TestFindingsToCSV(t *testing.T) {
	outfile := filepath.Join(t.TempDir(), "findings.csv")

	if _, err := FindingsToCSV([]*internal.Result{testResult()}, outfile); err != nil {
		t.Fatalf("FindingsToCSV() error = %v", err)
	}

	data, err := os.ReadFile(outfile)
	if err != nil {
		t.Fatal(err)
	}

	header := strings.SplitN(string(data), "\n", 2)[0]
	if header != "port,service,version,cve_id,severity,summary,mitigation,reference" {
		t.Errorf("header got = %v", header)
	}

	findings := []vulnscan.Finding{}
	if err := gocsv.UnmarshalBytes(data, &findings); err != nil {
		t.Fatalf("UnmarshalBytes() error = %v", err)
	}
	if len(findings) != 2 || findings[1].CVEID != "CVE-2021-23017" || findings[1].Port != 80 {
		t.Errorf("csv got = %+v", findings)
	}
}

func TestFindingsToCSVEmpty(t *testing.T) {
	outfile := filepath.Join(t.TempDir(), "findings.csv")
	r := &internal.Result{Success: true, Target: "10.0.0.1"}

	filename, err := FindingsToCSV([]*internal.Result{r}, outfile)
	if err != nil || filename != "" {
		t.Fatalf("FindingsToCSV() got = %v, %v", filename, err)
	}
	if exists(outfile) {
		t.Errorf("csv written without findings")
	}
}

func TestSaveUnknownFormat(t *testing.T) {
	if err := Save([]*internal.Result{testResult()}, "xml", ""); err == nil {
		t.Errorf("Save() accepted an unknown format")
	}
}
