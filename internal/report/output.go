package report

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/kvesta/portvuln/config"
	"github.com/kvesta/portvuln/internal"
	"github.com/kvesta/portvuln/pkg/vulnlib"

	"github.com/olekukonko/tablewriter"
)

const summaryLimit = 150

// ResolveScanData prints the result of a scan to stdout.
func ResolveScanData(r *internal.Result) error {
	return WriteConsole(os.Stdout, r)
}

func WriteConsole(w io.Writer, r *internal.Result) error {
	if !r.Success {
		fmt.Fprintf(w, "\nScan failed: %s\n", config.Red(r.Error))
		return nil
	}

	b := r.RiskAssessment.SeverityBreakdown

	fmt.Fprintf(w, "\nTarget: %s | Scan ID: %s\n", r.Target, r.ScanID)
	fmt.Fprintf(w, "Detected %s vulnerabilities on %s open ports | "+
		"Critical: %s High: %s Medium: %s Low: %s Unknown: %d\n\n",
		config.Yellow(len(r.Findings)),
		config.Yellow(len(r.OpenPorts)),
		config.Red(b[vulnlib.SeverityCritical]),
		config.Pink(b[vulnlib.SeverityHigh]),
		config.Yellow(b[vulnlib.SeverityMedium]),
		config.Green(b[vulnlib.SeverityLow]),
		b[vulnlib.SeverityUnknown])

	if len(r.OpenPorts) == 0 {
		fmt.Fprintf(w, "No open ports found\n")
	} else {
		table := tablewriter.NewWriter(w)
		table.SetHeader([]string{"Port", "Protocol", "Service", "Version", "Banner"})

		for _, o := range r.OpenPorts {
			table.Append([]string{strconv.Itoa(o.Port), o.Protocol, o.Service, o.Version, o.Banner})
		}
		table.Render()
	}

	if len(r.Findings) > 0 {
		fmt.Fprintf(w, "\nFindings:\n")

		table := tablewriter.NewWriter(w)
		table.SetHeader([]string{"ID", "Port", "Service", "Version", "CVEID", "Severity", "Summary", "Mitigation"})
		table.SetRowLine(true)
		table.SetAutoMergeCellsByColumnIndex([]int{1, 2})

		for i, f := range r.Findings {
			table.Append([]string{
				strconv.Itoa(i + 1), strconv.Itoa(f.Port), f.Service, f.Version,
				f.CVEID, judgeSeverity(string(f.Severity)), truncate(f.Summary, summaryLimit), f.Mitigation,
			})
		}
		table.Render()
	}

	if len(r.PortScores) > 0 {
		fmt.Fprintf(w, "\nRisk per port:\n")

		table := tablewriter.NewWriter(w)
		table.SetHeader([]string{"Port", "Findings", "Score", "Risk Level"})

		for _, ps := range r.PortScores {
			table.Append([]string{strconv.Itoa(ps.Port), strconv.Itoa(ps.Findings),
				strconv.Itoa(ps.Score), judgeLevel(ps.RiskLevel)})
		}
		table.Render()
	}

	fmt.Fprintf(w, "\nRisk level: %s (score %d)\n",
		judgeLevel(r.RiskAssessment.RiskLevel), r.RiskAssessment.TotalScore)

	return nil
}

// ResolveCatalogData prints catalog records, used by catalog search.
func ResolveCatalogData(w io.Writer, records []*vulnlib.Record) {
	fmt.Fprintf(w, "\nFound %s CVEs\n\n", config.Yellow(len(records)))
	if len(records) == 0 {
		return
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"CVEID", "Service", "Version Range", "Severity", "Summary"})
	table.SetRowLine(true)

	for _, r := range records {
		table.Append([]string{r.ID, r.Service, r.VersionRange,
			judgeSeverity(string(r.Severity)), truncate(r.Summary, summaryLimit)})
	}
	table.Render()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func judgeSeverity(severity string) string {

	severityLow := strings.ToLower(severity)

	switch severityLow {
	case "critical":
		return config.Red("critical")
	case "high":
		return config.Pink("high")
	case "medium":
		return config.Yellow("medium")
	case "low":
		return config.Green("low")
	default:
		// ignore
	}
	return "unknown"
}

func judgeLevel(level string) string {
	switch {
	case strings.HasPrefix(level, "Critical"):
		return config.Red(level)
	case strings.HasPrefix(level, "High"):
		return config.Pink(level)
	case strings.HasPrefix(level, "Medium"):
		return config.Yellow(level)
	case strings.HasPrefix(level, "Low"):
		return config.Green(level)
	}
	return level
}
