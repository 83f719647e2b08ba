package vulnlib

import (
	"reflect"
	"testing"
)

func testRecords() []*Record {
	return []*Record{
		{ID: "CVE-2018-15473", Service: "OpenSSH", VersionRange: ">=7.0,<7.8", Severity: "MEDIUM"},
		{ID: "CVE-2021-41773", Service: "Apache HTTP Server", VersionRange: "==2.4.49", Severity: "CRITICAL"},
		{ID: "CVE-2021-23017", Service: "nginx", VersionRange: ">=0.6.18,<1.21.0", Severity: "high"},
		{ID: "CVE-2011-2523", Service: "vsftpd", VersionRange: "==2.3.4", Severity: "Unknown"},
		{ID: "CVE-2020-0000", Service: "OpenSSH", VersionRange: "", Severity: "bogus"},
	}
}

func TestParseSeverity(t *testing.T) {
	tests := []struct {
		in   string
		want Severity
	}{
		{"LOW", SeverityLow},
		{"medium", SeverityMedium},
		{" High ", SeverityHigh},
		{"CRITICAL", SeverityCritical},
		{"Unknown", SeverityUnknown},
		{"NONE", SeverityUnknown},
		{"", SeverityUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseSeverity(tt.in); got != tt.want {
				t.Errorf("ParseSeverity() got = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLookup(t *testing.T) {
	c := NewCatalog(testRecords())

	type args struct {
		name string
	}

	tests := []struct {
		name string
		args args
		want []string
	}{
		{name: "exact", args: args{name: "OpenSSH"}, want: []string{"CVE-2018-15473", "CVE-2020-0000"}},
		{name: "caseInsensitive", args: args{name: "openssh"}, want: []string{"CVE-2018-15473", "CVE-2020-0000"}},
		{name: "substring", args: args{name: "Apache HTTP"}, want: []string{"CVE-2021-41773"}},
		{name: "noMatch", args: args{name: "ProFTPD"}, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := []string{}
			for _, r := range c.Lookup(tt.args.name) {
				got = append(got, r.ID)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Lookup() got = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLookupEmptyCatalog(t *testing.T) {
	var c *Catalog
	if got := c.Lookup("nginx"); len(got) != 0 {
		t.Errorf("nil catalog Lookup() got = %v", got)
	}
	if got := NewCatalog(nil).Lookup("nginx"); len(got) != 0 {
		t.Errorf("empty catalog Lookup() got = %v", got)
	}
}

func TestNewCatalogFoldsSeverity(t *testing.T) {
	records := testRecords()
	c := NewCatalog(records)

	want := []Severity{SeverityMedium, SeverityCritical, SeverityHigh, SeverityUnknown, SeverityUnknown}
	for i, r := range c.Records() {
		if r.Severity != want[i] {
			t.Errorf("record %d severity = %v, want %v", i, r.Severity, want[i])
		}
	}

	if records[2].Severity != "high" {
		t.Errorf("NewCatalog mutated its input")
	}
}

func TestServicesAndSuggest(t *testing.T) {
	c := NewCatalog(testRecords())

	want := []string{"OpenSSH", "Apache HTTP Server", "nginx", "vsftpd"}
	if got := c.Services(); !reflect.DeepEqual(got, want) {
		t.Errorf("Services() got = %v, want %v", got, want)
	}

	if got := c.Suggest("vsftp"); got != "vsftpd" {
		t.Errorf("Suggest() got = %v, want vsftpd", got)
	}
}

func TestValidate(t *testing.T) {
	records := append(testRecords(), &Record{ID: "CVE-2018-15473", Service: "OpenSSH", Severity: "LOW"})

	want := []string{
		"found 2 duplicate CVE entries",
		"found 1 entries with invalid severity levels",
	}

	if got := Validate(records); !reflect.DeepEqual(got, want) {
		t.Errorf("Validate() got = %v, want %v", got, want)
	}

	if got := Validate(testRecords()[:3]); len(got) != 0 {
		t.Errorf("Validate() on clean records got = %v", got)
	}
}
