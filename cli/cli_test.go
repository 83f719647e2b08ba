package cli

import (
	"errors"
	"reflect"
	"testing"

	"github.com/kvesta/portvuln/pkg/portscan"
)

func TestCheckOutput(t *testing.T) {
	tests := []struct {
		format  string
		outfile string
		wantErr bool
	}{
		{"console", "", false},
		{"json", "out.json", false},
		{"csv", "out.csv", false},
		{"json", "", true},
		{"csv", "", true},
		{"xml", "out.xml", true},
	}

	for _, tt := range tests {
		t.Run(tt.format+"_"+tt.outfile, func(t *testing.T) {
			if err := checkOutput(tt.format, tt.outfile); (err != nil) != tt.wantErr {
				t.Errorf("checkOutput() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCheckPorts(t *testing.T) {
	configured := []int{22, 443}

	got, err := checkPorts("", configured)
	if err != nil || !reflect.DeepEqual(got, configured) {
		t.Errorf("checkPorts(\"\") got = %v, %v", got, err)
	}

	got, err = checkPorts("80,8080", configured)
	if err != nil || !reflect.DeepEqual(got, []int{80, 8080}) {
		t.Errorf("checkPorts() got = %v, %v", got, err)
	}

	if _, err = checkPorts("22,http", configured); err == nil {
		t.Errorf("checkPorts() accepted a service name")
	}
}

func TestLocalTarget(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    string
		wantErr bool
	}{
		{name: "default", args: nil, want: "127.0.0.1"},
		{name: "loopback", args: []string{"127.0.0.2"}, want: "127.0.0.2"},
		{name: "ipv6", args: []string{"::1"}, want: "::1"},
		{name: "remote", args: []string{"192.168.1.10"}, wantErr: true},
		{name: "hostname", args: []string{"localhost"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := localTarget(tt.args)
			if tt.wantErr {
				if !errors.Is(err, portscan.ErrNotLoopback) {
					t.Errorf("localTarget() error = %v, want ErrNotLoopback", err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("localTarget() got = %v, %v, want %v", got, err, tt.want)
			}
		})
	}
}
