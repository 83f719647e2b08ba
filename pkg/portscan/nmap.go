package portscan

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os/exec"
	"strings"
	"time"

	"github.com/kvesta/portvuln/config"
)

// DefaultArguments enable service detection with aggressive timing.
func DefaultArguments() []string {
	return []string{"-sV", "-T4"}
}

// NmapProvider runs the nmap binary found on the host.
type NmapProvider struct {
	Binary    string
	Arguments []string
	Timeout   time.Duration
}

// nmapArgs builds the full nmap command line, XML report on stdout.
func nmapArgs(arguments []string, target string, ports []int) []string {
	if len(arguments) == 0 {
		arguments = DefaultArguments()
	}

	args := append([]string{}, arguments...)
	return append(args, "-oX", "-", "-p", FormatPorts(ports), target)
}

func (n *NmapProvider) Scan(ctx context.Context, target string, ports []int) ([]Observation, error) {
	binary := n.Binary
	if binary == "" {
		binary = "nmap"
	}

	if n.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.Timeout)
		defer cancel()
	}

	args := nmapArgs(n.Arguments, target, ports)
	log.Printf(config.Green("Scanning %s on ports: %s"), target, FormatPorts(ports))

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	if err := cmd.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, fmt.Errorf("%s not found, make sure nmap is installed: %w", binary, err)
		}
		if ctx.Err() != nil {
			return nil, fmt.Errorf("nmap timed out: %w", ctx.Err())
		}
		return nil, fmt.Errorf("nmap failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	observations, err := ParseNmapXML(stdout.Bytes())
	if err != nil {
		return nil, err
	}
	logObservations(observations)

	return observations, nil
}

func logObservations(observations []Observation) {
	if len(observations) == 0 {
		log.Printf("No open ports found")
		return
	}

	for _, o := range observations {
		log.Printf("  Port %d: %s (%s)", o.Port, o.Service, o.Banner)
	}
}
