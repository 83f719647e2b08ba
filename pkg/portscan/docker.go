package portscan

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/kvesta/portvuln/config"
	"github.com/kvesta/portvuln/pkg/inspector"
)

const DefaultImage = "instrumentisto/nmap:latest"

// Runner is satisfied by inspector.DockerApi.
type Runner interface {
	RunContainer(ctx context.Context, sb inspector.Sandbox) (*inspector.Output, error)
}

// DockerProvider runs nmap inside a throwaway, resource-limited container.
type DockerProvider struct {
	Runner    Runner
	Image     string
	Arguments []string
	Timeout   time.Duration
	// NetworkMode is passed to the container, "host" is needed for loopback targets.
	NetworkMode string
}

func (d *DockerProvider) Scan(ctx context.Context, target string, ports []int) ([]Observation, error) {
	image := d.Image
	if image == "" {
		image = DefaultImage
	}

	log.Printf(config.Green("Scanning %s on ports %s inside %s"), target, FormatPorts(ports), image)

	out, err := d.Runner.RunContainer(ctx, inspector.Sandbox{
		Image:       image,
		Cmd:         nmapArgs(d.Arguments, target, ports),
		Timeout:     d.Timeout,
		NetworkMode: d.NetworkMode,
	})
	if err != nil {
		return nil, err
	}

	if out.ExitCode != 0 {
		return nil, fmt.Errorf("nmap exited with %d: %s", out.ExitCode, strings.TrimSpace(string(out.Stderr)))
	}

	observations, err := ParseNmapXML(out.Stdout)
	if err != nil {
		return nil, err
	}
	logObservations(observations)

	return observations, nil
}
