// Package portscan discovers open ports and the services behind them.
package portscan

import (
	"context"
)

// Observation is one open port reported by a provider.
type Observation struct {
	Port     int    `json:"port"`
	Protocol string `json:"protocol"`
	Service  string `json:"service"`
	Product  string `json:"product"`
	Version  string `json:"version"`
	Banner   string `json:"banner"`
}

// Provider scans target for the given ports. An empty port list means
// DefaultPorts.
type Provider interface {
	Scan(ctx context.Context, target string, ports []int) ([]Observation, error)
}
