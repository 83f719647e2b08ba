package portscan

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"sort"

	"github.com/kvesta/portvuln/config"
	psnet "github.com/shirou/gopsutil/net"
	"github.com/shirou/gopsutil/process"
)

var ErrNotLoopback = errors.New("local scan only supports loopback targets")

var wellKnown = map[int]string{
	21:    "ftp",
	22:    "ssh",
	25:    "smtp",
	53:    "domain",
	80:    "http",
	110:   "pop3",
	143:   "imap",
	443:   "https",
	3306:  "mysql",
	3389:  "ms-wbt-server",
	5432:  "postgresql",
	6379:  "redis",
	8080:  "http-proxy",
	27017: "mongodb",
}

// Listener is one listening TCP socket.
type Listener struct {
	IP   string
	Port int
	Pid  int32
}

// LocalProvider reads the listening sockets of this host instead of
// probing the network. Versions are not known.
type LocalProvider struct {
	// Listeners and ProcessName default to gopsutil lookups.
	Listeners   func(ctx context.Context) ([]Listener, error)
	ProcessName func(ctx context.Context, pid int32) (string, error)
}

// CheckLoopback returns ErrNotLoopback unless target is a loopback IP.
func CheckLoopback(target string) error {
	ip := net.ParseIP(target)
	if ip == nil || !ip.IsLoopback() {
		return fmt.Errorf("%w: %s", ErrNotLoopback, target)
	}
	return nil
}

func (l *LocalProvider) Scan(ctx context.Context, target string, ports []int) ([]Observation, error) {
	if err := CheckLoopback(target); err != nil {
		return nil, err
	}
	ip := net.ParseIP(target)

	if len(ports) == 0 {
		ports = DefaultPorts()
	}
	wanted := map[int]bool{}
	for _, p := range ports {
		wanted[p] = true
	}

	listeners := l.Listeners
	if listeners == nil {
		listeners = tcpListeners
	}
	processName := l.ProcessName
	if processName == nil {
		processName = pidName
	}

	log.Printf(config.Green("Reading local listeners on ports: %s"), FormatPorts(ports))

	found, err := listeners(ctx)
	if err != nil {
		return nil, err
	}

	seen := map[int]bool{}
	observations := []Observation{}
	for _, lis := range found {
		if !wanted[lis.Port] || seen[lis.Port] || !reachable(lis.IP, ip) {
			continue
		}
		seen[lis.Port] = true

		obs := Observation{
			Port:     lis.Port,
			Protocol: "tcp",
			Service:  "unknown",
			Version:  "unknown",
		}
		if name, ok := wellKnown[lis.Port]; ok {
			obs.Service = name
		}

		if lis.Pid > 0 {
			name, err := processName(ctx, lis.Pid)
			if err != nil {
				log.Printf("failed to get process %d, error: %v", lis.Pid, err)
			}
			obs.Product = name
		}

		obs.Banner = obs.Product
		if obs.Banner == "" {
			obs.Banner = obs.Service
		}

		observations = append(observations, obs)
	}

	sort.Slice(observations, func(i, j int) bool {
		return observations[i].Port < observations[j].Port
	})
	logObservations(observations)

	return observations, nil
}

// reachable reports whether a socket bound to bound accepts connections
// to target.
func reachable(bound string, target net.IP) bool {
	ip := net.ParseIP(bound)
	if ip == nil {
		return false
	}
	if ip.IsUnspecified() {
		return true
	}
	return ip.Equal(target) || (ip.IsLoopback() && target.IsLoopback() && (ip.To4() == nil) == (target.To4() == nil))
}

func tcpListeners(ctx context.Context) ([]Listener, error) {
	conns, err := psnet.ConnectionsWithContext(ctx, "tcp")
	if err != nil {
		return nil, err
	}

	listeners := []Listener{}
	for _, c := range conns {
		if c.Status != "LISTEN" {
			continue
		}
		listeners = append(listeners, Listener{
			IP:   c.Laddr.IP,
			Port: int(c.Laddr.Port),
			Pid:  c.Pid,
		})
	}

	return listeners, nil
}

func pidName(ctx context.Context, pid int32) (string, error) {
	p, err := process.NewProcessWithContext(ctx, pid)
	if err != nil {
		return "", err
	}
	return p.NameWithContext(ctx)
}
