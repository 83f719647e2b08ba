package portscan

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// DefaultPorts are the commonly exposed services checked when no ports are given.
func DefaultPorts() []int {
	return []int{21, 22, 80, 443, 3306, 3389, 5432, 8080}
}

// ValidateTarget accepts IPv4 and IPv6 literals only.
func ValidateTarget(target string) bool {
	return net.ParseIP(target) != nil
}

// ParsePorts reads a comma separated port list such as "22,80,8000-8010".
func ParsePorts(s string) ([]int, error) {
	ports := []int{}
	seen := map[int]bool{}

	add := func(p int) {
		if !seen[p] {
			seen[p] = true
			ports = append(ports, p)
		}
	}

	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		if lo, hi, ok := strings.Cut(part, "-"); ok {
			start, err := parsePort(lo)
			if err != nil {
				return nil, err
			}
			end, err := parsePort(hi)
			if err != nil {
				return nil, err
			}
			if start > end {
				return nil, fmt.Errorf("invalid port range %q", part)
			}
			for p := start; p <= end; p++ {
				add(p)
			}
			continue
		}

		p, err := parsePort(part)
		if err != nil {
			return nil, err
		}
		add(p)
	}

	return ports, nil
}

func parsePort(s string) (int, error) {
	p, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || p < 1 || p > 65535 {
		return 0, fmt.Errorf("invalid port %q", s)
	}
	return p, nil
}

// FormatPorts renders ports the way nmap's -p flag expects them.
func FormatPorts(ports []int) string {
	if len(ports) == 0 {
		ports = DefaultPorts()
	}

	s := make([]string, 0, len(ports))
	for _, p := range ports {
		s = append(s, strconv.Itoa(p))
	}
	return strings.Join(s, ",")
}
