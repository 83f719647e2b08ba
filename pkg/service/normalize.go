// Package service maps the service/product strings reported by a port
// scanner onto the service names used in the vulnerability catalog.
package service

import (
	"sort"
	"strings"
)

// Signature maps a product string to a catalog name when the product
// contains every one of Contains (case-insensitive).
type Signature struct {
	Contains []string `yaml:"contains" toml:"contains"`
	Name     string   `yaml:"name" toml:"name"`
}

type Normalizer struct {
	signatures []Signature
	aliases    map[string]string
}

// DefaultSignatures are checked in order, the first hit wins.
func DefaultSignatures() []Signature {
	return []Signature{
		{Contains: []string{"apache"}, Name: "Apache HTTP"},
		{Contains: []string{"nginx"}, Name: "nginx"},
		{Contains: []string{"openssh"}, Name: "OpenSSH"},
		{Contains: []string{"mysql"}, Name: "MySQL"},
		{Contains: []string{"ftp", "vsftpd"}, Name: "vsftpd"},
		{Contains: []string{"ftp", "proftpd"}, Name: "ProFTPD"},
	}
}

// DefaultAliases maps bare scanner service names.
func DefaultAliases() map[string]string {
	return map[string]string{
		"ssh":   "OpenSSH",
		"http":  "Apache HTTP",
		"https": "Apache HTTP",
		"mysql": "MySQL",
		"ftp":   "vsftpd",
	}
}

func New(signatures []Signature, aliases map[string]string) *Normalizer {
	n := &Normalizer{
		aliases: map[string]string{},
	}

	for _, s := range signatures {
		sig := Signature{Name: s.Name}
		for _, c := range s.Contains {
			sig.Contains = append(sig.Contains, strings.ToLower(c))
		}
		n.signatures = append(n.signatures, sig)
	}

	keys := make([]string, 0, len(aliases))
	for k := range aliases {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		n.aliases[strings.ToLower(k)] = aliases[k]
	}

	return n
}

func Default() *Normalizer {
	return New(DefaultSignatures(), DefaultAliases())
}

// Normalize returns the catalog name for a scanned service. The product is
// checked first, then the bare service name; otherwise service is returned
// unchanged.
func (n *Normalizer) Normalize(service, product string) string {
	if product != "" {
		p := strings.ToLower(product)
		for _, sig := range n.signatures {
			if sig.matches(p) {
				return sig.Name
			}
		}
	}

	if name, ok := n.aliases[strings.ToLower(service)]; ok {
		return name
	}

	return service
}

func (s Signature) matches(product string) bool {
	if len(s.Contains) == 0 {
		return false
	}

	for _, c := range s.Contains {
		if !strings.Contains(product, c) {
			return false
		}
	}
	return true
}
