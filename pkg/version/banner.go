package version

import (
	"regexp"
	"strings"
)

var bannerPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(\d+\.\d+\.\d+)`),
	regexp.MustCompile(`(\d+\.\d+)`),
}

var plainVersion = regexp.MustCompile(`^\d+(\.\d+)*$`)

// FromBanner pulls the first x.y.z, then x.y, version out of a service banner.
func FromBanner(banner string) string {
	if banner == "" {
		return Unknown
	}

	for _, p := range bannerPatterns {
		if m := p.FindStringSubmatch(banner); m != nil {
			return m[1]
		}
	}

	return Unknown
}

// Clean turns a raw scanner version ("7.4p1 Debian 10+deb9u7") into a
// comparable one ("7.4"). The banner is tried when raw has no version.
func Clean(raw, banner string) string {
	raw = strings.TrimSpace(raw)
	if raw == Unknown {
		return Unknown
	}
	if plainVersion.MatchString(raw) {
		return raw
	}

	if v := FromBanner(raw); v != Unknown {
		return v
	}

	return FromBanner(banner)
}
