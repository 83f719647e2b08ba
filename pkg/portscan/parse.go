package portscan

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/kvesta/portvuln/pkg/version"
)

// ParseNmapXML reads the open ports of an `nmap -oX` report.
func ParseNmapXML(data []byte) ([]Observation, error) {
	doc, err := xmlquery.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	observations := []Observation{}
	for _, port := range xmlquery.Find(doc, "//host/ports/port") {
		state := port.SelectElement("state")
		if state == nil || state.SelectAttr("state") != "open" {
			continue
		}

		portID, err := strconv.Atoi(port.SelectAttr("portid"))
		if err != nil {
			continue
		}

		obs := Observation{
			Port:     portID,
			Protocol: port.SelectAttr("protocol"),
			Service:  "unknown",
		}

		rawVersion := ""
		if svc := port.SelectElement("service"); svc != nil {
			if name := svc.SelectAttr("name"); name != "" {
				obs.Service = name
			}
			obs.Product = svc.SelectAttr("product")
			rawVersion = svc.SelectAttr("version")
		}

		obs.Banner = strings.TrimSpace(obs.Product + " " + rawVersion)
		if obs.Banner == "" {
			obs.Banner = obs.Service
		}
		obs.Version = version.Clean(rawVersion, obs.Banner)

		observations = append(observations, obs)
	}

	return observations, nil
}
