// Package useragent derives operating system, browser and device class from a
// raw User-Agent header.
package useragent

import (
	"strings"

	"github.com/mssola/useragent"

	"github.com/buession/buession-logging-sub001/pkg/logging"
)

// Client is what a User-Agent header reveals about the caller.
type Client struct {
	OS      logging.OperatingSystem
	Browser logging.Browser
	Device  logging.DeviceType
}

// Parse inspects header. An empty header yields ok=false.
func Parse(header string) (Client, bool) {
	header = strings.TrimSpace(header)
	if header == "" {
		return Client{}, false
	}

	ua := useragent.New(header)
	info := ua.OSInfo()
	name, version := ua.Browser()

	return Client{
		OS:      logging.OperatingSystem{Name: info.Name, Version: info.Version},
		Browser: logging.Browser{Name: name, Version: version},
		Device:  deviceType(ua, header),
	}, true
}

// Apply records the header on b together with whatever Parse derives from it.
// The header is recorded even when blank; fields Parse cannot determine are
// left unset.
func Apply(b *logging.Builder, header string) *logging.Builder {
	b.WithUserAgent(header)
	c, ok := Parse(header)
	if !ok {
		return b
	}
	if c.OS.Name != "" {
		b.WithOperatingSystem(c.OS)
	}
	if c.Browser.Name != "" {
		b.WithBrowser(c.Browser)
	}
	return b.WithDeviceType(c.Device)
}

func deviceType(ua *useragent.UserAgent, header string) logging.DeviceType {
	switch {
	case ua.Bot():
		return logging.DeviceBot
	case strings.Contains(header, "iPad") || strings.Contains(header, "Tablet"):
		return logging.DeviceTablet
	case strings.Contains(header, "Android") && !ua.Mobile():
		return logging.DeviceTablet
	case ua.Mobile():
		return logging.DeviceMobile
	case ua.OS() != "":
		return logging.DeviceComputer
	default:
		return logging.DeviceUnknown
	}
}
