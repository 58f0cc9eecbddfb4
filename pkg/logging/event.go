package logging

import (
	"fmt"
	"time"
)

// Category is a named classification for business and event types. Any
// fmt.Stringer can be used in its place.
type Category string

func (c Category) String() string { return string(c) }

// Status is the outcome of the audited operation. It is unrelated to whether
// the event was delivered.
type Status int

const (
	StatusSuccess Status = iota + 1
	StatusFailure
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "SUCCESS"
	case StatusFailure:
		return "FAILURE"
	default:
		return "UNKNOWN"
	}
}

// OperatingSystem identifies the client operating system.
type OperatingSystem struct {
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
}

// Browser identifies the client browser.
type Browser struct {
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
}

// DeviceType classifies the client device.
type DeviceType string

const (
	DeviceComputer DeviceType = "COMPUTER"
	DeviceMobile   DeviceType = "MOBILE"
	DeviceTablet   DeviceType = "TABLET"
	DeviceBot      DeviceType = "BOT"
	DeviceUnknown  DeviceType = "UNKNOWN"
)

func (d DeviceType) String() string { return string(d) }

// Coordinates is a WGS84 point.
type Coordinates struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
}

// Location describes where the request came from. Coordinates and place names
// are independent; either may be missing.
type Location struct {
	Coordinates *Coordinates `json:"coordinates,omitempty"`
	Country     string       `json:"country,omitempty"`
	Region      string       `json:"region,omitempty"`
	City        string       `json:"city,omitempty"`
}

// Event is one audited action. It is read-only once built: handlers only see
// getters, and map getters return copies.
type Event struct {
	principal    any
	occurredAt   time.Time
	businessType fmt.Stringer
	eventType    fmt.Stringer
	description  *string

	clientIP      *string
	remoteAddr    *string
	userAgent     *string
	url           *string
	requestMethod *string

	requestParameters map[string]any
	requestBody       any
	extra             map[string]any

	operatingSystem *OperatingSystem
	deviceType      *DeviceType
	browser         *Browser
	location        *Location
	status          *Status
}

// Principal returns the actor identity, or nil when absent.
func (e *Event) Principal() any { return e.principal }

// OccurredAt returns the capture time.
func (e *Event) OccurredAt() time.Time { return e.occurredAt }

// BusinessType returns the business category, or nil when absent.
func (e *Event) BusinessType() fmt.Stringer { return e.businessType }

// EventType returns the event category, or nil when absent.
func (e *Event) EventType() fmt.Stringer { return e.eventType }

func (e *Event) Description() (string, bool)   { return deref(e.description) }
func (e *Event) ClientIP() (string, bool)      { return deref(e.clientIP) }
func (e *Event) RemoteAddr() (string, bool)    { return deref(e.remoteAddr) }
func (e *Event) UserAgent() (string, bool)     { return deref(e.userAgent) }
func (e *Event) URL() (string, bool)           { return deref(e.url) }
func (e *Event) RequestMethod() (string, bool) { return deref(e.requestMethod) }

// RequestParameters returns a copy of the request parameters, or nil when
// absent. Nested maps and slices are copied as well.
func (e *Event) RequestParameters() map[string]any { return cloneMap(e.requestParameters) }

// Extra returns a copy of the free-form extras, or nil when absent. Nested
// maps and slices are copied as well.
func (e *Event) Extra() map[string]any { return cloneMap(e.extra) }

// RequestBody returns the raw body ([]byte or string), or nil when absent.
func (e *Event) RequestBody() any {
	if b, ok := e.requestBody.([]byte); ok {
		return append([]byte(nil), b...)
	}
	return e.requestBody
}

func (e *Event) OperatingSystem() (OperatingSystem, bool) { return deref(e.operatingSystem) }
func (e *Event) DeviceType() (DeviceType, bool)           { return deref(e.deviceType) }
func (e *Event) Browser() (Browser, bool)                 { return deref(e.browser) }
func (e *Event) Status() (Status, bool)                   { return deref(e.status) }

// Location returns a copy of the location.
func (e *Event) Location() (Location, bool) {
	if e.location == nil {
		return Location{}, false
	}
	loc := *e.location
	if loc.Coordinates != nil {
		c := *loc.Coordinates
		loc.Coordinates = &c
	}
	return loc, true
}

// MarshalJSON renders the sparse payload.
func (e *Event) MarshalJSON() ([]byte, error) {
	return json.Marshal(NewPayload(e))
}

func deref[T any](p *T) (T, bool) {
	if p == nil {
		var zero T
		return zero, false
	}
	return *p, true
}
