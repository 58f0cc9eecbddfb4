package logging

import (
	"fmt"
	"time"
)

// Builder assembles an Event. It is used by the capture side only; handlers
// never see a Builder. A Builder is not safe for concurrent use.
type Builder struct {
	e Event
}

// NewBuilder starts a new event.
func NewBuilder() *Builder {
	return &Builder{}
}

func (b *Builder) WithPrincipal(p any) *Builder {
	b.e.principal = p
	return b
}

func (b *Builder) WithOccurredAt(t time.Time) *Builder {
	b.e.occurredAt = t
	return b
}

func (b *Builder) WithBusinessType(c fmt.Stringer) *Builder {
	b.e.businessType = c
	return b
}

func (b *Builder) WithEventType(c fmt.Stringer) *Builder {
	b.e.eventType = c
	return b
}

func (b *Builder) WithDescription(s string) *Builder {
	b.e.description = &s
	return b
}

func (b *Builder) WithClientIP(s string) *Builder {
	b.e.clientIP = &s
	return b
}

func (b *Builder) WithRemoteAddr(s string) *Builder {
	b.e.remoteAddr = &s
	return b
}

func (b *Builder) WithUserAgent(s string) *Builder {
	b.e.userAgent = &s
	return b
}

func (b *Builder) WithURL(s string) *Builder {
	b.e.url = &s
	return b
}

func (b *Builder) WithRequestMethod(s string) *Builder {
	b.e.requestMethod = &s
	return b
}

func (b *Builder) WithRequestParameters(m map[string]any) *Builder {
	b.e.requestParameters = m
	return b
}

// WithRequestBody accepts a []byte or a string.
func (b *Builder) WithRequestBody(body any) *Builder {
	b.e.requestBody = body
	return b
}

func (b *Builder) WithExtra(m map[string]any) *Builder {
	b.e.extra = m
	return b
}

func (b *Builder) WithOperatingSystem(os OperatingSystem) *Builder {
	b.e.operatingSystem = &os
	return b
}

func (b *Builder) WithDeviceType(d DeviceType) *Builder {
	b.e.deviceType = &d
	return b
}

func (b *Builder) WithBrowser(br Browser) *Builder {
	b.e.browser = &br
	return b
}

func (b *Builder) WithLocation(loc Location) *Builder {
	if loc.Coordinates != nil {
		c := *loc.Coordinates
		loc.Coordinates = &c
	}
	b.e.location = &loc
	return b
}

func (b *Builder) WithStatus(s Status) *Builder {
	b.e.status = &s
	return b
}

// Build returns the finished event. OccurredAt defaults to the current time.
// The builder's maps and body are copied so the event does not share them.
func (b *Builder) Build() *Event {
	e := b.e
	if e.occurredAt.IsZero() {
		e.occurredAt = time.Now()
	}
	e.requestParameters = cloneMap(e.requestParameters)
	e.extra = cloneMap(e.extra)
	if body, ok := e.requestBody.([]byte); ok {
		e.requestBody = append([]byte(nil), body...)
	}
	return &e
}
