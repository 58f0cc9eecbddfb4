package logging

// Sparse payload keys shared by message and HTTP handlers.
const (
	KeyPrincipal         = "principal"
	KeyDateTime          = "dateTime"
	KeyBusinessType      = "businessType"
	KeyEvent             = "event"
	KeyDescription       = "description"
	KeyURL               = "url"
	KeyRequestMethod     = "requestMethod"
	KeyRequestParameters = "requestParameters"
	KeyRequestBody       = "requestBody"
	KeyClientIP          = "clientIp"
	KeyRemoteAddr        = "remoteAddr"
	KeyUserAgent         = "userAgent"
	KeyOperatingSystem   = "operatingSystem"
	KeyDeviceType        = "deviceType"
	KeyBrowser           = "browser"
	KeyLocation          = "location"
	KeyStatus            = "status"
	KeyExtra             = "extra"
)

// Payload is a sparse key/value view of an Event: only present fields are
// included.
type Payload map[string]any

// NewPayload builds the sparse payload for e. The returned map does not share
// its top level with e. Values an encoder cannot walk are replaced: maps by an
// empty map, other values by their type name.
func NewPayload(e *Event) Payload {
	p := make(Payload, 8)

	if e.principal != nil {
		p[KeyPrincipal] = encodableValue(e.principal)
	}
	if !e.occurredAt.IsZero() {
		p[KeyDateTime] = e.occurredAt
	}
	if e.businessType != nil {
		p[KeyBusinessType] = e.businessType.String()
	}
	if e.eventType != nil {
		p[KeyEvent] = e.eventType.String()
	}
	putString(p, KeyDescription, e.description)
	putString(p, KeyURL, e.url)
	putString(p, KeyRequestMethod, e.requestMethod)
	if e.requestParameters != nil {
		p[KeyRequestParameters] = encodableMap(e.RequestParameters())
	}
	switch body := e.requestBody.(type) {
	case nil:
	case []byte:
		p[KeyRequestBody] = string(body)
	default:
		p[KeyRequestBody] = encodableValue(body)
	}
	putString(p, KeyClientIP, e.clientIP)
	putString(p, KeyRemoteAddr, e.remoteAddr)
	putString(p, KeyUserAgent, e.userAgent)
	if os, ok := e.OperatingSystem(); ok {
		p[KeyOperatingSystem] = os
	}
	if d, ok := e.DeviceType(); ok {
		p[KeyDeviceType] = d.String()
	}
	if b, ok := e.Browser(); ok {
		p[KeyBrowser] = b
	}
	if loc, ok := e.Location(); ok {
		p[KeyLocation] = loc
	}
	if s, ok := e.Status(); ok {
		p[KeyStatus] = s.String()
	}
	if e.extra != nil {
		p[KeyExtra] = encodableMap(e.Extra())
	}
	return p
}

func putString(p Payload, key string, v *string) {
	if v != nil {
		p[key] = *v
	}
}
