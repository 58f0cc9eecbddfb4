package ingest

import (
	"context"
	"fmt"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/buession/buession-logging-sub001/pkg/logging"
	"github.com/buession/buession-logging-sub001/pkg/logging/useragent"
	"github.com/buession/buession-logging-sub001/pkg/platform/httputil"
	"github.com/buession/buession-logging-sub001/pkg/requestcontext"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// EventRequest is the JSON body of POST /v1/events. Field names match the
// sparse payload emitted by the message and HTTP sinks, so an event can be
// relayed from one logsink to another unchanged.
type EventRequest struct {
	Principal         any                      `json:"principal"`
	DateTime          *time.Time               `json:"dateTime"`
	BusinessType      string                   `json:"businessType"`
	Event             string                   `json:"event"`
	Description       *string                  `json:"description"`
	ClientIP          *string                  `json:"clientIp"`
	RemoteAddr        *string                  `json:"remoteAddr"`
	UserAgent         *string                  `json:"userAgent"`
	URL               *string                  `json:"url"`
	RequestMethod     *string                  `json:"requestMethod"`
	RequestParameters map[string]any           `json:"requestParameters"`
	RequestBody       jsoniter.RawMessage      `json:"requestBody"`
	OperatingSystem   *logging.OperatingSystem `json:"operatingSystem"`
	DeviceType        string                   `json:"deviceType"`
	Browser           *logging.Browser         `json:"browser"`
	Location          *logging.Location        `json:"location"`
	Status            string                   `json:"status"`
	Extra             map[string]any           `json:"extra"`
}

// ToEvent validates the request and builds the event. Client metadata the
// body leaves out is taken from ctx, where the HTTP middleware put it.
func (r *EventRequest) ToEvent(ctx context.Context) (*logging.Event, error) {
	b := logging.NewBuilder().
		WithPrincipal(r.Principal).
		WithRequestParameters(r.RequestParameters).
		WithExtra(r.Extra)

	if r.DateTime != nil && !r.DateTime.IsZero() {
		b.WithOccurredAt(*r.DateTime)
	} else {
		b.WithOccurredAt(requestcontext.Now(ctx))
	}
	if r.BusinessType != "" {
		b.WithBusinessType(logging.Category(r.BusinessType))
	}
	if r.Event != "" {
		b.WithEventType(logging.Category(r.Event))
	}

	setString(r.Description, b.WithDescription)
	setString(r.URL, b.WithURL)
	setString(r.RequestMethod, b.WithRequestMethod)
	setString(firstNonEmpty(r.ClientIP, requestcontext.ClientIP(ctx)), b.WithClientIP)
	setString(firstNonEmpty(r.RemoteAddr, requestcontext.RemoteAddr(ctx)), b.WithRemoteAddr)

	if body, err := decodeBody(r.RequestBody); err != nil {
		return nil, err
	} else if body != nil {
		b.WithRequestBody(*body)
	}

	// Derived client fields come first so explicit ones in the body win
	if ua := firstNonEmpty(r.UserAgent, requestcontext.UserAgent(ctx)); ua != nil {
		useragent.Apply(b, *ua)
	}
	if r.OperatingSystem != nil {
		b.WithOperatingSystem(*r.OperatingSystem)
	}
	if r.Browser != nil {
		b.WithBrowser(*r.Browser)
	}
	if r.DeviceType != "" {
		d, err := parseDeviceType(r.DeviceType)
		if err != nil {
			return nil, err
		}
		b.WithDeviceType(d)
	}
	if r.Location != nil {
		b.WithLocation(*r.Location)
	}
	if r.Status != "" {
		s, err := parseStatus(r.Status)
		if err != nil {
			return nil, err
		}
		b.WithStatus(s)
	}

	return b.Build(), nil
}

func setString(v *string, set func(string) *logging.Builder) {
	if v != nil {
		set(*v)
	}
}

// firstNonEmpty prefers the explicit value, then the request-derived one.
func firstNonEmpty(explicit *string, derived string) *string {
	if explicit != nil {
		return explicit
	}
	if derived == "" {
		return nil
	}
	return &derived
}

// decodeBody keeps a JSON string as its text and any other JSON value as its
// raw encoding.
func decodeBody(raw jsoniter.RawMessage) (*string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, httputil.BadRequest("requestBody: " + err.Error())
		}
		return &s, nil
	}
	s := string(raw)
	return &s, nil
}

func parseStatus(s string) (logging.Status, error) {
	switch strings.ToUpper(s) {
	case logging.StatusSuccess.String():
		return logging.StatusSuccess, nil
	case logging.StatusFailure.String():
		return logging.StatusFailure, nil
	default:
		return 0, httputil.BadRequest(fmt.Sprintf("status must be SUCCESS or FAILURE, got %q", s))
	}
}

func parseDeviceType(s string) (logging.DeviceType, error) {
	d := logging.DeviceType(strings.ToUpper(s))
	switch d {
	case logging.DeviceComputer, logging.DeviceMobile, logging.DeviceTablet, logging.DeviceBot, logging.DeviceUnknown:
		return d, nil
	default:
		return "", httputil.BadRequest(fmt.Sprintf("unknown deviceType %q", s))
	}
}
