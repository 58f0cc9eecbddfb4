// Package convert maps events to named backend parameters.
package convert

import (
	"fmt"

	"github.com/buession/buession-logging-sub001/pkg/logging"
	"github.com/buession/buession-logging-sub001/pkg/logging/format"
)

// Named parameters produced by ParamsConverter. SQL templates refer to them as
// :id, :principal and so on.
const (
	ParamID                = "id"
	ParamPrincipal         = "principal"
	ParamDateTime          = "dateTime"
	ParamBusinessType      = "businessType"
	ParamEvent             = "event"
	ParamDescription       = "description"
	ParamClientIP          = "clientIp"
	ParamRemoteAddr        = "remoteAddr"
	ParamURL               = "url"
	ParamRequestMethod     = "requestMethod"
	ParamRequestParameters = "requestParameters"
	ParamRequestBody       = "requestBody"
	ParamUserAgent         = "userAgent"
	ParamOS                = "os"
	ParamOSVersion         = "osVersion"
	ParamDeviceType        = "deviceType"
	ParamBrowser           = "browser"
	ParamBrowserVersion    = "browserVersion"
	ParamLocation          = "location"
	ParamStatus            = "status"
	ParamExtra             = "extra"
)

// Params lists every parameter name in column order.
var Params = []string{
	ParamID, ParamPrincipal, ParamDateTime, ParamBusinessType, ParamEvent,
	ParamDescription, ParamClientIP, ParamRemoteAddr, ParamURL, ParamRequestMethod,
	ParamRequestParameters, ParamRequestBody, ParamUserAgent, ParamOS, ParamOSVersion,
	ParamDeviceType, ParamBrowser, ParamBrowserVersion, ParamLocation, ParamStatus,
	ParamExtra,
}

// Converter turns an event into a backend parameter set.
type Converter interface {
	Convert(e *logging.Event) (map[string]any, error)
}

// ParamsConverter routes each event field through exactly one injected
// formatter into exactly one named parameter. Every name in Params is present
// in the result; absent fields map to nil so the backend stores NULL.
type ParamsConverter struct {
	ids          IDGenerator
	time         format.TimeFormatter
	geo          format.GeoFormatter
	requestParam format.MapFormatter
	extra        format.MapFormatter
}

// Option overrides one of the converter's strategies.
type Option func(*ParamsConverter)

func WithIDGenerator(g IDGenerator) Option {
	return func(c *ParamsConverter) { c.ids = g }
}

func WithTimeFormatter(f format.TimeFormatter) Option {
	return func(c *ParamsConverter) { c.time = f }
}

func WithGeoFormatter(f format.GeoFormatter) Option {
	return func(c *ParamsConverter) { c.geo = f }
}

func WithRequestParametersFormatter(f format.MapFormatter) Option {
	return func(c *ParamsConverter) { c.requestParam = f }
}

func WithExtraFormatter(f format.MapFormatter) Option {
	return func(c *ParamsConverter) { c.extra = f }
}

// NewParamsConverter returns a converter using UUIDv7 ids, the default
// date pattern, text locations and JSON maps unless overridden.
func NewParamsConverter(opts ...Option) *ParamsConverter {
	c := &ParamsConverter{
		ids:          UUIDv7Generator{},
		time:         format.NewDateTimeFormatter(format.DefaultPattern),
		geo:          format.TextGeoFormatter{},
		requestParam: format.JSONMapFormatter{},
		extra:        format.JSONMapFormatter{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Convert builds the parameter set for e. It fails only when no id can be
// generated.
func (c *ParamsConverter) Convert(e *logging.Event) (map[string]any, error) {
	id, err := c.ids.NextID()
	if err != nil {
		return nil, fmt.Errorf("generate id: %w", err)
	}

	p := make(map[string]any, len(Params))
	for _, name := range Params {
		p[name] = nil
	}

	p[ParamID] = id
	if principal := e.Principal(); principal != nil {
		p[ParamPrincipal] = logging.Sprint(principal)
	}
	p[ParamDateTime] = c.time.Format(e.OccurredAt())
	if bt := e.BusinessType(); bt != nil {
		p[ParamBusinessType] = bt.String()
	}
	if et := e.EventType(); et != nil {
		p[ParamEvent] = et.String()
	}
	setString(p, ParamDescription, e.Description)
	setString(p, ParamClientIP, e.ClientIP)
	setString(p, ParamRemoteAddr, e.RemoteAddr)
	setString(p, ParamURL, e.URL)
	setString(p, ParamRequestMethod, e.RequestMethod)
	setString(p, ParamUserAgent, e.UserAgent)

	p[ParamRequestParameters] = c.requestParam.Format(e.RequestParameters())
	p[ParamExtra] = c.extra.Format(e.Extra())

	switch body := e.RequestBody().(type) {
	case nil:
	case []byte:
		p[ParamRequestBody] = string(body)
	case string:
		p[ParamRequestBody] = body
	default:
		p[ParamRequestBody] = logging.Sprint(body)
	}

	if os, ok := e.OperatingSystem(); ok {
		p[ParamOS] = os.Name
		p[ParamOSVersion] = nilIfEmpty(os.Version)
	}
	if d, ok := e.DeviceType(); ok {
		p[ParamDeviceType] = d.String()
	}
	if b, ok := e.Browser(); ok {
		p[ParamBrowser] = b.Name
		p[ParamBrowserVersion] = nilIfEmpty(b.Version)
	}
	if loc, ok := e.Location(); ok {
		p[ParamLocation] = c.geo.Format(&loc)
	}
	if s, ok := e.Status(); ok {
		p[ParamStatus] = s.String()
	}
	return p, nil
}

func setString(p map[string]any, name string, get func() (string, bool)) {
	if v, ok := get(); ok {
		p[name] = v
	}
}

func nilIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
