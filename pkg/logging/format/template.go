package format

import (
	"errors"
	"fmt"
	"strings"

	"github.com/buession/buession-logging-sub001/pkg/logging"
)

// ErrTemplate is returned when a template cannot be rendered.
var ErrTemplate = errors.New("format: render template")

// Template placeholders.
const (
	TokenPrincipal      = "${principal}"
	TokenTime           = "${time}"
	TokenClientIP       = "${clientIp}"
	TokenUserAgent      = "${User-Agent}"
	TokenOSName         = "${os_name}"
	TokenOSVersion      = "${os_version}"
	TokenDeviceType     = "${device_type}"
	TokenBrowserName    = "${browser_name}"
	TokenBrowserVersion = "${browser_version}"
	TokenDescription    = "${description}"
	TokenURL            = "${url}"
	TokenRequestMethod  = "${request_method}"
	TokenBusinessType   = "${business_type}"
	TokenEvent          = "${event}"
	TokenStatus         = "${status}"
	TokenRemoteAddr     = "${remote_addr}"
)

// DefaultTemplate is used by text handlers when none is configured.
const DefaultTemplate = TokenPrincipal + " " + TokenTime + " " + TokenClientIP + " " + TokenUserAgent

// TemplateFormatter renders an event by substituting ${...} placeholders.
// Absent fields render as empty text; unknown placeholders are left as is.
type TemplateFormatter struct {
	Template string
	Time     TimeFormatter
}

// NewTemplateFormatter returns a formatter for tmpl that renders ${time} with
// DefaultPattern.
func NewTemplateFormatter(tmpl string) *TemplateFormatter {
	if tmpl == "" {
		tmpl = DefaultTemplate
	}
	return &TemplateFormatter{
		Template: tmpl,
		Time:     NewDateTimeFormatter(DefaultPattern),
	}
}

// Format renders e. A panic in a user-supplied TimeFormatter or Stringer is
// reported as ErrTemplate.
func (f *TemplateFormatter) Format(e *logging.Event) (out string, err error) {
	if e == nil {
		return "", fmt.Errorf("%w: nil event", ErrTemplate)
	}
	defer func() {
		if r := recover(); r != nil {
			out, err = "", fmt.Errorf("%w: %v", ErrTemplate, r)
		}
	}()

	if !strings.Contains(f.Template, "${") {
		return f.Template, nil
	}
	return strings.NewReplacer(f.pairs(e)...).Replace(f.Template), nil
}

func (f *TemplateFormatter) pairs(e *logging.Event) []string {
	os, _ := e.OperatingSystem()
	br, _ := e.Browser()
	device, _ := e.DeviceType()

	status := ""
	if s, ok := e.Status(); ok {
		status = s.String()
	}

	return []string{
		TokenPrincipal, stringOf(e.Principal()),
		TokenTime, f.timeOf(e),
		TokenClientIP, optional(e.ClientIP()),
		TokenUserAgent, optional(e.UserAgent()),
		TokenOSName, os.Name,
		TokenOSVersion, os.Version,
		TokenDeviceType, string(device),
		TokenBrowserName, br.Name,
		TokenBrowserVersion, br.Version,
		TokenDescription, optional(e.Description()),
		TokenURL, optional(e.URL()),
		TokenRequestMethod, optional(e.RequestMethod()),
		TokenBusinessType, stringOf(e.BusinessType()),
		TokenEvent, stringOf(e.EventType()),
		TokenStatus, status,
		TokenRemoteAddr, optional(e.RemoteAddr()),
	}
}

func (f *TemplateFormatter) timeOf(e *logging.Event) string {
	tf := f.Time
	if tf == nil {
		tf = NewDateTimeFormatter(DefaultPattern)
	}
	return stringOf(tf.Format(e.OccurredAt()))
}

func optional(s string, _ bool) string { return s }

// stringOf renders v as text; nil renders as the empty string.
func stringOf(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case fmt.Stringer:
		return x.String()
	default:
		return logging.Sprint(x)
	}
}
