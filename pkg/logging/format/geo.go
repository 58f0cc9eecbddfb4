package format

import (
	"strconv"
	"strings"

	"github.com/buession/buession-logging-sub001/pkg/logging"
)

// GeoFormatter renders a location for a backend. A nil location yields nil.
type GeoFormatter interface {
	Format(loc *logging.Location) any
}

// TextGeoFormatter renders "lat,lon" when coordinates are known, otherwise
// the place names joined with Separator. Suited to plain text columns.
type TextGeoFormatter struct {
	Separator string
}

func (f TextGeoFormatter) Format(loc *logging.Location) any {
	if loc == nil {
		return nil
	}
	if c := loc.Coordinates; c != nil {
		return formatFloat(c.Latitude) + "," + formatFloat(c.Longitude)
	}

	sep := f.Separator
	if sep == "" {
		sep = " "
	}
	parts := make([]string, 0, 3)
	for _, p := range []string{loc.Country, loc.Region, loc.City} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return nil
	}
	return strings.Join(parts, sep)
}

// PointGeoFormatter renders an embedded {"lat","lon"} point, the shape search
// indexes map to a geo_point, with place names alongside.
type PointGeoFormatter struct{}

func (PointGeoFormatter) Format(loc *logging.Location) any {
	if loc == nil {
		return nil
	}
	out := make(map[string]any, 4)
	if c := loc.Coordinates; c != nil {
		out["point"] = map[string]any{"lat": c.Latitude, "lon": c.Longitude}
	}
	if loc.Country != "" {
		out["country"] = loc.Country
	}
	if loc.Region != "" {
		out["region"] = loc.Region
	}
	if loc.City != "" {
		out["city"] = loc.City
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
