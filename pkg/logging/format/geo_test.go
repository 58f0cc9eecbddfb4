package format

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/buession/buession-logging-sub001/pkg/logging"
)

func TestTextGeoFormatter(t *testing.T) {
	f := TextGeoFormatter{}

	assert.Nil(t, f.Format(nil))
	assert.Nil(t, f.Format(&logging.Location{}))
	assert.Equal(t, "31.2304,121.4737", f.Format(&logging.Location{
		Coordinates: &logging.Coordinates{Latitude: 31.2304, Longitude: 121.4737},
		City:        "Shanghai",
	}))
	assert.Equal(t, "CN Shanghai", f.Format(&logging.Location{Country: "CN", City: "Shanghai"}))
	assert.Equal(t, "CN/SH/Shanghai", TextGeoFormatter{Separator: "/"}.Format(&logging.Location{
		Country: "CN", Region: "SH", City: "Shanghai",
	}))
}

func TestPointGeoFormatter(t *testing.T) {
	f := PointGeoFormatter{}

	assert.Nil(t, f.Format(nil))
	assert.Nil(t, f.Format(&logging.Location{}))
	assert.Equal(t, map[string]any{
		"point":   map[string]any{"lat": 1.5, "lon": -2.25},
		"country": "FR",
	}, f.Format(&logging.Location{
		Coordinates: &logging.Coordinates{Latitude: 1.5, Longitude: -2.25},
		Country:     "FR",
	}))
}
