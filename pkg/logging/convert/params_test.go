package convert

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buession/buession-logging-sub001/pkg/logging"
	"github.com/buession/buession-logging-sub001/pkg/logging/format"
)

func fixedID(id string) IDGenerator {
	return IDGeneratorFunc(func() (string, error) { return id, nil })
}

func TestParamsConverter_Convert(t *testing.T) {
	at := time.Date(2024, 3, 9, 14, 30, 5, 0, time.Local)

	t.Run("every parameter present for a minimal event", func(t *testing.T) {
		c := NewParamsConverter(WithIDGenerator(fixedID("id-1")))
		e := logging.NewBuilder().WithPrincipal("alice").WithOccurredAt(at).Build()

		p, err := c.Convert(e)
		require.NoError(t, err)
		require.Len(t, p, len(Params))
		for _, name := range Params {
			assert.Contains(t, p, name)
		}
		assert.Equal(t, "id-1", p[ParamID])
		assert.Equal(t, "alice", p[ParamPrincipal])
		assert.Equal(t, "2024-03-09 14:30:05", p[ParamDateTime])
		assert.Nil(t, p[ParamClientIP])
		assert.Nil(t, p[ParamRequestParameters])
		assert.Nil(t, p[ParamLocation])
		assert.Nil(t, p[ParamStatus])
	})

	t.Run("full event", func(t *testing.T) {
		c := NewParamsConverter(
			WithIDGenerator(fixedID("id-2")),
			WithTimeFormatter(format.NewDateTimeFormatter(format.PatternEpochMillis)),
		)
		e := logging.NewBuilder().
			WithPrincipal(1001).
			WithOccurredAt(at).
			WithBusinessType(logging.Category("ORDER")).
			WithEventType(logging.Category("CREATE")).
			WithDescription("created order").
			WithClientIP("10.0.0.1").
			WithRemoteAddr("10.0.0.2").
			WithURL("/orders").
			WithRequestMethod("POST").
			WithRequestParameters(map[string]any{"sku": "A-1"}).
			WithRequestBody([]byte(`{"qty":2}`)).
			WithUserAgent("curl/8.0").
			WithOperatingSystem(logging.OperatingSystem{Name: "Linux"}).
			WithDeviceType(logging.DeviceComputer).
			WithBrowser(logging.Browser{Name: "curl", Version: "8.0"}).
			WithLocation(logging.Location{Country: "CN", City: "Shanghai"}).
			WithStatus(logging.StatusSuccess).
			WithExtra(map[string]any{"trace": "abc"}).
			Build()

		p, err := c.Convert(e)
		require.NoError(t, err)

		assert.Equal(t, map[string]any{
			ParamID:                "id-2",
			ParamPrincipal:         "1001",
			ParamDateTime:          at.UnixMilli(),
			ParamBusinessType:      "ORDER",
			ParamEvent:             "CREATE",
			ParamDescription:       "created order",
			ParamClientIP:          "10.0.0.1",
			ParamRemoteAddr:        "10.0.0.2",
			ParamURL:               "/orders",
			ParamRequestMethod:     "POST",
			ParamRequestParameters: `{"sku":"A-1"}`,
			ParamRequestBody:       `{"qty":2}`,
			ParamUserAgent:         "curl/8.0",
			ParamOS:                "Linux",
			ParamOSVersion:         nil,
			ParamDeviceType:        "COMPUTER",
			ParamBrowser:           "curl",
			ParamBrowserVersion:    "8.0",
			ParamLocation:          "CN Shanghai",
			ParamStatus:            "SUCCESS",
			ParamExtra:             `{"trace":"abc"}`,
		}, p)
	})

	t.Run("id generator failure", func(t *testing.T) {
		errNoID := errors.New("no id")
		c := NewParamsConverter(WithIDGenerator(IDGeneratorFunc(func() (string, error) { return "", errNoID })))

		_, err := c.Convert(logging.NewBuilder().Build())
		assert.ErrorIs(t, err, errNoID)
	})

	t.Run("default ids are uuid v7", func(t *testing.T) {
		p, err := NewParamsConverter().Convert(logging.NewBuilder().Build())
		require.NoError(t, err)

		id, err := uuid.Parse(p[ParamID].(string))
		require.NoError(t, err)
		assert.Equal(t, uuid.Version(7), id.Version())
	})
}
