package format

import (
	"github.com/fxamacker/cbor/v2"
	jsoniter "github.com/json-iterator/go"
)

// Codec encodes payloads for message and HTTP handlers.
type Codec interface {
	Name() string
	ContentType() string
	Marshal(v any) ([]byte, error)
}

// JSONCodec encodes with json-iterator in standard-library compatible mode.
type JSONCodec struct{}

func (JSONCodec) Name() string        { return "json" }
func (JSONCodec) ContentType() string { return "application/json" }

func (JSONCodec) Marshal(v any) ([]byte, error) {
	return jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(v)
}

// CBORCodec encodes RFC 8949 CBOR with timestamps as RFC 3339 text.
type CBORCodec struct {
	mode cbor.EncMode
}

// NewCBORCodec builds a codec with sorted map keys so equal payloads encode
// to equal bytes.
func NewCBORCodec() (*CBORCodec, error) {
	mode, err := cbor.EncOptions{
		Sort: cbor.SortCanonical,
		Time: cbor.TimeRFC3339Nano,
	}.EncMode()
	if err != nil {
		return nil, err
	}
	return &CBORCodec{mode: mode}, nil
}

func (*CBORCodec) Name() string        { return "cbor" }
func (*CBORCodec) ContentType() string { return "application/cbor" }

func (c *CBORCodec) Marshal(v any) ([]byte, error) {
	return c.mode.Marshal(v)
}

// CodecByName resolves "json" (the default for an empty name) or "cbor".
func CodecByName(name string) (Codec, bool) {
	switch name {
	case "", "json":
		return JSONCodec{}, true
	case "cbor":
		c, err := NewCBORCodec()
		if err != nil {
			return nil, false
		}
		return c, true
	default:
		return nil, false
	}
}

