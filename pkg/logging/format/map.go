package format

import (
	jsoniter "github.com/json-iterator/go"

	"github.com/buession/buession-logging-sub001/pkg/logging"
)

// EmptyObject is what JSONMapFormatter produces when a map cannot be encoded.
const EmptyObject = "{}"

// MapFormatter renders a string-keyed map for a backend. A nil map yields nil.
type MapFormatter interface {
	Format(m map[string]any) any
}

// JSONMapFormatter encodes maps as JSON text. Encoding never fails the
// caller: unsupported values such as channels or functions, self-referencing
// maps and nesting beyond logging.MaxDepth produce "{}".
type JSONMapFormatter struct {
	API jsoniter.API
}

func (f JSONMapFormatter) Format(m map[string]any) (out any) {
	if m == nil {
		return nil
	}
	if !logging.Encodable(m) {
		return EmptyObject
	}
	api := f.API
	if api == nil {
		api = jsoniter.ConfigCompatibleWithStandardLibrary
	}

	defer func() {
		if r := recover(); r != nil {
			out = EmptyObject
		}
	}()

	b, err := api.Marshal(m)
	if err != nil {
		return EmptyObject
	}
	return string(b)
}
