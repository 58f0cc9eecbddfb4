package convert

import "github.com/google/uuid"

// IDGenerator produces primary keys for backends that need a synthetic one.
type IDGenerator interface {
	NextID() (string, error)
}

// UUIDv7Generator issues RFC 9562 version 7 UUIDs: unique across processes
// and ordered by creation time, so they index well as primary keys.
type UUIDv7Generator struct{}

func (UUIDv7Generator) NextID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// IDGeneratorFunc adapts a function to IDGenerator.
type IDGeneratorFunc func() (string, error)

func (f IDGeneratorFunc) NextID() (string, error) { return f() }
