package state

import (
	"encoding/json"
	"errors"
	"fmt"

	opts "github.com/goliatone/go-sysoptions"
)

// ErrClosed is returned by stores after Close.
var ErrClosed = errors.New("state: store closed")

// EncodeValue serialises a value for storage.
func EncodeValue(value opts.Value) ([]byte, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("state: encode %q: %w", value.Name(), err)
	}
	return raw, nil
}

// DecodeValue parses a record written by EncodeValue and names the value after
// the canonical form of key.
func DecodeValue(key string, raw []byte) (opts.Value, error) {
	var value opts.Value
	if err := json.Unmarshal(raw, &value); err != nil {
		return opts.Value{}, fmt.Errorf("state: decode %q: %w", key, err)
	}
	return value.WithName(key), nil
}
