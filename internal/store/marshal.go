package store

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/roach88/ffgraph/internal/options"
)

// marshalOptions converts a catalogue to JSON TEXT for storage.
func marshalOptions(opts []options.GlobalOption) (string, error) {
	if opts == nil {
		opts = []options.GlobalOption{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(opts); err != nil {
		return "", fmt.Errorf("marshal options: %w", err)
	}
	return string(bytes.TrimSuffix(buf.Bytes(), []byte{'\n'})), nil
}

// unmarshalOptions parses JSON TEXT written by marshalOptions.
func unmarshalOptions(data string) ([]options.GlobalOption, error) {
	opts := []options.GlobalOption{}
	if data == "" {
		return opts, nil
	}
	if err := json.Unmarshal([]byte(data), &opts); err != nil {
		return nil, fmt.Errorf("unmarshal options: %w", err)
	}
	return opts, nil
}
