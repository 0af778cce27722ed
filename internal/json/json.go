// SPDX-License-Identifier: Apache-2.0

package json

import (
	"io"

	json "github.com/bytedance/sonic"
)

// api mirrors encoding/json behaviour (html escaping, sorted map keys) so
// request bodies sent to the engine are deterministic.
var api = json.ConfigStd

// numberAPI is api keeping numbers as json.Number.
var numberAPI = json.Config{
	EscapeHTML:       true,
	SortMapKeys:      true,
	CompactMarshaler: true,
	CopyString:       true,
	ValidateString:   true,
	UseNumber:        true,
}.Froze()

func Unmarshal(b []byte, v any) error {
	return api.Unmarshal(b, v)
}

// UnmarshalWithNumbers is Unmarshal keeping numbers as json.Number, like the
// decoders returned by NewDecoder.
func UnmarshalWithNumbers(b []byte, v any) error {
	return numberAPI.Unmarshal(b, v)
}

func Marshal(v any) ([]byte, error) {
	return api.Marshal(v)
}

func MarshalIndent(v any, prefix, indent string) ([]byte, error) {
	return api.MarshalIndent(v, prefix, indent)
}

// NewEncoder returns an encoder writing one JSON value per line to w.
func NewEncoder(w io.Writer) json.Encoder {
	return api.NewEncoder(w)
}

// NewDecoder returns a decoder that keeps numbers as json.Number so document
// identifiers and integer fields survive a round trip without float
// conversion.
func NewDecoder(r io.Reader) json.Decoder {
	dec := api.NewDecoder(r)
	dec.UseNumber()
	return dec
}

// Valid reports whether b is a valid JSON encoding.
func Valid(b []byte) bool {
	return api.Valid(b)
}
