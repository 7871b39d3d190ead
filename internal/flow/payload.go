package flow

import (
	"encoding/base64"

	json "github.com/goccy/go-json"
	"github.com/klauspost/compress/zstd"
)

var enc, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
var dec, _ = zstd.NewReader(nil)

// EncodePayload encodes v as JSON, compresses and base64-url encodes it.
func EncodePayload(v any) (string, error) {
	s, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	b := enc.EncodeAll(s, make([]byte, 0, len(s)))
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// DecodePayload reverses EncodePayload and returns the JSON bytes.
func DecodePayload(in string) ([]byte, error) {
	b, err := base64.RawURLEncoding.DecodeString(in)
	if err != nil {
		return []byte{}, err
	}
	out, err := dec.DecodeAll(b, nil)
	if err != nil {
		return []byte{}, err
	}
	return out, nil
}
