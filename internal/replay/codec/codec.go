// Package codec converts game records to and from the compact replay code
// embedded in downloaded reports: JSON, zlib-deflated, base64-encoded.
package codec

import (
	"bytes"
	"compress/zlib"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ramonehamilton/spell-bingo/internal/bingo"
)

// Version is the payload version written by Encode and the only one Decode
// accepts.
const Version = "1.0"

// Report markers delimiting the replay code inside a plaintext report.
const (
	EditMarker = "--- DO NOT EDIT BELOW THIS LINE ---"
	CodeLabel  = "本局回放代码："
)

// MaxDecodedBytes bounds the inflated size of a replay code.
const MaxDecodedBytes = 16 << 20

var (
	ErrEmptyInput         = errors.New("replay code is empty")
	ErrMalformed          = errors.New("malformed replay code")
	ErrUnsupportedVersion = errors.New("unsupported replay version")
)

// Encode serializes data into a replay code.
func Encode(data *bingo.GameLogData) (string, error) {
	if data == nil {
		return "", fmt.Errorf("%w: nil game log", ErrMalformed)
	}
	raw, err := json.Marshal(bingo.ReplayPayload{Version: Version, Data: *data})
	if err != nil {
		return "", fmt.Errorf("failed to marshal replay payload: %w", err)
	}

	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		return "", fmt.Errorf("failed to compress replay payload: %w", err)
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("failed to compress replay payload: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// Decode parses a replay code. Characters outside the base64 alphabet, such
// as line breaks from wrapping, are ignored.
func Decode(code string) (*bingo.ReplayPayload, error) {
	clean := stripNonBase64(code)
	if clean == "" {
		return nil, ErrEmptyInput
	}

	compressed, err := base64.StdEncoding.DecodeString(clean)
	if err != nil {
		return nil, fmt.Errorf("%w: base64: %v", ErrMalformed, err)
	}
	zr, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("%w: inflate: %v", ErrMalformed, err)
	}
	defer func() { _ = zr.Close() }()
	raw, err := io.ReadAll(io.LimitReader(zr, MaxDecodedBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: inflate: %v", ErrMalformed, err)
	}
	if len(raw) > MaxDecodedBytes {
		return nil, fmt.Errorf("%w: inflates beyond %d bytes", ErrMalformed, MaxDecodedBytes)
	}

	var envelope struct {
		Version *string         `json:"version"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("%w: json: %v", ErrMalformed, err)
	}
	if envelope.Version == nil {
		return nil, fmt.Errorf("%w: missing version", ErrMalformed)
	}
	if *envelope.Version != Version {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedVersion, *envelope.Version)
	}
	if len(envelope.Data) == 0 || bytes.Equal(envelope.Data, []byte("null")) {
		return nil, fmt.Errorf("%w: missing data", ErrMalformed)
	}

	payload := &bingo.ReplayPayload{Version: *envelope.Version}
	if err := json.Unmarshal(envelope.Data, &payload.Data); err != nil {
		return nil, fmt.Errorf("%w: data: %v", ErrMalformed, err)
	}
	return payload, nil
}

// DecodeReport extracts and decodes the replay code of a plaintext report. A
// text without the edit marker is treated as a bare replay code.
func DecodeReport(text string) (*bingo.ReplayPayload, error) {
	return Decode(ExtractCode(text))
}

// ExtractCode returns the part of a report below the edit marker and the code
// label, or text unchanged when it carries no marker.
func ExtractCode(text string) string {
	i := strings.LastIndex(text, EditMarker)
	if i < 0 {
		return text
	}
	rest := text[i+len(EditMarker):]
	if j := strings.Index(rest, CodeLabel); j >= 0 {
		rest = rest[j+len(CodeLabel):]
	}
	return rest
}

// Wrap breaks code into lines of at most width characters.
func Wrap(code string, width int) string {
	if width <= 0 || len(code) <= width {
		return code
	}
	var sb strings.Builder
	sb.Grow(len(code) + len(code)/width)
	for len(code) > width {
		sb.WriteString(code[:width])
		sb.WriteByte('\n')
		code = code[width:]
	}
	sb.WriteString(code)
	return sb.String()
}

func stripNonBase64(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9', c == '+', c == '/', c == '=':
			sb.WriteByte(c)
		}
	}
	return sb.String()
}
