package zpl

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zlib"
)

var ErrChecksumMismatch = errors.New("checksum mismatch")

// DecodeGraphicField reverses Encoder.GraphicField, returning the packed data
// and the number of bytes per row. c says how Z64 data was compressed and sum
// verifies Base64 framed data; a nil sum skips verification.
func DecodeGraphicField(field string, c Compression, sum Checksum) ([]byte, int, error) {
	rest, ok := strings.CutPrefix(field, "^GFA,")
	if !ok {
		return nil, 0, fmt.Errorf("not a ^GFA graphic field")
	}
	parts := strings.SplitN(rest, ",", 4)
	if len(parts) != 4 {
		return nil, 0, fmt.Errorf("graphic field has %d parameters, expected 4", len(parts))
	}
	stride, err := strconv.Atoi(parts[2])
	if err != nil || stride <= 0 {
		return nil, 0, fmt.Errorf("bad bytes per row %q", parts[2])
	}
	data := parts[3]

	switch {
	case strings.HasPrefix(data, ":B64:"):
		raw, err := unframe(data[len(":B64:"):], sum)
		return raw, stride, err

	case strings.HasPrefix(data, ":Z64:"):
		raw, err := unframe(data[len(":Z64:"):], sum)
		if err != nil {
			return nil, 0, err
		}
		if c == Zlib {
			raw, err = inflate(raw)
		} else {
			raw, err = Decompress(raw, stride)
		}
		return raw, stride, err

	default:
		// plain hex is valid compressed ASCII with no repeats
		raw, err := Decompress([]byte(data), stride)
		return raw, stride, err
	}
}

func unframe(s string, sum Checksum) ([]byte, error) {
	encoded, crcHex, ok := strings.Cut(s, ":")
	if !ok {
		return nil, fmt.Errorf("missing checksum")
	}
	if sum != nil {
		expected, err := strconv.ParseUint(crcHex, 16, 16)
		if err != nil {
			return nil, fmt.Errorf("bad checksum %q", crcHex)
		}
		if got := sum([]byte(encoded)); got != uint16(expected) {
			return nil, fmt.Errorf("%w: got %04x, field says %04x", ErrChecksumMismatch, got, expected)
		}
	}
	return base64.StdEncoding.DecodeString(encoded)
}

func inflate(data []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}
