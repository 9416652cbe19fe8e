package zpl

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
)

// Compress and Decompress implement Zebra's compressed ASCII scheme. Each row
// is written as hex digits, then:
//
//	:        the row repeats the previous row
//	,        zeros up to the end of the row
//	!        ones (F digits) up to the end of the row
//	G..Y     repeat the following digit 1..19 times
//	g..z     repeat the following digit 20..400 times, combinable with G..Y
//
// A repeat prefix is only emitted when it is shorter than the digits it
// replaces, so the output is never longer than plain hex.

var (
	ErrCompressionInputMisaligned = errors.New("compression input is not a whole number of rows")
	ErrMalformedCompression       = errors.New("malformed compressed data")
)

const (
	hexDigits = "0123456789ABCDEF"
	// longest run a single prefix can express: z (400) + Y (19)
	maxRun = 419
)

func Compress(packed []byte, bytesPerRow int) ([]byte, error) {
	if bytesPerRow <= 0 || len(packed)%bytesPerRow != 0 {
		return nil, fmt.Errorf("%w: %d bytes, %d per row", ErrCompressionInputMisaligned, len(packed), bytesPerRow)
	}

	out := make([]byte, 0, len(packed))
	digits := make([]byte, 2*bytesPerRow)
	var prev []byte
	for start := 0; start < len(packed); start += bytesPerRow {
		row := packed[start : start+bytesPerRow]
		if prev != nil && bytes.Equal(row, prev) {
			out = append(out, ':')
			continue
		}
		for i, b := range row {
			digits[2*i] = hexDigits[b>>4]
			digits[2*i+1] = hexDigits[b&0x0F]
		}
		out = appendRow(out, digits)
		prev = row
	}
	return out, nil
}

func appendRow(out []byte, digits []byte) []byte {
	for i := 0; i < len(digits); {
		c := digits[i]
		j := i + 1
		for j < len(digits) && digits[j] == c {
			j++
		}
		if j == len(digits) {
			switch c {
			case '0':
				return append(out, ',')
			case 'F':
				return append(out, '!')
			}
		}
		out = appendRun(out, c, j-i)
		i = j
	}
	return out
}

func appendRun(out []byte, c byte, n int) []byte {
	for n > 0 {
		chunk := min(n, maxRun)
		n -= chunk
		if chunk <= 2 {
			for range chunk {
				out = append(out, c)
			}
			continue
		}
		if tens := chunk / 20; tens > 0 {
			out = append(out, 'g'+byte(tens-1))
		}
		if ones := chunk % 20; ones > 0 {
			out = append(out, 'G'+byte(ones-1))
		}
		out = append(out, c)
	}
	return out
}

func Decompress(compressed []byte, bytesPerRow int) ([]byte, error) {
	if bytesPerRow <= 0 {
		return nil, fmt.Errorf("%w: %d bytes per row", ErrCompressionInputMisaligned, bytesPerRow)
	}

	rowLen := 2 * bytesPerRow
	out := make([]byte, 0, len(compressed))
	row := make([]byte, 0, rowLen)
	prev := make([]byte, 0, rowLen)
	havePrev := false
	count := 0

	for i, c := range compressed {
		switch {
		case c >= 'G' && c <= 'Y':
			count += int(c-'G') + 1
		case c >= 'g' && c <= 'z':
			count += (int(c-'g') + 1) * 20
		case isHexDigit(c):
			n := max(count, 1)
			count = 0
			if len(row)+n > rowLen {
				return nil, fmt.Errorf("%w: run of %d at offset %d overflows row", ErrMalformedCompression, n, i)
			}
			for range n {
				row = append(row, c)
			}
		case c == ',' || c == '!':
			if count != 0 {
				return nil, fmt.Errorf("%w: repeat count before %q at offset %d", ErrMalformedCompression, c, i)
			}
			fill := byte('0')
			if c == '!' {
				fill = 'F'
			}
			for len(row) < rowLen {
				row = append(row, fill)
			}
		case c == ':':
			if count != 0 || len(row) != 0 || !havePrev {
				return nil, fmt.Errorf("%w: unexpected row repeat at offset %d", ErrMalformedCompression, i)
			}
			row = append(row, prev...)
		default:
			return nil, fmt.Errorf("%w: unexpected byte %q at offset %d", ErrMalformedCompression, c, i)
		}

		if len(row) == rowLen {
			decoded, err := hex.AppendDecode(out, row)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrMalformedCompression, err)
			}
			out = decoded
			prev = append(prev[:0], row...)
			havePrev = true
			row = row[:0]
		}
	}

	if len(row) != 0 || count != 0 {
		return nil, fmt.Errorf("%w: data ends mid-row", ErrMalformedCompression)
	}
	return out, nil
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'A' && c <= 'F')
}
