package shape

import (
	"io"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// utf8Transformer strips a UTF-8 BOM and transcodes UTF-16 (either
// endianness, BOM-detected) to UTF-8. Open-data portals and Windows tooling
// both emit BOM-prefixed exports often enough that this runs on every load.
func utf8Transformer() transform.Transformer {
	return unicode.BOMOverride(unicode.UTF8.NewDecoder())
}

// DecodeUTF8 returns data as clean UTF-8, removing a BOM and transcoding
// UTF-16 input. Content that is already plain UTF-8 passes through.
func DecodeUTF8(data []byte) []byte {
	out, _, err := transform.Bytes(utf8Transformer(), data)
	if err != nil {
		// Transcoding is best-effort; undecodable input falls through to the
		// parse cascade as-is.
		return data
	}
	return out
}

// NewUTF8Reader wraps r with the same BOM/UTF-16 handling as DecodeUTF8.
func NewUTF8Reader(r io.Reader) io.Reader {
	return transform.NewReader(r, utf8Transformer())
}
