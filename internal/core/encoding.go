package core

import (
	"bytes"
	"io"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Byte order marks Windows tools prepend to Unicode text exports.
var (
	utf8BOM    = []byte{0xEF, 0xBB, 0xBF}
	utf16LEBOM = []byte{0xFF, 0xFE}
	utf16BEBOM = []byte{0xFE, 0xFF}
)

// minDetectConfidence is the chardet confidence (0-100) below which a
// detected charset is not trusted and the input is sanitized instead.
const minDetectConfidence = 30

// detectSampleLen caps how much of the input chardet inspects.
const detectSampleLen = 64 << 10

// toUTF8 returns a reader producing UTF-8 text for data, along with the name
// of the charset that was assumed.
//
// Valid UTF-8 passes through with its BOM stripped. UTF-16 with a BOM is
// decoded directly. Anything else is run through charset detection and
// transcoded; if detection or decoding fails the invalid bytes are replaced
// with '?'. A BOM never reaches the CSV parser.
func toUTF8(data []byte, logger *slog.Logger) (io.Reader, string) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return bytes.NewReader(data), "UTF-8"
	}

	if bytes.HasPrefix(data, utf16LEBOM) || bytes.HasPrefix(data, utf16BEBOM) {
		logger.Debug("decoding UTF-16 input")
		return stripBOM(bytes.NewReader(data)), "UTF-16"
	}

	sample := data
	if len(sample) > detectSampleLen {
		sample = sample[:detectSampleLen]
	}

	best, err := chardet.NewTextDetector().DetectBest(sample)
	if err == nil && best.Confidence >= minDetectConfidence && !strings.EqualFold(best.Charset, "UTF-8") {
		decoded, err := charset.NewReaderLabel(best.Charset, bytes.NewReader(data))
		if err == nil {
			logger.Debug("transcoding input", "charset", best.Charset, "confidence", best.Confidence)
			return stripBOM(decoded), best.Charset
		}
		logger.Debug("unsupported charset, sanitizing", "charset", best.Charset, "error", err)
	}

	return NewStreamingUTF8Sanitizer(bytes.NewReader(data)), "UTF-8 (sanitized)"
}

// stripBOM drops a leading byte order mark and decodes by it when present.
// Input without a BOM passes through unchanged.
func stripBOM(r io.Reader) io.Reader {
	return transform.NewReader(r, unicode.BOMOverride(transform.Nop))
}
