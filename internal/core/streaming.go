package core

// streaming.go holds the io.Reader wrappers the loader puts in front of the
// CSV parser:
//
//   - SizeLimitedReader: counts bytes and fails with ErrFileTooLarge past a limit
//   - StreamingUTF8Sanitizer: replaces invalid UTF-8 bytes with '?'
//
// Charset detection and BOM handling live in encoding.go.

import (
	"io"
	"unicode/utf8"
)

// SizeLimitedReader wraps an io.Reader, tracks bytes read and returns
// ErrFileTooLarge once more than Limit bytes have been produced.
// A Limit of 0 disables the check.
type SizeLimitedReader struct {
	reader    io.Reader
	Limit     int64
	BytesRead int64
}

// NewSizeLimitedReader creates a reader that refuses to read past limit bytes.
func NewSizeLimitedReader(r io.Reader, limit int64) *SizeLimitedReader {
	return &SizeLimitedReader{reader: r, Limit: limit}
}

// Read implements io.Reader.
func (r *SizeLimitedReader) Read(p []byte) (int, error) {
	if r.Limit > 0 {
		// Allow one byte past the limit so an exact-size file is not rejected.
		remaining := r.Limit + 1 - r.BytesRead
		if remaining <= 0 {
			return 0, ErrFileTooLarge
		}
		if int64(len(p)) > remaining {
			p = p[:remaining]
		}
	}

	n, err := r.reader.Read(p)
	r.BytesRead += int64(n)
	if r.Limit > 0 && r.BytesRead > r.Limit {
		return n, ErrFileTooLarge
	}
	return n, err
}

// StreamingUTF8Sanitizer wraps an io.Reader and replaces every byte that is
// not part of a valid UTF-8 sequence with '?'. Multi-byte sequences split
// across reads are carried over to the next read of the source.
type StreamingUTF8Sanitizer struct {
	reader io.Reader
	buf    []byte

	// Leftover bytes of a sequence that may complete on the next read
	tail    [utf8.UTFMax]byte
	tailLen int

	// Sanitized bytes not yet handed to the caller
	out []byte
	err error
}

// sanitizerBufSize is how much is read from the source at a time.
const sanitizerBufSize = 32 << 10

// NewStreamingUTF8Sanitizer creates a new streaming UTF-8 sanitizer.
func NewStreamingUTF8Sanitizer(r io.Reader) *StreamingUTF8Sanitizer {
	return &StreamingUTF8Sanitizer{
		reader: r,
		buf:    make([]byte, sanitizerBufSize),
	}
}

// Read implements io.Reader. p may be smaller than a multi-byte sequence.
func (s *StreamingUTF8Sanitizer) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	for len(s.out) == 0 {
		if s.err != nil {
			return 0, s.err
		}
		s.fill()
	}

	n := copy(p, s.out)
	s.out = s.out[n:]
	return n, nil
}

// fill reads the next chunk from the source into out. It is only called
// once out has been drained, so buf can be reused.
func (s *StreamingUTF8Sanitizer) fill() {
	carried := copy(s.buf, s.tail[:s.tailLen])
	s.tailLen = 0

	n, err := s.reader.Read(s.buf[carried:])
	if err != nil {
		s.err = err
	}

	data := s.buf[:carried+n]
	if isASCII(data) {
		s.out = data
		return
	}
	s.out = s.sanitize(data, err != nil)
}

func isASCII(data []byte) bool {
	for _, b := range data {
		if b >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

// sanitize rewrites data in place and returns the sanitized prefix. Unless
// atEOF, a truncated sequence at the end is moved to tail instead of being
// replaced.
func (s *StreamingUTF8Sanitizer) sanitize(data []byte, atEOF bool) []byte {
	write := 0
	for read := 0; read < len(data); {
		if !atEOF && !utf8.FullRune(data[read:]) {
			s.tailLen = copy(s.tail[:], data[read:])
			break
		}

		r, size := utf8.DecodeRune(data[read:])
		if r == utf8.RuneError && size == 1 {
			data[write] = '?'
			write++
			read++
			continue
		}

		copy(data[write:], data[read:read+size])
		write += size
		read += size
	}
	return data[:write]
}
