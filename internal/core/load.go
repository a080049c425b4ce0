package core

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Load errors. A LoadError wraps exactly one of these so callers can use
// errors.Is.
var (
	ErrSourceNotFound   = errors.New("source not found")
	ErrSourceMalformed  = errors.New("invalid csv")
	ErrSourceUnreadable = errors.New("source unreadable")
	ErrFileTooLarge     = errors.New("file too large")
	ErrEmptyFile        = errors.New("empty file: no header row")
)

// LoadCause classifies why a source could not be loaded.
type LoadCause string

const (
	CauseNotFound   LoadCause = "not_found"
	CauseMalformed  LoadCause = "malformed"
	CauseTooLarge   LoadCause = "too_large"
	CauseUnreadable LoadCause = "unreadable"
)

// LoadError is the fatal-to-the-run failure to turn a source into a Dataset.
// Err does not survive serialization; Cause, Code and Detail do.
type LoadError struct {
	Cause  LoadCause `json:"cause"`
	Source string    `json:"source"`
	Code   string    `json:"code"`   // Support code, see loadMessages
	Detail string    `json:"detail"` // Err.Error(), kept for serialized reports
	Err    error     `json:"-"`
}

func newLoadError(cause LoadCause, source string, err error) *LoadError {
	return &LoadError{
		Cause:  cause,
		Source: source,
		Code:   loadErrorCode(cause, err),
		Detail: err.Error(),
		Err:    err,
	}
}

func (e *LoadError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("load %s: %s", e.Source, e.Detail)
	}
	return fmt.Sprintf("load %s: %v", e.Source, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// UserMessage returns the user-facing message for the failure. It depends
// only on fields that survive a JSON round trip.
func (e *LoadError) UserMessage() UserMessage {
	if msg, ok := loadMessages[e.Code]; ok {
		return msg
	}
	if msg, ok := loadMessages[loadErrorCode(e.Cause, nil)]; ok {
		return msg
	}
	return defaultMessage
}

// LoadOptions tunes parsing. The zero value reads comma-separated input with
// no size limit.
type LoadOptions struct {
	Comma    rune  // Field delimiter (default ',')
	MaxBytes int64 // Maximum input size in bytes; 0 means unlimited
}

// DelimiterFor returns the conventional delimiter for a file name: tab for
// .tsv/.tab files, comma otherwise.
func DelimiterFor(path string) rune {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tsv", ".tab":
		return '\t'
	default:
		return ','
	}
}

// Loader parses tabular sources into Datasets.
type Loader struct {
	opts   LoadOptions
	logger *slog.Logger
}

// NewLoader creates a Loader. A nil logger uses slog.Default().
func NewLoader(opts LoadOptions, logger *slog.Logger) *Loader {
	if opts.Comma == 0 {
		opts.Comma = ','
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{opts: opts, logger: logger}
}

// LoadFile opens and parses the file at path.
func (l *Loader) LoadFile(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, newLoadError(CauseNotFound, path, fmt.Errorf("%w: %s", ErrSourceNotFound, path))
		}
		return nil, newLoadError(CauseUnreadable, path, fmt.Errorf("%w: %v", ErrSourceUnreadable, err))
	}
	defer f.Close()

	return l.Load(path, f)
}

// Load parses r. name is used in errors and logs only.
func (l *Loader) Load(name string, r io.Reader) (*Dataset, error) {
	data, err := io.ReadAll(NewSizeLimitedReader(r, l.opts.MaxBytes))
	if err != nil {
		if errors.Is(err, ErrFileTooLarge) {
			return nil, newLoadError(CauseTooLarge, name,
				fmt.Errorf("%w: exceeds %d bytes", ErrFileTooLarge, l.opts.MaxBytes))
		}
		if errors.Is(err, fs.ErrNotExist) {
			return nil, newLoadError(CauseNotFound, name, fmt.Errorf("%w: %v", ErrSourceNotFound, err))
		}
		return nil, newLoadError(CauseUnreadable, name, fmt.Errorf("%w: %v", ErrSourceUnreadable, err))
	}

	text, enc := toUTF8(data, l.logger)

	cr := csv.NewReader(text)
	cr.Comma = l.opts.Comma
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, newLoadError(CauseMalformed, name, fmt.Errorf("%w: %w", ErrSourceMalformed, ErrEmptyFile))
	}
	if err != nil {
		return nil, malformed(name, err)
	}

	// Short rows are padded with empty cells; a row wider than the header
	// has no column to put its extra cells in.
	var rows [][]string
	padded := 0
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, malformed(name, err)
		}
		switch {
		case len(row) > len(header):
			line, _ := cr.FieldPos(0)
			return nil, malformed(name, fmt.Errorf("record on line %d: %d fields, header has %d", line, len(row), len(header)))
		case len(row) < len(header):
			row = append(row, make([]string, len(header)-len(row))...)
			padded++
		}
		rows = append(rows, row)
	}

	ds := NewDataset(header, rows)
	l.logger.Debug("source loaded",
		"source", name,
		"bytes", len(data),
		"encoding", enc,
		"columns", len(header),
		"rows", ds.Len(),
		"padded_rows", padded,
	)
	return ds, nil
}

func malformed(name string, err error) *LoadError {
	return newLoadError(CauseMalformed, name, fmt.Errorf("%w: %v", ErrSourceMalformed, err))
}
