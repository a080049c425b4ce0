package core

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"github.com/neilotoole/slogt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func utf16Bytes(t *testing.T, order unicode.Endianness, s string) []byte {
	t.Helper()
	b, err := unicode.UTF16(order, unicode.UseBOM).NewEncoder().Bytes([]byte(s))
	require.NoError(t, err)
	return b
}

func TestLoader_Load(t *testing.T) {
	tests := []struct {
		name      string
		input     []byte
		opts      LoadOptions
		wantCols  []string
		wantRows  int
		wantCause LoadCause
	}{
		{
			name:     "plain csv",
			input:    []byte("timestamp,labels\n1,a\n2,b\n"),
			wantCols: []string{"timestamp", "labels"},
			wantRows: 2,
		},
		{
			name:     "utf8 bom stripped from first header",
			input:    append([]byte{0xEF, 0xBB, 0xBF}, []byte("timestamp,labels\n1,a\n")...),
			wantCols: []string{"timestamp", "labels"},
			wantRows: 1,
		},
		{
			name:     "blank lines skipped",
			input:    []byte("timestamp,labels\n\n1,a\n\n2,b\n"),
			wantCols: []string{"timestamp", "labels"},
			wantRows: 2,
		},
		{
			name:     "quoted fields with delimiters",
			input:    []byte("timestamp,labels\n\"2024-01-01, 00:00\",\"a,b\"\n"),
			wantCols: []string{"timestamp", "labels"},
			wantRows: 1,
		},
		{
			name:     "tab delimited",
			input:    []byte("timestamp\tlabels\n1\ta\n"),
			opts:     LoadOptions{Comma: '\t'},
			wantCols: []string{"timestamp", "labels"},
			wantRows: 1,
		},
		{
			name:     "header only",
			input:    []byte("timestamp,labels\n"),
			wantCols: []string{"timestamp", "labels"},
			wantRows: 0,
		},
		{
			name:      "empty input",
			input:     []byte{},
			wantCause: CauseMalformed,
		},
		{
			name:     "short row padded",
			input:    []byte("timestamp,labels\n1\n2,b\n"),
			wantCols: []string{"timestamp", "labels"},
			wantRows: 2,
		},
		{
			name:      "row wider than header",
			input:     []byte("timestamp,labels\n1,a,x\n"),
			wantCause: CauseMalformed,
		},
		{
			name:     "utf16le with bom",
			input:    utf16Bytes(t, unicode.LittleEndian, "timestamp\tlabels\n1\ta\n2\tb\n"),
			opts:     LoadOptions{Comma: '\t'},
			wantCols: []string{"timestamp", "labels"},
			wantRows: 2,
		},
		{
			name:     "utf16be with bom",
			input:    utf16Bytes(t, unicode.BigEndian, "timestamp,labels\n1,a\n"),
			wantCols: []string{"timestamp", "labels"},
			wantRows: 1,
		},
		{
			name:      "unbalanced quote",
			input:     []byte("timestamp,labels\n\"1,a\n"),
			wantCause: CauseMalformed,
		},
		{
			name:      "over size limit",
			input:     []byte("timestamp,labels\n1,a\n2,b\n"),
			opts:      LoadOptions{MaxBytes: 10},
			wantCause: CauseTooLarge,
		},
		{
			name:     "exactly at size limit",
			input:    []byte("timestamp,labels\n"),
			opts:     LoadOptions{MaxBytes: int64(len("timestamp,labels\n"))},
			wantCols: []string{"timestamp", "labels"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loader := NewLoader(tt.opts, slogt.New(t))

			ds, err := loader.Load("input", bytes.NewReader(tt.input))

			if tt.wantCause != "" {
				var le *LoadError
				require.ErrorAs(t, err, &le)
				assert.Equal(t, tt.wantCause, le.Cause)
				assert.Equal(t, "input", le.Source)
				assert.NotEmpty(t, le.Detail)
				assert.Nil(t, ds)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantCols, ds.ColumnNames())
			assert.Equal(t, tt.wantRows, ds.Len())
		})
	}
}

func TestLoader_EmptyFileMapsToEmptyFileCode(t *testing.T) {
	_, err := NewLoader(LoadOptions{}, slogt.New(t)).Load("input", strings.NewReader(""))

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmptyFile)
	assert.Equal(t, "FILE005", MapError(err).Code)
}

func TestLoader_ShortRowsArePadded(t *testing.T) {
	ds, err := NewLoader(LoadOptions{}, slogt.New(t)).Load("input", strings.NewReader("timestamp,labels\n1\n2,b\n"))

	require.NoError(t, err)
	labels, ok := ds.Column(LabelsColumn)
	require.True(t, ok)
	assert.Equal(t, []string{"", "b"}, labels.Values)
}

func TestLoader_WideRowNamesLine(t *testing.T) {
	_, err := NewLoader(LoadOptions{}, slogt.New(t)).Load("input", strings.NewReader("timestamp,labels\n1,a\n2,b,c\n"))

	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, CauseMalformed, le.Cause)
	assert.Contains(t, le.Detail, "line 3")
	assert.Equal(t, "FILE002", MapError(err).Code)
}

func TestLoader_UTF16HeaderHasNoBOM(t *testing.T) {
	input := utf16Bytes(t, unicode.LittleEndian, "timestamp,labels\n1,a\n")

	ds, err := NewLoader(LoadOptions{}, slogt.New(t)).Load("utf16.csv", bytes.NewReader(input))

	require.NoError(t, err)
	assert.True(t, ds.HasColumn(KeyColumn), "columns: %q", ds.ColumnNames())
	ts, _ := ds.Column(KeyColumn)
	assert.Equal(t, []string{"1"}, ts.Values)
}

func TestReport_LoadFailureSurvivesJSON(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "empty file samples")
	report := NewValidator(LoadOptions{}, slogt.New(t)).ValidateFile(filepath.Join(dir, "sub.csv"), Options{})
	require.Equal(t, StatusLoadFailed, report.Status)

	data, err := json.Marshal(report)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"code":"FILE004"`)

	var got Report
	require.NoError(t, json.Unmarshal(data, &got))
	require.NotNil(t, got.LoadError)
	assert.Equal(t, CauseNotFound, got.LoadError.Cause)
	assert.Equal(t, "FILE004", MapError(got.LoadError).Code)
	assert.NotContains(t, got.LoadError.Error(), "<nil>")
	assert.Equal(t, report.LoadError.Error(), got.LoadError.Error())
}

func TestLoader_NonUTF8InputIsReadable(t *testing.T) {
	// "café" in ISO-8859-1
	input := []byte("timestamp,labels\n1,caf\xe9\n2,na\xefve\n")

	ds, err := NewLoader(LoadOptions{}, slogt.New(t)).Load("latin1.csv", bytes.NewReader(input))

	require.NoError(t, err)
	assert.Equal(t, 2, ds.Len())
	labels, ok := ds.Column(LabelsColumn)
	require.True(t, ok)
	for _, v := range labels.Values {
		assert.True(t, utf8.ValidString(v), "value %q is not valid UTF-8", v)
	}
	assert.True(t, strings.HasPrefix(labels.Values[0], "caf"))
}

func TestDataset(t *testing.T) {
	ds := NewDataset([]string{"timestamp", "labels", "timestamp"}, [][]string{{"1", "a", "x"}, {"2", "b", "y"}})

	assert.Equal(t, 2, ds.Len())
	assert.Equal(t, []string{"timestamp", "labels", "timestamp"}, ds.ColumnNames())

	col, ok := ds.Column("timestamp")
	require.True(t, ok)
	assert.Equal(t, []string{"1", "2"}, col.Values, "first column with the name wins")

	assert.False(t, ds.HasColumn("TIMESTAMP"))
}

func TestDelimiterFor(t *testing.T) {
	assert.Equal(t, '\t', DelimiterFor("sub.tsv"))
	assert.Equal(t, '\t', DelimiterFor("SUB.TAB"))
	assert.Equal(t, ',', DelimiterFor("sub.csv"))
	assert.Equal(t, ',', DelimiterFor("submission"))
}

func TestWriteTemplate(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTemplate(&buf, 0))
	assert.Equal(t, "timestamp,labels\n", buf.String())

	report := newTestValidator(t).ValidateReader("template.csv", &buf, WithExpectedRows(0))
	assert.True(t, report.Passed())
}
