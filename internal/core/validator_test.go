package core

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/neilotoole/slogt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestValidator(t *testing.T) *Validator {
	t.Helper()
	return NewValidator(LoadOptions{}, slogt.New(t))
}

func validateCSV(t *testing.T, csv string, opts Options) Report {
	t.Helper()
	return newTestValidator(t).ValidateReader("submission.csv", strings.NewReader(csv), opts)
}

func checksOf(r Report) []CheckName {
	names := make([]CheckName, len(r.Results))
	for i, res := range r.Results {
		names[i] = res.Check
	}
	return names
}

func TestValidate_MissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "does-not-exist.csv")

	report := newTestValidator(t).ValidateFile(path, WithExpectedRows(3))

	assert.Equal(t, StatusLoadFailed, report.Status)
	assert.Empty(t, report.Results)
	require.NotNil(t, report.LoadError)
	assert.Equal(t, CauseNotFound, report.LoadError.Cause)
	assert.ErrorIs(t, report.LoadError, ErrSourceNotFound)
	assert.False(t, report.Passed())
}

func TestValidate_MalformedIsDistinctFromNotFound(t *testing.T) {
	report := validateCSV(t, "timestamp,labels\n1,a\n2,b,extra\n", Options{})

	assert.Equal(t, StatusLoadFailed, report.Status)
	assert.Empty(t, report.Results)
	require.NotNil(t, report.LoadError)
	assert.Equal(t, CauseMalformed, report.LoadError.Cause)
	assert.ErrorIs(t, report.LoadError, ErrSourceMalformed)
	assert.NotErrorIs(t, report.LoadError, ErrSourceNotFound)
}

func TestValidate_DuplicateTimestamps(t *testing.T) {
	report := validateCSV(t, "timestamp,labels\n1,a\n2,b\n2,c\n", Options{})

	assert.Equal(t, StatusCompleted, report.Status)
	assert.Equal(t, []CheckName{CheckTimestampColumn, CheckTimestampUniqueness, CheckColumnNames}, checksOf(report))

	presence, _ := report.Result(CheckTimestampColumn)
	assert.True(t, presence.Passed)

	uniq, _ := report.Result(CheckTimestampUniqueness)
	assert.False(t, uniq.Passed)
	assert.Equal(t, 1, uniq.DuplicateCount)
	assert.Equal(t, []string{"2"}, uniq.Samples)
	assert.Equal(t, CodeDuplicateKeys, uniq.Code)

	schema, _ := report.Result(CheckColumnNames)
	assert.True(t, schema.Passed)
	assert.False(t, report.Passed())
}

func TestValidate_AllChecksPass(t *testing.T) {
	csv := "timestamp,labels\n1,a\n2,b\n3,c\n4,d\n5,e\n"

	report := validateCSV(t, csv, WithExpectedRows(5))

	assert.Equal(t, StatusCompleted, report.Status)
	assert.Equal(t, []CheckName{CheckRowCount, CheckTimestampColumn, CheckTimestampUniqueness, CheckColumnNames}, checksOf(report))
	for _, res := range report.Results {
		assert.True(t, res.Passed, "%s: %s", res.Check, res.Detail)
		assert.Empty(t, res.Code)
	}
	assert.True(t, report.Passed())
	assert.Empty(t, report.Failed())
}

func TestValidate_SwappedColumns(t *testing.T) {
	report := validateCSV(t, "labels,timestamp\na,1\nb,2\n", Options{})

	assert.Equal(t, StatusCompleted, report.Status)

	presence, _ := report.Result(CheckTimestampColumn)
	assert.True(t, presence.Passed)

	uniq, ok := report.Result(CheckTimestampUniqueness)
	require.True(t, ok)
	assert.True(t, uniq.Passed)

	schema, _ := report.Result(CheckColumnNames)
	assert.False(t, schema.Passed)
	assert.Equal(t, []string{"labels", "timestamp"}, schema.ActualColumns)
	assert.Equal(t, []string{"timestamp", "labels"}, schema.ExpectedColumns)
	assert.Contains(t, schema.Detail, "['labels', 'timestamp']")
}

func TestValidate_MissingTimestampStopsEarly(t *testing.T) {
	report := validateCSV(t, "id,labels\n1,a\n1,b\n", Options{})

	assert.Equal(t, StatusStopped, report.Status)
	require.Len(t, report.Results, 1)
	assert.Equal(t, CheckTimestampColumn, report.Results[0].Check)
	assert.False(t, report.Results[0].Passed)
	assert.Equal(t, CodeMissingKeyColumn, report.Results[0].Code)

	_, ok := report.Result(CheckTimestampUniqueness)
	assert.False(t, ok)
	_, ok = report.Result(CheckColumnNames)
	assert.False(t, ok)
}

func TestValidate_MissingTimestampKeepsRowCount(t *testing.T) {
	report := validateCSV(t, "id,labels\n1,a\n", WithExpectedRows(1))

	assert.Equal(t, StatusStopped, report.Status)
	assert.Equal(t, []CheckName{CheckRowCount, CheckTimestampColumn}, checksOf(report))
	assert.True(t, report.Results[0].Passed)
}

func TestValidate_TimestampColumnIsCaseSensitive(t *testing.T) {
	report := validateCSV(t, "Timestamp,labels\n1,a\n", Options{})

	assert.Equal(t, StatusStopped, report.Status)
	require.Len(t, report.Results, 1)
	assert.False(t, report.Results[0].Passed)
}

func TestRowCount(t *testing.T) {
	tests := []struct {
		name     string
		rows     int
		expected int
		wantPass bool
	}{
		{name: "exact match", rows: 3, expected: 3, wantPass: true},
		{name: "too few rows", rows: 2, expected: 5, wantPass: false},
		{name: "too many rows", rows: 7, expected: 4, wantPass: false},
		{name: "zero rows expected zero", rows: 0, expected: 0, wantPass: true},
		{name: "zero rows expected some", rows: 0, expected: 2, wantPass: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var b strings.Builder
			b.WriteString("timestamp,labels\n")
			for i := 0; i < tt.rows; i++ {
				b.WriteString(strconv.Itoa(i) + ",x\n")
			}

			report := validateCSV(t, b.String(), WithExpectedRows(tt.expected))

			res, ok := report.Result(CheckRowCount)
			require.True(t, ok)
			assert.Equal(t, tt.wantPass, res.Passed)
			assert.Equal(t, tt.rows, res.ActualRows)
			assert.Equal(t, tt.expected, res.ExpectedRows)
			assert.Equal(t, tt.rows-tt.expected, res.Difference)
			if !tt.wantPass {
				assert.Equal(t, CodeRowCountMismatch, res.Code)
				assert.Contains(t, res.Detail, strconv.Itoa(tt.rows))
				assert.Contains(t, res.Detail, strconv.Itoa(tt.expected))
				assert.Contains(t, res.Detail, "Difference")
			}
		})
	}
}

func TestRowCount_SkippedWithoutExpectation(t *testing.T) {
	report := validateCSV(t, "timestamp,labels\n1,a\n", Options{})

	_, ok := report.Result(CheckRowCount)
	assert.False(t, ok)
	assert.Len(t, report.Results, 3)
}

func TestUniqueness_DuplicateCountAndSamples(t *testing.T) {
	tests := []struct {
		name        string
		timestamps  []string
		wantDups    int
		wantSamples []string
	}{
		{
			name:       "all unique",
			timestamps: []string{"a", "b", "c"},
			wantDups:   0,
		},
		{
			name:        "triple counts twice",
			timestamps:  []string{"x", "x", "x"},
			wantDups:    2,
			wantSamples: []string{"x"},
		},
		{
			name:        "samples follow first repeat order",
			timestamps:  []string{"b", "a", "a", "b", "c", "c"},
			wantDups:    3,
			wantSamples: []string{"a", "b", "c"},
		},
		{
			name:        "samples truncated to five distinct values",
			timestamps:  []string{"1", "1", "2", "2", "3", "3", "3", "4", "4", "5", "5", "6", "6", "7", "7"},
			wantDups:    8,
			wantSamples: []string{"1", "2", "3", "4", "5"},
		},
		{
			name:        "values compared verbatim",
			timestamps:  []string{"1", "1.0", " 1", "1"},
			wantDups:    1,
			wantSamples: []string{"1"},
		},
		{
			name:        "empty values are values",
			timestamps:  []string{"", "", "z"},
			wantDups:    1,
			wantSamples: []string{""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := make([][]string, len(tt.timestamps))
			for i, ts := range tt.timestamps {
				rows[i] = []string{ts, "label"}
			}
			ds := NewDataset(SubmissionColumns, rows)

			res := checkKeyUniqueness(ds)

			distinct := make(map[string]struct{})
			for _, ts := range tt.timestamps {
				distinct[ts] = struct{}{}
			}
			assert.Equal(t, ds.Len()-len(distinct), res.DuplicateCount)
			assert.Equal(t, tt.wantDups, res.DuplicateCount)
			assert.Equal(t, tt.wantDups == 0, res.Passed)
			assert.Equal(t, tt.wantSamples, res.Samples)
			assert.LessOrEqual(t, len(res.Samples), MaxSampleValues)
		})
	}
}

func TestColumnNames(t *testing.T) {
	tests := []struct {
		name     string
		header   []string
		wantPass bool
	}{
		{name: "exact", header: []string{"timestamp", "labels"}, wantPass: true},
		{name: "extra column", header: []string{"timestamp", "labels", "score"}, wantPass: false},
		{name: "missing column", header: []string{"timestamp"}, wantPass: false},
		{name: "reordered", header: []string{"labels", "timestamp"}, wantPass: false},
		{name: "renamed", header: []string{"timestamp", "label"}, wantPass: false},
		{name: "case differs", header: []string{"timestamp", "Labels"}, wantPass: false},
		{name: "duplicate header", header: []string{"timestamp", "timestamp"}, wantPass: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds := NewDataset(tt.header, nil)

			res := checkColumnNames(ds)

			assert.Equal(t, tt.wantPass, res.Passed)
			assert.Equal(t, tt.header, res.ActualColumns)
			assert.Equal(t, SubmissionColumns, res.ExpectedColumns)
		})
	}
}

func TestValidate_HeaderOnly(t *testing.T) {
	report := validateCSV(t, "timestamp,labels\n", WithExpectedRows(0))

	assert.Equal(t, StatusCompleted, report.Status)
	assert.True(t, report.Passed())
	assert.Len(t, report.Results, 4)
}

func TestValidate_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "submission.csv")
	require.NoError(t, os.WriteFile(path, []byte("timestamp,labels\n1,a\n1,b\n2,c\n"), 0o600))

	v := newTestValidator(t)
	first := v.ValidateFile(path, WithExpectedRows(4))
	second := v.ValidateFile(path, WithExpectedRows(4))

	assert.Equal(t, first, second)
}

func TestValidate_TSVByExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "submission.tsv")
	require.NoError(t, os.WriteFile(path, []byte("timestamp\tlabels\n1\ta b\n2\tc\n"), 0o600))

	report := newTestValidator(t).ValidateFile(path, Options{})

	assert.True(t, report.Passed(), "%+v", report.Results)
}

func TestValidateDataset_DoesNotModifyInput(t *testing.T) {
	ds := NewDataset([]string{"labels", "timestamp"}, [][]string{{"a", "1"}, {"b", "1"}})

	newTestValidator(t).ValidateDataset("in-memory", ds, Options{})

	assert.Equal(t, []string{"labels", "timestamp"}, ds.ColumnNames())
	col, _ := ds.Column(KeyColumn)
	assert.Equal(t, []string{"1", "1"}, col.Values)
}

func TestOptionsValidate(t *testing.T) {
	assert.NoError(t, Options{}.Validate())
	assert.NoError(t, WithExpectedRows(0).Validate())
	assert.ErrorIs(t, WithExpectedRows(-1).Validate(), ErrNegativeExpectedRows)
}
