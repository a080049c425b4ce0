package core

import (
	"errors"
	"fmt"
)

// CheckName identifies one validation rule.
type CheckName string

const (
	CheckRowCount            CheckName = "row_count"
	CheckTimestampColumn     CheckName = "timestamp_column"
	CheckTimestampUniqueness CheckName = "timestamp_uniqueness"
	CheckColumnNames         CheckName = "column_names"
)

// Label returns the human-readable name of the check.
func (c CheckName) Label() string {
	switch c {
	case CheckRowCount:
		return "Row Count"
	case CheckTimestampColumn:
		return "Timestamp Column"
	case CheckTimestampUniqueness:
		return "Timestamp Uniqueness"
	case CheckColumnNames:
		return "Column Names"
	default:
		return string(c)
	}
}

// MaxSampleValues bounds CheckResult.Samples.
const MaxSampleValues = 5

// CheckResult is the outcome of a single check.
type CheckResult struct {
	Check   CheckName `json:"check"`
	Passed  bool      `json:"passed"`
	Detail  string    `json:"detail"`
	Samples []string  `json:"sample_values,omitempty"` // At most MaxSampleValues
	Code    string    `json:"code,omitempty"`          // Support code, set on failure

	// Row count diagnostics
	ActualRows   int `json:"actual_rows,omitempty"`
	ExpectedRows int `json:"expected_rows,omitempty"`
	Difference   int `json:"difference,omitempty"` // actual - expected

	// Uniqueness diagnostics
	DuplicateCount int `json:"duplicate_count,omitempty"`

	// Column name diagnostics
	ExpectedColumns []string `json:"expected_columns,omitempty"`
	ActualColumns   []string `json:"actual_columns,omitempty"`
}

// Status describes how a validation run ended.
type Status string

const (
	StatusCompleted  Status = "completed"   // Every applicable check ran
	StatusStopped    Status = "stopped"     // A gating check failed; later checks were skipped
	StatusLoadFailed Status = "load_failed" // The source could not be loaded; no checks ran
)

// Report is the ordered outcome of one validation run.
type Report struct {
	Source    string        `json:"source"`
	Status    Status        `json:"status"`
	Results   []CheckResult `json:"results"`
	LoadError *LoadError    `json:"load_error,omitempty"`
}

// Passed reports whether the source loaded and every executed check passed.
func (r Report) Passed() bool {
	if r.Status == StatusLoadFailed {
		return false
	}
	for _, res := range r.Results {
		if !res.Passed {
			return false
		}
	}
	return true
}

// Failed returns the results that did not pass, in report order.
func (r Report) Failed() []CheckResult {
	var failed []CheckResult
	for _, res := range r.Results {
		if !res.Passed {
			failed = append(failed, res)
		}
	}
	return failed
}

// Result returns the result for check, if it ran.
func (r Report) Result(check CheckName) (CheckResult, bool) {
	for _, res := range r.Results {
		if res.Check == check {
			return res, true
		}
	}
	return CheckResult{}, false
}

// ErrNegativeExpectedRows is returned by Options.Validate.
var ErrNegativeExpectedRows = errors.New("expected rows must be non-negative")

// Options controls a validation run.
type Options struct {
	// ExpectedRows enables the row count check when non-nil.
	ExpectedRows *int
}

// WithExpectedRows returns Options with the row count check enabled.
func WithExpectedRows(n int) Options {
	return Options{ExpectedRows: &n}
}

// Validate rejects option values the validator does not accept. Callers
// check this before running a validation.
func (o Options) Validate() error {
	if o.ExpectedRows != nil && *o.ExpectedRows < 0 {
		return fmt.Errorf("%w: got %d", ErrNegativeExpectedRows, *o.ExpectedRows)
	}
	return nil
}
