package core

// validator.go runs the submission checks against one source.
//
// A run has two short-circuit points:
//  1. Load: if the source cannot be parsed, the report carries a LoadError and
//     no results (StatusLoadFailed).
//  2. Key column: if the timestamp column is missing, its failing result is
//     the last one recorded (StatusStopped).
//
// Every other check always records exactly one result, pass or fail.

import (
	"errors"
	"io"
	"log/slog"
	"time"
)

// rule is one step of the check pipeline.
type rule struct {
	check CheckName

	// applies reports whether the rule runs for these options. nil means always.
	applies func(Options) bool

	run func(*Dataset, Options) CheckResult

	// gate stops the pipeline when the rule fails.
	gate bool
}

// rules is the fixed check order.
var rules = []rule{
	{
		check:   CheckRowCount,
		applies: func(o Options) bool { return o.ExpectedRows != nil },
		run:     func(ds *Dataset, o Options) CheckResult { return checkRowCount(ds, *o.ExpectedRows) },
	},
	{
		check: CheckTimestampColumn,
		run:   func(ds *Dataset, _ Options) CheckResult { return checkKeyColumn(ds) },
		gate:  true,
	},
	{
		check: CheckTimestampUniqueness,
		run:   func(ds *Dataset, _ Options) CheckResult { return checkKeyUniqueness(ds) },
	},
	{
		check: CheckColumnNames,
		run:   func(ds *Dataset, _ Options) CheckResult { return checkColumnNames(ds) },
	},
}

// Validator checks submission files. It holds no per-run state and is safe
// for concurrent use.
type Validator struct {
	loadOpts LoadOptions
	logger   *slog.Logger
}

// NewValidator creates a Validator that parses sources with loadOpts.
// A nil logger uses slog.Default().
func NewValidator(loadOpts LoadOptions, logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{loadOpts: loadOpts, logger: logger}
}

// ValidateFile loads the file at path and validates it. A .tsv or .tab
// extension selects tab as the delimiter unless one was configured.
func (v *Validator) ValidateFile(path string, opts Options) Report {
	loadOpts := v.loadOpts
	if loadOpts.Comma == 0 {
		loadOpts.Comma = DelimiterFor(path)
	}

	ds, err := NewLoader(loadOpts, v.logger).LoadFile(path)
	if err != nil {
		return v.loadFailed(path, err)
	}
	return v.ValidateDataset(path, ds, opts)
}

// ValidateReader parses r and validates it. name labels the report.
func (v *Validator) ValidateReader(name string, r io.Reader, opts Options) Report {
	ds, err := NewLoader(v.loadOpts, v.logger).Load(name, r)
	if err != nil {
		return v.loadFailed(name, err)
	}
	return v.ValidateDataset(name, ds, opts)
}

// ValidateDataset runs the checks against an already parsed dataset.
func (v *Validator) ValidateDataset(name string, ds *Dataset, opts Options) Report {
	start := time.Now()
	logger := v.logger.With("source", name)

	report := Report{Source: name, Status: StatusCompleted, Results: make([]CheckResult, 0, len(rules))}
	for _, r := range rules {
		if r.applies != nil && !r.applies(opts) {
			logger.Debug("check skipped", "check", r.check)
			continue
		}

		res := r.run(ds, opts)
		report.Results = append(report.Results, res)
		logger.Debug("check finished", "check", r.check, "passed", res.Passed)

		if r.gate && !res.Passed {
			report.Status = StatusStopped
			break
		}
	}

	logger.Info("validation finished",
		"status", report.Status,
		"passed", report.Passed(),
		"checks", len(report.Results),
		"failed", len(report.Failed()),
		"rows", ds.Len(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return report
}

func (v *Validator) loadFailed(name string, err error) Report {
	var le *LoadError
	if !errors.As(err, &le) {
		le = newLoadError(CauseUnreadable, name, err)
	}
	v.logger.Warn("validation could not start", "source", name, "cause", le.Cause, "error", le.Err)
	return Report{Source: name, Status: StatusLoadFailed, Results: []CheckResult{}, LoadError: le}
}
