// Package core validates submission files before they are accepted for
// scoring.
//
// A submission is a delimited text file with a header row. A valid one has
// exactly two columns, timestamp and labels, in that order, and no repeated
// timestamp. The package is independent of any transport: the CLI and the
// HTTP service both call the same [Validator].
//
// # Pipeline
//
// [Validator.ValidateFile], [Validator.ValidateReader] and
// [Validator.ValidateDataset] run the same fixed sequence:
//
//  1. Load the source into a [Dataset] (size limit, charset normalisation,
//     BOM removal, CSV parsing). Failure ends the run with a [LoadError].
//  2. Row count, only when [Options.ExpectedRows] is set.
//  3. Timestamp column presence. Failure ends the run.
//  4. Timestamp uniqueness.
//  5. Exact column names and order.
//
// Each executed check contributes one [CheckResult] to the [Report]; failing
// checks are data, never errors.
//
// # Error Handling
//
// Technical errors are mapped to user-facing messages with support codes by
// [MapError]; failing checks carry SUB001-SUB004 in [CheckResult.Code]. See
// error_messages.go for the full list.
package core
