package core

import (
	"fmt"
	"slices"
	"strings"
)

// checkRowCount compares the number of data rows to the expected count.
func checkRowCount(ds *Dataset, expected int) CheckResult {
	actual := ds.Len()
	res := CheckResult{
		Check:        CheckRowCount,
		ActualRows:   actual,
		ExpectedRows: expected,
		Difference:   actual - expected,
	}

	if actual == expected {
		res.Passed = true
		res.Detail = fmt.Sprintf("Found %d rows, which matches the expected %d.", actual, expected)
		return res
	}

	res.Code = CodeRowCountMismatch
	res.Detail = fmt.Sprintf("Found %d rows, but expected %d. Difference: %+d rows.", actual, expected, res.Difference)
	return res
}

// checkKeyColumn verifies the key column exists.
func checkKeyColumn(ds *Dataset) CheckResult {
	if ds.HasColumn(KeyColumn) {
		return CheckResult{
			Check:  CheckTimestampColumn,
			Passed: true,
			Detail: fmt.Sprintf("Column '%s' is present.", KeyColumn),
		}
	}
	return CheckResult{
		Check:         CheckTimestampColumn,
		Code:          CodeMissingKeyColumn,
		Detail:        fmt.Sprintf("Column '%s' not found in the file.", KeyColumn),
		ActualColumns: ds.ColumnNames(),
	}
}

// checkKeyUniqueness counts key values that repeat an earlier row. The first
// occurrence of a value is never a duplicate. Samples are the distinct
// duplicated values in the order their first repeat was seen.
func checkKeyUniqueness(ds *Dataset) CheckResult {
	col, _ := ds.Column(KeyColumn)

	seen := make(map[string]int, len(col.Values)) // value -> occurrences so far
	duplicates := 0
	var repeated []string

	for _, v := range col.Values {
		seen[v]++
		switch seen[v] {
		case 1:
		case 2:
			repeated = append(repeated, v)
			duplicates++
		default:
			duplicates++
		}
	}

	res := CheckResult{Check: CheckTimestampUniqueness, DuplicateCount: duplicates}
	if duplicates == 0 {
		res.Passed = true
		res.Detail = "No duplicate timestamps found."
		return res
	}

	if len(repeated) > MaxSampleValues {
		repeated = repeated[:MaxSampleValues]
	}
	res.Code = CodeDuplicateKeys
	res.Samples = repeated
	res.Detail = fmt.Sprintf("Found %d duplicate timestamps. Example duplicate values: %s",
		duplicates, formatList(repeated))
	return res
}

// checkColumnNames requires the header to equal SubmissionColumns exactly:
// same names, same order, same count.
func checkColumnNames(ds *Dataset) CheckResult {
	actual := ds.ColumnNames()
	expected := slices.Clone(SubmissionColumns)

	res := CheckResult{
		Check:           CheckColumnNames,
		ExpectedColumns: expected,
		ActualColumns:   actual,
	}
	if slices.Equal(actual, expected) {
		res.Passed = true
		res.Detail = fmt.Sprintf("Columns are correctly named and ordered as %s.", formatList(expected))
		return res
	}

	res.Code = CodeColumnMismatch
	res.Detail = fmt.Sprintf("Expected columns %s, but found %s.", formatList(expected), formatList(actual))
	return res
}

// formatList renders values as ['a', 'b'].
func formatList(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = "'" + v + "'"
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
