package core

// KeyColumn is the column every submission must carry. Its values identify
// a prediction and must be unique.
const KeyColumn = "timestamp"

// LabelsColumn holds the predicted labels.
const LabelsColumn = "labels"

// SubmissionColumns is the exact, ordered header a valid submission has.
var SubmissionColumns = []string{KeyColumn, LabelsColumn}

// Column is a named, ordered sequence of cell values.
type Column struct {
	Name   string
	Values []string
}

// Dataset is a parsed table: ordered columns whose values are aligned by row
// index. All columns have the same length. A Dataset is never modified after
// it is built.
type Dataset struct {
	columns []Column
	rows    int
}

// NewDataset builds a Dataset from a header and data rows. Every row must have
// exactly len(header) cells; the loader guarantees this before calling.
func NewDataset(header []string, rows [][]string) *Dataset {
	cols := make([]Column, len(header))
	for i, name := range header {
		values := make([]string, len(rows))
		for r, row := range rows {
			values[r] = row[i]
		}
		cols[i] = Column{Name: name, Values: values}
	}
	return &Dataset{columns: cols, rows: len(rows)}
}

// Len returns the number of data rows (the header is not counted).
func (d *Dataset) Len() int {
	return d.rows
}

// ColumnNames returns the column names in positional order.
func (d *Dataset) ColumnNames() []string {
	names := make([]string, len(d.columns))
	for i, c := range d.columns {
		names[i] = c.Name
	}
	return names
}

// Column returns the first column named name. Matching is exact and
// case-sensitive.
func (d *Dataset) Column(name string) (Column, bool) {
	for _, c := range d.columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// HasColumn reports whether a column named name exists.
func (d *Dataset) HasColumn(name string) bool {
	_, ok := d.Column(name)
	return ok
}
