package core

import (
	"encoding/csv"
	"io"
)

// WriteTemplate writes an empty submission (header only) to w using comma
// as the delimiter. The result passes every check except a row count check
// with a positive expectation.
func WriteTemplate(w io.Writer, comma rune) error {
	cw := csv.NewWriter(w)
	if comma != 0 {
		cw.Comma = comma
	}
	if err := cw.Write(SubmissionColumns); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}
