package render

import (
	"encoding/json"
	"io"

	"github.com/JonMunkholm/subcheck/internal/core"
)

// jsonReport adds the derived verdict to the serialized report.
type jsonReport struct {
	core.Report
	Passed bool `json:"passed"`
}

// JSON writes report as indented JSON with a top-level "passed" field.
func JSON(w io.Writer, report core.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(jsonReport{Report: report, Passed: report.Passed()})
}
