// Package render turns validation reports into text, JSON and HTML.
// Rendering is downstream of validation: nothing here changes a report.
package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/JonMunkholm/subcheck/internal/core"
	"github.com/charmbracelet/lipgloss"
)

type textStyles struct {
	banner lipgloss.Style
	pass   lipgloss.Style
	fail   lipgloss.Style
	hint   lipgloss.Style
}

// newTextStyles binds styles to w so colors are dropped when w is not a
// terminal.
func newTextStyles(w io.Writer) textStyles {
	r := lipgloss.NewRenderer(w)
	return textStyles{
		banner: r.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF")),
		pass:   r.NewStyle().Foreground(lipgloss.Color("#3FB950")),
		fail:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B6B")),
		hint:   r.NewStyle().Foreground(lipgloss.Color("#888888")),
	}
}

// Text writes report as one labeled line per executed check.
func Text(w io.Writer, report core.Report) error {
	st := newTextStyles(w)
	var b strings.Builder

	b.WriteString(st.banner.Render(fmt.Sprintf("--- Starting Validation for: %s ---", report.Source)))
	b.WriteString("\n")

	if report.Status == core.StatusLoadFailed {
		msg := core.MapError(report.LoadError)
		b.WriteString(st.fail.Render(fmt.Sprintf("ERROR: %s (%s)", report.LoadError.Detail, report.LoadError.Cause)))
		b.WriteString("\n")
		b.WriteString(st.hint.Render(fmt.Sprintf("   %s (Code: %s). %s", msg.Message, msg.Code, msg.Action)))
		b.WriteString("\n")
		_, err := io.WriteString(w, b.String())
		return err
	}

	b.WriteString("File loaded successfully.\n")
	for _, res := range report.Results {
		writeResult(&b, st, res)
	}

	b.WriteString("\n")
	if report.Status == core.StatusStopped {
		b.WriteString(st.banner.Render("--- Validation Stopped ---"))
	} else {
		b.WriteString(st.banner.Render("--- Validation Complete ---"))
	}
	b.WriteString("\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func writeResult(b *strings.Builder, st textStyles, res core.CheckResult) {
	if res.Passed {
		b.WriteString(st.pass.Render(fmt.Sprintf("✅ %s PASSED: %s", res.Check.Label(), res.Detail)))
		b.WriteString("\n")
		return
	}

	b.WriteString(st.fail.Render(fmt.Sprintf("❌ %s FAILED: %s", res.Check.Label(), res.Detail)))
	b.WriteString("\n")
	if msg, ok := core.CheckMessage(res.Code); ok {
		b.WriteString(st.hint.Render(fmt.Sprintf("   %s (Code: %s)", msg.Action, msg.Code)))
		b.WriteString("\n")
	}
}
