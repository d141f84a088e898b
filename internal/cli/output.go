package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/picklr-io/adopt/internal/engine"
	"github.com/picklr-io/adopt/internal/ir"
)

// colorize renders s in color c unless colors are disabled.
func colorize(c text.Color, s string) string {
	if noColor {
		return s
	}
	return c.Sprint(s)
}

func outcomeColor(o ir.Outcome) text.Color {
	switch o {
	case ir.Imported:
		return text.FgGreen
	case ir.NotFoundUpstream:
		return text.FgYellow
	case ir.ImportFailed:
		return text.FgRed
	default:
		return text.FgHiBlack
	}
}

func outcomeLabel(r ir.Result) string {
	if r.DryRun && r.Outcome == ir.Imported {
		return "WouldImport"
	}
	return r.Outcome.String()
}

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	return t
}

// renderReport prints one row per reconciled resource and a summary line.
func renderReport(w io.Writer, report *engine.Report) {
	t := newTable(w)
	t.AppendHeader(table.Row{"Address", "Kind", "Name", "Outcome", "Detail", "Took"})

	for _, r := range report.Results {
		var (
			address, name string
			kind          ir.Kind
		)
		if r.Entry != nil {
			address, kind, name = r.Entry.Address, r.Entry.Kind, r.Entry.Name
		}

		detail := r.ID
		switch r.Outcome {
		case ir.ImportFailed:
			if r.Err != nil {
				detail = r.Err.Error()
			}
		case ir.NotFoundUpstream:
			detail = "left for terraform apply"
		}

		t.AppendRow(table.Row{
			address,
			kind,
			name,
			colorize(outcomeColor(r.Outcome), outcomeLabel(r)),
			detail,
			r.Duration.Round(time.Millisecond),
		})
	}
	t.Render()

	s := report.Summary
	imported := "imported"
	if report.DryRun {
		imported = "would import"
	}
	fmt.Fprintf(w, "\n%d already tracked, %d %s, %d not found, %s in %s\n",
		s.AlreadyTracked,
		s.Imported, imported,
		s.NotFoundUpstream,
		colorize(failedColor(s.ImportFailed), fmt.Sprintf("%d failed", s.ImportFailed)),
		report.Duration.Round(time.Millisecond),
	)
}

func failedColor(n int) text.Color {
	if n > 0 {
		return text.FgRed
	}
	return text.FgGreen
}
