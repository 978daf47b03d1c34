package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/idrecon/idrecon/internal/model"
)

// SimpleWriter outputs human-readable text results.
// This format is designed for terminal display with clear section
// formatting.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors by default because:
// 1. It works in all terminals without compatibility issues
// 2. It's easier to pipe to files or other tools
// 3. Color can be added as an option later if needed
type SimpleWriter struct {
	baseWriter

	// showEmpty controls whether sections with no content are shown.
	showEmpty bool

	// verbose enables additional detail in the output.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to show empty sections.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
		showEmpty:  false,
		verbose:    false,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the result in human-readable format.
func (w *SimpleWriter) Write(res *model.Result) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, res)
	w.writeEntities(&sb, res)
	w.writeScanners(&sb, res)
	w.writeExcluded(&sb, res)
	w.writeFooter(&sb)

	return w.output.Write([]byte(sb.String()))
}

// writeHeader writes the result header with query information.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, res *model.Result) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                         IDRECON RESULT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("Query:     %s\n", res.Value))
	sb.WriteString(fmt.Sprintf("Type:      %s\n", res.Type))
	sb.WriteString(fmt.Sprintf("Submitted: %s\n", res.CreatedAt.Format("2006-01-02 15:04:05 MST")))

	switch res.Status {
	case model.StatusPartialComplete:
		sb.WriteString("Status:    PARTIAL (deadline elapsed with scanners outstanding)\n")
	case model.StatusFailed:
		sb.WriteString(fmt.Sprintf("Status:    FAILED - %s\n", res.FailureReason))
	default:
		sb.WriteString(fmt.Sprintf("Status:    %s\n", res.Status))
	}

	sb.WriteString("\n")
}

// writeEntities writes the merged entity section.
func (w *SimpleWriter) writeEntities(sb *strings.Builder, res *model.Result) {
	if len(res.Entities) == 0 && !w.showEmpty {
		return
	}

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("ENTITIES\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	if len(res.Entities) == 0 {
		sb.WriteString("  No entities assembled\n\n")
		return
	}

	for i, ent := range res.Entities {
		sb.WriteString(fmt.Sprintf("[%d] confidence %.2f  (sources: %s)\n",
			i+1, ent.Confidence, strings.Join(ent.Sources, ", ")))

		for _, name := range sortedFieldNames(ent) {
			fv := ent.Fields[name]
			sb.WriteString(fmt.Sprintf("    %-14s %s", name, fv.Value))
			if fv.Count > 1 {
				sb.WriteString(fmt.Sprintf("  (x%d)", fv.Count))
			}
			sb.WriteString("\n")
			for _, alt := range fv.Alternates {
				sb.WriteString(fmt.Sprintf("    %-14s ~ %s (x%d, %s)\n",
					"", alt.Value, alt.Count, strings.Join(alt.Sources, ", ")))
			}
		}
		for _, name := range sortedSetNames(ent) {
			sb.WriteString(fmt.Sprintf("    %-14s %s\n", name, strings.Join(ent.Sets[name], ", ")))
		}
		sb.WriteString("\n")
	}
}

// writeScanners writes the per-scanner status breakdown.
func (w *SimpleWriter) writeScanners(sb *strings.Builder, res *model.Result) {
	if len(res.Scanners) == 0 && !w.showEmpty {
		return
	}

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("SCANNERS\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	if len(res.Scanners) == 0 {
		sb.WriteString("  No scanners ran\n\n")
		return
	}

	for _, out := range res.Scanners {
		indicator := w.getStatusIndicator(out.Status)
		sb.WriteString(fmt.Sprintf("  [%s] %-16s %s", indicator, out.Scanner, out.Status))
		if out.ErrorKind != model.ErrorKindNone {
			sb.WriteString(fmt.Sprintf(" (%s)", out.ErrorKind))
		}
		if w.verbose {
			sb.WriteString(fmt.Sprintf("  attempts=%d latency=%s", out.Attempts, out.Latency))
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
}

// writeExcluded writes the excluded-record section when present.
func (w *SimpleWriter) writeExcluded(sb *strings.Builder, res *model.Result) {
	if len(res.Excluded) == 0 {
		return
	}

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("EXCLUDED RECORDS\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	for _, excl := range res.Excluded {
		sb.WriteString(fmt.Sprintf("  * %s: %s\n", excl.Record.Source, excl.Reason))
	}
	sb.WriteString("\n")
}

// getStatusIndicator returns a visual indicator for the task status.
func (w *SimpleWriter) getStatusIndicator(status model.TaskStatus) string {
	switch status {
	case model.TaskSucceeded:
		return "+"
	case model.TaskFailed, model.TaskTimeout:
		return "!"
	case model.TaskSkipped:
		return "s"
	case model.TaskAbandoned:
		return "a"
	default:
		return "?"
	}
}

// writeFooter writes the result footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}
