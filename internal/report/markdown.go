package report

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"

	"github.com/idrecon/idrecon/internal/model"
)

// MarkdownWriter outputs results in Markdown format.
// This format is designed for documentation and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the result in Markdown format.
func (w *MarkdownWriter) Write(res *model.Result) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, res)
	w.writeStatusAlert(md, res)
	w.writeEntities(md, res)
	w.writeScanners(md, res)
	w.writeExcluded(md, res)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the result header with query information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, res *model.Result) {
	md.H1("Identity Reconnaissance Result")
	md.PlainText("")

	completed := "-"
	if !res.CompletedAt.IsZero() {
		completed = res.CompletedAt.Format("2006-01-02 15:04:05 MST")
	}

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Query", "`" + res.Value + "`"},
			{"Type", string(res.Type)},
			{"Status", res.Status.String()},
			{"Submitted", res.CreatedAt.Format("2006-01-02 15:04:05 MST")},
			{"Completed", completed},
			{"Entities", strconv.Itoa(len(res.Entities))},
		},
	})
	md.PlainText("")
}

// writeStatusAlert writes an alert matching the query outcome.
func (w *MarkdownWriter) writeStatusAlert(md *markdown.Markdown, res *model.Result) {
	switch res.Status {
	case model.StatusFailed:
		md.Cautionf("Query failed: %s.", res.FailureReason)
	case model.StatusPartialComplete:
		md.Warningf("Deadline elapsed with scanners outstanding. Results below come from the %d scanner(s) that finished in time.", succeededCount(res))
	case model.StatusComplete:
		md.Tip(fmt.Sprintf("All scanners settled. %d source(s) contributed.", succeededCount(res)))
	default:
		md.Note(fmt.Sprintf("Query is still %s; this is an interim view.", res.Status.String()))
	}
	md.PlainText("")
}

// writeEntities writes one section per merged entity, best confidence first.
func (w *MarkdownWriter) writeEntities(md *markdown.Markdown, res *model.Result) {
	md.H2("Entities")
	md.PlainText("")

	if len(res.Entities) == 0 {
		md.PlainText("No entities were assembled.")
		md.PlainText("")
		return
	}

	for i, ent := range res.Entities {
		md.H3(fmt.Sprintf("Entity %d (confidence %.2f)", i+1, ent.Confidence))
		md.PlainText("")
		w.writeEntityFields(md, ent)
		md.PlainTextf("Sources: %s", strings.Join(ent.Sources, ", "))
		md.PlainText("")
	}
}

// writeEntityFields writes the merged field table for one entity.
func (w *MarkdownWriter) writeEntityFields(md *markdown.Markdown, ent *model.Entity) {
	if len(ent.Fields) == 0 && len(ent.Sets) == 0 {
		md.PlainText("No canonical fields.")
		md.PlainText("")
		return
	}

	rows := make([][]string, 0, len(ent.Fields)+len(ent.Sets))
	for _, name := range sortedFieldNames(ent) {
		fv := ent.Fields[name]
		alt := "-"
		if len(fv.Alternates) > 0 {
			parts := make([]string, 0, len(fv.Alternates))
			for _, a := range fv.Alternates {
				parts = append(parts, fmt.Sprintf("%s (%d)", a.Value, a.Count))
			}
			alt = strings.Join(parts, ", ")
		}
		rows = append(rows, []string{
			name,
			truncateString(fv.Value, 50),
			strconv.Itoa(fv.Count),
			truncateString(alt, 60),
		})
	}
	for _, name := range sortedSetNames(ent) {
		rows = append(rows, []string{
			name,
			truncateString(strings.Join(ent.Sets[name], ", "), 50),
			strconv.Itoa(len(ent.Sets[name])),
			"-",
		})
	}

	md.Table(markdown.TableSet{
		Header: []string{"Field", "Value", "Corroboration", "Alternates"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeScanners writes the per-scanner status breakdown table.
func (w *MarkdownWriter) writeScanners(md *markdown.Markdown, res *model.Result) {
	md.H2("Scanner Breakdown")
	md.PlainText("")

	if len(res.Scanners) == 0 {
		md.PlainText("No scanners ran.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(res.Scanners))
	for i, out := range res.Scanners {
		kind := string(out.ErrorKind)
		if kind == "" {
			kind = "-"
		}
		rows[i] = []string{
			out.Scanner,
			out.Status.String(),
			kind,
			strconv.Itoa(out.Attempts),
			out.Latency.String(),
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"Scanner", "Status", "Error Kind", "Attempts", "Latency"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeExcluded writes the excluded-record section when present.
func (w *MarkdownWriter) writeExcluded(md *markdown.Markdown, res *model.Result) {
	if len(res.Excluded) == 0 {
		return
	}

	md.H2("Excluded Records")
	md.PlainText("")

	rows := make([][]string, len(res.Excluded))
	for i, excl := range res.Excluded {
		rows[i] = []string{
			excl.Record.Source,
			truncateString(excl.Reason, 60),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Source", "Reason"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFooter writes the result footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainText("*Report generated by idrecon*")
}

// sortedFieldNames returns the entity's scalar field names in stable order.
func sortedFieldNames(ent *model.Entity) []string {
	names := make([]string, 0, len(ent.Fields))
	for name := range ent.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// sortedSetNames returns the entity's set field names in stable order.
func sortedSetNames(ent *model.Entity) []string {
	names := make([]string, 0, len(ent.Sets))
	for name := range ent.Sets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// succeededCount counts scanners that settled successfully.
func succeededCount(res *model.Result) int {
	n := 0
	for _, out := range res.Scanners {
		if out.Status == model.TaskSucceeded {
			n++
		}
	}
	return n
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
