package pipectx

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"strings"
)

func exportJSON(summary RunSummary, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode([]RunSummary{summary})
}

func exportCSV(summary RunSummary, w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"pipeline_id", "name", "status", "duration_ms", "record_count", "error_count", "warning_count"}); err != nil {
		return err
	}
	if err := cw.Write([]string{
		summary.PipelineID,
		summary.Name,
		summary.Status,
		fmt.Sprintf("%d", summary.Duration.Milliseconds()),
		fmt.Sprintf("%d", summary.RecordCount),
		fmt.Sprintf("%d", len(summary.Errors)),
		fmt.Sprintf("%d", len(summary.Warnings)),
	}); err != nil {
		return err
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}

	if _, err := fmt.Fprintln(w); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, "Errors"); err != nil {
		return err
	}
	ew := csv.NewWriter(w)
	if err := ew.Write([]string{"stage", "record_id", "category", "message"}); err != nil {
		return err
	}
	for _, e := range summary.Errors {
		if err := ew.Write([]string{e.Stage, e.Error.RecordID, string(e.Error.Analysis.Category), e.Error.Message}); err != nil {
			return err
		}
	}
	ew.Flush()
	return ew.Error()
}

func exportHTML(summary RunSummary, w io.Writer) error {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n")
	b.WriteString("  <meta charset=\"UTF-8\">\n")
	b.WriteString(fmt.Sprintf("  <title>Pipeline run %s</title>\n", template.HTMLEscapeString(summary.Name)))
	b.WriteString("  <style>body{font-family:sans-serif;margin:2rem;} table{border-collapse:collapse;} td,th{border:1px solid #ccc;padding:4px 8px;}</style>\n")
	b.WriteString("</head>\n<body>\n")
	b.WriteString(fmt.Sprintf("  <h1>%s</h1>\n", template.HTMLEscapeString(summary.Name)))
	b.WriteString(fmt.Sprintf("  <p>pipeline_id: %s | status: %s | duration: %s | records: %d</p>\n",
		template.HTMLEscapeString(summary.PipelineID), template.HTMLEscapeString(summary.Status), summary.Duration, summary.RecordCount))

	b.WriteString("  <h2>Executed stages</h2>\n  <ul>\n")
	for _, s := range summary.ExecutedStages {
		b.WriteString(fmt.Sprintf("    <li>%s</li>\n", template.HTMLEscapeString(s)))
	}
	b.WriteString("  </ul>\n")

	b.WriteString("  <h2>Errors</h2>\n  <table>\n    <tr><th>stage</th><th>record</th><th>category</th><th>message</th></tr>\n")
	for _, e := range summary.Errors {
		b.WriteString(fmt.Sprintf("    <tr><td>%s</td><td>%s</td><td>%s</td><td>%s</td></tr>\n",
			template.HTMLEscapeString(e.Stage), template.HTMLEscapeString(e.Error.RecordID),
			template.HTMLEscapeString(string(e.Error.Analysis.Category)), template.HTMLEscapeString(e.Error.Message)))
	}
	b.WriteString("  </table>\n")

	b.WriteString("  <h2>Warnings</h2>\n  <ul>\n")
	for _, warning := range summary.Warnings {
		b.WriteString(fmt.Sprintf("    <li>%s</li>\n", template.HTMLEscapeString(warning)))
	}
	b.WriteString("  </ul>\n")

	b.WriteString("</body>\n</html>\n")
	_, err := io.WriteString(w, b.String())
	return err
}
