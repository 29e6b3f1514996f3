package main

import (
	"encoding/json"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

// writeJSON encodes v as indented JSON to the command's stdout. HTML
// escaping is off so check marks and paths print as the backend sent them.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// renderTable draws a rounded table with headers kept as written.
func renderTable(headers []string, rows [][]string) string {
	if len(headers) == 0 {
		return ""
	}
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.Style().Format.Header = text.FormatDefault

	tw.AppendHeader(toRow(headers))
	for _, row := range rows {
		cells := make([]string, len(headers))
		copy(cells, row)
		tw.AppendRow(toRow(cells))
	}
	return tw.Render()
}

// renderKeyValues renders two-column detail tables, skipping empty values.
func renderKeyValues(rows [][2]string) string {
	body := make([][]string, 0, len(rows))
	for _, row := range rows {
		if row[1] != "" {
			body = append(body, []string{row[0], row[1]})
		}
	}
	if len(body) == 0 {
		return ""
	}
	return renderTable([]string{"Field", "Value"}, body)
}

func toRow(cells []string) table.Row {
	row := make(table.Row, len(cells))
	for i, cell := range cells {
		row[i] = cell
	}
	return row
}
