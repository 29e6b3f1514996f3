package main

import (
	"strings"
	"testing"
)

func TestRenderKeyValuesSkipsEmptyValues(t *testing.T) {
	out := renderKeyValues([][2]string{
		{"Account", "A"},
		{"Job ID", ""},
		{"CSV path", "uploads/a.csv"},
	})
	requireContains(t, out, "Account")
	requireContains(t, out, "uploads/a.csv")
	if strings.Contains(out, "Job ID") {
		t.Fatalf("empty rows must be dropped:\n%s", out)
	}
	requireContains(t, out, "Field")
}

func TestRenderKeyValuesEmpty(t *testing.T) {
	if out := renderKeyValues([][2]string{{"Job ID", ""}}); out != "" {
		t.Fatalf("expected no table, got %q", out)
	}
}

func TestRenderTablePadsShortRows(t *testing.T) {
	out := renderTable([]string{"Setting", "Value"}, [][]string{{"panel.bind"}})
	requireContains(t, out, "Setting")
	requireContains(t, out, "panel.bind")
}
