// Package ui renders terminal output for the mcrud commands.
package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// Table lays rows out in aligned columns under a bold header
type Table struct {
	w       io.Writer
	headers []string
	rows    [][]string
}

// NewTable creates a table writing to w
func NewTable(w io.Writer, headers ...string) *Table {
	return &Table{w: w, headers: headers}
}

// AddRow appends a row. Cells beyond the header count are dropped.
func (t *Table) AddRow(cells ...string) {
	if len(cells) > len(t.headers) {
		cells = cells[:len(t.headers)]
	}
	t.rows = append(t.rows, cells)
}

// Len returns the number of rows
func (t *Table) Len() int {
	return len(t.rows)
}

// Render writes the table
func (t *Table) Render() {
	if len(t.headers) == 0 {
		return
	}

	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = len(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	bold := color.New(color.Bold, color.FgCyan)
	gray := color.New(color.FgHiBlack)

	t.line(widths, t.headers, bold)

	rules := make([]string, len(widths))
	for i, width := range widths {
		rules[i] = strings.Repeat("─", width)
	}
	t.line(widths, rules, gray)

	for _, row := range t.rows {
		t.line(widths, row, nil)
	}
}

func (t *Table) line(widths []int, cells []string, c *color.Color) {
	for i, cell := range cells {
		if i < len(cells)-1 {
			cell = pad(cell, widths[i]) + "  "
		}
		if c != nil {
			c.Fprint(t.w, cell)
		} else {
			fmt.Fprint(t.w, cell)
		}
	}
	fmt.Fprintln(t.w)
}

func pad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

// KeyValueTable renders "key: value" lines with aligned values
type KeyValueTable struct {
	w    io.Writer
	keys []string
	vals []string
}

// NewKeyValueTable creates a key-value table writing to w
func NewKeyValueTable(w io.Writer) *KeyValueTable {
	return &KeyValueTable{w: w}
}

// AddRow appends a pair
func (t *KeyValueTable) AddRow(key, value string) {
	t.keys = append(t.keys, key)
	t.vals = append(t.vals, value)
}

// Render writes the table
func (t *KeyValueTable) Render() {
	width := 0
	for _, k := range t.keys {
		if len(k) > width {
			width = len(k)
		}
	}

	cyan := color.New(color.FgCyan)
	for i, k := range t.keys {
		cyan.Fprint(t.w, pad(k+":", width+1))
		fmt.Fprintf(t.w, " %s\n", t.vals[i])
	}
}

// Header writes a bold title underlined with a rule of the same width
func Header(w io.Writer, title string) {
	color.New(color.Bold, color.FgCyan).Fprintln(w, title)
	color.New(color.FgHiBlack).Fprintln(w, strings.Repeat("─", len(title)))
}
