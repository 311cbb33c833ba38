package ctl

import (
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"
)

// table collects rows and prints them with aligned columns.
type table struct {
	w       io.Writer
	prefix  string
	headers []string
	rows    [][]string
	right   map[int]bool
}

func newTable(prefix string, headers ...string) *table {
	return &table{w: os.Stdout, prefix: prefix, headers: headers, right: map[int]bool{}}
}

// alignRight right-aligns column col.
func (t *table) alignRight(col int) { t.right[col] = true }

func (t *table) row(cells ...string) { t.rows = append(t.rows, cells) }

func (t *table) flush() {
	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = utf8.RuneCountInString(h)
	}
	for _, r := range t.rows {
		for i, c := range r {
			if i < len(widths) && utf8.RuneCountInString(c) > widths[i] {
				widths[i] = utf8.RuneCountInString(c)
			}
		}
	}

	line := func(cells []string) string {
		parts := make([]string, len(widths))
		for i := range widths {
			c := ""
			if i < len(cells) {
				c = cells[i]
			}
			pad := strings.Repeat(" ", widths[i]-utf8.RuneCountInString(c))
			if t.right[i] {
				parts[i] = pad + c
			} else {
				parts[i] = c + pad
			}
		}
		return strings.TrimRight(t.prefix+strings.Join(parts, "  "), " ")
	}

	fmt.Fprintln(t.w, colorize(dim, line(t.headers)))
	total := 0
	for _, w := range widths {
		total += w
	}
	total += 2 * (len(widths) - 1)
	fmt.Fprintln(t.w, colorize(dim, t.prefix+strings.Repeat("─", total)))
	for _, r := range t.rows {
		fmt.Fprintln(t.w, line(r))
	}
}
