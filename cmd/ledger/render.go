package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// markdown accumulates a document of headings, tables and paragraphs.
type markdown struct {
	strings.Builder
}

func (m *markdown) heading(level int, format string, args ...any) {
	fmt.Fprintf(m, "%s %s\n\n", strings.Repeat("#", level), fmt.Sprintf(format, args...))
}

func (m *markdown) para(format string, args ...any) {
	fmt.Fprintf(m, format+"\n\n", args...)
}

func (m *markdown) table(header []string, rows [][]string) {
	if len(rows) == 0 {
		m.para("_No entries._")
		return
	}
	m.row(header)
	sep := make([]string, len(header))
	for i := range sep {
		sep[i] = "---"
	}
	m.row(sep)
	for _, r := range rows {
		m.row(r)
	}
	m.WriteString("\n")
}

func (m *markdown) row(cells []string) {
	escaped := make([]string, len(cells))
	for i, c := range cells {
		c = strings.ReplaceAll(c, "|", `\|`)
		escaped[i] = strings.ReplaceAll(c, "\n", " ")
	}
	fmt.Fprintf(m, "| %s |\n", strings.Join(escaped, " | "))
}

// printMarkdown writes md to stdout, rendered for the terminal unless
// -plain is set.
func printMarkdown(md string) error {
	if *plainFlag {
		_, err := io.WriteString(os.Stdout, md)
		return err
	}
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(120))
	if err != nil {
		return fmt.Errorf("create renderer: %w", err)
	}
	out, err := r.Render(md)
	if err != nil {
		return fmt.Errorf("render markdown: %w", err)
	}
	_, err = io.WriteString(os.Stdout, out)
	return err
}

// markdownToHTML renders md as a standalone HTML document.
func markdownToHTML(title, md string) ([]byte, error) {
	var body bytes.Buffer
	if err := goldmark.New(goldmark.WithExtensions(extension.GFM)).Convert([]byte(md), &body); err != nil {
		return nil, fmt.Errorf("convert markdown: %w", err)
	}
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "<!DOCTYPE html>\n<html><head><meta charset=\"utf-8\"><title>%s</title></head><body>\n", title)
	buf.Write(body.Bytes())
	buf.WriteString("</body></html>\n")
	return buf.Bytes(), nil
}

// writeOutput writes data to path, or stdout when path is empty or "-".
func writeOutput(path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
