package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"strings"
)

// Style selects how a Printer renders an error.
type Style int

const (
	// StyleFull is the multi-line report with source context and hints.
	StyleFull Style = iota
	// StyleCompact is one "file:line:col: CODE: message" line, plus the
	// hint when there is one.
	StyleCompact
	// StyleJSON is one JSON object per error, for log pipelines.
	StyleJSON
)

const (
	ansiReset = "\033[0m"
	ansiRed   = "\033[31m"
	ansiCyan  = "\033[36m"
	ansiGray  = "\033[90m"
	ansiBold  = "\033[1m"
)

// Printer writes errors in one Style. Any error can be printed; errors
// without a code are shown with their message only.
type Printer struct {
	Out   io.Writer
	Style Style
	Color bool
}

// Print writes err to p.Out.
func (p *Printer) Print(err error) {
	if err == nil {
		return
	}
	e := asError(err)
	switch p.Style {
	case StyleJSON:
		fmt.Fprintln(p.Out, e.FormatJSON())
	case StyleCompact:
		fmt.Fprintln(p.Out, p.paint(ansiRed, e.FormatCompact()))
		if e.Suggestion != "" {
			fmt.Fprintf(p.Out, "  %s %s\n", p.paint(ansiCyan, "hint:"), e.Suggestion)
		}
	default:
		fmt.Fprint(p.Out, e.format(p.paint))
	}
}

func (p *Printer) paint(code, text string) string {
	if !p.Color {
		return text
	}
	return code + text + ansiReset
}

func plain(_, text string) string { return text }

// asError returns the *Error in err's chain, or wraps err in an uncoded one.
func asError(err error) *Error {
	var e *Error
	if stderrors.As(err, &e) {
		return e
	}
	return &Error{Category: CategoryCLI, Message: err.Error()}
}

// Format returns the multi-line report without colors.
func (e *Error) Format() string { return e.format(plain) }

func (e *Error) format(paint func(code, text string) string) string {
	var b strings.Builder

	title := "ERROR: " + e.Message
	if e.Code != "" {
		title = "ERROR " + e.Code + ": " + e.Message
	}
	fmt.Fprintf(&b, "\n%s\n\n", paint(ansiRed+ansiBold, title))

	if e.Location != nil {
		fmt.Fprintf(&b, "  %s\n\n", paint(ansiCyan, e.Location.String()))
		if len(e.Context) > 0 {
			e.writeSource(&b, paint)
		}
	}

	if e.Wrapped != nil {
		fmt.Fprintf(&b, "  %s\n\n", paint(ansiGray, e.Wrapped.Error()))
	}
	if e.Detail != "" {
		writeIndented(&b, wrapText(e.Detail, 70), "  ")
	}
	if e.Suggestion != "" {
		fmt.Fprintf(&b, "  %s %s\n\n", paint(ansiCyan, "Hint:"), e.Suggestion)
	}
	if e.Example != "" {
		fmt.Fprintf(&b, "  %s\n", paint(ansiCyan, "Example:"))
		writeIndented(&b, strings.Split(e.Example, "\n"), "    ")
	}
	return b.String()
}

// writeSource prints the context lines with the error line marked and,
// when known, a caret under the column.
func (e *Error) writeSource(b *strings.Builder, paint func(code, text string) string) {
	first := e.Location.Line - len(e.Context)/2
	bar := paint(ansiGray, " │ ")
	for i, line := range e.Context {
		n := first + i
		if n != e.Location.Line {
			fmt.Fprintf(b, "    %4d%s%s\n", n, bar, line)
			continue
		}
		fmt.Fprintf(b, "  %s%4d%s%s\n", paint(ansiRed, "→ "), n, bar, line)
		if e.Location.Column > 0 {
			fmt.Fprintf(b, "       %s%s%s\n", paint(ansiGray, "│ "), strings.Repeat(" ", e.Location.Column-1), paint(ansiRed, "^"))
		}
	}
	b.WriteString("\n")
}

func writeIndented(b *strings.Builder, lines []string, indent string) {
	for _, line := range lines {
		b.WriteString(indent)
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("\n")
}

// FormatCompact returns "file:line:col: CODE: message", leaving out the
// parts that are unknown.
func (e *Error) FormatCompact() string {
	var parts []string
	if e.Location != nil {
		parts = append(parts, e.Location.String())
	}
	if e.Code != "" {
		parts = append(parts, e.Code)
	}
	return strings.Join(append(parts, e.Message), ": ")
}

type jsonLocation struct {
	File   string `json:"file"`
	Line   int    `json:"line,omitempty"`
	Column int    `json:"column,omitempty"`
}

type jsonError struct {
	Code       string        `json:"code,omitempty"`
	Category   Category      `json:"category"`
	Message    string        `json:"message"`
	Detail     string        `json:"detail,omitempty"`
	Location   *jsonLocation `json:"location,omitempty"`
	Suggestion string        `json:"suggestion,omitempty"`
	Cause      string        `json:"cause,omitempty"`
}

// FormatJSON returns the error as a single-line JSON object.
func (e *Error) FormatJSON() string {
	out := jsonError{
		Code:       e.Code,
		Category:   e.Category,
		Message:    e.Message,
		Detail:     e.Detail,
		Suggestion: e.Suggestion,
	}
	if e.Location != nil {
		out.Location = &jsonLocation{File: e.Location.File, Line: e.Location.Line, Column: e.Location.Column}
	}
	if e.Wrapped != nil {
		out.Cause = e.Wrapped.Error()
	}
	data, err := json.Marshal(out)
	if err != nil {
		return fmt.Sprintf(`{"message":%q}`, e.Message)
	}
	return string(data)
}

// wrapText breaks text into lines of at most width characters at word
// boundaries. A single long word gets a line of its own.
func wrapText(text string, width int) []string {
	var lines []string
	var current strings.Builder
	for _, word := range strings.Fields(text) {
		if current.Len() > 0 && current.Len()+1+len(word) > width {
			lines = append(lines, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteByte(' ')
		}
		current.WriteString(word)
	}
	if current.Len() > 0 {
		lines = append(lines, current.String())
	}
	return lines
}
