// Package output renders CLI results: styled severities, headers and
// summary tables.
package output

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	prettytable "github.com/jedib0t/go-pretty/v6/table"
)

// rendererKey stores the renderer in the command context.
type rendererKey struct{}

// WithRenderer stashes a renderer in the context.
func WithRenderer(ctx context.Context, r *Renderer) context.Context {
	return context.WithValue(ctx, rendererKey{}, r)
}

// FromContext retrieves the renderer, falling back to the process streams.
func FromContext(ctx context.Context) *Renderer {
	if r, ok := ctx.Value(rendererKey{}).(*Renderer); ok {
		return r
	}
	return NewRenderer(os.Stdout, os.Stderr)
}

var (
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	headerStyle  = lipgloss.NewStyle().Bold(true)
	dimStyle     = lipgloss.NewStyle().Faint(true)
)

// Renderer writes human-facing command output. Results go to out,
// diagnostics to errOut.
type Renderer struct {
	out    io.Writer
	errOut io.Writer
}

// NewRenderer creates a renderer over the two command streams.
func NewRenderer(out, errOut io.Writer) *Renderer {
	return &Renderer{out: out, errOut: errOut}
}

// Writer returns the result stream, for encoders that write directly.
func (r *Renderer) Writer() io.Writer { return r.out }

// Println writes a plain line to the result stream.
func (r *Renderer) Println(a ...any) {
	fmt.Fprintln(r.out, a...)
}

// Printf writes formatted text to the result stream.
func (r *Renderer) Printf(format string, a ...any) {
	fmt.Fprintf(r.out, format, a...)
}

// Header writes a bold section header.
func (r *Renderer) Header(text string) {
	fmt.Fprintln(r.out, headerStyle.Render(text))
}

// Success writes a green completion line.
func (r *Renderer) Success(text string) {
	fmt.Fprintln(r.out, successStyle.Render(text))
}

// Error writes a red diagnostic line to the error stream.
func (r *Renderer) Error(text string) {
	fmt.Fprintln(r.errOut, errorStyle.Render(text))
}

// Dim writes a de-emphasized line to the result stream.
func (r *Renderer) Dim(text string) {
	fmt.Fprintln(r.out, dimStyle.Render(text))
}

// Issue writes one validation issue line: severity, code, entity, message.
func (r *Renderer) Issue(severity, code, entity, message string) {
	// Pad before styling so ANSI escapes do not break column alignment.
	sev := fmt.Sprintf("%-8s", severity)
	switch severity {
	case "error":
		sev = errorStyle.Render(sev)
	case "warning":
		sev = warningStyle.Render(sev)
	}
	if entity == "" {
		entity = "-"
	}
	fmt.Fprintf(r.out, "%s %-6s %-20s %s\n", sev, code, entity, message)
}

// Table renders a bordered table with a header row.
func (r *Renderer) Table(header []string, rows [][]string) {
	tw := prettytable.NewWriter()
	tw.SetOutputMirror(r.out)
	tw.SetStyle(prettytable.StyleLight)

	h := make(prettytable.Row, len(header))
	for i, c := range header {
		h[i] = c
	}
	tw.AppendHeader(h)
	for _, row := range rows {
		pr := make(prettytable.Row, len(row))
		for i, c := range row {
			pr[i] = c
		}
		tw.AppendRow(pr)
	}
	tw.Render()
}
