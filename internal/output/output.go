// Package output renders CLI results. Styling applies only when stdout
// is a terminal; piped output stays plain.
package output

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

const (
	colorAccent = "39"  // Blue accent for headers and scores
	colorGray   = "245" // Secondary text
	colorGreen  = "42"  // Success
	colorYellow = "220" // Warnings
	colorRed    = "196" // Errors
)

// Styles holds the terminal styles used across commands.
type Styles struct {
	Header  lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Dim     lipgloss.Style
	Score   lipgloss.Style
	Path    lipgloss.Style
}

func defaultStyles() Styles {
	return Styles{
		Header:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(colorAccent)),
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color(colorGreen)),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color(colorYellow)),
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color(colorRed)),
		Dim:     lipgloss.NewStyle().Foreground(lipgloss.Color(colorGray)),
		Score:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(colorAccent)),
		Path:    lipgloss.NewStyle().Underline(true),
	}
}

// plainStyles renders everything unstyled.
func plainStyles() Styles {
	s := lipgloss.NewStyle()
	return Styles{Header: s, Success: s, Warning: s, Error: s, Dim: s, Score: s, Path: s}
}

// Writer provides formatted CLI output.
type Writer struct {
	out    io.Writer
	styles Styles
}

// New creates a Writer, enabling color only for terminal outputs.
func New(out io.Writer) *Writer {
	styles := plainStyles()
	if f, ok := out.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		styles = defaultStyles()
	}
	return &Writer{out: out, styles: styles}
}

// Header prints a section heading.
func (w *Writer) Header(msg string) {
	_, _ = fmt.Fprintln(w.out, w.styles.Header.Render(msg))
}

// Success prints a success line.
func (w *Writer) Success(format string, args ...any) {
	_, _ = fmt.Fprintln(w.out, w.styles.Success.Render("✓ "+fmt.Sprintf(format, args...)))
}

// Warning prints a warning line.
func (w *Writer) Warning(format string, args ...any) {
	_, _ = fmt.Fprintln(w.out, w.styles.Warning.Render("! "+fmt.Sprintf(format, args...)))
}

// Error prints an error line.
func (w *Writer) Error(format string, args ...any) {
	_, _ = fmt.Fprintln(w.out, w.styles.Error.Render("✗ "+fmt.Sprintf(format, args...)))
}

// Info prints a plain line.
func (w *Writer) Info(format string, args ...any) {
	_, _ = fmt.Fprintf(w.out, format+"\n", args...)
}

// Field prints an aligned label/value pair.
func (w *Writer) Field(label, format string, args ...any) {
	_, _ = fmt.Fprintf(w.out, "  %s %s\n",
		w.styles.Dim.Render(fmt.Sprintf("%-14s", label+":")),
		fmt.Sprintf(format, args...))
}

// Result prints one ranked search hit.
func (w *Writer) Result(rank int, score float32, path, detail string) {
	_, _ = fmt.Fprintf(w.out, "%2d. %s  %s\n",
		rank,
		w.styles.Score.Render(fmt.Sprintf("%.4f", score)),
		w.styles.Path.Render(path))
	if detail != "" {
		_, _ = fmt.Fprintf(w.out, "    %s\n", w.styles.Dim.Render(detail))
	}
}

// Newline prints an empty line.
func (w *Writer) Newline() {
	_, _ = fmt.Fprintln(w.out)
}
