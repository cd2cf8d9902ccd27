package logger

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/term"
)

var (
	colorSection = color.New(color.FgCyan, color.Bold)
	colorRule    = color.New(color.FgCyan)
	colorSubRule = color.New(color.FgHiBlack)
	colorKey     = color.New(color.FgCyan)
	colorBar     = color.New(color.FgGreen)
)

const (
	IconCheck = "✓"
	IconCross = "✗"
	IconDot   = "•"
	IconArrow = "→"
)

// Success logs a success message with a checkmark
func Success(args ...interface{}) {
	defaultLogger.Info(IconCheck + " " + fmt.Sprint(args...))
}

// Successf logs a formatted success message
func Successf(format string, args ...interface{}) {
	Success(fmt.Sprintf(format, args...))
}

// Progress logs a progress message
func Progress(args ...interface{}) {
	defaultLogger.Info(IconArrow + " " + fmt.Sprint(args...))
}

// Progressf logs a formatted progress message
func Progressf(format string, args ...interface{}) {
	Progress(fmt.Sprintf(format, args...))
}

func paint(c *color.Color, text string) string {
	s := defaultSink()
	s.mu.Lock()
	noColor := s.noColor
	s.mu.Unlock()
	if noColor {
		return text
	}
	return c.Sprint(text)
}

func output() io.Writer {
	s := defaultSink()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writer
}

// LogSection writes a visual section separator to the log
func LogSection(title string) {
	line := strings.Repeat("=", 50)
	w := output()
	fmt.Fprintln(w, paint(colorRule, line))
	fmt.Fprintln(w, paint(colorSection, title))
	fmt.Fprintln(w, paint(colorRule, line))
}

// LogSubSection writes a visual subsection separator to the log
func LogSubSection(title string) {
	line := strings.Repeat("-", 40)
	w := output()
	fmt.Fprintln(w, paint(colorSubRule, line))
	fmt.Fprintln(w, paint(colorSubRule, title))
	fmt.Fprintln(w, paint(colorSubRule, line))
}

// LogKeyValue logs a key-value pair
func LogKeyValue(key string, value interface{}) {
	fmt.Fprintf(output(), "%s %v\n", paint(colorKey, key+":"), value)
}

// Table is a simple aligned table
type Table struct {
	headers []string
	rows    [][]string
}

// NewTable creates a new table
func NewTable(headers ...string) *Table {
	return &Table{headers: headers}
}

// AddRow adds a row to the table
func (t *Table) AddRow(values ...string) {
	t.rows = append(t.rows, values)
}

// Write prints the table to w
func (t *Table) Write(w io.Writer) {
	if len(t.headers) == 0 {
		return
	}

	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = len(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	line := func(cells []string) {
		var b strings.Builder
		for i, cell := range cells {
			if i < len(widths) {
				fmt.Fprintf(&b, "%-*s  ", widths[i], cell)
			}
		}
		fmt.Fprintln(w, strings.TrimRight(b.String(), " "))
	}

	line(t.headers)
	rules := make([]string, len(widths))
	for i, n := range widths {
		rules[i] = strings.Repeat("-", n)
	}
	line(rules)
	for _, row := range t.rows {
		line(row)
	}
}

// ProgressBar draws a single-line progress bar on the log output. It is
// silent unless that output is a terminal.
type ProgressBar struct {
	total   int
	current int
	width   int
	message string
	w       io.Writer
	enabled bool
}

// NewProgressBar creates a new progress bar
func NewProgressBar(total int, message string) *ProgressBar {
	w := output()
	enabled := false
	if f, ok := w.(interface{ Fd() uintptr }); ok {
		enabled = term.IsTerminal(int(f.Fd()))
	}
	return &ProgressBar{
		total:   total,
		width:   40,
		message: message,
		w:       w,
		enabled: enabled && total > 0,
	}
}

// Increment advances the progress bar by 1
func (p *ProgressBar) Increment() {
	p.current++
	p.draw()
}

// Finish completes the progress bar
func (p *ProgressBar) Finish() {
	if !p.enabled {
		return
	}
	p.current = p.total
	p.draw()
	fmt.Fprintln(p.w)
}

func (p *ProgressBar) draw() {
	if !p.enabled {
		return
	}
	percent := float64(p.current) / float64(p.total)
	if percent > 1 {
		percent = 1
	}
	filled := int(percent * float64(p.width))
	bar := strings.Repeat("█", filled) + strings.Repeat("░", p.width-filled)
	fmt.Fprintf(p.w, "\r%s: %s %3.0f%%", p.message, paint(colorBar, bar), percent*100)
}
