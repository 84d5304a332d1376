// Package ui renders fixreg command output for humans. Styling is dropped
// automatically when the destination is not a color terminal.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/papapumpkin/fixreg/internal/fixture"
	"github.com/papapumpkin/fixreg/internal/history"
)

// Semantic color palette.
var (
	colorPrimary = lipgloss.Color("#00BFFF") // headings
	colorAccent  = lipgloss.Color("#FFD700") // derived fixtures
	colorSuccess = lipgloss.Color("#00E676") // clean
	colorDanger  = lipgloss.Color("#FF5252") // violations
	colorMuted   = lipgloss.Color("#636363") // secondary text
)

// Status icons.
const (
	iconOK     = "✓"
	iconFailed = "✗"
	iconBullet = "•"
)

// Printer writes styled output to a single destination, stderr by default.
type Printer struct {
	w io.Writer

	heading lipgloss.Style
	success lipgloss.Style
	danger  lipgloss.Style
	accent  lipgloss.Style
	muted   lipgloss.Style
	name    lipgloss.Style
}

// New returns a Printer writing to stderr.
func New() *Printer {
	return NewWriter(os.Stderr)
}

// NewWriter returns a Printer writing to w, with a color profile detected
// from w.
func NewWriter(w io.Writer) *Printer {
	r := lipgloss.NewRenderer(w)
	return &Printer{
		w:       w,
		heading: r.NewStyle().Foreground(colorPrimary).Bold(true),
		success: r.NewStyle().Foreground(colorSuccess).Bold(true),
		danger:  r.NewStyle().Foreground(colorDanger).Bold(true),
		accent:  r.NewStyle().Foreground(colorAccent),
		muted:   r.NewStyle().Foreground(colorMuted),
		name:    r.NewStyle().Bold(true),
	}
}

// Error prints an error message.
func (p *Printer) Error(msg string) {
	fmt.Fprintf(p.w, "%s %s\n", p.danger.Render("error:"), msg)
}

// Info prints a de-emphasized informational line.
func (p *Printer) Info(msg string) {
	fmt.Fprintln(p.w, p.muted.Render(msg))
}

// ValidateResult prints the outcome of a validation pass over a catalog.
func (p *Printer) ValidateResult(catalog string, fixtureCount int, vs []fixture.Violation) {
	if catalog == "" {
		catalog = "fixtures"
	}
	if len(vs) == 0 {
		fmt.Fprintf(p.w, "%s — %d fixture(s), no violations\n",
			p.success.Render(fmt.Sprintf("%s %s", iconOK, catalog)), fixtureCount)
		return
	}
	fmt.Fprintf(p.w, "%s — %d violation(s) across %d fixture(s):\n",
		p.danger.Render(fmt.Sprintf("%s %s", iconFailed, catalog)), len(vs), fixtureCount)
	for _, v := range vs {
		fmt.Fprintf(p.w, "  %s %s %s\n",
			p.danger.Render(iconBullet), p.muted.Render("["+string(v.Kind)+"]"), v.Error())
	}
}

// RecordList prints one line per record in the given order.
func (p *Printer) RecordList(recs []fixture.Record) {
	if len(recs) == 0 {
		p.Info("(no fixtures)")
		return
	}
	for _, r := range recs {
		origin := string(r.Origin)
		if r.IsDerived() {
			origin = p.accent.Render("derived ← " + r.DerivedFrom)
		}
		fmt.Fprintf(p.w, "%s %s\n", p.name.Render(fmt.Sprintf("%-32s", r.Name)), origin)
	}
}

// RecordDetail prints a record with its lineage and direct dependents.
func (p *Printer) RecordDetail(r fixture.Record, lineage, dependents []string) {
	fmt.Fprintln(p.w, p.heading.Render(r.Name))
	field := func(label, value string) {
		if value == "" {
			return
		}
		fmt.Fprintf(p.w, "  %-12s %s\n", label+":", value)
	}
	field("origin", string(r.Origin))
	field("procedure", r.Procedure)
	field("derived from", r.DerivedFrom)
	field("transform", r.Transform)
	if len(lineage) > 1 {
		field("lineage", strings.Join(lineage, " ← "))
	}
	field("dependents", strings.Join(dependents, ", "))
	if len(r.Consumers) == 0 {
		fmt.Fprintf(p.w, "  %-12s %s\n", "consumers:", p.muted.Render("(none)"))
		return
	}
	fmt.Fprintf(p.w, "  %s\n", "consumers:")
	for _, c := range r.Consumers {
		fmt.Fprintf(p.w, "    %s %s\n", iconBullet, c)
	}
}

// LockWritten confirms a lock file update.
func (p *Printer) LockWritten(path string, entries int) {
	fmt.Fprintf(p.w, "%s %s %s\n",
		p.success.Render(iconOK+" locked"), path, p.muted.Render(fmt.Sprintf("(%d fixture(s))", entries)))
}

// ChangeDetected reports a watched file change before re-validation.
func (p *Printer) ChangeDetected(file, kind string) {
	fmt.Fprintf(p.w, "\n%s %s %s\n", p.heading.Render("↻"), file, p.muted.Render(kind))
}

// HistoryRuns prints recorded validation runs, newest first.
func (p *Printer) HistoryRuns(runs []history.Run) {
	if len(runs) == 0 {
		p.Info("(no recorded runs)")
		return
	}
	for _, r := range runs {
		status := p.success.Render(iconOK)
		if r.ViolationCount > 0 {
			status = p.danger.Render(iconFailed)
		}
		fmt.Fprintf(p.w, "%s %s  %s  %d fixture(s), %d violation(s)  %s\n",
			status,
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			r.Dir,
			r.FixtureCount,
			r.ViolationCount,
			p.muted.Render(r.ID),
		)
	}
}
