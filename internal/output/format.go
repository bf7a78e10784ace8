// Package output provides formatters for CLI output.
package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"todolist/internal/agenda"
	"todolist/internal/presets"
	"todolist/internal/service"
)

const (
	// ListSeparator is the separator line for list sections.
	ListSeparator = "------------"

	// DueLayout is how due dates are shown in task lines.
	DueLayout = "Jan 02 15:04"
)

// Printer writes CLI output to w, styling it when w is a color terminal.
type Printer struct {
	w io.Writer
	r *lipgloss.Renderer

	high, low, done, header lipgloss.Style
}

// NewPrinter binds a renderer to w. noColor forces plain output.
func NewPrinter(w io.Writer, noColor bool) *Printer {
	r := lipgloss.NewRenderer(w)
	if noColor {
		r.SetColorProfile(termenv.Ascii)
	}
	return &Printer{
		w:      w,
		r:      r,
		high:   r.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		low:    r.NewStyle().Foreground(lipgloss.Color("8")),
		done:   r.NewStyle().Faint(true),
		header: r.NewStyle().Bold(true),
	}
}

// Writer returns the underlying writer.
func (p *Printer) Writer() io.Writer {
	return p.w
}

// Task formats a task line.
// Format: "{N:>4}  [x] {PRIORITY:<6}  {DUE}  {TITLE}\n"
func (p *Printer) Task(num int, task service.Task, loc *time.Location) {
	mark := "[ ]"
	if task.IsDone {
		mark = "[x]"
	}
	prio := fmt.Sprintf("%-6s", string(task.Priority))
	switch task.Priority {
	case service.PriorityHigh:
		prio = p.high.Render(prio)
	case service.PriorityLow:
		prio = p.low.Render(prio)
	}
	title := normalizeTitle(task.Title)
	if task.IsDone {
		title = p.done.Render(title)
	}
	fmt.Fprintf(p.w, "%4d  %s %s  %s  %s\n", num, mark, prio, task.DueDate.In(loc).Format(DueLayout), title)
}

// SectionHeader formats a section header between separators.
func (p *Printer) SectionHeader(title string) {
	fmt.Fprintln(p.w, ListSeparator)
	fmt.Fprintln(p.w, p.header.Render(title))
	fmt.Fprintln(p.w, ListSeparator)
}

// Agenda prints the Today and Upcoming sections. Numbers follow agenda.Order,
// so they can be passed back as task references. Empty sections are skipped.
func (p *Printer) Agenda(tasks []service.Task, now time.Time) {
	today, upcoming := agenda.Split(tasks, now)
	num := 1
	for _, section := range []struct {
		title string
		tasks []service.Task
	}{{"Today", today}, {"Upcoming", upcoming}} {
		if len(section.tasks) == 0 {
			continue
		}
		p.SectionHeader(section.title)
		for _, t := range section.tasks {
			p.Task(num, t, now.Location())
			num++
		}
	}
}

// Progress prints "{done}/{total} done ({pct}%)".
func (p *Printer) Progress(tasks []service.Task) {
	done := 0
	for _, t := range tasks {
		if t.IsDone {
			done++
		}
	}
	pct := int(agenda.Progress(tasks)*100 + 0.5)
	fmt.Fprintf(p.w, "%d/%d done (%d%%)\n", done, len(tasks), pct)
}

// Filter prints the active filter line.
func (p *Printer) Filter(field string, value any) {
	fmt.Fprintf(p.w, "filter: %s = %v\n", field, value)
}

// CategoryNames lists preset categories, one per line.
func (p *Printer) CategoryNames(names []string) {
	for _, name := range names {
		fmt.Fprintln(p.w, name)
	}
}

// Category lists the numbered items of a preset category.
func (p *Printer) Category(c presets.Category) {
	p.SectionHeader(c.Name)
	for i, item := range c.Items {
		fmt.Fprintf(p.w, "%4d  %s\n", i+1, item.Name)
		if item.Description != "" {
			fmt.Fprintf(p.w, "      %s\n", item.Description)
		}
	}
}

// Profile prints the profile fields.
func (p *Printer) Profile(u service.UserProfile, loc *time.Location) {
	fmt.Fprintf(p.w, "name:   %s\n", u.Name)
	fmt.Fprintf(p.w, "email:  %s\n", u.Email)
	if !u.Joined.IsZero() {
		fmt.Fprintf(p.w, "joined: %s\n", u.Joined.In(loc).Format("2006-01-02"))
	}
}

// normalizeTitle normalizes a task title for display.
// - Empty or whitespace-only titles become "(untitled)"
// - Newlines are replaced with spaces
func normalizeTitle(title string) string {
	title = strings.ReplaceAll(title, "\r", " ")
	title = strings.ReplaceAll(title, "\n", " ")

	if strings.TrimSpace(title) == "" {
		return "(untitled)"
	}
	return title
}
