// Package agenda arranges tasks the way the list screen shows them: tasks due
// today or overdue first, by priority, then upcoming tasks by due date.
package agenda

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"

	"todolist/internal/service"
)

var (
	// ErrEmptyTitle is returned for a task without a title.
	ErrEmptyTitle = errors.New("title is required")

	// ErrDueInPast is returned for a new task whose due date has passed.
	ErrDueInPast = errors.New("due date must be in the future")
)

// StartOfDay returns midnight of t's day in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// EndOfDay returns 23:59 of t's day, the default due time.
func EndOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 0, 0, t.Location())
}

// Split separates tasks due today or earlier from tasks due tomorrow or later.
// Both results are sorted for display.
func Split(tasks []service.Task, now time.Time) (today, upcoming []service.Task) {
	tomorrow := StartOfDay(now).AddDate(0, 0, 1)
	for _, t := range tasks {
		if t.DueDate.Before(tomorrow) {
			today = append(today, t)
		} else {
			upcoming = append(upcoming, t)
		}
	}

	sort.SliceStable(today, func(i, j int) bool {
		a, b := today[i], today[j]
		if a.Priority.Rank() != b.Priority.Rank() {
			return a.Priority.Rank() < b.Priority.Rank()
		}
		return byDue(a, b)
	})
	sort.SliceStable(upcoming, func(i, j int) bool {
		return byDue(upcoming[i], upcoming[j])
	})
	return today, upcoming
}

func byDue(a, b service.Task) bool {
	if !a.DueDate.Equal(b.DueDate) {
		return a.DueDate.Before(b.DueDate)
	}
	return a.ID < b.ID
}

// Order returns today's tasks followed by upcoming ones. Task numbers
// shown by the CLI index into this order.
func Order(tasks []service.Task, now time.Time) []service.Task {
	today, upcoming := Split(tasks, now)
	return append(today, upcoming...)
}

// Progress is the fraction of tasks that are done, 0 for no tasks.
func Progress(tasks []service.Task) float64 {
	if len(tasks) == 0 {
		return 0
	}
	done := 0
	for _, t := range tasks {
		if t.IsDone {
			done++
		}
	}
	return float64(done) / float64(len(tasks))
}

var parser = func() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}()

// ParseDue parses a due date relative to now. Accepted forms are RFC 3339,
// "2006-01-02 15:04", "2006-01-02" (end of that day) and English phrases
// such as "tomorrow 9am" or "next friday".
func ParseDue(text string, now time.Time) (time.Time, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return time.Time{}, errors.New("empty due date")
	}

	if t, err := time.Parse(time.RFC3339, text); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation("2006-01-02 15:04", text, now.Location()); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation("2006-01-02", text, now.Location()); err == nil {
		return EndOfDay(t), nil
	}

	r, err := parser.Parse(text, now)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid due date %q: %w", text, err)
	}
	if r == nil {
		return time.Time{}, fmt.Errorf("invalid due date: %q", text)
	}
	return r.Time, nil
}

// NewTask builds a task ready to be added. A zero due date means the end of
// today; an empty priority means Normal.
func NewTask(title string, due time.Time, priority service.Priority, now time.Time) (service.Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return service.Task{}, ErrEmptyTitle
	}
	if due.IsZero() {
		due = EndOfDay(now)
	}
	if !due.After(now) {
		return service.Task{}, ErrDueInPast
	}
	if priority == "" {
		priority = service.PriorityNormal
	}
	if !priority.Valid() {
		return service.Task{}, fmt.Errorf("invalid priority: %q", priority)
	}
	return service.Task{
		ID:          uuid.NewString(),
		Title:       title,
		DueDate:     due.UTC(),
		CreatedDate: now.UTC(),
		Priority:    priority,
	}, nil
}
