package commands

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"todolist/internal/agenda"
	"todolist/internal/app"
	"todolist/internal/service"
	"todolist/internal/syncer"
)

// TaskRef is either a 1-based number in agenda order or a task ID.
type TaskRef struct {
	Num int
	ID  string
}

// ErrTaskRefRequired indicates no task reference was provided.
var ErrTaskRefRequired = errors.New("task reference required")

// ParseTaskRef parses the single task reference in args. All-digit
// references are numbers; anything else is an ID.
func ParseTaskRef(args []string) (TaskRef, error) {
	if len(args) == 0 {
		return TaskRef{}, ErrTaskRefRequired
	}
	if len(args) > 1 {
		return TaskRef{}, fmt.Errorf("too many arguments: %s", strings.Join(args[1:], " "))
	}

	ref := strings.TrimSpace(args[0])
	if ref == "" {
		return TaskRef{}, ErrTaskRefRequired
	}
	if isAllDigits(ref) {
		num, err := strconv.Atoi(ref)
		if err != nil || num < 1 {
			return TaskRef{}, fmt.Errorf("task number out of range: %s", ref)
		}
		return TaskRef{Num: num}, nil
	}
	if !service.ValidSegment(ref) {
		return TaskRef{}, fmt.Errorf("invalid task reference: %s", ref)
	}
	return TaskRef{ID: ref}, nil
}

// isAllDigits returns true if s consists only of ASCII digits and is non-empty.
func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// resolveTask finds the referenced task in the signed-in user's collection.
func resolveTask(ctx context.Context, a *app.App, ref TaskRef) (service.Task, error) {
	tasks, err := a.Sync.FetchCollection(ctx, "")
	if err != nil {
		return service.Task{}, err
	}
	if ref.ID != "" {
		for _, t := range tasks {
			if t.ID == ref.ID {
				return t, nil
			}
		}
		return service.Task{}, fmt.Errorf("%w: %s", syncer.ErrTaskNotFound, ref.ID)
	}

	ordered := agenda.Order(tasks, a.Now())
	if ref.Num > len(ordered) {
		return service.Task{}, fmt.Errorf("task number out of range: %d", ref.Num)
	}
	return ordered[ref.Num-1], nil
}

// numbers maps task IDs to their 1-based position in agenda order.
func numbers(tasks []service.Task, a *app.App) map[string]int {
	nums := make(map[string]int, len(tasks))
	for i, t := range agenda.Order(tasks, a.Now()) {
		nums[t.ID] = i + 1
	}
	return nums
}
