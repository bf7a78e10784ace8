package service

import (
	"fmt"
	"strings"
	"time"
)

// Priority is the urgency of a task.
type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityNormal Priority = "Normal"
	PriorityHigh   Priority = "High"
)

// ParsePriority parses a priority name case-insensitively.
func ParsePriority(s string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return PriorityLow, nil
	case "normal":
		return PriorityNormal, nil
	case "high":
		return PriorityHigh, nil
	default:
		return "", fmt.Errorf("invalid priority: %q (want Low, Normal or High)", s)
	}
}

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	return p == PriorityLow || p == PriorityNormal || p == PriorityHigh
}

// Rank orders priorities for display: High first, unknown last.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityNormal:
		return 1
	case PriorityLow:
		return 2
	default:
		return 3
	}
}

// Task represents a single task item owned by one user.
type Task struct {
	ID          string    `json:"id" yaml:"id" doc:"id"`
	Title       string    `json:"title" yaml:"title" doc:"title"`
	DueDate     time.Time `json:"dueDate" yaml:"dueDate" doc:"dueDate"`
	CreatedDate time.Time `json:"createdDate" yaml:"createdDate" doc:"createdDate"`
	IsDone      bool      `json:"isDone" yaml:"isDone" doc:"isDone"`
	Priority    Priority  `json:"priority" yaml:"priority" doc:"priority"`
}

// Fields returns the document body written to the store.
func (t Task) Fields() map[string]any {
	return map[string]any{
		"id":          t.ID,
		"title":       t.Title,
		"dueDate":     t.DueDate.UTC(),
		"createdDate": t.CreatedDate.UTC(),
		"isDone":      t.IsDone,
		"priority":    string(t.Priority),
	}
}

// UserProfile is the per-user document stored at users/{id}.
type UserProfile struct {
	ID     string    `json:"id" yaml:"id" doc:"id"`
	Name   string    `json:"name" yaml:"name" doc:"name"`
	Email  string    `json:"email" yaml:"email" doc:"email"`
	Joined time.Time `json:"joined" yaml:"joined" doc:"joined"`
}

// Fields returns the document body written to the store.
func (u UserProfile) Fields() map[string]any {
	return map[string]any{
		"id":     u.ID,
		"name":   u.Name,
		"email":  u.Email,
		"joined": u.Joined.UTC(),
	}
}
