package feed

import (
	"todolist/internal/cache"
	"todolist/internal/service"
)

// Message types sent by the server.
const (
	TypeSnapshot = "snapshot"
	TypeReply    = "reply"
)

// Ops accepted in an Intent.
const (
	OpLoad        = "load"
	OpRefresh     = "refresh"
	OpAdd         = "add"
	OpUpdate      = "update"
	OpDone        = "done"
	OpDelete      = "delete"
	OpFilter      = "filter"
	OpClearFilter = "clearFilter"
	OpProfile     = "profile"
)

// Snapshot is pushed after every cache change. Owner is empty while signed out.
type Snapshot struct {
	Type       string               `json:"type"`
	Version    uint64               `json:"version"`
	Owner      string               `json:"owner"`
	State      string               `json:"state"`
	Tasks      []service.Task       `json:"tasks"`
	Collection []service.Task       `json:"collection"`
	Filter     *cache.Filter        `json:"filter,omitempty"`
	Profile    *service.UserProfile `json:"profile,omitempty"`
	Error      string               `json:"error,omitempty"`
}

func newSnapshot(s cache.Snapshot) Snapshot {
	msg := Snapshot{
		Type:       TypeSnapshot,
		Version:    s.Version,
		Owner:      s.Owner,
		State:      s.State.String(),
		Tasks:      s.Tasks,
		Collection: s.Collection,
		Filter:     s.Filter,
		Profile:    s.Profile,
	}
	if msg.Tasks == nil {
		msg.Tasks = []service.Task{}
	}
	if msg.Collection == nil {
		msg.Collection = []service.Task{}
	}
	if s.Err != nil {
		msg.Error = s.Err.Error()
	}
	return msg
}

// Intent is a client request.
type Intent struct {
	ID     string        `json:"id"`
	Op     string        `json:"op"`
	Task   *service.Task `json:"task,omitempty"`
	TaskID string        `json:"taskId,omitempty"`
	Done   bool          `json:"done,omitempty"`
	Field  string        `json:"field,omitempty"`
	Value  any           `json:"value,omitempty"`
}

// Reply answers exactly one Intent.
type Reply struct {
	Type    string               `json:"type"`
	ReplyTo string               `json:"replyTo"`
	OK      bool                 `json:"ok"`
	Error   string               `json:"error,omitempty"`
	Tasks   []service.Task       `json:"tasks,omitempty"`
	Task    *service.Task        `json:"task,omitempty"`
	Profile *service.UserProfile `json:"profile,omitempty"`
}
