package service

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
)

// DecodeError reports a stored document that does not match the expected shape.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

var timeType = reflect.TypeOf(time.Time{})

// timestampHook accepts native timestamps, RFC 3339 strings and Unix seconds.
func timestampHook(from, to reflect.Type, data any) (any, error) {
	if to != timeType {
		return data, nil
	}
	switch v := data.(type) {
	case time.Time:
		return v.UTC(), nil
	case string:
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return nil, err
		}
		return t.UTC(), nil
	case float64:
		sec, frac := math.Modf(v)
		return time.Unix(int64(sec), int64(frac*1e9)).UTC(), nil
	case int64:
		return time.Unix(v, 0).UTC(), nil
	case int:
		return time.Unix(int64(v), 0).UTC(), nil
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return nil, err
		}
		return timestampHook(from, to, f)
	default:
		return nil, fmt.Errorf("cannot use %T as timestamp", data)
	}
}

func decode(doc Document, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:     out,
		TagName:    "doc",
		ErrorUnset: true,
		DecodeHook: mapstructure.DecodeHookFuncType(timestampHook),
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(doc.Fields); err != nil {
		return &DecodeError{Path: doc.Path, Err: err}
	}
	return nil
}

// DecodeTask converts a stored document into a Task.
func DecodeTask(doc Document) (Task, error) {
	var t Task
	if err := decode(doc, &t); err != nil {
		return Task{}, err
	}
	if !t.Priority.Valid() {
		return Task{}, &DecodeError{Path: doc.Path, Err: fmt.Errorf("unknown priority %q", t.Priority)}
	}
	if t.ID == "" {
		t.ID = doc.ID
	}
	return t, nil
}

// DecodeProfile converts a stored document into a UserProfile.
func DecodeProfile(doc Document) (UserProfile, error) {
	var u UserProfile
	if err := decode(doc, &u); err != nil {
		return UserProfile{}, err
	}
	if u.ID == "" {
		u.ID = doc.ID
	}
	return u, nil
}

type fieldKind int

const (
	kindString fieldKind = iota
	kindTime
	kindBool
	kindPriority
)

var taskFieldKinds = map[string]fieldKind{
	"id":          kindString,
	"title":       kindString,
	"dueDate":     kindTime,
	"createdDate": kindTime,
	"isDone":      kindBool,
	"priority":    kindPriority,
}

// TaskFields returns the filterable task field names, sorted.
func TaskFields() []string {
	return []string{"createdDate", "dueDate", "id", "isDone", "priority", "title"}
}

// IsTaskField reports whether field is a task document field.
func IsTaskField(field string) bool {
	_, ok := taskFieldKinds[field]
	return ok
}

// ParseFieldValue converts a textual filter value into the typed value stored for field.
func ParseFieldValue(field, raw string) (any, error) {
	kind, ok := taskFieldKinds[field]
	if !ok {
		return nil, fmt.Errorf("unknown field: %s (want one of %s)", field, strings.Join(TaskFields(), ", "))
	}
	switch kind {
	case kindBool:
		b, err := strconv.ParseBool(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("invalid value for %s: %q", field, raw)
		}
		return b, nil
	case kindPriority:
		p, err := ParsePriority(raw)
		if err != nil {
			return nil, err
		}
		return string(p), nil
	case kindTime:
		t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("invalid value for %s: %q (want RFC 3339)", field, raw)
		}
		return t.UTC(), nil
	default:
		return raw, nil
	}
}

// FieldEquals reports whether fields[field] equals value after normalizing
// numeric, priority and timestamp representations.
func FieldEquals(fields map[string]any, field string, value any) bool {
	got, ok := fields[field]
	if !ok {
		return false
	}
	return reflect.DeepEqual(normalize(got), normalize(value))
}

func normalize(v any) any {
	switch x := v.(type) {
	case Priority:
		return string(x)
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano)
	case int:
		return float64(x)
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	case float32:
		return float64(x)
	default:
		return v
	}
}
