package commands

import (
	"errors"
	"testing"
)

func TestParseTaskRef(t *testing.T) {
	tests := []struct {
		args    []string
		want    TaskRef
		wantErr string
	}{
		{args: []string{"5"}, want: TaskRef{Num: 5}},
		{args: []string{"12"}, want: TaskRef{Num: 12}},
		{args: []string{"3f2a-9c"}, want: TaskRef{ID: "3f2a-9c"}},
		{args: []string{" a1 "}, want: TaskRef{ID: "a1"}},
		{args: []string{"0"}, wantErr: "task number out of range: 0"},
		{args: []string{"99999999999999999999"}, wantErr: "task number out of range: 99999999999999999999"},
		{args: []string{"x/y"}, wantErr: "invalid task reference: x/y"},
		{args: []string{"1", "2"}, wantErr: "too many arguments: 2"},
		{args: []string{" "}, wantErr: "task reference required"},
	}
	for _, tt := range tests {
		got, err := ParseTaskRef(tt.args)
		if tt.wantErr != "" {
			if err == nil || err.Error() != tt.wantErr {
				t.Errorf("ParseTaskRef(%q) error = %v, want %q", tt.args, err, tt.wantErr)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseTaskRef(%q) unexpected error: %v", tt.args, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseTaskRef(%q) = %+v, want %+v", tt.args, got, tt.want)
		}
	}
}

func TestParseTaskRef_NoArgs(t *testing.T) {
	if _, err := ParseTaskRef(nil); !errors.Is(err, ErrTaskRefRequired) {
		t.Errorf("expected ErrTaskRefRequired, got %v", err)
	}
}
