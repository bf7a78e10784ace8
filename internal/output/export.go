package output

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"todolist/internal/service"
)

// Export formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Export is the document written by the export command.
type Export struct {
	Profile *service.UserProfile `json:"profile,omitempty" yaml:"profile,omitempty"`
	Tasks   []service.Task       `json:"tasks" yaml:"tasks"`
}

// WriteExport encodes e as JSON or YAML.
func WriteExport(w io.Writer, format string, e Export) error {
	if e.Tasks == nil {
		e.Tasks = []service.Task{}
	}
	switch format {
	case FormatJSON, "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(e)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(e); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown format: %q (want json or yaml)", format)
	}
}
