package stats

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Export writes the collected statistics to a writer as a YAML document,
// preserving query declaration order.
func (r *Result) Export(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("failed to encode src-stats: %w", err)
	}
	return enc.Close()
}

// ExportFile writes the collected statistics to a YAML file.
func (r *Result) ExportFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create src-stats file: %w", err)
	}
	defer f.Close()
	return r.Export(f)
}
