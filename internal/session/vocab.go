package session

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// loadVocabulary reads the per-table vocabulary file <table>.yaml from the
// configured directory and writes its rows unchanged. Vocabulary data is
// exported as-is, never synthesized.
func (s *Session) loadVocabulary(ctx context.Context, table string) (int64, error) {
	dir := s.opts.VocabDir
	if dir == "" {
		dir = "."
	}
	path := filepath.Join(dir, table+".yaml")

	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("vocabulary table %s: %w", table, err)
	}
	defer f.Close()

	var rows []map[string]interface{}
	if err := yaml.NewDecoder(f).Decode(&rows); err != nil {
		return 0, fmt.Errorf("vocabulary table %s: decoding %s: %w", table, path, err)
	}

	for _, row := range rows {
		if err := s.writeRow(ctx, table, row); err != nil {
			return 0, fmt.Errorf("vocabulary table %s: %w", table, err)
		}
	}
	s.log.WithTable(table).Infow("vocabulary loaded", "rows", len(rows), "file", path)
	return int64(len(rows)), nil
}
