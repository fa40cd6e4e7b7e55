package session

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbsmedya/synthgen/internal/config"
	"github.com/dbsmedya/synthgen/internal/generate"
	"github.com/dbsmedya/synthgen/internal/logger"
	"github.com/dbsmedya/synthgen/internal/schema"
	"github.com/dbsmedya/synthgen/internal/stats"
)

const clinicSchema = `
tables:
  concept:
    columns:
      concept_id:
        type: varchar
        primary_key: true
      name:
        type: varchar
  patients:
    columns:
      patient_id:
        type: bigint
        primary_key: true
      name:
        type: varchar
  visits:
    columns:
      visit_id:
        type: bigint
        primary_key: true
      patient_name:
        type: varchar
      kind:
        type: varchar
        nullable: true
`

func intPtr(i int) *int {
	return &i
}

func clinicConfig(seed int64) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Seed = &seed
	cfg.Tables = map[string]config.TableConfig{
		"concept": {VocabularyTable: true},
		"patients": {
			NumRowsPerPass: intPtr(3),
			RowGenerators: []config.RowGeneratorSpec{
				{Name: "string", Kwargs: map[string]interface{}{"length": 6}, ColumnsAssigned: "name"},
			},
		},
		"visits": {
			NumRowsPerPass: intPtr(2),
			RowGenerators: []config.RowGeneratorSpec{
				{Name: "constant", Kwargs: map[string]interface{}{"value": "walk-in"}, ColumnsAssigned: "patient_name"},
			},
		},
	}
	return cfg
}

func clinicSchemaDoc(t *testing.T) *schema.Schema {
	t.Helper()
	s, err := schema.Decode(strings.NewReader(clinicSchema))
	require.NoError(t, err)
	return s
}

func writeVocab(t *testing.T, dir string) {
	t.Helper()
	content := `
- concept_id: C1
  name: Admission
- concept_id: C2
  name: Discharge
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "concept.yaml"), []byte(content), 0644))
}

func newClinicSession(t *testing.T, cfg *config.Config, opts Options) *Session {
	t.Helper()
	s, err := New(cfg, clinicSchemaDoc(t), generate.NewRegistry(), logger.NewNop(), opts)
	require.NoError(t, err)
	return s
}

func TestSession_DryRunGeneratesAllTables(t *testing.T) {
	dir := t.TempDir()
	writeVocab(t, dir)

	cfg := clinicConfig(7)
	cfg.NumPasses = 2

	s := newClinicSession(t, cfg, Options{VocabDir: dir})
	assert.Equal(t, StateCreated, s.State())

	require.NoError(t, s.SetStats(nil))
	assert.Equal(t, StateStatsLoaded, s.State())

	result, err := s.Generate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateComplete, s.State())

	assert.Equal(t, 2, result.Passes)
	assert.Equal(t, int64(6), result.RowCounts["patients"])
	assert.Equal(t, int64(4), result.RowCounts["visits"])
	// Vocabulary loads once, on the first pass only.
	assert.Equal(t, int64(2), result.Vocabulary["concept"])
	assert.Len(t, s.Buffer().Rows("concept"), 2)
	assert.Len(t, s.Buffer().Rows("patients"), 6)
}

func TestSession_OrderPutsVocabularyFirst(t *testing.T) {
	s := newClinicSession(t, clinicConfig(1), Options{})
	require.Equal(t, []string{"concept", "patients", "visits"}, s.Order())
}

func TestSession_DeterministicUnderSeed(t *testing.T) {
	dir := t.TempDir()
	writeVocab(t, dir)

	run := func() []map[string]interface{} {
		s := newClinicSession(t, clinicConfig(99), Options{VocabDir: dir})
		require.NoError(t, s.SetStats(nil))
		_, err := s.Generate(context.Background())
		require.NoError(t, err)
		return s.Buffer().Rows("patients")
	}

	assert.Equal(t, run(), run())
}

func TestSession_StateTransitionsEnforced(t *testing.T) {
	s := newClinicSession(t, clinicConfig(1), Options{})

	// Cannot generate before stats are loaded.
	_, err := s.Generate(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "created")

	require.NoError(t, s.SetStats(nil))
	require.Error(t, s.SetStats(nil))
}

func TestSession_MissingVocabularyFileFails(t *testing.T) {
	s := newClinicSession(t, clinicConfig(1), Options{VocabDir: t.TempDir()})
	require.NoError(t, s.SetStats(nil))

	_, err := s.Generate(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "concept")
	assert.Equal(t, StateFailed, s.State())
}

func TestSession_SrcStatsRequireSource(t *testing.T) {
	cfg := clinicConfig(1)
	cfg.SrcStats = []config.SrcStatQuery{{Name: "q", Query: "SELECT 1"}}

	s := newClinicSession(t, cfg, Options{})
	err := s.LoadStats(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no source database")
	assert.Equal(t, StateFailed, s.State())
}

func TestSession_StoriesRunAfterTables(t *testing.T) {
	dir := t.TempDir()
	writeVocab(t, dir)

	reg := generate.NewRegistry()
	var patientsSeenByStory int
	reg.RegisterStoryModule("stories", map[string]generate.StoryFunc{
		"referral": func(ctx *generate.Context, args []interface{}, kwargs map[string]interface{}) ([]generate.StoryRow, error) {
			patientsSeenByStory = len(ctx.Generated.Rows("patients"))
			return []generate.StoryRow{
				{Table: "visits", Values: map[string]interface{}{"kind": "referral"}},
			}, nil
		},
	})

	cfg := clinicConfig(1)
	cfg.StoryGenerators = []config.StoryGeneratorSpec{
		{Name: "stories.referral", NumStoriesPerPass: 2},
	}

	s, err := New(cfg, clinicSchemaDoc(t), reg, logger.NewNop(), Options{VocabDir: dir})
	require.NoError(t, err)
	require.NoError(t, s.SetStats(nil))

	result, err := s.Generate(context.Background())
	require.NoError(t, err)

	// Stories ran after the per-table loop and saw its rows.
	assert.Equal(t, 3, patientsSeenByStory)
	assert.Equal(t, int64(2), result.StoryRows)
	// Story rows count toward the table's totals.
	assert.Equal(t, int64(4), result.RowCounts["visits"])

	var referrals int
	for _, row := range s.Buffer().Rows("visits") {
		if row["kind"] == "referral" {
			referrals++
		}
	}
	assert.Equal(t, 2, referrals)
}

func TestSession_StoryOnlyTableGeneratesNoPipelineRows(t *testing.T) {
	dir := t.TempDir()
	writeVocab(t, dir)

	reg := generate.NewRegistry()
	reg.RegisterStoryModule("stories", map[string]generate.StoryFunc{
		"walkin": func(ctx *generate.Context, args []interface{}, kwargs map[string]interface{}) ([]generate.StoryRow, error) {
			return []generate.StoryRow{
				{Table: "visits", Values: map[string]interface{}{"kind": "emergency"}},
			}, nil
		},
	})

	cfg := clinicConfig(1)
	visits := cfg.Tables["visits"]
	visits.NumRowsPerPass = intPtr(0)
	cfg.Tables["visits"] = visits
	cfg.StoryGenerators = []config.StoryGeneratorSpec{
		{Name: "stories.walkin", NumStoriesPerPass: 2},
	}

	s, err := New(cfg, clinicSchemaDoc(t), reg, logger.NewNop(), Options{VocabDir: dir})
	require.NoError(t, err)
	require.NoError(t, s.SetStats(nil))

	result, err := s.Generate(context.Background())
	require.NoError(t, err)

	// Every visits row came from the story; zero rows per pass is honored.
	assert.Equal(t, int64(2), result.RowCounts["visits"])
	assert.Equal(t, int64(2), result.StoryRows)
	assert.Len(t, s.Buffer().Rows("visits"), 2)
}

func TestSession_ObjectsInstantiatedWithStats(t *testing.T) {
	reg := generate.NewRegistry()
	reg.RegisterObjectClass("samplers.Fixed", func(kwargs map[string]interface{}) (interface{}, error) {
		return kwargs["value"], nil
	})

	cfg := clinicConfig(1)
	cfg.ObjectInstantiation = map[string]config.ObjectSpec{
		"fixed": {Class: "samplers.Fixed", Kwargs: map[string]interface{}{"value": 5}},
	}

	s, err := New(cfg, clinicSchemaDoc(t), reg, logger.NewNop(), Options{})
	require.NoError(t, err)

	result := stats.NewResult()
	require.NoError(t, s.SetStats(result))
	assert.Equal(t, 5, s.objects["fixed"])
}

func TestSession_PipelineCompileFailureSurfacesAtNew(t *testing.T) {
	cfg := clinicConfig(1)
	visits := cfg.Tables["visits"]
	visits.RowGenerators = nil // leaves required column patient_name uncovered
	cfg.Tables["visits"] = visits

	_, err := New(cfg, clinicSchemaDoc(t), generate.NewRegistry(), logger.NewNop(), Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "patient_name")
}

func TestSession_CancelledContextStops(t *testing.T) {
	dir := t.TempDir()
	writeVocab(t, dir)

	s := newClinicSession(t, clinicConfig(1), Options{VocabDir: dir})
	require.NoError(t, s.SetStats(nil))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Generate(ctx)
	require.Error(t, err)
	assert.Equal(t, StateFailed, s.State())
}
