// Package session drives a full generation run: stats collection, table
// ordering, per-pass row and story generation, and persistence.
package session

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/dbsmedya/synthgen/internal/config"
	"github.com/dbsmedya/synthgen/internal/database"
	"github.com/dbsmedya/synthgen/internal/generate"
	"github.com/dbsmedya/synthgen/internal/graph"
	"github.com/dbsmedya/synthgen/internal/logger"
	"github.com/dbsmedya/synthgen/internal/schema"
	"github.com/dbsmedya/synthgen/internal/sink"
	"github.com/dbsmedya/synthgen/internal/sqlutil"
	"github.com/dbsmedya/synthgen/internal/stats"
	"github.com/dbsmedya/synthgen/internal/story"
)

// State tracks the session lifecycle. Transitions only move forward;
// a failed session is not reusable.
type State int

const (
	StateCreated State = iota
	StateStatsLoaded
	StateGenerating
	StateComplete
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateStatsLoaded:
		return "stats-loaded"
	case StateGenerating:
		return "generating"
	case StateComplete:
		return "complete"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Options configures optional session collaborators.
type Options struct {
	// PrivateReader executes dp-query stages. Required when any src-stats
	// block declares one.
	PrivateReader stats.PrivateReader
	// Sink receives generated rows. Nil means buffer-only (dry run).
	Sink sink.Sink
	// VocabDir is the directory holding per-table vocabulary YAML files.
	// Defaults to the current directory.
	VocabDir string
	// Databases provides the source and destination connections. Nil means
	// no database access: stats must come from SetStats and generators
	// sample from the in-session buffer.
	Databases *database.Manager
}

// Result summarizes a completed generation run.
type Result struct {
	Passes     int
	RowCounts  map[string]int64
	StoryRows  int64
	Vocabulary map[string]int64
	StartTime  time.Time
	EndTime    time.Time
	Duration   time.Duration
}

// Session is the generation engine's run state machine. Construction
// compiles everything that can fail early: the dependency graph, the
// generation order, one pipeline per generated table and the story
// orchestrator. Generation itself then only fails on runtime conditions.
type Session struct {
	cfg       *config.Config
	sch       *schema.Schema
	reg       *generate.Registry
	log       *logger.Logger
	opts      Options
	rng       *rand.Rand
	graph     *graph.Graph
	order     []string
	pipelines map[string]*generate.Pipeline
	stories   *story.Orchestrator
	buffer    *sink.Buffer
	accum     *generate.Accumulators
	stats     *stats.Result
	objects   map[string]interface{}
	state     State
}

// New builds a session from validated configuration and schema.
func New(cfg *config.Config, sch *schema.Schema, reg *generate.Registry, log *logger.Logger, opts Options) (*Session, error) {
	if log == nil {
		log = logger.NewDefault()
	}

	g, err := graph.Build(sch, cfg)
	if err != nil {
		return nil, err
	}
	order, err := g.GenerationOrder()
	if err != nil {
		return nil, err
	}

	s := &Session{
		cfg:       cfg,
		sch:       sch,
		reg:       reg,
		log:       log,
		opts:      opts,
		graph:     g,
		order:     order,
		pipelines: make(map[string]*generate.Pipeline),
		buffer:    sink.NewBuffer(),
		accum:     generate.NewAccumulators(),
		state:     StateCreated,
	}

	if cfg.Seed != nil {
		s.rng = rand.New(rand.NewSource(*cfg.Seed))
	} else {
		s.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	for _, name := range order {
		node := g.GetNode(name)
		if node.Vocabulary {
			continue
		}
		table, ok := sch.Table(name)
		if !ok {
			return nil, fmt.Errorf("generation order names unknown table %q", name)
		}
		pipeline, err := generate.NewPipeline(table, cfg.GetTable(name), reg, cfg.MaxUniqueConstraintTries, log)
		if err != nil {
			return nil, err
		}
		s.pipelines[name] = pipeline
	}

	s.stories, err = story.NewOrchestrator(cfg.StoryGenerators, reg, s.pipelines, log)
	if err != nil {
		return nil, err
	}

	return s, nil
}

// State returns the session's current lifecycle state.
func (s *Session) State() State {
	return s.state
}

// Order returns the table generation order.
func (s *Session) Order() []string {
	return s.order
}

// Buffer returns the in-memory row buffer. After a dry run it holds every
// generated row.
func (s *Session) Buffer() *sink.Buffer {
	return s.buffer
}

// Stats returns the collected source statistics, nil before LoadStats.
func (s *Session) Stats() *stats.Result {
	return s.stats
}

// LoadStats runs the configured src-stats queries against the source
// database and instantiates the configured singleton objects.
func (s *Session) LoadStats(ctx context.Context) error {
	if s.state != StateCreated {
		return fmt.Errorf("cannot load stats in state %s", s.state)
	}

	result := stats.NewResult()
	if len(s.cfg.SrcStats) > 0 {
		if s.opts.Databases == nil || s.opts.Databases.Source == nil {
			s.state = StateFailed
			return fmt.Errorf("src-stats configured but no source database connected")
		}
		collector, err := stats.NewCollector(s.opts.Databases.Source, s.opts.PrivateReader, s.log, s.cfg.UseAsyncio)
		if err != nil {
			s.state = StateFailed
			return err
		}
		collector.SetRand(s.rng)
		result, err = collector.Collect(ctx, s.cfg.SrcStats)
		if err != nil {
			s.state = StateFailed
			return err
		}
	}

	return s.finishStatsLoad(result)
}

// SetStats installs pre-collected statistics instead of querying the
// source, then instantiates singleton objects. Used when stats were
// exported by an earlier run.
func (s *Session) SetStats(result *stats.Result) error {
	if s.state != StateCreated {
		return fmt.Errorf("cannot set stats in state %s", s.state)
	}
	if result == nil {
		result = stats.NewResult()
	}
	return s.finishStatsLoad(result)
}

func (s *Session) finishStatsLoad(result *stats.Result) error {
	objects, err := s.reg.InstantiateObjects(s.cfg.ObjectInstantiation)
	if err != nil {
		s.state = StateFailed
		return err
	}
	s.stats = result
	s.objects = objects
	s.state = StateStatsLoaded
	s.log.Infow("statistics loaded", "queries", result.Len(), "objects", len(objects))
	return nil
}

// Generate runs the configured number of passes and returns the run
// summary. Vocabulary tables are loaded from their YAML files during the
// first pass, before any rows are generated.
func (s *Session) Generate(ctx context.Context) (*Result, error) {
	if s.state != StateStatsLoaded {
		return nil, fmt.Errorf("cannot generate in state %s", s.state)
	}
	s.state = StateGenerating

	result := &Result{
		Passes:     s.cfg.NumPasses,
		RowCounts:  make(map[string]int64),
		Vocabulary: make(map[string]int64),
		StartTime:  time.Now(),
	}

	for pass := 1; pass <= s.cfg.NumPasses; pass++ {
		if err := s.runPass(ctx, pass, result); err != nil {
			s.state = StateFailed
			return nil, fmt.Errorf("pass %d: %w", pass, err)
		}
	}

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)
	s.state = StateComplete
	s.log.Infow("generation complete",
		"passes", result.Passes,
		"tables", len(result.RowCounts),
		"story_rows", result.StoryRows,
		"duration", result.Duration)
	return result, nil
}

func (s *Session) runPass(ctx context.Context, pass int, result *Result) error {
	log := s.log.WithPass(pass)
	gctx := s.generateContext(ctx)

	for _, name := range s.order {
		if err := ctx.Err(); err != nil {
			return err
		}
		node := s.graph.GetNode(name)
		if node.Vocabulary {
			if pass == 1 {
				n, err := s.loadVocabulary(ctx, name)
				if err != nil {
					return err
				}
				result.Vocabulary[name] = n
			}
			continue
		}

		rows := s.cfg.GetTable(name).RowsPerPass()
		pipeline := s.pipelines[name]
		for i := 0; i < rows; i++ {
			row, err := pipeline.GenerateRow(gctx)
			if err != nil {
				return err
			}
			if err := s.writeRow(ctx, name, row); err != nil {
				return err
			}
			result.RowCounts[name]++
		}
		log.WithTable(name).Debugw("table pass complete", "rows", rows)
	}

	if err := s.stories.RunPass(gctx, func(table string, row map[string]interface{}) error {
		if err := s.writeRow(ctx, table, row); err != nil {
			return err
		}
		result.RowCounts[table]++
		result.StoryRows++
		return nil
	}); err != nil {
		return err
	}

	if s.opts.Sink != nil {
		if err := s.opts.Sink.Flush(ctx); err != nil {
			return fmt.Errorf("flushing sink: %w", err)
		}
	}
	return nil
}

// generateContext builds the shared context handed to generator
// invocations. The buffer doubles as the sampled-row view so generators
// work without a destination connection.
func (s *Session) generateContext(ctx context.Context) *generate.Context {
	gctx := &generate.Context{
		Ctx:          ctx,
		Rand:         s.rng,
		Stats:        s.stats,
		Objects:      s.objects,
		Accumulators: s.accum,
		Generated:    s.buffer,
		Dialect:      sqlutil.DialectMySQL,
	}
	if s.opts.Databases != nil && s.opts.Databases.Destination != nil {
		gctx.Dest = s.opts.Databases.Destination
		gctx.Dialect = s.opts.Databases.DestinationDialect()
	}
	return gctx
}

func (s *Session) writeRow(ctx context.Context, table string, row map[string]interface{}) error {
	if err := s.buffer.WriteRow(ctx, table, row); err != nil {
		return err
	}
	if s.opts.Sink != nil {
		if err := s.opts.Sink.WriteRow(ctx, table, row); err != nil {
			return err
		}
	}
	return nil
}
