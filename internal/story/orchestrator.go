// Package story runs story generators: cross-table row producers that
// emit correlated rows independent of per-table row accounting.
package story

import (
	"fmt"

	"github.com/dbsmedya/synthgen/internal/config"
	"github.com/dbsmedya/synthgen/internal/generate"
	"github.com/dbsmedya/synthgen/internal/logger"
)

// EmitFunc receives each finished story row in production order.
type EmitFunc func(table string, row map[string]interface{}) error

type compiledStory struct {
	name   string
	fn     generate.StoryFunc
	args   []interface{}
	kwargs map[string]interface{}
	count  int
}

// Orchestrator runs the configured story generators once per pass, after
// the per-table row generators. Stories are invoked in declaration order;
// each invocation resolves its arguments fresh, so stories can react to
// rows produced earlier in the same pass.
type Orchestrator struct {
	stories   []compiledStory
	pipelines map[string]*generate.Pipeline
	log       *logger.Logger
}

// NewOrchestrator resolves every configured story generator. An unknown
// story name or a negative invocation count is a configuration error.
func NewOrchestrator(specs []config.StoryGeneratorSpec, reg *generate.Registry, pipelines map[string]*generate.Pipeline, log *logger.Logger) (*Orchestrator, error) {
	o := &Orchestrator{pipelines: pipelines, log: log}
	for _, spec := range specs {
		fn, err := reg.ResolveStoryGenerator(spec.Name)
		if err != nil {
			return nil, err
		}
		if spec.NumStoriesPerPass < 0 {
			return nil, fmt.Errorf("story generator %q: negative num_stories_per_pass %d", spec.Name, spec.NumStoriesPerPass)
		}
		o.stories = append(o.stories, compiledStory{
			name:   spec.Name,
			fn:     fn,
			args:   spec.Args,
			kwargs: spec.Kwargs,
			count:  spec.NumStoriesPerPass,
		})
	}
	return o, nil
}

// RunPass invokes every story generator its configured number of times and
// emits the rows it produced. A story row for a table with a pipeline is
// built on a pipeline-generated base row, with the story's values taking
// precedence and the final values claimed in the table's uniqueness
// scopes; tables without a pipeline receive the story's values as-is.
func (o *Orchestrator) RunPass(ctx *generate.Context, emit EmitFunc) error {
	for _, story := range o.stories {
		log := o.log.WithGenerator(story.name)
		for i := 0; i < story.count; i++ {
			args, err := generate.ResolveArgs(ctx, story.args)
			if err != nil {
				return fmt.Errorf("story generator %q: %w", story.name, err)
			}
			kwargs, err := generate.ResolveKwargs(ctx, story.kwargs)
			if err != nil {
				return fmt.Errorf("story generator %q: %w", story.name, err)
			}
			rows, err := story.fn(ctx, args, kwargs)
			if err != nil {
				return fmt.Errorf("story generator %q: %w", story.name, err)
			}
			for _, sr := range rows {
				row, err := o.materialize(ctx, sr)
				if err != nil {
					return fmt.Errorf("story generator %q: %w", story.name, err)
				}
				if err := emit(sr.Table, row); err != nil {
					return fmt.Errorf("story generator %q: emitting row for %s: %w", story.name, sr.Table, err)
				}
			}
			log.Debugw("story completed", "invocation", i+1, "rows", len(rows))
		}
	}
	return nil
}

func (o *Orchestrator) materialize(ctx *generate.Context, sr generate.StoryRow) (map[string]interface{}, error) {
	pipeline, ok := o.pipelines[sr.Table]
	if !ok {
		out := make(map[string]interface{}, len(sr.Values))
		for k, v := range sr.Values {
			out[k] = v
		}
		return out, nil
	}
	return pipeline.GenerateStoryRow(ctx, sr.Values)
}
