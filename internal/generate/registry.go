package generate

import (
	"fmt"

	"github.com/dbsmedya/synthgen/internal/config"
)

// GeneratorFunc produces the column value(s) for one row generator
// invocation. A generator assigned to multiple columns returns an
// []interface{} tuple of matching length.
type GeneratorFunc func(ctx *Context, args []interface{}, kwargs map[string]interface{}) (interface{}, error)

// MissingnessFunc decides, for one row, which of the spec's declared
// columns are forced to null. The returned names must be a subset of
// columns.
type MissingnessFunc func(ctx *Context, kwargs map[string]interface{}, columns []string) ([]string, error)

// StoryRow is one row produced by a story generator, tagged with its
// destination table.
type StoryRow struct {
	Table  string
	Values map[string]interface{}
}

// StoryFunc produces correlated rows across one or more tables per
// invocation, independent of per-table row accounting.
type StoryFunc func(ctx *Context, args []interface{}, kwargs map[string]interface{}) ([]StoryRow, error)

// ObjectConstructor builds a named singleton object from its configured
// kwargs. Objects are constructed once at session start and shared by
// reference for the session's lifetime.
type ObjectConstructor func(kwargs map[string]interface{}) (interface{}, error)

// Registry maps generator names to callables. Builtins live in a fixed
// namespace; user generators are registered under module-qualified names
// ("module.name") matching the row_generators_module /
// story_generators_module declarations. Resolution failure is a
// configuration error, never a silent no-op.
type Registry struct {
	rowGens     map[string]GeneratorFunc
	missingGens map[string]MissingnessFunc
	storyGens   map[string]StoryFunc
	objects     map[string]ObjectConstructor
}

// NewRegistry creates a registry populated with the builtin generators.
func NewRegistry() *Registry {
	r := &Registry{
		rowGens:     make(map[string]GeneratorFunc),
		missingGens: make(map[string]MissingnessFunc),
		storyGens:   make(map[string]StoryFunc),
		objects:     make(map[string]ObjectConstructor),
	}
	registerBuiltins(r)
	return r
}

// RegisterRowGenerator registers a row generator under the given name.
func (r *Registry) RegisterRowGenerator(name string, fn GeneratorFunc) {
	r.rowGens[name] = fn
}

// RegisterMissingnessGenerator registers a missingness generator.
func (r *Registry) RegisterMissingnessGenerator(name string, fn MissingnessFunc) {
	r.missingGens[name] = fn
}

// RegisterStoryGenerator registers a story generator under the given name.
func (r *Registry) RegisterStoryGenerator(name string, fn StoryFunc) {
	r.storyGens[name] = fn
}

// RegisterObjectClass registers a constructor for a qualified class name
// used by object_instantiation.
func (r *Registry) RegisterObjectClass(name string, ctor ObjectConstructor) {
	r.objects[name] = ctor
}

// RegisterRowModule registers a set of row generators under
// module-qualified names.
func (r *Registry) RegisterRowModule(module string, fns map[string]GeneratorFunc) {
	for name, fn := range fns {
		r.rowGens[module+"."+name] = fn
	}
}

// RegisterStoryModule registers a set of story generators under
// module-qualified names.
func (r *Registry) RegisterStoryModule(module string, fns map[string]StoryFunc) {
	for name, fn := range fns {
		r.storyGens[module+"."+name] = fn
	}
}

// ResolveRowGenerator looks up a row generator by name.
func (r *Registry) ResolveRowGenerator(name string) (GeneratorFunc, error) {
	fn, ok := r.rowGens[name]
	if !ok {
		return nil, &ResolutionError{Kind: "row generator", Name: name}
	}
	return fn, nil
}

// ResolveMissingnessGenerator looks up a missingness generator by name.
func (r *Registry) ResolveMissingnessGenerator(name string) (MissingnessFunc, error) {
	fn, ok := r.missingGens[name]
	if !ok {
		return nil, &ResolutionError{Kind: "missingness generator", Name: name}
	}
	return fn, nil
}

// ResolveStoryGenerator looks up a story generator by name.
func (r *Registry) ResolveStoryGenerator(name string) (StoryFunc, error) {
	fn, ok := r.storyGens[name]
	if !ok {
		return nil, &ResolutionError{Kind: "story generator", Name: name}
	}
	return fn, nil
}

// InstantiateObjects builds every configured singleton, keyed by its
// declared name. Construction happens before any generator runs; there is
// no lazy first-use path.
func (r *Registry) InstantiateObjects(specs map[string]config.ObjectSpec) (map[string]interface{}, error) {
	objects := make(map[string]interface{}, len(specs))
	for name, spec := range specs {
		ctor, ok := r.objects[spec.Class]
		if !ok {
			return nil, &ResolutionError{Kind: "object class", Name: spec.Class}
		}
		obj, err := ctor(spec.Kwargs)
		if err != nil {
			return nil, fmt.Errorf("instantiating object %q (class %s): %w", name, spec.Class, err)
		}
		objects[name] = obj
	}
	return objects, nil
}
