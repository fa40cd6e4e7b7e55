package generate

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbsmedya/synthgen/internal/config"
)

func TestRegistry_BuiltinsResolve(t *testing.T) {
	reg := NewRegistry()

	for _, name := range []string{
		"constant", "null", "integer", "float", "boolean", "weighted_boolean",
		"string", "uuid", "date", "datetime", "timedelta", "increment",
		"choice", "column_value", "dist_sample",
	} {
		fn, err := reg.ResolveRowGenerator(name)
		require.NoError(t, err, name)
		assert.NotNil(t, fn)
	}

	for _, name := range []string{"missing_always", "missing_with_probability"} {
		fn, err := reg.ResolveMissingnessGenerator(name)
		require.NoError(t, err, name)
		assert.NotNil(t, fn)
	}
}

func TestRegistry_UnknownNames(t *testing.T) {
	reg := NewRegistry()

	_, err := reg.ResolveRowGenerator("frobnicate")
	var res *ResolutionError
	require.ErrorAs(t, err, &res)
	assert.Equal(t, "row generator", res.Kind)
	assert.Equal(t, "frobnicate", res.Name)

	_, err = reg.ResolveStoryGenerator("stories.admission")
	assert.ErrorAs(t, err, &res)

	_, err = reg.ResolveMissingnessGenerator("sometimes")
	assert.ErrorAs(t, err, &res)
}

func TestRegistry_ModuleQualifiedNames(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterRowModule("row_generators", map[string]GeneratorFunc{
		"patient_name": func(ctx *Context, args []interface{}, kwargs map[string]interface{}) (interface{}, error) {
			return "Alice", nil
		},
	})
	reg.RegisterStoryModule("stories", map[string]StoryFunc{
		"admission": func(ctx *Context, args []interface{}, kwargs map[string]interface{}) ([]StoryRow, error) {
			return nil, nil
		},
	})

	_, err := reg.ResolveRowGenerator("row_generators.patient_name")
	assert.NoError(t, err)
	_, err = reg.ResolveStoryGenerator("stories.admission")
	assert.NoError(t, err)

	// The bare name is not registered.
	_, err = reg.ResolveRowGenerator("patient_name")
	assert.Error(t, err)
}

func TestRegistry_InstantiateObjects(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterObjectClass("samplers.WeightedSampler", func(kwargs map[string]interface{}) (interface{}, error) {
		if kwargs["weights"] == nil {
			return nil, fmt.Errorf("weights required")
		}
		return map[string]interface{}{"weights": kwargs["weights"]}, nil
	})

	t.Run("Success", func(t *testing.T) {
		objects, err := reg.InstantiateObjects(map[string]config.ObjectSpec{
			"sampler": {
				Class:  "samplers.WeightedSampler",
				Kwargs: map[string]interface{}{"weights": []interface{}{1, 2}},
			},
		})
		require.NoError(t, err)
		require.Contains(t, objects, "sampler")
	})

	t.Run("Unknown class", func(t *testing.T) {
		_, err := reg.InstantiateObjects(map[string]config.ObjectSpec{
			"sampler": {Class: "samplers.Unknown"},
		})
		var res *ResolutionError
		require.ErrorAs(t, err, &res)
		assert.Equal(t, "object class", res.Kind)
	})

	t.Run("Constructor failure", func(t *testing.T) {
		_, err := reg.InstantiateObjects(map[string]config.ObjectSpec{
			"sampler": {Class: "samplers.WeightedSampler"},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "weights required")
	})
}
