package stats

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResult_PreservesDeclarationOrder(t *testing.T) {
	r := NewResult()
	r.Set("zeta", &QueryResult{Rows: Rows{{"v": 1}}})
	r.Set("alpha", &QueryResult{Rows: Rows{{"v": 2}}})
	r.Set("mid", &QueryResult{Rows: Rows{{"v": 3}}})

	assert.Equal(t, []string{"zeta", "alpha", "mid"}, r.Names())
	assert.Equal(t, 3, r.Len())
}

func TestResult_Subscript(t *testing.T) {
	r := NewResult()
	r.Set("ward_counts", &QueryResult{
		Rows:     Rows{{"ward": "A", "num": 3}},
		Comments: []string{"per ward"},
	})

	qr, err := r.Subscript("ward_counts")
	require.NoError(t, err)

	results, err := qr.(*QueryResult).Subscript("results")
	require.NoError(t, err)
	records, ok := results.([]map[string]interface{})
	require.True(t, ok)
	require.Len(t, records, 1)
	assert.Equal(t, "A", records[0]["ward"])

	comments, err := qr.(*QueryResult).Subscript("comments")
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"per ward"}, comments)

	_, err = qr.(*QueryResult).Subscript("rows")
	assert.Error(t, err)

	_, err = r.Subscript("nope")
	assert.Error(t, err)
}

func TestResult_ExportOrderAndShape(t *testing.T) {
	r := NewResult()
	r.Set("zeta", &QueryResult{Rows: Rows{{"num": 1}}})
	r.Set("alpha", &QueryResult{Rows: Rows{{"num": 2}}, Comments: []string{"note"}})

	var buf bytes.Buffer
	require.NoError(t, r.Export(&buf))
	out := buf.String()

	// Declaration order survives serialization.
	assert.Less(t, strings.Index(out, "zeta:"), strings.Index(out, "alpha:"))
	assert.Contains(t, out, "results:")
	assert.Contains(t, out, "comments:")
	assert.Contains(t, out, "note")
}
