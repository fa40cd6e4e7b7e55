// Package stats collects source-database statistics for the generation
// engine, optionally under differential-privacy constraints.
package stats

import (
	"fmt"

	"github.com/elliotchance/orderedmap/v2"
	"gopkg.in/yaml.v3"
)

// Rows is an ordered sequence of result records.
type Rows []map[string]interface{}

// QueryResult holds the output of one src-stats query together with any
// comments copied from its configuration block.
type QueryResult struct {
	Rows     Rows     `yaml:"results"`
	Comments []string `yaml:"comments,omitempty"`
}

// Subscript supports lookup-expression evaluation: "results" yields the
// result records, "comments" the copied comments.
func (qr *QueryResult) Subscript(key string) (interface{}, error) {
	switch key {
	case "results":
		return []map[string]interface{}(qr.Rows), nil
	case "comments":
		comments := make([]interface{}, 0, len(qr.Comments))
		for _, c := range qr.Comments {
			comments = append(comments, c)
		}
		return comments, nil
	default:
		return nil, fmt.Errorf("key %q not found (want \"results\" or \"comments\")", key)
	}
}

// Result maps src-stats query names to their results, preserving the
// declaration order of the queries. It is produced once per session and is
// read-only afterward; generators share it without synchronization.
type Result struct {
	m *orderedmap.OrderedMap[string, *QueryResult]
}

// NewResult creates an empty result mapping.
func NewResult() *Result {
	return &Result{m: orderedmap.NewOrderedMap[string, *QueryResult]()}
}

// Set stores the result for a query name.
func (r *Result) Set(name string, qr *QueryResult) {
	r.m.Set(name, qr)
}

// Get returns the result for a query name.
func (r *Result) Get(name string) (*QueryResult, bool) {
	return r.m.Get(name)
}

// Names returns all query names in declaration order.
func (r *Result) Names() []string {
	return r.m.Keys()
}

// Len returns the number of stored query results.
func (r *Result) Len() int {
	return r.m.Len()
}

// Subscript supports lookup-expression evaluation against SRC_STATS.
func (r *Result) Subscript(key string) (interface{}, error) {
	qr, ok := r.Get(key)
	if !ok {
		return nil, fmt.Errorf("no src-stats result named %q", key)
	}
	return qr, nil
}

// MarshalYAML encodes the mapping in declaration order.
func (r *Result) MarshalYAML() (interface{}, error) {
	root := &yaml.Node{Kind: yaml.MappingNode}
	for el := r.m.Front(); el != nil; el = el.Next() {
		key := &yaml.Node{Kind: yaml.ScalarNode, Value: el.Key}
		var value yaml.Node
		if err := value.Encode(el.Value); err != nil {
			return nil, err
		}
		root.Content = append(root.Content, key, &value)
	}
	return root, nil
}
