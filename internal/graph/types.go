// Package graph provides the foreign-key dependency graph and ordering
// algorithms for synthgen.
package graph

import "sort"

// Node represents a table in the dependency graph.
type Node struct {
	Name       string // Table name
	Vocabulary bool   // Vocabulary table: exported as-is, ordered earliest
	Ignored    bool   // Structurally present but never populated
}

// Edge represents a dependency: From must be populated before To.
type Edge struct {
	From string // Referenced (parent) table name
	To   string // Referencing (child) table name
}

// EdgeMeta contains metadata about a foreign key edge.
type EdgeMeta struct {
	ForeignKey   string // FK column in the referencing table
	ReferenceKey string // Column in the referenced table
}

// Graph represents the complete dependency structure of the destination schema.
type Graph struct {
	Nodes        map[string]*Node    // table name -> node
	Children     map[string][]string // table name -> referencing table names (outgoing edges)
	Parents      map[string][]string // table name -> referenced table names (incoming edges)
	edgeMetadata map[Edge][]*EdgeMeta
}

// NewGraph creates a new empty graph.
func NewGraph() *Graph {
	return &Graph{
		Nodes:        make(map[string]*Node),
		Children:     make(map[string][]string),
		Parents:      make(map[string][]string),
		edgeMetadata: make(map[Edge][]*EdgeMeta),
	}
}

// AddNode adds a table node to the graph.
// If node is nil, a new node with default values is created.
func (g *Graph) AddNode(name string, node *Node) {
	if node == nil {
		node = &Node{Name: name}
	}
	node.Name = name
	g.Nodes[name] = node
}

// AddEdge adds a referenced -> referencing relationship to the graph.
// Duplicate edges between the same pair are collapsed.
func (g *Graph) AddEdge(parent, child string) {
	for _, existing := range g.Children[parent] {
		if existing == child {
			return
		}
	}
	g.Children[parent] = append(g.Children[parent], child)
	g.Parents[child] = append(g.Parents[child], parent)
}

// AddEdgeWithMeta adds an edge carrying the FK column metadata. Multiple
// foreign keys between the same pair of tables accumulate metadata on the
// single edge.
func (g *Graph) AddEdgeWithMeta(parent, child, foreignKey, referenceKey string) {
	g.AddEdge(parent, child)

	edge := Edge{From: parent, To: child}
	g.edgeMetadata[edge] = append(g.edgeMetadata[edge], &EdgeMeta{
		ForeignKey:   foreignKey,
		ReferenceKey: referenceKey,
	})
}

// GetChildren returns all tables that reference the given table.
func (g *Graph) GetChildren(parent string) []string {
	return g.Children[parent]
}

// GetParents returns all tables the given table references.
func (g *Graph) GetParents(child string) []string {
	return g.Parents[child]
}

// GetNode returns the node for a given table name, or nil if not found.
func (g *Graph) GetNode(name string) *Node {
	return g.Nodes[name]
}

// GetEdgeMeta returns FK metadata for an edge, or nil if not found.
func (g *Graph) GetEdgeMeta(parent, child string) []*EdgeMeta {
	return g.edgeMetadata[Edge{From: parent, To: child}]
}

// HasNode returns true if the graph contains a node with the given name.
func (g *Graph) HasNode(name string) bool {
	_, exists := g.Nodes[name]
	return exists
}

// NodeCount returns the number of nodes in the graph.
func (g *Graph) NodeCount() int {
	return len(g.Nodes)
}

// EdgeCount returns the number of edges in the graph.
func (g *Graph) EdgeCount() int {
	count := 0
	for _, children := range g.Children {
		count += len(children)
	}
	return count
}

// AllNodes returns all table names in sorted order.
func (g *Graph) AllNodes() []string {
	nodes := make([]string, 0, len(g.Nodes))
	for name := range g.Nodes {
		nodes = append(nodes, name)
	}
	sort.Strings(nodes)
	return nodes
}

// AllEdges returns a slice of all edges in the graph.
func (g *Graph) AllEdges() []Edge {
	var edges []Edge
	for parent, children := range g.Children {
		for _, child := range children {
			edges = append(edges, Edge{From: parent, To: child})
		}
	}
	return edges
}

// InDegree returns the number of tables the given table references.
func (g *Graph) InDegree(name string) int {
	return len(g.Parents[name])
}

// OutDegree returns the number of tables referencing the given table.
func (g *Graph) OutDegree(name string) int {
	return len(g.Children[name])
}
