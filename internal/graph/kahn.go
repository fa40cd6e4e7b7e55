package graph

import (
	"container/list"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ProcessingQueue wraps a list-based queue for Kahn's algorithm processing.
// It holds nodes that are ready to be processed (have in-degree of 0).
type ProcessingQueue struct {
	queue *list.List
}

// NewProcessingQueue creates a new empty processing queue.
func NewProcessingQueue() *ProcessingQueue {
	return &ProcessingQueue{
		queue: list.New(),
	}
}

// Enqueue adds a node to the back of the queue.
func (pq *ProcessingQueue) Enqueue(node string) {
	pq.queue.PushBack(node)
}

// Dequeue removes and returns the node at the front of the queue.
// Returns empty string and false if queue is empty.
func (pq *ProcessingQueue) Dequeue() (string, bool) {
	if pq.queue.Len() == 0 {
		return "", false
	}
	elem := pq.queue.Front()
	pq.queue.Remove(elem)
	return elem.Value.(string), true
}

// Len returns the number of nodes in the queue.
func (pq *ProcessingQueue) Len() int {
	return pq.queue.Len()
}

// IsEmpty returns true if the queue has no nodes.
func (pq *ProcessingQueue) IsEmpty() bool {
	return pq.queue.Len() == 0
}

// calculateInDegrees computes the number of incoming edges for each node in
// the given subgraph. Edges from nodes outside the set are not counted.
func (g *Graph) calculateInDegrees(nodes map[string]bool) map[string]int {
	inDegree := make(map[string]int)

	for name := range nodes {
		inDegree[name] = 0
	}

	for parent, children := range g.Children {
		if !nodes[parent] {
			continue
		}
		for _, child := range children {
			if nodes[child] {
				inDegree[child]++
			}
		}
	}

	return inDegree
}

// ErrCycleDetected is returned when the dependency graph contains a cycle,
// making topological sorting impossible.
var ErrCycleDetected = errors.New("cycle detected in dependency graph")

// CycleInfo contains information about incomplete processing due to cycles.
type CycleInfo struct {
	TotalNodes        int      // Total number of nodes considered
	ProcessedNodes    int      // Number of nodes successfully ordered
	UnprocessedNodes  []string // Nodes that couldn't be ordered (part of or blocked by cycle)
	CycleParticipants []string // Nodes that are actually part of a cycle (subset of UnprocessedNodes)
	CyclePath         []string // Ordered path showing the cycle (e.g., [A, B, C, A])
}

// CycleError reports a cyclic foreign-key dependency, with the tables that
// form the cycle and the tables blocked behind it.
type CycleError struct {
	Info *CycleInfo
}

func (e *CycleError) Error() string {
	msg := fmt.Sprintf("cycle detected in dependency graph: %d of %d tables could not be ordered",
		len(e.Info.UnprocessedNodes), e.Info.TotalNodes)

	if len(e.Info.CyclePath) > 0 {
		msg += fmt.Sprintf("\nCycle path: %s", strings.Join(e.Info.CyclePath, " -> "))
	}

	if len(e.Info.CycleParticipants) > 0 {
		msg += fmt.Sprintf("\nTables in cycle: %s", strings.Join(e.Info.CycleParticipants, ", "))
	}

	if len(e.Info.UnprocessedNodes) > len(e.Info.CycleParticipants) {
		participantSet := make(map[string]bool)
		for _, p := range e.Info.CycleParticipants {
			participantSet[p] = true
		}

		var blocked []string
		for _, u := range e.Info.UnprocessedNodes {
			if !participantSet[u] {
				blocked = append(blocked, u)
			}
		}

		if len(blocked) > 0 {
			msg += fmt.Sprintf("\nTables blocked by cycle: %s", strings.Join(blocked, ", "))
		}
	}

	return msg
}

func (e *CycleError) Unwrap() error {
	return ErrCycleDetected
}

// generationSet returns the nodes that participate in ordering: every
// non-ignored table. Ignored tables stay in the graph as structural
// placeholders for FK references but produce no rows, so they impose no
// ordering constraints.
func (g *Graph) generationSet() map[string]bool {
	nodes := make(map[string]bool, len(g.Nodes))
	for name, node := range g.Nodes {
		if !node.Ignored {
			nodes[name] = true
		}
	}
	return nodes
}

// detectIncompleteProcessing runs Kahn's algorithm over the subgraph and
// returns information about any nodes that couldn't be ordered. If all nodes
// are processed, returns nil (no cycle).
func (g *Graph) detectIncompleteProcessing(nodes map[string]bool) *CycleInfo {
	inDegree := g.calculateInDegrees(nodes)
	queue := NewProcessingQueue()
	for name, degree := range inDegree {
		if degree == 0 {
			queue.Enqueue(name)
		}
	}

	processed := make(map[string]bool)

	for !queue.IsEmpty() {
		node, _ := queue.Dequeue()
		processed[node] = true

		for _, child := range g.GetChildren(node) {
			if !nodes[child] {
				continue
			}
			inDegree[child]--
			if inDegree[child] == 0 {
				queue.Enqueue(child)
			}
		}
	}

	if len(processed) == len(nodes) {
		return nil // No cycle detected
	}

	var unprocessed []string
	for name := range nodes {
		if !processed[name] {
			unprocessed = append(unprocessed, name)
		}
	}
	sort.Strings(unprocessed)

	unprocessedSet := make(map[string]bool)
	for _, node := range unprocessed {
		unprocessedSet[node] = true
	}

	var cycleParticipants []string
	for _, node := range unprocessed {
		if g.canReachSelf(node, unprocessedSet) {
			cycleParticipants = append(cycleParticipants, node)
		}
	}

	var cyclePath []string
	if len(cycleParticipants) > 0 {
		cyclePath = g.FindCyclePath(cycleParticipants[0], unprocessedSet)
	}

	return &CycleInfo{
		TotalNodes:        len(nodes),
		ProcessedNodes:    len(processed),
		UnprocessedNodes:  unprocessed,
		CycleParticipants: cycleParticipants,
		CyclePath:         cyclePath,
	}
}

// DetectIncompleteProcessing reports ordering problems among non-ignored
// tables, or nil when a total order exists.
func (g *Graph) DetectIncompleteProcessing() *CycleInfo {
	return g.detectIncompleteProcessing(g.generationSet())
}

// HasCycle returns true if the non-ignored dependency subgraph contains a cycle.
func (g *Graph) HasCycle() bool {
	return g.DetectIncompleteProcessing() != nil
}

// FindCyclePath finds the actual path that forms a cycle starting from the given node.
// Returns the ordered list of nodes forming the cycle (including the start node at both ends).
func (g *Graph) FindCyclePath(start string, allowedNodes map[string]bool) []string {
	visited := make(map[string]bool)
	path := []string{start}

	if g.dfsFindPath(start, start, visited, allowedNodes, &path) {
		return path
	}

	return nil
}

// dfsFindPath performs DFS to find a path back to the target node.
// Returns true if a path is found, and populates the path slice via pointer.
func (g *Graph) dfsFindPath(current, target string, visited, allowedNodes map[string]bool, path *[]string) bool {
	for _, child := range g.GetChildren(current) {
		if !allowedNodes[child] {
			continue
		}

		if child == target {
			*path = append(*path, target)
			return true
		}

		if visited[child] {
			continue
		}

		visited[child] = true
		*path = append(*path, child)

		if g.dfsFindPath(child, target, visited, allowedNodes, path) {
			return true
		}

		// Backtrack
		*path = (*path)[:len(*path)-1]
	}

	return false
}

// canReachSelf checks if a node can reach itself through the subgraph
// defined by the allowedNodes set.
func (g *Graph) canReachSelf(start string, allowedNodes map[string]bool) bool {
	visited := make(map[string]bool)
	return g.dfsCanReach(start, start, visited, allowedNodes, true)
}

// dfsCanReach performs DFS to check if we can reach the target node.
// isStart is true only for the initial call to avoid immediate self-match.
func (g *Graph) dfsCanReach(current, target string, visited, allowedNodes map[string]bool, isStart bool) bool {
	if current == target && !isStart {
		return true
	}

	if visited[current] {
		return false
	}
	if !allowedNodes[current] {
		return false
	}

	visited[current] = true

	for _, child := range g.GetChildren(current) {
		if g.dfsCanReach(child, target, visited, allowedNodes, false) {
			return true
		}
	}

	return false
}

// GenerationOrder returns the non-ignored tables in the order they must be
// populated: every table after all tables it references. The order is
// deterministic; among tables whose dependencies are satisfied, vocabulary
// tables come first, then the rest alphabetically.
// Returns a CycleError if the subgraph contains a cycle.
func (g *Graph) GenerationOrder() ([]string, error) {
	nodes := g.generationSet()
	inDegree := g.calculateInDegrees(nodes)

	var ready []string
	for name, degree := range inDegree {
		if degree == 0 {
			ready = append(ready, name)
		}
	}
	g.sortReady(ready)

	var result []string
	for len(ready) > 0 {
		node := ready[0]
		ready = ready[1:]
		result = append(result, node)

		var unlocked []string
		for _, child := range g.GetChildren(node) {
			if !nodes[child] {
				continue
			}
			inDegree[child]--
			if inDegree[child] == 0 {
				unlocked = append(unlocked, child)
			}
		}
		if len(unlocked) > 0 {
			ready = append(ready, unlocked...)
			g.sortReady(ready)
		}
	}

	if len(result) != len(nodes) {
		return nil, &CycleError{Info: g.detectIncompleteProcessing(nodes)}
	}

	return result, nil
}

// sortReady orders a ready set: vocabulary tables first, then by name.
func (g *Graph) sortReady(ready []string) {
	sort.Slice(ready, func(i, j int) bool {
		vi := g.Nodes[ready[i]] != nil && g.Nodes[ready[i]].Vocabulary
		vj := g.Nodes[ready[j]] != nil && g.Nodes[ready[j]].Vocabulary
		if vi != vj {
			return vi
		}
		return ready[i] < ready[j]
	})
}

// Validate checks the graph for structural issues such as cycles.
// This should be called after building the graph to fail fast at startup
// rather than discovering issues during generation.
// Returns a CycleError if the non-ignored subgraph contains cycles, nil otherwise.
func (g *Graph) Validate() error {
	cycleInfo := g.DetectIncompleteProcessing()
	if cycleInfo != nil {
		return &CycleError{Info: cycleInfo}
	}

	return nil
}
