package stats

import (
	"fmt"
	"math/rand"

	"github.com/dbsmedya/synthgen/internal/config"
)

// preprocessPrivateIDs bounds the contribution of each private identifier to
// the intermediate result set before noise injection. With sample-max-ids
// set, at most max-ids rows are kept per identifier, chosen at random when a
// random source is available; with clamp-counts (or no random source), the
// first max-ids rows per identifier are kept. Relative row order is
// preserved either way. Rows are returned unchanged when no bounding policy
// applies.
func preprocessPrivateIDs(rows Rows, q *config.SrcStatQuery, rng *rand.Rand) Rows {
	if q.MaxIDs <= 0 || (!q.SampleMaxIDs && !q.ClampCounts) {
		return rows
	}
	idColumn := q.PrivateIDColumn()
	if idColumn == "" {
		return rows
	}

	// Group row indices by identifier value, preserving first-seen order.
	groups := make(map[string][]int)
	var order []string
	for i, row := range rows {
		key := fmt.Sprintf("%v", row[idColumn])
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], i)
	}

	keep := make(map[int]bool, len(rows))
	for _, key := range order {
		indices := groups[key]
		if len(indices) <= q.MaxIDs {
			for _, i := range indices {
				keep[i] = true
			}
			continue
		}

		if q.SampleMaxIDs && rng != nil {
			shuffled := make([]int, len(indices))
			copy(shuffled, indices)
			rng.Shuffle(len(shuffled), func(a, b int) {
				shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
			})
			for _, i := range shuffled[:q.MaxIDs] {
				keep[i] = true
			}
		} else {
			for _, i := range indices[:q.MaxIDs] {
				keep[i] = true
			}
		}
	}

	bounded := make(Rows, 0, len(keep))
	for i, row := range rows {
		if keep[i] {
			bounded = append(bounded, row)
		}
	}
	return bounded
}
