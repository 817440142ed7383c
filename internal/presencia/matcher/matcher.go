// Package matcher resolves a live face descriptor to the closest enrolled
// identity using an in-memory HNSW nearest-neighbour index.
package matcher

import (
	"github.com/coder/hnsw"

	"github.com/jza-lab/tpi-pyme-alimenticia-sub000/internal/presencia/types"
)

// MatchThreshold is the euclidean distance below which a nearest neighbour
// is accepted as a match.  At or above it the query is "no match" regardless
// of which enrolled descriptor scored lowest.
const MatchThreshold = 0.6

// maxNeighbors (M) is the maximum number of HNSW links per node.  The
// enrolled set on a terminal is small, so the default trade-off leans
// towards recall over memory.
const maxNeighbors = 16

// Match is the nearest enrolled identity for a query descriptor.
type Match struct {
	EmployeeCode string
	Distance     float64
}

// Matcher answers nearest-neighbour queries over the enrolled descriptors.
// It is immutable once built; whenever the identity set changes the caller
// must Build a new one — matching against a stale index is a correctness
// bug, not a performance concern.
type Matcher struct {
	graph  *hnsw.Graph[string]
	byCode map[string]types.Descriptor
}

// Build indexes the usable descriptors of the given identities, keyed by
// employee code.  Returns nil when no identity carries a usable descriptor;
// callers treat a nil matcher as "recognition unavailable".
func Build(identities []types.Identity) *Matcher {
	g := hnsw.NewGraph[string]()
	g.M = maxNeighbors
	g.Ml = 1.0 / float64(maxNeighbors)
	g.Distance = hnsw.EuclideanDistance

	byCode := make(map[string]types.Descriptor)
	for _, id := range identities {
		if !id.HasDescriptor() {
			continue
		}
		g.Add(hnsw.MakeNode(id.EmployeeCode, id.Descriptor))
		byCode[id.EmployeeCode] = id.Descriptor
	}
	if len(byCode) == 0 {
		return nil
	}
	return &Matcher{graph: g, byCode: byCode}
}

// BestMatch returns the nearest enrolled descriptor and its exact euclidean
// distance.  The boolean is false when the index is empty or the query is
// unusable.  Acceptance against MatchThreshold is the caller's decision via
// Accept; BestMatch itself always reports the raw nearest neighbour.
func (m *Matcher) BestMatch(query types.Descriptor) (Match, bool) {
	if m == nil || len(query) == 0 {
		return Match{}, false
	}
	neighbors := m.graph.Search(query, 1)
	if len(neighbors) == 0 {
		return Match{}, false
	}
	code := neighbors[0].Key
	// Recompute the exact distance on the candidate: the graph search is
	// approximate and we gate acceptance on the true value.
	return Match{
		EmployeeCode: code,
		Distance:     EuclideanDistance(query, m.byCode[code]),
	}, true
}

// Accept returns the nearest match only when it clears MatchThreshold.
func (m *Matcher) Accept(query types.Descriptor) (Match, bool) {
	best, ok := m.BestMatch(query)
	if !ok || best.Distance >= MatchThreshold {
		return Match{}, false
	}
	return best, true
}

// Size returns the number of indexed descriptors.
func (m *Matcher) Size() int {
	if m == nil {
		return 0
	}
	return len(m.byCode)
}
