package testutil

// FixedQueryID generates the same query id every time.
//
// This enables deterministic plans and golden snapshot comparison.
// Unlike planner.FixedGenerator which returns ids in sequence, this
// generator always returns the same id.
//
// Thread-safety: FixedQueryID is stateless and safe for concurrent use.
type FixedQueryID struct {
	id string
}

// NewFixedQueryID creates a new fixed query id generator.
//
// The id is typically set in the scenario YAML:
//
//	query_id: "test-query-1"
//
// If id is empty, Generate() returns "test-query-default".
func NewFixedQueryID(id string) *FixedQueryID {
	if id == "" {
		id = "test-query-default"
	}
	return &FixedQueryID{id: id}
}

// Generate returns the fixed query id.
//
// Implements planner.IDGenerator.
func (g *FixedQueryID) Generate() string {
	return g.id
}
