package models

import "time"

// Relational column names. Their values are consumed for edge derivation and
// never stored on a node.
const (
	FieldID          = "id"
	FieldTitle       = "title"
	FieldParent      = "parent"
	FieldChildren    = "children"
	FieldConnections = "connections"
)

// IsRelational reports whether a normalized column name is one of the
// relational fields.
func IsRelational(column string) bool {
	switch column {
	case FieldParent, FieldChildren, FieldConnections:
		return true
	}
	return false
}

// Row is one source record keyed by normalized column name
type Row map[string]string

// Get returns the value of a column, or "" when the row does not have it
func (r Row) Get(column string) string {
	return r[column]
}

// Table is a fully materialized source table. Rows can be ranged over any
// number of times and always yield the same sequence.
type Table struct {
	Columns []string `json:"columns"`
	Rows    []Row    `json:"rows"`
}

// EdgeType is the relation an edge was derived from
type EdgeType string

const (
	EdgeParent     EdgeType = "parent"
	EdgeChild      EdgeType = "child"
	EdgeConnection EdgeType = "connection"
)

// Node represents a node in the graph
type Node struct {
	ID   string            `json:"id"`
	Data map[string]string `json:"data"`
}

// Value returns a field of the node. The id column always yields the node id.
func (n *Node) Value(column string) string {
	if column == FieldID {
		return n.ID
	}
	return n.Data[column]
}

// Edge represents a directed, typed edge in the graph
type Edge struct {
	Source string   `json:"source"`
	Target string   `json:"target"`
	Type   EdgeType `json:"type"`
}

// Graph is the result of one conversion
type Graph struct {
	// Columns is the node table header: id first, then every non-relational
	// column in source order.
	Columns []string `json:"columns"`
	Nodes   []*Node  `json:"nodes"`
	Edges   []Edge   `json:"edges"`
	Skipped int      `json:"skipped"`
}

// Node looks up a node by id
func (g *Graph) Node(id string) (*Node, bool) {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return nil, false
}

// EdgeCounts returns the number of edges per type
func (g *Graph) EdgeCounts() map[EdgeType]int {
	counts := make(map[EdgeType]int)
	for _, e := range g.Edges {
		counts[e.Type]++
	}
	return counts
}

// ConversionStats tracks a conversion run
type ConversionStats struct {
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time,omitempty"`
	Duration  float64   `json:"duration,omitempty"`
	Rows      int       `json:"rows"`
	Nodes     int       `json:"nodes"`
	Edges     int       `json:"edges"`
	Skipped   int       `json:"skipped"`
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Status  int    `json:"status"`
	} `json:"error"`
}

// ConvertResponse is returned by the conversion endpoints
type ConvertResponse struct {
	Key     string `json:"key"`
	Nodes   int    `json:"nodes"`
	Edges   int    `json:"edges"`
	Skipped int    `json:"skipped"`
	Graph   *Graph `json:"graph"`
}
