package graph

import (
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ha1tch/tabgraph/pkg/models"
)

var (
	// ErrMissingIdentifier is attached to the diagnostic logged for a row
	// without an id. Such rows are skipped, never fatal.
	ErrMissingIdentifier = errors.New("row has no id")
)

// Builder derives a node set and a typed edge list from table rows.
// A Builder is not safe for concurrent use.
type Builder struct {
	logger zerolog.Logger

	nodes  map[string]*models.Node
	order  []*models.Node
	titles map[string]string // title -> id
}

// NewBuilder creates a new graph builder
func NewBuilder(logger zerolog.Logger) *Builder {
	return &Builder{
		logger: logger,
		nodes:  make(map[string]*models.Node),
		titles: make(map[string]string),
	}
}

// Build converts a table into a graph in two passes over its rows: nodes and
// the title index first, then edges resolved against that index.
func (b *Builder) Build(t *models.Table) *models.Graph {
	b.reset()

	skipped := b.buildNodes(t)
	b.logger.Debug().
		Int("nodes", len(b.order)).
		Int("titles", len(b.titles)).
		Int("skipped", skipped).
		Msg("Node pass complete")

	edges := b.buildEdges(t)
	b.logger.Debug().Int("edges", len(edges)).Msg("Edge pass complete")

	return &models.Graph{
		Columns: NodeColumns(t.Columns),
		Nodes:   b.order,
		Edges:   edges,
		Skipped: skipped,
	}
}

// Resolve maps a reference to the id of the node carrying that title, or
// returns the reference unchanged when no title matches.
func (b *Builder) Resolve(ref string) string {
	if id, ok := b.titles[ref]; ok {
		return id
	}
	return ref
}

func (b *Builder) reset() {
	b.nodes = make(map[string]*models.Node)
	b.order = make([]*models.Node, 0)
	b.titles = make(map[string]string)
}

// buildNodes performs the first pass and returns the number of skipped rows
func (b *Builder) buildNodes(t *models.Table) int {
	skipped := 0
	for i, row := range t.Rows {
		id := row.Get(models.FieldID)
		if id == "" {
			skipped++
			b.logger.Warn().
				Err(ErrMissingIdentifier).
				Int("row", i+1).
				Interface("fields", row).
				Msg("Skipping row without id")
			continue
		}

		data := make(map[string]string, len(row))
		for key, value := range row {
			key = strings.ToLower(key)
			if models.IsRelational(key) {
				continue
			}
			data[key] = value
		}

		if node, exists := b.nodes[id]; exists {
			node.Data = data
		} else {
			node := &models.Node{ID: id, Data: data}
			b.nodes[id] = node
			b.order = append(b.order, node)
		}

		b.titles[row.Get(models.FieldTitle)] = id
	}
	return skipped
}

// buildEdges performs the second pass. Edges are emitted per row as parent,
// then children, then connections.
func (b *Builder) buildEdges(t *models.Table) []models.Edge {
	edges := make([]models.Edge, 0)
	for _, row := range t.Rows {
		source := row.Get(models.FieldID)
		if source == "" {
			continue
		}

		if parent := row.Get(models.FieldParent); parent != "" {
			edges = append(edges, models.Edge{
				Source: source,
				Target: b.Resolve(parent),
				Type:   models.EdgeParent,
			})
		}

		for _, child := range SplitList(row.Get(models.FieldChildren)) {
			edges = append(edges, models.Edge{
				Source: source,
				Target: b.Resolve(child),
				Type:   models.EdgeChild,
			})
		}

		for _, conn := range SplitList(row.Get(models.FieldConnections)) {
			edges = append(edges, models.Edge{
				Source: source,
				Target: b.Resolve(conn),
				Type:   models.EdgeConnection,
			})
		}
	}
	return edges
}

// SplitList splits a comma separated reference list and trims each item.
// An empty string yields no items. Items that are empty after trimming are
// kept, so "A,,B" yields three items.
func SplitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	for i, part := range parts {
		parts[i] = strings.TrimSpace(part)
	}
	return parts
}

// NodeColumns returns the node table header for a source header: id first,
// then every column that is neither relational nor id, in source order.
func NodeColumns(columns []string) []string {
	result := []string{models.FieldID}
	for _, column := range columns {
		if column == models.FieldID || models.IsRelational(column) {
			continue
		}
		result = append(result, column)
	}
	return result
}
