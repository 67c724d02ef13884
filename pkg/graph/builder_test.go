package graph_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ha1tch/tabgraph/pkg/graph"
	"github.com/ha1tch/tabgraph/pkg/models"
	"github.com/ha1tch/tabgraph/pkg/table"
)

func buildFromCSV(t *testing.T, input string) *models.Graph {
	t.Helper()

	tbl, err := table.Read(strings.NewReader(input))
	require.NoError(t, err)

	return graph.NewBuilder(zerolog.Nop()).Build(tbl)
}

func edge(source, target string, typ models.EdgeType) models.Edge {
	return models.Edge{Source: source, Target: target, Type: typ}
}

// =============================================================================
// End-to-end
// =============================================================================

func TestBuild_RootAndLeaf(t *testing.T) {
	g := buildFromCSV(t, "id,title,parent,children,connections\n"+
		"1,Root,,Leaf,\n"+
		"2,Leaf,Root,,\n")

	require.Len(t, g.Nodes, 2)
	assert.Equal(t, "1", g.Nodes[0].ID)
	assert.Equal(t, "Root", g.Nodes[0].Value("title"))
	assert.Equal(t, "2", g.Nodes[1].ID)
	assert.Equal(t, "Leaf", g.Nodes[1].Value("title"))

	assert.Equal(t, []models.Edge{
		edge("1", "2", models.EdgeChild),
		edge("2", "1", models.EdgeParent),
	}, g.Edges)
	assert.Equal(t, []string{"id", "title"}, g.Columns)
	assert.Zero(t, g.Skipped)
}

func TestBuild_NodeDataExcludesRelationalFields(t *testing.T) {
	g := buildFromCSV(t, "Title,ID,Parent,Notes,Children,Connections\n"+
		"Root,1,,hello,,\n")

	require.Len(t, g.Nodes, 1)
	node := g.Nodes[0]
	assert.Equal(t, map[string]string{"id": "1", "title": "Root", "notes": "hello"}, node.Data)
	assert.Equal(t, []string{"id", "title", "notes"}, g.Columns)
}

// =============================================================================
// Node identity
// =============================================================================

func TestBuild_DuplicateIDLastWriteWins(t *testing.T) {
	g := buildFromCSV(t, "id,title,notes\n"+
		"a,First,one\n"+
		"b,Other,two\n"+
		"a,Second,three\n")

	require.Len(t, g.Nodes, 2)
	// position of the first occurrence is kept
	assert.Equal(t, "a", g.Nodes[0].ID)
	assert.Equal(t, "Second", g.Nodes[0].Value("title"))
	assert.Equal(t, "three", g.Nodes[0].Value("notes"))
	assert.Equal(t, "b", g.Nodes[1].ID)
}

func TestBuild_RowWithoutIDIsSkipped(t *testing.T) {
	var logs bytes.Buffer
	logger := zerolog.New(&logs)

	tbl, err := table.Read(strings.NewReader("id,title,parent,children\n" +
		",Orphan,Root,Leaf\n" +
		"1,Root,,\n"))
	require.NoError(t, err)

	g := graph.NewBuilder(logger).Build(tbl)

	require.Len(t, g.Nodes, 1)
	assert.Equal(t, 1, g.Skipped)
	assert.Empty(t, g.Edges, "skipped row must not produce edges")
	_, ok := g.Node("")
	assert.False(t, ok)

	assert.Contains(t, logs.String(), "Skipping row without id")
	assert.Contains(t, logs.String(), graph.ErrMissingIdentifier.Error())
}

func TestBuild_EmptyTable(t *testing.T) {
	g := buildFromCSV(t, "id,title\n")
	assert.Empty(t, g.Nodes)
	assert.Empty(t, g.Edges)
	assert.Equal(t, []string{"id", "title"}, g.Columns)
}

// =============================================================================
// Title resolution
// =============================================================================

func TestBuild_TitleResolution(t *testing.T) {
	g := buildFromCSV(t, "id,title,parent,children,connections\n"+
		"r1,Alpha,,,Beta\n"+
		"r2,Beta,Alpha,,\n")

	assert.Equal(t, []models.Edge{
		edge("r1", "r2", models.EdgeConnection),
		edge("r2", "r1", models.EdgeParent),
	}, g.Edges)
}

func TestBuild_UnresolvedReferencePassesThrough(t *testing.T) {
	g := buildFromCSV(t, "id,title,parent,children,connections\n"+
		"1,Root,Nowhere,Ghost,rec123\n")

	assert.Equal(t, []models.Edge{
		edge("1", "Nowhere", models.EdgeParent),
		edge("1", "Ghost", models.EdgeChild),
		edge("1", "rec123", models.EdgeConnection),
	}, g.Edges)
}

func TestBuild_DuplicateTitleLaterIDWins(t *testing.T) {
	g := buildFromCSV(t, "id,title,parent\n"+
		"1,Shared,\n"+
		"2,Shared,\n"+
		"3,Child,Shared\n")

	require.Len(t, g.Edges, 1)
	assert.Equal(t, edge("3", "2", models.EdgeParent), g.Edges[0])
}

func TestBuild_ReferenceResolvesAgainstLaterRows(t *testing.T) {
	g := buildFromCSV(t, "id,title,parent\n"+
		"1,Child,Later\n"+
		"2,Later,\n")

	assert.Equal(t, []models.Edge{edge("1", "2", models.EdgeParent)}, g.Edges)
}

func TestBuild_ParentIsNotTrimmed(t *testing.T) {
	g := buildFromCSV(t, "id,title,parent\n"+
		"1,Root,\n"+
		"2,Leaf, Root\n")

	require.Len(t, g.Edges, 1)
	assert.Equal(t, " Root", g.Edges[0].Target)
}

// =============================================================================
// Lists
// =============================================================================

func TestBuild_ChildrenList(t *testing.T) {
	g := buildFromCSV(t, "id,title,children\n"+
		"p,Parent,\"A, B,C\"\n"+
		"a,A,\n")

	assert.Equal(t, []models.Edge{
		edge("p", "a", models.EdgeChild),
		edge("p", "B", models.EdgeChild),
		edge("p", "C", models.EdgeChild),
	}, g.Edges)
}

func TestBuild_EdgeOrderWithinRow(t *testing.T) {
	g := buildFromCSV(t, "connections,children,parent,id\n"+
		"\"x,y\",c,p,1\n")

	assert.Equal(t, []models.Edge{
		edge("1", "p", models.EdgeParent),
		edge("1", "c", models.EdgeChild),
		edge("1", "x", models.EdgeConnection),
		edge("1", "y", models.EdgeConnection),
	}, g.Edges)
}

func TestBuild_EmptyRelationalFieldsProduceNoEdges(t *testing.T) {
	g := buildFromCSV(t, "id,title,parent,children,connections\n"+
		"1,Root,,,\n")
	assert.Empty(t, g.Edges)
}

func TestBuild_EmptyTokensAreKept(t *testing.T) {
	g := buildFromCSV(t, "id,title,children\n"+
		"1,Root,\"A,,B\"\n")

	require.Len(t, g.Edges, 3)
	// "" is the title of no row here, so it passes through unchanged
	assert.Equal(t, "", g.Edges[1].Target)
}

func TestBuild_EmptyTokenResolvesUntitledNode(t *testing.T) {
	g := buildFromCSV(t, "id,title,children\n"+
		"1,,\n"+
		"2,Root,\" \"\n")

	require.Len(t, g.Edges, 1)
	assert.Equal(t, edge("2", "1", models.EdgeChild), g.Edges[0])
}

func TestBuild_DirectionallyRedundantEdgesAreKept(t *testing.T) {
	g := buildFromCSV(t, "id,title,parent,children\n"+
		"1,A,,B\n"+
		"2,B,A,\n"+
		"3,C,,\"B,B\"\n")

	assert.Equal(t, []models.Edge{
		edge("1", "2", models.EdgeChild),
		edge("2", "1", models.EdgeParent),
		edge("3", "2", models.EdgeChild),
		edge("3", "2", models.EdgeChild),
	}, g.Edges)
}

func TestBuilder_Resolve(t *testing.T) {
	tbl, err := table.Read(strings.NewReader("id,title\n7,Seven\n"))
	require.NoError(t, err)

	b := graph.NewBuilder(zerolog.Nop())
	b.Build(tbl)

	assert.Equal(t, "7", b.Resolve("Seven"))
	assert.Equal(t, "Eight", b.Resolve("Eight"))
}

func TestBuilder_ReuseResetsState(t *testing.T) {
	b := graph.NewBuilder(zerolog.Nop())

	first, err := table.Read(strings.NewReader("id,title\n1,One\n"))
	require.NoError(t, err)
	second, err := table.Read(strings.NewReader("id,title,parent\n2,Two,One\n"))
	require.NoError(t, err)

	b.Build(first)
	g := b.Build(second)

	require.Len(t, g.Nodes, 1)
	assert.Equal(t, "One", g.Edges[0].Target)
}

func TestSplitList(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"A", []string{"A"}},
		{"A, B,C", []string{"A", "B", "C"}},
		{"  A  ,\tB\n", []string{"A", "B"}},
		{"A,,B", []string{"A", "", "B"}},
		{",", []string{"", ""}},
		{"   ", []string{""}},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, graph.SplitList(tt.in))
		})
	}
}

func TestNodeColumns(t *testing.T) {
	cols := graph.NodeColumns([]string{"title", "parent", "id", "notes", "children", "connections", "status"})
	assert.Equal(t, []string{"id", "title", "notes", "status"}, cols)

	assert.Equal(t, []string{"id"}, graph.NodeColumns(nil))
}
