package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/ha1tch/tabgraph/pkg/models"
)

const SQLiteFileName = "graph.db"

// SQLiteConfig holds SQLite-specific configuration
type SQLiteConfig struct {
	FileName    string
	CacheSize   int // Page cache size in KB
	BusyTimeout int // Milliseconds to wait on locked database
}

// SQLiteSink writes the graph into a SQLite database
type SQLiteSink struct {
	config SQLiteConfig
}

// NewSQLiteSink creates a new SQLite sink
func NewSQLiteSink(config SQLiteConfig) *SQLiteSink {
	if config.FileName == "" {
		config.FileName = SQLiteFileName
	}
	return &SQLiteSink{config: config}
}

// Info returns sink information
func (s *SQLiteSink) Info() SinkInfo {
	return SinkInfo{
		Type:   "sqlite",
		Files:  []string{s.config.FileName},
		Atomic: true,
	}
}

const sqliteSchema = `
	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS nodes (
		id TEXT PRIMARY KEY,
		position INTEGER NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		data TEXT NOT NULL -- JSON object of the node fields
	);

	CREATE INDEX IF NOT EXISTS idx_nodes_title ON nodes(title);

	CREATE TABLE IF NOT EXISTS edges (
		seq INTEGER PRIMARY KEY,
		source TEXT NOT NULL,
		target TEXT NOT NULL,
		type TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_edges_source ON edges(source);
	CREATE INDEX IF NOT EXISTS idx_edges_target ON edges(target);
	CREATE INDEX IF NOT EXISTS idx_edges_type ON edges(type);
`

// Write builds the database in a uniquely named temp file and renames it
// into place
func (s *SQLiteSink) Write(ctx context.Context, dir string, g *models.Graph) ([]string, error) {
	path := filepath.Join(dir, s.config.FileName)

	temp, err := os.CreateTemp(dir, s.config.FileName+".*.tmp")
	if err != nil {
		return nil, &WriteError{Path: path, Err: err}
	}
	tempPath := temp.Name()
	temp.Close()

	if err := s.writeDB(ctx, tempPath, g); err != nil {
		os.Remove(tempPath)
		return nil, &WriteError{Path: path, Err: err}
	}

	if err := os.Chmod(tempPath, 0644); err != nil {
		os.Remove(tempPath)
		return nil, &WriteError{Path: path, Err: err}
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return nil, &WriteError{Path: path, Err: err}
	}

	return []string{path}, nil
}

func (s *SQLiteSink) writeDB(ctx context.Context, dbPath string, g *models.Graph) error {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	// Rollback journal keeps the database in a single file for the rename
	pragmas := []string{
		"PRAGMA journal_mode = DELETE",
		"PRAGMA synchronous = NORMAL",
		fmt.Sprintf("PRAGMA cache_size = -%d", s.config.CacheSize),
		fmt.Sprintf("PRAGMA busy_timeout = %d", s.config.BusyTimeout),
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	columns, err := json.Marshal(g.Columns)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO meta (key, value) VALUES ('columns', ?), ('skipped', ?)",
		string(columns), fmt.Sprint(g.Skipped)); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}

	nodeStmt, err := tx.PrepareContext(ctx,
		"INSERT INTO nodes (id, position, title, data) VALUES (?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer nodeStmt.Close()

	for i, node := range g.Nodes {
		data, err := json.Marshal(node.Data)
		if err != nil {
			return err
		}
		if _, err := nodeStmt.ExecContext(ctx, node.ID, i, node.Value(models.FieldTitle), string(data)); err != nil {
			return fmt.Errorf("failed to insert node %s: %w", node.ID, err)
		}
	}

	edgeStmt, err := tx.PrepareContext(ctx,
		"INSERT INTO edges (seq, source, target, type) VALUES (?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer edgeStmt.Close()

	for i, edge := range g.Edges {
		if _, err := edgeStmt.ExecContext(ctx, i, edge.Source, edge.Target, string(edge.Type)); err != nil {
			return fmt.Errorf("failed to insert edge %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// ReadSQLiteGraph reads a graph written by the SQLite sink
func ReadSQLiteGraph(ctx context.Context, dbPath string) (*models.Graph, error) {
	if _, err := os.Stat(dbPath); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	g := &models.Graph{
		Nodes: make([]*models.Node, 0),
		Edges: make([]models.Edge, 0),
	}

	var columns, skipped string
	if err := db.QueryRowContext(ctx, "SELECT value FROM meta WHERE key = 'columns'").Scan(&columns); err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}
	if err := json.Unmarshal([]byte(columns), &g.Columns); err != nil {
		return nil, err
	}
	if err := db.QueryRowContext(ctx, "SELECT value FROM meta WHERE key = 'skipped'").Scan(&skipped); err != nil {
		return nil, fmt.Errorf("failed to read skipped count: %w", err)
	}
	if g.Skipped, err = strconv.Atoi(skipped); err != nil {
		return nil, fmt.Errorf("invalid skipped count: %w", err)
	}

	rows, err := db.QueryContext(ctx, "SELECT id, data FROM nodes ORDER BY position")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id, data string
		if err := rows.Scan(&id, &data); err != nil {
			return nil, err
		}
		node := &models.Node{ID: id}
		if err := json.Unmarshal([]byte(data), &node.Data); err != nil {
			return nil, err
		}
		g.Nodes = append(g.Nodes, node)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	edgeRows, err := db.QueryContext(ctx, "SELECT source, target, type FROM edges ORDER BY seq")
	if err != nil {
		return nil, err
	}
	defer edgeRows.Close()

	for edgeRows.Next() {
		var edge models.Edge
		var edgeType string
		if err := edgeRows.Scan(&edge.Source, &edge.Target, &edgeType); err != nil {
			return nil, err
		}
		edge.Type = models.EdgeType(edgeType)
		g.Edges = append(g.Edges, edge)
	}

	return g, edgeRows.Err()
}
