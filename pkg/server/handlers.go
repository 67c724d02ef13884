package server

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ha1tch/tabgraph/pkg/cache"
	"github.com/ha1tch/tabgraph/pkg/graph"
	"github.com/ha1tch/tabgraph/pkg/models"
	"github.com/ha1tch/tabgraph/pkg/storage"
	"github.com/ha1tch/tabgraph/pkg/table"
)

const (
	formatJSON  = "json"
	formatNodes = "nodes"
	formatEdges = "edges"
)

// handleConvert converts a CSV request body into a graph
func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	format, ok := s.parseFormat(w, r)
	if !ok {
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.config.MaxUploadSize))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			s.writeError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("Request body exceeds %d bytes", maxErr.Limit))
			return
		}
		s.writeError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}

	key := digest(body)

	g, hit := s.lookup(r.Context(), key)
	if !hit {
		start := time.Now()
		t, err := table.Read(bytes.NewReader(body))
		if err != nil {
			s.metrics.RecordConversionError()
			if errors.Is(err, table.ErrMalformedInput) {
				s.writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			s.logger.Error().Err(err).Msg("Failed to read table")
			s.writeError(w, http.StatusInternalServerError, "Failed to read table")
			return
		}

		g = graph.NewBuilder(s.logger).Build(t)
		s.metrics.RecordConversion(g, time.Since(start))

		ttl := time.Duration(s.config.CacheTTL) * time.Second
		if err := s.cache.Set(r.Context(), key, g, ttl); err != nil {
			s.logger.Warn().Err(err).Str("key", key).Msg("Failed to cache conversion")
		}
	}

	if hit {
		w.Header().Set("X-Cache", "HIT")
	} else {
		w.Header().Set("X-Cache", "MISS")
	}
	s.writeGraph(w, format, key, g)
}

// handleGetConversion returns a previously converted graph
func (s *Server) handleGetConversion(w http.ResponseWriter, r *http.Request) {
	format, ok := s.parseFormat(w, r)
	if !ok {
		return
	}

	key := chi.URLParam(r, "key")
	g, hit := s.lookup(r.Context(), key)
	if !hit {
		s.writeError(w, http.StatusNotFound, fmt.Sprintf("Conversion %s not found", key))
		return
	}

	w.Header().Set("X-Cache", "HIT")
	s.writeGraph(w, format, key, g)
}

func (s *Server) parseFormat(w http.ResponseWriter, r *http.Request) (string, bool) {
	format := r.URL.Query().Get("format")
	switch format {
	case "":
		return formatJSON, true
	case formatJSON, formatNodes, formatEdges:
		return format, true
	}
	s.writeError(w, http.StatusBadRequest,
		fmt.Sprintf("Unknown format %q (expected json, nodes or edges)", format))
	return "", false
}

func (s *Server) lookup(ctx context.Context, key string) (*models.Graph, bool) {
	g, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			s.logger.Warn().Err(err).Str("key", key).Msg("Cache lookup failed")
		}
		s.metrics.RecordCache(false)
		return nil, false
	}
	s.metrics.RecordCache(true)
	return g, true
}

func (s *Server) writeGraph(w http.ResponseWriter, format, key string, g *models.Graph) {
	var write func(io.Writer, *models.Graph) error
	switch format {
	case formatNodes:
		write = storage.WriteNodes
	case formatEdges:
		write = storage.WriteEdges
	default:
		s.writeJSON(w, http.StatusOK, models.ConvertResponse{
			Key:     key,
			Nodes:   len(g.Nodes),
			Edges:   len(g.Edges),
			Skipped: g.Skipped,
			Graph:   g,
		})
		return
	}

	var buf bytes.Buffer
	if err := write(&buf, g); err != nil {
		s.logger.Error().Err(err).Msg("Failed to render CSV")
		s.writeError(w, http.StatusInternalServerError, "Failed to render CSV")
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", format+".csv"))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, models.ErrorResponse{
		Error: struct {
			Message string `json:"message"`
			Status  int    `json:"status"`
		}{
			Message: message,
			Status:  status,
		},
	})
}

func digest(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}
