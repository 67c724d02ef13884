package server_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ha1tch/tabgraph/pkg/cache"
	"github.com/ha1tch/tabgraph/pkg/config"
	"github.com/ha1tch/tabgraph/pkg/metrics"
	"github.com/ha1tch/tabgraph/pkg/server"
)

func setupBenchServer(b *testing.B) *httptest.Server {
	b.Helper()

	cfg := config.Default()
	memCache := cache.NewMemoryCache(1000, time.Duration(cfg.CacheTTL)*time.Second)
	logger := zerolog.New(nil).Level(zerolog.Disabled)

	srv := server.New(cfg, memCache, metrics.NewRegistry(), logger)
	ts := httptest.NewServer(srv.Handler())
	b.Cleanup(ts.Close)
	return ts
}

// benchTable builds a table of n rows where every row links to its
// predecessor by title and to two siblings
func benchTable(n int) string {
	var sb strings.Builder
	sb.WriteString("id,title,parent,children,connections\n")
	for i := 0; i < n; i++ {
		parent := ""
		if i > 0 {
			parent = fmt.Sprintf("Node %d", i-1)
		}
		fmt.Fprintf(&sb, "rec%d,Node %d,%s,,\"Node %d, Node %d\"\n", i, i, parent, (i+1)%n, (i+2)%n)
	}
	return sb.String()
}

func benchConvert(b *testing.B, rows int, unique bool) {
	ts := setupBenchServer(b)
	body := benchTable(rows)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		payload := body
		if unique {
			payload = fmt.Sprintf("%s%d,unique,,,\n", body, i)
		}
		resp, err := http.Post(ts.URL+"/api/v1/convert", "text/csv", strings.NewReader(payload))
		if err != nil {
			b.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			b.Fatalf("unexpected status %d", resp.StatusCode)
		}
	}
}

func BenchmarkConvert100(b *testing.B) {
	benchConvert(b, 100, true)
}

func BenchmarkConvert5000(b *testing.B) {
	benchConvert(b, 5000, true)
}

func BenchmarkConvertCached(b *testing.B) {
	benchConvert(b, 5000, false)
}

func BenchmarkHealthCheck(b *testing.B) {
	ts := setupBenchServer(b)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		resp, err := http.Get(ts.URL + "/health")
		if err != nil {
			b.Fatal(err)
		}
		resp.Body.Close()
	}
}
