package metrics

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestMetricsServer(t *testing.T) {
	srv := Start("localhost:9899")
	// Give it a tiny bit of time to start up
	time.Sleep(100 * time.Millisecond)

	defer srv.Stop(context.Background())

	RequestsTotal.WithLabelValues("/generate_article", "200").Inc()
	SearchesTotal.WithLabelValues("ok").Inc()
	PagesScrapedTotal.WithLabelValues("text").Inc()
	RewritesTotal.WithLabelValues("ok").Inc()
	GenerateDuration.Observe(1.5)

	resp, err := http.Get("http://localhost:9899/metrics")
	if err != nil {
		t.Fatalf("failed to fetch metrics: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}

	output := string(body)

	for _, metric := range []string{
		"metawrite_requests_total",
		"metawrite_searches_total",
		"metawrite_pages_scraped_total",
		"metawrite_rewrites_total",
		"metawrite_generate_duration_seconds_bucket",
	} {
		if !strings.Contains(output, metric) {
			t.Errorf("expected %s in metrics output", metric)
		}
	}
}
