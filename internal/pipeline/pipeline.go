package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/metawrite/metawrite/internal/metrics"
	"github.com/metawrite/metawrite/internal/rewrite"
	"github.com/metawrite/metawrite/internal/search"
)

// DefaultTargetSite is the domain every query is scoped to via a site:
// clause before hitting the search API.
const DefaultTargetSite = "https://www.getyourguide.it/"

var (
	// ErrEmptyQuery rejects blank queries before any external call.
	ErrEmptyQuery = errors.New("query is empty")
	// ErrNoResults means search succeeded but filtering left nothing usable.
	ErrNoResults = errors.New("no search results for query")
	// ErrNoContent means no candidate page yielded a rewritten article.
	ErrNoContent = errors.New("no article content could be produced")
)

// Article is one rewritten title/body pair in the final response.
type Article struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Result aggregates a full generation run: the rewritten articles in
// processing order and the deduplicated image URLs merged across all
// scraped pages.
type Result struct {
	Articles []Article `json:"results"`
	Images   []string  `json:"images"`
}

// Searcher returns filtered search results for a query.
type Searcher interface {
	Search(ctx context.Context, query string) (*search.Response, error)
}

// Scraper extracts a page's visible text and whitelisted image sources.
// Failures are soft: an unreachable page yields empty outputs.
type Scraper interface {
	Scrape(ctx context.Context, url string) (string, []string)
}

// Rewriter turns extracted text into a title/body article.
type Rewriter interface {
	Rewrite(ctx context.Context, text string) (rewrite.Article, error)
}

// Config configures the Pipeline.
type Config struct {
	TargetSite string
	MaxResults int // cap on processed search results, defaults to 10
	Logger     *slog.Logger
}

// Pipeline drives the search-scrape-rewrite flow for one query. Pages
// are processed one at a time, in result order; a single page's failure
// never aborts the batch.
type Pipeline struct {
	cfg      Config
	searcher Searcher
	scraper  Scraper
	rewriter Rewriter
}

// New wires the pipeline stages together.
func New(cfg Config, searcher Searcher, scraper Scraper, rewriter Rewriter) *Pipeline {
	if cfg.TargetSite == "" {
		cfg.TargetSite = DefaultTargetSite
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 10
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Pipeline{cfg: cfg, searcher: searcher, scraper: scraper, rewriter: rewriter}
}

// Generate runs the full flow: validate the query, scope it to the
// target site, search, then scrape and rewrite up to MaxResults pages.
func (p *Pipeline) Generate(ctx context.Context, query string) (*Result, error) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return nil, ErrEmptyQuery
	}

	start := time.Now()
	logger := p.cfg.Logger.With("run_id", uuid.New().String())
	logger.Info("generating article", "query", trimmed)

	resp, err := p.searcher.Search(ctx, p.scopeQuery(trimmed))
	if err != nil {
		metrics.SearchesTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("search failed: %w", err)
	}
	metrics.SearchesTotal.WithLabelValues("ok").Inc()

	if len(resp.Results) == 0 {
		logger.Warn("no usable results after filtering", "query", trimmed)
		return nil, ErrNoResults
	}

	top := resp.Results
	if len(top) > p.cfg.MaxResults {
		top = top[:p.cfg.MaxResults]
	}
	logger.Info("processing top results", "count", len(top))

	var (
		articles []Article
		images   []string
		skipped  int
	)

	for i, item := range top {
		if item.Link == "" {
			logger.Warn("result has no link, skipping", "index", i+1)
			skipped++
			continue
		}

		logger.Info("scraping result", "index", i+1, "url", item.Link)
		text, found := p.scraper.Scrape(ctx, item.Link)

		// Images count even when the page's text is unusable
		images = append(images, found...)

		if text == "" {
			metrics.PagesScrapedTotal.WithLabelValues("empty").Inc()
			logger.Warn("no relevant text extracted", "index", i+1, "url", item.Link)
			skipped++
			continue
		}
		metrics.PagesScrapedTotal.WithLabelValues("text").Inc()

		article, err := p.rewriter.Rewrite(ctx, text)
		if err != nil {
			metrics.RewritesTotal.WithLabelValues("error").Inc()
			logger.Error("rewrite failed, skipping result", "index", i+1, "url", item.Link, "err", err)
			skipped++
			continue
		}
		metrics.RewritesTotal.WithLabelValues("ok").Inc()

		articles = append(articles, Article{Title: article.Title, Body: article.Body})
	}

	if len(articles) == 0 {
		logger.Error("no results could be processed", "query", trimmed)
		return nil, ErrNoContent
	}

	result := &Result{Articles: articles, Images: dedupe(images)}

	duration := time.Since(start)
	metrics.GenerateDuration.Observe(duration.Seconds())
	logger.Info("run complete",
		"query", trimmed,
		"candidates", len(top),
		"skipped", skipped,
		"articles", len(result.Articles),
		"images", len(result.Images),
		"duration", duration,
	)

	return result, nil
}

// scopeQuery prefixes the fixed site: clause so search stays on the
// target domain.
func (p *Pipeline) scopeQuery(query string) string {
	return fmt.Sprintf("site:%s %s", p.cfg.TargetSite, query)
}

// dedupe removes duplicate image URLs, keeping first-seen order. The
// output order is not part of the contract.
func dedupe(urls []string) []string {
	seen := make(map[string]struct{}, len(urls))
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}
