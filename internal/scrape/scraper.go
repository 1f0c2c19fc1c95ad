package scrape

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/metawrite/metawrite/internal/fingerprint"
	"github.com/metawrite/metawrite/pkg/httpclient"
	"github.com/metawrite/metawrite/pkg/useragent"
)

// DefaultImagePrefix whitelists which image sources are collected from a
// scraped page. Anything outside the tour CDN is dropped.
const DefaultImagePrefix = "https://cdn.getyourguide.com/img/tour"

// Config configures a Scraper.
type Config struct {
	Timeout     time.Duration // defaults to 10s
	ImagePrefix string
	UAPool      *useragent.Pool
	Fingerprint fingerprint.Profile
	Logger      *slog.Logger
}

// Scraper fetches a single page and extracts its visible text plus the
// whitelisted image sources.
type Scraper struct {
	cfg    Config
	client *httpclient.Client
}

// New initializes a Scraper. By holding a single client across requests,
// connections are pooled for the lifetime of the Scraper.
func New(cfg Config) (*Scraper, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.ImagePrefix == "" {
		cfg.ImagePrefix = DefaultImagePrefix
	}
	if cfg.UAPool == nil {
		cfg.UAPool = useragent.NewPool(nil)
	}
	if string(cfg.Fingerprint) == "" {
		cfg.Fingerprint = fingerprint.ProfileChrome
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	transport, err := fingerprint.Transport(cfg.Fingerprint)
	if err != nil {
		return nil, err
	}

	client, err := httpclient.New(httpclient.Config{
		Timeout:      cfg.Timeout,
		MaxRedirects: 10,
		Transport:    transport,
	})
	if err != nil {
		return nil, err
	}

	return &Scraper{cfg: cfg, client: client}, nil
}

// Scrape fetches the URL and returns the page's cleaned visible text and
// the image sources matching the configured prefix, in discovery order.
// Every failure is soft: transport errors, timeouts, and non-success
// statuses all degrade to ("", nil) so one bad page never aborts a batch.
func (s *Scraper) Scrape(ctx context.Context, rawURL string) (string, []string) {
	// Search results occasionally carry trailing colons or spaces
	target := strings.TrimRight(rawURL, ": ")

	req, err := http.NewRequest(http.MethodGet, target, nil)
	if err != nil {
		s.cfg.Logger.Warn("failed to build scrape request", "url", target, "err", err)
		return "", nil
	}
	req.Header.Set("User-Agent", s.cfg.UAPool.Next())

	resp, err := s.client.Do(ctx, req)
	if err != nil {
		s.cfg.Logger.Warn("failed to fetch page", "url", target, "err", err)
		return "", nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		s.cfg.Logger.Warn("failed to read page body", "url", target, "err", err)
		return "", nil
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 400 {
		if source, ok := detectChallenge(resp.StatusCode, resp.Header, body); ok {
			s.cfg.Logger.Warn("bot challenge detected", "url", target, "source", source, "status", resp.StatusCode)
		} else {
			s.cfg.Logger.Warn("page returned non-success status", "url", target, "status", resp.StatusCode)
		}
		return "", nil
	}

	return extract(body, s.cfg.ImagePrefix)
}

// extract parses HTML and pulls out the visible text and whitelisted
// image sources. Script, style and noscript content never leaks into
// the text.
func extract(body []byte, imagePrefix string) (string, []string) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", nil
	}

	doc.Find("script, style, noscript").Remove()

	var raw string
	if sel := doc.Find("body"); sel.Length() > 0 {
		raw = sel.Text()
	} else {
		raw = doc.Text()
	}
	// Collapse all runs of whitespace, newlines included, into single spaces
	text := strings.Join(strings.Fields(raw), " ")

	var images []string
	doc.Find("img").Each(func(_ int, img *goquery.Selection) {
		src, _ := img.Attr("src")
		if strings.HasPrefix(src, imagePrefix) {
			images = append(images, src)
		}
	})

	return text, images
}
