package service

import (
	"context"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"

	"github.com/clippa-dev/clippa/internal/httpclient"
	"github.com/clippa-dev/clippa/internal/models"
)

// maxMetadataBody caps how much of a page is read when scraping metadata.
const maxMetadataBody = 512 * 1024

// VideoMetadata is the Open Graph summary of a video page.
type VideoMetadata struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Thumbnail   string `json:"thumbnail,omitempty"`
	SiteName    string `json:"site_name,omitempty"`
}

// MetadataService scrapes Open Graph tags from video pages.
type MetadataService struct {
	client *httpclient.Client
	logger *slog.Logger
}

// NewMetadataService creates a MetadataService.
func NewMetadataService(client *httpclient.Client, logger *slog.Logger) *MetadataService {
	if logger == nil {
		logger = slog.Default()
	}
	return &MetadataService{client: client, logger: logger}
}

// Fetch retrieves the page at rawURL and extracts its Open Graph metadata.
func (s *MetadataService) Fetch(ctx context.Context, rawURL string) (*VideoMetadata, error) {
	if rawURL == "" {
		return nil, models.ErrURLRequired
	}
	parsed, err := url.Parse(rawURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return nil, fmt.Errorf("invalid URL: %s", rawURL)
	}

	resp, err := s.client.Get(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("fetching page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching page: %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxMetadataBody))
	if err != nil {
		return nil, fmt.Errorf("reading page: %w", err)
	}

	meta := parseOpenGraph(string(body))
	s.logger.Debug("scraped page metadata",
		slog.String("url", rawURL),
		slog.Bool("has_title", meta.Title != ""),
	)
	return meta, nil
}

var (
	ogTagRe   = regexp.MustCompile(`(?is)<meta[^>]+property\s*=\s*["']og:(\w+)["'][^>]*>`)
	contentRe = regexp.MustCompile(`(?is)content\s*=\s*["']([^"']*)["']`)
	titleRe   = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
)

// parseOpenGraph extracts og: meta tags, falling back to the document title.
func parseOpenGraph(page string) *VideoMetadata {
	meta := &VideoMetadata{}

	for _, m := range ogTagRe.FindAllStringSubmatch(page, -1) {
		cm := contentRe.FindStringSubmatch(m[0])
		if cm == nil {
			continue
		}
		value := html.UnescapeString(cm[1])
		switch m[1] {
		case "title":
			meta.Title = value
		case "description":
			meta.Description = value
		case "image":
			meta.Thumbnail = value
		case "site_name":
			meta.SiteName = value
		}
	}

	if meta.Title == "" {
		if tm := titleRe.FindStringSubmatch(page); tm != nil {
			meta.Title = html.UnescapeString(tm[1])
		}
	}
	return meta
}
