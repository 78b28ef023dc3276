// Package feed collects vendor advisory pages and converts entries to alerts.
package feed

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"threatdesk/internal/alerts"
	"threatdesk/internal/severity"
)

// Selectors are the CSS selectors used to extract one advisory entry.
// Title/Link/Date/Severity are evaluated relative to each Entry node.
type Selectors struct {
	Entry    string `yaml:"entry"`
	Title    string `yaml:"title"`
	Link     string `yaml:"link"`
	Date     string `yaml:"date"`
	Severity string `yaml:"severity"`
}

// Source describes one advisory index page.
type Source struct {
	Name       string    `yaml:"name"`
	URL        string    `yaml:"url"`
	AlertType  string    `yaml:"alert_type"`
	Vendor     string    `yaml:"vendor"`
	DateLayout string    `yaml:"date_layout"`
	Selectors  Selectors `yaml:"selectors"`
}

// Collector fetches advisory pages and stores the extracted alerts.
type Collector struct {
	client *http.Client
	store  alerts.Store
	logger *zap.Logger
	now    func() time.Time
}

// NewCollector wires an HTTP client; a nil client gets a 20s timeout default.
func NewCollector(client *http.Client, store alerts.Store, logger *zap.Logger) *Collector {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &Collector{client: client, store: store, logger: logger, now: time.Now}
}

// Sync fetches every source and stores the extracted alerts. Source failures
// are logged and skipped so one broken page does not block the rest. Returns
// the number of alerts stored.
func (c *Collector) Sync(ctx context.Context, sources []Source) (int, error) {
	stored := 0
	for _, src := range sources {
		extracted, err := c.Fetch(ctx, src)
		if err != nil {
			c.logger.Warn("feed fetch failed",
				zap.String("source", src.Name),
				zap.Error(err))
			continue
		}
		for _, a := range extracted {
			if err := c.store.Put(ctx, a); err != nil {
				return stored, fmt.Errorf("source %s: %w", src.Name, err)
			}
			stored++
		}
	}
	return stored, nil
}

// Fetch downloads one advisory index page and extracts its entries.
func (c *Collector) Fetch(ctx context.Context, src Source) ([]alerts.Alert, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "threatdesk/1.0")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request advisory page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("source %s returned %s", src.Name, resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse advisory page: %w", err)
	}

	return c.extract(doc, src), nil
}

func (c *Collector) extract(doc *goquery.Document, src Source) []alerts.Alert {
	var out []alerts.Alert
	seen := map[string]struct{}{}

	doc.Find(src.Selectors.Entry).Each(func(_ int, entry *goquery.Selection) {
		title := strings.TrimSpace(entry.Find(src.Selectors.Title).First().Text())
		if title == "" {
			return
		}

		link, _ := entry.Find(src.Selectors.Link).First().Attr("href")

		publishedAt := c.now().UTC()
		if src.Selectors.Date != "" {
			dateText := strings.TrimSpace(entry.Find(src.Selectors.Date).First().Text())
			layout := src.DateLayout
			if layout == "" {
				layout = "2006-01-02"
			}
			if parsed, err := time.Parse(layout, dateText); err == nil {
				publishedAt = parsed.UTC()
			}
		}

		sev := severity.LevelUnknown
		if src.Selectors.Severity != "" {
			sev = severity.Normalize(entry.Find(src.Selectors.Severity).First().Text())
		}

		id := entryID(src.Name, link, title)
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}

		a := alerts.Alert{
			ID:          id,
			Title:       title,
			Severity:    sev,
			PublishedAt: publishedAt,
			FetchedAt:   c.now().UTC(),
			SourceName:  src.Name,
			AlertType:   src.AlertType,
		}
		if src.Vendor != "" {
			a.AffectedVendors = []string{src.Vendor}
		}
		out = append(out, a)
	})

	return out
}

// entryID derives a stable alert id from the source and the entry identity,
// so re-fetching a page overwrites instead of duplicating.
func entryID(source, link, title string) string {
	key := link
	if key == "" {
		key = title
	}
	sum := sha256.Sum256([]byte(source + "|" + key))
	return hex.EncodeToString(sum[:16])
}
