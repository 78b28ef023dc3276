// Package alerts defines the enriched alert model and the query boundary to
// the alert store.
package alerts

import (
	"context"
	"time"

	"threatdesk/internal/compliance"
	"threatdesk/internal/severity"
	"threatdesk/internal/threatscore"
	"threatdesk/internal/topics"
)

// Alert is an enriched security alert. It is immutable after enrichment; the
// portal only reads it.
type Alert struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`

	Severity severity.Level `json:"severity"`

	PublishedAt time.Time `json:"published_at"`
	FetchedAt   time.Time `json:"fetched_at"`

	SourceName string `json:"source_name"`
	AlertType  string `json:"alert_type,omitempty"`

	AffectedVendors  []string `json:"affected_vendors,omitempty"`
	AffectedProducts []string `json:"affected_products,omitempty"`

	AIRiskScore       float64 `json:"ai_risk_score"`
	HasAIRiskScore    bool    `json:"has_ai_risk_score"`
	ActivelyExploited bool    `json:"actively_exploited"`
	ZeroDay           bool    `json:"zero_day"`

	CVEs []string `json:"cves,omitempty"`

	Compliance compliance.TagSet `json:"compliance,omitempty"`
}

// Summary returns the scoring view of the alert. An absent AI score counts
// as zero.
func (a *Alert) Summary() threatscore.AlertSummary {
	score := a.AIRiskScore
	if !a.HasAIRiskScore {
		score = 0
	}
	return threatscore.AlertSummary{
		Severity:          severity.Normalize(string(a.Severity)),
		ActivelyExploited: a.ActivelyExploited,
		ZeroDay:           a.ZeroDay,
		AIScore:           score,
	}
}

// TopicInput returns the classification view of the alert.
func (a *Alert) TopicInput() topics.Input {
	return topics.Input{
		Title:            a.Title,
		AffectedProducts: a.AffectedProducts,
		AffectedVendors:  a.AffectedVendors,
		AlertType:        a.AlertType,
		SourceName:       a.SourceName,
	}
}

// SortKey names a sortable alert field.
type SortKey string

const (
	SortPublishedAt SortKey = "published_at"
	SortSeverity    SortKey = "severity"
	SortAIScore     SortKey = "ai_score"
)

// SortDirection is asc or desc.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// QueryParams filter, sort and paginate an alert query. From/To form a
// half-open window [From, To) on PublishedAt.
type QueryParams struct {
	From time.Time
	To   time.Time

	Severity  severity.Level
	Topic     topics.ID
	Source    string
	AlertType string
	Framework compliance.Framework
	Search    string

	ReportingRequiredOnly bool
	ExploitedOnly         bool

	SortBy   SortKey
	SortDir  SortDirection
	Page     int
	PageSize int
}

// Store is the query boundary to the external alert store. Implementations
// must treat the window as half-open on PublishedAt and return the total
// match count before pagination.
type Store interface {
	// Query returns one page of matching alerts plus the total match count.
	Query(ctx context.Context, p QueryParams) ([]Alert, int, error)

	// Get returns a single alert by id, or nil if absent.
	Get(ctx context.Context, id string) (*Alert, error)

	// Put inserts or replaces an alert.
	Put(ctx context.Context, a Alert) error

	// Ping reports store reachability.
	Ping(ctx context.Context) error
}
