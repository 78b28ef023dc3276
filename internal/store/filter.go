package store

import (
	"sort"
	"strings"

	"threatdesk/internal/alerts"
	"threatdesk/internal/compliance"
	"threatdesk/internal/severity"
	"threatdesk/internal/topics"
)

const defaultPageSize = 50

// matches applies every filter in p to a single alert except the time
// window, which callers check separately (see inWindow).
func matches(a alerts.Alert, p alerts.QueryParams) bool {
	if p.Severity != "" && a.Severity != p.Severity {
		return false
	}
	if p.Source != "" && !strings.EqualFold(a.SourceName, p.Source) {
		return false
	}
	if p.AlertType != "" && a.AlertType != p.AlertType {
		return false
	}
	if p.ExploitedOnly && !a.ActivelyExploited {
		return false
	}
	if p.ReportingRequiredOnly && !a.Compliance.RequiresAttention() {
		return false
	}
	if p.Framework != "" {
		tag := a.Compliance.Get(p.Framework)
		if tag == nil || tag.Relevant == compliance.RelevanceNo {
			return false
		}
	}
	if p.Topic != "" && !hasTopic(a, p.Topic) {
		return false
	}
	if p.Search != "" {
		needle := strings.ToLower(p.Search)
		if !strings.Contains(strings.ToLower(a.Title), needle) &&
			!strings.Contains(strings.ToLower(a.Description), needle) {
			return false
		}
	}
	return true
}

func hasTopic(a alerts.Alert, want topics.ID) bool {
	for _, id := range topics.Classify(a.TopicInput()) {
		if id == want {
			return true
		}
	}
	return false
}

// inWindow checks the half-open [From, To) window on PublishedAt. Zero bounds
// are open.
func inWindow(a alerts.Alert, p alerts.QueryParams) bool {
	if !p.From.IsZero() && a.PublishedAt.Before(p.From) {
		return false
	}
	if !p.To.IsZero() && !a.PublishedAt.Before(p.To) {
		return false
	}
	return true
}

// sortAlerts orders the result set. The default is newest first; severity
// sorting uses taxonomy weight with published time as tiebreaker.
func sortAlerts(list []alerts.Alert, key alerts.SortKey, dir alerts.SortDirection) {
	asc := dir == alerts.SortAsc
	less := func(i, j int) bool {
		a, b := list[i], list[j]
		switch key {
		case alerts.SortSeverity:
			wa, wb := severity.Weight(a.Severity), severity.Weight(b.Severity)
			if wa != wb {
				return wa < wb
			}
			return a.PublishedAt.Before(b.PublishedAt)
		case alerts.SortAIScore:
			if a.AIRiskScore != b.AIRiskScore {
				return a.AIRiskScore < b.AIRiskScore
			}
			return a.PublishedAt.Before(b.PublishedAt)
		default:
			if !a.PublishedAt.Equal(b.PublishedAt) {
				return a.PublishedAt.Before(b.PublishedAt)
			}
			return a.ID < b.ID
		}
	}

	if asc {
		sort.SliceStable(list, less)
	} else {
		sort.SliceStable(list, func(i, j int) bool { return less(j, i) })
	}
}

// paginate slices one page out of the full result set.
func paginate(list []alerts.Alert, page, pageSize int) []alerts.Alert {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if page < 1 {
		page = 1
	}
	start := (page - 1) * pageSize
	if start >= len(list) {
		return nil
	}
	end := start + pageSize
	if end > len(list) {
		end = len(list)
	}
	return list[start:end]
}
