package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"threatdesk/internal/alerts"
	"threatdesk/internal/compliance"
	"threatdesk/internal/threatscore"
	"threatdesk/internal/timerange"
	"threatdesk/internal/topics"
)

// windowPageSize is the page size used when draining a full window.
const windowPageSize = 500

// DashboardResponse is the headline payload of the portal.
type DashboardResponse struct {
	Range         timerange.Range         `json:"range"`
	TotalAlerts   int                     `json:"total_alerts"`
	ThreatLevel   threatscore.ThreatLevel `json:"threat_level"`
	PreviousScore int                     `json:"previous_score"`
	Delta         int                     `json:"delta"`
	Compliance    compliance.Rollup       `json:"compliance"`
	TopicCounts   map[topics.ID]int       `json:"topic_counts"`
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx, span := s.tel.StartSpan(r.Context(), "dashboard.build")
	defer span.End()

	window := resolveWindow(r, s.now())

	current, err := s.fetchWindow(ctx, window)
	if err != nil {
		s.tel.RecordError(ctx, err)
		writeError(w, http.StatusBadGateway, "alert query failed")
		return
	}

	previousWindow := timerange.PreviousPeriod(window)
	previous, err := s.fetchWindow(ctx, previousWindow)
	if err != nil {
		s.tel.RecordError(ctx, err)
		writeError(w, http.StatusBadGateway, "alert query failed")
		return
	}

	level := threatscore.Score(summaries(current))
	prevLevel := threatscore.Score(summaries(previous))

	assignments := make([][]topics.ID, len(current))
	tagSets := make([]compliance.TagSet, len(current))
	for i, a := range current {
		assignments[i] = topics.Classify(a.TopicInput())
		tagSets[i] = a.Compliance
	}

	resp := DashboardResponse{
		Range:         window,
		TotalAlerts:   len(current),
		ThreatLevel:   level,
		PreviousScore: prevLevel.Score,
		Delta:         level.Score - prevLevel.Score,
		Compliance:    compliance.Aggregate(tagSets),
		TopicCounts:   topics.Count(assignments),
	}

	span.SetAttributes(
		attribute.Int("alerts.count", len(current)),
		attribute.Int("threat.score", level.Score),
	)
	if m := s.tel.Metrics(); m != nil {
		m.DashboardBuilds.Inc()
		m.DashboardLatency.Observe(time.Since(start).Seconds())
		m.ThreatScore.WithLabelValues(window.Label).Set(float64(level.Score))
	}

	writeJSON(w, http.StatusOK, resp)
}

// fetchWindow drains every page of a time window from the store.
func (s *Server) fetchWindow(ctx context.Context, window timerange.Range) ([]alerts.Alert, error) {
	var all []alerts.Alert
	for page := 1; ; page++ {
		batch, total, err := s.store.Query(ctx, alerts.QueryParams{
			From:     window.Start,
			To:       window.End,
			Page:     page,
			PageSize: windowPageSize,
		})
		if err != nil {
			return nil, err
		}
		all = append(all, batch...)
		if len(all) >= total || len(batch) == 0 {
			return all, nil
		}
	}
}

func summaries(list []alerts.Alert) []threatscore.AlertSummary {
	out := make([]threatscore.AlertSummary, len(list))
	for i := range list {
		out[i] = list[i].Summary()
	}
	return out
}

// resolveWindow parses days/start_date/end_date query parameters.
func resolveWindow(r *http.Request, now time.Time) timerange.Range {
	q := r.URL.Query()
	days := 0
	if v := q.Get("days"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			days = n
		}
	}
	return timerange.Resolve(timerange.Params{
		Days:      days,
		StartDate: q.Get("start_date"),
		EndDate:   q.Get("end_date"),
		Now:       now,
	})
}
