package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"threatdesk/internal/alerts"
	"threatdesk/internal/compliance"
	"threatdesk/internal/severity"
	"threatdesk/internal/topics"
)

// ListResponse is one page of the alert browser.
type ListResponse struct {
	Alerts   []alerts.Alert `json:"alerts"`
	Total    int            `json:"total"`
	Page     int            `json:"page"`
	PageSize int            `json:"page_size"`
}

func (s *Server) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	params := s.parseQueryParams(r)

	list, total, err := s.store.Query(r.Context(), params)
	if err != nil {
		s.tel.RecordError(r.Context(), err)
		writeError(w, http.StatusBadGateway, "alert query failed")
		return
	}
	if m := s.tel.Metrics(); m != nil {
		m.AlertsQueried.Inc()
	}

	if list == nil {
		list = []alerts.Alert{}
	}
	writeJSON(w, http.StatusOK, ListResponse{
		Alerts:   list,
		Total:    total,
		Page:     params.Page,
		PageSize: params.PageSize,
	})
}

func (s *Server) handleGetAlert(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	a, err := s.store.Get(r.Context(), id)
	if err != nil {
		s.tel.RecordError(r.Context(), err)
		writeError(w, http.StatusBadGateway, "alert lookup failed")
		return
	}
	if a == nil {
		writeError(w, http.StatusNotFound, "alert not found")
		return
	}

	// Derived display fields are recomputed per render, never stored.
	writeJSON(w, http.StatusOK, map[string]any{
		"alert":              a,
		"topics":             topics.Classify(a.TopicInput()),
		"requires_attention": a.Compliance.RequiresAttention(),
	})
}

func (s *Server) handleIngestAlert(w http.ResponseWriter, r *http.Request) {
	var a alerts.Alert
	if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if a.ID == "" || a.Title == "" {
		writeError(w, http.StatusBadRequest, "id and title are required")
		return
	}

	a.Severity = severity.Normalize(string(a.Severity))
	if a.PublishedAt.IsZero() {
		a.PublishedAt = s.now().UTC()
	}
	if a.FetchedAt.IsZero() {
		a.FetchedAt = s.now().UTC()
	}

	if err := s.store.Put(r.Context(), a); err != nil {
		s.tel.RecordError(r.Context(), err)
		writeError(w, http.StatusBadGateway, "alert store failed")
		return
	}
	if m := s.tel.Metrics(); m != nil {
		m.AlertsIngested.WithLabelValues(a.SourceName).Inc()
	}

	writeJSON(w, http.StatusCreated, map[string]string{"id": a.ID, "status": "stored"})
}

// parseQueryParams maps the alert browser's query string to store parameters.
// Unrecognized values fail closed to their zero defaults.
func (s *Server) parseQueryParams(r *http.Request) alerts.QueryParams {
	q := r.URL.Query()
	window := resolveWindow(r, s.now())

	p := alerts.QueryParams{
		From:      window.Start,
		To:        window.End,
		Source:    q.Get("source"),
		AlertType: q.Get("alert_type"),
		Search:    q.Get("search"),

		ReportingRequiredOnly: q.Get("reporting_required") == "true",
		ExploitedOnly:         q.Get("exploited") == "true",

		SortBy:  alerts.SortPublishedAt,
		SortDir: alerts.SortDesc,
	}

	if v := q.Get("severity"); v != "" {
		p.Severity = severity.Normalize(v)
	}
	if v := q.Get("topic"); v != "" {
		p.Topic = topics.ID(v)
	}
	switch compliance.Framework(q.Get("framework")) {
	case compliance.FrameworkNIS2:
		p.Framework = compliance.FrameworkNIS2
	case compliance.FrameworkDORA:
		p.Framework = compliance.FrameworkDORA
	case compliance.FrameworkGDPR:
		p.Framework = compliance.FrameworkGDPR
	}

	switch alerts.SortKey(q.Get("sort_by")) {
	case alerts.SortSeverity:
		p.SortBy = alerts.SortSeverity
	case alerts.SortAIScore:
		p.SortBy = alerts.SortAIScore
	}
	if q.Get("sort_dir") == string(alerts.SortAsc) {
		p.SortDir = alerts.SortAsc
	}

	p.Page = positiveInt(q.Get("page"), 1)
	p.PageSize = positiveInt(q.Get("page_size"), 50)
	if p.PageSize > windowPageSize {
		p.PageSize = windowPageSize
	}

	return p
}

func positiveInt(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return def
	}
	return n
}
