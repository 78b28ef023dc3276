package api

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"threatdesk/internal/alerts"
	"threatdesk/internal/compliance"
	"threatdesk/internal/config"
	"threatdesk/internal/observability"
	"threatdesk/internal/severity"
	"threatdesk/internal/store"
)

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func newTestTelemetry(t *testing.T) *observability.Telemetry {
	t.Helper()
	// Metrics stay disabled: promauto registers into the global registry and
	// would collide across test servers.
	tel, err := observability.New(config.TelemetryConfig{
		ServiceName: "threatdesk-test",
		LogLevel:    "error",
		LogFormat:   "json",
	}, "test")
	if err != nil {
		t.Fatalf("observability.New: %v", err)
	}
	return tel
}

func newTestServer(t *testing.T, seed []alerts.Alert, opts ...Option) (*Server, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	for _, a := range seed {
		if err := mem.Put(context.Background(), a); err != nil {
			t.Fatalf("seed Put: %v", err)
		}
	}
	opts = append([]Option{WithClock(func() time.Time { return testNow })}, opts...)
	return NewServer(mem, newTestTelemetry(t), "test", opts...), mem
}

func seedAlerts() []alerts.Alert {
	return []alerts.Alert{
		{
			ID:          "cur-1",
			Title:       "Exchange zero-day actively exploited",
			Severity:    severity.LevelCritical,
			PublishedAt: testNow.Add(-2 * time.Hour),
			SourceName:  "CISA KEV",
			AIRiskScore: 95, HasAIRiskScore: true,
			ActivelyExploited: true,
			ZeroDay:           true,
			Compliance: compliance.TagSet{
				NIS2: &compliance.Tag{Relevant: compliance.RelevanceYes, ReportingRequired: true, DeadlineHours: 24},
			},
		},
		{
			ID:          "cur-2",
			Title:       "Phishing kit update",
			Severity:    severity.LevelMedium,
			PublishedAt: testNow.Add(-4 * time.Hour),
			SourceName:  "Vendor Blog",
			Compliance: compliance.TagSet{
				GDPR: &compliance.Tag{Relevant: compliance.RelevanceConditional},
			},
		},
		{
			// Previous period (yesterday): feeds the trend delta only.
			ID:          "prev-1",
			Title:       "Old advisory",
			Severity:    severity.LevelHigh,
			PublishedAt: testNow.Add(-30 * time.Hour),
			SourceName:  "NVD",
		},
	}
}

func doRequest(t *testing.T, s *Server, method, target string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, bytes.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)
	return rr
}

func TestHandleHealth(t *testing.T) {
	s, _ := newTestServer(t, nil)
	rr := doRequest(t, s, http.MethodGet, "/health", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "healthy") {
		t.Errorf("body = %s", rr.Body.String())
	}
}

func TestHandleDashboard(t *testing.T) {
	s, _ := newTestServer(t, seedAlerts())
	rr := doRequest(t, s, http.MethodGet, "/api/v1/dashboard?days=0", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", rr.Code, rr.Body.String())
	}

	var resp DashboardResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}

	// Today's window holds cur-1 and cur-2. Terms: one critical (5), one
	// exploited (12), zero-day bonus (15), worst AI 95 (9.5) = 41.5 -> 42.
	if resp.TotalAlerts != 2 {
		t.Errorf("TotalAlerts = %d, want 2", resp.TotalAlerts)
	}
	if resp.ThreatLevel.Score != 42 {
		t.Errorf("Score = %d, want 42", resp.ThreatLevel.Score)
	}
	if resp.ThreatLevel.Level != "moderate" {
		t.Errorf("Level = %q, want moderate", resp.ThreatLevel.Level)
	}
	if resp.Compliance.NIS2.Yes != 1 || resp.Compliance.NIS2.ReportingRequired != 1 {
		t.Errorf("NIS2 rollup = %+v", resp.Compliance.NIS2)
	}
	if resp.Compliance.GDPR.Conditional != 1 {
		t.Errorf("GDPR rollup = %+v", resp.Compliance.GDPR)
	}
	if resp.TopicCounts["microsoft"] != 1 || resp.TopicCounts["phishing"] != 1 {
		t.Errorf("TopicCounts = %v", resp.TopicCounts)
	}
	if resp.Delta != resp.ThreatLevel.Score-resp.PreviousScore {
		t.Errorf("Delta = %d, inconsistent with previous score %d", resp.Delta, resp.PreviousScore)
	}
}

func TestHandleDashboard_EmptyWindow(t *testing.T) {
	s, _ := newTestServer(t, nil)
	rr := doRequest(t, s, http.MethodGet, "/api/v1/dashboard?days=7", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}

	var resp DashboardResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.ThreatLevel.Score != 0 || resp.ThreatLevel.Level != "normal" {
		t.Errorf("empty window: %+v", resp.ThreatLevel)
	}
	if resp.TotalAlerts != 0 {
		t.Errorf("TotalAlerts = %d, want 0", resp.TotalAlerts)
	}
}

func TestHandleListAlerts_Filters(t *testing.T) {
	s, _ := newTestServer(t, seedAlerts())

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"window only", "days=2", []string{"cur-1", "cur-2", "prev-1"}},
		{"severity", "days=2&severity=critical", []string{"cur-1"}},
		{"exploited", "days=2&exploited=true", []string{"cur-1"}},
		{"reporting required", "days=2&reporting_required=true", []string{"cur-1"}},
		{"framework", "days=2&framework=gdpr", []string{"cur-2"}},
		{"search", "days=2&search=phishing", []string{"cur-2"}},
		{"topic", "days=2&topic=microsoft", []string{"cur-1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doRequest(t, s, http.MethodGet, "/api/v1/alerts/?"+tt.query, nil)
			if rr.Code != http.StatusOK {
				t.Fatalf("status = %d, body: %s", rr.Code, rr.Body.String())
			}
			var resp ListResponse
			if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Total != len(tt.want) {
				t.Fatalf("Total = %d, want %d (body: %s)", resp.Total, len(tt.want), rr.Body.String())
			}
			for i, id := range tt.want {
				if resp.Alerts[i].ID != id {
					t.Errorf("alerts[%d] = %s, want %s", i, resp.Alerts[i].ID, id)
				}
			}
		})
	}
}

func TestHandleGetAlert(t *testing.T) {
	s, _ := newTestServer(t, seedAlerts())

	rr := doRequest(t, s, http.MethodGet, "/api/v1/alerts/cur-1", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var resp struct {
		Alert             alerts.Alert `json:"alert"`
		Topics            []string     `json:"topics"`
		RequiresAttention bool         `json:"requires_attention"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Alert.ID != "cur-1" || !resp.RequiresAttention {
		t.Errorf("resp = %+v", resp)
	}
	if len(resp.Topics) == 0 {
		t.Error("topics must be recomputed on render")
	}

	rr = doRequest(t, s, http.MethodGet, "/api/v1/alerts/missing", nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("missing alert status = %d, want 404", rr.Code)
	}
}

func TestHandleIngestAlert(t *testing.T) {
	s, mem := newTestServer(t, nil)

	body := []byte(`{
		"id": "new-1",
		"title": "Fresh advisory",
		"severity": "HOCH",
		"source_name": "Vendor PSIRT"
	}`)
	rr := doRequest(t, s, http.MethodPost, "/api/v1/alerts/", body)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d, body: %s", rr.Code, rr.Body.String())
	}

	stored, err := mem.Get(context.Background(), "new-1")
	if err != nil || stored == nil {
		t.Fatalf("stored alert missing: %v", err)
	}
	// Legacy severity token normalizes on ingest.
	if stored.Severity != severity.LevelHigh {
		t.Errorf("Severity = %q, want high", stored.Severity)
	}
	if !stored.PublishedAt.Equal(testNow) {
		t.Errorf("PublishedAt = %v, want defaulted to now", stored.PublishedAt)
	}

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{not json`},
		{"missing id", `{"title":"x"}`},
		{"missing title", `{"id":"x"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doRequest(t, s, http.MethodPost, "/api/v1/alerts/", []byte(tt.body))
			if rr.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rr.Code)
			}
		})
	}
}

func TestHandleExport_CSV(t *testing.T) {
	s, _ := newTestServer(t, seedAlerts())

	rr := doRequest(t, s, http.MethodGet, "/api/v1/export?days=2&format=csv", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "text/csv" {
		t.Errorf("Content-Type = %q", ct)
	}
	if cd := rr.Header().Get("Content-Disposition"); !strings.Contains(cd, "attachment") {
		t.Errorf("Content-Disposition = %q", cd)
	}

	records, err := csv.NewReader(rr.Body).ReadAll()
	if err != nil {
		t.Fatalf("invalid CSV: %v", err)
	}
	if len(records) != 4 {
		t.Errorf("got %d records, want header + 3 rows", len(records))
	}
}

func TestHandleExport_BadFormat(t *testing.T) {
	s, _ := newTestServer(t, nil)
	rr := doRequest(t, s, http.MethodGet, "/api/v1/export?format=xlsx", nil)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
}
