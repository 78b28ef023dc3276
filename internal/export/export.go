// Package export renders alert windows as CSV or JSONL for analyst download.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"threatdesk/internal/alerts"
	"threatdesk/internal/compliance"
)

// Format selects the export encoding.
type Format string

const (
	FormatCSV   Format = "csv"
	FormatJSONL Format = "jsonl"
)

// ParseFormat maps a request parameter to a Format, defaulting to CSV.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "csv":
		return FormatCSV, nil
	case "jsonl", "ndjson":
		return FormatJSONL, nil
	}
	return "", fmt.Errorf("unsupported export format: %q", s)
}

// ContentType returns the MIME type for a format.
func (f Format) ContentType() string {
	if f == FormatJSONL {
		return "application/x-ndjson"
	}
	return "text/csv"
}

// csvHeader is the fixed CSV column order.
var csvHeader = []string{
	"id",
	"published_at",
	"title",
	"severity",
	"source",
	"alert_type",
	"ai_risk_score",
	"actively_exploited",
	"zero_day",
	"cves",
	"nis2_relevant",
	"dora_relevant",
	"gdpr_relevant",
	"reporting_required",
}

// Write renders the alert list to w in the given format.
func Write(w io.Writer, format Format, list []alerts.Alert) error {
	if format == FormatJSONL {
		return writeJSONL(w, list)
	}
	return writeCSV(w, list)
}

func writeCSV(w io.Writer, list []alerts.Alert) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, a := range list {
		row := []string{
			a.ID,
			a.PublishedAt.UTC().Format(time.RFC3339),
			a.Title,
			string(a.Severity),
			a.SourceName,
			a.AlertType,
			aiScoreColumn(a),
			strconv.FormatBool(a.ActivelyExploited),
			strconv.FormatBool(a.ZeroDay),
			strings.Join(a.CVEs, " "),
			relevanceColumn(a.Compliance, compliance.FrameworkNIS2),
			relevanceColumn(a.Compliance, compliance.FrameworkDORA),
			relevanceColumn(a.Compliance, compliance.FrameworkGDPR),
			strconv.FormatBool(a.Compliance.RequiresAttention()),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func writeJSONL(w io.Writer, list []alerts.Alert) error {
	enc := json.NewEncoder(w)
	for _, a := range list {
		if err := enc.Encode(a); err != nil {
			return fmt.Errorf("failed to encode alert %s: %w", a.ID, err)
		}
	}
	return nil
}

func aiScoreColumn(a alerts.Alert) string {
	if !a.HasAIRiskScore {
		return ""
	}
	return strconv.FormatFloat(a.AIRiskScore, 'f', -1, 64)
}

func relevanceColumn(set compliance.TagSet, f compliance.Framework) string {
	tag := set.Get(f)
	if tag == nil {
		return ""
	}
	return string(tag.Relevant)
}
