// Package compliance provides regulatory-framework tagging and rollups for alerts.
package compliance

import "time"

// Framework identifies a European regulatory framework.
type Framework string

const (
	FrameworkNIS2 Framework = "nis2"
	FrameworkDORA Framework = "dora"
	FrameworkGDPR Framework = "gdpr"
)

// Frameworks lists all supported frameworks in display order.
func Frameworks() []Framework {
	return []Framework{FrameworkNIS2, FrameworkDORA, FrameworkGDPR}
}

// Relevance is the enrichment verdict for one framework.
type Relevance string

const (
	RelevanceYes         Relevance = "yes"
	RelevanceNo          Relevance = "no"
	RelevanceConditional Relevance = "conditional"
)

// ConfidenceLevel represents enrichment confidence.
type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "high"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceLow    ConfidenceLevel = "low"
)

// Tag is the per-framework verdict attached to an alert by the enrichment
// pipeline. Consumed read-only here.
type Tag struct {
	Relevant          Relevance       `json:"relevant"`
	Confidence        ConfidenceLevel `json:"confidence"`
	Reasoning         string          `json:"reasoning,omitempty"`
	ReportingRequired bool            `json:"reporting_required"`
	DeadlineHours     int             `json:"deadline_hours,omitempty"`
}

// TagSet holds an alert's tags across all frameworks. A nil entry means the
// enrichment produced no verdict for that framework.
type TagSet struct {
	NIS2 *Tag `json:"nis2,omitempty"`
	DORA *Tag `json:"dora,omitempty"`
	GDPR *Tag `json:"gdpr,omitempty"`
}

// Get returns the tag for a framework, or nil.
func (s TagSet) Get(f Framework) *Tag {
	switch f {
	case FrameworkNIS2:
		return s.NIS2
	case FrameworkDORA:
		return s.DORA
	case FrameworkGDPR:
		return s.GDPR
	}
	return nil
}

// RequiresAttention reports whether any framework tag demands regulatory
// reporting for this alert. Used for the per-alert attention flag, distinct
// from the per-framework counts.
func (s TagSet) RequiresAttention() bool {
	for _, f := range Frameworks() {
		if tag := s.Get(f); tag != nil && tag.ReportingRequired {
			return true
		}
	}
	return false
}

// ReportingDeadline returns the earliest reporting deadline across frameworks
// relative to ref, and whether any deadline exists.
func (s TagSet) ReportingDeadline(ref time.Time) (time.Time, bool) {
	var earliest time.Time
	found := false
	for _, f := range Frameworks() {
		tag := s.Get(f)
		if tag == nil || !tag.ReportingRequired || tag.DeadlineHours <= 0 {
			continue
		}
		d := ref.Add(time.Duration(tag.DeadlineHours) * time.Hour)
		if !found || d.Before(earliest) {
			earliest = d
			found = true
		}
	}
	return earliest, found
}

// Counts is the per-framework rollup for a time window.
type Counts struct {
	Yes               int `json:"yes"`
	Conditional       int `json:"conditional"`
	ReportingRequired int `json:"reporting_required"`
}

// Rollup holds window-level counts per framework.
type Rollup struct {
	NIS2 Counts `json:"nis2"`
	DORA Counts `json:"dora"`
	GDPR Counts `json:"gdpr"`
}

// Get returns the counts for a framework.
func (r Rollup) Get(f Framework) Counts {
	switch f {
	case FrameworkNIS2:
		return r.NIS2
	case FrameworkDORA:
		return r.DORA
	case FrameworkGDPR:
		return r.GDPR
	}
	return Counts{}
}

// Aggregate rolls up tags across a window of alerts. Each framework is
// counted independently: relevance "yes" and "conditional" feed their own
// counters, and reporting_required counts regardless of the verdict. Alerts
// without a tag for a framework contribute nothing to it. Aggregation over
// disjoint alert sets is additive.
func Aggregate(sets []TagSet) Rollup {
	var r Rollup
	for _, s := range sets {
		addTag(&r.NIS2, s.NIS2)
		addTag(&r.DORA, s.DORA)
		addTag(&r.GDPR, s.GDPR)
	}
	return r
}

func addTag(c *Counts, tag *Tag) {
	if tag == nil {
		return
	}
	switch tag.Relevant {
	case RelevanceYes:
		c.Yes++
	case RelevanceConditional:
		c.Conditional++
	}
	if tag.ReportingRequired {
		c.ReportingRequired++
	}
}
