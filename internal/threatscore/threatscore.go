// Package threatscore aggregates a window of alerts into a single risk signal.
//
// The score is a pure function of the input multiset: only counts and a
// maximum feed the formula, so permuting the input never changes the result.
package threatscore

import (
	"math"

	"threatdesk/internal/severity"
)

// Level is a qualitative threat level derived from the numeric score.
type Level string

const (
	LevelCritical Level = "critical"
	LevelElevated Level = "elevated"
	LevelModerate Level = "moderate"
	LevelNormal   Level = "normal"
)

// Per-term weights and caps. The caps bound the raw sum; the final clamp only
// guards against float rounding pushing past 100.
const (
	criticalWeight = 5.0
	criticalCap    = 30.0
	highWeight     = 1.5
	highCap        = 20.0
	exploitWeight  = 12.0
	exploitCap     = 25.0
	zeroDayBonus   = 15.0
	worstWeight    = 0.1
)

// AlertSummary is the scoring view of an alert.
type AlertSummary struct {
	Severity          severity.Level
	ActivelyExploited bool
	ZeroDay           bool
	AIScore           float64
}

// ThreatLevel is the aggregate risk signal for a time window.
type ThreatLevel struct {
	Score int    `json:"score"`
	Level Level  `json:"level"`
	Color string `json:"color"`
	Emoji string `json:"emoji"`
}

// Score computes the aggregate threat level for a finite set of alerts.
// An empty input yields score 0, level normal.
func Score(alerts []AlertSummary) ThreatLevel {
	if len(alerts) == 0 {
		return build(0)
	}

	var criticals, highs, exploited int
	var anyZeroDay bool
	var worstAI float64
	for _, a := range alerts {
		switch a.Severity {
		case severity.LevelCritical:
			criticals++
		case severity.LevelHigh:
			highs++
		}
		if a.ActivelyExploited {
			exploited++
		}
		if a.ZeroDay {
			anyZeroDay = true
		}
		if a.AIScore > worstAI {
			worstAI = a.AIScore
		}
	}

	sum := cappedTerm(float64(criticals)*criticalWeight, criticalCap) +
		cappedTerm(float64(highs)*highWeight, highCap) +
		cappedTerm(float64(exploited)*exploitWeight, exploitCap) +
		worstWeight*worstAI
	if anyZeroDay {
		sum += zeroDayBonus
	}

	return build(clamp(roundHalfUp(sum), 0, 100))
}

// levelFor maps the final integer score to a level, highest threshold first.
func levelFor(score int) Level {
	switch {
	case score >= 75:
		return LevelCritical
	case score >= 50:
		return LevelElevated
	case score >= 30:
		return LevelModerate
	default:
		return LevelNormal
	}
}

func build(score int) ThreatLevel {
	lvl := levelFor(score)
	tl := ThreatLevel{Score: score, Level: lvl}
	switch lvl {
	case LevelCritical:
		tl.Color, tl.Emoji = "#dc2626", "🔴"
	case LevelElevated:
		tl.Color, tl.Emoji = "#ea580c", "🟠"
	case LevelModerate:
		tl.Color, tl.Emoji = "#eab308", "🟡"
	default:
		tl.Color, tl.Emoji = "#16a34a", "🟢"
	}
	return tl
}

func cappedTerm(v, limit float64) float64 {
	if v > limit {
		return limit
	}
	return v
}

// roundHalfUp rounds to the nearest integer with halves rounding up, so a raw
// sum of exactly 74.5 lands on 75 and crosses the critical threshold.
func roundHalfUp(x float64) int {
	return int(math.Floor(x + 0.5))
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
