// Package severity normalizes heterogeneous severity labels to a fixed taxonomy.
package severity

import "strings"

// Level is a normalized severity level.
type Level string

const (
	LevelCritical Level = "critical"
	LevelHigh     Level = "high"
	LevelMedium   Level = "medium"
	LevelLow      Level = "low"
	LevelInfo     Level = "info"
	LevelUnknown  Level = "unknown"
)

// legacyTokens maps localized severity labels still present in older feeds.
var legacyTokens = map[string]Level{
	"kritisch": LevelCritical,
	"hoch":     LevelHigh,
	"mittel":   LevelMedium,
	"niedrig":  LevelLow,
}

// Normalize maps a raw severity label to the fixed taxonomy. It is a total
// function: any unrecognized, empty, or whitespace-only input maps to
// LevelUnknown. Matching is case-insensitive and trims surrounding whitespace.
func Normalize(raw string) Level {
	token := strings.ToLower(strings.TrimSpace(raw))
	switch token {
	case "critical":
		return LevelCritical
	case "high":
		return LevelHigh
	case "medium":
		return LevelMedium
	case "low":
		return LevelLow
	case "info":
		return LevelInfo
	}
	if lvl, ok := legacyTokens[token]; ok {
		return lvl
	}
	return LevelUnknown
}

// Valid reports whether s is one of the six taxonomy values.
func Valid(s string) bool {
	switch Level(s) {
	case LevelCritical, LevelHigh, LevelMedium, LevelLow, LevelInfo, LevelUnknown:
		return true
	}
	return false
}

// Weight returns a sort weight for a level, highest severity first.
func Weight(l Level) int {
	switch l {
	case LevelCritical:
		return 5
	case LevelHigh:
		return 4
	case LevelMedium:
		return 3
	case LevelLow:
		return 2
	case LevelInfo:
		return 1
	default:
		return 0
	}
}
