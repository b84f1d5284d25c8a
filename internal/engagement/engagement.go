// Package engagement scores a single reading session. Everything here is pure arithmetic.
package engagement

import (
	"math"

	"github.com/example/lessonhub/pkg/models"
)

const (
	// AverageWordsPerMinute is the pace used to estimate the expected reading time.
	AverageWordsPerMinute = 200.0

	timeWeight       = 0.4
	scrollWeight     = 0.4
	engagementWeight = 0.2

	// Reading for at least this long with deep scroll counts as completed.
	overrideActiveTimeMs = 5 * 60 * 1000
	overrideScroll       = 80

	// CompletedThreshold marks a lesson completed once reached.
	CompletedThreshold = 0.8

	highThreshold   = 0.7
	mediumThreshold = 0.4
)

// milestones maps a scroll depth to the points it awards, deepest last.
var milestones = []struct {
	scroll int
	points int
}{
	{25, 25},
	{50, 50},
	{75, 75},
	{90, 100},
}

// ReadingSpeed returns words per minute, 0 when no active time was recorded.
func ReadingSpeed(wordCount int, activeTimeMs int64) float64 {
	if activeTimeMs <= 0 {
		return 0
	}
	return float64(wordCount) / (float64(activeTimeMs) / 60000.0)
}

// CompletionScore estimates how thoroughly a lesson was read. The result is in [0, 1].
func CompletionScore(activeTimeMs int64, scrollPercent, engagementPoints, wordCount int) float64 {
	if activeTimeMs < 0 {
		activeTimeMs = 0
	}
	scrollPercent = clampInt(scrollPercent, 0, 100)
	engagementPoints = clampInt(engagementPoints, 0, 100)

	expectedMs := (float64(wordCount) / AverageWordsPerMinute) * 60000
	var timeRatio float64
	switch {
	case expectedMs > 0:
		timeRatio = math.Min(float64(activeTimeMs)/expectedMs, 1.0)
	case activeTimeMs > 0:
		// Empty lesson: any reading time covers it.
		timeRatio = 1.0
	}

	score := timeRatio*timeWeight +
		(float64(scrollPercent)/100.0)*scrollWeight +
		(float64(engagementPoints)/100.0)*engagementWeight

	if activeTimeMs >= overrideActiveTimeMs && scrollPercent >= overrideScroll {
		score = math.Max(score, CompletedThreshold)
	}
	return math.Min(score, 1.0)
}

// Level classifies a completion score as low, medium or high.
func Level(score float64) string {
	switch {
	case score >= highThreshold:
		return models.EngagementHigh
	case score >= mediumThreshold:
		return models.EngagementMedium
	default:
		return models.EngagementLow
	}
}

// MilestonePoints returns the points for the deepest milestone reached at scrollPercent.
func MilestonePoints(scrollPercent int) int {
	points := 0
	for _, m := range milestones {
		if scrollPercent >= m.scroll {
			points = m.points
		}
	}
	return points
}

// IsCompleted reports whether the score crosses the completion threshold.
func IsCompleted(score float64) bool {
	return score >= CompletedThreshold
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
