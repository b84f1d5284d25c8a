package engagement

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestReadingSpeed(t *testing.T) {
	tests := []struct {
		name   string
		words  int
		active int64
		want   float64
	}{
		{"no time", 1000, 0, 0},
		{"negative time", 1000, -5, 0},
		{"five minutes", 1000, 300000, 200},
		{"thirty seconds", 100, 30000, 200},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ReadingSpeed(tt.words, tt.active); !almostEqual(got, tt.want) {
				t.Fatalf("got=%v want=%v", got, tt.want)
			}
		})
	}
}

func TestCompletionScoreWorkedExample(t *testing.T) {
	score := CompletionScore(300000, 90, 100, 1000)
	if !almostEqual(score, 0.96) {
		t.Fatalf("score: got=%v want=0.96", score)
	}
	if Level(score) != "high" {
		t.Fatalf("level: got=%s", Level(score))
	}
	if !IsCompleted(score) {
		t.Fatal("expected completed")
	}
}

func TestCompletionScoreOverride(t *testing.T) {
	// Long lesson, little time ratio, but five minutes with 80% scroll forces 0.8.
	score := CompletionScore(300000, 80, 0, 10000)
	if !almostEqual(score, 0.8) {
		t.Fatalf("got=%v want=0.8", score)
	}
	below := CompletionScore(299999, 80, 0, 10000)
	if below >= 0.8 {
		t.Fatalf("override must need five minutes, got=%v", below)
	}
}

func TestCompletionScoreBounds(t *testing.T) {
	for _, active := range []int64{0, 1, 1000, 60000, 300000, 10000000} {
		for _, scroll := range []int{0, 10, 50, 80, 100, 150} {
			for _, points := range []int{0, 25, 50, 75, 100} {
				for _, words := range []int{0, 1, 200, 5000} {
					s := CompletionScore(active, scroll, points, words)
					if s < 0 || s > 1 {
						t.Fatalf("out of range: %v for (%d,%d,%d,%d)", s, active, scroll, points, words)
					}
				}
			}
		}
	}
}

func TestCompletionScoreEmptyLesson(t *testing.T) {
	if got := CompletionScore(0, 0, 0, 0); got != 0 {
		t.Fatalf("got=%v want=0", got)
	}
	if got := CompletionScore(1000, 0, 0, 0); !almostEqual(got, 0.4) {
		t.Fatalf("got=%v want=0.4", got)
	}
}

func TestLevel(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{0, "low"},
		{0.39, "low"},
		{0.4, "medium"},
		{0.69, "medium"},
		{0.7, "high"},
		{1, "high"},
	}
	for _, tt := range tests {
		if got := Level(tt.score); got != tt.want {
			t.Errorf("Level(%v): got=%s want=%s", tt.score, got, tt.want)
		}
	}
}

func TestMilestonePoints(t *testing.T) {
	tests := []struct {
		scroll int
		want   int
	}{
		{0, 0}, {24, 0}, {25, 25}, {49, 25}, {50, 50}, {75, 75}, {89, 75}, {90, 100}, {100, 100},
	}
	for _, tt := range tests {
		if got := MilestonePoints(tt.scroll); got != tt.want {
			t.Errorf("MilestonePoints(%d): got=%d want=%d", tt.scroll, got, tt.want)
		}
	}
}
