package statistics

import "fmt"

// Insights is the textual guidance derived from a summary.
type Insights struct {
	ReadingPace string `json:"readingPace"`
	Streak      string `json:"streak"`
	Completion  string `json:"completion"`
	NextAction  string `json:"nextAction"`
}

// AchievementsSummary is the achievements view of a summary.
type AchievementsSummary struct {
	Achievements   []string `json:"achievements"`
	TotalCompleted int      `json:"totalCompleted"`
	CurrentStreak  int      `json:"currentStreak"`
}

func BuildInsights(s Summary) Insights {
	var in Insights

	switch {
	case s.AverageReadingSpeed < 150:
		in.ReadingPace = "Your reading speed is below average. Try to focus more during reading sessions."
	case s.AverageReadingSpeed > 250:
		in.ReadingPace = "Excellent reading speed! You're a fast learner."
	default:
		in.ReadingPace = "Good reading speed. Keep it up!"
	}

	switch {
	case s.CurrentStreak == 0:
		in.Streak = "Start your learning streak today!"
	case s.CurrentStreak < 7:
		in.Streak = fmt.Sprintf("Keep going! %d more days to a week streak!", 7-s.CurrentStreak)
	default:
		in.Streak = fmt.Sprintf("Amazing! You've been learning for %d days straight!", s.CurrentStreak)
	}

	switch {
	case s.CompletionRate < 50:
		in.Completion = "Try to complete more lessons to improve your understanding."
	case s.CompletionRate < 80:
		in.Completion = "Good progress! Aim to complete more lessons."
	default:
		in.Completion = "Excellent completion rate! You're very thorough."
	}

	in.NextAction = NextAction(s)
	return in
}

// NextAction picks the single recommended next step.
func NextAction(s Summary) string {
	switch {
	case s.TotalLessonsViewed == 0:
		return "Start with your first lesson in the Beginner level"
	case s.CurrentStreak == 0:
		return "Resume your learning to maintain your streak"
	case s.CompletionRate < 50:
		return "Focus on completing the lessons you've started"
	default:
		return "Continue to the next lesson in your current level"
	}
}

func BuildAchievementsSummary(s Summary) AchievementsSummary {
	return AchievementsSummary{
		Achievements:   s.Achievements,
		TotalCompleted: s.TotalLessonsCompleted,
		CurrentStreak:  s.CurrentStreak,
	}
}
