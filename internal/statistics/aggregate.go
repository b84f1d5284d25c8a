package statistics

import (
	"sort"
	"strings"
	"time"

	"github.com/example/lessonhub/pkg/models"
)

// Overview engagement tiers
const (
	TierNew          = "new"
	TierBeginner     = "beginner"
	TierCasual       = "casual"
	TierIntermediate = "intermediate"
	TierAdvanced     = "advanced"
	TierExpert       = "expert"
)

// Achievement codes
const (
	AchievementFirstLesson      = "FIRST_LESSON"
	AchievementFiveLessons      = "FIVE_LESSONS"
	AchievementTenLessons       = "TEN_LESSONS"
	AchievementWeekStreak       = "WEEK_STREAK"
	AchievementMonthStreak      = "MONTH_STREAK"
	AchievementSpeedReader      = "SPEED_READER"
	AchievementDedicatedLearner = "DEDICATED_LEARNER"
)

const achievementLevelMasterPrefix = "LEVEL_MASTER_"

const (
	recentActivityLimit = 10
	speedReaderWPM      = 250
	dedicatedLearnerMs  = 10 * 60 * 60 * 1000
	expertTimeMs        = 60 * 60 * 1000
	advancedTimeMs      = 30 * 60 * 1000
)

// Activity is one entry of the recent activity list.
type Activity struct {
	LessonPath      string    `json:"lessonPath"`
	LastVisited     time.Time `json:"lastVisited"`
	TimeSpent       int64     `json:"timeSpent"`
	Completed       bool      `json:"completed"`
	CompletionScore float64   `json:"completionScore"`
}

// Summary is the full statistics block of one user.
type Summary struct {
	TotalLessonsViewed    int                `json:"totalLessonsViewed"`
	TotalLessonsCompleted int                `json:"totalLessonsCompleted"`
	TotalTimeSpent        int64              `json:"totalTimeSpent"`
	AverageReadingSpeed   float64            `json:"averageReadingSpeed"`
	CurrentStreak         int                `json:"currentStreak"`
	LongestStreak         int                `json:"longestStreak"`
	CompletionRate        float64            `json:"completionRate"`
	LevelProgress         map[string]float64 `json:"levelProgress"`
	RecentActivity        []Activity         `json:"recentActivity"`
	Achievements          []string           `json:"achievements"`
	TotalVisits           int                `json:"totalVisits"`
	LastActivity          *time.Time         `json:"lastActivity,omitempty"`
	EngagementLevel       string             `json:"engagementLevel"`
}

// Compute derives the summary from the user's progress rows. Day boundaries follow loc.
func Compute(rows []models.UserProgress, now time.Time, loc *time.Location, levels []models.Level) Summary {
	if loc == nil {
		loc = time.Local
	}
	s := Summary{
		TotalLessonsViewed: len(rows),
		LevelProgress:      LevelProgress(rows, levels),
		RecentActivity:     RecentActivity(rows),
	}

	var speedSum float64
	var speedCount int
	for _, r := range rows {
		if r.Completed {
			s.TotalLessonsCompleted++
		}
		s.TotalTimeSpent += r.TimeSpent
		s.TotalVisits += r.Visits
		if r.ReadingSpeed > 0 {
			speedSum += r.ReadingSpeed
			speedCount++
		}
		if !r.LastVisited.IsZero() && (s.LastActivity == nil || r.LastVisited.After(*s.LastActivity)) {
			last := r.LastVisited
			s.LastActivity = &last
		}
	}
	if speedCount > 0 {
		s.AverageReadingSpeed = speedSum / float64(speedCount)
	}
	if s.TotalLessonsViewed > 0 {
		s.CompletionRate = float64(s.TotalLessonsCompleted) * 100 / float64(s.TotalLessonsViewed)
	}

	s.CurrentStreak, s.LongestStreak = Streaks(rows, now, loc)
	s.EngagementLevel = EngagementTier(s.TotalVisits, s.CompletionRate, s.TotalTimeSpent)
	s.Achievements = Achievements(s, levels)
	return s
}

// day is a calendar date without time of day.
type day struct {
	y int
	m time.Month
	d int
}

func dayOf(t time.Time) day {
	y, m, d := t.Date()
	return day{y, m, d}
}

func (d day) time() time.Time {
	return time.Date(d.y, d.m, d.d, 0, 0, 0, 0, time.UTC)
}

func (d day) addDays(n int) day {
	return dayOf(d.time().AddDate(0, 0, n))
}

func activeDays(rows []models.UserProgress, loc *time.Location) map[day]struct{} {
	days := make(map[day]struct{}, len(rows))
	for _, r := range rows {
		if r.LastVisited.IsZero() {
			continue
		}
		days[dayOf(r.LastVisited.In(loc))] = struct{}{}
	}
	return days
}

// Streaks returns the current and the longest run of consecutive active days.
func Streaks(rows []models.UserProgress, now time.Time, loc *time.Location) (current, longest int) {
	if loc == nil {
		loc = time.Local
	}
	days := activeDays(rows, loc)
	return currentStreak(days, now.In(loc)), longestStreak(days)
}

// currentStreak counts consecutive active days ending today, or yesterday when today is idle.
func currentStreak(days map[day]struct{}, now time.Time) int {
	cur := dayOf(now)
	if _, ok := days[cur]; !ok {
		cur = cur.addDays(-1)
		if _, ok := days[cur]; !ok {
			return 0
		}
	}
	streak := 0
	for {
		if _, ok := days[cur]; !ok {
			return streak
		}
		streak++
		cur = cur.addDays(-1)
	}
}

func longestStreak(days map[day]struct{}) int {
	if len(days) == 0 {
		return 0
	}
	sorted := make([]time.Time, 0, len(days))
	for d := range days {
		sorted = append(sorted, d.time())
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	longest, run := 1, 1
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Sub(sorted[i-1]) == 24*time.Hour {
			run++
			if run > longest {
				longest = run
			}
		} else {
			run = 1
		}
	}
	return longest
}

// LevelProgress returns the completion percentage of every level, matched by label in the lesson path.
func LevelProgress(rows []models.UserProgress, levels []models.Level) map[string]float64 {
	progress := make(map[string]float64, len(levels))
	for _, lvl := range levels {
		var total, completed int
		for _, r := range rows {
			if !strings.Contains(r.LessonPath, lvl.Label) {
				continue
			}
			total++
			if r.Completed {
				completed++
			}
		}
		if total == 0 {
			progress[lvl.Label] = 0
			continue
		}
		progress[lvl.Label] = float64(completed) * 100 / float64(total)
	}
	return progress
}

// RecentActivity returns the most recently visited rows, newest first.
func RecentActivity(rows []models.UserProgress) []Activity {
	sorted := make([]models.UserProgress, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].LastVisited.After(sorted[j].LastVisited) })
	if len(sorted) > recentActivityLimit {
		sorted = sorted[:recentActivityLimit]
	}
	out := make([]Activity, 0, len(sorted))
	for _, r := range sorted {
		out = append(out, Activity{
			LessonPath:      r.LessonPath,
			LastVisited:     r.LastVisited,
			TimeSpent:       r.TimeSpent,
			Completed:       r.Completed,
			CompletionScore: r.CompletionScore,
		})
	}
	return out
}

// Achievements applies every rule independently. Level awards follow the level order.
func Achievements(s Summary, levels []models.Level) []string {
	out := []string{}
	rules := []struct {
		code string
		ok   bool
	}{
		{AchievementFirstLesson, s.TotalLessonsCompleted >= 1},
		{AchievementFiveLessons, s.TotalLessonsCompleted >= 5},
		{AchievementTenLessons, s.TotalLessonsCompleted >= 10},
		{AchievementWeekStreak, s.CurrentStreak >= 7},
		{AchievementMonthStreak, s.CurrentStreak >= 30},
		{AchievementSpeedReader, s.AverageReadingSpeed > speedReaderWPM},
		{AchievementDedicatedLearner, s.TotalTimeSpent > dedicatedLearnerMs},
	}
	for _, r := range rules {
		if r.ok {
			out = append(out, r.code)
		}
	}
	for _, lvl := range levels {
		if s.LevelProgress[lvl.Label] >= 100 {
			out = append(out, LevelMasterCode(lvl.Label))
		}
	}
	return out
}

// LevelMasterCode builds the achievement code for finishing a level.
func LevelMasterCode(label string) string {
	return achievementLevelMasterPrefix + strings.ReplaceAll(strings.ToUpper(label), " ", "_")
}

// EngagementTier classifies overall engagement from visits, completion rate and time spent in ms.
func EngagementTier(totalVisits int, completionRate float64, totalTimeSpentMs int64) string {
	switch {
	case totalVisits == 0:
		return TierNew
	case totalVisits < 5:
		return TierBeginner
	case completionRate > 75 && totalTimeSpentMs > expertTimeMs:
		return TierExpert
	case completionRate > 50 && totalTimeSpentMs > advancedTimeMs:
		return TierAdvanced
	case completionRate > 25:
		return TierIntermediate
	default:
		return TierCasual
	}
}
