package statistics

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/example/lessonhub/internal/apperr"
	"github.com/example/lessonhub/internal/cache"
	"github.com/example/lessonhub/pkg/models"
)

var testLevels = []models.Level{
	{Label: "Начальный уровень (Бесплатно)", Rank: 1},
	{Label: "Средний уровень (Подписка)", Rank: 2, Premium: true},
	{Label: "Продвинутый уровень (Подписка)", Rank: 3, Premium: true},
	{Label: "Эксперт уровень (Подписка)", Rank: 4, Premium: true},
}

var testNow = time.Date(2024, 6, 15, 18, 0, 0, 0, time.UTC)

func daysAgo(n int) time.Time {
	return testNow.AddDate(0, 0, -n)
}

func row(path string, visited time.Time, completed bool) models.UserProgress {
	return models.UserProgress{UserID: 1, LessonPath: path, LastVisited: visited, Completed: completed, Visits: 1}
}

func TestStreaks(t *testing.T) {
	tests := []struct {
		name    string
		days    []int
		current int
		longest int
	}{
		{"no activity", nil, 0, 0},
		{"today only", []int{0}, 1, 1},
		{"yesterday only", []int{1}, 1, 1},
		{"two days ago", []int{2, 3, 4}, 0, 3},
		{"five ending today", []int{0, 1, 2, 3, 4}, 5, 5},
		{"four ending yesterday", []int{1, 2, 3, 4}, 4, 4},
		{"gap breaks current", []int{0, 1, 3, 4, 5, 6}, 2, 4},
		{"duplicates on same day", []int{0, 0, 0, 1}, 2, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var rows []models.UserProgress
			for i, d := range tt.days {
				rows = append(rows, row(fmt.Sprintf("l%d.md", i), daysAgo(d), false))
			}
			current, longest := Streaks(rows, testNow, time.UTC)
			if current != tt.current || longest != tt.longest {
				t.Fatalf("got=(%d,%d) want=(%d,%d)", current, longest, tt.current, tt.longest)
			}
		})
	}
}

func TestStreaksFollowLocation(t *testing.T) {
	// 23:30 UTC on the 14th is already the 15th in UTC+3.
	msk := time.FixedZone("MSK", 3*60*60)
	late := time.Date(2024, 6, 14, 23, 30, 0, 0, time.UTC)
	rows := []models.UserProgress{row("a.md", late, false)}
	now := time.Date(2024, 6, 16, 12, 0, 0, 0, time.UTC)

	if current, _ := Streaks(rows, now, msk); current != 1 {
		t.Fatalf("expected the visit to count as yesterday in MSK, got %d", current)
	}
	if current, _ := Streaks(rows, now, time.UTC); current != 0 {
		t.Fatalf("expected no streak in UTC, got %d", current)
	}
}

func TestComputeTotals(t *testing.T) {
	rows := []models.UserProgress{
		{LessonPath: "a.md", TimeSpent: 1000, ReadingSpeed: 200, Completed: true, Visits: 2, LastVisited: daysAgo(0)},
		{LessonPath: "b.md", TimeSpent: 500, ReadingSpeed: 0, Visits: 1, LastVisited: daysAgo(3)},
		{LessonPath: "c.md", TimeSpent: 250, ReadingSpeed: 100, Visits: 1, LastVisited: daysAgo(1)},
		{LessonPath: "d.md", TimeSpent: 250, Completed: true, Visits: 3, LastVisited: daysAgo(2)},
	}
	s := Compute(rows, testNow, time.UTC, testLevels)

	if s.TotalLessonsViewed != 4 || s.TotalLessonsCompleted != 2 || s.TotalTimeSpent != 2000 || s.TotalVisits != 7 {
		t.Fatalf("unexpected totals: %+v", s)
	}
	if s.AverageReadingSpeed != 150 {
		t.Fatalf("zero speeds must be excluded, got=%v", s.AverageReadingSpeed)
	}
	if s.CompletionRate != 50 {
		t.Fatalf("CompletionRate: got=%v", s.CompletionRate)
	}
	if s.CurrentStreak != 4 {
		t.Fatalf("CurrentStreak: got=%d", s.CurrentStreak)
	}
	if s.LastActivity == nil || !s.LastActivity.Equal(daysAgo(0)) {
		t.Fatalf("LastActivity: got=%v", s.LastActivity)
	}
	if len(s.RecentActivity) != 4 || s.RecentActivity[0].LessonPath != "a.md" || s.RecentActivity[3].LessonPath != "b.md" {
		t.Fatalf("unexpected recent activity order: %+v", s.RecentActivity)
	}
	if len(s.LevelProgress) != 4 {
		t.Fatalf("every level must be reported: %v", s.LevelProgress)
	}
}

func TestComputeEmpty(t *testing.T) {
	s := Compute(nil, testNow, time.UTC, testLevels)
	if s.TotalLessonsViewed != 0 || s.CompletionRate != 0 || s.AverageReadingSpeed != 0 || s.CurrentStreak != 0 || s.LongestStreak != 0 {
		t.Fatalf("unexpected placeholder: %+v", s)
	}
	if s.EngagementLevel != TierNew {
		t.Fatalf("EngagementLevel: got=%s", s.EngagementLevel)
	}
	if len(s.Achievements) != 0 || s.Achievements == nil {
		t.Fatalf("achievements must be an empty list: %#v", s.Achievements)
	}
}

func TestRecentActivityLimit(t *testing.T) {
	var rows []models.UserProgress
	for i := 0; i < 15; i++ {
		rows = append(rows, row(fmt.Sprintf("l%02d.md", i), testNow.Add(-time.Duration(i)*time.Hour), false))
	}
	got := RecentActivity(rows)
	if len(got) != 10 {
		t.Fatalf("len: got=%d", len(got))
	}
	if got[0].LessonPath != "l00.md" || got[9].LessonPath != "l09.md" {
		t.Fatalf("unexpected order: first=%s last=%s", got[0].LessonPath, got[9].LessonPath)
	}
}

func TestLevelProgress(t *testing.T) {
	free := testLevels[0].Label
	mid := testLevels[1].Label
	rows := []models.UserProgress{
		row(free+"/1.md", testNow, true),
		row(free+"/2.md", testNow, false),
		row(mid+"/1.md", testNow, true),
	}
	got := LevelProgress(rows, testLevels)
	if got[free] != 50 || got[mid] != 100 || got[testLevels[2].Label] != 0 {
		t.Fatalf("unexpected progress: %v", got)
	}
}

func TestAchievementsExample(t *testing.T) {
	free := testLevels[0].Label
	var rows []models.UserProgress
	for i := 0; i < 12; i++ {
		d := i
		if d > 7 {
			d = 0
		}
		r := row(fmt.Sprintf("%s/%d.md", free, i), daysAgo(d), true)
		r.ReadingSpeed = 260
		rows = append(rows, r)
	}
	s := Compute(rows, testNow, time.UTC, testLevels)
	if s.CurrentStreak != 8 {
		t.Fatalf("CurrentStreak: got=%d", s.CurrentStreak)
	}

	got := make(map[string]bool)
	for _, a := range s.Achievements {
		got[a] = true
	}
	for _, want := range []string{
		AchievementFirstLesson,
		AchievementFiveLessons,
		AchievementTenLessons,
		AchievementWeekStreak,
		AchievementSpeedReader,
		"LEVEL_MASTER_НАЧАЛЬНЫЙ_УРОВЕНЬ_(БЕСПЛАТНО)",
	} {
		if !got[want] {
			t.Errorf("missing achievement %s in %v", want, s.Achievements)
		}
	}
	if got[AchievementMonthStreak] || got[AchievementDedicatedLearner] {
		t.Errorf("unexpected achievements: %v", s.Achievements)
	}
}

func TestEngagementTier(t *testing.T) {
	tests := []struct {
		visits int
		rate   float64
		timeMs int64
		want   string
	}{
		{0, 0, 0, TierNew},
		{4, 100, 10000000, TierBeginner},
		{5, 80, 3600001, TierExpert},
		{5, 80, 3600000, TierAdvanced},
		{5, 60, 1800001, TierAdvanced},
		{5, 60, 1000, TierIntermediate},
		{5, 25, 1000, TierCasual},
	}
	for _, tt := range tests {
		if got := EngagementTier(tt.visits, tt.rate, tt.timeMs); got != tt.want {
			t.Errorf("EngagementTier(%d,%v,%d): got=%s want=%s", tt.visits, tt.rate, tt.timeMs, got, tt.want)
		}
	}
}

func TestInsights(t *testing.T) {
	tests := []struct {
		name    string
		summary Summary
		want    Insights
	}{
		{
			name:    "new user",
			summary: Summary{},
			want: Insights{
				ReadingPace: "Your reading speed is below average. Try to focus more during reading sessions.",
				Streak:      "Start your learning streak today!",
				Completion:  "Try to complete more lessons to improve your understanding.",
				NextAction:  "Start with your first lesson in the Beginner level",
			},
		},
		{
			name:    "lapsed",
			summary: Summary{TotalLessonsViewed: 3, AverageReadingSpeed: 200, CompletionRate: 60},
			want: Insights{
				ReadingPace: "Good reading speed. Keep it up!",
				Streak:      "Start your learning streak today!",
				Completion:  "Good progress! Aim to complete more lessons.",
				NextAction:  "Resume your learning to maintain your streak",
			},
		},
		{
			name:    "unfinished",
			summary: Summary{TotalLessonsViewed: 3, AverageReadingSpeed: 300, CurrentStreak: 2, CompletionRate: 30},
			want: Insights{
				ReadingPace: "Excellent reading speed! You're a fast learner.",
				Streak:      "Keep going! 5 more days to a week streak!",
				Completion:  "Try to complete more lessons to improve your understanding.",
				NextAction:  "Focus on completing the lessons you've started",
			},
		},
		{
			name:    "steady",
			summary: Summary{TotalLessonsViewed: 10, AverageReadingSpeed: 250, CurrentStreak: 9, CompletionRate: 90},
			want: Insights{
				ReadingPace: "Good reading speed. Keep it up!",
				Streak:      "Amazing! You've been learning for 9 days straight!",
				Completion:  "Excellent completion rate! You're very thorough.",
				NextAction:  "Continue to the next lesson in your current level",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BuildInsights(tt.summary); got != tt.want {
				t.Fatalf("got=%+v\nwant=%+v", got, tt.want)
			}
		})
	}
}

type fakeUsers map[int64]models.User

func (f fakeUsers) FindByTelegramID(_ context.Context, id int64) (models.User, error) {
	u, ok := f[id]
	if !ok {
		return models.User{}, apperr.NotFound("user %d", id)
	}
	return u, nil
}

func (f fakeUsers) ListAll(context.Context) ([]models.User, error) {
	out := []models.User{}
	for _, u := range f {
		out = append(out, u)
	}
	return out, nil
}

type countingProgress struct {
	rows  map[int64][]models.UserProgress
	calls int
}

func (c *countingProgress) FindByUser(_ context.Context, id int64) ([]models.UserProgress, error) {
	c.calls++
	return c.rows[id], nil
}

func TestServiceUnknownUserPlaceholder(t *testing.T) {
	svc := NewService(&countingProgress{}, fakeUsers{}, nil, Options{Levels: testLevels, Location: time.UTC, Now: func() time.Time { return testNow }})
	s, err := svc.UserStatistics(context.Background(), 77)
	if err != nil {
		t.Fatalf("unknown user must not fail: %v", err)
	}
	if s.TotalLessonsViewed != 0 || s.EngagementLevel != TierNew {
		t.Fatalf("unexpected placeholder: %+v", s)
	}
	if _, err := svc.UserStatistics(context.Background(), 0); err == nil {
		t.Fatal("expected invalid input for id 0")
	}
}

func TestServiceCachesSummary(t *testing.T) {
	ctx := context.Background()
	progress := &countingProgress{rows: map[int64][]models.UserProgress{
		1: {row("a.md", testNow, true)},
	}}
	svc := NewService(progress, fakeUsers{1: models.NewUser(1, testNow)}, nil, Options{
		Cache:    cache.NewMemory(),
		CacheTTL: time.Minute,
		Levels:   testLevels,
		Location: time.UTC,
		Now:      func() time.Time { return testNow },
	})

	first, err := svc.UserStatistics(ctx, 1)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	streak, err := svc.CurrentStreak(ctx, 1)
	if err != nil {
		t.Fatalf("streak: %v", err)
	}
	if progress.calls != 1 {
		t.Fatalf("second read must come from cache, calls=%d", progress.calls)
	}
	if streak != first.CurrentStreak || first.TotalLessonsCompleted != 1 {
		t.Fatalf("unexpected summary: %+v", first)
	}

	ach, _ := svc.Achievements(ctx, 1)
	if ach.TotalCompleted != 1 || len(ach.Achievements) == 0 || ach.Achievements[0] != AchievementFirstLesson {
		t.Fatalf("unexpected achievements: %+v", ach)
	}

	all, err := svc.AllUsers(ctx)
	if err != nil || len(all) != 1 || all[0].User.ID != 1 {
		t.Fatalf("AllUsers: %+v %v", all, err)
	}
}
