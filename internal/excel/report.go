package excel

import (
	"fmt"
	"io"
	"strings"

	"github.com/example/lessonhub/internal/statistics"
	"github.com/xuri/excelize/v2"
)

// SheetName is the sheet holding the per-user statistics, the default sheet of a new workbook
const SheetName = "Sheet1"

// ReportColumns are the header cells of the statistics sheet
var ReportColumns = []string{
	"Telegram ID",
	"Username",
	"Name",
	"Premium",
	"Subscribed",
	"Lessons viewed",
	"Lessons completed",
	"Completion rate, %",
	"Time spent, min",
	"Avg speed, wpm",
	"Current streak",
	"Longest streak",
	"Visits",
	"Engagement",
	"Achievements",
	"Last activity",
}

// WriteStatistics renders one row per user into an XLSX workbook written to w
func WriteStatistics(w io.Writer, rows []statistics.UserSummary) error {
	f := excelize.NewFile()
	defer f.Close()

	header := make([]interface{}, len(ReportColumns))
	for i, c := range ReportColumns {
		header[i] = c
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("write header: %v", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("header style: %v", err)
	}
	lastCol, _ := excelize.ColumnNumberToName(len(ReportColumns))
	if err := f.SetCellStyle(SheetName, "A1", lastCol+"1", bold); err != nil {
		return fmt.Errorf("apply header style: %v", err)
	}

	for i, r := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		values := reportRow(r)
		if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %v", i+2, err)
		}
	}

	if err := f.SetColWidth(SheetName, "A", lastCol, 16); err != nil {
		return fmt.Errorf("column width: %v", err)
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %v", err)
	}
	return nil
}

func reportRow(r statistics.UserSummary) []interface{} {
	u, s := r.User, r.Summary
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	lastActivity := ""
	if s.LastActivity != nil {
		lastActivity = s.LastActivity.UTC().Format("2006-01-02 15:04")
	}
	return []interface{}{
		u.ID,
		u.Username,
		name,
		u.PremiumAccess,
		u.Subscribed,
		s.TotalLessonsViewed,
		s.TotalLessonsCompleted,
		round1(s.CompletionRate),
		s.TotalTimeSpent / 60000,
		round1(s.AverageReadingSpeed),
		s.CurrentStreak,
		s.LongestStreak,
		s.TotalVisits,
		s.EngagementLevel,
		strings.Join(s.Achievements, ", "),
		lastActivity,
	}
}

func round1(v float64) float64 {
	return float64(int64(v*10+0.5)) / 10
}
