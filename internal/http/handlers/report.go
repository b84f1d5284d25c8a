package handlers

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/example/lessonhub/internal/excel"
	"github.com/example/lessonhub/internal/http/response"
	"github.com/example/lessonhub/internal/statistics"
	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type StatisticsExporter interface {
	AllUsers(ctx context.Context) ([]statistics.UserSummary, error)
}

type ReportHandler struct {
	stats StatisticsExporter
	now   func() time.Time
}

func NewReportHandler(stats StatisticsExporter) *ReportHandler {
	return &ReportHandler{stats: stats, now: time.Now}
}

// GET /api/admin/reports/statistics.xlsx
func (h *ReportHandler) Statistics(c *gin.Context) {
	rows, err := h.stats.AllUsers(c.Request.Context())
	if err != nil {
		response.RespondError(c, err)
		return
	}
	var buf bytes.Buffer
	if err := excel.WriteStatistics(&buf, rows); err != nil {
		response.RespondError(c, err)
		return
	}
	name := fmt.Sprintf("statistics-%s.xlsx", h.now().UTC().Format("2006-01-02"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
