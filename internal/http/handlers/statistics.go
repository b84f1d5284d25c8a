package handlers

import (
	"context"

	"github.com/example/lessonhub/internal/http/response"
	"github.com/example/lessonhub/internal/statistics"
	"github.com/gin-gonic/gin"
)

type StatisticsService interface {
	UserStatistics(ctx context.Context, userID int64) (statistics.Summary, error)
	CurrentStreak(ctx context.Context, userID int64) (int, error)
	LevelProgress(ctx context.Context, userID int64) (map[string]float64, error)
	Achievements(ctx context.Context, userID int64) (statistics.AchievementsSummary, error)
	Insights(ctx context.Context, userID int64) (statistics.Insights, error)
}

type StatisticsHandler struct {
	svc     StatisticsService
	isAdmin func(int64) bool
}

func NewStatisticsHandler(svc StatisticsService, isAdmin func(int64) bool) *StatisticsHandler {
	return &StatisticsHandler{svc: svc, isAdmin: isAdmin}
}

// GET /api/statistics/user/:telegramId
func (h *StatisticsHandler) UserStatistics(c *gin.Context) {
	h.serve(c, func(ctx context.Context, id int64) (any, error) {
		return h.svc.UserStatistics(ctx, id)
	})
}

// GET /api/statistics/streak/:telegramId
func (h *StatisticsHandler) Streak(c *gin.Context) {
	h.serve(c, func(ctx context.Context, id int64) (any, error) {
		streak, err := h.svc.CurrentStreak(ctx, id)
		if err != nil {
			return nil, err
		}
		return gin.H{"currentStreak": streak}, nil
	})
}

// GET /api/statistics/levels/:telegramId
func (h *StatisticsHandler) LevelProgress(c *gin.Context) {
	h.serve(c, func(ctx context.Context, id int64) (any, error) {
		return h.svc.LevelProgress(ctx, id)
	})
}

// GET /api/statistics/achievements/:telegramId
func (h *StatisticsHandler) Achievements(c *gin.Context) {
	h.serve(c, func(ctx context.Context, id int64) (any, error) {
		return h.svc.Achievements(ctx, id)
	})
}

// GET /api/statistics/insights/:telegramId
func (h *StatisticsHandler) Insights(c *gin.Context) {
	h.serve(c, func(ctx context.Context, id int64) (any, error) {
		return h.svc.Insights(ctx, id)
	})
}

func (h *StatisticsHandler) serve(c *gin.Context, load func(ctx context.Context, id int64) (any, error)) {
	userID, err := requestUser(c, c.Param("telegramId"), h.isAdmin)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	payload, err := load(c.Request.Context(), userID)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, payload)
}
