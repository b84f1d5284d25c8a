package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/example/lessonhub/internal/http/response"
	"github.com/example/lessonhub/internal/progress"
	"github.com/example/lessonhub/pkg/models"
	"github.com/gin-gonic/gin"
)

type ProgressService interface {
	StartSession(ctx context.Context, userID int64, lessonPath string, wordCount int) (progress.Session, error)
	UpdateScroll(ctx context.Context, userID int64, lessonPath string, scrollPercent int) error
	EndSession(ctx context.Context, userID int64, lessonPath string) (progress.Metrics, error)
	GetMetrics(ctx context.Context, userID int64, lessonPath string) (progress.Metrics, error)
	RecordProgress(ctx context.Context, userID int64, u progress.Update) (models.UserProgress, error)
	ListProgress(ctx context.Context, userID int64) ([]models.UserProgress, error)
	TrackEvent(ctx context.Context, userID int64, eventType, lessonPath string, data map[string]any) (models.AnalyticsEvent, error)
}

type ProgressHandler struct {
	svc     ProgressService
	isAdmin func(int64) bool
}

func NewProgressHandler(svc ProgressService, isAdmin func(int64) bool) *ProgressHandler {
	return &ProgressHandler{svc: svc, isAdmin: isAdmin}
}

type sessionRequest struct {
	TelegramID     int64  `json:"telegramId"`
	LessonPath     string `json:"lessonPath"`
	WordCount      int    `json:"wordCount"`
	ScrollProgress int    `json:"scrollProgress"`
}

type trackRequest struct {
	TelegramID int64 `json:"telegramId"`
	progress.Update
}

type eventRequest struct {
	TelegramID int64          `json:"telegramId"`
	EventType  string         `json:"eventType"`
	LessonPath string         `json:"lessonPath"`
	Data       map[string]any `json:"data"`
}

// POST /api/progress/session/start
func (h *ProgressHandler) StartSession(c *gin.Context) {
	var req sessionRequest
	if err := h.bindSession(c, &req); err != nil {
		response.RespondError(c, err)
		return
	}
	session, err := h.svc.StartSession(c.Request.Context(), req.TelegramID, req.LessonPath, req.WordCount)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, session)
}

// POST /api/progress/session/scroll
func (h *ProgressHandler) UpdateScroll(c *gin.Context) {
	var req sessionRequest
	if err := h.bindSession(c, &req); err != nil {
		response.RespondError(c, err)
		return
	}
	if err := h.svc.UpdateScroll(c.Request.Context(), req.TelegramID, req.LessonPath, req.ScrollProgress); err != nil {
		response.RespondError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

// POST /api/progress/session/end
func (h *ProgressHandler) EndSession(c *gin.Context) {
	var req sessionRequest
	if err := h.bindSession(c, &req); err != nil {
		response.RespondError(c, err)
		return
	}
	metrics, err := h.svc.EndSession(c.Request.Context(), req.TelegramID, req.LessonPath)
	if errors.Is(err, progress.ErrSessionNotFound) {
		c.Status(http.StatusNoContent)
		return
	}
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, metrics)
}

// GET /api/progress/metrics?telegramId=&lessonPath=
func (h *ProgressHandler) GetMetrics(c *gin.Context) {
	userID, err := requestUser(c, c.Query("telegramId"), h.isAdmin)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	metrics, err := h.svc.GetMetrics(c.Request.Context(), userID, c.Query("lessonPath"))
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, metrics)
}

// POST /api/progress/track
func (h *ProgressHandler) Track(c *gin.Context) {
	var req trackRequest
	if err := bindJSON(c, &req); err != nil {
		response.RespondError(c, err)
		return
	}
	if err := subject(c, req.TelegramID, h.isAdmin); err != nil {
		response.RespondError(c, err)
		return
	}
	if _, err := h.svc.RecordProgress(c.Request.Context(), req.TelegramID, req.Update); err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"status": "success"})
}

// GET /api/progress/user/:telegramId
func (h *ProgressHandler) ListUserProgress(c *gin.Context) {
	userID, err := requestUser(c, c.Param("telegramId"), h.isAdmin)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	rows, err := h.svc.ListProgress(c.Request.Context(), userID)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, rows)
}

// POST /api/progress/event
func (h *ProgressHandler) TrackEvent(c *gin.Context) {
	var req eventRequest
	if err := bindJSON(c, &req); err != nil {
		response.RespondError(c, err)
		return
	}
	if err := subject(c, req.TelegramID, h.isAdmin); err != nil {
		response.RespondError(c, err)
		return
	}
	if _, err := h.svc.TrackEvent(c.Request.Context(), req.TelegramID, req.EventType, req.LessonPath, req.Data); err != nil {
		response.RespondError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

func (h *ProgressHandler) bindSession(c *gin.Context, req *sessionRequest) error {
	if err := bindJSON(c, req); err != nil {
		return err
	}
	return subject(c, req.TelegramID, h.isAdmin)
}
