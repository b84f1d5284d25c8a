package handlers

import (
	"context"
	"net/http"

	"github.com/example/lessonhub/internal/apperr"
	"github.com/example/lessonhub/internal/http/response"
	"github.com/example/lessonhub/internal/lessons"
	"github.com/example/lessonhub/pkg/models"
	"github.com/gin-gonic/gin"
)

type LessonService interface {
	Folders(ctx context.Context) ([]lessons.Folder, error)
	Structure(ctx context.Context) ([]lessons.Node, error)
	Content(ctx context.Context, lessonPath string, userID int64) (models.Lesson, error)
	Resolve(ctx context.Context, name string) (string, error)
	Search(ctx context.Context, q string) ([]models.Lesson, error)
}

type LessonHandler struct {
	svc  LessonService
	gate AccessGate
}

func NewLessonHandler(svc LessonService, gate AccessGate) *LessonHandler {
	return &LessonHandler{svc: svc, gate: gate}
}

// GET /api/lessons/folders
func (h *LessonHandler) Folders(c *gin.Context) {
	folders, err := h.svc.Folders(c.Request.Context())
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"folders": folders})
}

// GET /api/lessons/structure
func (h *LessonHandler) Structure(c *gin.Context) {
	structure, err := h.svc.Structure(c.Request.Context())
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"structure": structure})
}

// GET /api/lessons/content/*path
func (h *LessonHandler) Content(c *gin.Context) {
	lessonPath := lessons.NormalizePath(c.Param("path"))
	if lessonPath == "" {
		response.RespondError(c, apperr.Invalid("lesson path is empty"))
		return
	}
	userID, err := optionalUser(c, h.gate.IsAdmin)
	if err != nil {
		response.RespondError(c, err)
		return
	}

	decision, err := h.gate.CheckAccess(c.Request.Context(), userID, lessonPath)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	if !decision.HasAccess {
		c.AbortWithStatusJSON(http.StatusForbidden, decision)
		return
	}

	lesson, err := h.svc.Content(c.Request.Context(), lessonPath, userID)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, lesson)
}

// GET /api/lessons/resolve?name=
func (h *LessonHandler) Resolve(c *gin.Context) {
	path, err := h.svc.Resolve(c.Request.Context(), c.Query("name"))
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"path": path})
}

// GET /api/lessons/search?q=
func (h *LessonHandler) Search(c *gin.Context) {
	results, err := h.svc.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"results": results})
}
