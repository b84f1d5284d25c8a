package handlers

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"strings"

	"github.com/example/lessonhub/internal/apperr"
	"github.com/example/lessonhub/internal/http/response"
	"github.com/example/lessonhub/internal/lessons"
	"github.com/example/lessonhub/pkg/models"
	"github.com/gin-gonic/gin"
)

// MaxArchiveSize bounds a ZIP upload
const MaxArchiveSize = 50 << 20

type LessonImporter interface {
	ImportFile(ctx context.Context, folder, name string, data []byte) (models.Lesson, error)
	ImportArchive(ctx context.Context, folder string, data []byte) (lessons.UploadResult, error)
	DeleteLesson(ctx context.Context, lessonPath string) error
	DeleteFolder(ctx context.Context, folder string) (int, error)
	ClearCache(ctx context.Context)
}

type UploadHandler struct {
	importer LessonImporter
}

func NewUploadHandler(importer LessonImporter) *UploadHandler {
	return &UploadHandler{importer: importer}
}

// POST /api/upload/lessons (multipart: file, folder)
func (h *UploadHandler) UploadArchive(c *gin.Context) {
	name, data, err := readUpload(c, MaxArchiveSize)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	if !strings.HasSuffix(strings.ToLower(name), ".zip") {
		response.RespondError(c, apperr.Invalid("only .zip archives are accepted"))
		return
	}
	result, err := h.importer.ImportArchive(c.Request.Context(), c.PostForm("folder"), data)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, result)
}

// POST /api/upload/lesson (multipart: file, folder)
func (h *UploadHandler) UploadLesson(c *gin.Context) {
	name, data, err := readUpload(c, lessons.MaxFileSize)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	lesson, err := h.importer.ImportFile(c.Request.Context(), c.PostForm("folder"), name, data)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{
		"success":  true,
		"message":  "Lesson uploaded successfully",
		"filename": name,
		"path":     lesson.Path,
	})
}

// DELETE /api/upload/lessons/:folder
func (h *UploadHandler) DeleteFolder(c *gin.Context) {
	n, err := h.importer.DeleteFolder(c.Request.Context(), c.Param("folder"))
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"message": "Folder deleted successfully", "deleted": n})
}

// DELETE /api/upload/lesson?path=
func (h *UploadHandler) DeleteLesson(c *gin.Context) {
	if err := h.importer.DeleteLesson(c.Request.Context(), c.Query("path")); err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"message": "Lesson deleted successfully"})
}

// POST /api/upload/clear-cache
func (h *UploadHandler) ClearCache(c *gin.Context) {
	h.importer.ClearCache(c.Request.Context())
	response.RespondOK(c, gin.H{"message": "Cache cleared successfully"})
}

func readUpload(c *gin.Context, limit int64) (string, []byte, error) {
	fh, err := c.FormFile("file")
	if err != nil {
		return "", nil, apperr.Invalid("file is required")
	}
	if fh.Size > limit {
		return "", nil, apperr.Invalid("file %s exceeds %d bytes", fh.Filename, limit)
	}
	data, err := readMultipart(fh, limit)
	if err != nil {
		return "", nil, err
	}
	return fh.Filename, data, nil
}

func readMultipart(fh *multipart.FileHeader, limit int64) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload %s: %w", fh.Filename, err)
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read upload %s: %w", fh.Filename, err)
	}
	if int64(len(data)) > limit {
		return nil, apperr.Invalid("file %s exceeds %d bytes", fh.Filename, limit)
	}
	return data, nil
}
