package lessons

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/yuin/goldmark"

	"github.com/example/lessonhub/internal/apperr"
	"github.com/example/lessonhub/internal/cache"
	"github.com/example/lessonhub/internal/logger"
	"github.com/example/lessonhub/pkg/models"
)

// MaxFileSize caps a single markdown file, inside or outside an archive.
const MaxFileSize = 5 << 20

type LessonWriter interface {
	Upsert(ctx context.Context, lesson models.Lesson) (models.Lesson, error)
	Delete(ctx context.Context, path string) (bool, error)
	DeleteFolder(ctx context.Context, folder string) (int, error)
}

// ChannelNotifier posts announcements to the lessons channel.
type ChannelNotifier interface {
	SendToChannel(ctx context.Context, text string) error
}

// UploadResult summarizes an archive import.
type UploadResult struct {
	Folder        string   `json:"folder"`
	FilesUploaded int      `json:"filesUploaded"`
	Files         []string `json:"files"`
	Errors        []string `json:"errors,omitempty"`
}

type Importer struct {
	lessons  LessonWriter
	md       goldmark.Markdown
	notifier ChannelNotifier
	cache    cache.Cache
	now      func() time.Time
	log      *logger.Logger
}

func NewImporter(lessons LessonWriter, notifier ChannelNotifier, c cache.Cache, log *logger.Logger) *Importer {
	if c == nil {
		c = cache.Noop{}
	}
	if notifier == nil {
		notifier = silentChannel{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Importer{
		lessons:  lessons,
		md:       NewRenderer(),
		notifier: notifier,
		cache:    c,
		now:      time.Now,
		log:      log.With("service", "UploadService"),
	}
}

// ImportFile stores one markdown file under folder. An empty folder stores it at the root.
func (im *Importer) ImportFile(ctx context.Context, folder, name string, data []byte) (models.Lesson, error) {
	name = path.Base(strings.TrimSpace(name))
	if !strings.HasSuffix(strings.ToLower(name), ".md") {
		return models.Lesson{}, apperr.Invalid("only markdown (.md) files are allowed, got %q", name)
	}
	if len(data) > MaxFileSize {
		return models.Lesson{}, apperr.Invalid("%s is larger than %d bytes", name, MaxFileSize)
	}
	folder = cleanFolder(folder)

	lesson, err := im.save(ctx, folder, name, data)
	if err != nil {
		return models.Lesson{}, err
	}
	im.invalidate(ctx, lesson.Path)

	where := folder
	if where == "" {
		where = "Корень"
	}
	im.announce(ctx, fmt.Sprintf("📝 *Новый урок загружен!*\n\nФайл: `%s`\nПапка: `%s`", name, where))
	im.log.Info("lesson uploaded", "lesson_path", lesson.Path, "word_count", lesson.WordCount)
	return lesson, nil
}

// ImportArchive stores every markdown file of a zip archive under folder. Per-file failures are collected.
func (im *Importer) ImportArchive(ctx context.Context, folder string, data []byte) (UploadResult, error) {
	folder = cleanFolder(folder)
	if folder == "" {
		return UploadResult{}, apperr.Invalid("target folder is required")
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return UploadResult{}, apperr.Invalid("not a zip archive: %v", err)
	}

	res := UploadResult{Folder: folder, Files: []string{}}
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || !isMarkdownEntry(f.Name) {
			continue
		}
		name := path.Base(f.Name)
		content, err := readEntry(f)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("%s: %v", name, err))
			continue
		}
		lesson, err := im.save(ctx, folder, name, content)
		if err != nil {
			im.log.Warn("failed to import lesson", "file", f.Name, "error", err)
			res.Errors = append(res.Errors, fmt.Sprintf("%s: %v", name, err))
			continue
		}
		im.invalidate(ctx, lesson.Path)
		res.Files = append(res.Files, name)
	}
	res.FilesUploaded = len(res.Files)

	if res.FilesUploaded > 0 {
		im.announce(ctx, fmt.Sprintf("📚 *Новые уроки загружены!*\n\nПапка: `%s`\nКоличество файлов: %d\nФайлы: %s",
			folder, res.FilesUploaded, strings.Join(res.Files, ", ")))
	}
	im.log.Info("archive imported", "folder", folder, "files", res.FilesUploaded, "errors", len(res.Errors))
	return res, nil
}

// DeleteLesson removes a lesson and its progress rows.
func (im *Importer) DeleteLesson(ctx context.Context, lessonPath string) error {
	lessonPath = NormalizePath(lessonPath)
	if lessonPath == "" {
		return apperr.Invalid("lesson path is empty")
	}
	ok, err := im.lessons.Delete(ctx, lessonPath)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.NotFound("lesson %q", lessonPath)
	}
	im.invalidate(ctx, lessonPath)
	im.dropStats(ctx)
	im.log.Info("lesson deleted", "lesson_path", lessonPath)
	return nil
}

// DeleteFolder removes every lesson in folder and returns how many were removed.
func (im *Importer) DeleteFolder(ctx context.Context, folder string) (int, error) {
	folder = cleanFolder(folder)
	if folder == "" {
		return 0, apperr.Invalid("folder is empty")
	}
	n, err := im.lessons.DeleteFolder(ctx, folder)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, apperr.NotFound("folder %q", folder)
	}
	im.ClearCache(ctx)
	im.announce(ctx, fmt.Sprintf("🗑 *Папка удалена*\n\nПапка: `%s`\nУдалено уроков: %d", folder, n))
	im.log.Info("folder deleted", "folder", folder, "lessons", n)
	return n, nil
}

// ClearCache drops every cached lesson, the catalogue structure and user statistics.
func (im *Importer) ClearCache(ctx context.Context) {
	for _, prefix := range []string{cache.PrefixLessonContent, cache.PrefixLessonStructure, cache.PrefixUserStats} {
		if err := im.cache.DeletePrefix(ctx, prefix); err != nil {
			im.log.Warn("failed to clear cache", "prefix", prefix, "error", err)
		}
	}
}

func (im *Importer) save(ctx context.Context, folder, name string, data []byte) (models.Lesson, error) {
	doc, err := Parse(im.md, name, data)
	if err != nil {
		return models.Lesson{}, apperr.Invalid("%v", err)
	}
	lessonPath := name
	var parent *string
	if folder != "" {
		lessonPath = folder + "/" + name
		parent = &folder
	}
	now := im.now()
	return im.lessons.Upsert(ctx, models.Lesson{
		Path:         lessonPath,
		Title:        doc.Title,
		Content:      doc.Body,
		HTMLContent:  doc.HTML,
		Frontmatter:  doc.Frontmatter,
		WordCount:    doc.WordCount,
		ParentFolder: parent,
		LessonNumber: doc.LessonNumber,
		FileHash:     doc.FileHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
}

func (im *Importer) invalidate(ctx context.Context, lessonPath string) {
	if err := im.cache.Delete(ctx, cache.LessonContentKey(lessonPath)); err != nil {
		im.log.Warn("failed to invalidate lesson cache", "lesson_path", lessonPath, "error", err)
	}
	if err := im.cache.DeletePrefix(ctx, cache.PrefixLessonStructure); err != nil {
		im.log.Warn("failed to invalidate structure cache", "error", err)
	}
}

// dropStats forgets cached statistics; deleted lessons take their progress rows with them.
func (im *Importer) dropStats(ctx context.Context) {
	if err := im.cache.DeletePrefix(ctx, cache.PrefixUserStats); err != nil {
		im.log.Warn("failed to invalidate statistics cache", "error", err)
	}
}

func (im *Importer) announce(ctx context.Context, text string) {
	if err := im.notifier.SendToChannel(ctx, text); err != nil {
		im.log.Warn("failed to send channel notification", "error", err)
	}
}

func readEntry(f *zip.File) ([]byte, error) {
	if f.UncompressedSize64 > MaxFileSize {
		return nil, fmt.Errorf("larger than %d bytes", MaxFileSize)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	data, err := io.ReadAll(io.LimitReader(rc, MaxFileSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > MaxFileSize {
		return nil, fmt.Errorf("larger than %d bytes", MaxFileSize)
	}
	return data, nil
}

func isMarkdownEntry(name string) bool {
	if strings.HasPrefix(name, "__MACOSX/") || strings.HasPrefix(path.Base(name), "._") {
		return false
	}
	return strings.HasSuffix(strings.ToLower(name), ".md")
}

func cleanFolder(folder string) string {
	return strings.Trim(strings.TrimSpace(folder), "/")
}

type silentChannel struct{}

func (silentChannel) SendToChannel(context.Context, string) error { return nil }
