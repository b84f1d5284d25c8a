package lessons

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/example/lessonhub/internal/apperr"
	"github.com/example/lessonhub/internal/cache"
	"github.com/example/lessonhub/internal/logger"
	"github.com/example/lessonhub/pkg/models"
)

// Uncategorized is the folder name shown for lessons without a parent folder.
const Uncategorized = "Без категории"

const (
	foldersKey   = cache.PrefixLessonStructure + ":folders"
	structureKey = cache.PrefixLessonStructure + ":tree"
)

type LessonStore interface {
	FindByPath(ctx context.Context, path string) (models.Lesson, error)
	ListAll(ctx context.Context) ([]models.Lesson, error)
}

type UserStore interface {
	FindByTelegramID(ctx context.Context, telegramID int64) (models.User, error)
	Upsert(ctx context.Context, user models.User) (models.User, error)
}

type Folder struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Node is a level or a lesson in the catalogue tree.
type Node struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Path     string `json:"path,omitempty"`
	Filename string `json:"filename,omitempty"`
	Children []Node `json:"children,omitempty"`
}

type Service struct {
	lessons  LessonStore
	users    UserStore
	cache    cache.Cache
	cacheTTL time.Duration
	levels   []models.Level
	now      func() time.Time
	log      *logger.Logger
}

type Options struct {
	Cache    cache.Cache
	CacheTTL time.Duration
	Levels   []models.Level
	Now      func() time.Time
}

func NewService(lessons LessonStore, users UserStore, log *logger.Logger, opts Options) *Service {
	if opts.Cache == nil {
		opts.Cache = cache.Noop{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		lessons:  lessons,
		users:    users,
		cache:    opts.Cache,
		cacheTTL: opts.CacheTTL,
		levels:   opts.Levels,
		now:      opts.Now,
		log:      log.With("service", "LessonService"),
	}
}

// Folders lists the level names present in the catalogue, in level order.
func (s *Service) Folders(ctx context.Context) ([]Folder, error) {
	var cached []Folder
	if ok, err := s.cache.Get(ctx, foldersKey, &cached); err != nil {
		s.log.Warn("folders cache read failed", "error", err)
	} else if ok {
		return cached, nil
	}

	all, err := s.lessons.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	var names []string
	orphans := false
	for _, l := range all {
		if l.ParentFolder == nil {
			orphans = true
			continue
		}
		name := s.LevelOf(l.Folder())
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	s.sortLevelNames(names)
	if orphans {
		names = append(names, Uncategorized)
	}

	folders := make([]Folder, 0, len(names))
	for _, n := range names {
		folders = append(folders, Folder{ID: n, Name: n})
	}
	if err := s.cache.Set(ctx, foldersKey, folders, s.cacheTTL); err != nil {
		s.log.Warn("folders cache write failed", "error", err)
	}
	return folders, nil
}

// Structure returns every level with its lessons ordered by lesson number.
func (s *Service) Structure(ctx context.Context) ([]Node, error) {
	var cached []Node
	if ok, err := s.cache.Get(ctx, structureKey, &cached); err != nil {
		s.log.Warn("structure cache read failed", "error", err)
	} else if ok {
		return cached, nil
	}

	all, err := s.lessons.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	byLevel := make(map[string][]models.Lesson)
	for _, l := range all {
		if l.ParentFolder == nil {
			continue
		}
		level := s.LevelOf(l.Folder())
		byLevel[level] = append(byLevel[level], l)
	}
	names := make([]string, 0, len(byLevel))
	for n := range byLevel {
		names = append(names, n)
	}
	s.sortLevelNames(names)

	tree := make([]Node, 0, len(names))
	for _, name := range names {
		items := byLevel[name]
		sort.SliceStable(items, func(i, j int) bool { return lessonNumberLess(items[i], items[j]) })
		children := make([]Node, 0, len(items))
		for _, l := range items {
			children = append(children, Node{
				ID:       "lesson:" + l.Path,
				Name:     l.Title,
				Type:     "file",
				Path:     l.Path,
				Filename: fileName(l.Path),
			})
		}
		tree = append(tree, Node{ID: "level:" + name, Name: name, Type: "folder", Children: children})
	}
	if err := s.cache.Set(ctx, structureKey, tree, s.cacheTTL); err != nil {
		s.log.Warn("structure cache write failed", "error", err)
	}
	return tree, nil
}

// Content returns a lesson by path and refreshes the reader's last activity.
func (s *Service) Content(ctx context.Context, lessonPath string, userID int64) (models.Lesson, error) {
	lessonPath = NormalizePath(lessonPath)
	if lessonPath == "" {
		return models.Lesson{}, apperr.Invalid("lesson path is empty")
	}

	key := cache.LessonContentKey(lessonPath)
	var lesson models.Lesson
	ok, err := s.cache.Get(ctx, key, &lesson)
	if err != nil {
		s.log.Warn("lesson cache read failed", "lesson_path", lessonPath, "error", err)
	}
	if !ok {
		lesson, err = s.lessons.FindByPath(ctx, lessonPath)
		if err != nil {
			return models.Lesson{}, err
		}
		if err := s.cache.Set(ctx, key, lesson, s.cacheTTL); err != nil {
			s.log.Warn("lesson cache write failed", "lesson_path", lessonPath, "error", err)
		}
	}

	if userID > 0 {
		if err := s.touchUser(ctx, userID); err != nil {
			s.log.Warn("failed to refresh last activity", "user_id", userID, "error", err)
		}
	}
	return lesson, nil
}

// Resolve returns the path of the first lesson whose title contains name.
func (s *Service) Resolve(ctx context.Context, name string) (string, error) {
	needle := strings.ToLower(strings.TrimSpace(name))
	if needle == "" {
		return "", apperr.Invalid("name is empty")
	}
	all, err := s.lessons.ListAll(ctx)
	if err != nil {
		return "", err
	}
	for _, l := range all {
		if strings.Contains(strings.ToLower(l.Title), needle) {
			return l.Path, nil
		}
	}
	return "", apperr.NotFound("link %q", name)
}

// Search returns lessons whose title or content contains q.
func (s *Service) Search(ctx context.Context, q string) ([]models.Lesson, error) {
	needle := strings.ToLower(strings.TrimSpace(q))
	if needle == "" {
		return nil, apperr.Invalid("query is empty")
	}
	all, err := s.lessons.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	out := []models.Lesson{}
	for _, l := range all {
		if strings.Contains(strings.ToLower(l.Title), needle) || strings.Contains(strings.ToLower(l.Content), needle) {
			out = append(out, l)
		}
	}
	return out, nil
}

// LevelOf maps a parent folder to its configured level, or to its first path segment.
func (s *Service) LevelOf(folder string) string {
	if folder == "" {
		return Uncategorized
	}
	for _, lvl := range s.levels {
		if prefix := levelPrefix(lvl.Label); prefix != "" && strings.HasPrefix(folder, prefix) {
			return lvl.Label
		}
	}
	if i := strings.Index(folder, "/"); i >= 0 {
		return folder[:i]
	}
	return folder
}

func (s *Service) rank(name string) int {
	for _, lvl := range s.levels {
		if lvl.Label == name {
			return lvl.Rank
		}
	}
	return 999
}

func (s *Service) sortLevelNames(names []string) {
	sort.SliceStable(names, func(i, j int) bool {
		ri, rj := s.rank(names[i]), s.rank(names[j])
		if ri != rj {
			return ri < rj
		}
		return names[i] < names[j]
	})
}

func (s *Service) touchUser(ctx context.Context, userID int64) error {
	now := s.now()
	user, err := s.users.FindByTelegramID(ctx, userID)
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		user = models.NewUser(userID, now)
	case err != nil:
		return err
	}
	user.LastActive = now
	_, err = s.users.Upsert(ctx, user)
	return err
}

// NormalizePath strips surrounding spaces and leading slashes.
func NormalizePath(p string) string {
	return strings.TrimLeft(strings.TrimSpace(p), "/")
}

// levelPrefix is the label without its parenthesized suffix.
func levelPrefix(label string) string {
	if i := strings.Index(label, "("); i > 0 {
		return strings.TrimSpace(label[:i])
	}
	return strings.TrimSpace(label)
}

func lessonNumberLess(a, b models.Lesson) bool {
	switch {
	case a.LessonNumber == nil:
		return false
	case b.LessonNumber == nil:
		return true
	default:
		return *a.LessonNumber < *b.LessonNumber
	}
}

func fileName(p string) string {
	if i := strings.LastIndex(p, "/"); i >= 0 {
		return p[i+1:]
	}
	return p
}
