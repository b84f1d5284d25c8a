package lessons

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
	"gopkg.in/yaml.v3"

	"github.com/example/lessonhub/pkg/models"
)

var lessonNumberRe = regexp.MustCompile(`(?i)урок\s+(\d+)`)

// NewRenderer returns the markdown renderer used for lesson HTML.
func NewRenderer() goldmark.Markdown {
	return goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			highlighting.NewHighlighting(
				highlighting.WithStyle("monokai"),
			),
		),
		goldmark.WithRendererOptions(
			html.WithUnsafe(),
		),
	)
}

// Document is a parsed markdown file.
type Document struct {
	Title        string
	Body         string
	HTML         string
	Frontmatter  models.JSONMap
	WordCount    int
	LessonNumber *int
	FileHash     string
}

// Parse splits frontmatter from the body and renders the body to HTML.
func Parse(md goldmark.Markdown, fileName string, raw []byte) (Document, error) {
	content := strings.TrimPrefix(string(raw), "\ufeff")

	fm, body, err := splitFrontmatter(content)
	if err != nil {
		return Document{}, fmt.Errorf("%s: %w", fileName, err)
	}

	var buf bytes.Buffer
	if err := md.Convert([]byte(body), &buf); err != nil {
		return Document{}, fmt.Errorf("%s: render markdown: %w", fileName, err)
	}

	title := strings.TrimSuffix(path.Base(fileName), ".md")
	if t, ok := fm["title"]; ok && t != nil {
		if s := strings.TrimSpace(fmt.Sprint(t)); s != "" {
			title = s
		}
	}

	sum := sha256.Sum256(raw)
	return Document{
		Title:        title,
		Body:         body,
		HTML:         buf.String(),
		Frontmatter:  fm,
		WordCount:    len(strings.Fields(body)),
		LessonNumber: LessonNumber(title),
		FileHash:     hex.EncodeToString(sum[:]),
	}, nil
}

// LessonNumber extracts N from "Урок N" in a title.
func LessonNumber(title string) *int {
	m := lessonNumberRe.FindStringSubmatch(title)
	if m == nil {
		return nil
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return nil
	}
	return &n
}

func splitFrontmatter(content string) (models.JSONMap, string, error) {
	fm := models.JSONMap{}
	normalized := strings.ReplaceAll(content, "\r\n", "\n")
	if !strings.HasPrefix(normalized, "---\n") {
		return fm, strings.TrimSpace(normalized), nil
	}
	rest := normalized[len("---\n"):]
	end := strings.Index(rest, "\n---")
	if end < 0 {
		return fm, strings.TrimSpace(normalized), nil
	}
	if err := yaml.Unmarshal([]byte(rest[:end]), &fm); err != nil {
		return nil, "", fmt.Errorf("parse frontmatter: %w", err)
	}
	if fm == nil {
		fm = models.JSONMap{}
	}
	body := rest[end+len("\n---"):]
	return fm, strings.TrimSpace(body), nil
}
