package models

import "time"

// Lesson is a markdown document rendered for the reader
type Lesson struct {
	ID           int64     `json:"id" db:"id"`
	Path         string    `json:"path" db:"path"`
	Title        string    `json:"title" db:"title"`
	Content      string    `json:"content" db:"content"`
	HTMLContent  string    `json:"htmlContent" db:"html_content"`
	Frontmatter  JSONMap   `json:"frontmatter" db:"frontmatter"`
	WordCount    int       `json:"wordCount" db:"word_count"`
	ParentFolder *string   `json:"parentFolder,omitempty" db:"parent_folder"`
	LessonNumber *int      `json:"lessonNumber,omitempty" db:"lesson_number"`
	FileHash     string    `json:"fileHash" db:"file_hash"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}

// Folder returns the parent folder or an empty string
func (l Lesson) Folder() string {
	if l.ParentFolder == nil {
		return ""
	}
	return *l.ParentFolder
}
