package progress

import (
	"sync"
	"time"

	"github.com/example/lessonhub/internal/engagement"
)

// ActivityWindow is the longest pause between scroll reports still counted as reading.
const ActivityWindow = 30 * time.Second

// Key identifies an active reading session.
type Key struct {
	UserID     int64
	LessonPath string
}

// Session is the in-memory state of one user reading one lesson.
type Session struct {
	UserID           int64     `json:"telegramId"`
	LessonPath       string    `json:"lessonPath"`
	StartTime        time.Time `json:"startTime"`
	LastActivityTime time.Time `json:"lastActivityTime"`
	ActiveTime       int64     `json:"activeTime"` // milliseconds
	ScrollProgress   int       `json:"scrollProgress"`
	WordCount        int       `json:"wordCount"`
	EngagementPoints int       `json:"engagementPoints"`
}

// Tracker holds active sessions. All methods are safe for concurrent use.
type Tracker struct {
	mu       sync.Mutex
	sessions map[Key]*Session
	now      func() time.Time
}

func NewTracker(now func() time.Time) *Tracker {
	if now == nil {
		now = time.Now
	}
	return &Tracker{sessions: make(map[Key]*Session), now: now}
}

// Start stores a fresh session, replacing any unfinished one for the same key.
func (t *Tracker) Start(userID int64, lessonPath string, wordCount int) Session {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	s := &Session{
		UserID:           userID,
		LessonPath:       lessonPath,
		StartTime:        now,
		LastActivityTime: now,
		WordCount:        wordCount,
	}
	t.sessions[Key{UserID: userID, LessonPath: lessonPath}] = s
	return *s
}

// UpdateScroll records a scroll report. Reports false when no session is active.
func (t *Tracker) UpdateScroll(userID int64, lessonPath string, scrollPercent int) (Session, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.sessions[Key{UserID: userID, LessonPath: lessonPath}]
	if !ok {
		return Session{}, false
	}

	now := t.now()
	if gap := now.Sub(s.LastActivityTime); gap > 0 && gap < ActivityWindow {
		s.ActiveTime += gap.Milliseconds()
	}
	if scrollPercent > s.ScrollProgress {
		s.ScrollProgress = scrollPercent
	}
	if points := engagement.MilestonePoints(s.ScrollProgress); points > s.EngagementPoints {
		s.EngagementPoints = points
	}
	s.LastActivityTime = now
	return *s, true
}

// End removes the session and returns it with the trailing gap added to ActiveTime.
func (t *Tracker) End(userID int64, lessonPath string) (Session, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := Key{UserID: userID, LessonPath: lessonPath}
	s, ok := t.sessions[key]
	if !ok {
		return Session{}, false
	}
	delete(t.sessions, key)

	if gap := t.now().Sub(s.LastActivityTime); gap > 0 {
		s.ActiveTime += gap.Milliseconds()
	}
	return *s, true
}

// Get returns a copy of the active session.
func (t *Tracker) Get(userID int64, lessonPath string) (Session, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.sessions[Key{UserID: userID, LessonPath: lessonPath}]
	if !ok {
		return Session{}, false
	}
	return *s, true
}

// Reap drops sessions idle for longer than ttl and returns how many were dropped.
func (t *Tracker) Reap(ttl time.Duration) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	n := 0
	for key, s := range t.sessions {
		if now.Sub(s.LastActivityTime) > ttl {
			delete(t.sessions, key)
			n++
		}
	}
	return n
}

// Len returns the number of active sessions.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.sessions)
}
