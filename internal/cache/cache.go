// Package cache is an optional key-value layer. Missing or failing caches never change results.
package cache

import (
	"context"
	"strconv"
	"time"
)

// Key prefixes
const (
	PrefixLessonContent      = "lesson:content:"
	PrefixLessonStructure    = "lesson:structure"
	PrefixUserStats          = "user:stats:"
	PrefixSubscriptionStatus = "subscription:status:"
)

type Cache interface {
	// Get decodes the cached value into dest. Reports false on a miss.
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	DeletePrefix(ctx context.Context, prefix string) error
}

func LessonContentKey(path string) string {
	return PrefixLessonContent + path
}

func UserStatsKey(userID int64) string {
	return PrefixUserStats + strconv.FormatInt(userID, 10)
}

func SubscriptionStatusKey(userID int64) string {
	return PrefixSubscriptionStatus + strconv.FormatInt(userID, 10)
}

// Noop never stores anything.
type Noop struct{}

func (Noop) Get(context.Context, string, any) (bool, error) { return false, nil }
func (Noop) Set(context.Context, string, any, time.Duration) error { return nil }
func (Noop) Delete(context.Context, ...string) error { return nil }
func (Noop) DeletePrefix(context.Context, string) error { return nil }
