// Package access decides which lessons are premium and who may read them.
package access

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/lessonhub/internal/apperr"
	"github.com/example/lessonhub/internal/cache"
	"github.com/example/lessonhub/internal/logger"
	"github.com/example/lessonhub/pkg/models"
)

const (
	DefaultStatusTTL        = 5 * time.Minute
	DefaultVerificationDays = 30
)

type UserStore interface {
	FindByTelegramID(ctx context.Context, telegramID int64) (models.User, error)
	Upsert(ctx context.Context, user models.User) (models.User, error)
}

// MembershipChecker reports whether a user is a member of the subscription channel.
type MembershipChecker interface {
	IsChannelMember(ctx context.Context, userID int64) (bool, error)
}

// Result is the access decision for one lesson.
type Result struct {
	HasAccess            bool `json:"hasAccess"`
	IsPremiumContent     bool `json:"isPremiumContent"`
	RequiresSubscription bool `json:"requiresSubscription"`
}

// Status is the verified subscription state of a user.
type Status struct {
	TelegramID int64      `json:"telegramId"`
	Subscribed bool       `json:"subscribed"`
	Verified   bool       `json:"verified"`
	VerifiedAt *time.Time `json:"verifiedAt,omitempty"`
	ExpiresAt  *time.Time `json:"expiresAt,omitempty"`
}

type Options struct {
	Levels         []models.Level
	PremiumMarkers []string
	AdminIDs       []int64
	Cache          cache.Cache
	StatusTTL      time.Duration
	Now            func() time.Time
}

type Gate struct {
	users      UserStore
	membership MembershipChecker
	markers    []string
	admins     map[int64]struct{}
	cache      cache.Cache
	statusTTL  time.Duration
	now        func() time.Time
	log        *logger.Logger
}

func NewGate(users UserStore, membership MembershipChecker, log *logger.Logger, opts Options) *Gate {
	if opts.Cache == nil {
		opts.Cache = cache.Noop{}
	}
	if opts.StatusTTL <= 0 {
		opts.StatusTTL = DefaultStatusTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if log == nil {
		log = logger.Nop()
	}
	if membership == nil {
		membership = noMembership{}
	}

	var markers []string
	for _, lvl := range opts.Levels {
		if lvl.Premium {
			markers = append(markers, lvl.Label)
		}
	}
	for _, m := range opts.PremiumMarkers {
		if m = strings.TrimSpace(m); m != "" {
			markers = append(markers, m)
		}
	}
	admins := make(map[int64]struct{}, len(opts.AdminIDs))
	for _, id := range opts.AdminIDs {
		admins[id] = struct{}{}
	}

	return &Gate{
		users:      users,
		membership: membership,
		markers:    markers,
		admins:     admins,
		cache:      opts.Cache,
		statusTTL:  opts.StatusTTL,
		now:        opts.Now,
		log:        log.With("service", "AccessGate"),
	}
}

// IsPremiumLesson reports whether the path contains any premium marker.
func (g *Gate) IsPremiumLesson(lessonPath string) bool {
	if lessonPath == "" {
		return false
	}
	for _, m := range g.markers {
		if strings.Contains(lessonPath, m) {
			return true
		}
	}
	return false
}

func (g *Gate) IsAdmin(userID int64) bool {
	_, ok := g.admins[userID]
	return ok
}

// HasAccess reports whether the user may read the lesson. Unknown users only see free lessons.
func (g *Gate) HasAccess(ctx context.Context, userID int64, lessonPath string) (bool, error) {
	if !g.IsPremiumLesson(lessonPath) {
		return true, nil
	}
	if userID <= 0 {
		return false, nil
	}
	if g.IsAdmin(userID) {
		return true, nil
	}
	user, err := g.users.FindByTelegramID(ctx, userID)
	if errors.Is(err, apperr.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return user.PremiumAccess || user.SubscriptionActive(g.now()), nil
}

// CheckAccess returns the full access decision for a lesson.
func (g *Gate) CheckAccess(ctx context.Context, userID int64, lessonPath string) (Result, error) {
	premium := g.IsPremiumLesson(lessonPath)
	ok, err := g.HasAccess(ctx, userID, lessonPath)
	if err != nil {
		return Result{}, err
	}
	return Result{
		HasAccess:            ok,
		IsPremiumContent:     premium,
		RequiresSubscription: premium && !ok,
	}, nil
}

// GrantPremium gives the user premium access for the given number of days.
func (g *Gate) GrantPremium(ctx context.Context, actorID, userID int64, days int) (models.User, error) {
	if !g.IsAdmin(actorID) {
		return models.User{}, fmt.Errorf("grant premium by %d: %w", actorID, apperr.ErrUnauthorized)
	}
	if userID <= 0 {
		return models.User{}, apperr.Invalid("telegram id %d", userID)
	}
	if days <= 0 {
		return models.User{}, apperr.Invalid("days must be positive, got %d", days)
	}

	now := g.now()
	user, err := g.loadOrNew(ctx, userID, now)
	if err != nil {
		return models.User{}, err
	}
	expires := now.AddDate(0, 0, days)
	user.PremiumAccess = true
	user.Subscribed = true
	user.SubscriptionStartedAt = &now
	user.SubscriptionExpiresAt = &expires

	stored, err := g.users.Upsert(ctx, user)
	if err != nil {
		return models.User{}, err
	}
	g.invalidateStatus(ctx, userID)
	g.log.Info("premium access granted", "admin_id", actorID, "user_id", userID, "days", days)
	return stored, nil
}

// RevokePremium removes premium access with immediate effect.
func (g *Gate) RevokePremium(ctx context.Context, actorID, userID int64) (models.User, error) {
	if !g.IsAdmin(actorID) {
		return models.User{}, fmt.Errorf("revoke premium by %d: %w", actorID, apperr.ErrUnauthorized)
	}
	if userID <= 0 {
		return models.User{}, apperr.Invalid("telegram id %d", userID)
	}

	now := g.now()
	user, err := g.loadOrNew(ctx, userID, now)
	if err != nil {
		return models.User{}, err
	}
	user.PremiumAccess = false
	user.Subscribed = false
	user.SubscriptionExpiresAt = &now

	stored, err := g.users.Upsert(ctx, user)
	if err != nil {
		return models.User{}, err
	}
	g.invalidateStatus(ctx, userID)
	g.log.Info("premium access revoked", "admin_id", actorID, "user_id", userID)
	return stored, nil
}

// SubscriptionStatus verifies channel membership, falling back to stored flags when the check fails.
func (g *Gate) SubscriptionStatus(ctx context.Context, userID int64) (Status, error) {
	if userID <= 0 {
		return Status{}, apperr.Invalid("telegram id %d", userID)
	}

	key := cache.SubscriptionStatusKey(userID)
	var cached Status
	if ok, err := g.cache.Get(ctx, key, &cached); err != nil {
		g.log.Warn("subscription cache read failed", "user_id", userID, "error", err)
	} else if ok {
		return cached, nil
	}

	now := g.now()
	user, err := g.loadOrNew(ctx, userID, now)
	if err != nil {
		return Status{}, err
	}

	subscribed, err := g.membership.IsChannelMember(ctx, userID)
	if err != nil {
		g.log.Warn("channel membership check failed, using stored flags", "user_id", userID, "error", err)
		subscribed = user.PremiumAccess || user.SubscriptionActive(now)
	}

	user.Subscribed = subscribed
	user.SubscriptionVerifiedAt = &now
	if subscribed && user.SubscriptionStartedAt == nil {
		user.SubscriptionStartedAt = &now
	}
	if _, err := g.users.Upsert(ctx, user); err != nil {
		return Status{}, err
	}

	expires := now.Add(g.statusTTL)
	status := Status{
		TelegramID: userID,
		Subscribed: subscribed,
		Verified:   true,
		VerifiedAt: &now,
		ExpiresAt:  &expires,
	}
	if err := g.cache.Set(ctx, key, status, g.statusTTL); err != nil {
		g.log.Warn("subscription cache write failed", "user_id", userID, "error", err)
	}
	return status, nil
}

// HandleVerification applies the result of an external subscription check.
func (g *Gate) HandleVerification(ctx context.Context, userID int64, verified bool) (models.User, error) {
	if userID <= 0 {
		return models.User{}, apperr.Invalid("telegram id %d", userID)
	}
	user, err := g.users.FindByTelegramID(ctx, userID)
	if err != nil {
		return models.User{}, err
	}

	now := g.now()
	if verified {
		user.Subscribed = true
		user.SubscriptionVerifiedAt = &now
		if user.SubscriptionStartedAt == nil {
			user.SubscriptionStartedAt = &now
		}
		if user.SubscriptionExpiresAt == nil {
			expires := now.AddDate(0, 0, DefaultVerificationDays)
			user.SubscriptionExpiresAt = &expires
		}
	} else {
		user.Subscribed = false
		user.SubscriptionVerifiedAt = nil
	}

	stored, err := g.users.Upsert(ctx, user)
	if err != nil {
		return models.User{}, err
	}
	g.invalidateStatus(ctx, userID)
	g.log.Info("subscription verification handled", "user_id", userID, "verified", verified)
	return stored, nil
}

func (g *Gate) loadOrNew(ctx context.Context, userID int64, now time.Time) (models.User, error) {
	user, err := g.users.FindByTelegramID(ctx, userID)
	if errors.Is(err, apperr.ErrNotFound) {
		return models.NewUser(userID, now), nil
	}
	return user, err
}

func (g *Gate) invalidateStatus(ctx context.Context, userID int64) {
	if err := g.cache.Delete(ctx, cache.SubscriptionStatusKey(userID)); err != nil {
		g.log.Warn("failed to invalidate subscription cache", "user_id", userID, "error", err)
	}
}

type noMembership struct{}

func (noMembership) IsChannelMember(context.Context, int64) (bool, error) {
	return false, fmt.Errorf("membership check: %w", apperr.ErrUnavailable)
}
