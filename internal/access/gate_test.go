package access

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/lessonhub/internal/apperr"
	"github.com/example/lessonhub/internal/cache"
	"github.com/example/lessonhub/pkg/models"
)

var levels = []models.Level{
	{Label: "Начальный уровень (Бесплатно)", Rank: 1},
	{Label: "Средний уровень (Подписка)", Rank: 2, Premium: true},
	{Label: "Продвинутый уровень (Подписка)", Rank: 3, Premium: true},
	{Label: "Эксперт уровень (Подписка)", Rank: 4, Premium: true},
}

var now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

const adminID = 1000

type memUsers struct {
	users   map[int64]models.User
	upserts int
}

func newMemUsers(users ...models.User) *memUsers {
	m := &memUsers{users: make(map[int64]models.User)}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *memUsers) FindByTelegramID(_ context.Context, id int64) (models.User, error) {
	u, ok := m.users[id]
	if !ok {
		return models.User{}, apperr.NotFound("user %d", id)
	}
	return u, nil
}

func (m *memUsers) Upsert(_ context.Context, u models.User) (models.User, error) {
	m.upserts++
	m.users[u.ID] = u
	return u, nil
}

type fakeMembership struct {
	member bool
	err    error
	calls  int
}

func (f *fakeMembership) IsChannelMember(context.Context, int64) (bool, error) {
	f.calls++
	return f.member, f.err
}

func newGate(users *memUsers, membership MembershipChecker) *Gate {
	return NewGate(users, membership, nil, Options{
		Levels:         levels,
		PremiumMarkers: []string{"🎓"},
		AdminIDs:       []int64{adminID},
		Cache:          cache.NewMemory(),
		Now:            func() time.Time { return now },
	})
}

func TestIsPremiumLesson(t *testing.T) {
	g := newGate(newMemUsers(), nil)
	tests := []struct {
		path string
		want bool
	}{
		{"Продвинутый уровень (Подписка)/lesson3", true},
		{"Начальный уровень (Бесплатно)/lesson1", false},
		{"Средний уровень (Подписка)/Урок 1.md", true},
		{"misc/🎓 bonus.md", true},
		{"", false},
	}
	for _, tt := range tests {
		if got := g.IsPremiumLesson(tt.path); got != tt.want {
			t.Errorf("IsPremiumLesson(%q): got=%v want=%v", tt.path, got, tt.want)
		}
	}
}

func TestHasAccess(t *testing.T) {
	future := now.Add(time.Hour)
	past := now.Add(-time.Hour)
	users := newMemUsers(
		models.User{ID: 1, PremiumAccess: true},
		models.User{ID: 2, SubscriptionExpiresAt: &future},
		models.User{ID: 3, SubscriptionExpiresAt: &past},
		models.User{ID: 4},
	)
	g := newGate(users, nil)
	premium := "Средний уровень (Подписка)/1.md"
	free := "Начальный уровень (Бесплатно)/1.md"

	tests := []struct {
		name string
		user int64
		path string
		want bool
	}{
		{"free without user", 0, free, true},
		{"premium without user", 0, premium, false},
		{"premium flag", 1, premium, true},
		{"active subscription", 2, premium, true},
		{"expired subscription", 3, premium, false},
		{"plain user", 4, premium, false},
		{"unknown user", 99, premium, false},
		{"admin", adminID, premium, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := g.HasAccess(context.Background(), tt.user, tt.path)
			if err != nil {
				t.Fatalf("HasAccess: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got=%v want=%v", got, tt.want)
			}
		})
	}

	res, _ := g.CheckAccess(context.Background(), 4, premium)
	if res != (Result{HasAccess: false, IsPremiumContent: true, RequiresSubscription: true}) {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestGrantAndRevoke(t *testing.T) {
	ctx := context.Background()
	users := newMemUsers()
	g := newGate(users, nil)
	premium := "Эксперт уровень (Подписка)/1.md"

	u, err := g.GrantPremium(ctx, adminID, 5, 10)
	if err != nil {
		t.Fatalf("grant: %v", err)
	}
	if !u.PremiumAccess || !u.Subscribed || u.SubscriptionExpiresAt == nil || !u.SubscriptionExpiresAt.Equal(now.AddDate(0, 0, 10)) {
		t.Fatalf("unexpected user after grant: %+v", u)
	}
	if ok, _ := g.HasAccess(ctx, 5, premium); !ok {
		t.Fatal("granted user must have access")
	}
	if _, err := g.GrantPremium(ctx, adminID, 5, 10); err != nil {
		t.Fatalf("grant must be idempotent: %v", err)
	}

	u, err = g.RevokePremium(ctx, adminID, 5)
	if err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if u.PremiumAccess || u.Subscribed || u.SubscriptionExpiresAt == nil || !u.SubscriptionExpiresAt.Equal(now) {
		t.Fatalf("unexpected user after revoke: %+v", u)
	}
	if ok, _ := g.HasAccess(ctx, 5, premium); ok {
		t.Fatal("revoke must take effect immediately")
	}
}

func TestAdminOperationsRejectNonAdmins(t *testing.T) {
	ctx := context.Background()
	users := newMemUsers()
	g := newGate(users, nil)

	if _, err := g.GrantPremium(ctx, 5, 5, 30); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Fatalf("grant: expected ErrUnauthorized, got %v", err)
	}
	if _, err := g.RevokePremium(ctx, 5, 6); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Fatalf("revoke: expected ErrUnauthorized, got %v", err)
	}
	if users.upserts != 0 {
		t.Fatal("rejected calls must not mutate")
	}
	if _, err := g.GrantPremium(ctx, adminID, 5, 0); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Fatalf("zero days: expected ErrInvalidInput, got %v", err)
	}
}

func TestSubscriptionStatus(t *testing.T) {
	ctx := context.Background()
	users := newMemUsers()
	membership := &fakeMembership{member: true}
	g := newGate(users, membership)

	st, err := g.SubscriptionStatus(ctx, 7)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !st.Subscribed || !st.Verified || st.ExpiresAt == nil || !st.ExpiresAt.Equal(now.Add(DefaultStatusTTL)) {
		t.Fatalf("unexpected status: %+v", st)
	}
	u := users.users[7]
	if !u.Subscribed || u.SubscriptionVerifiedAt == nil || u.SubscriptionStartedAt == nil {
		t.Fatalf("user must record the verification: %+v", u)
	}

	if _, err := g.SubscriptionStatus(ctx, 7); err != nil {
		t.Fatalf("cached status: %v", err)
	}
	if membership.calls != 1 {
		t.Fatalf("second call must be served from cache, calls=%d", membership.calls)
	}
}

func TestSubscriptionStatusFallsBackToStoredFlags(t *testing.T) {
	future := now.Add(24 * time.Hour)
	users := newMemUsers(models.User{ID: 8, SubscriptionExpiresAt: &future})
	g := newGate(users, &fakeMembership{err: errors.New("telegram down")})

	st, err := g.SubscriptionStatus(context.Background(), 8)
	if err != nil {
		t.Fatalf("membership failures must not surface: %v", err)
	}
	if !st.Subscribed {
		t.Fatal("active stored subscription must count")
	}

	noBot := newGate(newMemUsers(), nil)
	st, err = noBot.SubscriptionStatus(context.Background(), 9)
	if err != nil || st.Subscribed {
		t.Fatalf("without a bot unknown users are not subscribed: %+v %v", st, err)
	}
}

func TestHandleVerification(t *testing.T) {
	ctx := context.Background()
	users := newMemUsers(models.User{ID: 3})
	g := newGate(users, nil)

	if _, err := g.HandleVerification(ctx, 404, true); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	u, err := g.HandleVerification(ctx, 3, true)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !u.Subscribed || u.SubscriptionExpiresAt == nil || !u.SubscriptionExpiresAt.Equal(now.AddDate(0, 0, 30)) {
		t.Fatalf("unexpected verified user: %+v", u)
	}

	u, err = g.HandleVerification(ctx, 3, false)
	if err != nil {
		t.Fatalf("unverify: %v", err)
	}
	if u.Subscribed || u.SubscriptionVerifiedAt != nil {
		t.Fatalf("unexpected unverified user: %+v", u)
	}
}
