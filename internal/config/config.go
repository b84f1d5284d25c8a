package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/example/lessonhub/internal/logger"
	"github.com/example/lessonhub/pkg/models"
)

// Значения по умолчанию
const (
	DefaultHTTPAddr              = ":8080"
	DefaultDBType                = "sqlite"
	DefaultDBPath                = "data/lessons.db"
	DefaultSessionIdleTTL        = 2 * time.Hour
	DefaultCacheTTL              = 10 * time.Minute
	DefaultInitDataMaxAge        = 24 * time.Hour
	DefaultNotificationStartHour = 9
	DefaultNotificationEndHour   = 21
	DefaultPremiumMarker         = "🎓"
	UncategorizedFolder          = "Без категории"
)

// DefaultLevels are the four lesson levels of the catalogue, ordered by rank.
var DefaultLevels = []models.Level{
	{Label: "Начальный уровень (Бесплатно)", Rank: 1, Premium: false},
	{Label: "Средний уровень (Подписка)", Rank: 2, Premium: true},
	{Label: "Продвинутый уровень (Подписка)", Rank: 3, Premium: true},
	{Label: "Эксперт уровень (Подписка)", Rank: 4, Premium: true},
}

type Config struct {
	HTTPAddr              string
	DBType                string
	DBPath                string
	DatabaseURL           string
	RedisAddr             string
	BotToken              string
	ChannelID             string
	AdminIDs              map[int64]struct{}
	Levels                []models.Level
	PremiumMarkers        []string
	SessionIdleTTL        time.Duration
	CacheTTL              time.Duration
	NotificationStartHour int
	NotificationEndHour   int
	LogMode               string
	InitDataMaxAge        time.Duration
	AuthSkipSignature     bool
}

// LoadDotEnv reads .env into the process environment. A missing file is fine.
func LoadDotEnv(paths ...string) {
	_ = godotenv.Load(paths...)
}

// Load reads the configuration from the environment. Invalid values fall back to defaults.
func Load(log *logger.Logger) Config {
	if log == nil {
		log = logger.Nop()
	}
	log = log.With("service", "config")

	cfg := Config{
		HTTPAddr:              getString("HTTP_ADDR", DefaultHTTPAddr),
		DBType:                strings.ToLower(getString("DB_TYPE", DefaultDBType)),
		DBPath:                getString("DB_PATH", DefaultDBPath),
		DatabaseURL:           os.Getenv("DATABASE_URL"),
		RedisAddr:             strings.TrimSpace(os.Getenv("REDIS_ADDR")),
		BotToken:              strings.TrimSpace(os.Getenv("TELEGRAM_BOT_TOKEN")),
		ChannelID:             strings.TrimSpace(os.Getenv("TELEGRAM_CHANNEL_ID")),
		AdminIDs:              parseAdminIDs(log, os.Getenv("ADMIN_USER_IDS")),
		Levels:                DefaultLevels,
		PremiumMarkers:        []string{DefaultPremiumMarker},
		SessionIdleTTL:        getDuration(log, "SESSION_IDLE_TTL", DefaultSessionIdleTTL),
		CacheTTL:              getDuration(log, "CACHE_TTL", DefaultCacheTTL),
		NotificationStartHour: getHour(log, "NOTIFICATION_START_HOUR", DefaultNotificationStartHour),
		NotificationEndHour:   getHour(log, "NOTIFICATION_END_HOUR", DefaultNotificationEndHour),
		LogMode:               getString("LOG_MODE", "development"),
		InitDataMaxAge:        getDuration(log, "INIT_DATA_MAX_AGE", DefaultInitDataMaxAge),
		AuthSkipSignature:     getBool(log, "AUTH_SKIP_SIGNATURE", false),
	}

	if cfg.DBType != "sqlite" && cfg.DBType != "postgres" {
		log.Warn("unknown DB_TYPE, using default", "value", cfg.DBType, "default", DefaultDBType)
		cfg.DBType = DefaultDBType
	}

	if raw := strings.TrimSpace(os.Getenv("LESSON_LEVELS")); raw != "" {
		if levels, err := ParseLevels(raw); err != nil {
			log.Warn("invalid LESSON_LEVELS, using defaults", "error", err)
		} else {
			cfg.Levels = levels
		}
	}

	if raw := strings.TrimSpace(os.Getenv("PREMIUM_MARKERS")); raw != "" {
		cfg.PremiumMarkers = splitList(raw, ",")
	}

	return cfg
}

// IsAdmin reports whether the Telegram id is configured as an administrator.
func (c Config) IsAdmin(id int64) bool {
	_, ok := c.AdminIDs[id]
	return ok
}

// ParseLevels parses "label|rank|premium" entries separated by ';'.
func ParseLevels(raw string) ([]models.Level, error) {
	var levels []models.Level
	for _, entry := range splitList(raw, ";") {
		parts := strings.Split(entry, "|")
		if len(parts) != 3 {
			return nil, &levelError{entry: entry, reason: "expected label|rank|premium"}
		}
		label := strings.TrimSpace(parts[0])
		if label == "" {
			return nil, &levelError{entry: entry, reason: "empty label"}
		}
		rank, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil {
			return nil, &levelError{entry: entry, reason: "rank is not a number"}
		}
		premium, err := strconv.ParseBool(strings.TrimSpace(parts[2]))
		if err != nil {
			return nil, &levelError{entry: entry, reason: "premium is not a bool"}
		}
		levels = append(levels, models.Level{Label: label, Rank: rank, Premium: premium})
	}
	if len(levels) == 0 {
		return nil, &levelError{entry: raw, reason: "no levels"}
	}
	return levels, nil
}

type levelError struct {
	entry  string
	reason string
}

func (e *levelError) Error() string {
	return "level " + strconv.Quote(e.entry) + ": " + e.reason
}

func parseAdminIDs(log *logger.Logger, raw string) map[int64]struct{} {
	ids := make(map[int64]struct{})
	for _, idStr := range splitList(raw, ",") {
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			log.Warn("skipping invalid admin id", "value", idStr, "error", err)
			continue
		}
		ids[id] = struct{}{}
	}
	return ids
}

func splitList(raw, sep string) []string {
	var out []string
	for _, part := range strings.Split(raw, sep) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getDuration(log *logger.Logger, key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		log.Warn("invalid duration, using default", "key", key, "value", v, "default", def.String())
		return def
	}
	return d
}

func getHour(log *logger.Logger, key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	h, err := strconv.Atoi(v)
	if err != nil || h < 0 || h > 23 {
		log.Warn("invalid hour, using default", "key", key, "value", v, "default", def)
		return def
	}
	return h
}

func getBool(log *logger.Logger, key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Warn("invalid bool, using default", "key", key, "value", v, "default", def)
		return def
	}
	return b
}
