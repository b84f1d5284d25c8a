package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/lessonhub/internal/access"
	"github.com/example/lessonhub/internal/auth"
	"github.com/example/lessonhub/internal/bot"
	"github.com/example/lessonhub/internal/cache"
	"github.com/example/lessonhub/internal/config"
	"github.com/example/lessonhub/internal/database"
	apihttp "github.com/example/lessonhub/internal/http"
	httpH "github.com/example/lessonhub/internal/http/handlers"
	httpMW "github.com/example/lessonhub/internal/http/middleware"
	"github.com/example/lessonhub/internal/lessons"
	"github.com/example/lessonhub/internal/logger"
	"github.com/example/lessonhub/internal/progress"
	"github.com/example/lessonhub/internal/scheduler"
	"github.com/example/lessonhub/internal/statistics"
	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

// notifier is what the services need from Telegram
type notifier interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
	SendToChannel(ctx context.Context, text string) error
	IsChannelMember(ctx context.Context, userID int64) (bool, error)
}

func main() {
	config.LoadDotEnv()

	log, err := logger.New(os.Getenv("LOG_MODE"))
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	cfg := config.Load(log)
	if cfg.LogMode == "production" || cfg.LogMode == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Создаем контекст с отменой по сигналу
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(database.Options{Type: cfg.DBType, Path: cfg.DBPath, DatabaseURL: cfg.DatabaseURL})
	if err != nil {
		log.Fatal("failed to connect to database", "error", err)
	}
	defer db.Close()

	users := database.NewUserRepository(db)
	progressRepo := database.NewUserProgressRepository(db)
	lessonRepo := database.NewLessonRepository(db)
	events := database.NewEventRepository(db)

	memory := cache.NewMemory()
	go memory.Start()
	defer memory.Stop()
	var store cache.Cache = memory
	if cfg.RedisAddr != "" {
		redisCache, err := cache.NewRedis(ctx, cfg.RedisAddr)
		if err != nil {
			log.Warn("redis unavailable, using in-process cache", "addr", cfg.RedisAddr, "error", err)
		} else {
			defer redisCache.Close()
			store = redisCache
		}
	}

	var (
		tg     notifier = bot.Noop{}
		tgAPI  bot.API
		botAPI *bot.Telegram
	)
	if cfg.BotToken != "" {
		api, err := bot.NewBotAPI(cfg.BotToken)
		if err != nil {
			log.Error("telegram disabled", "error", err)
		} else {
			log.Info("authorized on telegram", "account", api.Self.UserName)
			tgAPI = api
			botAPI = bot.NewTelegram(api, cfg.ChannelID, log)
			tg = botAPI
		}
	} else {
		log.Warn("TELEGRAM_BOT_TOKEN is not set, bot and notifications disabled")
	}

	admins := make([]int64, 0, len(cfg.AdminIDs))
	for id := range cfg.AdminIDs {
		admins = append(admins, id)
	}

	progressSvc := progress.NewService(progress.Deps{
		Progress: progressRepo,
		Users:    users,
		Events:   events,
		Lessons:  lessonRepo,
		Notifier: tg,
		Cache:    store,
		Log:      log,
	})
	statsSvc := statistics.NewService(progressRepo, users, log, statistics.Options{
		Cache:    store,
		CacheTTL: cfg.CacheTTL,
		Levels:   cfg.Levels,
		Location: time.Local,
	})
	gate := access.NewGate(users, tg, log, access.Options{
		Levels:         cfg.Levels,
		PremiumMarkers: cfg.PremiumMarkers,
		AdminIDs:       admins,
		Cache:          store,
	})
	lessonSvc := lessons.NewService(lessonRepo, users, log, lessons.Options{
		Cache:    store,
		CacheTTL: cfg.CacheTTL,
		Levels:   cfg.Levels,
	})
	importer := lessons.NewImporter(lessonRepo, tg, store, log)

	validator := auth.NewValidator(cfg.BotToken, auth.Options{
		MaxAge:        cfg.InitDataMaxAge,
		SkipSignature: cfg.AuthSkipSignature,
	})
	if cfg.AuthSkipSignature {
		log.Warn("AUTH_SKIP_SIGNATURE is on, init data signatures are not checked")
	}

	server := apihttp.NewServer(cfg.HTTPAddr, apihttp.RouterConfig{
		Log:                 log,
		AuthMiddleware:      httpMW.NewAuthMiddleware(log, validator, gate.IsAdmin),
		HealthHandler:       httpH.NewHealthHandler(),
		ProgressHandler:     httpH.NewProgressHandler(progressSvc, gate.IsAdmin),
		StatisticsHandler:   httpH.NewStatisticsHandler(statsSvc, gate.IsAdmin),
		SubscriptionHandler: httpH.NewSubscriptionHandler(gate),
		LessonHandler:       httpH.NewLessonHandler(lessonSvc, gate),
		UploadHandler:       httpH.NewUploadHandler(importer),
		ReportHandler:       httpH.NewReportHandler(statsSvc),
	})

	jobs := scheduler.New(progressSvc, users, tg, log, scheduler.Options{
		SessionIdleTTL: cfg.SessionIdleTTL,
		StartHour:      cfg.NotificationStartHour,
		EndHour:        cfg.NotificationEndHour,
		Location:       time.Local,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return server.Run(gctx) })
	g.Go(func() error { return jobs.Run(gctx) })
	if botAPI != nil {
		g.Go(func() error { return botAPI.Run(gctx) })
	}
	if tgAPI != nil {
		chatBot := bot.New(tgAPI, users, statsSvc, log)
		g.Go(func() error { return chatBot.Run(gctx) })
	}

	log.Info("lessonhub started", "addr", cfg.HTTPAddr, "db", cfg.DBType, "admins", len(admins))
	if err := g.Wait(); err != nil {
		log.Error("stopped with error", "error", err)
		return
	}
	log.Info("lessonhub stopped")
}
