package http

import (
	httpH "github.com/example/lessonhub/internal/http/handlers"
	httpMW "github.com/example/lessonhub/internal/http/middleware"
	"github.com/example/lessonhub/internal/logger"
	"github.com/gin-gonic/gin"
)

type RouterConfig struct {
	Log            *logger.Logger
	AuthMiddleware *httpMW.AuthMiddleware

	HealthHandler       *httpH.HealthHandler
	ProgressHandler     *httpH.ProgressHandler
	StatisticsHandler   *httpH.StatisticsHandler
	SubscriptionHandler *httpH.SubscriptionHandler
	LessonHandler       *httpH.LessonHandler
	UploadHandler       *httpH.UploadHandler
	ReportHandler       *httpH.ReportHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpMW.RequestID())
	r.Use(httpMW.CORS())
	r.Use(httpMW.RequestLogger(cfg.Log))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")
	api.Use(cfg.AuthMiddleware.Identify())

	if h := cfg.ProgressHandler; h != nil {
		p := api.Group("/progress")
		p.POST("/session/start", h.StartSession)
		p.POST("/session/scroll", h.UpdateScroll)
		p.POST("/session/end", h.EndSession)
		p.GET("/metrics", h.GetMetrics)
		p.POST("/track", h.Track)
		p.GET("/user/:telegramId", h.ListUserProgress)
		p.POST("/event", h.TrackEvent)
	}

	if h := cfg.StatisticsHandler; h != nil {
		s := api.Group("/statistics")
		s.GET("/user/:telegramId", h.UserStatistics)
		s.GET("/streak/:telegramId", h.Streak)
		s.GET("/levels/:telegramId", h.LevelProgress)
		s.GET("/achievements/:telegramId", h.Achievements)
		s.GET("/insights/:telegramId", h.Insights)
	}

	if h := cfg.SubscriptionHandler; h != nil {
		s := api.Group("/subscription")
		s.GET("/access/check", h.CheckAccess)
		s.GET("/status/:telegramId", h.Status)
		s.POST("/callback/verified", h.Verified)

		admin := s.Group("/admin", cfg.AuthMiddleware.RequireAdmin())
		admin.POST("/grant", h.Grant)
		admin.POST("/revoke", h.Revoke)
	}

	if h := cfg.LessonHandler; h != nil {
		l := api.Group("/lessons")
		l.GET("/folders", h.Folders)
		l.GET("/structure", h.Structure)
		l.GET("/content/*path", h.Content)
		l.GET("/resolve", h.Resolve)
		l.GET("/search", h.Search)
	}

	// Admin
	if h := cfg.UploadHandler; h != nil {
		u := api.Group("/upload", cfg.AuthMiddleware.RequireAdmin())
		u.POST("/lessons", h.UploadArchive)
		u.POST("/lesson", h.UploadLesson)
		u.DELETE("/lessons/:folder", h.DeleteFolder)
		u.DELETE("/lesson", h.DeleteLesson)
		u.POST("/clear-cache", h.ClearCache)
	}
	if h := cfg.ReportHandler; h != nil {
		a := api.Group("/admin", cfg.AuthMiddleware.RequireAdmin())
		a.GET("/reports/statistics.xlsx", h.Statistics)
	}

	return r
}
