package http

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"quizgen-service/internal/app"
	"quizgen-service/internal/logger"
	"quizgen-service/internal/metrics"
)

// DefaultMaxUploadBytes caps the base64 payload of /upload.
const DefaultMaxUploadBytes = 10 << 20

type RouterConfig struct {
	Service        *app.QuizService
	Metrics        *metrics.Metrics
	Log            *logger.Logger
	AllowedOrigins []string
	MaxUploadBytes int
}

// NewRouter wires the JSON API, the websocket endpoint, health and metrics.
// CORS is only enabled for an explicit origin allowlist; wildcard origins are never sent.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Log == nil {
		cfg.Log = logger.NewNop()
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(cfg.Log))
	if len(cfg.AllowedOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Content-Type", "Authorization", "X-Requested-With"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	quizzes := NewQuizHandler(cfg.Service, cfg.Log, cfg.MaxUploadBytes)
	ws := NewWSHandler(cfg.Service, cfg.Log, cfg.AllowedOrigins)

	router.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	if cfg.Metrics != nil {
		router.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}
	router.POST("/create", quizzes.Create)
	router.POST("/upload", quizzes.Upload)
	router.POST("/submit", quizzes.Submit)
	router.POST("/evaluate", quizzes.Evaluate)
	router.GET("/quizzes/:id", quizzes.Get)
	router.GET("/ws", gin.WrapF(ws.ServeWS))
	return router
}

func requestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"took", time.Since(start).String(),
		)
	}
}
