package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"game-showcase/backend/internal/handler"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type RouterOptions struct {
	CatalogHandler  *handler.CatalogHandler
	SettingsHandler *handler.SettingsHandler
	// StaticDir 存放展示页静态资源，为空时不挂载 /static。
	StaticDir string
	// DataMiddleware 挂在 /api/data 分组上，用于批量接口限流。
	DataMiddleware []gin.HandlerFunc
	// Degraded 为 true 表示存储不可用、目录运行在内存回退模式，会体现在 /healthz 中。
	Degraded bool
}

// NewRouter 构建应用的 Gin Engine，汇总目录管理接口与公共中间件配置。
func NewRouter(opts RouterOptions) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// gin 中间件配置
	r.Use(gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowAllOrigins:  false,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders:    []string{"Content-Length", "Content-Type", "Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
		AllowOriginFunc: func(origin string) bool {
			if origin == "" {
				return false
			}
			// 直接双击打开本地 html 文件时 Origin 为 null。
			if origin == "null" {
				return true
			}
			return strings.HasPrefix(origin, "http://localhost:") || strings.HasPrefix(origin, "http://127.0.0.1:")
		},
	}))
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
		Formatter: gin.LogFormatter(func(params gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s\" %d %s\n",
				params.ClientIP,
				params.TimeStamp.Format(time.RFC3339),
				params.Method,
				params.Path,
				params.StatusCode,
				params.Latency,
			)
		}),
	}))

	if opts.StaticDir != "" {
		r.Static("/static", opts.StaticDir)
	}

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", func(c *gin.Context) {
		status := "ok"
		if opts.Degraded {
			status = "degraded"
		}
		c.JSON(http.StatusOK, gin.H{"status": status})
	})

	api := r.Group("/api")
	{
		if h := opts.CatalogHandler; h != nil {
			games := api.Group("/games")
			games.GET("", h.ListGames)
			games.POST("", h.CreateGame)
			games.GET("/:id", h.GetGame)
			games.PUT("/:id", h.UpdateGame)
			games.DELETE("/:id", h.DeleteGame)

			genres := api.Group("/genres")
			genres.GET("", h.ListGenres)
			genres.POST("", h.CreateGenre)
			genres.GET("/:id", h.GetGenre)
			genres.PATCH("/:id", h.RenameGenre)
			genres.DELETE("/:id", h.DeleteGenre)

			api.GET("/activities", h.ListActivities)
			api.GET("/stats", h.Stats)

			data := api.Group("/data", opts.DataMiddleware...)
			data.GET("/export", h.Export)
			data.POST("/import", h.Import)
			data.POST("/reset", h.Reset)
			data.POST("/reconcile", h.Reconcile)
		}

		if h := opts.SettingsHandler; h != nil {
			api.GET("/settings", h.Get)
			api.PUT("/settings", h.Save)
			api.DELETE("/settings", h.Reset)
		}
	}

	return r
}
