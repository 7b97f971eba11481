package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	response "game-showcase/backend/internal/infra/common"
	appLogger "game-showcase/backend/internal/infra/logger"
	"game-showcase/backend/internal/infra/ratelimit"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RateLimitConfig 描述批量数据接口的限流参数，Limit 为 0 表示不限流。
type RateLimitConfig struct {
	Limit  int
	Window time.Duration
}

// RateLimitMiddleware 按客户端 IP 与路由对请求计数。
type RateLimitMiddleware struct {
	limiter ratelimit.Limiter
	cfg     RateLimitConfig
	logger  *zap.SugaredLogger
}

func NewRateLimitMiddleware(limiter ratelimit.Limiter, cfg RateLimitConfig, logger *zap.SugaredLogger) *RateLimitMiddleware {
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	if logger == nil {
		logger = appLogger.S()
	}
	return &RateLimitMiddleware{
		limiter: limiter,
		cfg:     cfg,
		logger:  logger.With("component", "middleware.ratelimit"),
	}
}

// Handle 返回 Gin 中间件。计数器出错时放行请求，只记录告警。
func (m *RateLimitMiddleware) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil || m.limiter == nil || m.cfg.Limit <= 0 {
			c.Next()
			return
		}

		ip := strings.TrimSpace(c.ClientIP())
		key := c.FullPath() + ":" + ip
		decision, err := m.limiter.Allow(c.Request.Context(), key, m.cfg.Limit, m.cfg.Window)
		if err != nil {
			m.logger.Warnw("rate limit check failed", "key", key, "error", err)
			c.Next()
			return
		}
		if !decision.Allowed {
			seconds := int(decision.RetryAfter.Round(time.Second).Seconds())
			if seconds < 1 {
				seconds = 1
			}
			c.Header("Retry-After", strconv.Itoa(seconds))
			m.logger.Infow("bulk data request throttled", "path", c.FullPath(), "ip", ip)
			response.Fail(c, http.StatusTooManyRequests, response.ErrTooManyRequests, "too many requests, retry later", nil)
			c.Abort()
			return
		}
		c.Next()
	}
}
