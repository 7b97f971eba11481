package handler

import (
	"net/http"

	response "game-showcase/backend/internal/infra/common"
	appLogger "game-showcase/backend/internal/infra/logger"
	settingssvc "game-showcase/backend/internal/service/settings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SettingsHandler 提供站点设置的读写接口。
type SettingsHandler struct {
	service *settingssvc.Service
	logger  *zap.SugaredLogger
}

// NewSettingsHandler 构造 handler，logger 为空时使用全局日志。
func NewSettingsHandler(service *settingssvc.Service, logger *zap.SugaredLogger) *SettingsHandler {
	if logger == nil {
		logger = appLogger.S()
	}
	return &SettingsHandler{service: service, logger: logger.With("component", "settings.handler")}
}

// Get 返回当前设置。
func (h *SettingsHandler) Get(c *gin.Context) {
	current, err := h.service.Get(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, "get settings", err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"settings": current}, nil)
}

// Save 保存设置。
func (h *SettingsHandler) Save(c *gin.Context) {
	var req settingssvc.Settings
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrBadRequest, err.Error(), nil)
		return
	}

	saved, err := h.service.Save(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.logger, "save settings", err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"settings": saved}, nil)
}

// Reset 恢复默认设置。
func (h *SettingsHandler) Reset(c *gin.Context) {
	defaults, err := h.service.Reset(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, "reset settings", err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"settings": defaults}, nil)
}
