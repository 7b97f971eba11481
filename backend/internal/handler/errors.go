package handler

import (
	"errors"
	"net/http"

	response "game-showcase/backend/internal/infra/common"
	catalogsvc "game-showcase/backend/internal/service/catalog"
	settingssvc "game-showcase/backend/internal/service/settings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// respondError 将服务层的哨兵错误映射为统一的 HTTP 错误响应。
func respondError(c *gin.Context, logger *zap.SugaredLogger, operation string, err error) {
	var fieldErr *catalogsvc.ValidationError
	switch {
	case errors.As(err, &fieldErr):
		response.Fail(c, http.StatusBadRequest, response.ErrBadRequest, err.Error(), fieldErr.Fields)
	case errors.Is(err, catalogsvc.ErrValidation), errors.Is(err, settingssvc.ErrValidation):
		response.Fail(c, http.StatusBadRequest, response.ErrBadRequest, err.Error(), nil)
	case errors.Is(err, catalogsvc.ErrNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound, err.Error(), nil)
	case errors.Is(err, catalogsvc.ErrConflict):
		response.Fail(c, http.StatusConflict, response.ErrConflict, err.Error(), nil)
	case errors.Is(err, catalogsvc.ErrFormat):
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidFormat, err.Error(), nil)
	case errors.Is(err, catalogsvc.ErrPersistence), errors.Is(err, settingssvc.ErrPersistence):
		logger.Errorw(operation+" failed", "error", err)
		response.Fail(c, http.StatusServiceUnavailable, response.ErrPersistenceFailed, "storage is unavailable, the change was not applied", nil)
	default:
		logger.Errorw(operation+" failed", "error", err)
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal, "internal error", nil)
	}
}
