package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"game-showcase/backend/internal/bootstrapdata"
	response "game-showcase/backend/internal/infra/common"
	appLogger "game-showcase/backend/internal/infra/logger"
	catalogsvc "game-showcase/backend/internal/service/catalog"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// maxImportBytes 限制导入请求体大小，内嵌 data-URI 图片时文件会比较大。
const maxImportBytes = 16 << 20

// CatalogHandler 提供游戏、分类、活动日志与数据导入导出的 HTTP 入口。
type CatalogHandler struct {
	store  *catalogsvc.Store
	logger *zap.SugaredLogger
}

// NewCatalogHandler 构造 handler，logger 为空时使用全局日志。
func NewCatalogHandler(store *catalogsvc.Store, logger *zap.SugaredLogger) *CatalogHandler {
	if logger == nil {
		logger = appLogger.S()
	}
	return &CatalogHandler{store: store, logger: logger.With("component", "catalog.handler")}
}

type renameGenreRequest struct {
	Name string `json:"name"`
}

// ListGames 返回游戏列表，支持 genre / status / q 过滤。
func (h *CatalogHandler) ListGames(c *gin.Context) {
	games := h.store.Games(catalogsvc.GameFilter{
		GenreID: c.Query("genre"),
		Status:  c.Query("status"),
		Query:   c.Query("q"),
	})
	response.Success(c, http.StatusOK, gin.H{"items": games}, response.MetaList{Total: len(games)})
}

// GetGame 返回单个游戏。
func (h *CatalogHandler) GetGame(c *gin.Context) {
	game, err := h.store.Game(c.Param("id"))
	if err != nil {
		respondError(c, h.logger, "get game", err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"game": game}, nil)
}

// CreateGame 新增游戏。
func (h *CatalogHandler) CreateGame(c *gin.Context) {
	var req catalogsvc.GameInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrBadRequest, err.Error(), nil)
		return
	}

	game, err := h.store.AddGame(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.logger, "add game", err)
		return
	}
	response.Created(c, gin.H{"game": game}, nil)
}

// UpdateGame 局部更新游戏，body 中缺失的字段保持原值。
func (h *CatalogHandler) UpdateGame(c *gin.Context) {
	var req catalogsvc.GamePatch
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrBadRequest, err.Error(), nil)
		return
	}

	game, err := h.store.UpdateGame(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, h.logger, "update game", err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"game": game}, nil)
}

// DeleteGame 删除游戏。
func (h *CatalogHandler) DeleteGame(c *gin.Context) {
	if err := h.store.DeleteGame(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.logger, "delete game", err)
		return
	}
	response.NoContent(c)
}

// ListGenres 返回全部分类。
func (h *CatalogHandler) ListGenres(c *gin.Context) {
	genres := h.store.Genres()
	response.Success(c, http.StatusOK, gin.H{"items": genres}, response.MetaList{Total: len(genres)})
}

// GetGenre 返回单个分类。
func (h *CatalogHandler) GetGenre(c *gin.Context) {
	genre, err := h.store.Genre(c.Param("id"))
	if err != nil {
		respondError(c, h.logger, "get genre", err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"genre": genre}, nil)
}

// CreateGenre 新增分类。
func (h *CatalogHandler) CreateGenre(c *gin.Context) {
	var req catalogsvc.GenreInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrBadRequest, err.Error(), nil)
		return
	}

	genre, err := h.store.AddGenre(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.logger, "add genre", err)
		return
	}
	response.Created(c, gin.H{"genre": genre}, nil)
}

// RenameGenre 修改分类名称。
func (h *CatalogHandler) RenameGenre(c *gin.Context) {
	var req renameGenreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrBadRequest, err.Error(), nil)
		return
	}

	genre, err := h.store.RenameGenre(c.Request.Context(), c.Param("id"), req.Name)
	if err != nil {
		respondError(c, h.logger, "rename genre", err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"genre": genre}, nil)
}

// DeleteGenre 删除分类，仍有游戏时返回 409。
func (h *CatalogHandler) DeleteGenre(c *gin.Context) {
	if err := h.store.DeleteGenre(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.logger, "delete genre", err)
		return
	}
	response.NoContent(c)
}

// ListActivities 返回最近的活动日志，limit 缺省时返回全部。
func (h *CatalogHandler) ListActivities(c *gin.Context) {
	limit := 0
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			response.Fail(c, http.StatusBadRequest, response.ErrBadRequest, "limit must be a non-negative integer", nil)
			return
		}
		limit = parsed
	}
	entries := h.store.Activities(limit)
	response.Success(c, http.StatusOK, gin.H{"items": entries}, response.MetaList{Total: len(entries)})
}

// Stats 返回仪表盘统计。
func (h *CatalogHandler) Stats(c *gin.Context) {
	response.Success(c, http.StatusOK, gin.H{"stats": h.store.ComputeStats()}, nil)
}

// Export 以附件形式下载当前快照，文件可直接用于导入。
func (h *CatalogHandler) Export(c *gin.Context) {
	snapshot := h.store.ExportSnapshot()
	filename := bootstrapdata.SnapshotFileName(snapshot.ExportedAt)
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.IndentedJSON(http.StatusOK, snapshot)
}

// Import 读取原始请求体作为快照导入。
func (h *CatalogHandler) Import(c *gin.Context) {
	raw, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxImportBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Fail(c, http.StatusRequestEntityTooLarge, response.ErrBadRequest, "snapshot is too large", nil)
			return
		}
		response.Fail(c, http.StatusBadRequest, response.ErrBadRequest, err.Error(), nil)
		return
	}

	result, err := h.store.ImportSnapshot(c.Request.Context(), raw)
	if err != nil {
		respondError(c, h.logger, "import snapshot", err)
		return
	}
	h.logger.Infow("snapshot imported via api", "imported", result.Imported, "bytes", len(raw))
	response.Success(c, http.StatusOK, gin.H{"result": result}, nil)
}

// Reset 恢复默认数据。
func (h *CatalogHandler) Reset(c *gin.Context) {
	if err := h.store.ResetToDefaults(c.Request.Context()); err != nil {
		respondError(c, h.logger, "reset catalog", err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"stats": h.store.ComputeStats()}, nil)
}

// Reconcile 重新计算分类计数。
func (h *CatalogHandler) Reconcile(c *gin.Context) {
	changed, err := h.store.ReconcileCounts(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, "reconcile counts", err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"changed": changed}, nil)
}
