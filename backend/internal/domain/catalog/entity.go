package catalog

import (
	"encoding/json"
	"math"
	"time"
)

const (
	// PriceFree 表示免费游戏。
	PriceFree = "free"
	// PricePaid 表示付费游戏，此时必须填写 PriceAmount。
	PricePaid = "paid"

	// StatusDraft 表示尚未发布的游戏。
	StatusDraft = "draft"
	// StatusPublished 表示已发布、在前台展示的游戏。
	StatusPublished = "published"
)

// 持久化 key，对应浏览器端 localStorage 中的三个条目。
const (
	KeyGames      = "games"
	KeyGenres     = "genres"
	KeyActivities = "activities"
)

// MaxActivities 为活动日志保留的最大条数。
const MaxActivities = 50

// Game 描述目录中的一款游戏。
type Game struct {
	ID          string  `json:"id"`
	Title       string  `json:"title" validate:"required"`
	GenreID     string  `json:"genreId" validate:"required"`
	Description string  `json:"description"`
	Rating      float64 `json:"rating" validate:"gte=0,lte=5"`
	Downloads   string  `json:"downloads"`
	Image       string  `json:"image"`
	Price       string  `json:"price" validate:"oneof=free paid"`
	PriceAmount string  `json:"priceAmount" validate:"required_if=Price paid"`
	Status      string  `json:"status" validate:"oneof=draft published"`
}

// UnmarshalJSON 兼容旧版导出文件中使用的 genre 字段。
func (g *Game) UnmarshalJSON(data []byte) error {
	type alias Game
	aux := struct {
		*alias
		LegacyGenre string `json:"genre"`
	}{alias: (*alias)(g)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if g.GenreID == "" {
		g.GenreID = aux.LegacyGenre
	}
	return nil
}

// Genre 描述游戏分类，GameCount 是冗余的计数字段。
type Genre struct {
	ID          string `json:"id"`
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	GameCount   int    `json:"gameCount" validate:"gte=0"`
}

// ActivityEntry 是后台操作日志中的一条记录。
type ActivityEntry struct {
	ID          string    `json:"id,omitempty"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Icon        string    `json:"icon"`
	Timestamp   time.Time `json:"timestamp"`
}

// UnmarshalJSON 兼容旧版导出文件中使用的 date 字段。
func (a *ActivityEntry) UnmarshalJSON(data []byte) error {
	type alias ActivityEntry
	aux := struct {
		*alias
		LegacyDate *time.Time `json:"date"`
	}{alias: (*alias)(a)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if a.Timestamp.IsZero() && aux.LegacyDate != nil {
		a.Timestamp = aux.LegacyDate.UTC()
	}
	return nil
}

// Snapshot 是某一时刻的完整目录导出。
type Snapshot struct {
	Games      []Game          `json:"games"`
	Genres     []Genre         `json:"genres"`
	Activities []ActivityEntry `json:"activities"`
	ExportedAt time.Time       `json:"exportDate"`
}

// Dataset 是预置的默认游戏与分类。
type Dataset struct {
	Games  []Game
	Genres []Genre
}

// Stats 汇总仪表盘展示的统计值。没有游戏时 AvgRating 为 NaN。
type Stats struct {
	TotalGames      int     `json:"totalGames"`
	TotalGenres     int     `json:"totalGenres"`
	TotalDownloadsK int     `json:"totalDownloadsK"`
	AvgRating       float64 `json:"avgRating"`
}

// HasRating 报告 AvgRating 是否有意义。
func (s Stats) HasRating() bool {
	return !math.IsNaN(s.AvgRating)
}

// MarshalJSON 将 NaN 平均分编码为 null。
func (s Stats) MarshalJSON() ([]byte, error) {
	type alias Stats
	out := struct {
		alias
		AvgRating *float64 `json:"avgRating"`
	}{alias: alias(s)}
	if s.HasRating() {
		avg := s.AvgRating
		out.AvgRating = &avg
	}
	return json.Marshal(out)
}

// CloneGames 返回游戏切片的副本。
func CloneGames(games []Game) []Game {
	if games == nil {
		return nil
	}
	return append(make([]Game, 0, len(games)), games...)
}

// CloneGenres 返回分类切片的副本。
func CloneGenres(genres []Genre) []Genre {
	if genres == nil {
		return nil
	}
	return append(make([]Genre, 0, len(genres)), genres...)
}

// CloneActivities 返回活动日志切片的副本。
func CloneActivities(entries []ActivityEntry) []ActivityEntry {
	if entries == nil {
		return nil
	}
	return append(make([]ActivityEntry, 0, len(entries)), entries...)
}
