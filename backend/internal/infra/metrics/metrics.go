package metrics

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	registerOnce        sync.Once
	catalogMutations    *prometheus.CounterVec
	persistenceFailures *prometheus.CounterVec
	catalogSize         *prometheus.GaugeVec
	settingsUpdates     *prometheus.CounterVec
)

const (
	namespaceMetrics = "showcase"
)

// MustRegister 初始化 Prometheus 指标并注册 Go 运行时采样器，需在应用启动阶段调用一次。
func MustRegister() {
	registerOnce.Do(func() {
		catalogMutations = registerCounterVec(
			prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: namespaceMetrics,
					Subsystem: "catalog",
					Name:      "mutations_total",
					Help:      "目录写操作次数，按操作名与结果统计。",
				},
				[]string{"operation", "result"},
			),
		)
		persistenceFailures = registerCounterVec(
			prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: namespaceMetrics,
					Subsystem: "persistence",
					Name:      "failures_total",
					Help:      "写入 blob 存储失败的次数，按 key 统计。",
				},
				[]string{"key"},
			),
		)
		catalogSize = registerGaugeVec(
			prometheus.NewGaugeVec(
				prometheus.GaugeOpts{
					Namespace: namespaceMetrics,
					Subsystem: "catalog",
					Name:      "items",
					Help:      "当前内存中的目录条目数量，按集合区分。",
				},
				[]string{"collection"},
			),
		)
		settingsUpdates = registerCounterVec(
			prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: namespaceMetrics,
					Subsystem: "settings",
					Name:      "updates_total",
					Help:      "站点设置保存与重置的次数，按动作统计。",
				},
				[]string{"action"},
			),
		)

		registerRuntimeCollectors()
	})
}

// RecordMutation 记录一次目录写操作的结果（ok / validation / not_found / conflict / format / persistence）。
func RecordMutation(operation, result string) {
	if catalogMutations == nil {
		return
	}
	catalogMutations.WithLabelValues(normalizeLabel(operation, "unknown"), normalizeLabel(result, "unknown")).Inc()
}

// RecordPersistenceFailure 记录写入失败的 key。
func RecordPersistenceFailure(key string) {
	if persistenceFailures == nil {
		return
	}
	persistenceFailures.WithLabelValues(normalizeLabel(key, "unknown")).Inc()
}

// SetCatalogSize 更新 games / genres / activities 的条目数。
func SetCatalogSize(games, genres, activities int) {
	if catalogSize == nil {
		return
	}
	catalogSize.WithLabelValues("games").Set(float64(games))
	catalogSize.WithLabelValues("genres").Set(float64(genres))
	catalogSize.WithLabelValues("activities").Set(float64(activities))
}

// RecordSettingsUpdate 记录设置的保存或重置。
func RecordSettingsUpdate(action string) {
	if settingsUpdates == nil {
		return
	}
	settingsUpdates.WithLabelValues(normalizeLabel(action, "unknown")).Inc()
}

func normalizeLabel(value string, fallback string) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
	}
	return fallback
}

func registerCounterVec(vec *prometheus.CounterVec) *prometheus.CounterVec {
	if err := prometheus.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing
			}
		}
		panic(err)
	}
	return vec
}

func registerGaugeVec(vec *prometheus.GaugeVec) *prometheus.GaugeVec {
	if err := prometheus.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.GaugeVec); ok {
				return existing
			}
		}
		panic(err)
	}
	return vec
}

func registerRuntimeCollectors() {
	if err := prometheus.Register(collectors.NewGoCollector()); err != nil {
		if !isAlreadyRegistered(err) {
			panic(err)
		}
	}
	if err := prometheus.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		if !isAlreadyRegistered(err) {
			panic(err)
		}
	}
}

func isAlreadyRegistered(err error) bool {
	_, ok := err.(prometheus.AlreadyRegisteredError)
	return ok
}
