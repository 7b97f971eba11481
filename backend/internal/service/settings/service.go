package settings

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	domain "game-showcase/backend/internal/domain/catalog"
	"game-showcase/backend/internal/infra/blobstore"
	"game-showcase/backend/internal/infra/metrics"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// 设置项直接存放在 blob 存储中，不参与目录的不变量。
const (
	KeySiteTitle       = "siteTitle"
	KeySiteDescription = "siteDescription"
	KeyPrimaryColor    = "primaryColor"
	KeySecondaryColor  = "secondaryColor"
)

var (
	// ErrValidation 表示设置值不合法。
	ErrValidation = errors.New("invalid settings")
	// ErrPersistence 表示读写 blob 存储失败。
	ErrPersistence = errors.New("settings persistence failed")
)

// Settings 是站点的四个展示偏好。
type Settings struct {
	SiteTitle       string `json:"siteTitle" validate:"max=120"`
	SiteDescription string `json:"siteDescription" validate:"max=500"`
	PrimaryColor    string `json:"primaryColor" validate:"omitempty,hexcolor"`
	SecondaryColor  string `json:"secondaryColor" validate:"omitempty,hexcolor"`
}

// Defaults 返回未保存任何设置时的取值。
func Defaults() Settings {
	return Settings{
		SiteTitle:       "Mobile Game Showcase",
		SiteDescription: "Discover and play amazing mobile games across different genres",
		PrimaryColor:    "#667eea",
		SecondaryColor:  "#764ba2",
	}
}

// ActivityRecorder 由目录存储实现，用于记录设置变更。
type ActivityRecorder interface {
	RecordActivity(ctx context.Context, title, description, icon string) (domain.ActivityEntry, error)
}

// Service 读写站点设置。
type Service struct {
	mu       sync.Mutex
	blobs    blobstore.Store
	activity ActivityRecorder
	validate *validator.Validate
	logger   *zap.SugaredLogger
}

// NewService 构造设置服务，activity 可以为 nil。
func NewService(blobs blobstore.Store, activity ActivityRecorder, logger *zap.SugaredLogger) *Service {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		return strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
	})
	return &Service{
		blobs:    blobs,
		activity: activity,
		validate: v,
		logger:   logger.With("component", "settings"),
	}
}

type binding struct {
	key      string
	value    func(*Settings) *string
	fallback string
}

func bindings() []binding {
	defaults := Defaults()
	return []binding{
		{KeySiteTitle, func(s *Settings) *string { return &s.SiteTitle }, defaults.SiteTitle},
		{KeySiteDescription, func(s *Settings) *string { return &s.SiteDescription }, defaults.SiteDescription},
		{KeyPrimaryColor, func(s *Settings) *string { return &s.PrimaryColor }, defaults.PrimaryColor},
		{KeySecondaryColor, func(s *Settings) *string { return &s.SecondaryColor }, defaults.SecondaryColor},
	}
}

// Get 读取设置；未保存或为空的项返回默认值。
func (s *Service) Get(ctx context.Context) (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.get(ctx)
}

func (s *Service) get(ctx context.Context) (Settings, error) {
	var out Settings
	for _, b := range bindings() {
		raw, err := s.blobs.Load(ctx, b.key)
		switch {
		case errors.Is(err, blobstore.ErrNotFound):
			*b.value(&out) = b.fallback
		case err != nil:
			return Settings{}, fmt.Errorf("%w: load %s: %v", ErrPersistence, b.key, err)
		case strings.TrimSpace(string(raw)) == "":
			*b.value(&out) = b.fallback
		default:
			*b.value(&out) = string(raw)
		}
	}
	return out, nil
}

// Save 校验并保存设置，然后记录 "Settings Updated"。
func (s *Service) Save(ctx context.Context, input Settings) (Settings, error) {
	input.SiteTitle = strings.TrimSpace(input.SiteTitle)
	input.SiteDescription = strings.TrimSpace(input.SiteDescription)
	input.PrimaryColor = strings.TrimSpace(input.PrimaryColor)
	input.SecondaryColor = strings.TrimSpace(input.SecondaryColor)

	if err := s.validate.Struct(input); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return Settings{}, fmt.Errorf("%w: %s failed %s", ErrValidation, fieldErrs[0].Field(), fieldErrs[0].Tag())
		}
		return Settings{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	previous, err := s.snapshot(ctx)
	if err != nil {
		return Settings{}, err
	}
	written := make([]string, 0, len(previous))
	for _, b := range bindings() {
		if err := s.blobs.Save(ctx, b.key, []byte(*b.value(&input))); err != nil {
			metrics.RecordPersistenceFailure(b.key)
			s.logger.Errorw("save settings key failed", "key", b.key, "error", err)
			s.restore(ctx, previous, written)
			return Settings{}, fmt.Errorf("%w: save %s: %v", ErrPersistence, b.key, err)
		}
		written = append(written, b.key)
	}
	metrics.RecordSettingsUpdate("save")
	s.record(ctx, "Settings Updated", "Site settings have been saved", "fas fa-cog")
	s.logger.Infow("settings saved", "site_title", input.SiteTitle)

	return s.get(ctx)
}

// storedValue 是某个 key 写入前的原始内容，present=false 表示原本不存在。
type storedValue struct {
	raw     []byte
	present bool
}

func (s *Service) snapshot(ctx context.Context) (map[string]storedValue, error) {
	out := make(map[string]storedValue, len(bindings()))
	for _, b := range bindings() {
		raw, err := s.blobs.Load(ctx, b.key)
		switch {
		case errors.Is(err, blobstore.ErrNotFound):
			out[b.key] = storedValue{}
		case err != nil:
			return nil, fmt.Errorf("%w: load %s: %v", ErrPersistence, b.key, err)
		default:
			out[b.key] = storedValue{raw: raw, present: true}
		}
	}
	return out, nil
}

// restore 尽力把已写入的 key 恢复为写入前的内容。
func (s *Service) restore(ctx context.Context, previous map[string]storedValue, keys []string) {
	for _, key := range keys {
		prev := previous[key]
		var err error
		if prev.present {
			err = s.blobs.Save(ctx, key, prev.raw)
		} else {
			err = s.blobs.Delete(ctx, key)
		}
		if err != nil && !errors.Is(err, blobstore.ErrNotFound) {
			s.logger.Warnw("restore settings key failed", "key", key, "error", err)
		}
	}
}

// Reset 删除所有已保存的设置并记录 "Settings Reset"。
func (s *Service) Reset(ctx context.Context) (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, b := range bindings() {
		if err := s.blobs.Delete(ctx, b.key); err != nil && !errors.Is(err, blobstore.ErrNotFound) {
			metrics.RecordPersistenceFailure(b.key)
			return Settings{}, fmt.Errorf("%w: delete %s: %v", ErrPersistence, b.key, err)
		}
	}
	metrics.RecordSettingsUpdate("reset")
	s.record(ctx, "Settings Reset", "All settings have been reset to default", "fas fa-undo")
	s.logger.Infow("settings reset")
	return Defaults(), nil
}

func (s *Service) record(ctx context.Context, title, description, icon string) {
	if s.activity == nil {
		return
	}
	if _, err := s.activity.RecordActivity(ctx, title, description, icon); err != nil {
		s.logger.Warnw("record settings activity failed", "title", title, "error", err)
	}
}
