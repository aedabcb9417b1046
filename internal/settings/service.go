package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"studio/internal/model"
)

var ErrInvalidSettings = errors.New("invalid business settings")

// Store persists business settings.
type Store interface {
	GetBusinessSettings(ctx context.Context) (*model.BusinessSettings, error)
	SaveBusinessSettings(ctx context.Context, s *model.BusinessSettings) error
}

// Cache holds the current settings between reads. Misses and cache errors fall through to the store.
type Cache interface {
	Get(ctx context.Context) (*model.BusinessSettings, bool)
	Set(ctx context.Context, s *model.BusinessSettings)
	Invalidate(ctx context.Context)
}

// Service reads settings through an optional cache and invalidates it on every save.
type Service struct {
	store  Store
	cache  Cache
	logger zerolog.Logger
}

// NewService wires the store and cache. cache may be nil.
func NewService(store Store, cache Cache, logger zerolog.Logger) *Service {
	return &Service{
		store:  store,
		cache:  cache,
		logger: logger.With().Str("component", "settings").Logger(),
	}
}

func (s *Service) Get(ctx context.Context) (*model.BusinessSettings, error) {
	if s.cache != nil {
		if cached, ok := s.cache.Get(ctx); ok {
			return cached, nil
		}
	}

	settings, err := s.store.GetBusinessSettings(ctx)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Set(ctx, settings)
	}
	return settings, nil
}

// Save validates and persists settings, then drops the cached copy.
func (s *Service) Save(ctx context.Context, settings *model.BusinessSettings) error {
	if strings.TrimSpace(settings.StudioName) == "" {
		return fmt.Errorf("%w: studio_name is required", ErrInvalidSettings)
	}
	if settings.Timezone != "" {
		if _, err := time.LoadLocation(settings.Timezone); err != nil {
			return fmt.Errorf("%w: timezone: %v", ErrInvalidSettings, err)
		}
	}
	if settings.DefaultDeposit < 0 {
		return fmt.Errorf("%w: default_deposit cannot be negative", ErrInvalidSettings)
	}
	if settings.BookingLeadDays < 0 {
		return fmt.Errorf("%w: booking_lead_days cannot be negative", ErrInvalidSettings)
	}

	if err := s.store.SaveBusinessSettings(ctx, settings); err != nil {
		return err
	}
	s.Invalidate(ctx)
	s.logger.Info().Str("studio_name", settings.StudioName).Msg("business settings saved")
	return nil
}

// Invalidate drops the cached settings so the next Get reads the store.
func (s *Service) Invalidate(ctx context.Context) {
	if s.cache != nil {
		s.cache.Invalidate(ctx)
	}
}

const redisKey = "studio:business_settings"

// RedisCache stores settings as JSON under a single key with a TTL.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

func NewRedisCache(client *redis.Client, ttl time.Duration, logger zerolog.Logger) *RedisCache {
	return &RedisCache{client: client, ttl: ttl, logger: logger}
}

func (c *RedisCache) Get(ctx context.Context) (*model.BusinessSettings, bool) {
	val, err := c.client.Get(ctx, redisKey).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn().Err(err).Msg("settings cache read failed")
		}
		return nil, false
	}
	var s model.BusinessSettings
	if err := json.Unmarshal([]byte(val), &s); err != nil {
		return nil, false
	}
	return &s, true
}

func (c *RedisCache) Set(ctx context.Context, s *model.BusinessSettings) {
	data, err := json.Marshal(s)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, redisKey, data, c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Msg("settings cache write failed")
	}
}

func (c *RedisCache) Invalidate(ctx context.Context) {
	if err := c.client.Del(ctx, redisKey).Err(); err != nil {
		c.logger.Warn().Err(err).Msg("settings cache invalidate failed")
	}
}
