package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"smart_office/internal/logger"
	"smart_office/internal/models"
	"smart_office/internal/repository"
)

// KeyCollectInterval is the device sampling period in milliseconds; changes
// are pushed to devices.
const KeyCollectInterval = "data.collect.interval"

var (
	ErrInvalidConfig  = errors.New("invalid config")
	ErrConfigNotFound = errors.New("config key not found")
)

type ConfigService struct {
	repo    repository.ConfigRepo
	store   *ThresholdStore
	pusher  ConfigPusher
	log     *logger.Logger
	timeout time.Duration
}

func NewConfigService(repo repository.ConfigRepo, store *ThresholdStore, pusher ConfigPusher, log *logger.Logger, timeout time.Duration) *ConfigService {
	if log == nil {
		log = logger.Nop()
	}
	if timeout <= 0 {
		timeout = DefaultCollaboratorTimeout
	}
	return &ConfigService{repo: repo, store: store, pusher: pusher, log: log, timeout: timeout}
}

// Thresholds returns the effective thresholds, defaults merged in.
func (s *ConfigService) Thresholds(ctx context.Context) Thresholds {
	return s.store.Snapshot(ctx)
}

func (s *ConfigService) List(ctx context.Context, typ string) ([]models.ConfigEntry, error) {
	return s.repo.List(ctx, strings.TrimSpace(typ))
}

// Update stores one config value. Threshold keys must carry a number, are
// stored under their canonical name and drop the threshold cache. Other keys
// must already exist.
func (s *ConfigService) Update(ctx context.Context, u models.ConfigUpdate) (models.ConfigEntry, error) {
	key := strings.TrimSpace(u.ConfigKey)
	value := strings.TrimSpace(u.ConfigValue)
	if key == "" {
		return models.ConfigEntry{}, fmt.Errorf("%w: configKey is required", ErrInvalidConfig)
	}

	entry := models.ConfigEntry{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	threshold := IsThresholdKey(key)
	switch {
	case threshold:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return models.ConfigEntry{}, fmt.Errorf("%w: %s must be a number, got %q", ErrInvalidConfig, key, u.ConfigValue)
		}
		entry.Key = CanonicalThresholdKey(key)
		entry.Type = repository.ConfigTypeThreshold
	default:
		cur, err := s.repo.Get(ctx, key)
		if errors.Is(err, repository.ErrNotFound) {
			return models.ConfigEntry{}, fmt.Errorf("%w: %s", ErrConfigNotFound, key)
		}
		if err != nil {
			return models.ConfigEntry{}, err
		}
		if key == KeyCollectInterval {
			if n, err := strconv.Atoi(value); err != nil || n <= 0 {
				return models.ConfigEntry{}, fmt.Errorf("%w: %s must be a positive integer, got %q", ErrInvalidConfig, key, u.ConfigValue)
			}
		}
		entry.Type = cur.Type
		entry.Description = cur.Description
	}

	if err := s.repo.Set(ctx, entry); err != nil {
		return models.ConfigEntry{}, fmt.Errorf("save config: %w", err)
	}
	s.log.Infow("config_updated", "key", entry.Key, "value", entry.Value)

	if threshold {
		s.store.Invalidate()
	}
	if entry.Key == KeyCollectInterval && s.pusher != nil {
		pctx, cancel := context.WithTimeout(ctx, s.timeout)
		err := s.pusher.PushConfig(pctx, models.ConfigUpdate{ConfigKey: entry.Key, ConfigValue: entry.Value})
		cancel()
		if err != nil {
			// Stored value stands; devices pick it up on the next push.
			s.log.Warnw("config_push_failed", "key", entry.Key, "err", err)
		}
	}
	return entry, nil
}
