// Package session stores assembled print documents between the print request
// and the print window fetching them.
package session

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/erp/labels/internal/domain/labeling"
	"github.com/erp/labels/internal/infrastructure/config"
)

// Store is a session store that can be shut down
type Store interface {
	labeling.SessionStore
	Shutdown() error
}

// Factory creates session stores based on configuration
type Factory struct {
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// FactoryOption is a functional option for configuring the factory
type FactoryOption func(*Factory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) FactoryOption {
	return func(f *Factory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to the in-memory store
// when Redis is unavailable. Default is true.
func WithInMemoryFallback(allow bool) FactoryOption {
	return func(f *Factory) {
		f.allowInMemoryFallback = allow
	}
}

// NewFactory creates a new factory
func NewFactory(cfg config.RedisConfig, opts ...FactoryOption) *Factory {
	f := &Factory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateStore returns a Redis store when Redis is enabled and reachable, and
// the in-memory store otherwise (unless fallback is disabled)
func (f *Factory) CreateStore() (Store, error) {
	if !f.redisConfig.Enabled {
		f.logger.Info("using in-memory print session store")
		return NewInMemoryStore(), nil
	}

	store, err := NewRedisStore(RedisConfig{
		Addr:     f.redisConfig.Addr(),
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	})
	if err == nil {
		f.logger.Info("using Redis print session store", zap.String("addr", f.redisConfig.Addr()))
		return store, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("redis required for print sessions but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory print session store. "+
		"Print windows must hit the instance that created the session.",
		zap.Error(err),
	)
	return NewInMemoryStore(), nil
}
