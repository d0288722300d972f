// Package bootstrap provides dependency initialization for the audiobook skill.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/maauso/audiobook-skill/internal/abs"
	"github.com/maauso/audiobook-skill/internal/catalog"
	"github.com/maauso/audiobook-skill/internal/config"
	"github.com/maauso/audiobook-skill/internal/directive"
	"github.com/maauso/audiobook-skill/internal/ratelimit"
	"github.com/maauso/audiobook-skill/internal/session"
	"github.com/maauso/audiobook-skill/internal/skill"
	"github.com/maauso/audiobook-skill/internal/storage"
)

// Dependencies holds all initialized dependencies for the HTTP server.
type Dependencies struct {
	Skill *skill.Dispatcher
	Store storage.AttributeStore
	// Limiter is nil when rate limiting is disabled.
	Limiter *ratelimit.KeyedRateLimiter

	closers []func() error
}

// NewDependencies creates and initializes all dependencies for the application.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	// Initialize attribute store
	store, closeStore, err := initStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	// Initialize audiobook server client
	client, err := abs.NewClient(cfg.ABSServerURL,
		abs.WithAPIKey(cfg.ABSAPIKey),
		abs.WithUserAgent(cfg.ABSUserAgent),
		abs.WithTimeout(cfg.ABSHTTPTimeout),
		abs.WithLogger(logger),
	)
	if err != nil {
		if closeStore != nil {
			_ = closeStore()
		}
		return nil, fmt.Errorf("create audiobook server client: %w", err)
	}

	builder := directive.NewBuilder(client.BaseURL(), cfg.ABSAPIKey, cfg.BackgroundImageURL)
	controller := session.NewController(client, builder, session.WithLogger(logger))
	resolver := catalog.NewResolver(client, catalog.WithLogger(logger))
	dispatcher := skill.NewDispatcher(store, controller, resolver, skill.WithLogger(logger))

	deps := &Dependencies{
		Skill: dispatcher,
		Store: store,
	}
	if closeStore != nil {
		deps.closers = append(deps.closers, closeStore)
	}

	if cfg.RateLimitEnabled() {
		limiter := ratelimit.New(cfg.RateLimitRPS, cfg.RateLimitBurst)
		deps.Limiter = limiter
		deps.closers = append(deps.closers, func() error {
			limiter.Stop()
			return nil
		})
		logger.Info("rate limiting enabled",
			slog.Float64("rps", cfg.RateLimitRPS),
			slog.Int("burst", cfg.RateLimitBurst),
		)
	}

	return deps, nil
}

// Close releases resources held by the dependencies.
func (d *Dependencies) Close() error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	d.closers = nil
	return errors.Join(errs...)
}

// initStore creates the attribute store backend selected by configuration.
// The returned close function is nil for backends without resources.
func initStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.AttributeStore, func() error, error) {
	switch strings.ToLower(cfg.AttributeStore) {
	case config.StoreMemory:
		logger.Warn("memory attribute store configured; sessions are lost on restart")
		return storage.NewMemoryStorage(), nil, nil

	case config.StoreBadger:
		dir := filepath.Join(cfg.DataDir, "badger")
		db, err := storage.NewBadgerStorage(dir)
		if err != nil {
			return nil, nil, fmt.Errorf("create badger storage: %w", err)
		}
		logger.Info("badger attribute store configured",
			slog.String("dir", dir),
		)
		return db, db.Close, nil

	case config.StoreS3:
		s3Cfg := storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Prefix:          cfg.S3Prefix,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		}
		s3Store, err := storage.NewS3Storage(ctx, s3Cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("create S3 storage: %w", err)
		}
		logger.Info("S3 attribute store configured",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
			slog.String("prefix", cfg.S3Prefix),
		)
		return s3Store, nil, nil

	case config.StoreLocal:
		localStore, err := storage.NewLocalStorage(cfg.DataDir)
		if err != nil {
			return nil, nil, fmt.Errorf("create local storage: %w", err)
		}
		logger.Info("local attribute store configured",
			slog.String("data_dir", localStore.Dir()),
		)
		return localStore, nil, nil

	default:
		return nil, nil, fmt.Errorf("%w: %q", config.ErrInvalidAttributeStore, cfg.AttributeStore)
	}
}
