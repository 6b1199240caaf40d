// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/redis/go-redis/v9"

	"github.com/wneessen/geonear/internal/catalog"
	"github.com/wneessen/geonear/internal/config"
	"github.com/wneessen/geonear/internal/geocode"
	"github.com/wneessen/geonear/internal/http"
	"github.com/wneessen/geonear/internal/logger"
	"github.com/wneessen/geonear/internal/metrics"
	"github.com/wneessen/geonear/internal/server"
	"github.com/wneessen/geonear/internal/template"
)

const redisPingTimeout = 2 * time.Second

// Service owns the geocoding engine and everything that serves it. The catalog is loaded exactly
// once, when the Service is created.
type Service struct {
	config    *config.Config
	logger    *logger.Logger
	scheduler gocron.Scheduler
	metrics   *metrics.Metrics
	server    *server.Server

	engine   *geocode.Engine
	geocoder geocode.Geocoder
	memCache *geocode.MemoryCache
	redis    *redis.Client
	loadErr  error
}

// New loads the place catalog and wires the geocoder, its cache and the HTTP server. A catalog
// that cannot be loaded is logged and leaves the geocoder unavailable; New only fails if the
// service itself cannot be set up.
func New(ctx context.Context, conf *config.Config, log *logger.Logger) (*Service, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	tpls, err := template.New(conf)
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	service := &Service{
		config:    conf,
		logger:    log,
		scheduler: scheduler,
		metrics:   metrics.New(),
	}

	cat, err := service.loadCatalog(ctx)
	if err != nil {
		service.loadErr = err
		log.Error("failed to load place catalog, geocoder is unavailable", logger.Err(err),
			"source", conf.Catalog.Source)
	}
	service.engine = geocode.NewEngine(cat, conf.Search.Candidates)
	dropped := 0
	if cat != nil {
		dropped = cat.Dropped()
	}
	service.metrics.SetCatalog(service.engine.Len(), dropped, service.engine.Ready())

	service.geocoder = service.cachedGeocoder(ctx, service.engine)
	service.server = server.New(conf, log, service.geocoder, service.engine, tpls, service.metrics)

	return service, nil
}

// Run starts the scheduled jobs and serves HTTP requests until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	if s.memCache != nil {
		if err := s.createScheduledJob(ctx, s.config.Cache.PurgeInterval, s.purgeCache,
			"cache_purge_job"); err != nil {
			return err
		}
	}
	s.scheduler.Start()

	serveErr := s.server.Run(ctx)

	var closeErr error
	if err := s.scheduler.Shutdown(); err != nil {
		closeErr = fmt.Errorf("failed to shut down scheduler: %w", err)
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			closeErr = errors.Join(closeErr, fmt.Errorf("failed to close redis client: %w", err))
		}
	}
	return errors.Join(serveErr, closeErr)
}

// Engine returns the geocoding engine.
func (s *Service) Engine() *geocode.Engine {
	return s.engine
}

// Geocoder returns the geocoder queries are answered with, including its cache.
func (s *Service) Geocoder() geocode.Geocoder {
	return s.geocoder
}

// Server returns the HTTP server.
func (s *Service) Server() *server.Server {
	return s.server
}

// LoadError returns the error that prevented the catalog from loading, if any.
func (s *Service) LoadError() error {
	return s.loadErr
}

func (s *Service) loadCatalog(ctx context.Context) (*catalog.Catalog, error) {
	src, err := catalog.NewSource(s.config.Catalog.Source, catalog.SourceOptions{
		Sheet:   s.config.Catalog.Sheet,
		Table:   s.config.Catalog.Table,
		Client:  http.New(s.logger),
		Timeout: s.config.Catalog.Timeout,
	})
	if err != nil {
		return nil, err
	}

	if s.config.Catalog.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.Catalog.Timeout)
		defer cancel()
	}
	start := time.Now()
	cat, err := catalog.Load(ctx, src)
	if err != nil {
		return nil, err
	}
	s.logger.Info("place catalog loaded", "source", src.Name(), "records", cat.Len(),
		"dropped", cat.Dropped(), "lat_column", cat.Schema().LatitudeColumn(),
		"lon_column", cat.Schema().LongitudeColumn(), "duration", time.Since(start))
	return cat, nil
}

func (s *Service) cachedGeocoder(ctx context.Context, engine *geocode.Engine) geocode.Geocoder {
	var cache geocode.Cache
	switch s.config.Cache.Backend {
	case config.CacheMemory:
		s.memCache = geocode.NewMemoryCache(s.config.Cache.Capacity)
		cache = s.memCache
	case config.CacheRedis:
		s.redis = redis.NewClient(&redis.Options{
			Addr:     s.config.Redis.Addr,
			Password: s.config.Redis.Password,
			DB:       s.config.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
		defer cancel()
		if err := s.redis.Ping(pingCtx).Err(); err != nil {
			s.logger.Warn("redis cache is not reachable, queries will bypass it until it is",
				logger.Err(err), "addr", s.config.Redis.Addr)
		}
		cache = geocode.NewRedisCache(s.redis, geocode.DefaultRedisPrefix)
	default:
		return engine
	}

	s.logger.Debug("result cache enabled", "backend", s.config.Cache.Backend, "ttl", s.config.Cache.TTL,
		"capacity", s.config.Cache.Capacity)
	return geocode.NewCachedGeocoder(engine, cache, s.config.Cache.TTL).WithStats(s.metrics)
}

func (s *Service) createScheduledJob(ctx context.Context, interval time.Duration, task func(context.Context),
	jobName string,
) error {
	_, err := s.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(task),
		gocron.WithContext(ctx),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithName(jobName),
	)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", jobName, err)
	}
	return nil
}

// purgeCache removes expired entries from the in-memory result cache.
func (s *Service) purgeCache(context.Context) {
	if s.memCache == nil {
		return
	}
	if removed := s.memCache.Purge(); removed > 0 {
		s.logger.Debug("purged expired cache entries", "removed", removed, "remaining", s.memCache.Len())
	}
}
