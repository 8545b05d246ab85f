package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"

	"quizgen-service/internal/app"
	"quizgen-service/internal/config"
	"quizgen-service/internal/extract"
	"quizgen-service/internal/infra/archive"
	"quizgen-service/internal/infra/events"
	"quizgen-service/internal/infra/memory"
	mongostore "quizgen-service/internal/infra/mongo"
	pgstore "quizgen-service/internal/infra/postgres"
	redisstore "quizgen-service/internal/infra/redis"
	"quizgen-service/internal/logger"
	"quizgen-service/internal/metrics"
	"quizgen-service/internal/model"
)

// components owns everything built from config; close releases it in reverse order.
type components struct {
	service *app.QuizService
	closers []func()
}

func (c *components) onClose(f func()) {
	c.closers = append(c.closers, f)
}

func (c *components) close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
}

func buildComponents(ctx context.Context, cfg config.Config, log *logger.Logger, m *metrics.Metrics) (*components, error) {
	c := &components{}
	ok := false
	defer func() {
		if !ok {
			c.close()
		}
	}()

	client, err := model.New(ctx, model.Config{
		Provider:    cfg.Model.Provider,
		APIKey:      cfg.Model.APIKey,
		BaseURL:     cfg.Model.BaseURL,
		Name:        cfg.Model.Name,
		Temperature: cfg.Model.Temperature,
		MaxTokens:   cfg.Model.MaxTokens,
		Timeout:     config.Duration(cfg.Model.Timeout, 90*time.Second),
	})
	if err != nil {
		return nil, err
	}
	if closer, isCloser := client.(io.Closer); isCloser {
		c.onClose(func() { _ = closer.Close() })
	}
	instrumented := model.Instrument(client, cfg.Model.Provider, m, log.With("component", "model"))

	store, err := buildStore(ctx, cfg, log, c)
	if err != nil {
		return nil, err
	}
	docs, err := buildArchive(ctx, cfg, c)
	if err != nil {
		return nil, err
	}

	var publisher app.EventPublisher
	if cfg.Events.AMQPURL != "" {
		p, err := events.NewPublisher(cfg.Events.AMQPURL, cfg.Events.Exchange, log.With("component", "events"))
		if err != nil {
			return nil, err
		}
		c.onClose(func() { _ = p.Close() })
		publisher = p
	} else {
		log.Info("event publishing disabled")
		publisher = events.Nop{}
	}

	c.service = app.NewQuizService(app.Deps{
		Generator: app.NewGenerator(instrumented, extract.New(cfg.Generation.MaxDocumentChars), log.With("component", "generator"), m),
		Narrator:  app.NewNarrator(instrumented),
		Store:     store,
		Archive:   docs,
		Events:    publisher,
		Log:       log.With("component", "quiz_service"),
		Metrics:   m,
	})
	ok = true
	return c, nil
}

func buildStore(ctx context.Context, cfg config.Config, log *logger.Logger, c *components) (app.QuizStore, error) {
	cacheTTL := config.Duration(cfg.Cache.TTL, 10*time.Minute)

	switch cfg.Store.Driver {
	case "memory":
		log.Info("using in-memory quiz store")
		return memory.NewStore(), nil
	case "redis":
		if cfg.Redis.Addr == "" {
			return nil, fmt.Errorf("redis store selected but redis.addr is empty")
		}
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		c.onClose(func() { _ = client.Close() })
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		log.Info("using redis quiz store", "addr", cfg.Redis.Addr)
		return redisstore.NewStore(client, config.Duration(cfg.Redis.TTL, 7*24*time.Hour)), nil
	case "postgres":
		if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
			return nil, err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		c.onClose(pool.Close)
		log.Info("using postgres quiz store", "cache_ttl", cacheTTL.String())
		return memory.NewCachedStore(pgstore.NewStore(pool), cacheTTL), nil
	case "mongo":
		client, err := mongostore.Connect(ctx, cfg.Mongo.URI)
		if err != nil {
			return nil, err
		}
		c.onClose(func() { _ = client.Disconnect(context.Background()) })
		log.Info("using mongo quiz store", "database", cfg.Mongo.Database, "cache_ttl", cacheTTL.String())
		return memory.NewCachedStore(mongostore.NewStore(client.Database(cfg.Mongo.Database)), cacheTTL), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

func buildArchive(ctx context.Context, cfg config.Config, c *components) (app.DocumentArchive, error) {
	a := cfg.Archive
	switch a.Driver {
	case "none":
		return archive.Nop{}, nil
	case "local":
		return archive.NewLocal(a.Dir)
	case "minio":
		return archive.NewMinio(ctx, archive.MinioConfig{
			Endpoint:  a.Endpoint,
			AccessKey: a.AccessKey,
			SecretKey: a.SecretKey,
			Bucket:    a.Bucket,
			Region:    a.Region,
			UseSSL:    a.UseSSL,
		})
	case "gcs":
		g, err := archive.NewGCS(ctx, a.Bucket, a.Endpoint)
		if err != nil {
			return nil, err
		}
		c.onClose(func() { _ = g.Close() })
		return g, nil
	default:
		return nil, fmt.Errorf("unknown archive driver %q", a.Driver)
	}
}
