package container

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	_ "github.com/danielgtaylor/huma/v2/formats/cbor" // CBOR format support for huma
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"github.com/serroba/linkcut/internal/analytics"
	analyticsstore "github.com/serroba/linkcut/internal/analytics/store"
	"github.com/serroba/linkcut/internal/handlers"
	"github.com/serroba/linkcut/internal/health"
	"github.com/serroba/linkcut/internal/messaging"
	"github.com/serroba/linkcut/internal/middleware"
	"github.com/serroba/linkcut/internal/ratelimit"
	"github.com/serroba/linkcut/internal/shortcode"
	"github.com/serroba/linkcut/internal/shortener"
	"github.com/serroba/linkcut/internal/store"
	"github.com/serroba/linkcut/internal/validate"
	"go.uber.org/zap"
)

// Options holds the runtime configuration. Flags come from humacli, the env
// tags serve binaries that configure themselves from the environment alone.
type Options struct {
	Port              int    `default:"8888"                  env:"PORT"                envDefault:"8888"                  help:"Port to listen on"                                  short:"p"`
	BaseURL           string `default:""                      env:"BASE_URL"            help:"Public base URL for short links (defaults to localhost)"`
	CodeLength        int    `default:"6"                     env:"CODE_LENGTH"         envDefault:"6"                     help:"Length of generated short codes"                    short:"c"`
	CodeStrategy      string `default:"random"                env:"CODE_STRATEGY"       envDefault:"random"                help:"Code generation strategy (random, content_hash, sequential, time_based)"`
	DefaultExpiryDays int    `default:"365"                   env:"DEFAULT_EXPIRY_DAYS" envDefault:"365"                   help:"Default expiry in days for new links (0 disables)"`
	RedisAddr         string `default:"localhost:6379"        env:"REDIS_ADDR"          envDefault:"localhost:6379"        help:"Redis server address"                               short:"r"`
	PostgresDSN       string `default:""                      env:"POSTGRES_DSN"        help:"Postgres connection string (empty selects the in-memory store)"`
	MigrationsURL     string `default:"file://migrations"     env:"MIGRATIONS_URL"      envDefault:"file://migrations"     help:"Migration source URL"`
	CacheTTLSeconds   int    `default:"300"                   env:"CACHE_TTL_SECONDS"   envDefault:"300"                   help:"Redis cache TTL in seconds (0 disables caching)"`
	LogFormat         string `default:"console"               env:"LOG_FORMAT"          envDefault:"console"               help:"Log format (console or json)"`
}

// LoggerPackage provides the zap logger.
func LoggerPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*zap.Logger, error) {
		options := do.MustInvoke[*Options](i)

		if options.LogFormat == "json" {
			return zap.NewProduction()
		}

		return zap.NewDevelopment()
	})
}

// RedisPackage provides the shared Redis client.
func RedisPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*redis.Client, error) {
		options := do.MustInvoke[*Options](i)

		return redis.NewClient(&redis.Options{
			Addr: options.RedisAddr,
		}), nil
	})
}

// PostgresPackage provides the pgx connection pool and applies pending
// migrations. The pool is nil when no DSN is configured.
func PostgresPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*pgxpool.Pool, error) {
		options := do.MustInvoke[*Options](i)

		if options.PostgresDSN == "" {
			return nil, nil
		}

		if options.MigrationsURL != "" {
			if err := store.RunMigrations(options.PostgresDSN, options.MigrationsURL); err != nil {
				return nil, fmt.Errorf("migrations: %w", err)
			}
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		pool, err := pgxpool.New(ctx, options.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("postgres pool: %w", err)
		}

		if err := pool.Ping(ctx); err != nil {
			pool.Close()

			return nil, fmt.Errorf("postgres ping: %w", err)
		}

		return pool, nil
	})
}

// RepositoryPackage provides the URL repository: Postgres when configured,
// in-memory otherwise, with a Redis read cache layered on top when a TTL is
// set.
func RepositoryPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (shortener.Repository, error) {
		options := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)

		var repo shortener.Repository

		if pool := do.MustInvoke[*pgxpool.Pool](i); pool != nil {
			repo = store.NewPostgresStore(pool)

			logger.Info("using postgres repository")
		} else {
			repo = store.NewMemoryStore()

			logger.Warn("no postgres dsn configured, urls are stored in memory")
		}

		if options.CacheTTLSeconds > 0 {
			client := do.MustInvoke[*redis.Client](i)
			ttl := time.Duration(options.CacheTTLSeconds) * time.Second
			repo = store.NewRedisCacheRepository(repo, client, ttl)

			logger.Info("redis cache enabled", zap.Duration("ttl", ttl))
		}

		return repo, nil
	})
}

// RateLimitPackage provides the policy limiter backed by Redis, so limits
// hold across replicas.
func RateLimitPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*ratelimit.PolicyLimiter, error) {
		client := do.MustInvoke[*redis.Client](i)

		return ratelimit.NewPolicyLimiter(store.NewRateLimitRedisStore(client), ratelimit.DefaultPolicy()), nil
	})
}

// PublisherGroupPackage provides the Redis Streams publisher for analytics
// events.
func PublisherGroupPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*messaging.PublisherGroup, error) {
		client := do.MustInvoke[*redis.Client](i)

		publisher, err := redisstream.NewPublisher(redisstream.PublisherConfig{
			Client: client,
		}, watermill.NopLogger{})
		if err != nil {
			return nil, fmt.Errorf("redis stream publisher: %w", err)
		}

		return messaging.NewPublisherGroup(publisher), nil
	})
}

// ConsumerGroupPackage provides the analytics consumer group: one typed
// consumer per event topic, all feeding the analytics store.
func ConsumerGroupPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*messaging.ConsumerGroup, error) {
		client := do.MustInvoke[*redis.Client](i)
		logger := do.MustInvoke[*zap.Logger](i)

		subscriber, err := redisstream.NewSubscriber(redisstream.SubscriberConfig{
			Client:        client,
			ConsumerGroup: "analytics",
		}, watermill.NopLogger{})
		if err != nil {
			return nil, fmt.Errorf("redis stream subscriber: %w", err)
		}

		events := analyticsstore.NewNoop(logger)

		group := messaging.NewConsumerGroup(subscriber, logger)
		group.Add(messaging.NewConsumer(subscriber, analytics.TopicURLCreated,
			func(ctx context.Context, event *analytics.URLCreatedEvent) error {
				return events.SaveURLCreated(ctx, event)
			}, logger))
		group.Add(messaging.NewConsumer(subscriber, analytics.TopicURLAccessed,
			func(ctx context.Context, event *analytics.URLAccessedEvent) error {
				return events.SaveURLAccessed(ctx, event)
			}, logger))

		return group, nil
	})
}

// HTTPPackage provides the router and the fully wired API.
func HTTPPackage(injector *do.Injector) {
	do.Provide(injector, func(_ *do.Injector) (*chi.Mux, error) {
		return chi.NewMux(), nil
	})

	do.Provide(injector, func(i *do.Injector) (huma.API, error) {
		options := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)
		router := do.MustInvoke[*chi.Mux](i)
		repo := do.MustInvoke[shortener.Repository](i)
		limiter := do.MustInvoke[*ratelimit.PolicyLimiter](i)
		publishers := do.MustInvoke[*messaging.PublisherGroup](i)

		api := humachi.New(router, huma.DefaultConfig("linkcut", "1.0.0"))
		api.UseMiddleware(middleware.RequestMeta(api))
		api.UseMiddleware(middleware.PolicyRateLimiter(api, limiter, ratelimit.NewOperationScopeResolver(), logger))

		generator, err := shortcode.NewGenerator(shortcode.DefaultAlphabet(), options.CodeLength)
		if err != nil {
			return nil, fmt.Errorf("code generator: %w", err)
		}

		resolver := shortcode.NewResolver(
			generator,
			shortener.NewCodeLookup(repo),
			shortcode.Strategy(options.CodeStrategy),
			0,
		)

		validator := validate.New(validate.DefaultMaxURLLength, nil)
		service := shortener.NewService(repo, resolver, validator, options.DefaultExpiryDays, logger)

		baseURL := options.BaseURL
		if baseURL == "" {
			baseURL = fmt.Sprintf("http://localhost:%d", options.Port)
		}

		urlHandler := handlers.NewURLHandler(
			service,
			baseURL,
			messaging.NewPublishFunc[analytics.URLCreatedEvent](publishers.Publisher(), analytics.TopicURLCreated),
			messaging.NewPublishFunc[analytics.URLAccessedEvent](publishers.Publisher(), analytics.TopicURLAccessed),
			logger,
		)
		handlers.RegisterRoutes(api, urlHandler)

		var redisCheck, postgresCheck health.Checker

		redisCheck = health.NewRedisChecker(do.MustInvoke[*redis.Client](i))

		if pool := do.MustInvoke[*pgxpool.Pool](i); pool != nil {
			postgresCheck = health.NewPostgresChecker(pool)
		}

		health.RegisterRoutes(api, health.NewHandler(redisCheck, postgresCheck))

		return api, nil
	})
}
