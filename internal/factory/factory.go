package factory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"blog-service/internal/audit"
	"blog-service/internal/bucketing"
	"blog-service/internal/client"
	"blog-service/internal/config"
	"blog-service/internal/encryption"
	"blog-service/internal/events"
	"blog-service/internal/guard"
	"blog-service/internal/hashing"
	"blog-service/internal/otp"
	"blog-service/internal/repository/postgres"
	redisrepo "blog-service/internal/repository/redis"
	"blog-service/internal/repository/scylla"
	"blog-service/internal/search"
	"blog-service/internal/service"
	"blog-service/internal/tls"
	"blog-service/internal/token"
	"blog-service/internal/util"
)

const (
	initTimeout   = 30 * time.Second
	healthTimeout = 5 * time.Second
)

// Factory manages the lifecycle of all application dependencies
type Factory struct {
	config     *config.Config
	tlsManager *tls.TLSManager

	// Clients
	pgPool           *pgxpool.Pool
	scyllaClient     *scylla.ScyllaClient
	redisClient      *client.RedisClient
	kafkaProducer    *client.KafkaProducer
	kafkaConsumer    *client.KafkaConsumer
	esClient         *client.ESClient
	clickhouseClient *client.ClickHouseClient
	s3Client         *client.S3Client
	mailer           *client.Mailer

	// Managers
	secrets          *encryption.SecretManager
	hasher           *hashing.Hasher
	passwords        *hashing.PasswordHasher
	bucketingManager *bucketing.Manager
	tokens           *token.Service

	// Domain components
	otpRegistry    *otp.Registry
	rateLimits     *redisrepo.RateLimitCache
	searchIndex    service.SearchIndex
	publisher      events.Publisher
	recorder       audit.Recorder
	chRecorder     *audit.ClickHouseRecorder
	indexer        *events.Indexer
	serviceFactory *service.ServiceFactory

	workers     *errgroup.Group
	stopWorkers context.CancelFunc
	closeOnce   sync.Once
}

// NewFactory connects every backing service and assembles the domain
// components. Optional backends that fail to start are logged and replaced
// by local fallbacks unless running in production.
func NewFactory(ctx context.Context, cfg *config.Config) (*Factory, error) {
	f := &Factory{config: cfg}

	ctx, cancel := context.WithTimeout(ctx, initTimeout)
	defer cancel()

	if err := f.resolveSecrets(ctx); err != nil {
		return nil, fmt.Errorf("failed to resolve secrets: %w", err)
	}

	if err := f.initializeClients(ctx); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to initialize clients: %w", err)
	}

	if err := f.migrate(ctx); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to prepare storage: %w", err)
	}

	f.initializeManagers()
	f.initializeComponents()

	if cfg.Server.EnableTLS {
		f.tlsManager = tls.NewTLSManager(cfg.Server, cfg.IsProduction())
	}

	util.Info("Factory initialized successfully",
		util.String("environment", cfg.Environment),
		util.Bool("tls_enabled", cfg.Server.EnableTLS),
		util.Bool("kms_enabled", cfg.KMS.Enabled),
		util.Bool("kafka_enabled", f.kafkaProducer != nil),
		util.Bool("search_enabled", f.esClient != nil),
		util.Bool("audit_enabled", f.clickhouseClient != nil),
	)

	return f, nil
}

// resolveSecrets unwraps KMS-encrypted settings in place.
func (f *Factory) resolveSecrets(ctx context.Context) error {
	if f.config.KMS.Enabled {
		kmsClient, err := encryption.NewKMSClient(ctx, f.config.KMS)
		if err != nil {
			return err
		}
		f.secrets = encryption.NewSecretManager(f.config.KMS, kmsClient)
	} else {
		f.secrets = encryption.NewSecretManager(f.config.KMS, nil)
	}

	targets := []struct {
		name  string
		value *string
	}{
		{"JWT_SECRET", &f.config.JWT.Secret},
		{"HASH_PEPPER", &f.config.Hashing.Pepper},
		{"MAIL_PASSWORD", &f.config.Mail.Password},
	}
	for _, t := range targets {
		if *t.value == "" {
			continue
		}
		plain, err := f.secrets.Resolve(ctx, t.name, *t.value)
		if err != nil {
			return err
		}
		*t.value = plain
	}
	return nil
}

// initializeClients opens the required stores first. Postgres, Scylla, S3
// and SMTP are needed for every request path and always fail startup.
func (f *Factory) initializeClients(ctx context.Context) error {
	cfg := f.config

	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	f.pgPool = pool

	scyllaClient, err := scylla.NewScyllaClient(cfg.Scylla)
	if err != nil {
		return fmt.Errorf("scylla: %w", err)
	}
	f.scyllaClient = scyllaClient

	s3Client, err := client.NewS3Client(ctx, cfg.S3)
	if err != nil {
		return fmt.Errorf("s3: %w", err)
	}
	f.s3Client = s3Client

	mailer, err := client.NewMailer(cfg.Mail)
	if err != nil {
		return fmt.Errorf("mail: %w", err)
	}
	f.mailer = mailer

	var initErrors []error

	// Redis
	if redisClient, err := client.NewRedisClient(ctx, cfg.Redis); err != nil {
		initErrors = append(initErrors, fmt.Errorf("redis: %w", err))
	} else {
		f.redisClient = redisClient
	}

	// Kafka
	if cfg.Kafka.Enabled {
		if producer, err := client.NewKafkaProducer(ctx, cfg.Kafka); err != nil {
			initErrors = append(initErrors, fmt.Errorf("kafka: %w", err))
		} else {
			f.kafkaProducer = producer
			f.kafkaConsumer = client.NewKafkaConsumer(cfg.Kafka, cfg.Kafka.EventTopic, cfg.Kafka.IndexerGroup)
		}
	}

	// Elasticsearch
	if cfg.Elasticsearch.Enabled {
		if esClient, err := client.NewElasticsearchClient(ctx, cfg.Elasticsearch, cfg.IsDevelopment()); err != nil {
			initErrors = append(initErrors, fmt.Errorf("elasticsearch: %w", err))
		} else {
			f.esClient = esClient
		}
	}

	// ClickHouse
	if cfg.Clickhouse.Enabled {
		if chClient, err := client.NewClickHouseClient(ctx, cfg.Clickhouse, cfg.IsProduction()); err != nil {
			initErrors = append(initErrors, fmt.Errorf("clickhouse: %w", err))
		} else {
			f.clickhouseClient = chClient
		}
	}

	if len(initErrors) > 0 {
		if cfg.IsProduction() {
			return fmt.Errorf("critical service initialization failed: %w", errors.Join(initErrors...))
		}
		for _, err := range initErrors {
			util.Warn("Service initialization warning", util.ErrorField(err))
		}
	}

	return nil
}

func (f *Factory) migrate(ctx context.Context) error {
	if err := postgres.Migrate(ctx, f.pgPool); err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	if err := f.scyllaClient.Migrate(ctx); err != nil {
		return fmt.Errorf("scylla: %w", err)
	}
	if f.esClient != nil {
		if err := search.NewBlogIndex(f.esClient, f.config.Elasticsearch.BlogIndex).EnsureIndex(ctx); err != nil {
			return fmt.Errorf("elasticsearch: %w", err)
		}
	}
	return nil
}

// initializeManagers builds hashing, bucketing and token issuance.
func (f *Factory) initializeManagers() {
	f.hasher = hashing.NewHasher(f.config.Hashing)
	f.passwords = hashing.NewPasswordHasher(f.config.Hashing.BcryptCost)
	f.bucketingManager = bucketing.NewManager(f.config.Bucketing)
	f.tokens = token.NewService(f.config.JWT.Secret, f.config.JWT.AccessExpiry, f.config.JWT.RefreshExpiry)

	util.Info("Managers initialized successfully",
		util.Int("otp_buckets", f.config.Bucketing.OTPBuckets),
		util.Duration("access_expiry", f.config.JWT.AccessExpiry),
	)
}

func (f *Factory) initializeComponents() {
	cfg := f.config

	otpOpts := []otp.Option{}
	if f.redisClient != nil {
		otpOpts = append(otpOpts, otp.WithLimiter(redisrepo.NewOTPAttemptCache(f.redisClient, cfg.OTP.LockDuration)))
		f.rateLimits = redisrepo.NewRateLimitCache(f.redisClient)
	}
	f.otpRegistry = otp.NewRegistry(
		scylla.NewOTPRepository(f.scyllaClient, f.bucketingManager),
		f.mailer,
		f.hasher,
		otp.Config{
			Window:       cfg.OTP.Expiry,
			MaxAttempts:  cfg.OTP.MaxAttempts,
			LockDuration: cfg.OTP.LockDuration,
		},
		otpOpts...,
	)

	if f.esClient != nil {
		f.searchIndex = search.NewBlogIndex(f.esClient, cfg.Elasticsearch.BlogIndex)
	} else {
		f.searchIndex = search.Nop{}
	}

	if f.kafkaProducer != nil {
		f.publisher = events.NewKafkaPublisher(f.kafkaProducer, cfg.Kafka.EventTopic)
		f.indexer = events.NewIndexer(f.kafkaConsumer, f.searchIndex)
	} else {
		f.publisher = events.NopPublisher{}
	}

	if f.clickhouseClient != nil {
		f.chRecorder = audit.NewClickHouseRecorder(f.clickhouseClient)
		f.recorder = f.chRecorder
	} else {
		f.recorder = audit.LogRecorder{}
	}
}

// ServiceFactory returns the service factory (singleton)
func (f *Factory) ServiceFactory() *service.ServiceFactory {
	if f.serviceFactory == nil {
		f.serviceFactory = service.NewServiceFactory(service.Dependencies{
			Users:          postgres.NewUserRepository(f.pgPool),
			Blogs:          postgres.NewBlogRepository(f.pgPool),
			OTP:            f.otpRegistry,
			Passwords:      f.passwords,
			Tokens:         f.tokens,
			Objects:        f.s3Client,
			Index:          f.searchIndex,
			Publisher:      f.publisher,
			Audit:          f.recorder,
			IndexViaEvents: f.indexer != nil,
		}, f.config, util.Get())
	}
	return f.serviceFactory
}

// Guards returns the route guards backed by the token service.
func (f *Factory) Guards() *guard.Set {
	return guard.NewSet(f.tokens)
}

// StartWorkers launches the audit flusher and the search indexer. They stop
// when Close is called.
func (f *Factory) StartWorkers(ctx context.Context) error {
	if f.chRecorder != nil {
		if err := f.chRecorder.EnsureTable(ctx); err != nil {
			return fmt.Errorf("clickhouse: %w", err)
		}
	}

	ctx, f.stopWorkers = context.WithCancel(ctx)
	f.workers, ctx = errgroup.WithContext(ctx)

	if f.chRecorder != nil {
		f.workers.Go(func() error {
			f.chRecorder.Run(ctx)
			return nil
		})
	}
	if f.indexer != nil {
		f.workers.Go(func() error {
			return f.indexer.Run(ctx)
		})
	}

	util.Info("Background workers started",
		util.Bool("audit", f.chRecorder != nil),
		util.Bool("indexer", f.indexer != nil))
	return nil
}

// Health probes every connected backend concurrently. The second result is
// false when a required backend is down; Kafka is reported but not required.
func (f *Factory) Health(ctx context.Context) (map[string]string, bool) {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	checks := map[string]func(context.Context) error{
		"postgres": f.pgPool.Ping,
		"scylla":   f.scyllaClient.HealthCheck,
		"s3":       f.s3Client.HealthCheck,
	}
	if f.redisClient != nil {
		checks["redis"] = f.redisClient.HealthCheck
	}
	if f.kafkaProducer != nil {
		checks["kafka"] = f.kafkaProducer.HealthCheck
	}
	if f.esClient != nil {
		checks["elasticsearch"] = f.esClient.HealthCheck
	}
	if f.clickhouseClient != nil {
		checks["clickhouse"] = f.clickhouseClient.HealthCheck
	}

	var (
		mu     sync.Mutex
		status = make(map[string]string, len(checks))
		ok     = true
	)
	var g errgroup.Group
	for name, check := range checks {
		name, check := name, check
		g.Go(func() error {
			err := check(ctx)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				status[name] = err.Error()
				if name != "kafka" {
					ok = false
				}
				return nil
			}
			status[name] = "ok"
			return nil
		})
	}
	_ = g.Wait()
	return status, ok
}

// Close stops the workers, then closes clients in reverse dependency order.
func (f *Factory) Close() error {
	f.closeOnce.Do(func() {
		util.Info("Shutting down factory...")

		if f.stopWorkers != nil {
			f.stopWorkers()
			if err := f.workers.Wait(); err != nil {
				util.Error("Background worker failed", util.ErrorField(err))
			}
		}

		if f.kafkaConsumer != nil {
			_ = f.kafkaConsumer.Close()
		}
		if f.kafkaProducer != nil {
			_ = f.kafkaProducer.Close()
		}
		if f.clickhouseClient != nil {
			_ = f.clickhouseClient.Close()
		}
		if f.esClient != nil {
			f.esClient.Close()
		}
		if f.redisClient != nil {
			_ = f.redisClient.Close()
		}
		if f.scyllaClient != nil {
			f.scyllaClient.Close()
		}
		if f.pgPool != nil {
			f.pgPool.Close()
			util.Info("Postgres pool closed")
		}

		util.Info("Factory shutdown completed")
		util.Sync()
	})

	return nil
}

func (f *Factory) Config() *config.Config {
	return f.config
}

func (f *Factory) TLSManager() *tls.TLSManager {
	return f.tlsManager
}

func (f *Factory) Tokens() *token.Service {
	return f.tokens
}

// RateLimiter is nil when Redis is unavailable.
func (f *Factory) RateLimiter() *redisrepo.RateLimitCache {
	return f.rateLimits
}
