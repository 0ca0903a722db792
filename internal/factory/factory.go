// Package factory wires the application graph: configuration, clients,
// audit pipeline, session manager, and the authentication service.
package factory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"admin-auth-service/internal/audit"
	"admin-auth-service/internal/auth"
	"admin-auth-service/internal/bucketing"
	"admin-auth-service/internal/client"
	"admin-auth-service/internal/config"
	"admin-auth-service/internal/credential"
	"admin-auth-service/internal/handler"
	"admin-auth-service/internal/hashing"
	"admin-auth-service/internal/ratelimit"
	"admin-auth-service/internal/secrets"
	"admin-auth-service/internal/session"
	"admin-auth-service/internal/tls"
	"admin-auth-service/internal/util"
)

// Factory owns the lifecycle of every application dependency.
type Factory struct {
	config     *config.Config
	tlsManager *tls.Manager

	redisClient      *client.RedisClient
	kafkaProducer    *client.KafkaProducer
	esClient         *client.ESClient
	clickhouseClient *client.ClickHouseClient

	secretsManager   *secrets.Manager
	bucketingManager *bucketing.Manager

	recorder       *audit.Recorder
	sessionManager *session.Manager
	limiter        ratelimit.Limiter
	authService    *auth.Service
	issuer         *auth.EmergencyIssuer
	redeemer       *auth.EmergencyRedeemer
	adminHandler   *handler.AdminHandler

	closeOnce sync.Once
}

// NewFactory loads configuration and initializes every dependency. Optional
// backends (Kafka, ClickHouse, Elasticsearch) degrade to warnings outside
// production; Redis falls back to in-memory stores.
func NewFactory() (*Factory, error) {
	cfg := config.LoadConfig()

	util.Init(cfg.Environment, cfg.Logging.Level, cfg.Logging.Format)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	f := &Factory{config: cfg}

	if cfg.Server.EnableTLS {
		f.tlsManager = tls.NewManager(&cfg.Server)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := f.initClients(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize clients: %w", err)
	}

	if err := f.initCore(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize core services: %w", err)
	}

	util.Info("Factory initialized successfully",
		util.String("environment", cfg.Environment),
		util.Bool("tls_enabled", cfg.Server.EnableTLS),
		util.Bool("kms_enabled", cfg.KMS.Enabled),
		util.Bool("redis_enabled", f.redisClient != nil),
	)
	return f, nil
}

func (f *Factory) initClients(ctx context.Context) error {
	var initErrors []error

	if f.config.Redis.Enabled {
		if redisClient, err := client.NewRedisClient(f.config); err != nil {
			initErrors = append(initErrors, fmt.Errorf("redis: %w", err))
		} else {
			f.redisClient = redisClient
			util.Info("Redis client initialized and healthy")
		}
	}

	if f.config.Kafka.Enabled {
		if producer, err := client.NewKafkaProducer(f.config, util.Get()); err != nil {
			util.Warn("Kafka producer initialization failed, proceeding without Kafka", util.ErrorField(err))
		} else {
			f.kafkaProducer = producer
			util.Info("Kafka producer initialized")
		}
	}

	if f.config.Elasticsearch.Enabled {
		if esClient, err := client.NewElasticsearchClient(f.config, util.Get()); err != nil {
			initErrors = append(initErrors, fmt.Errorf("elasticsearch: %w", err))
		} else {
			f.esClient = esClient
		}
	}

	if f.config.Clickhouse.Enabled {
		if chClient, err := client.NewClickHouseClient(f.config); err != nil {
			initErrors = append(initErrors, fmt.Errorf("clickhouse: %w", err))
		} else {
			f.clickhouseClient = chClient
			if err := f.clickhouseClient.HealthCheck(ctx); err != nil {
				initErrors = append(initErrors, fmt.Errorf("clickhouse health check: %w", err))
			}
		}
	}

	if len(initErrors) > 0 {
		if f.config.IsProduction() {
			return fmt.Errorf("critical service initialization failed: %v", initErrors)
		}
		for _, err := range initErrors {
			util.Warn("Service initialization warning", util.ErrorField(err))
		}
	}
	return nil
}

func (f *Factory) initCore(ctx context.Context) error {
	cfg := f.config

	secretsManager, err := secrets.NewManager(ctx, cfg)
	if err != nil {
		return fmt.Errorf("secrets: %w", err)
	}
	f.secretsManager = secretsManager
	masterKey := secretsManager.MasterKey()

	f.bucketingManager = bucketing.NewManager(cfg.Bucketing.EventBuckets)

	// Audit pipeline: zap always, the heavier sinks only when their backend
	// came up.
	sinks := []audit.Sink{audit.NewLogSink(util.Get())}
	if f.kafkaProducer != nil {
		sinks = append(sinks, audit.NewKafkaSink(f.kafkaProducer))
	}
	if f.clickhouseClient != nil {
		table := fmt.Sprintf("%s.%s", cfg.Clickhouse.Database, cfg.Clickhouse.Table)
		sinks = append(sinks, audit.NewClickHouseSink(f.clickhouseClient, f.bucketingManager, table))
	}
	if f.esClient != nil {
		sinks = append(sinks, audit.NewElasticSink(f.esClient, cfg.Elasticsearch.Index))
	}
	f.recorder = audit.NewRecorder(audit.NewFanout(sinks...))

	var store session.Store
	settings := ratelimit.Settings{
		MaxFailures:   cfg.Auth.MaxFailedAttempts,
		Window:        cfg.Auth.AttemptWindow,
		BlockDuration: cfg.Auth.BlockDuration,
	}
	if f.redisClient != nil {
		store = session.NewRedisStore(f.redisClient)
		f.limiter = ratelimit.NewRedisLimiter(f.redisClient, settings)
	} else {
		store = session.NewMemoryStore()
		f.limiter = ratelimit.NewMemoryLimiter(settings)
	}

	f.sessionManager = session.NewManager(store, f.recorder, cfg.Auth.SessionTTL, cfg.Auth.EnforceOriginConsistency)

	var verifier credential.MasterVerifier
	switch cfg.Auth.MasterVerifier {
	case "argon2":
		verifier = credential.NewArgon2Verifier(hashing.NewHasher(hashing.DefaultParams()), cfg.Auth.MasterArgon2Hash)
	default:
		verifier = credential.NewDerivedKeyVerifier(masterKey, cfg.Auth.MasterSalt)
	}

	f.authService = auth.NewService(
		verifier,
		f.limiter,
		f.sessionManager,
		f.recorder,
		masterKey,
		cfg.Auth.Issuer,
		cfg.Auth.TOTPSkew,
	)

	f.issuer = auth.NewEmergencyIssuer(f.recorder, cfg.Auth.EmergencyTTL)

	// Consumption markers go through Redis when it is up so every instance
	// sees a redeemed code; otherwise they are process local.
	var redemptionStore auth.RedemptionStore = auth.NewMemoryRedemptionStore()
	if f.redisClient != nil {
		redemptionStore = f.redisClient
	}
	f.redeemer = auth.NewEmergencyRedeemer(redemptionStore, f.recorder, cfg.Auth.EmergencyTTL)

	f.adminHandler = handler.NewAdminHandler(
		f.authService,
		f.sessionManager,
		f.issuer,
		f.redeemer,
		f.esClient,
		cfg.Elasticsearch.Index,
		cfg.Auth.OperatorToken,
		f.HealthCheck,
		util.Get(),
	)
	return nil
}

func (f *Factory) Config() *config.Config { return f.config }

func (f *Factory) TLSManager() *tls.Manager { return f.tlsManager }

func (f *Factory) AdminHandler() *handler.AdminHandler { return f.adminHandler }

func (f *Factory) SessionManager() *session.Manager { return f.sessionManager }

// HealthCheck probes every initialized backend.
func (f *Factory) HealthCheck(ctx context.Context) map[string]error {
	results := make(map[string]error)

	if f.redisClient != nil {
		results["redis"] = f.redisClient.HealthCheck(ctx)
	}
	if f.kafkaProducer != nil {
		results["kafka"] = f.kafkaProducer.HealthCheck(ctx)
	}
	if f.esClient != nil {
		results["elasticsearch"] = f.esClient.HealthCheck()
	}
	if f.clickhouseClient != nil {
		results["clickhouse"] = f.clickhouseClient.HealthCheck(ctx)
	}
	return results
}

// Close shuts everything down in reverse dependency order. The recorder goes
// first so queued events drain through still-open sinks.
func (f *Factory) Close() {
	f.closeOnce.Do(func() {
		util.Info("Shutting down factory")

		if f.recorder != nil {
			if err := f.recorder.Close(); err != nil {
				util.Error("Failed to close audit recorder", util.ErrorField(err))
			}
		}
		if f.clickhouseClient != nil {
			if err := f.clickhouseClient.Close(); err != nil {
				util.Error("Failed to close ClickHouse client", util.ErrorField(err))
			}
		}
		if f.redisClient != nil {
			if err := f.redisClient.Close(); err != nil {
				util.Error("Failed to close Redis client", util.ErrorField(err))
			}
		}

		util.Info("Factory shutdown complete")
		util.Sync()
	})
}
