package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	customerstore "onboarding/internal/customer/store"
	"onboarding/internal/platform/config"
	"onboarding/internal/platform/postgres"
	platformredis "onboarding/internal/platform/redis"
	"onboarding/internal/ratelimit/store/bucket"
	"onboarding/internal/verification/adapters/cloudinary"
	"onboarding/internal/verification/adapters/provider"
	"onboarding/internal/verification/finalizer"
	"onboarding/internal/verification/metrics"
	"onboarding/internal/verification/ports"
	"onboarding/internal/verification/service"
	objectstore "onboarding/internal/verification/store/object"
	sessionstore "onboarding/internal/verification/store/session"
	audit "onboarding/pkg/platform/audit"
	"onboarding/pkg/platform/audit/publisher"
	auditkafka "onboarding/pkg/platform/audit/store/kafka"
	auditmemory "onboarding/pkg/platform/audit/store/memory"
	auditpostgres "onboarding/pkg/platform/audit/store/postgres"
	"onboarding/pkg/platform/circuit"
	txcontext "onboarding/pkg/platform/tx"
)

// infra holds the optional external connections. Nil fields mean the
// in-memory fallback is used.
type infra struct {
	redis *platformredis.Client
	db    *sql.DB
	kafka *auditkafka.Store
}

func openInfra(ctx context.Context, cfg *config.Config, log *slog.Logger) (*infra, error) {
	if cfg.Providers.ExtractionURL == "" || cfg.Providers.FaceMatchURL == "" {
		return nil, errors.New("EXTRACTION_PROVIDER_URL and FACE_MATCH_PROVIDER_URL are required")
	}

	in := &infra{}
	var err error
	if in.redis, err = platformredis.New(ctx, cfg.Redis); err != nil {
		return nil, err
	}
	if in.db, err = postgres.Open(ctx, cfg.Postgres); err != nil {
		in.Close()
		return nil, err
	}
	if len(cfg.Kafka.Brokers) > 0 {
		if in.kafka, err = auditkafka.New(cfg.Kafka.Brokers, cfg.Kafka.AuditTopic); err != nil {
			in.Close()
			return nil, fmt.Errorf("connect kafka: %w", err)
		}
		if err := in.kafka.EnsureTopic(ctx, cfg.Kafka.Partitions, cfg.Kafka.Replication); err != nil {
			in.Close()
			return nil, fmt.Errorf("ensure audit topic: %w", err)
		}
	}

	log.Info("infrastructure ready",
		"redis", in.redis != nil,
		"postgres", in.db != nil,
		"kafka", in.kafka != nil,
		"cloudinary", cfg.Cloudinary.URL != "",
	)
	return in, nil
}

func (in *infra) Close() {
	if in.kafka != nil {
		in.kafka.Close()
	}
	if in.db != nil {
		_ = in.db.Close()
	}
	if in.redis != nil {
		_ = in.redis.Close()
	}
}

type app struct {
	service   *service.Service
	publisher *publisher.Publisher
	buckets   *bucket.InMemoryBucketStore
}

func buildApp(cfg *config.Config, in *infra, reg prometheus.Registerer, log *slog.Logger) (*app, error) {
	var sessions service.SessionStore = sessionstore.New()
	if in.redis != nil {
		sessions = sessionstore.NewRedis(in.redis.Client)
	}

	var objects ports.ObjectStore = objectstore.New()
	if cfg.Cloudinary.URL != "" {
		store, err := cloudinary.New(cfg.Cloudinary.URL,
			cloudinary.WithFolder(cfg.Cloudinary.Folder),
			cloudinary.WithLogger(log),
		)
		if err != nil {
			return nil, fmt.Errorf("configure cloudinary: %w", err)
		}
		objects = store
	}

	var auditStore audit.Store = auditmemory.NewInMemoryStore()
	var (
		customers    finalizer.CustomerRepository
		lookup       service.CustomerLookup
		screenings   service.ScreeningRecorder
		finalizeOpts = []finalizer.Option{finalizer.WithLogger(log)}
	)
	if in.db != nil {
		pg := customerstore.NewPostgres(in.db)
		customers, lookup, screenings = pg, pg, pg
		journal := auditpostgres.New(in.db)
		auditStore = journal
		finalizeOpts = append(finalizeOpts,
			finalizer.WithTxRunner(txcontext.NewSQLRunner(in.db)),
			finalizer.WithJournal(journal),
		)
	} else {
		mem := customerstore.New()
		customers, lookup, screenings = mem, mem, mem
	}
	if in.kafka != nil {
		auditStore = in.kafka
	}
	pub := publisher.NewPublisher(auditStore,
		publisher.WithAsyncBuffer(1024),
		publisher.WithLogger(log),
	)

	providerCfg := func(url string) provider.Config {
		return provider.Config{BaseURL: url, APIKey: cfg.Providers.APIKey, Timeout: cfg.Providers.Timeout}
	}
	breaker := func(name string) *circuit.Breaker {
		return circuit.New(name,
			circuit.WithFailureThreshold(cfg.Providers.BreakerFailures),
			circuit.WithSuccessThreshold(cfg.Providers.BreakerSuccesses),
			circuit.WithCooldown(cfg.Providers.BreakerCooldown),
		)
	}
	extractor := provider.NewExtractor(providerCfg(cfg.Providers.ExtractionURL),
		provider.WithBreaker(breaker("document-extractor")),
		provider.WithLogger(log),
	)
	comparer := provider.NewComparer(providerCfg(cfg.Providers.FaceMatchURL), objects,
		provider.WithBreaker(breaker("face-comparer")),
		provider.WithLogger(log),
	)

	opts := []service.Option{
		service.WithLogger(log),
		service.WithMetrics(metrics.New(reg)),
		service.WithAuditor(pub),
		service.WithCustomerLookup(lookup),
	}
	if cfg.Screening.Enabled() {
		screenerCfg := func(url string) provider.Config {
			return provider.Config{BaseURL: url, APIKey: cfg.Screening.APIKey, Timeout: cfg.Providers.Timeout}
		}
		screener := provider.NewScreener(screenerCfg(cfg.Screening.AMLURL), screenerCfg(cfg.Screening.CreditURL),
			provider.WithLogger(log),
		)
		opts = append(opts, service.WithScreening(screener, screenings))
	}

	v := cfg.Verification
	opts = append(opts, service.WithConfig(service.Config{
		SimilarityThreshold:     v.SimilarityThreshold,
		MinExtractionConfidence: v.MinExtractionConfidence,
		MaxDocuments:            v.MaxDocuments,
		MaxImageBytes:           v.MaxImageBytes,
		MaxSelfieAttempts:       v.MaxSelfieAttempts,
		SessionTTL:              v.SessionTTL,
		ExternalCallTimeout:     v.ExternalCallTimeout,
		MaxRetries:              v.MaxRetries,
		RetryBaseBackoff:        v.RetryBaseBackoff,
		FinalizeLease:           v.FinalizeLease,
		ScreeningQueueSize:      cfg.Screening.QueueSize,
	}))
	svc, err := service.New(sessions, objects, extractor, comparer,
		finalizer.New(customers, finalizeOpts...),
		opts...,
	)
	if err != nil {
		pub.Close()
		return nil, err
	}
	return &app{service: svc, publisher: pub, buckets: bucket.NewInMemoryBucketStore()}, nil
}
