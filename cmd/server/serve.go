package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"campusvote/internal/admin"
	authhandler "campusvote/internal/auth/handler"
	authmetrics "campusvote/internal/auth/metrics"
	authservice "campusvote/internal/auth/service"
	"campusvote/internal/auth/webhook"
	electionhandler "campusvote/internal/election/handler"
	electionmetrics "campusvote/internal/election/metrics"
	electionservice "campusvote/internal/election/service"
	grievancehandler "campusvote/internal/grievance/handler"
	grievancemetrics "campusvote/internal/grievance/metrics"
	grievanceservice "campusvote/internal/grievance/service"
	househandler "campusvote/internal/house/handler"
	houseservice "campusvote/internal/house/service"
	httpapi "campusvote/internal/http"
	jwttoken "campusvote/internal/jwt_token"
	"campusvote/internal/platform/config"
	"campusvote/internal/platform/httpserver"
	"campusvote/internal/platform/kafka"
	kafkaconsumer "campusvote/internal/platform/kafka/consumer"
	platformmetrics "campusvote/internal/platform/metrics"
	"campusvote/internal/platform/postgres"
	"campusvote/internal/ratelimit"
	ratelimitmw "campusvote/internal/ratelimit/middleware"
	"campusvote/internal/ratelimit/service/authlockout"
	resultshandler "campusvote/internal/results/handler"
	resultsmetrics "campusvote/internal/results/metrics"
	resultsservice "campusvote/internal/results/service"
	societyhandler "campusvote/internal/society/handler"
	societyservice "campusvote/internal/society/service"
	userhandler "campusvote/internal/user/handler"
	usermetrics "campusvote/internal/user/metrics"
	userservice "campusvote/internal/user/service"
	votinghandler "campusvote/internal/voting/handler"
	votingmetrics "campusvote/internal/voting/metrics"
	votingservice "campusvote/internal/voting/service"
	audit "campusvote/pkg/platform/audit"
	auditconsumer "campusvote/pkg/platform/audit/consumer"
	"campusvote/pkg/platform/audit/outbox"
	"campusvote/pkg/platform/audit/publisher"
	auditpostgres "campusvote/pkg/platform/audit/store/postgres"
	"campusvote/pkg/platform/circuit"
	"campusvote/pkg/platform/middleware/auth"
)

const (
	shutdownTimeout      = 10 * time.Second
	purgeInterval        = 15 * time.Minute
	auditTopicPartitions = 3
)

func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and background workers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.FromContext(cmd.Context())
			log, err := commonRun(cfg)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, log)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	st, err := openStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Error("failed to close stores", "error", err)
		}
	}()
	if st.db != nil {
		if err := postgres.Migrate(ctx, st.db, log); err != nil {
			return err
		}
	}

	auditPublisher := publisher.NewPublisher(st.audit,
		publisher.WithAsyncBuffer(cfg.AuditBufferSize),
		publisher.WithLogger(log))
	defer auditPublisher.Close()

	jwt := jwttoken.NewJWTService(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.JWTAudience)

	var verifier *webhook.Verifier
	if cfg.WebhookSecret != "" {
		verifier, err = webhook.NewVerifier(cfg.WebhookSecret)
		if err != nil {
			return fmt.Errorf("webhook secret: %w", err)
		}
	} else {
		log.Warn("WEBHOOK_SECRET not set, identity provider webhook disabled")
	}

	lockouts, err := authlockout.New(st.lockouts,
		authlockout.WithConfig(authlockout.Config{
			MaxAttempts:  cfg.LoginMaxAttempts,
			Window:       cfg.LoginWindow,
			LockDuration: cfg.LoginLockDuration,
		}),
		authlockout.WithLogger(log),
		authlockout.WithAuditPublisher(auditPublisher))
	if err != nil {
		return fmt.Errorf("login lockout: %w", err)
	}

	authSvc := authservice.New(st.users, st.houses, st.societies, jwt, st.revoked, st.tx,
		authservice.Config{AdminEmail: cfg.AdminEmail, TokenTTL: cfg.TokenTTL},
		authservice.WithLogger(log),
		authservice.WithAuditPublisher(auditPublisher),
		authservice.WithMetrics(authmetrics.New()),
		authservice.WithLockout(lockouts))
	userSvc := userservice.New(st.users,
		userservice.WithLogger(log),
		userservice.WithAuditPublisher(auditPublisher),
		userservice.WithMetrics(usermetrics.New()))
	houseSvc := houseservice.New(st.houses, st.users, st.tx,
		houseservice.WithLogger(log),
		houseservice.WithAuditPublisher(auditPublisher))
	societySvc := societyservice.New(st.societies, st.users, st.tx,
		societyservice.WithLogger(log),
		societyservice.WithAuditPublisher(auditPublisher))
	electionSvc := electionservice.New(st.elections, st.tx,
		electionservice.WithLogger(log),
		electionservice.WithAuditPublisher(auditPublisher),
		electionservice.WithMetrics(electionmetrics.New()))
	votingSvc := votingservice.New(st.votes, st.elections, st.users,
		votingservice.WithLogger(log),
		votingservice.WithAuditPublisher(auditPublisher),
		votingservice.WithMetrics(votingmetrics.New()))
	resultsSvc := resultsservice.New(st.elections, st.votes, st.users,
		resultsservice.WithLogger(log),
		resultsservice.WithAuditPublisher(auditPublisher),
		resultsservice.WithMetrics(resultsmetrics.New()))
	grievanceSvc := grievanceservice.New(st.grievances,
		grievanceservice.WithLogger(log),
		grievanceservice.WithAuditPublisher(auditPublisher),
		grievanceservice.WithMetrics(grievancemetrics.New()))

	limiter := ratelimit.NewIPLimiter(cfg.RateLimitPerHour, cfg.RateLimitBurst)
	authH := authhandler.New(authSvc, verifier, log)
	houseH := househandler.New(houseSvc, log)
	societyH := societyhandler.New(societySvc, log)

	checks := map[string]httpapi.HealthCheck{}
	if st.db != nil {
		checks["database"] = st.db.PingContext
	}
	if st.redis != nil {
		checks["redis"] = st.redis.Health
	}

	router := httpapi.NewRouter(httpapi.Deps{
		Config: httpapi.Config{
			Environment:    cfg.Environment,
			CORSOrigins:    cfg.CORSOrigins,
			BodyLimitBytes: cfg.BodyLimitBytes,
			MetricsToken:   cfg.MetricsToken,
		},
		Logger:      log,
		Metrics:     platformmetrics.New(),
		RequireAuth: auth.RequireAuth(jwttoken.NewJWTServiceAdapter(jwt), st.revoked, authSvc, log),
		RateLimit:   ratelimitmw.New(limiter, log).RateLimit,
		Root:        []func(chi.Router){authH.RegisterAdminLogin},
		Public:      []httpapi.PublicRegistrar{authH, houseH, societyH},
		Protected: []httpapi.Registrar{
			authH,
			userhandler.New(userSvc, log),
			houseH,
			societyH,
			electionhandler.New(electionSvc, log),
			votinghandler.New(votingSvc, log),
			resultshandler.New(resultsSvc, log),
			grievancehandler.New(grievanceSvc, log),
		},
		Admin:   []httpapi.Registrar{admin.New(auditPublisher, log)},
		Checks:  checks,
		Started: time.Now(),
	})

	g, ctx := errgroup.WithContext(ctx)
	srv := httpserver.New(cfg.Addr, router)
	g.Go(func() error {
		log.Info("starting server", "addr", cfg.Addr, "storage", cfg.StorageDriver)
		return httpserver.Run(ctx, srv, shutdownTimeout)
	})
	g.Go(func() error { return limiter.Run(ctx) })
	if p, ok := st.revoked.(purger); ok {
		g.Go(func() error { return purgeLoop(ctx, "revoked tokens", p, log) })
	}
	g.Go(func() error { return purgeLoop(ctx, "login lockouts", lockouts, log) })
	if cfg.AuditPipelineEnabled() {
		if err := startAuditPipeline(ctx, g, cfg, st, log); err != nil {
			return err
		}
	}
	return g.Wait()
}

// startAuditPipeline relays outbox rows to Kafka and materializes the topic
// back into audit_events.
func startAuditPipeline(ctx context.Context, g *errgroup.Group, cfg *config.Config, st *stores, log *slog.Logger) error {
	if err := kafka.EnsureTopic(ctx, cfg.Brokers, cfg.AuditTopic, auditTopicPartitions); err != nil {
		return err
	}
	security, err := auditconsumer.NewSecurityHandler(prometheus.DefaultRegisterer, log)
	if err != nil {
		return err
	}
	producer, err := kafka.NewProducer(cfg.Brokers, cfg.AuditTopic)
	if err != nil {
		return err
	}
	relay := outbox.NewRelay(st.db, producer, cfg.AuditTopic,
		outbox.WithInterval(cfg.RelayInterval),
		outbox.WithBreaker(circuit.New("audit-relay")),
		outbox.WithLogger(log))

	router := auditconsumer.NewRouter(log, auditconsumer.NewEventsHandler(auditpostgres.New(st.db), log))
	router.Register(audit.CategorySecurity, security)
	consumer, err := kafkaconsumer.New(kafkaconsumer.Config{
		Brokers: cfg.Brokers,
		GroupID: cfg.ConsumerGroup,
		Topics:  []string{cfg.AuditTopic},
	}, router, log)
	if err != nil {
		producer.Close()
		return err
	}

	g.Go(func() error {
		defer producer.Close()
		return relay.Run(ctx)
	})
	g.Go(func() error { return consumer.Run(ctx) })
	log.Info("audit pipeline started", "topic", cfg.AuditTopic, "brokers", cfg.Brokers)
	return nil
}

// purgeLoop drops expired rows from p every purgeInterval until ctx ends.
func purgeLoop(ctx context.Context, what string, p purger, log *slog.Logger) error {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n, err := p.PurgeExpired(ctx)
			if err != nil {
				log.WarnContext(ctx, "failed to purge expired rows", "kind", what, "error", err)
				continue
			}
			if n > 0 {
				log.DebugContext(ctx, "purged expired rows", "kind", what, "count", n)
			}
		}
	}
}
