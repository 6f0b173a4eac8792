// Command server runs the treasury vault engine: member registry, proposal
// voting, spending limits, recurring payments, and analytics behind one HTTP
// API. Wiring happens here; business logic lives in the internal packages.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"quorum/internal/analytics"
	analyticshandler "quorum/internal/analytics/handler"
	analyticsmetrics "quorum/internal/analytics/metrics"
	"quorum/internal/audit"
	"quorum/internal/history"
	httpapi "quorum/internal/http"
	jwttoken "quorum/internal/jwt_token"
	memberhandler "quorum/internal/member/handler"
	membermetrics "quorum/internal/member/metrics"
	memberservice "quorum/internal/member/service"
	memberstore "quorum/internal/member/store"
	"quorum/internal/platform/config"
	"quorum/internal/platform/httpserver"
	"quorum/internal/platform/logger"
	"quorum/internal/platform/metrics"
	"quorum/internal/platform/middleware"
	platformredis "quorum/internal/platform/redis"
	"quorum/internal/proposal/handler"
	proposalmetrics "quorum/internal/proposal/metrics"
	proposalservice "quorum/internal/proposal/service"
	proposalstore "quorum/internal/proposal/store"
	"quorum/internal/recurring"
	recurringhandler "quorum/internal/recurring/handler"
	recurringmetrics "quorum/internal/recurring/metrics"
	"quorum/internal/spendlimit"
	spendlimithandler "quorum/internal/spendlimit/handler"
	"quorum/internal/treasury"
	treasuryhandler "quorum/internal/treasury/handler"
	treasurymetrics "quorum/internal/treasury/metrics"
	id "quorum/pkg/domain"
	"quorum/pkg/platform/tx"
)

const tokenExpiry = time.Hour

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := logger.New(cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Transaction history: Postgres when configured, memory otherwise.
	var histStore history.Store
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.New(ctx, cfg.Postgres.URL)
		if err != nil {
			log.Error("postgres connect failed", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		pg := history.NewPostgres(pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			log.Error("postgres schema setup failed", "error", err)
			os.Exit(1)
		}
		histStore = pg
		log.Info("transaction history backed by postgres")
	} else {
		histStore = history.NewInMemory()
	}

	// Audit trail: Kafka when configured, memory otherwise.
	var auditSink audit.Sink
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaSink, err := audit.NewKafkaSink(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			log.Error("kafka sink setup failed", "error", err)
			os.Exit(1)
		}
		defer kafkaSink.Close()
		auditSink = kafkaSink
		log.Info("audit trail backed by kafka", "topic", cfg.Kafka.Topic)
	} else {
		auditSink = audit.NewInMemorySink()
	}
	auditor := audit.NewPublisher(256, log)
	auditWorker := audit.NewWorker(auditSink, auditor.Inbox(), log)

	// Optional Redis stats cache.
	var statsCache *treasury.StatsCache
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis setup failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		statsCache = treasury.NewStatsCache(redisClient.Client, cfg.Redis.StatsTTL)
		log.Info("vault stats cache enabled")
	}

	// Core engine state and stores.
	state := treasury.NewState(cfg.SignatureThreshold)
	ledger := treasury.NewMemoryLedger()
	txRunner := tx.NewSerialized()

	memberStore := memberstore.New()
	spendStore := spendlimit.NewInMemory()
	propStore := proposalstore.NewMemory()
	recurStore := recurring.NewInMemory()
	analyticsStore := analytics.NewInMemory()

	ticks := middleware.WallClock{Genesis: cfg.GenesisTime, Interval: cfg.TickInterval}
	now := ticks.Current()

	memberSvc := memberservice.NewService(memberStore, state, auditor, log, membermetrics.New())
	tracker := spendlimit.NewTracker(spendStore, memberSvc, state, log)
	analyticsSvc := analytics.NewService(analyticsStore, state, log, analyticsmetrics.New())
	proposalSvc := proposalservice.NewService(
		propStore, memberSvc, tracker, state, ledger, histStore,
		analyticsSvc, auditor, txRunner, log, proposalmetrics.New(),
		cfg.EmergencySeedVote,
	)
	recurringSvc := recurring.NewService(
		recurStore, memberSvc, state, ledger, histStore,
		analyticsSvc, auditor, txRunner, log, recurringmetrics.New(),
	)
	treasurySvc := treasury.NewService(
		state, ledger, histStore, memberSvc, proposalSvc,
		analyticsSvc, auditor, statsCache, txRunner, log, treasurymetrics.New(),
	)

	// Seed the bootstrap admin, and fund its ledger account so a fresh
	// deployment can accept deposits.
	admin, err := id.ParsePrincipal(cfg.BootstrapAdmin)
	if err != nil {
		log.Error("invalid bootstrap admin", "error", err)
		os.Exit(1)
	}
	memberstore.SeedBootstrapAdmin(memberStore, admin, now)
	if cfg.DevLedgerSeed > 0 {
		ledger.Seed(admin, cfg.DevLedgerSeed)
	}
	log.Info("bootstrap admin seeded", "principal", admin, "ledger_seed", cfg.DevLedgerSeed)

	// Optional startup spending policy.
	if cfg.PolicyFile != "" {
		policy, err := config.LoadPolicy(cfg.PolicyFile)
		if err != nil {
			log.Error("spending policy load failed", "error", err)
			os.Exit(1)
		}
		if err := tracker.ApplyPolicy(ctx, policy, now); err != nil {
			log.Error("spending policy apply failed", "error", err)
			os.Exit(1)
		}
		log.Info("spending policy applied", "members", len(policy.Limits))
	}

	jwtService := jwttoken.NewJWTService(cfg.JWTSigningKey, cfg.JWTIssuer)
	router := httpapi.NewRouter(httpapi.Config{
		Logger:      log,
		Metrics:     metrics.New(),
		Ticks:       ticks,
		JWT:         jwtService,
		TokenExpiry: tokenExpiry,
		Handlers: []httpapi.Registrar{
			memberhandler.New(memberSvc, log),
			treasuryhandler.New(treasurySvc, log),
			handler.New(proposalSvc, log),
			spendlimithandler.New(tracker, log),
			recurringhandler.New(recurringSvc, log),
			analyticshandler.New(analyticsSvc, log),
		},
	})
	srv := httpserver.New(cfg.Addr, router)

	var runner *recurring.Runner
	if cfg.RunnerSpec != "" {
		runner = recurring.NewRunner(recurringSvc, ticks, cfg.RunnerSpec, cfg.RunnerBatchSize, log)
		if err := runner.Start(); err != nil {
			log.Error("recurring runner start failed", "error", err)
			os.Exit(1)
		}
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.Info("server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		if err := auditWorker.Run(groupCtx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if runner != nil {
			<-runner.Stop().Done()
		}
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}
