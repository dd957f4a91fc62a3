package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"gitlab.com/voxtel/api/call-transfer-reconciler/internal/config"
	"gitlab.com/voxtel/api/call-transfer-reconciler/internal/healthcheck"
	"gitlab.com/voxtel/api/call-transfer-reconciler/internal/jetstream"
	"gitlab.com/voxtel/api/call-transfer-reconciler/internal/model"
	"gitlab.com/voxtel/api/call-transfer-reconciler/internal/observer"
	"gitlab.com/voxtel/api/call-transfer-reconciler/internal/reconcile"
	"gitlab.com/voxtel/api/call-transfer-reconciler/internal/runctx"
	"gitlab.com/voxtel/api/call-transfer-reconciler/internal/storage"
	"gitlab.com/voxtel/api/call-transfer-reconciler/pkg/logger"
	"gitlab.com/voxtel/api/call-transfer-reconciler/pkg/utils"
)

func main() {
	// Set timezone to UTC
	time.Local = time.UTC

	cfg, err := config.LoadConfig("")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Initialize(cfg.LogLevel); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	observer.InitMetrics(cfg.Metrics.Enabled)

	runID := uuid.New().String()
	ctx, cancel := context.WithCancel(runctx.WithRunID(context.Background(), runID))
	defer cancel()

	logger.Log.Info("Starting Call Transfer Reconciler",
		zap.String("environment", cfg.Environment),
		zap.String("run_id", runID),
	)

	// Cancel the run on termination signal so the worker stops submitting.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		defer utils.RecoverWithLog(ctx, "signal handling")
		sig := <-sigChan
		logger.Log.Info("Received termination signal, cancelling run", zap.String("signal", sig.String()))
		cancel()
	}()

	// Initialize repositories
	repo, err := initPostgresRepo(cfg.Database.PostgresDSN, cfg.Database.PostgresAutoMigrate)
	if err != nil {
		logger.Log.Fatal("Failed to initialize Postgres repository", zap.Error(err))
	}

	// Build the queue map from config, falling back to the reference table.
	queues := reconcile.DefaultQueueMap()
	if len(cfg.Matching.QueueCallees) > 0 || len(cfg.Matching.QueueDefaults) > 0 {
		queues = reconcile.NewQueueMap(cfg.Matching.QueueCallees, cfg.Matching.QueueDefaults)
	}
	if err := queues.Validate(); err != nil {
		logger.Log.Fatal("Invalid queue map configuration", zap.Error(err))
	}

	// Outcome sinks: structured log + metrics, plus NATS when enabled.
	sinks := reconcile.MultiSink{reconcile.LogSink{}, reconcile.MetricsSink{}}

	var jsClient *jetstream.Client
	if cfg.NATS.Enabled {
		jsClient, err = jetstream.NewClient(cfg.NATS.URL)
		if err != nil {
			logger.Log.Fatal("Failed to initialize JetStream client", zap.Error(err))
		}
		streamCfg := &nats.StreamConfig{
			Name:      cfg.NATS.OutcomeStream,
			Subjects:  []string{cfg.NATS.OutcomeSubjectPrefix + ".>"},
			Retention: nats.LimitsPolicy,
			MaxAge:    time.Duration(cfg.NATS.OutcomeMaxAgeDays) * 24 * time.Hour,
			Storage:   nats.FileStorage,
		}
		if err := jsClient.SetupStream(ctx, streamCfg); err != nil {
			logger.Log.Fatal("Failed to set up outcome stream", zap.Error(err))
		}
		sinks = append(sinks, reconcile.PublishSink{
			Publisher:     jsClient,
			SubjectPrefix: cfg.NATS.OutcomeSubjectPrefix,
		})
	}

	engine := reconcile.NewEngine(queues, reconcile.Matcher{WindowMillis: cfg.Matching.WindowMillis}, sinks)

	worker, err := reconcile.NewWorker(cfg.Worker, engine, logger.Log)
	if err != nil {
		logger.Log.Fatal("Failed to initialize reconcile worker pool", zap.Error(err))
	}

	// Health and metrics endpoints for the duration of the run.
	healthServer := healthcheck.NewServer(strconv.Itoa(cfg.Server.Port), logger.Log)
	if cfg.Metrics.Enabled {
		healthServer.RegisterMetricsHandler(promhttp.Handler())
	}
	healthServer.Start()

	runErr := runReconciliation(ctx, cfg, repo, worker)
	if runErr != nil {
		logger.Log.Error("Reconciliation run failed", zap.Error(runErr))
	}

	// Graceful teardown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	worker.Stop()

	if err := healthServer.Stop(shutdownCtx); err != nil {
		logger.Log.Error("[shutdown] Error stopping health check server", zap.Error(err))
	}

	if jsClient != nil {
		logger.Log.Info("[shutdown] Closing JetStream connection")
		jsClient.Close()
	}

	logger.Log.Info("[shutdown] Closing PostgreSQL connection")
	if err := repo.Close(shutdownCtx); err != nil {
		logger.Log.Error("[shutdown] Failed to close PostgreSQL connection", zap.Error(err))
	}

	logger.Log.Info("Call Transfer Reconciler run complete", zap.String("run_id", runID))
	if runErr != nil {
		os.Exit(1)
	}
}

// runReconciliation executes one full pass: fetch source and candidate
// collections, match in parallel, enrich with agent names and persist the
// annotations.
func runReconciliation(ctx context.Context, cfg *config.Config, repo *storage.PostgresRepo, worker *reconcile.Worker) error {
	start := time.Now()
	log := logger.FromContext(ctx)

	now := utils.Now()
	sources, err := repo.FetchCallsByFilter(ctx, storage.CallFilter{
		Directions: []string{model.DirectionOutbound, model.DirectionCampaign},
		From:       now.Add(-cfg.Batch.SourceLookback),
		To:         now,
		Limit:      cfg.Batch.Limit,
	})
	if err != nil {
		return fmt.Errorf("failed to fetch source calls: %w", err)
	}

	candidates, err := repo.FetchCallsByFilter(ctx, storage.CallFilter{
		Directions: []string{model.DirectionInbound},
		From:       now.Add(-cfg.Batch.CandidateLookback),
		To:         now,
		Limit:      cfg.Batch.Limit,
	})
	if err != nil {
		return fmt.Errorf("failed to fetch candidate calls: %w", err)
	}

	log.Info("Fetched reconciliation batch",
		zap.Int("sources", len(sources)),
		zap.Int("candidates", len(candidates)),
	)

	results, err := worker.Run(ctx, sources, candidates)
	if err != nil {
		return fmt.Errorf("reconciliation batch failed: %w", err)
	}

	if err := enrichAgentNames(ctx, repo, results); err != nil {
		// Display enrichment is best-effort; the match result stands.
		log.Warn("Failed to enrich agent names", zap.Error(err))
	}

	if err := repo.SaveReconciledCalls(ctx, results); err != nil {
		return fmt.Errorf("failed to persist reconciled calls: %w", err)
	}

	transferred := 0
	for i := range results {
		if results[i].TransferOccurred {
			transferred++
		}
	}
	observer.ObserveBatchDuration(time.Since(start))
	log.Info("Reconciliation pass finished",
		zap.Int("records", len(results)),
		zap.Int("with_transfer", transferred),
		zap.Duration("duration", time.Since(start)),
	)
	return nil
}

// enrichAgentNames stamps display names onto records that resolved an agent
// extension.
func enrichAgentNames(ctx context.Context, agents storage.AgentRepo, calls []model.Call) error {
	extSet := make(map[string]struct{})
	for i := range calls {
		if calls[i].TransferExtension != "" {
			extSet[calls[i].TransferExtension] = struct{}{}
		}
	}
	if len(extSet) == 0 {
		return nil
	}

	extensions := make([]string, 0, len(extSet))
	for ext := range extSet {
		extensions = append(extensions, ext)
	}

	names, err := agents.FetchAgentNamesByExtensions(ctx, extensions)
	if err != nil {
		return err
	}

	for i := range calls {
		if name, ok := names[calls[i].TransferExtension]; ok {
			calls[i].TransferAgentName = name
		}
	}
	return nil
}

// Initialize PostgreSQL repository
func initPostgresRepo(dsn string, autoMigrate bool) (*storage.PostgresRepo, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres DSN is required")
	}

	repo, err := storage.NewPostgresRepo(dsn, autoMigrate)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize postgres repository: %w", err)
	}

	logger.Log.Info("Initialized PostgreSQL repository")
	return repo, nil
}
