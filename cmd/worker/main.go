package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/saturnino-fabrica-de-software/trackai/internal/audit"
	"github.com/saturnino-fabrica-de-software/trackai/internal/capi"
	"github.com/saturnino-fabrica-de-software/trackai/internal/circuitbreaker"
	"github.com/saturnino-fabrica-de-software/trackai/internal/config"
	"github.com/saturnino-fabrica-de-software/trackai/internal/database"
	"github.com/saturnino-fabrica-de-software/trackai/internal/dispatch"
	"github.com/saturnino-fabrica-de-software/trackai/internal/enqueue"
	"github.com/saturnino-fabrica-de-software/trackai/internal/queue"
	"github.com/saturnino-fabrica-de-software/trackai/internal/repository"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	flagSet := pflag.NewFlagSet("worker", pflag.ContinueOnError)
	envFile := flagSet.String("env-file", ".env", "Optional dotenv file loaded before the environment")
	noMetrics := flagSet.Bool("no-metrics", false, "Do not publish CloudWatch metrics")
	sweepUnsent := flagSet.Bool("sweep-unsent", false, "Re-enqueue matched conversions that never reached CAPI, then start polling")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", *envFile, err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.CAPIQueueURL == "" || cfg.CAPIDLQURL == "" {
		return errors.New("CAPI_QUEUE_URL and CAPI_DLQ_URL are required")
	}

	logger := config.NewLogger(cfg.Environment)
	slog.SetDefault(logger)

	ctx := context.Background()

	pool, err := database.NewPool(ctx, database.DefaultPoolConfig(cfg.DatabaseURL))
	if err != nil {
		return err
	}
	defer pool.Close()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		return fmt.Errorf("failed to load AWS config: %w", err)
	}

	creds, err := capi.LoadCredentials(ctx, secretsmanager.NewFromConfig(awsCfg), cfg.CAPISecretName)
	if err != nil {
		return err
	}

	attempts := repository.NewDispatchAttemptRepository(pool)
	sender := capi.NewClient(*creds, capi.Config{
		GraphVersion: cfg.CAPIGraphVersion,
		Timeout:      cfg.CAPITimeout,
	}, attempts, capi.WithLogger(logger))

	breaker := circuitbreaker.New(circuitbreaker.Config{
		Name:             "capi",
		FailureThreshold: cfg.BreakerFailureThreshold,
		SuccessThreshold: cfg.BreakerSuccessThreshold,
		ResetTimeout:     cfg.BreakerResetTimeout,
	}, circuitbreaker.WithStateChange(func(name string, from, to circuitbreaker.State) {
		logger.Warn("circuit breaker state changed",
			"breaker", name,
			"from", from,
			"to", to,
		)
	}))

	sqsClient := sqs.NewFromConfig(awsCfg)
	primary := queue.NewSQSQueue(sqsClient, cfg.CAPIQueueURL)
	conversions := repository.NewConversionRepository(pool)

	if *sweepUnsent {
		results, err := enqueue.NewService(conversions, primary, logger).Sweep(ctx, cfg.SweepMinAge, cfg.SweepBatchSize)
		if err != nil {
			return err
		}
		logger.Info("sweep finished", "attempted", len(results))
	}

	deps := dispatch.Deps{
		Queue:       primary,
		DLQ:         queue.NewSQSQueue(sqsClient, cfg.CAPIDLQURL),
		Conversions: conversions,
		Tenants:     repository.NewTenantRepository(pool),
		Sender:      sender,
		Attempts:    attempts,
		Breaker:     breaker,
		Audit:       audit.NewSlogLogger(logger),
	}
	if !*noMetrics {
		deps.Sink = dispatch.NewCloudWatchEmitter(cloudwatch.NewFromConfig(awsCfg), cfg.MetricsNamespace)
	}

	worker := dispatch.NewWorker(dispatch.Config{
		PollInterval:      cfg.WorkerPollInterval,
		MaxMessages:       cfg.WorkerMaxMessages,
		VisibilityTimeout: cfg.WorkerVisibilityTimeout,
		WaitTime:          cfg.WorkerWaitTime,
	}, deps, logger)

	// SIGTERM stops polling; messages already received are finished first.
	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-sigCtx.Done()
		logger.Info("shutdown signal received")
		worker.Stop()
	}()

	logger.Info("starting Track AI dispatch worker",
		slog.String("environment", cfg.Environment),
		slog.String("queue_url", cfg.CAPIQueueURL),
	)

	if err := worker.Start(ctx); err != nil {
		return fmt.Errorf("worker error: %w", err)
	}

	m := worker.Metrics()
	logger.Info("dispatch worker exited",
		"success_count", m.SuccessCount,
		"failure_count", m.FailureCount,
		"dlq_count", m.DLQCount,
	)
	return nil
}
