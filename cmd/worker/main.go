package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"codearena.app/arbiter/common/id"
	"codearena.app/arbiter/common/llm"
	"codearena.app/arbiter/common/logger"
	"codearena.app/arbiter/common/otel"
	"codearena.app/arbiter/core/config"
	"codearena.app/arbiter/core/db"
	"codearena.app/arbiter/internal/analyzer"
	"codearena.app/arbiter/internal/cache"
	"codearena.app/arbiter/internal/curator"
	"codearena.app/arbiter/internal/queue"
	"codearena.app/arbiter/internal/research"
	"codearena.app/arbiter/internal/scoring"
	"codearena.app/arbiter/internal/service"
	"codearena.app/arbiter/internal/store"
	"codearena.app/arbiter/internal/worker"
)

func main() {
	fmt.Printf("%s\n", banner)
	ctx := context.Background()

	cfg, err := config.Load(config.ServiceTypeWorker)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	telemetry, err := otel.Setup(ctx, cfg.OTel)
	if err != nil {
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)

	slog.InfoContext(ctx, "arbiter worker starting",
		"env", cfg.Env,
		"consumer_group", cfg.Pipeline.RedisGroup,
		"consumer_name", cfg.Pipeline.RedisConsumer)

	// Different node ID than the server so snowflakes never collide.
	if err := id.Init(2); err != nil {
		slog.ErrorContext(ctx, "failed to initialize id generator", "error", err)
		os.Exit(1)
	}

	database, err := db.New(ctx, cfg.DB)
	if err != nil {
		slog.ErrorContext(ctx, "failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer database.Close()
	slog.InfoContext(ctx, "database connected")

	redisOpts, err := redis.ParseURL(cfg.Pipeline.RedisURL)
	if err != nil {
		slog.ErrorContext(ctx, "failed to parse redis url", "error", err)
		os.Exit(1)
	}

	redisClient := redis.NewClient(redisOpts)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		slog.ErrorContext(ctx, "failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()
	slog.InfoContext(ctx, "redis connected", "stream", cfg.Pipeline.RedisStream)

	evaluator, err := buildEvaluator(cfg, database, redisClient)
	if err != nil {
		slog.ErrorContext(ctx, "failed to build pipeline", "error", err)
		os.Exit(1)
	}

	consumer, err := queue.NewRedisConsumer(redisClient, queue.ConsumerConfig{
		Stream:       cfg.Pipeline.RedisStream,
		Group:        cfg.Pipeline.RedisGroup,
		Consumer:     cfg.Pipeline.RedisConsumer,
		DLQStream:    cfg.Pipeline.RedisDLQStream,
		BatchSize:    1, // One submission at a time; evaluations are long-running
		Block:        5 * time.Second,
		MaxAttempts:  cfg.Pipeline.MaxAttempts,
		RequeueDelay: time.Second,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to create consumer", "error", err)
		os.Exit(1)
	}

	w := worker.New(consumer, evaluator, worker.Config{
		MaxAttempts: cfg.Pipeline.MaxAttempts,
		PoolSize:    cfg.Pipeline.WorkerCount,
	})

	reclaimer := worker.NewRedisReclaimer(redisClient, worker.RedisReclaimerConfig{
		Stream:    cfg.Pipeline.RedisStream,
		Group:     cfg.Pipeline.RedisGroup,
		Consumer:  cfg.Pipeline.RedisConsumer + "-reclaimer",
		MinIdle:   5 * time.Minute,
		Interval:  1 * time.Minute,
		BatchSize: 10,
	}, consumer, w.ProcessMessage)

	errCh := make(chan error, 2)
	go func() {
		errCh <- w.Run(ctx)
	}()
	go func() {
		reclaimer.Run(ctx)
		errCh <- nil
	}()

	slog.InfoContext(ctx, "worker initialized and running")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down worker...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	reclaimer.Stop()
	w.Stop()

	select {
	case <-shutdownCtx.Done():
		slog.WarnContext(ctx, "shutdown timeout exceeded")
	case err := <-errCh:
		if err != nil {
			slog.ErrorContext(ctx, "worker error during shutdown", "error", err)
		}
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(ctx, "worker shutdown complete")
}

// buildEvaluator wires the four pipeline stages onto their shared clients.
func buildEvaluator(cfg config.Config, database *db.DB, redisClient *redis.Client) (*service.Evaluator, error) {
	repoClient, err := analyzer.NewGitLabClient(analyzer.ClientConfig{
		BaseURL:        "https://" + cfg.GitLab.Host,
		Token:          cfg.GitLab.Token,
		RequestsPerSec: cfg.GitLab.RequestsPerSec,
		RequestBurst:   cfg.GitLab.RequestBurst,
	})
	if err != nil {
		return nil, fmt.Errorf("building gitlab client: %w", err)
	}
	an := analyzer.New(repoClient, cfg.GitLab.Host)

	counter, err := curator.NewTokenCounter("")
	if err != nil {
		return nil, fmt.Errorf("building token counter: %w", err)
	}

	// The refiner is optional: without an API key Stage 2 is skipped and
	// every plan is heuristic.
	var refiner *curator.Refiner
	if cfg.RefinerLLM.Enabled() {
		refinerClient, err := llm.NewAgentClient(llmConfig(cfg.RefinerLLM))
		if err != nil {
			return nil, fmt.Errorf("building refiner client: %w", err)
		}
		refiner = curator.NewRefiner(refinerClient, cfg.Curator.RefineTimeout)
	}
	cu := curator.New(repoClient, counter, refiner)

	researchClient, err := llm.NewAgentClient(llmConfig(cfg.ResearchLLM))
	if err != nil {
		return nil, fmt.Errorf("building research client: %w", err)
	}
	synth := research.NewSynthesizer(researchClient, cfg.Research.Timeout)
	researchCache := cache.NewRedisStore(redisClient, cache.SystemClock{}, "arbiter")
	re := research.NewService(synth, researchCache, cfg.Research.CacheTTL)

	judgeClient, err := llm.NewAgentClient(llmConfig(cfg.JudgeLLM))
	if err != nil {
		return nil, fmt.Errorf("building judge client: %w", err)
	}
	judge := scoring.NewJudge(judgeClient, 2*time.Minute)

	stores := store.NewStores(database.Pool())
	return service.NewEvaluator(stores, service.NewTxRunner(database), an, cu, re, judge), nil
}

func llmConfig(c config.LLMConfig) llm.Config {
	return llm.Config{
		Provider:        c.Provider,
		APIKey:          c.APIKey,
		BaseURL:         c.BaseURL,
		Model:           c.Model,
		ReasoningEffort: llm.ReasoningEffort(c.ReasoningEffort),
	}
}

const banner = `
 █████╗ ██████╗ ██████╗ ██╗████████╗███████╗██████╗     ██╗    ██╗ ██████╗ ██████╗ ██╗  ██╗███████╗██████╗
██╔══██╗██╔══██╗██╔══██╗██║╚══██╔══╝██╔════╝██╔══██╗    ██║    ██║██╔═══██╗██╔══██╗██║ ██╔╝██╔════╝██╔══██╗
███████║██████╔╝██████╔╝██║   ██║   █████╗  ██████╔╝    ██║ █╗ ██║██║   ██║██████╔╝█████╔╝ █████╗  ██████╔╝
██╔══██║██╔══██╗██╔══██╗██║   ██║   ██╔══╝  ██╔══██╗    ██║███╗██║██║   ██║██╔══██╗██╔═██╗ ██╔══╝  ██╔══██╗
██║  ██║██║  ██║██████╔╝██║   ██║   ███████╗██║  ██║    ╚███╔███╔╝╚██████╔╝██║  ██║██║  ██╗███████╗██║  ██║
╚═╝  ╚═╝╚═╝  ╚═╝╚═════╝ ╚═╝   ╚═╝   ╚══════╝╚═╝  ╚═╝     ╚══╝╚══╝  ╚═════╝ ╚═╝  ╚═╝╚═╝  ╚═╝╚══════╝╚═╝  ╚═╝
`
