// Command worker runs the Task Runtime's queue-claim loop: for every named
// queue, Worker.Concurrency goroutines, each repeatedly calling RunOnce
// against the Postgres task table until the process receives SIGINT/SIGTERM.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/moldex-io/moldex/internal/bootstrap"
	"github.com/moldex-io/moldex/internal/config"
	domainTask "github.com/moldex-io/moldex/internal/domain/task"
	"github.com/moldex-io/moldex/internal/platform/logging"
)

const pollIdleBackoff = 2 * time.Second

func main() {
	configPath := flag.String("config", "", "path to YAML config file; when empty, configuration is read entirely from MOLDEX_* environment variables")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		panic(err)
	}

	logger, err := logging.NewLogger(toLoggingConfig(cfg.Log))
	if err != nil {
		panic(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	infra, err := bootstrap.NewInfra(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize infrastructure", logging.Err(err))
		os.Exit(1)
	}
	defer infra.Close()

	services := bootstrap.NewServices(cfg, infra, logger)

	if err := services.Task.EnqueueCleanup(ctx); err != nil {
		logger.Warn("failed to enqueue initial stale-batch cleanup", logging.Err(err))
	}

	go serveHealth(ctx, infra, logger)

	var wg sync.WaitGroup
	for _, queue := range domainTask.AllQueues {
		wg.Add(1)
		go runQueueWorker(ctx, &wg, services.Runtime, queue, cfg.Worker.Concurrency, logger)
	}

	logger.Info("worker started", logging.Int("queues", len(domainTask.AllQueues)), logging.Int("concurrency_per_queue", cfg.Worker.Concurrency))
	wg.Wait()
	logger.Info("worker stopped")
}

// runQueueWorker runs concurrency goroutines against queue, each looping
// RunOnce until ctx is cancelled. RunOnce's bool return (whether a task was
// claimed) drives the idle backoff: a busy queue reclaims immediately, an
// empty one waits before asking again.
func runQueueWorker(ctx context.Context, wg *sync.WaitGroup, runtime *domainTask.Runtime, queue domainTask.Queue, concurrency int, logger logging.Logger) {
	defer wg.Done()

	if concurrency < 1 {
		concurrency = 1
	}

	var inner sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		inner.Add(1)
		go func(slot int) {
			defer inner.Done()
			for {
				select {
				case <-ctx.Done():
					return
				default:
				}

				claimed, err := runtime.RunOnce(ctx, queue)
				if err != nil {
					logger.Warn("task claim failed",
						logging.String("queue", string(queue)), logging.Int("slot", slot), logging.Err(err))
					claimed = false
				}
				if !claimed {
					select {
					case <-ctx.Done():
						return
					case <-time.After(pollIdleBackoff):
					}
				}
			}
		}(i)
	}
	inner.Wait()
}

// serveHealth exposes /healthz (liveness) and /metrics (Prometheus
// scraping) until ctx is cancelled.
func serveHealth(ctx context.Context, infra *bootstrap.Infra, logger logging.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", infra.Metrics.Handler())

	server := &http.Server{Addr: ":9090", Handler: mux}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("health server exited", logging.Err(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.LoadFromEnv()
	}
	return config.Load(path)
}

func toLoggingConfig(cfg config.LogConfig) logging.LogConfig {
	format := cfg.Format
	if format == "text" {
		format = "console"
	}
	return logging.LogConfig{Level: cfg.Level, Format: format}
}
