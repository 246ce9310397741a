// Command moldex is the operator-facing CLI for the molecule ingestion and
// prediction platform: ingest a CSV, look up or search molecules, manage
// libraries, and submit/track prediction batches.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/moldex-io/moldex/internal/bootstrap"
	"github.com/moldex-io/moldex/internal/config"
	"github.com/moldex-io/moldex/internal/platform/logging"
	moldexerrors "github.com/moldex-io/moldex/pkg/errors"
)

// Build-time variables injected via ldflags.
var (
	version = "dev"
	commit  = "unknown"
)

// Exit codes per spec §6: 0 success, 1 recoverable error, 2 internal error.
const (
	exitOK          = 0
	exitRecoverable = 1
	exitInternal    = 2
)

type appContext struct {
	cfg      *config.Config
	logger   logging.Logger
	infra    *bootstrap.Infra
	services *bootstrap.Services
}

var configPath string

func main() {
	root := &cobra.Command{
		Use:     "moldex",
		Short:   "Molecule ingestion, storage, and property prediction",
		Version: fmt.Sprintf("%s (%s)", version, commit),
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file; when empty, reads MOLDEX_* environment variables")

	root.AddCommand(
		newIngestCommand(),
		newMoleculeCommand(),
		newLibraryCommand(),
		newPredictCommand(),
	)

	if err := root.Execute(); err != nil {
		os.Exit(exitCodeFor(err))
	}
}

// withApp loads config, wires the full dependency graph, and runs fn,
// closing every infrastructure connection before returning. Shared by every
// leaf subcommand so none of them duplicate bootstrap plumbing.
func withApp(fn func(ctx context.Context, app *appContext) error) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return moldexerrors.Wrap(err, moldexerrors.CodeValidation, "load configuration")
	}

	logger, err := logging.NewLogger(toLoggingConfig(cfg.Log))
	if err != nil {
		return err
	}

	ctx := context.Background()
	infra, err := bootstrap.NewInfra(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer infra.Close()

	services := bootstrap.NewServices(cfg, infra, logger)

	return fn(ctx, &appContext{cfg: cfg, logger: logger, infra: infra, services: services})
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

// exitCodeFor classifies err per spec §6: database, serialization and
// unexpected errors, and errors carrying no AppError code, are internal (2);
// every other AppError code is recoverable (1).
func exitCodeFor(err error) int {
	if err == nil {
		return exitOK
	}
	switch moldexerrors.GetCode(err) {
	case moldexerrors.CodeDatabaseError, moldexerrors.CodeSerializationError, moldexerrors.CodeUnexpectedError, moldexerrors.CodeUnknown:
		return exitInternal
	default:
		return exitRecoverable
	}
}
