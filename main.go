package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"onboarding_flow/internal/config"
	"onboarding_flow/internal/core"
	"onboarding_flow/src"
	"onboarding_flow/src/logger"
	"onboarding_flow/src/storage"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// app holds what every subcommand needs once bootstrap has run
type app struct {
	config  *src.Config
	store   storage.Storage
	catalog *core.Catalog

	storageBackend string
	flowsFile      string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// run builds the command tree, executes args and releases the storage
func run(ctx context.Context, args []string, in io.Reader, out io.Writer) error {
	a := &app{}
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(out)

	err := root.ExecuteContext(ctx)
	if closeErr := a.close(); closeErr != nil && err == nil {
		err = closeErr
	}
	return err
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "onboard",
		Short:         "Multi-step onboarding wizard with persisted drafts",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.bootstrap()
		},
	}

	root.PersistentFlags().StringVar(&a.storageBackend, "storage", "", "draft storage backend: memory, file, redis or sqlite (overrides ONBOARD_STORAGE_BACKEND)")
	root.PersistentFlags().StringVar(&a.flowsFile, "flows", "", "flow table file, .yaml or .toml (overrides ONBOARD_FLOWS_FILE)")

	root.AddCommand(
		flowsCmd(a),
		runCmd(a),
		showCmd(a),
		resetCmd(a),
		balanceCmd(a),
	)
	return root
}

// bootstrap loads .env and config, then sets up logging and the flow catalog
func (a *app) bootstrap() error {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Err(err).Msg("no .env file loaded")
	}

	cfg, err := src.LoadConfig()
	if err != nil {
		return err
	}
	if a.storageBackend != "" {
		cfg.StorageConfig.Backend = a.storageBackend
	}
	if a.flowsFile != "" {
		cfg.FlowsFile = a.flowsFile
	}
	a.config = cfg

	if err := logger.InitLogger(cfg.LogConfig); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	catalog, err := config.LoadCatalog(cfg.FlowsFile)
	if err != nil {
		return fmt.Errorf("failed to load flows: %w", err)
	}
	a.catalog = catalog

	logger.Debug().
		Str("storage", cfg.StorageConfig.Backend).
		Strs("flows", catalog.Names()).
		Msg("onboarding initialized")
	return nil
}

// openStorage opens the configured draft storage on first use
func (a *app) openStorage(ctx context.Context) (storage.Storage, error) {
	if a.store != nil {
		return a.store, nil
	}
	store, err := storage.Open(ctx, a.config.StorageConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s storage: %w", a.config.StorageConfig.Backend, err)
	}
	a.store = store
	return store, nil
}

func (a *app) close() error {
	if a.store == nil {
		return nil
	}
	err := a.store.Close()
	a.store = nil
	return err
}
