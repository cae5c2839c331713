package main

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/phac-pdir/nvc-sync/config"
	"github.com/phac-pdir/nvc-sync/data"
	"github.com/phac-pdir/nvc-sync/logging"
	"github.com/phac-pdir/nvc-sync/pipeline"
	"github.com/phac-pdir/nvc-sync/scheduler"
	"github.com/phac-pdir/nvc-sync/server"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var verbose, force bool

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Fetch the NVC bundle once and write the vaccine table",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withConfig(verbose, func(cfg *config.Config) error {
				if force {
					cfg.GateOnVersion = false
				}
				return runOnce(cmd.Context(), cfg)
			})
		},
	}
	runCmd.Flags().BoolVar(&force, "force", false, "write the table even when the bundle version did not change")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Sync on a daily schedule and serve the vaccine table over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withConfig(verbose, func(cfg *config.Config) error {
				return serve(cmd.Context(), cfg)
			})
		},
	}

	rootCmd := &cobra.Command{
		Use:           "nvc-sync",
		Short:         "Flatten the National Vaccine Catalogue bundle into a vaccine lookup table",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runCmd.RunE,
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log at debug level on the console")
	rootCmd.Flags().AddFlagSet(runCmd.Flags())

	rootCmd.AddCommand(runCmd, serveCmd)
	return rootCmd
}

// withConfig loads .env and the configuration, sets up logging and runs fn.
// Errors are logged before they are returned.
func withConfig(verbose bool, fn func(cfg *config.Config) error) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logging.Warn("Failed to load .env file", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		logging.Error("Failed to load configuration", "error", err)
		return err
	}

	logging.InitLogger(cfg, verbose)
	defer logging.Close()

	if err := fn(cfg); err != nil {
		logging.Error("nvc-sync failed", "error", err)
		return err
	}
	return nil
}

func runOnce(ctx context.Context, cfg *config.Config) error {
	runner, err := pipeline.NewRunnerFromConfig(cfg)
	if err != nil {
		return err
	}

	result, err := runner.Run(ctx)
	if err != nil {
		return err
	}

	logging.Info("Sync finished",
		"run_id", result.RunID,
		"version", result.Version,
		"changed", result.Changed,
		"records", len(result.Table),
		"duration", result.Duration.String())
	return nil
}

func serve(ctx context.Context, cfg *config.Config) error {
	runner, err := pipeline.NewRunnerFromConfig(cfg)
	if err != nil {
		return err
	}

	dataContainer := data.NewDataContainer()
	dataContainer.SetServerStartTime(time.Now())

	s := scheduler.NewScheduler(dataContainer, runner, cfg.ScheduleAt)
	if err := s.Start(); err != nil {
		s.Stop()
		return err
	}
	defer s.Stop()

	srv := server.NewServer(cfg, dataContainer)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}
