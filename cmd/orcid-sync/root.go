package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/heartmarshall/orcid-sync/internal/app"
	"github.com/heartmarshall/orcid-sync/internal/config"
	"github.com/heartmarshall/orcid-sync/internal/domain"
)

const closeTimeout = 10 * time.Second

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "orcid-sync",
		Short: "Synchronize research content with ORCID",
		Long: `orcid-sync keeps ORCID records in line with local research content.
Local changes are queued by the change detector and pushed by "push";
"pull" imports profile data and reconciles works from the registry.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			if configPath == "" {
				return nil
			}
			return os.Setenv("CONFIG_PATH", configPath)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to the YAML configuration file (overrides CONFIG_PATH)")

	root.AddCommand(
		newPushCmd(),
		newPullCmd(),
		newEnqueueCmd(),
		newQueueCmd(),
		newHistoryCmd(),
		newMigrateCmd(),
		newVersionCmd(),
	)
	return root
}

// loadConfig loads the configuration and installs the process logger.
func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	return cfg, app.NewLogger(cfg.Log), nil
}

// withApp wires the application, runs fn and releases the application
// again, whatever fn returns.
func withApp(ctx context.Context, fn func(ctx context.Context, a *app.App) error) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	log.InfoContext(ctx, "starting", slog.String("version", app.BuildVersion()))

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), closeTimeout)
		defer cancel()
		if err := a.Close(closeCtx); err != nil {
			log.Error("shutdown", slog.String("error", err.Error()))
		}
	}()

	return fn(ctx, a)
}

// printReport writes the run summary followed by the report lines.
func printReport(w io.Writer, job string, r domain.RunReport) {
	fmt.Fprintf(w, "%s: %s\n", job, r.Summary())
	for _, l := range r.Lines {
		fmt.Fprintln(w, l.String())
	}
}
