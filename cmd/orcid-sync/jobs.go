package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/heartmarshall/orcid-sync/internal/app"
	"github.com/heartmarshall/orcid-sync/internal/service/pull"
	"github.com/heartmarshall/orcid-sync/internal/service/push"
)

func newPushCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "push",
		Short: "Push queued changes to the registry",
		Long: `Push drains the work queue: every eligible row is sent to the registry,
recorded in the result ledger and removed once it succeeds. Rows over the
retry budget are left alone unless --force is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				report, err := a.Push.Run(ctx, push.Options{Force: force})
				if err != nil {
					return err
				}
				printReport(cmd.OutOrStdout(), "push", report)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "ignore the retry budget and push manually synchronized owners too")
	return cmd
}

func newPullCmd() *cobra.Command {
	var linked bool

	cmd := &cobra.Command{
		Use:   "pull",
		Short: "Run the inbound actions over every profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				opts := pull.Options{LinkedOnly: linkedOnly(cmd, linked, a.Config.Pull.LinkedOnly)}
				report, err := a.Pull.Run(ctx, opts)
				printReport(cmd.OutOrStdout(), "pull", report)
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&linked, "linked", false, "visit only profiles that granted registry access")
	return cmd
}

// linkedOnly lets an explicit --linked flag, true or false, override the
// configured value.
func linkedOnly(cmd *cobra.Command, flag, configured bool) bool {
	if cmd.Flags().Changed("linked") {
		return flag
	}
	return configured
}

func newEnqueueCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "enqueue <entity-id>...",
		Short: "Queue entities for synchronization without changing them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				if err := a.Content.Touch(ctx, ids...); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "enqueued %d entities\n", len(ids))
				return nil
			})
		},
	}
}

func parseIDs(args []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(args))
	for _, a := range args {
		id, err := uuid.Parse(a)
		if err != nil {
			return nil, fmt.Errorf("invalid entity id %q: %w", a, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
