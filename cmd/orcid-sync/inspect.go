package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/heartmarshall/orcid-sync/internal/app"
	"github.com/heartmarshall/orcid-sync/internal/domain"
)

const (
	defaultListLimit = 50
	maxErrorColumn   = 80
)

func newQueueCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect the work queue",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Usage()
		},
	}

	var (
		limit      int
		overBudget bool
	)
	list := &cobra.Command{
		Use:   "list",
		Short: "List pending rows, most attempted first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				minAttempts := 0
				if overBudget {
					minAttempts = a.Config.Push.MaxAttempts
				}
				rows, err := a.Queue.List(ctx, minAttempts, limit)
				if err != nil {
					return err
				}
				return renderQueue(cmd.OutOrStdout(), rows)
			})
		},
	}
	list.Flags().IntVar(&limit, "limit", defaultListLimit, "maximum number of rows (0 = all)")
	list.Flags().BoolVar(&overBudget, "over-budget", false, "only rows that used up their retry budget")

	cmd.AddCommand(list)
	return cmd
}

func newHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history <owner-id> <entity-id>",
		Short: "Show the result ledger of one entity, newest first",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				records, err := a.History.ListByEntity(ctx, ids[0], ids[1], limit)
				if err != nil {
					return err
				}
				return renderHistory(cmd.OutOrStdout(), records)
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", defaultListLimit, "maximum number of rows (0 = all)")
	return cmd
}

func renderQueue(w io.Writer, rows []domain.QueueRecord) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "queue is empty")
		return err
	}

	data := make([][]string, len(rows))
	for i, r := range rows {
		data[i] = []string{
			r.ID.String(),
			r.OwnerID.String(),
			r.EntityID.String(),
			r.RecordType.String(),
			r.Operation.String(),
			orDash(r.PutCode),
			strconv.Itoa(r.AttemptCount()),
			clip(orDash(r.LastError), maxErrorColumn),
			r.UpdatedAt.UTC().Format(time.RFC3339),
		}
	}

	table := tablewriter.NewWriter(w)
	table.Header("ID", "Owner", "Entity", "Type", "Operation", "Put code", "Attempts", "Last error", "Updated")
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

func renderHistory(w io.Writer, records []domain.HistoryRecord) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "no ledger rows")
		return err
	}

	data := make([][]string, len(records))
	for i, h := range records {
		data[i] = []string{
			h.CreatedAt.UTC().Format(time.RFC3339),
			h.Operation.String(),
			strconv.Itoa(h.Status),
			yesNo(h.Succeeded()),
			orDash(h.PutCode),
			clip(h.Message, maxErrorColumn),
			clip(h.PayloadDigest, 12),
		}
	}

	table := tablewriter.NewWriter(w)
	table.Header("Created", "Operation", "Status", "OK", "Put code", "Message", "Digest")
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func orDash(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
