package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/sqlanalyst/domain/querylog"
)

// ErrNoQueryStore is returned by history when no readable sink is configured.
var ErrNoQueryStore = errors.New("no readable query log configured (add the sqlite or postgres sink)")

type historyOptions struct {
	limit  int
	tool   string
	failed bool
}

func (a *App) newHistoryCmd() *cobra.Command {
	opts := &historyOptions{}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent query log entries",
		Long: `Show recent query log entries, newest first, from the configured sqlite or
postgres query log sink.

Examples:
  analyst history -c analyst.yaml --limit 20
  analyst history -c analyst.yaml --tool run-query --failed`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.limit <= 0 {
				return fmt.Errorf("--limit must be positive")
			}
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			return a.withRuntime(cmd.Context(), cfg, func(rt *Runtime) error {
				if rt.Store == nil {
					return ErrNoQueryStore
				}
				entries, err := rt.Store.List(cmd.Context(), querylog.ListFilter{
					ToolName:   opts.tool,
					FailedOnly: opts.failed,
					Limit:      opts.limit,
				})
				if err != nil {
					return err
				}
				return a.printHistory(entries)
			})
		},
	}

	cmd.Flags().IntVar(&opts.limit, "limit", 20, "Maximum entries to show")
	cmd.Flags().StringVar(&opts.tool, "tool", "", "Only entries of this tool")
	cmd.Flags().BoolVar(&opts.failed, "failed", false, "Only failed entries")
	return cmd
}

func (a *App) printHistory(entries []querylog.Entry) error {
	if len(entries) == 0 {
		fmt.Fprintln(a.stdout, "No query log entries.")
		return nil
	}

	w := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tTOOL\tTABLE\tROWS\tDURATION\tRESULT")
	for _, e := range entries {
		rows := "-"
		if e.RowsReturned != nil {
			rows = fmt.Sprint(*e.RowsReturned)
		}
		result := "ok"
		if !e.Success {
			result = e.ErrorCode
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			e.Timestamp.Local().Format(time.DateTime),
			e.ToolName,
			e.TableName,
			rows,
			e.ExecutionTime.Round(time.Millisecond),
			result,
		)
	}
	return w.Flush()
}
