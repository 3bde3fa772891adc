package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/sqlanalyst/domain/tool"
)

// ErrToolFailed is returned by call when the tool reports success: false.
var ErrToolFailed = errors.New("tool call failed")

func (a *App) newCallCmd() *cobra.Command {
	var compact bool

	cmd := &cobra.Command{
		Use:   "call <tool> [json|-]",
		Short: "Invoke one tool and print its result envelope",
		Long: `Invoke one tool through the same middleware chain the servers use and
print the JSON envelope. The input is a JSON object given inline, read from
stdin with "-", or omitted for tools without required parameters.

Examples:
  analyst call list-tables
  analyst call calculate-metrics '{"tableName": "projects", "metric": "count", "groupBy": "status"}'
  echo '{"query": "SELECT 1"}' | analyst call run-query -`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := a.readInput(args[1:])
			if err != nil {
				return err
			}
			return a.call(cmd, args[0], input, compact)
		},
	}

	cmd.Flags().BoolVar(&compact, "compact", false, "Print the envelope on one line")
	return cmd
}

func (a *App) readInput(args []string) (json.RawMessage, error) {
	if len(args) == 0 {
		return nil, nil
	}
	raw := []byte(args[0])
	if args[0] == "-" {
		data, err := io.ReadAll(a.stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		raw = bytes.TrimSpace(data)
	}
	if len(raw) > 0 && !json.Valid(raw) {
		return nil, fmt.Errorf("input is not valid JSON")
	}
	return raw, nil
}

func (a *App) call(cmd *cobra.Command, name string, input json.RawMessage, compact bool) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}

	return a.withRuntime(cmd.Context(), cfg, func(rt *Runtime) error {
		result, err := rt.Invoker.Invoke(cmd.Context(), name, input)
		if err != nil {
			if errors.Is(err, tool.ErrToolNotFound) {
				return fmt.Errorf("%w (see 'analyst tools')", err)
			}
			return err
		}

		out := result.Output
		if !compact {
			var buf bytes.Buffer
			if err := json.Indent(&buf, out, "", "  "); err == nil {
				out = buf.Bytes()
			}
		}
		fmt.Fprintln(a.stdout, string(out))

		env, err := tool.ParseEnvelope(result.Output)
		if err != nil {
			return err
		}
		if !env.Success {
			return fmt.Errorf("%w: %s", ErrToolFailed, env.Code)
		}
		return nil
	})
}
