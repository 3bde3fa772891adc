package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/sqlanalyst/domain/tool"
)

func (a *App) newToolsCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List the available tools",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			return a.withRuntime(cmd.Context(), cfg, func(rt *Runtime) error {
				tools := rt.Invoker.Registry().List()
				if asJSON {
					descriptors := make([]tool.Descriptor, len(tools))
					for i, t := range tools {
						descriptors[i] = tool.Describe(t)
					}
					enc := json.NewEncoder(a.stdout)
					enc.SetIndent("", "  ")
					return enc.Encode(descriptors)
				}

				w := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "TOOL\tTAGS\tDESCRIPTION")
				for _, t := range tools {
					fmt.Fprintf(w, "%s\t%s\t%s\n", t.Name(), strings.Join(t.Annotations().Tags, ","), firstLine(t.Description()))
				}
				return w.Flush()
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print descriptors with input schemas as JSON")
	return cmd
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
