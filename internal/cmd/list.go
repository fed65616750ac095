package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/homiodev/homio-hquery/internal/exec"
	"github.com/homiodev/homio-hquery/internal/query"
)

// Availability values shown by list.
const (
	availYes      = "yes"
	availMissing  = "missing"
	availDisabled = "disabled"
	availUnknown  = "?"
)

var listCmd = &cobra.Command{
	Use:   "list [filter]",
	Short: "List registered queries",
	Long: `List the queries loaded from the built-in and user catalogs.

The AVAILABLE column reports whether the command's program was found on
PATH, "disabled" when the query has no command for this platform, and "?"
when the program is only known after substitution.`,
	Example: `  # List all queries
  hquery list

  # List queries whose name contains "wifi"
  hquery list wifi`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := requireRegistry(cmd.Context())
		if err != nil {
			return err
		}

		var filter string
		if len(args) == 1 {
			filter = args[0]
		}

		var descs []query.Descriptor
		for _, d := range reg.Descriptors() {
			if strings.Contains(d.Name, filter) {
				descs = append(descs, d)
			}
		}

		if len(descs) == 0 {
			fmt.Println("No queries found")
			return nil
		}

		executor := exec.New()
		platform := reg.Engine().Platform()

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		if _, err := fmt.Fprintln(w, "NAME\tKIND\tRETURNS\tCACHE TTL\tAVAILABLE\tDESCRIPTION"); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
		for i := range descs {
			d := &descs[i]
			kind := "process"
			if d.IsHTTP() {
				kind = "http"
			}
			ttl := "-"
			if d.CacheTTL > 0 {
				ttl = d.CacheTTL.String()
			}
			avail := availability(executor, d, platform)
			if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", d.Name, kind, d.Returns, ttl, avail, d.Description); err != nil {
				return fmt.Errorf("write query: %w", err)
			}
		}
		if err := w.Flush(); err != nil {
			return fmt.Errorf("flush output: %w", err)
		}

		return nil
	},
}

// availability checks the program of d's first command template.
func availability(executor exec.Executor, d *query.Descriptor, platform query.Platform) string {
	if d.IsHTTP() {
		return availYes
	}
	tmpls := d.Commands.For(platform)
	if len(tmpls) == 0 {
		return availDisabled
	}

	fields := strings.Fields(tmpls[0])
	if len(fields) == 0 {
		return availUnknown
	}
	program := fields[0]
	if strings.ContainsAny(program[:1], ":$") {
		return availUnknown
	}
	if _, err := executor.LookPath(program); err != nil {
		return availMissing
	}
	return availYes
}

func init() {
	rootCmd.AddCommand(listCmd)
}
