package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/homiodev/homio-hquery/internal/catalog"
	"github.com/homiodev/homio-hquery/internal/engine"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Manage query catalogs",
	Long: `Manage the user query catalog and check catalog files.

New queries are written to the first path in catalog.paths, by default
~/.config/hquery/queries.yaml.`,
	// Catalog commands work on files directly and must run even when a
	// configured catalog is broken.
	PersistentPreRunE: func(*cobra.Command, []string) error {
		if appConfig == nil {
			return errors.New("configuration not loaded")
		}
		return nil
	},
}

var catalogAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a query to the user catalog",
	Example: `  # Add a process query
  hquery catalog add disk-free --unix "df -h /" --returns lines

  # Add a cached HTTP query
  hquery catalog add outer-ip --url https://api.ipify.org --cache-ttl 5m

  # Add a full definition from a YAML file
  hquery catalog add wifi-signal --from query.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		q, err := queryFromFlags(cmd, args[0])
		if err != nil {
			return err
		}

		return addQuery(cmd.Context(), cmd.OutOrStdout(), catalog.NewStore(appConfig.UserCatalog()), q)
	},
}

var catalogRmCmd = &cobra.Command{
	Use:   "rm <name>",
	Short: "Remove a query from the user catalog",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return removeQuery(cmd.Context(), cmd.OutOrStdout(), catalog.NewStore(appConfig.UserCatalog()), args[0])
	},
}

var catalogShowCmd = &cobra.Command{
	Use:   "show [name]",
	Short: "Print user catalog definitions",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var name string
		if len(args) == 1 {
			name = args[0]
		}
		return showQueries(cmd.Context(), cmd.OutOrStdout(), catalog.NewStore(appConfig.UserCatalog()), name)
	},
}

var catalogValidateCmd = &cobra.Command{
	Use:   "validate [path...]",
	Short: "Check catalog files",
	Long: `Load catalog files and check every query definition.

Without arguments the configured catalogs are checked.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		paths := args
		if len(paths) == 0 {
			for _, p := range appConfig.Catalog.Paths {
				if _, err := os.Stat(p); err == nil {
					paths = append(paths, p)
				}
			}
		}

		cats, err := catalog.LoadPaths(cmd.Context(), paths)
		if err != nil {
			return err
		}

		reg := engine.NewRegistry(engine.New(engine.Options{}))
		for _, c := range cats {
			if err := reg.Replace(c.Descriptors); err != nil {
				return fmt.Errorf("%s: %w", c.Source, err)
			}
			fmt.Printf("%s: %d queries OK\n", c.Source, len(c.Descriptors))
		}
		return nil
	},
}

func addQuery(ctx context.Context, w io.Writer, ed catalog.Editor, q catalog.Query) error {
	if err := ed.Add(ctx, q); err != nil {
		return fmt.Errorf("add query: %w", err)
	}
	fmt.Fprintf(w, "Added %s to %s\n", q.Name, ed.Path())
	return nil
}

func removeQuery(ctx context.Context, w io.Writer, ed catalog.Editor, name string) error {
	if err := ed.Remove(ctx, name); err != nil {
		return fmt.Errorf("remove query: %w", err)
	}
	fmt.Fprintf(w, "Removed %s from %s\n", name, ed.Path())
	return nil
}

// showQueries prints the definitions as YAML, only those named name when it
// is not empty.
func showQueries(ctx context.Context, w io.Writer, ed catalog.Editor, name string) error {
	queries, err := ed.Queries(ctx)
	if err != nil {
		return fmt.Errorf("read catalog: %w", err)
	}

	if name != "" {
		var found []catalog.Query
		for _, q := range queries {
			if q.Name == name {
				found = append(found, q)
			}
		}
		if len(found) == 0 {
			return fmt.Errorf("%w: %s", catalog.ErrNotFound, name)
		}
		queries = found
	}

	out, err := yaml.Marshal(queries)
	if err != nil {
		return fmt.Errorf("marshal queries: %w", err)
	}
	_, err = w.Write(out)
	return err
}

// queryFromFlags builds a query definition from --from or the inline flags.
func queryFromFlags(cmd *cobra.Command, name string) (catalog.Query, error) {
	from, err := cmd.Flags().GetString("from")
	if err != nil {
		return catalog.Query{}, fmt.Errorf("get from flag: %w", err)
	}
	if from != "" {
		data, err := os.ReadFile(from)
		if err != nil {
			return catalog.Query{}, fmt.Errorf("read query file: %w", err)
		}
		var q catalog.Query
		if err := yaml.Unmarshal(data, &q); err != nil {
			return catalog.Query{}, fmt.Errorf("parse query file: %w", err)
		}
		q.Name = name
		return q, nil
	}

	flags := cmd.Flags()
	unix, _ := flags.GetStringArray("unix")
	windows, _ := flags.GetStringArray("windows")
	url, _ := flags.GetString("url")
	returns, _ := flags.GetString("returns")
	description, _ := flags.GetString("description")
	dir, _ := flags.GetString("dir")
	timeout, _ := flags.GetDuration("timeout")
	cacheTTL, _ := flags.GetDuration("cache-ttl")
	ignoreOnError, _ := flags.GetBool("ignore-on-error")
	valueOnError, _ := flags.GetString("value-on-error")

	if len(unix) == 0 && len(windows) == 0 && url == "" {
		return catalog.Query{}, errors.New("one of --unix, --windows, --url or --from is required")
	}

	return catalog.Query{
		Name:          name,
		Description:   description,
		Unix:          unix,
		Windows:       windows,
		URL:           url,
		Dir:           dir,
		Timeout:       catalog.Duration(timeout),
		CacheTTL:      catalog.Duration(cacheTTL),
		Returns:       returns,
		IgnoreOnError: ignoreOnError,
		ValueOnError:  valueOnError,
	}, nil
}

func init() {
	rootCmd.AddCommand(catalogCmd)
	catalogCmd.AddCommand(catalogAddCmd, catalogRmCmd, catalogShowCmd, catalogValidateCmd)

	f := catalogAddCmd.Flags()
	f.StringArray("unix", nil, "unix command template (repeat for argv parts)")
	f.StringArray("windows", nil, "windows command template (repeat for argv parts)")
	f.String("url", "", "URL template for an HTTP query")
	f.String("returns", "string", "result kind")
	f.String("description", "", "query description")
	f.String("dir", "", "working directory template")
	f.Duration("timeout", 0, "query timeout")
	f.Duration("cache-ttl", 0, "cache results for this long")
	f.Bool("ignore-on-error", false, "return --value-on-error instead of failing")
	f.String("value-on-error", "", "value returned when the command fails")
	f.String("from", "", "read the query definition from a YAML file")
}
