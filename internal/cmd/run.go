package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/homiodev/homio-hquery/internal/engine"
	"github.com/homiodev/homio-hquery/internal/prompt"
	"github.com/homiodev/homio-hquery/internal/query"
	"github.com/homiodev/homio-hquery/internal/slogger"
	"github.com/homiodev/homio-hquery/internal/spinner"
	"github.com/homiodev/homio-hquery/internal/template"
)

var runCmd = &cobra.Command{
	Use:   "run [query] [args...]",
	Short: "Run a query and print its result",
	Long: `Run a catalog query and print the parsed result.

Arguments of the form name=value fill the matching :name placeholder.
Other arguments fill the remaining placeholders in order.

With --interactive, placeholders without a value are asked for, and the
query itself is chosen from a list when no name is given. Queries that
install, remove, or update packages ask for confirmation first.`,
	Example: `  # Print the host name
  hquery run hostname

  # Scan for wireless networks on wlan1
  hquery run wifi-scan iface=wlan1 --json

  # Prompt for missing arguments
  hquery run install-software -i

  # Show live output while the command runs
  hquery run update-packages --progress`,
	RunE: runRunCmd,
}

// runFlags holds parsed flags for the run command.
type runFlags struct {
	timeout     time.Duration
	interactive bool
	asJSON      bool
	progress    bool
	yes         bool
}

// parseRunFlags extracts flags from the command.
func parseRunFlags(cmd *cobra.Command) (*runFlags, error) {
	timeout, err := cmd.Flags().GetDuration("timeout")
	if err != nil {
		return nil, fmt.Errorf("get timeout flag: %w", err)
	}
	interactive, err := cmd.Flags().GetBool("interactive")
	if err != nil {
		return nil, fmt.Errorf("get interactive flag: %w", err)
	}
	asJSON, err := cmd.Flags().GetBool("json")
	if err != nil {
		return nil, fmt.Errorf("get json flag: %w", err)
	}
	progress, err := cmd.Flags().GetBool("progress")
	if err != nil {
		return nil, fmt.Errorf("get progress flag: %w", err)
	}
	yes, err := cmd.Flags().GetBool("yes")
	if err != nil {
		return nil, fmt.Errorf("get yes flag: %w", err)
	}

	return &runFlags{
		timeout:     timeout,
		interactive: interactive,
		asJSON:      asJSON,
		progress:    progress,
		yes:         yes,
	}, nil
}

func runRunCmd(cmd *cobra.Command, args []string) error {
	flags, err := parseRunFlags(cmd)
	if err != nil {
		return err
	}

	reg, err := requireRegistry(cmd.Context())
	if err != nil {
		return err
	}

	p := prompt.New()

	name, err := selectQuery(reg, p, args, flags.interactive)
	if err != nil {
		return err
	}
	d, ok := reg.Get(name)
	if !ok {
		return fmt.Errorf("%w: %s", query.ErrUnknownQuery, name)
	}

	callArgs := parseArgs(args[min(1, len(args)):])
	if flags.interactive {
		names, bound := boundPlaceholders(&d, callArgs)
		asked, err := prompt.Arguments(p, d.Name, names, bound)
		if err != nil {
			return err
		}
		callArgs = append(callArgs, asked...)

		if touchesPackages(&d) && !flags.yes {
			ok, err := p.Confirm(fmt.Sprintf("Run %s?", d.Name), "This query changes installed packages.")
			if err != nil {
				return err
			}
			if !ok {
				return prompt.ErrCanceled
			}
		}
	}

	var opts []engine.CallOption
	if flags.timeout > 0 {
		opts = append(opts, engine.WithTimeout(flags.timeout))
	}

	var stop func()
	if flags.progress {
		sink, stopSink := progressSink(cmd)
		opts = append(opts, engine.WithProgress(sink))
		stop = stopSink
	}

	v, err := reg.CallWith(cmd.Context(), d.Name, callArgs, opts...)
	if stop != nil {
		stop()
	}
	if err != nil {
		var qerr *query.Error
		if errors.As(err, &qerr) && len(qerr.Stderr) > 0 {
			slogger.L(cmd.Context()).Info("command stderr", "lines", strings.Join(qerr.Stderr, "\n"))
		}
		return err
	}

	return writeValue(cmd.OutOrStdout(), v, flags.asJSON)
}

// selectQuery returns the query named by the first argument, or asks for one
// when running interactively without arguments.
func selectQuery(reg *engine.Registry, p prompt.Prompter, args []string, interactive bool) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	if !interactive {
		return "", errors.New("query name required")
	}

	descs := reg.Descriptors()
	if len(descs) == 0 {
		return "", errors.New("no queries registered")
	}
	options := make([]string, len(descs))
	for i, d := range descs {
		options[i] = d.Name
		if d.Description != "" {
			options[i] += " - " + d.Description
		}
	}
	idx, err := p.Choice("Select a query", options)
	if err != nil {
		return "", err
	}
	return descs[idx].Name, nil
}

// touchesPackages reports whether d uses a package-manager token that
// modifies the system.
func touchesPackages(d *query.Descriptor) bool {
	for _, t := range append(append([]string{}, d.Commands.Unix...), d.Commands.Windows...) {
		for _, tok := range []string{template.TokenInstall, template.TokenUninstall, template.TokenUpdate} {
			if strings.Contains(t, tok) {
				return true
			}
		}
	}
	return false
}

// progressSink picks a spinner on a terminal and log lines otherwise.
func progressSink(cmd *cobra.Command) (query.ProgressSink, func()) {
	if !spinner.Enabled(os.Stderr) {
		return slogger.Progress{Logger: slogger.L(cmd.Context())}, func() {}
	}

	s := spinner.New(os.Stderr)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := s.Start(); err != nil {
			slogger.L(cmd.Context()).Debug("spinner stopped", "error", err)
		}
	}()
	return s, func() {
		s.Stop()
		<-done
	}
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().Duration("timeout", 0, "override the query timeout")
	runCmd.Flags().BoolP("interactive", "i", false, "prompt for the query and missing arguments")
	runCmd.Flags().Bool("json", false, "print the result as JSON")
	runCmd.Flags().Bool("progress", false, "show live command output while running")
	runCmd.Flags().BoolP("yes", "y", false, "skip confirmation for package changes")
}
