package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/homiodev/homio-hquery/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "View and modify configuration",
	Long: `View and modify hquery settings in ~/.config/hquery/config.yaml.

Sections:
  engine    call timeouts, stream grace, offline mode
  cache     result caching and which outcomes are stored
  catalog   query catalog files and the built-in catalog
  packages  package manager behind $INSTALL, $UNINSTALL and $UPDATE
  secrets   keyring lookups for ${secret.NAME}
  metrics   Prometheus endpoint used by watch
  log       verbosity
  vars      template variables resolved as ${NAME}

Without arguments the effective configuration is printed. With a key its
value is printed; with a key and a value the value is validated and saved.
Environment variables named HQUERY_<SECTION>_<KEY> override the file.`,
	Example: `  # Show the effective configuration
  hquery config

  # List every settable key
  hquery config --keys

  # Raise the default call timeout
  hquery config engine.default_timeout 30s

  # Use apk for $INSTALL and friends
  hquery config packages.manager apk

  # Set a template variable used as ${IFACE}
  hquery config vars.iface wlan1

  # Open the file in $EDITOR
  hquery config --edit`,
	Args: cobra.RangeArgs(0, 2),
	// The config command loads its own configuration and never builds the engine.
	PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
	RunE:              runConfigCmd,
}

func runConfigCmd(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	if keys, _ := cmd.Flags().GetBool("keys"); keys {
		return listKeys(out)
	}

	loader, err := config.NewLoader()
	if err != nil {
		return fmt.Errorf("init config loader: %w", err)
	}

	if path, _ := cmd.Flags().GetBool("path"); path {
		fmt.Fprintln(out, loader.Path())
		return nil
	}
	// Load creates the file with defaults when it is missing.
	if _, err := loader.Load(); err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if edit, _ := cmd.Flags().GetBool("edit"); edit {
		return editConfig(loader)
	}

	switch len(args) {
	case 0:
		return showConfig(out, loader)
	case 1:
		return showKey(out, loader, args[0])
	default:
		return setKey(out, loader, args[0], args[1])
	}
}

// listKeys prints every settable key, one per line.
func listKeys(w io.Writer) error {
	for _, k := range config.Keys() {
		if k == "vars" {
			k = "vars.<name>"
		}
		if _, err := fmt.Fprintln(w, k); err != nil {
			return err
		}
	}
	return nil
}

func showConfig(w io.Writer, loader *config.Loader) error {
	cfg, err := loader.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	fmt.Fprintf(w, "# %s\n", loader.Path())
	_, err = w.Write(data)
	return err
}

func showKey(w io.Writer, loader *config.Loader, key string) error {
	if err := config.ValidateKey(key); err != nil {
		return err
	}

	value, err := loader.Get(key)
	if err != nil {
		return err
	}
	if value == nil && strings.HasPrefix(key, "vars.") {
		return fmt.Errorf("template variable %s is not set", strings.TrimPrefix(key, "vars."))
	}
	return writeValue(w, value, false)
}

func setKey(w io.Writer, loader *config.Loader, key, value string) error {
	if err := loader.Set(key, value); err != nil {
		return err
	}

	fmt.Fprintf(w, "Set %s = %s\n", key, value)
	if name, ok := strings.CutPrefix(key, "vars."); ok {
		fmt.Fprintf(w, "Templates can use it as ${%s}\n", name)
	}
	return nil
}

func editConfig(loader *config.Loader) error {
	editor := os.Getenv("EDITOR")
	if editor == "" {
		return config.ErrNoEditor
	}

	editorCmd := exec.Command(editor, loader.Path())
	editorCmd.Stdin = os.Stdin
	editorCmd.Stdout = os.Stdout
	editorCmd.Stderr = os.Stderr

	if err := editorCmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("editor exited with code %d", exitErr.ExitCode())
		}
		return fmt.Errorf("run editor: %w", err)
	}

	// Report a broken file now rather than on the next query.
	if _, err := loader.Load(); err != nil {
		return fmt.Errorf("edited config is invalid: %w", err)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(configCmd)

	configCmd.Flags().Bool("edit", false, "open the config file in $EDITOR")
	configCmd.Flags().Bool("path", false, "print the config file path")
	configCmd.Flags().Bool("keys", false, "list every settable key")
}
