package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/homiodev/homio-hquery/internal/keychain"
	"github.com/homiodev/homio-hquery/internal/prompt"
)

var secretCmd = &cobra.Command{
	Use:   "secret",
	Short: "Manage secrets used by query templates",
	Long: `Store secrets in the system keyring.

A secret named NAME is substituted for ${secret.NAME} in command templates
when secrets.enabled is true.`,
	// Secrets are keyring operations and do not need the engine.
	PersistentPreRunE: func(*cobra.Command, []string) error {
		if appConfig == nil {
			return errors.New("configuration not loaded")
		}
		return nil
	},
}

var secretSetCmd = &cobra.Command{
	Use:   "set <name>",
	Short: "Store a secret",
	Example: `  # Prompt for the Wi-Fi password
  hquery secret set wifi-password

  # Read the value from standard input
  echo -n hunter2 | hquery secret set wifi-password --stdin`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fromStdin, err := cmd.Flags().GetBool("stdin")
		if err != nil {
			return fmt.Errorf("get stdin flag: %w", err)
		}

		var value string
		if fromStdin {
			value, err = readSecret(cmd.InOrStdin())
		} else {
			value, err = prompt.New().Secret("Value for " + args[0])
		}
		if err != nil {
			return err
		}
		if value == "" {
			return errors.New("secret cannot be empty")
		}

		kc, err := openKeychain()
		if err != nil {
			return err
		}
		if err := kc.Set(args[0], value); err != nil {
			return fmt.Errorf("store secret: %w", err)
		}

		fmt.Printf("Stored %s\n", args[0])
		if !appConfig.Secrets.Enabled {
			fmt.Println("Note: set secrets.enabled to true to use it in templates")
		}
		return nil
	},
}

var secretStatusCmd = &cobra.Command{
	Use:   "status <name>",
	Short: "Show whether a secret is stored",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kc, err := openKeychain()
		if err != nil {
			return err
		}
		return secretStatus(cmd.OutOrStdout(), kc, args[0])
	},
}

var secretRmCmd = &cobra.Command{
	Use:   "rm <name>",
	Short: "Remove a secret",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kc, err := openKeychain()
		if err != nil {
			return err
		}
		if err := kc.Delete(args[0]); err != nil {
			return fmt.Errorf("remove secret: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
		return nil
	},
}

func openKeychain() (keychain.Keychain, error) {
	return keychain.New(appConfig.Secrets.Service)
}

func secretStatus(w io.Writer, kc keychain.Keychain, name string) error {
	_, err := kc.Get(name)
	switch {
	case errors.Is(err, keychain.ErrNotFound):
		fmt.Fprintf(w, "%s: not set\n", name)
	case err != nil:
		return fmt.Errorf("load secret: %w", err)
	default:
		fmt.Fprintf(w, "%s: set\n", name)
	}
	return nil
}

// readSecret reads the first line of r without its line ending.
func readSecret(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read secret: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func init() {
	rootCmd.AddCommand(secretCmd)
	secretCmd.AddCommand(secretSetCmd, secretStatusCmd, secretRmCmd)

	secretSetCmd.Flags().Bool("stdin", false, "read the secret from standard input")
}
