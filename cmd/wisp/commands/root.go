package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"wisp/internal/app"
)

var (
	// These flags are shared across all commands.
	homeDir    string
	relayURL   string
	username   string
	passphrase string

	// appCtx holds the wired dependencies after PersistentPreRunE.
	appCtx *app.Wire
)

// Execute initialises the application context and runs the root cobra command.
func Execute() error {
	root := &cobra.Command{
		Use:   "wisp",
		Short: "End-to-end encrypted terminal chat CLI",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if homeDir == "" {
				if h, err := os.UserHomeDir(); err == nil {
					homeDir = filepath.Join(h, ".wisp")
				}
			}
			if err := os.MkdirAll(homeDir, 0o700); err != nil {
				return fmt.Errorf("creating config dir: %w", err)
			}

			var err error
			appCtx, err = app.NewWire(app.Config{Home: homeDir, RelayURL: relayURL})
			if err != nil {
				return fmt.Errorf("initialising application: %w", err)
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(
		&homeDir, "home", "", "config directory (default: $HOME/.wisp)",
	)
	root.PersistentFlags().StringVarP(
		&passphrase, "passphrase", "p", "", "passphrase to unlock your keys",
	)
	root.PersistentFlags().StringVar(
		&relayURL, "relay", "http://127.0.0.1:8080", "relay base URL",
	)

	root.AddCommand(
		initCmd(),
		fingerprintCmd(),
		registerCmd(),
		chatCmd(),
	)

	return root.Execute()
}
