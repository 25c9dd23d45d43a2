package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"wisp/internal/domain"
)

// registerCmd generates a signed pre-key and a batch of one-time pre-keys,
// then dials the relay and publishes the resulting bundle under username.
func registerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "register <username>",
		Short: "Generate pre-keys and publish your bundle to the relay",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			usernameValue := domain.Username(args[0])

			if _, _, _, err := appCtx.PreKeyService.GenerateAndStorePreKeys(passphrase, 10); err != nil {
				return fmt.Errorf("generating pre-keys: %w", err)
			}

			mgr, err := appCtx.Connect(passphrase, usernameValue)
			if err != nil {
				return fmt.Errorf("connecting to relay: %w", err)
			}
			if err := mgr.Register(usernameValue); err != nil {
				return fmt.Errorf("registering bundle: %w", err)
			}

			fmt.Println("Registered pre-keys with relay")
			return nil
		},
	}
	return cmd
}
