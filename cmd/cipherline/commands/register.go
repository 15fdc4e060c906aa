package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"cipherline/internal/domain"
)

func registerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "register <username>",
		Short: "Publish your pre-keys to the relay",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireRelay(); err != nil {
				return err
			}
			user := domain.Username(args[0])

			// Rotate the signed pre-key and add a batch of one-time pre-keys.
			if _, _, err := appCtx.PreKeys.GenerateAndStorePreKeys(passphrase, appCtx.Config.PreKeys.OneTimeBatch); err != nil {
				return err
			}
			reg, err := appCtx.PreKeys.LoadPreKeyRegistration(passphrase, user)
			if err != nil {
				return err
			}

			ctx, cancel := commandContext(cmd)
			defer cancel()
			if err := appCtx.Relay.RegisterPreKeys(ctx, reg); err != nil {
				return err
			}

			profile := domain.AccountProfile{
				ServerURL:      appCtx.Config.RelayURL,
				Username:       user,
				RegistrationID: reg.Bundle.RegistrationID,
				DeviceID:       reg.Bundle.DeviceID,
				RegisteredUTC:  time.Now().Unix(),
			}
			if err := appCtx.Accounts.SaveAccountProfile(profile); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registered %s with %d one-time pre-keys\n", user, len(reg.OneTimePreKeys))
			return nil
		},
	}
}
