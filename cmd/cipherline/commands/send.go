package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"cipherline/internal/domain"
)

// send <peer> <message>: encrypt and send a message to <peer>.
func sendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "send <peer> <message>",
		Short: "Encrypt and send a message to a peer",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireRelay(); err != nil {
				return err
			}
			me, err := accountName()
			if err != nil {
				return err
			}
			peer := domain.Username(args[0])

			ctx, cancel := commandContext(cmd)
			defer cancel()
			if err := appCtx.Messages.SendMessage(ctx, passphrase, me, peer, []byte(args[1])); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "sent")
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "your username (default: the one registered on the relay)")
	return cmd
}
