package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"cipherline/internal/crypto"
	"cipherline/internal/domain"
)

// startSessionCmd performs the X3DH handshake against a peer's pre-key bundle
// and persists a new session for future messaging.
func startSessionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start-session <peer>",
		Short: "Establish a secure session with a peer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireRelay(); err != nil {
				return err
			}
			peer := domain.Username(args[0])

			ctx, cancel := commandContext(cmd)
			defer cancel()
			sess, err := appCtx.Sessions.InitiateSession(ctx, passphrase, peer)
			if err != nil {
				return fmt.Errorf("starting session with %q: %w", peer, err)
			}

			// Show the peer fingerprint so it can be compared out of band.
			fmt.Fprintf(cmd.OutOrStdout(), "Session created with %s. Peer fingerprint: %s\n",
				peer, crypto.Fingerprint(sess.PeerIdentityKey[:]))
			return nil
		},
	}
}
