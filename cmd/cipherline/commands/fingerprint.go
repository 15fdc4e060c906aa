package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"cipherline/internal/crypto"
)

func fingerprintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fingerprint",
		Short: "Print identity fingerprint",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePassphrase(); err != nil {
				return err
			}
			id, err := appCtx.Identity.LoadIdentity(passphrase)
			if err != nil {
				return err
			}
			defer crypto.Wipe(id.XPriv[:])
			defer crypto.Wipe(id.EdPriv[:])

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Fingerprint:  %s\n", crypto.IdentityFingerprint(id))
			fmt.Fprintf(out, "Identity key: %s\n", crypto.B64(id.XPub[:]))
			return nil
		},
	}
}
