package commands

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"cipherline/internal/services/message"
)

// recv: fetch and decrypt queued messages for the local account.
func recvCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "recv",
		Short: "Fetch and decrypt your queued messages",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireRelay(); err != nil {
				return err
			}
			me, err := accountName()
			if err != nil {
				return err
			}

			ctx, cancel := commandContext(cmd)
			defer cancel()
			msgs, err := appCtx.Messages.ReceiveMessage(ctx, passphrase, me, limit)
			out := cmd.OutOrStdout()
			for _, m := range msgs {
				ts := time.Unix(m.Timestamp, 0).Format(time.DateTime)
				fmt.Fprintf(out, "%s [%s] %s\n", ts, m.From, string(m.Plaintext))
			}
			return reportDropped(cmd, err)
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "your username (default: the one registered on the relay)")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of messages to fetch (0 = all)")
	return cmd
}

// reportDropped prints one line per undecryptable message and returns any
// other error.
func reportDropped(cmd *cobra.Command, err error) error {
	if err == nil {
		return nil
	}
	errs := []error{err}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		errs = joined.Unwrap()
	}
	var rest []error
	for _, e := range errs {
		var de *message.DecryptError
		if errors.As(e, &de) {
			fmt.Fprintf(cmd.ErrOrStderr(), "[%s] message could not be decrypted\n", de.From)
			continue
		}
		rest = append(rest, e)
	}
	return errors.Join(rest...)
}
