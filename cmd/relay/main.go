package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"cipherline/internal/log"
	"cipherline/internal/relay"
)

func main() {
	var (
		addr     string
		logFile  string
		logLevel string
	)
	cmd := &cobra.Command{
		Use:          "relay",
		Short:        "Run the cipherline store-and-forward relay",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			lb, err := log.New(logFile, logLevel, false)
			if err != nil {
				return err
			}
			defer lb.Close()
			lg := lb.GetLogger("relay")

			srv := &http.Server{
				Addr:              addr,
				Handler:           relay.NewServer(lg),
				ReadHeaderTimeout: 10 * time.Second,
				ErrorLog:          lb.GetGoLogger("http", "WARNING"),
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = srv.Shutdown(shutdownCtx)
			}()

			lg.Noticef("Relay listening on %s", addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			lg.Notice("Relay stopped")
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	cmd.Flags().StringVar(&logFile, "log-file", "", "log file (default stderr)")
	cmd.Flags().StringVar(&logLevel, "log-level", "INFO", "log level")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
