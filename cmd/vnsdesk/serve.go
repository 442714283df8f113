package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hyperifyio/vnsdesk/internal/app"
)

func newServeCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the upload, status and review API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := app.New(ctx, o.cfg)
			if err != nil {
				return err
			}
			defer a.Close()
			return a.Serve(ctx)
		},
	}
	cmd.Flags().StringVar(&o.cfg.Addr, "addr", o.cfg.Addr, "Listen address")
	cmd.Flags().BoolVar(&o.cfg.Async, "async", o.cfg.Async, "Answer uploads before processing finishes")
	return cmd
}
