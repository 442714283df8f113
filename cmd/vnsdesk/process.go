package main

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/hyperifyio/vnsdesk/internal/app"
)

func newProcessCmd(o *options) *cobra.Command {
	var (
		outDir  string
		workers int
	)
	cmd := &cobra.Command{
		Use:   "process <file.txt>...",
		Short: "Process local article files and write Markdown review copies",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			run := o.cfg
			run.Async = false
			a, err := app.New(cmd.Context(), run)
			if err != nil {
				return err
			}
			defer a.Close()

			results, err := a.ProcessFiles(cmd.Context(), args, outDir, workers)
			for _, r := range results {
				if r.Err != nil {
					log.Warn().Err(r.Err).Str("file", r.Path).Str("status", string(r.Status)).Msg("not processed")
					continue
				}
				fmt.Fprintln(cmd.OutOrStdout(), r.Output)
			}
			return err
		},
	}
	cmd.Flags().StringVarP(&outDir, "out", "o", "out", "Directory for <id>.md review files")
	cmd.Flags().IntVarP(&workers, "workers", "w", 2, "Files processed concurrently")
	return cmd
}
