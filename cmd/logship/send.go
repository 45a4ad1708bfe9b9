package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nerrad567/gray-logic-logship/internal/record"
)

func newSendCommand(ctx *commandContext) *cobra.Command {
	var (
		levelFlag  string
		targetFlag string
		waitFlag   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "send MESSAGE...",
		Short: "Publish one log record per argument",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			level, err := record.ParseLevel(levelFlag)
			if err != nil {
				return err
			}

			log := ctx.diagnostics()
			app, err := ctx.buildAppender(log, nil)
			if err != nil {
				return err
			}
			defer app.Close()

			if err := waitConnected(cmd.Context(), app, waitFlag); err != nil {
				return err
			}

			for _, msg := range args {
				rec := &record.Record{
					Time:    time.Now(),
					Level:   level,
					Message: msg,
					Target:  targetFlag,
				}
				if err := app.Append(cmd.Context(), rec); err != nil {
					return err
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "published %d record(s) to %s\n",
				len(args), strings.TrimSpace(app.Topic()))
			return nil
		},
	}

	cmd.Flags().StringVarP(&levelFlag, "level", "l", "info", "Record level (error, warn, info, debug, trace)")
	cmd.Flags().StringVarP(&targetFlag, "target", "t", "logship", "Record target")
	cmd.Flags().DurationVar(&waitFlag, "wait", 5*time.Second, "How long to wait for the broker connection")

	return cmd
}
