package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/nerrad567/gray-logic-logship/internal/appender"
	"github.com/nerrad567/gray-logic-logship/internal/encode"
	"github.com/nerrad567/gray-logic-logship/internal/infrastructure/mqtt"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	var (
		connectFlag bool
		waitFlag    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate the configuration and print the resolved appender settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			addr, err := mqtt.ParseAddress(cfg.MQTT.Broker)
			if err != nil {
				return err
			}
			if _, err := encode.NewRegistry().Build(cfg.MQTT.Encoder); err != nil {
				return err
			}
			overflow, err := appender.ParseOverflow(cfg.MQTT.Overflow)
			if err != nil {
				return err
			}

			encoderKind := encode.KindPattern
			if cfg.MQTT.Encoder != nil && cfg.MQTT.Encoder.Kind != "" {
				encoderKind = cfg.MQTT.Encoder.Kind
			}
			timeout := "unbounded"
			if cfg.MQTT.PublishTimeout > 0 {
				timeout = cfg.MQTT.PublishTimeout.String()
			}

			path, _ := ctx.configPath()
			out := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(out, "config\t%s\n", path)
			fmt.Fprintf(out, "broker\t%s\n", addr.BrokerURL())
			fmt.Fprintf(out, "client_id\t%s\n", cfg.MQTT.ClientID)
			fmt.Fprintf(out, "topic\t%s\n", cfg.MQTT.Topic)
			fmt.Fprintf(out, "qos\t%s\n", appender.QoSFromInt(cfg.MQTT.QoS))
			fmt.Fprintf(out, "credentials\t%t\n", cfg.MQTT.Username != "" && cfg.MQTT.Password != "")
			fmt.Fprintf(out, "encoder\t%s\n", encoderKind)
			fmt.Fprintf(out, "publish_timeout\t%s\n", timeout)
			fmt.Fprintf(out, "overflow\t%s\n", overflow)
			if err := out.Flush(); err != nil {
				return err
			}

			if !connectFlag {
				return nil
			}

			app, err := ctx.buildAppender(ctx.diagnostics(), nil)
			if err != nil {
				return err
			}
			defer app.Close()

			if err := waitConnected(cmd.Context(), app, waitFlag); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "broker reachable")
			return nil
		},
	}

	cmd.Flags().BoolVar(&connectFlag, "connect", false, "Also connect to the broker")
	cmd.Flags().DurationVar(&waitFlag, "wait", 5*time.Second, "How long --connect waits for the broker")

	return cmd
}
