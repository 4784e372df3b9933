package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newRunCmd(build agentBuilder) *cobra.Command {
	var (
		operatorID string
		once       bool
		interval   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Poll and apply approved requests until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := build(ctx, operatorID)
			if err != nil {
				return err
			}
			defer a.close()

			loopCfg := loopConfig(a.cfg, once, interval)
			loop, err := a.loop(loopCfg)
			if err != nil {
				return err
			}
			a.logger.Info("delivery agent started",
				zap.String("operator_id", a.operator.ID),
				zap.Bool("run_once", loopCfg.RunOnce),
				zap.Duration("poll_interval", loopCfg.PollInterval),
			)
			if err := loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&operatorID, "operator", "", "Operator id whose approved requests are applied (defaults to AGENT_OPERATOR_ID)")
	cmd.Flags().BoolVar(&once, "once", false, "Run a single pass and exit")
	cmd.Flags().DurationVar(&interval, "interval", 0, "Poll interval (defaults to AUTHZ_POLL_INTERVAL)")
	return cmd
}

type tickOutput struct {
	Command    string `json:"command"`
	OperatorID string `json:"operator_id"`
	DurationMS int64  `json:"duration_ms"`
	Examined   int    `json:"examined"`
	Applied    int    `json:"applied"`
	Failed     int    `json:"failed"`
	Unhandled  int    `json:"unhandled"`
	Skipped    int    `json:"skipped"`
	Error      string `json:"error,omitempty"`
}

func newTickCmd(build agentBuilder) *cobra.Command {
	var operatorID string

	cmd := &cobra.Command{
		Use:   "tick",
		Short: "Run one delivery pass and print its report as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := build(cmd.Context(), operatorID)
			if err != nil {
				return err
			}
			defer a.close()

			loop, err := a.loop(loopConfig(a.cfg, true, 0))
			if err != nil {
				return err
			}
			start := time.Now()
			report := loop.Tick(cmd.Context())
			out := tickOutput{
				Command:    "tick",
				OperatorID: a.operator.ID,
				DurationMS: time.Since(start).Milliseconds(),
				Examined:   report.Examined,
				Applied:    report.Applied,
				Failed:     report.Failed,
				Unhandled:  report.Unhandled,
				Skipped:    report.Skipped,
			}
			if report.Err != nil {
				out.Error = report.Err.Error()
			}
			if err := writeJSON(cmd.OutOrStdout(), out); err != nil {
				return err
			}
			return report.Err
		},
	}

	cmd.Flags().StringVar(&operatorID, "operator", "", "Operator id whose approved requests are applied (defaults to AGENT_OPERATOR_ID)")
	return cmd
}
