package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nneven/runtrigger/engine/core"
	"github.com/nneven/runtrigger/engine/trigger"
)

// TriggerCmd exercises Service.TriggerTask against the wired
// collaborators, letting the core pipeline run without an HTTP layer.
func TriggerCmd() *cobra.Command {
	var (
		environmentID  string
		payloadJSON    string
		idempotencyKey string
		delay          string
		queueName      string
		test           bool
	)
	cmd := &cobra.Command{
		Use:   "trigger <taskId>",
		Short: "Trigger one task run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig(ctx, cmd)
			if err != nil {
				return err
			}
			service, cleanup, err := buildService(ctx, cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			envID, err := core.ParseID(environmentID)
			if err != nil {
				return fmt.Errorf("invalid --environment: %w", err)
			}
			var payload any
			if payloadJSON != "" {
				if err := json.Unmarshal([]byte(payloadJSON), &payload); err != nil {
					return fmt.Errorf("invalid --payload: %w", err)
				}
			}

			req := &trigger.Request{
				TaskID:      args[0],
				Environment: envID,
				Payload:     payload,
			}
			if idempotencyKey != "" {
				req.Options.IdempotencyKey = &idempotencyKey
			}
			if delay != "" {
				req.Options.Delay = delay
			}
			if queueName != "" {
				req.QueueNameOverride = &queueName
			}
			if test {
				req.Options.Test = &test
			}

			run, err := service.TriggerTask(ctx, req)
			if err != nil {
				return fmt.Errorf("triggering task %s: %w", args[0], err)
			}
			out, err := json.MarshalIndent(run, "", "  ")
			if err != nil {
				return fmt.Errorf("encoding run: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
	cmd.Flags().StringVar(&environmentID, "environment", "", "environment id to trigger within")
	cmd.Flags().StringVar(&payloadJSON, "payload", "", "JSON payload body")
	cmd.Flags().StringVar(&idempotencyKey, "idempotency-key", "", "idempotency key")
	cmd.Flags().StringVar(&delay, "delay", "", "delay before the run becomes eligible (duration string or RFC3339 time)")
	cmd.Flags().StringVar(&queueName, "queue", "", "explicit queue name override")
	cmd.Flags().BoolVar(&test, "test", false, "mark the run as a test run")
	_ = cmd.MarkFlagRequired("environment")
	return cmd
}
