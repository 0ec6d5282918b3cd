package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"ledger/internal/amqp"
	"ledger/internal/backend"
	"ledger/internal/budget"
	"ledger/internal/cli"
	"ledger/internal/log"
	"ledger/internal/services"
)

func newEventsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "events",
		Short: "Consume change events and report months that go over budget",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cli.LoadAndValidateConfig()
			if err != nil {
				return err
			}
			if !cfg.AMQPEnabled() {
				return errors.New("AMQP_URL is not set")
			}
			logger, err := cli.SetupLogger(cfg.LogLevel)
			if err != nil {
				return err
			}

			ctx, cancel := cli.SignalContext(cmd.Context(), logger)
			defer cancel()

			bcfg, err := backend.FromAppConfig(cfg)
			if err != nil {
				return err
			}
			// The consumer only reads; it publishes nothing itself.
			bcfg.AMQPURL = ""
			res, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
			if err != nil {
				return err
			}
			defer res.Cleanup()

			client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
			if err != nil {
				return fmt.Errorf("connect to broker: %w", err)
			}
			defer client.Close()

			watcher := services.NewBudgetWatcher(res.Repo, logger)
			watcher.OnOverBudget(func(r budget.Reconciliation) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s user %d over budget: spent %s of %s\n",
					r.Period, r.UserID, r.Spent, r.Budget)
			})

			logger.Info("Watching change events", "queue", cfg.AMQPQueue, log.FieldOperation, log.OpStartup)
			if err := client.Consume(ctx, watcher.Handle); err != nil && ctx.Err() == nil {
				return err
			}
			return nil
		},
	}
}
