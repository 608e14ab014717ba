package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"cashbook/internal/amqp"
)

func eventsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "events",
		Short: "Follow ledger events from the AMQP queue",
		Long: `Consume the configured AMQP queue and print every ledger event as one JSON
line until interrupted. Reconnects with backoff when the broker goes away.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cfg.AMQPURL == "" {
				return errors.New("AMQP_URL is not configured")
			}
			client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
			if err != nil {
				return fmt.Errorf("connect to AMQP: %w", err)
			}
			defer client.Close()

			logger.Info("Consuming ledger events", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
			enc := json.NewEncoder(cmd.OutOrStdout())
			err = client.ConsumeEvents(cmd.Context(), func(e *amqp.Event) error {
				return enc.Encode(e)
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}
