package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"ingest/internal/broker"
	"ingest/internal/ingestion"
	"ingest/pkg/models"
)

func tailCmd() *cobra.Command {
	var (
		rawTopic    bool
		showPayload bool
	)

	cmd := &cobra.Command{
		Use:   "tail <content_type>",
		Short: "Log records arriving on a content type's topic",
		Long: "Subscribes to ingest.raw.<content_type> on the configured bus and logs every record received.\n" +
			"With --raw the argument is used as the topic name as is (NATS wildcards allowed).",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			defer log.Sync()

			topic := args[0]
			if !rawTopic {
				topic = ingestion.Route(topic)
			}

			consumer, err := broker.NewConsumer(cfg.Broker, log)
			if err != nil {
				return err
			}
			defer consumer.Close()

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			err = consumer.Consume(ctx, topic, func(ctx context.Context, rec models.Record) error {
				fields := []interface{}{
					"id", rec.ID,
					"source", rec.Source,
					"content_type", rec.ContentType,
					"timestamp", rec.Timestamp,
				}
				if showPayload {
					fields = append(fields, "payload", string(rec.Payload), "metadata", string(rec.Metadata))
				}
				log.InfowCtx(ctx, "Record received", fields...)
				return nil
			})
			if err != nil && err != context.Canceled {
				return err
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&rawTopic, "raw", false, "Treat the argument as a topic name instead of a content type")
	cmd.Flags().BoolVar(&showPayload, "payload", false, "Include payload and metadata in the log output")
	return cmd
}
