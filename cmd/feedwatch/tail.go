package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	ceevent "github.com/cloudevents/sdk-go/v2/event"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	kafkaRepo "github.com/NordCoder/Feedwatch/internal/repository/kafka"
)

var tailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Print events from the kafka topic as JSON lines",
	RunE:  runTail,
}

func init() {
	f := tailCmd.Flags()
	f.Bool("from-beginning", false, "start at the oldest retained message")
	f.String("group", "", "consumer group (default: a fresh one per invocation)")
	rootCmd.AddCommand(tailCmd)
}

func runTail(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	l, err := newLogger(cfg)
	if err != nil {
		return err
	}

	group, _ := cmd.Flags().GetString("group")
	if group == "" {
		group = "feedwatch-tail-" + uuid.NewString()
	}
	fromBeginning, _ := cmd.Flags().GetBool("from-beginning")

	consumer := kafkaRepo.BootstrapConsumer(ctx, &kafkaRepo.ConsumerConfig{
		Brokers:       cfg.Kafka.Brokers,
		GroupID:       group,
		Topic:         cfg.Kafka.Topic,
		FromBeginning: fromBeginning,
		Logger:        l,
	}, l)
	defer func() { _ = consumer.Close() }()

	err = consumer.Consume(ctx, kafkaRepo.CloudEventHandler(printEvent(cmd.OutOrStdout())))
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

type tailLine struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Source  string          `json:"source"`
	Subject string          `json:"subject,omitempty"`
	Time    string          `json:"time"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func printEvent(w io.Writer) func(context.Context, []byte, ceevent.Event) error {
	enc := json.NewEncoder(w)
	return func(_ context.Context, _ []byte, ev ceevent.Event) error {
		line := tailLine{
			ID:      ev.ID(),
			Type:    ev.Type(),
			Source:  ev.Source(),
			Subject: ev.Subject(),
			Time:    ev.Time().Format(time.RFC3339),
			Data:    ev.Data(),
		}
		if err := enc.Encode(line); err != nil {
			return fmt.Errorf("print event: %w", err)
		}
		return nil
	}
}
