package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/NordCoder/Feedwatch/internal/obs"
	kafkaRepo "github.com/NordCoder/Feedwatch/internal/repository/kafka"
)

// kafka-init creates the activity topics and blocks until every partition
// has a leader, so compose stacks can start feedwatch right after it.
func main() {
	fs := pflag.NewFlagSet("kafka-init", pflag.ExitOnError)
	brokers := fs.StringSlice("brokers", splitEnv("FEEDWATCH_KAFKA_BROKERS", "kafka:9092"), "bootstrap brokers")
	topics := fs.StringSlice("topics", splitEnv("FEEDWATCH_KAFKA_TOPIC", "feedwatch.activity"), "topics to create")
	partitions := fs.Int("partitions", envInt("FEEDWATCH_KAFKA_PARTITIONS", 1), "partitions per topic")
	rf := fs.Int("replication-factor", envInt("FEEDWATCH_KAFKA_REPLICATION_FACTOR", 1), "replication factor")
	timeout := fs.Duration("timeout", 60*time.Second, "overall deadline")
	_ = fs.Parse(os.Args[1:])

	l, err := obs.NewLogger(obs.LogConfig{Level: "info", Pretty: true, App: "kafka-init"})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = l.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	for _, t := range *topics {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		g.Go(func() error {
			ts := kafkaRepo.TopicSpec{Name: t, NumPartitions: *partitions, ReplicationFactor: *rf, MaxWait: 10 * time.Second}
			if err := kafkaRepo.EnsureTopic(gctx, *brokers, ts, l); err != nil {
				return fmt.Errorf("ensure topic %q: %w", t, err)
			}
			if err := waitTopicReady(gctx, (*brokers)[0], t); err != nil {
				return fmt.Errorf("wait topic %q: %w", t, err)
			}
			l.Info("topic ready", zap.String("topic", t))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		l.Fatal("kafka-init failed", zap.Error(err))
	}
	l.Info("kafka-init ok", zap.Strings("topics", *topics))
}

func waitTopicReady(ctx context.Context, broker, topic string) error {
	const maxBackoff = 5 * time.Second
	backoff := 200 * time.Millisecond
	for {
		if ready(ctx, broker, topic) {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("topic %s not ready: %w", topic, ctx.Err())
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, maxBackoff)
	}
}

func ready(ctx context.Context, broker, topic string) bool {
	conn, err := kafka.DialContext(ctx, "tcp", broker)
	if err != nil {
		return false
	}
	defer conn.Close()
	parts, err := conn.ReadPartitions(topic)
	if err != nil || len(parts) == 0 {
		return false
	}
	for _, p := range parts {
		// -1 means the partition has no leader elected yet
		if p.Leader.ID == -1 {
			return false
		}
	}
	return true
}

func splitEnv(k, def string) []string {
	v := os.Getenv(k)
	if v == "" {
		v = def
	}
	return strings.Split(v, ",")
}

func envInt(k string, def int) int {
	if n, err := strconv.Atoi(os.Getenv(k)); err == nil && n > 0 {
		return n
	}
	return def
}
