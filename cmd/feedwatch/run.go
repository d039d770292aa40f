package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/NordCoder/Feedwatch/internal/bus"
	config "github.com/NordCoder/Feedwatch/internal/config/feedwatch"
	"github.com/NordCoder/Feedwatch/internal/domain/activity"
	"github.com/NordCoder/Feedwatch/internal/obs"
	"github.com/NordCoder/Feedwatch/internal/obs/retry"
	"github.com/NordCoder/Feedwatch/internal/repository/github"
	kafkaRepo "github.com/NordCoder/Feedwatch/internal/repository/kafka"
	"github.com/NordCoder/Feedwatch/internal/services/forwarder"
	"github.com/NordCoder/Feedwatch/internal/services/poller"
)

const shutdownTimeout = 5 * time.Second

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Poll the configured feeds until interrupted",
	Long: `Poll every configured target. SIGHUP cuts the current wait short and
polls all targets immediately; SIGINT/SIGTERM stop the process.`,
	RunE: runFeedwatch,
}

func init() {
	f := runCmd.Flags()
	f.Duration("poll-interval", 0, "initial wait between polls (server hints win)")
	f.Int("poll-max-pages", 0, "stop paginating after this many pages (0 = unlimited, unset = poll.max_pages)")
	f.Bool("kafka-enable", false, "forward events to kafka")
	f.String("server-metrics-addr", "", "listen address for /metrics, /healthz and /runners")
	rootCmd.AddCommand(runCmd)
}

func runFeedwatch(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	targets, err := cfg.PollTargets()
	if err != nil {
		return err
	}

	l, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer func() { _ = l.Sync() }()
	l.Info("starting feedwatch", zap.Int("targets", len(targets)), zap.String("backend", cfg.State.Backend))

	otelCloser, err := obs.SetupOTel(ctx, &cfg.OTel, version)
	if err != nil {
		return fmt.Errorf("otel init: %w", err)
	}
	defer func() { _ = otelCloser.Shutdown(context.Background()) }()

	store, err := openStore(ctx, cfg, l)
	if err != nil {
		return err
	}
	defer store.close()

	client, err := github.New(github.Config{
		BaseURL:   cfg.GitHub.BaseURL,
		Token:     cfg.GitHub.Token,
		UserAgent: cfg.GitHub.UserAgent,
		Timeout:   cfg.GitHub.Timeout,
		PerPage:   cfg.GitHub.PerPage,
	}, l)
	if err != nil {
		return err
	}

	b := bus.New(l)
	b.Subscribe(poller.AllChannel, logHandler(l))

	if cfg.Kafka.Enable {
		prod := kafkaRepo.BootstrapProducer(ctx, cfg.Kafka.Brokers, kafkaRepo.TopicSpec{
			Name:              cfg.Kafka.Topic,
			NumPartitions:     cfg.Kafka.Partitions,
			ReplicationFactor: cfg.Kafka.ReplicationFactor,
			MaxWait:           cfg.Kafka.TopicWait,
		}, l)
		defer func() { _ = prod.Close() }()
		fw := forwarder.New(l, kafkaRepo.NewActivityEventsKafka(prod), retry.ForwardPolicy("kafka.activity", l))
		defer fw.Attach(b)()
	}

	runners, err := buildRunners(cfg, targets, client, b, store, l)
	if err != nil {
		return err
	}

	var ms *http.Server
	if cfg.Server.MetricsAddr != "" {
		ms = obs.BootstrapMetricsServer(cfg.Server.MetricsAddr, store.health, l,
			obs.Route{Pattern: "/runners", Handler: runnersHandler(runners)})
	}

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-hup:
				l.Info("SIGHUP: refreshing all targets")
				for _, r := range runners {
					r.Trigger()
				}
			}
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	for _, r := range runners {
		g.Go(func() error { return r.Run(gctx) })
	}
	err = g.Wait()

	if ms != nil {
		shCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = ms.Shutdown(shCtx)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		l.Error("runner error", zap.Error(err))
		return err
	}
	l.Info("bye")
	return nil
}

func buildRunners(cfg *config.Config, targets []activity.Target, t activity.Transport, b *bus.Bus, store *stateBackend, l *zap.Logger) ([]*poller.Runner, error) {
	runners := make([]*poller.Runner, 0, len(targets))
	for _, target := range targets {
		fp, err := fingerprintFor(cfg, target)
		if err != nil {
			return nil, err
		}
		uc := poller.NewUC(
			poller.NewFetcher(t, target),
			&poller.Paginator{Log: l, MaxPages: cfg.Poll.MaxPages},
			poller.NewEngine(b),
		)
		runners = append(runners, poller.New(l, uc, store, fp, cfg.Poll.Interval))
	}
	return runners, nil
}

func logHandler(l *zap.Logger) bus.Handler {
	return func(ctx context.Context, eventType string, item activity.Item) {
		obs.WithTrace(ctx, l).Debug("event",
			zap.Uint64("id", item.ID),
			zap.String("type", eventType),
			zap.String("repo", item.Repo),
			zap.String("actor", item.Actor),
		)
	}
}

func runnersHandler(runners []*poller.Runner) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		out := make([]poller.Status, 0, len(runners))
		for _, r := range runners {
			out = append(out, r.Status())
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(out)
	})
}
