package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/shopflow-backend/pkg/config"
	"github.com/angelmondragon/shopflow-backend/pkg/db"
	"github.com/angelmondragon/shopflow-backend/pkg/instance"
	"github.com/angelmondragon/shopflow-backend/pkg/kafka"
	"github.com/angelmondragon/shopflow-backend/pkg/logger"
	"github.com/angelmondragon/shopflow-backend/pkg/metrics"
	"github.com/angelmondragon/shopflow-backend/pkg/migrate"
	"github.com/angelmondragon/shopflow-backend/pkg/outbox"
	"github.com/angelmondragon/shopflow-backend/pkg/outbox/registry"
	"github.com/angelmondragon/shopflow-backend/pkg/outbox/relay"
	"github.com/angelmondragon/shopflow-backend/pkg/pubsub"
)

const serviceKind = "outbox-publisher"

const usage = `usage: outbox-publisher [command]

commands:
  run                   relay outbox events to the broker (default)
  dlq list [-limit n]   show dead-lettered events, newest first
  dlq requeue <id>      move a dead-lettered event back onto the queue
`

func main() {
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: serviceKind})
	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}
	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = serviceKind
	logg = logger.New(logger.Options{
		ServiceName: serviceKind,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Console:     cfg.App.ConsoleLogs(),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"instance":    instance.GetID(),
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer dbClient.Close()

	dlq := outbox.NewDLQRepository(dbClient.DB())
	switch cmd := flag.Arg(0); cmd {
	case "", "run":
		err = run(ctx, cfg, logg, dbClient, dlq)
	case "dlq":
		err = dlqCommand(ctx, dlq, flag.Args()[1:])
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "outbox publisher failed", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger, dbClient *db.Client, dlq *outbox.DLQRepository) error {
	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return fmt.Errorf("dev migrations: %w", err)
	}

	transport, name, topics, err := newTransport(ctx, cfg, logg)
	if err != nil {
		return fmt.Errorf("outbox transport: %w", err)
	}
	defer func() {
		if err := transport.Close(); err != nil {
			logg.Error(ctx, "error closing outbox transport", err)
		}
	}()

	reg, err := registry.New(topics)
	if err != nil {
		return err
	}
	r, err := relay.New(cfg.Outbox, relay.Deps{
		DB:            dbClient,
		Queue:         outbox.NewRepository(dbClient.DB()),
		DeadLetters:   dlq,
		Resolver:      reg,
		Transport:     transport,
		TransportName: name,
		Metrics:       metrics.NewOutboxMetrics(prometheus.DefaultRegisterer),
		Logger:        logg,
	})
	if err != nil {
		return err
	}

	metrics.Serve(ctx, cfg.Service.MetricsAddr, prometheus.DefaultGatherer, logg)
	ctx = logg.WithField(ctx, "transport", name)
	logg.Info(ctx, "starting outbox relay")
	return r.Run(ctx)
}

func dlqCommand(ctx context.Context, dlq *outbox.DLQRepository, args []string) error {
	if len(args) == 0 {
		return errors.New("dlq needs a subcommand: list or requeue")
	}
	switch args[0] {
	case "list":
		fs := flag.NewFlagSet("dlq list", flag.ExitOnError)
		limit := fs.Int("limit", 50, "maximum entries to show")
		_ = fs.Parse(args[1:])
		rows, err := dlq.List(ctx, *limit)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "EVENT ID\tTYPE\tREASON\tATTEMPTS\tFAILED AT\tERROR")
		for _, row := range rows {
			msg := ""
			if row.ErrorMessage != nil {
				msg = *row.ErrorMessage
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
				row.EventID, row.EventType, row.ErrorReason, row.AttemptCount,
				row.FailedAt.Format(time.RFC3339), msg)
		}
		return tw.Flush()
	case "requeue":
		if len(args) < 2 {
			return errors.New("dlq requeue needs an event id")
		}
		id, err := uuid.Parse(args[1])
		if err != nil {
			return fmt.Errorf("invalid event id: %w", err)
		}
		if err := dlq.Requeue(ctx, id); err != nil {
			return err
		}
		fmt.Println("requeued", id)
		return nil
	}
	return fmt.Errorf("unknown dlq subcommand %q", args[0])
}

func newTransport(ctx context.Context, cfg *config.Config, logg *logger.Logger) (outbox.Transport, string, registry.Topics, error) {
	if cfg.Outbox.UsesKafka() {
		client, err := kafka.NewClient(ctx, cfg.Kafka, logg)
		if err != nil {
			return nil, "", registry.Topics{}, err
		}
		return client, config.OutboxTransportKafka, registry.Topics{
			Orders:        cfg.Kafka.OrdersTopic,
			Notifications: cfg.Kafka.NotificationTopic,
		}, nil
	}
	client, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		return nil, "", registry.Topics{}, err
	}
	return client, config.OutboxTransportPubSub, registry.Topics{
		Orders:        cfg.PubSub.OrdersTopic,
		Notifications: cfg.PubSub.NotificationTopic,
	}, nil
}
