package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"news_pusher/internal/config"
	"news_pusher/internal/feishu"
	"news_pusher/internal/publisher"
	"news_pusher/internal/service"
	"news_pusher/internal/source/listing"
	"news_pusher/internal/state"
	"news_pusher/internal/storage/postgres"
)

type app struct {
	service *service.PushService
	closers []func() error
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{}

	fetcher := listing.NewFetcher(listing.FetcherConfig{
		URL:       cfg.Source.URL,
		UserAgent: cfg.Source.UserAgent,
		Timeout:   cfg.Source.Timeout,
	}, logger)

	parser, err := listing.NewParser(listing.ParserConfig{
		BaseURL:      cfg.Source.URL,
		LinkPattern:  cfg.Source.LinkPattern,
		SkipKeywords: cfg.Source.SkipKeywords,
	})
	if err != nil {
		return nil, fmt.Errorf("create parser: %w", err)
	}

	formatter := feishu.NewFormatter(feishu.FormatterConfig{
		Style:       cfg.Feishu.Style,
		Title:       cfg.Feishu.Title,
		TitleMaxLen: cfg.Feishu.TitleMaxLen,
		SourceURL:   cfg.Source.URL,
	})

	client := feishu.NewClient(feishu.ClientConfig{
		Webhook: cfg.Feishu.Webhook,
		Secret:  cfg.Feishu.Secret,
		Timeout: cfg.Feishu.Timeout,
	}, logger)

	store, err := a.newStateStore(ctx, cfg.State, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	// Leave the interface nil when mirroring is off.
	var pub service.Publisher
	if cfg.AMQP.URL != "" {
		rabbitMQ, err := publisher.NewRabbitMQ(publisher.Config{
			URL:        cfg.AMQP.URL,
			Exchange:   cfg.AMQP.Exchange,
			RoutingKey: cfg.AMQP.RoutingKey,
			QueueName:  cfg.AMQP.QueueName,
		}, logger)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, rabbitMQ.Close)
		pub = rabbitMQ
	}

	a.service = service.NewPushService(
		fetcher,
		parser,
		formatter,
		client,
		store,
		pub,
		logger,
		service.Limits{
			TopN:       cfg.Push.TopN,
			MaxSeenIDs: cfg.State.MaxSeenIDs,
		},
	)

	return a, nil
}

func (a *app) newStateStore(ctx context.Context, cfg config.StateConfig, logger *slog.Logger) (service.StateStore, error) {
	if cfg.Backend != config.BackendPostgres {
		return state.NewFileStore(cfg.File, logger), nil
	}

	db, err := sqlx.ConnectContext(ctx, "postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	a.closers = append(a.closers, db.Close)
	logger.Info("connected to database")

	return postgres.NewSeenStore(db), nil
}

// Close releases connections in reverse order of creation.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i]()
	}
}
