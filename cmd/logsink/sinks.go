package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/buession/buession-logging-sub001/internal/ingest"
	"github.com/buession/buession-logging-sub001/internal/platform/config"
	platformkafka "github.com/buession/buession-logging-sub001/internal/platform/kafka"
	"github.com/buession/buession-logging-sub001/internal/platform/postgres"
	platformredis "github.com/buession/buession-logging-sub001/internal/platform/redis"
	"github.com/buession/buession-logging-sub001/pkg/logging"
	"github.com/buession/buession-logging-sub001/pkg/logging/convert"
	"github.com/buession/buession-logging-sub001/pkg/logging/format"
	"github.com/buession/buession-logging-sub001/pkg/logging/handler/console"
	"github.com/buession/buession-logging-sub001/pkg/logging/handler/document"
	"github.com/buession/buession-logging-sub001/pkg/logging/handler/file"
	"github.com/buession/buession-logging-sub001/pkg/logging/handler/kafka"
	"github.com/buession/buession-logging-sub001/pkg/logging/handler/redisstream"
	"github.com/buession/buession-logging-sub001/pkg/logging/handler/relational"
	"github.com/buession/buession-logging-sub001/pkg/logging/handler/webhook"
)

// sinkSet holds the enabled handlers together with the shared connections
// they depend on. Connections are opened eagerly so misconfiguration fails
// at startup; handlers themselves are built on first delivery.
type sinkSet struct {
	handlers map[string]logging.Handler
	checks   map[string]ingest.HealthCheck
	closers  []func()
}

// Close releases shared connections in reverse order of opening.
func (s *sinkSet) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func (s *sinkSet) onClose(f func()) { s.closers = append(s.closers, f) }

func openSinks(ctx context.Context, cfg config.Config, log *slog.Logger) (*sinkSet, error) {
	s := &sinkSet{
		handlers: map[string]logging.Handler{},
		checks:   map[string]ingest.HealthCheck{},
	}
	if err := s.open(ctx, cfg, log); err != nil {
		s.Close()
		return nil, err
	}
	if len(s.handlers) == 0 {
		log.Warn("no sinks enabled; events will be accepted and dropped")
	}
	return s, nil
}

func (s *sinkSet) open(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	sinks := cfg.Sinks
	if sinks.Console.Enabled {
		s.handlers["console"] = console.NewFactory(console.Config{Template: sinks.Console.Template},
			console.WithLogger(log))
	}
	if sinks.File.Enabled {
		s.handlers["file"] = file.NewFactory(file.Config{Path: sinks.File.Path, Template: sinks.File.Template},
			file.WithLogger(log))
	}
	if sinks.Relational.Enabled {
		if err := s.addRelational(ctx, cfg, log); err != nil {
			return err
		}
	}
	if sinks.Document.Enabled {
		if err := s.addDocument(ctx, cfg, log); err != nil {
			return err
		}
	}
	if sinks.Kafka.Enabled {
		if err := s.addKafka(ctx, cfg, log); err != nil {
			return err
		}
	}
	if sinks.RedisStream.Enabled {
		if err := s.addRedisStream(ctx, cfg, log); err != nil {
			return err
		}
	}
	if sinks.Webhook.Enabled {
		if err := s.addWebhook(cfg.Sinks.Webhook, log); err != nil {
			return err
		}
	}
	return nil
}

func (s *sinkSet) addRelational(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	rc := cfg.Sinks.Relational

	dsn, dialect := rc.DSN, relational.DialectSQLite
	if rc.Driver == "postgres" {
		dsn, dialect = cfg.Postgres.DSN, relational.DialectPostgres
	}

	db, err := postgres.OpenSQL(ctx, rc.Driver, dsn, int(cfg.Postgres.MaxConns))
	if err != nil {
		return fmt.Errorf("relational sink: %w", err)
	}
	s.onClose(func() { _ = db.Close() })
	s.checks["relational"] = db.PingContext

	query := rc.SQL
	if query == "" {
		if query, err = relational.InsertSQL(dialect, rc.Table); err != nil {
			return err
		}
	}

	var converter convert.Converter
	if rc.TimeFormat != "" {
		converter = convert.NewParamsConverter(
			convert.WithTimeFormatter(format.NewDateTimeFormatter(rc.TimeFormat)))
	}

	s.handlers["relational"] = relational.NewFactory(relational.Config{
		DB:        db,
		SQL:       query,
		Converter: converter,
	}, relational.WithLogger(log))
	return nil
}

func (s *sinkSet) addDocument(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	pool, err := postgres.OpenPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("document sink: %w", err)
	}
	s.onClose(pool.Close)
	s.checks["document"] = pool.Ping

	dc := cfg.Sinks.Document
	s.handlers["document"] = document.NewFactory(document.Config{
		Index:      document.NewPostgresIndex(pool),
		Name:       dc.Name,
		AutoCreate: dc.AutoCreate,
	}, document.WithLogger(log))
	return nil
}

func (s *sinkSet) addKafka(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	kc := cfg.Sinks.Kafka
	codec, ok := format.CodecByName(kc.Codec)
	if !ok {
		return fmt.Errorf("kafka sink: unknown codec %q", kc.Codec)
	}

	clients, err := platformkafka.New(ctx, cfg.Kafka)
	if err != nil {
		return fmt.Errorf("kafka sink: %w", err)
	}
	s.onClose(clients.Close)
	s.checks["kafka"] = clients.Client.Ping

	hc := kafka.Config{
		Producer:          clients.Client,
		Topic:             kc.Topic,
		Codec:             codec,
		Partitions:        kc.Partitions,
		ReplicationFactor: kc.ReplicationFactor,
	}
	if kc.AutoCreate {
		hc.Admin = clients.Admin
	}
	s.handlers["kafka"] = kafka.NewFactory(hc, kafka.WithLogger(log))
	return nil
}

func (s *sinkSet) addRedisStream(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	rc := cfg.Sinks.RedisStream
	codec, ok := format.CodecByName(rc.Codec)
	if !ok {
		return fmt.Errorf("redis stream sink: unknown codec %q", rc.Codec)
	}

	client, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("redis stream sink: %w", err)
	}
	if client == nil {
		return fmt.Errorf("redis stream sink: redis.url is required")
	}
	s.onClose(func() { _ = client.Close() })
	s.checks["redis-stream"] = client.Health

	s.handlers["redis-stream"] = redisstream.NewFactory(redisstream.Config{
		Client: client,
		Stream: rc.Stream,
		MaxLen: rc.MaxLen,
		Codec:  codec,
	}, redisstream.WithLogger(log))
	return nil
}

func (s *sinkSet) addWebhook(wc config.WebhookSink, log *slog.Logger) error {
	codec, ok := format.CodecByName(wc.Codec)
	if !ok {
		return fmt.Errorf("webhook sink: unknown codec %q", wc.Codec)
	}

	header := make(http.Header, len(wc.Headers))
	for k, v := range wc.Headers {
		header.Set(k, v)
	}

	hc := webhook.Config{
		URL:    wc.URL,
		Method: wc.Method,
		Header: header,
		Body:   webhook.PayloadBody{Codec: codec},
	}

	client := &http.Client{Timeout: wc.Timeout}
	if wc.Async {
		transport := webhook.NewAsyncTransport(client, wc.MaxInFlight)
		s.onClose(transport.Wait)
		hc.Async = transport
	} else {
		hc.Client = client
	}

	if wc.SigningKey != "" {
		signer, err := webhook.NewSigner([]byte(wc.SigningKey), wc.Issuer, wc.Audience)
		if err != nil {
			return fmt.Errorf("webhook sink: %w", err)
		}
		hc.Signer = signer
	}

	s.handlers["webhook"] = webhook.NewFactory(hc, webhook.WithLogger(log))
	return nil
}
