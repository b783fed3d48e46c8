package di

import (
	"context"
	"fmt"

	"cloud.google.com/go/pubsub"
	"github.com/redis/go-redis/v9"
	"google.golang.org/api/option"

	"github.com/flowershop/admin-api/internal/platform/config"
	pfirestore "github.com/flowershop/admin-api/internal/platform/firestore"
	"github.com/flowershop/admin-api/internal/platform/idempotency"
	"github.com/flowershop/admin-api/internal/platform/jobs"
	"github.com/flowershop/admin-api/internal/platform/mail"
)

// GCPClientOptions returns the options shared by every Google Cloud client.
func GCPClientOptions(cfg config.Config) []option.ClientOption {
	if cfg.GCP.CredentialsFile == "" {
		return nil
	}
	return []option.ClientOption{option.WithCredentialsFile(cfg.GCP.CredentialsFile)}
}

// NewMailSender returns the transport selected by cfg.Mail.Driver and a func that releases it.
func NewMailSender(ctx context.Context, cfg config.Config) (mail.Sender, func(), error) {
	switch cfg.Mail.Driver {
	case config.MailDriverPubSub:
		client, err := pubsub.NewClient(ctx, cfg.Mail.PubSub.ProjectID, GCPClientOptions(cfg)...)
		if err != nil {
			return nil, nil, fmt.Errorf("pubsub client: %w", err)
		}
		topic := client.Topic(cfg.Mail.PubSub.Topic)
		publisher, err := jobs.NewPubSubMailPublisher(topic, cfg.Mail.From)
		if err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		return publisher, func() {
			topic.Stop()
			_ = client.Close()
		}, nil
	default:
		sender, err := mail.NewSMTPSender(cfg.Mail)
		if err != nil {
			return nil, nil, err
		}
		return sender, func() {}, nil
	}
}

// NewIdempotencyStore returns the store selected by cfg.Idempotency.Backend and a func that
// releases its client.
func NewIdempotencyStore(ctx context.Context, cfg config.Config) (idempotency.Store, func(), error) {
	switch cfg.Idempotency.Backend {
	case config.IdempotencyBackendFirestore:
		provider := pfirestore.NewProvider(cfg.Firestore, pfirestore.WithClientOptions(GCPClientOptions(cfg)...))
		client, err := provider.Client(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("firestore client: %w", err)
		}
		return idempotency.NewFirestoreStore(client), func() { _ = provider.Close() }, nil
	case config.IdempotencyBackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Idempotency.RedisAddr,
			Password: cfg.Idempotency.RedisPassword,
			DB:       cfg.Idempotency.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("redis ping: %w", err)
		}
		return idempotency.NewRedisStore(client), func() { _ = client.Close() }, nil
	default:
		return idempotency.NewMemoryStore(), func() {}, nil
	}
}
