// Package kafka builds the franz-go clients shared by the Kafka sink.
package kafka

import (
	"context"
	"errors"
	"fmt"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/buession/buession-logging-sub001/internal/platform/config"
)

// Clients pairs a producer client with an admin client over the same
// connections.
type Clients struct {
	Client *kgo.Client
	Admin  *kadm.Client
}

// New connects to the configured brokers and verifies that at least one is
// reachable.
func New(ctx context.Context, cfg config.KafkaConfig, opts ...kgo.Opt) (*Clients, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka: no brokers configured")
	}

	base := []kgo.Opt{
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	}
	if cfg.ClientID != "" {
		base = append(base, kgo.ClientID(cfg.ClientID))
	}

	client, err := kgo.NewClient(append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	if err := client.Ping(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("kafka ping failed: %w", err)
	}
	return &Clients{Client: client, Admin: kadm.NewClient(client)}, nil
}

// Close closes the shared connections.
func (c *Clients) Close() {
	c.Client.Close()
}
