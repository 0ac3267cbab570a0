// Package sink publishes inspection messages to a Kafka topic.
package sink

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/pkg/sasl/plain"
	"github.com/twmb/franz-go/pkg/sasl/scram"

	"github.com/NeurodataWithoutBorders/nwbinspector-sub000/internal/message"
	"github.com/NeurodataWithoutBorders/nwbinspector-sub000/internal/reporter"
	"github.com/NeurodataWithoutBorders/nwbinspector-sub000/internal/retry"
)

// ErrNoTopic is returned when a publisher is configured without a topic.
var ErrNoTopic = errors.New("kafka topic is required")

// Publisher writes one record per message to a Kafka topic.
type Publisher struct {
	client *kgo.Client
	admin  *kadm.Client
	config Config
	policy retry.Policy
}

// NewPublisher connects to the cluster and makes sure the topic exists.
func NewPublisher(ctx context.Context, cfg Config) (*Publisher, error) {
	if strings.TrimSpace(cfg.Topic) == "" {
		return nil, ErrNoTopic
	}

	opts, err := clientOptions(cfg)
	if err != nil {
		return nil, err
	}

	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka client: %w", err)
	}

	p := &Publisher{
		client: client,
		admin:  kadm.NewClient(client),
		config: cfg,
		policy: retry.DefaultPolicy,
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.timeout())
	defer cancel()

	if err := retry.Do(ctx, "ping broker", p.policy, isRetryable, func() error {
		return client.Ping(ctx)
	}); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Kafka cluster: %w", err)
	}

	if err := p.ensureTopic(ctx); err != nil {
		client.Close()
		return nil, err
	}

	return p, nil
}

func clientOptions(cfg Config) ([]kgo.Opt, error) {
	seeds := cfg.Seeds()
	if len(seeds) == 0 {
		return nil, fmt.Errorf("no Kafka bootstrap servers given")
	}

	opts := []kgo.Opt{
		kgo.SeedBrokers(seeds...),
		kgo.RequestTimeoutOverhead(cfg.timeout()),
		kgo.DefaultProduceTopic(cfg.Topic),
	}

	if cfg.AuthMechanism != "" {
		saslOpt, err := buildSASL(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to configure SASL: %w", err)
		}
		opts = append(opts, saslOpt)
	}

	if cfg.TLSEnabled || cfg.TLSCertFile != "" || cfg.TLSCAFile != "" {
		tlsConfig, err := buildTLS(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to configure TLS: %w", err)
		}
		opts = append(opts, kgo.DialTLSConfig(tlsConfig))
	}

	return opts, nil
}

// ensureTopic creates the topic; an existing topic is fine.
func (p *Publisher) ensureTopic(ctx context.Context) error {
	partitions := p.config.Partitions
	if partitions == 0 {
		partitions = -1
	}
	replication := p.config.ReplicationFactor
	if replication == 0 {
		replication = -1
	}

	var resps kadm.CreateTopicResponses
	if err := retry.Do(ctx, "create topic", p.policy, isRetryable, func() error {
		var createErr error
		resps, createErr = p.admin.CreateTopics(ctx, partitions, replication, nil, p.config.Topic)
		return createErr
	}); err != nil {
		return fmt.Errorf("failed to create topic %q: %w", p.config.Topic, err)
	}

	for _, resp := range resps {
		if resp.Err == nil {
			slog.Info("created topic", "topic", resp.Topic)
			continue
		}
		if errors.Is(resp.Err, kerr.TopicAlreadyExists) {
			continue
		}
		return fmt.Errorf("failed to create topic %q: %w", resp.Topic, resp.Err)
	}
	return nil
}

// Publish produces every message synchronously.
func (p *Publisher) Publish(ctx context.Context, header reporter.Header, messages []message.Message) error {
	if len(messages) == 0 {
		return nil
	}
	start := time.Now()

	records, err := buildRecords(p.config.Topic, header, messages)
	if err != nil {
		return err
	}

	if err := retry.Do(ctx, "produce messages", p.policy, isRetryable, func() error {
		return p.client.ProduceSync(ctx, records...).FirstErr()
	}); err != nil {
		return fmt.Errorf("failed to publish to %q: %w", p.config.Topic, err)
	}

	slog.Info("published messages", "topic", p.config.Topic, "records", len(records), "duration", time.Since(start))
	return nil
}

// Close closes the Kafka client connection
func (p *Publisher) Close() {
	if p.client != nil {
		p.client.Close()
	}
}

// buildRecords encodes each message as JSON keyed by its file path.
func buildRecords(topic string, header reporter.Header, messages []message.Message) ([]*kgo.Record, error) {
	records := make([]*kgo.Record, 0, len(messages))
	for _, msg := range messages {
		value, err := json.Marshal(msg)
		if err != nil {
			return nil, fmt.Errorf("encode message from %s: %w", msg.CheckFunctionName, err)
		}
		records = append(records, &kgo.Record{
			Topic: topic,
			Key:   []byte(msg.FilePath),
			Value: value,
			Headers: []kgo.RecordHeader{
				{Key: "nwbinspector_version", Value: []byte(header.NWBInspectorVersion)},
				{Key: "timestamp", Value: []byte(header.Timestamp)},
				{Key: "importance", Value: []byte(msg.Importance.String())},
			},
		})
	}
	return records, nil
}

// buildSASL creates SASL authentication options based on the mechanism
func buildSASL(cfg Config) (kgo.Opt, error) {
	switch strings.ToUpper(cfg.AuthMechanism) {
	case "PLAIN":
		return kgo.SASL(plain.Auth{
			User: cfg.Username,
			Pass: cfg.Password,
		}.AsMechanism()), nil

	case "SCRAM-SHA-256":
		mechanism := scram.Auth{
			User: cfg.Username,
			Pass: cfg.Password,
		}.AsSha256Mechanism()
		return kgo.SASL(mechanism), nil

	case "SCRAM-SHA-512":
		mechanism := scram.Auth{
			User: cfg.Username,
			Pass: cfg.Password,
		}.AsSha512Mechanism()
		return kgo.SASL(mechanism), nil

	default:
		return nil, fmt.Errorf("unsupported SASL mechanism: %s", cfg.AuthMechanism)
	}
}

// buildTLS creates TLS configuration from the provided cert files
func buildTLS(cfg Config) (*tls.Config, error) {
	tlsConfig := &tls.Config{
		MinVersion: tls.VersionTLS12,
	}

	if cfg.TLSCertFile != "" && cfg.TLSKeyFile != "" {
		cert, err := tls.LoadX509KeyPair(cfg.TLSCertFile, cfg.TLSKeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load client certificate: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}

	if cfg.TLSCAFile != "" {
		caCert, err := os.ReadFile(cfg.TLSCAFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA certificate: %w", err)
		}

		caCertPool := x509.NewCertPool()
		if !caCertPool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("failed to parse CA certificate")
		}
		tlsConfig.RootCAs = caCertPool
	}

	return tlsConfig, nil
}
