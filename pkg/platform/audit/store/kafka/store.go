// Package kafka publishes audit events to a Kafka topic, keyed by session so a
// session's events stay ordered within a partition.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "onboarding/pkg/platform/audit"
)

type Store struct {
	client *kgo.Client
	topic  string
}

type message struct {
	Category   string `json:"category"`
	Timestamp  string `json:"timestamp"`
	UserID     string `json:"user_id,omitempty"`
	SessionID  string `json:"session_id"`
	Action     string `json:"action"`
	Stage      string `json:"stage,omitempty"`
	Decision   string `json:"decision,omitempty"`
	Reason     string `json:"reason,omitempty"`
	CustomerID string `json:"customer_id,omitempty"`
	RequestID  string `json:"request_id,omitempty"`
}

// New connects to the given brokers. The client is owned by the store.
func New(brokers []string, topic string) (*Store, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka: no brokers configured")
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerLinger(5*time.Millisecond),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka: create client: %w", err)
	}
	return &Store{client: client, topic: topic}, nil
}

// EnsureTopic creates the audit topic if it does not exist.
func (s *Store) EnsureTopic(ctx context.Context, partitions int32, replicationFactor int16) error {
	adm := kadm.NewClient(s.client)
	resp, err := adm.CreateTopics(ctx, partitions, replicationFactor, nil, s.topic)
	if err != nil {
		return fmt.Errorf("kafka: create topic: %w", err)
	}
	for _, t := range resp {
		if t.Err != nil && !errors.Is(t.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("kafka: create topic %s: %w", t.Topic, t.Err)
		}
	}
	return nil
}

func (s *Store) Append(ctx context.Context, event audit.Event) error {
	category := event.Category
	if category == "" {
		category = audit.AuditEvent(event.Action).Category()
	}
	msg := message{
		Category:   string(category),
		Timestamp:  event.Timestamp.UTC().Format(time.RFC3339Nano),
		SessionID:  event.Subject,
		Action:     event.Action,
		Stage:      event.Stage,
		Decision:   event.Decision,
		Reason:     event.Reason,
		CustomerID: event.CustomerID,
		RequestID:  event.RequestID,
	}
	if !event.UserID.IsNil() {
		msg.UserID = event.UserID.String()
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("kafka: marshal audit event: %w", err)
	}

	record := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(event.Subject),
		Value: payload,
		Headers: []kgo.RecordHeader{
			{Key: "category", Value: []byte(category)},
		},
	}
	if err := s.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("kafka: produce audit event: %w", err)
	}
	return nil
}

func (s *Store) Close() {
	s.client.Close()
}
