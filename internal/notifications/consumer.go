package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/IBM/sarama"
)

// AuditConsumer drains the reservation-events topic and writes each
// transition to the audit log. It is intentionally dumb: the events are
// the record; the consumer only makes them visible.
type AuditConsumer interface {
	Start(ctx context.Context) error
	Stop() error
}

type ConsumerConfig struct {
	Brokers          []string
	GroupID          string
	Topics           []string
	SessionTimeoutMs int
	HeartbeatMs      int
	OffsetOldest     bool
}

func DefaultConsumerConfig() *ConsumerConfig {
	return &ConsumerConfig{
		Brokers:          []string{"localhost:9092"},
		GroupID:          "clinicbook-audit-workers",
		Topics:           []string{"reservation-events"},
		SessionTimeoutMs: 30000,
		HeartbeatMs:      3000,
		OffsetOldest:     false,
	}
}

type kafkaAuditConsumer struct {
	group  sarama.ConsumerGroup
	config *ConsumerConfig

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// NewKafkaAuditConsumer creates a consumer-group audit worker
func NewKafkaAuditConsumer(config *ConsumerConfig) (AuditConsumer, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Consumer.Group.Session.Timeout = time.Duration(config.SessionTimeoutMs) * time.Millisecond
	saramaConfig.Consumer.Group.Heartbeat.Interval = time.Duration(config.HeartbeatMs) * time.Millisecond
	saramaConfig.Consumer.Return.Errors = true
	if config.OffsetOldest {
		saramaConfig.Consumer.Offsets.Initial = sarama.OffsetOldest
	}

	group, err := sarama.NewConsumerGroup(config.Brokers, config.GroupID, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka consumer group: %w", err)
	}

	return &kafkaAuditConsumer{
		group:  group,
		config: config,
	}, nil
}

func (c *kafkaAuditConsumer) Start(ctx context.Context) error {
	ctx, c.cancel = context.WithCancel(ctx)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			// Consume blocks until a rebalance or error; loop to rejoin.
			if err := c.group.Consume(ctx, c.config.Topics, &auditHandler{}); err != nil {
				log.Printf("Audit consumer error: %v", err)
			}
			if ctx.Err() != nil {
				return
			}
		}
	}()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			select {
			case err, ok := <-c.group.Errors():
				if !ok {
					return
				}
				log.Printf("Audit consumer group error: %v", err)
			case <-ctx.Done():
				return
			}
		}
	}()

	log.Printf("📥 Audit consumer started - Topics: %v, Group: %s", c.config.Topics, c.config.GroupID)
	return nil
}

func (c *kafkaAuditConsumer) Stop() error {
	if c.cancel != nil {
		c.cancel()
	}
	err := c.group.Close()
	c.wg.Wait()
	return err
}

// auditHandler implements sarama.ConsumerGroupHandler
type auditHandler struct{}

func (h *auditHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *auditHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *auditHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for message := range claim.Messages() {
		var event ReservationEvent
		if err := json.Unmarshal(message.Value, &event); err != nil {
			log.Printf("Skipping malformed audit event at offset %d: %v", message.Offset, err)
			session.MarkMessage(message, "")
			continue
		}

		log.Printf("AUDIT %s reservation=%s resource=%s slot=%s/%s actor=%s payment_ref=%s",
			event.Type, event.ReservationID, event.ResourceID,
			event.SlotDate, event.TimeLabel, event.Actor, event.PaymentRef)

		session.MarkMessage(message, "")
	}
	return nil
}
