package handler

import (
	"context"
	"encoding/json"

	"github.com/IBM/sarama"
	"github.com/campuskit/equipment-service/internal/model"
	"go.uber.org/zap"
)

type recordActivity func(ctx context.Context, entry model.ActivityEntry) error

// Consumer appends checkout-status notifications to the activity log.
type Consumer struct {
	recordHandler recordActivity
	log           *zap.Logger
}

func NewConsumer(record recordActivity, log *zap.Logger) *Consumer {
	return &Consumer{
		recordHandler: record,
		log:           log.Named("consumer"),
	}
}

// Setup runs at the start of every session, including after a rebalance.
func (consumer *Consumer) Setup(sarama.ConsumerGroupSession) error {
	return nil
}

// Cleanup is run at the end of a session, once all ConsumeClaim goroutines have exited.
func (consumer *Consumer) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

func (consumer *Consumer) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message, ok := <-claim.Messages():
			if !ok {
				consumer.log.Warn("message channel was closed")
				return nil
			}
			var n model.Notification
			if err := json.Unmarshal(message.Value, &n); err != nil {
				consumer.log.Error("", zap.Error(err))
				session.MarkMessage(message, "")
				continue
			}

			entry := model.ActivityEntry{
				Kind:       n.Kind,
				SubjectUid: n.SubjectUid,
				Detail:     n.Detail,
				OccurredAt: n.OccurredAt,
			}
			if err := consumer.recordHandler(session.Context(), entry); err != nil {
				consumer.log.Error("consumer.recordHandler", zap.Error(err))
				continue
			}

			consumer.log.Debug("Message claimed:", zap.String("value", string(message.Value)), zap.Time("timestamp", message.Timestamp), zap.String("topic", message.Topic))
			session.MarkMessage(message, "")
		case <-session.Context().Done():
			return nil
		}
	}
}
