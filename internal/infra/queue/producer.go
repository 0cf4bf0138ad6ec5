package queue

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/xavierca1/lead-orchestrator/internal/entity"
)

// Publisher is the part of *amqp.Channel the producer uses.
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type RabbitMQProducer struct {
	Ch  Publisher
	log *logrus.Entry
}

func NewProducer(ch Publisher) *RabbitMQProducer {
	return &RabbitMQProducer{
		Ch:  ch,
		log: logrus.WithField("component", "producer"),
	}
}

// ActionRoutingKey is action.<kind>.<status>.
func ActionRoutingKey(rec entity.ActionRecord) string {
	return ActionKeyPrefix + string(rec.Kind) + "." + string(rec.Status)
}

func (p *RabbitMQProducer) PublishAction(ctx context.Context, rec entity.ActionRecord) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode action %s: %w", rec.ID, err)
	}

	err = p.Ch.PublishWithContext(ctx,
		ExchangeName,
		ActionRoutingKey(rec),
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			MessageId:    rec.ID,
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("publish action %s: %w", rec.ID, err)
	}
	return nil
}

// ActionSettled publishes every settled handle; a broker failure is logged
// and otherwise ignored.
func (p *RabbitMQProducer) ActionSettled(ctx context.Context, rec entity.ActionRecord) {
	if err := p.PublishAction(ctx, rec); err != nil {
		p.log.WithField("handle", rec.ID).Warnf("settle event not published: %v", err)
	}
}
