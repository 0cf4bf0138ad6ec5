package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// SearchCompletionHandler reacts to the backend finishing a lead search.
type SearchCompletionHandler interface {
	SearchCompleted(ctx context.Context) error
}

// SearchCompletedEvent is published by the backend once its scrape job ends.
type SearchCompletedEvent struct {
	Niche       string    `json:"niche"`
	Location    string    `json:"location"`
	LeadsFound  int       `json:"leads_found"`
	CompletedAt time.Time `json:"completed_at"`
}

var errMalformed = errors.New("malformed message")

const handleTimeout = 30 * time.Second

type Worker struct {
	Channel *amqp.Channel
	Handler SearchCompletionHandler
	log     *logrus.Entry
}

func NewWorker(ch *amqp.Channel, handler SearchCompletionHandler) *Worker {
	return &Worker{
		Channel: ch,
		Handler: handler,
		log:     logrus.WithField("component", "search_events"),
	}
}

// Start consumes queueName until ctx ends or the channel closes.
func (w *Worker) Start(ctx context.Context, queueName string) error {
	msgs, err := w.Channel.ConsumeWithContext(ctx,
		queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("consume %s: %w", queueName, err)
	}

	w.log.Infof("waiting for messages on %s", queueName)
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return errors.New("delivery channel closed")
			}
			w.handleDelivery(ctx, d)
		}
	}
}

func (w *Worker) handleDelivery(ctx context.Context, d amqp.Delivery) {
	hctx, cancel := context.WithTimeout(ctx, handleTimeout)
	defer cancel()

	if err := w.processMessage(hctx, d.Body); err != nil {
		w.log.Warnf("rejecting message %s: %v", d.MessageId, err)
		// no requeue; the DLQ keeps it for inspection
		d.Nack(false, false)
		return
	}
	d.Ack(false)
}

func (w *Worker) processMessage(ctx context.Context, body []byte) error {
	var ev SearchCompletedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("%w: %v", errMalformed, err)
	}

	w.log.WithFields(logrus.Fields{
		"niche":       ev.Niche,
		"location":    ev.Location,
		"leads_found": ev.LeadsFound,
	}).Info("search completed")

	if err := w.Handler.SearchCompleted(ctx); err != nil {
		return fmt.Errorf("refresh after search: %w", err)
	}
	return nil
}
