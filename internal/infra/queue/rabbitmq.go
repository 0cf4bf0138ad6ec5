package queue

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	ExchangeName = "ex.leads"
	DLXName      = "ex.leads.dlx"

	SearchCompletedQueue = "q.leads.search-completed"
	SearchCompletedDLQ   = "q.leads.search-completed.dlq"
	SearchCompletedKey   = "search.completed"

	// Settled actions are published as action.<kind>.<status>.
	ActionKeyPrefix = "action."
)

type RabbitMQ struct {
	Conn *amqp.Connection
	Ch   *amqp.Channel
}

func NewRabbitMQ(url string) (*RabbitMQ, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := setupTopology(ch); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare topology: %w", err)
	}

	return &RabbitMQ{Conn: conn, Ch: ch}, nil
}

func setupTopology(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(DLXName, "direct", true, false, false, false, nil); err != nil {
		return err
	}
	if _, err := ch.QueueDeclare(SearchCompletedDLQ, true, false, false, false, nil); err != nil {
		return err
	}
	if err := ch.QueueBind(SearchCompletedDLQ, SearchCompletedKey, DLXName, false, nil); err != nil {
		return err
	}

	if err := ch.ExchangeDeclare(ExchangeName, "topic", true, false, false, false, nil); err != nil {
		return err
	}

	// rejected messages go to the DLX under the same key
	args := amqp.Table{
		"x-dead-letter-exchange":    DLXName,
		"x-dead-letter-routing-key": SearchCompletedKey,
	}
	if _, err := ch.QueueDeclare(SearchCompletedQueue, true, false, false, false, args); err != nil {
		return err
	}
	return ch.QueueBind(SearchCompletedQueue, SearchCompletedKey, ExchangeName, false, nil)
}

// Healthy reports whether both connection and channel are open.
func (r *RabbitMQ) Healthy() bool {
	return r != nil && !r.Conn.IsClosed() && !r.Ch.IsClosed()
}

func (r *RabbitMQ) Close() error {
	if err := r.Ch.Close(); err != nil {
		r.Conn.Close()
		return err
	}
	return r.Conn.Close()
}
