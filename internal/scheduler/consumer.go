package scheduler

import (
	"fmt"
	"log"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ==============================================
// AMQP CONSUMER
// ==============================================

// Consumer receives follow-up scheduling messages from RabbitMQ
type Consumer struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewConsumer(amqpURL string) (*Consumer, error) {
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	return &Consumer{conn: conn, ch: ch}, nil
}

// Consume binds a queue to the follow-up routing key and feeds each
// message to the handler. A handler returning false re-queues the
// message.
func (c *Consumer) Consume(queueName string, handler func([]byte) bool) error {
	if handler == nil {
		return fmt.Errorf("no handler provided")
	}

	if err := c.ch.ExchangeDeclare(Exchange, "topic", true, false, false, false, nil); err != nil {
		return err
	}

	q, err := c.ch.QueueDeclare(queueName, true, false, false, false, nil)
	if err != nil {
		return err
	}

	if err := c.ch.QueueBind(q.Name, FollowupRoutingKey, Exchange, false, nil); err != nil {
		return err
	}

	msgs, err := c.ch.Consume(q.Name, "", false, false, false, false, nil)
	if err != nil {
		return err
	}

	go func() {
		for d := range msgs {
			if handler(d.Body) {
				d.Ack(false)
			} else {
				log.Printf("Follow-up handler failed; re-queuing")
				d.Nack(false, true)
			}
		}
	}()

	return nil
}

func (c *Consumer) Close() {
	if c.ch != nil {
		c.ch.Close()
	}
	if c.conn != nil {
		c.conn.Close()
	}
}
