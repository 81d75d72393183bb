package events

import (
	"fmt"
	"time"

	"github.com/streadway/amqp"
	"github.com/the-monkeys/blogqa/config"
)

// Conn represents a RabbitMQ connection with a channel, adapted from the
// teacher's microservices/rabbitmq.Conn for this pipeline's single
// exchange/single routing key topology (spec.md only ever emits one
// event kind, unlike the teacher's multi-queue setup).
type Conn struct {
	Connection *amqp.Connection
	Channel    *amqp.Channel
}

// Dial establishes a connection to RabbitMQ, declares the configured
// exchange, and declares+binds a single queue to it. A zero-value
// cfg.Host is treated as "event publishing disabled" by the caller
// (NoopPublisher), so Dial is only invoked when a host is configured.
func Dial(cfg config.RabbitMQ) (Conn, error) {
	connString := fmt.Sprintf("amqp://%s:%s@%s:%s/%s", cfg.Username, cfg.Password, cfg.Host, cfg.Port, cfg.VirtualHost)

	conn, err := amqp.DialConfig(connString, amqp.Config{
		Heartbeat: 10 * time.Second,
	})
	if err != nil {
		return Conn{}, &connectionError{cause: fmt.Errorf("dialing rabbitmq: %w", err)}
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return Conn{}, &connectionError{cause: fmt.Errorf("opening channel: %w", err)}
	}

	c := Conn{Connection: conn, Channel: ch}

	if err := c.Channel.ExchangeDeclare(cfg.Exchange, "direct", true, false, false, false, nil); err != nil {
		c.Close()
		return Conn{}, &connectionError{cause: fmt.Errorf("declaring exchange %s: %w", cfg.Exchange, err)}
	}

	queueName := cfg.Exchange + "." + cfg.RoutingKey
	if _, err := c.Channel.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		c.Close()
		return Conn{}, &connectionError{cause: fmt.Errorf("declaring queue %s: %w", queueName, err)}
	}

	if err := c.Channel.QueueBind(queueName, cfg.RoutingKey, cfg.Exchange, false, nil); err != nil {
		c.Close()
		return Conn{}, &connectionError{cause: fmt.Errorf("binding queue %s: %w", queueName, err)}
	}

	return c, nil
}

// Reconnect retries Dial until it succeeds, logging each failed attempt.
// Used by the worker's startup path so a broker that is still coming up
// does not abort the whole process — the Event Notifier is optional, but
// once configured the worker waits for it rather than silently degrading
// to NoopPublisher.
func Reconnect(cfg config.RabbitMQ) Conn {
	for {
		conn, err := Dial(cfg)
		if err == nil {
			return conn
		}
		log.Errorf("events: cannot connect to rabbitmq, retrying in 1s: %v", err)
		time.Sleep(time.Second)
	}
}

// PublishMessage sends a message to exchange with the given routing key.
func (c Conn) PublishMessage(exchange, routingKey string, body []byte) error {
	return c.Channel.Publish(exchange, routingKey, false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
}

// Close closes the channel and connection, logging but not returning
// errors — callers invoke this during shutdown where there is no one
// left to hand an error to.
func (c Conn) Close() {
	if c.Channel != nil {
		if err := c.Channel.Close(); err != nil {
			log.Errorf("events: closing channel: %v", err)
		}
	}
	if c.Connection != nil {
		if err := c.Connection.Close(); err != nil {
			log.Errorf("events: closing connection: %v", err)
		}
	}
}
