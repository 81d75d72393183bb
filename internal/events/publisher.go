// Package events publishes fire-and-forget notifications about terminal
// queue transitions to RabbitMQ, adapted from the teacher's
// microservices/rabbitmq connection helper. This is a non-durable side
// channel (SPEC_FULL.md §4.15): publish failures are logged, never
// retried, and never propagated back into the pipeline's own retry/fail
// policy.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/the-monkeys/blogqa/config"
	"github.com/the-monkeys/blogqa/logger"
)

var log = logger.ZapForService("events")

// Publisher emits BlogProcessed notifications. Implementations must not
// block the caller for longer than a single publish attempt and must
// never return an error that the Worker Runtime is expected to act on —
// see RabbitMQPublisher.BlogProcessed's doc comment for why.
type Publisher interface {
	BlogProcessed(ctx context.Context, event BlogProcessed)
}

// NoopPublisher discards every event. It is the default when
// config.RabbitMQ.Host is empty, in which case no broker is dialed.
type NoopPublisher struct{}

func (NoopPublisher) BlogProcessed(context.Context, BlogProcessed) {}

// RabbitMQPublisher publishes BlogProcessed events to the configured
// exchange/routing key, grounded on the teacher's
// microservices/rabbitmq/rabbitmq.go Conn/PublishMessage shape.
type RabbitMQPublisher struct {
	conn       Conn
	exchange   string
	routingKey string
}

// NewRabbitMQPublisher wires a connected Conn to the configured exchange
// and routing key (spec.md's single blogqa.processed event, unlike the
// teacher's multi-queue/multi-routing-key topology — this pipeline only
// ever emits one event kind).
func NewRabbitMQPublisher(conn Conn, cfg config.RabbitMQ) *RabbitMQPublisher {
	return &RabbitMQPublisher{conn: conn, exchange: cfg.Exchange, routingKey: cfg.RoutingKey}
}

// BlogProcessed marshals and publishes event in a single attempt. Marshal
// and publish errors are logged and swallowed, never returned, since a
// dropped notification must never fail or retry the durable pipeline.
// The Worker Runtime calls it synchronously, after the terminal
// transition it reports on.
func (p *RabbitMQPublisher) BlogProcessed(ctx context.Context, event BlogProcessed) {
	body, err := json.Marshal(event)
	if err != nil {
		log.Errorf("events: marshaling blog_processed for %s: %v", event.URL, err)
		return
	}

	if err := p.conn.PublishMessage(p.exchange, p.routingKey, body); err != nil {
		log.Errorf("events: publishing blog_processed for %s: %v", event.URL, err)
		return
	}

	log.Debugf("events: published blog_processed for %s (status=%s)", event.URL, event.Status)
}

// connectionError wraps a broker dial/channel/declare failure so callers
// can tell "could not connect" apart from "connected fine, publish
// failed" without string-matching.
type connectionError struct {
	cause error
}

func (e *connectionError) Error() string { return fmt.Sprintf("events: %v", e.cause) }
func (e *connectionError) Unwrap() error { return e.cause }
