// Package outbox drives reliable delivery of outbox rows to an external
// transport, grounded on the teacher's WatermillEventDispatcher wiring but
// separated from it: the dispatcher is a best-effort in-process side
// channel, while the outbox processor here is the at-least-once delivery
// guarantee spec.md §4.6 requires.
package outbox

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/slapcommerce/core/pkg/domain"
)

// Publisher delivers one outbox entry to whatever external system
// subscribes to it. Implementations must be idempotent-tolerant: the
// processor retries on any error, so a publisher that cannot safely
// re-deliver must dedupe on OutboxEntry.ID itself.
type Publisher interface {
	Publish(ctx context.Context, entry domain.OutboxEntry) error
}

// HTTPWebhookPublisher POSTs the entry's payload as JSON to a configured
// URL, grounded on the retrieved pack's webhook-delivery examples. A
// non-2xx response is treated as a delivery failure and retried by the
// processor's backoff schedule.
type HTTPWebhookPublisher struct {
	url    string
	client *http.Client
}

// NewHTTPWebhookPublisher builds a publisher that delivers to url using
// client, or http.DefaultClient if client is nil.
func NewHTTPWebhookPublisher(url string, client *http.Client) *HTTPWebhookPublisher {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPWebhookPublisher{url: url, client: client}
}

// Publish delivers entry.Payload as an HTTP POST body.
func (p *HTTPWebhookPublisher) Publish(ctx context.Context, entry domain.OutboxEntry) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(entry.Payload))
	if err != nil {
		return domain.NewExternalDeliveryError(entry.ID, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Event-Name", entry.EventName)
	req.Header.Set("X-Event-ID", entry.ID)

	resp, err := p.client.Do(req)
	if err != nil {
		return domain.NewExternalDeliveryError(entry.ID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return domain.NewExternalDeliveryError(entry.ID, fmt.Errorf("webhook responded with status %d", resp.StatusCode))
	}
	return nil
}

// WatermillPublisher publishes entries onto a Watermill message.Publisher,
// grounded on the same ThreeDotsLabs/watermill stack as
// WatermillEventDispatcher. Used for in-process/test delivery where a real
// HTTP endpoint isn't available, and as a template for swapping in a
// broker-backed message.Publisher (Kafka, NATS, SQS) in production without
// touching the processor.
type WatermillPublisher struct {
	publisher message.Publisher
	topic     string
}

// NewWatermillPublisher wires publisher to deliver every entry to topic.
func NewWatermillPublisher(publisher message.Publisher, topic string) *WatermillPublisher {
	return &WatermillPublisher{publisher: publisher, topic: topic}
}

// Publish wraps entry.Payload in a Watermill message tagged with the
// event's identity and publishes it to the configured topic.
func (p *WatermillPublisher) Publish(ctx context.Context, entry domain.OutboxEntry) error {
	msg := message.NewMessage(uuid.NewString(), entry.Payload)
	msg.Metadata.Set("event_id", entry.ID)
	msg.Metadata.Set("event_name", entry.EventName)
	msg.Metadata.Set("aggregate_id", entry.AggregateID)
	msg.SetContext(ctx)

	if err := p.publisher.Publish(p.topic, msg); err != nil {
		return domain.NewExternalDeliveryError(entry.ID, err)
	}
	return nil
}
