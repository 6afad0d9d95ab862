package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/slapcommerce/core/pkg/domain"
)

// WatermillEventDispatcher is the best-effort side channel described in
// pkg/domain/event.go's EventDispatcher doc comment: metrics taps, tracing,
// and the outbox processor's internal notification stream subscribe here.
// It is never on the path that determines read-model consistency — that is
// the synchronous projection router (see projectionrouter.go).
type WatermillEventDispatcher struct {
	pubSub     *gochannel.GoChannel
	logger     watermill.LoggerAdapter
	handlers   map[string][]domain.EventHandler
	handlersMu sync.RWMutex
	router     *message.Router
	ctx        context.Context
	cancel     context.CancelFunc
	started    bool
}

// NewWatermillEventDispatcher wires an in-process pub/sub channel and
// router. Start must be called once before any event is dispatched.
func NewWatermillEventDispatcher(logger watermill.LoggerAdapter) (*WatermillEventDispatcher, error) {
	if logger == nil {
		logger = watermill.NopLogger{}
	}

	pubSub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	router, err := message.NewRouter(message.RouterConfig{}, logger)
	if err != nil {
		cancel()
		return nil, domain.NewStorageError("failed to create message router", err)
	}

	return &WatermillEventDispatcher{
		pubSub:   pubSub,
		logger:   logger,
		handlers: make(map[string][]domain.EventHandler),
		router:   router,
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Start runs the underlying router in the background. Idempotent.
func (d *WatermillEventDispatcher) Start() error {
	if d.started {
		return nil
	}
	d.started = true
	go func() {
		if err := d.router.Run(d.ctx); err != nil {
			d.logger.Error("router stopped with error", err, nil)
		}
	}()
	return nil
}

// envelopeWireFormat is the JSON shape published on the pub/sub channel.
type envelopeWireFormat struct {
	EventID       string          `json:"event_id"`
	EventName     string          `json:"event_name"`
	AggregateID   string          `json:"aggregate_id"`
	Version       int64           `json:"version"`
	CorrelationID string          `json:"correlation_id"`
	UserID        string          `json:"user_id"`
	Payload       domain.EventPayload `json:"payload"`
}

// Dispatch fans every envelope out to its registered handlers' topics.
// Errors here never roll back the transaction that produced the events:
// callers treat Dispatch failures as logged, not fatal.
func (d *WatermillEventDispatcher) Dispatch(ctx context.Context, envelopes []domain.Envelope) error {
	for _, envelope := range envelopes {
		if err := d.dispatchSingle(envelope); err != nil {
			return fmt.Errorf("failed to dispatch event %s: %w", envelope.EventID(), err)
		}
	}
	return nil
}

func (d *WatermillEventDispatcher) dispatchSingle(envelope domain.Envelope) error {
	event := envelope.Event()
	eventName := event.EventName()

	d.handlersMu.RLock()
	handlers := d.handlers[eventName]
	d.handlersMu.RUnlock()

	if len(handlers) == 0 {
		return nil
	}

	wire := envelopeWireFormat{
		EventID:       envelope.EventID(),
		EventName:     eventName,
		AggregateID:   event.AggregateID(),
		Version:       event.Version(),
		CorrelationID: event.CorrelationID(),
		UserID:        event.UserID(),
		Payload:       event.Payload(),
	}
	payload, err := json.Marshal(wire)
	if err != nil {
		return fmt.Errorf("failed to serialize envelope: %w", err)
	}

	msg := message.NewMessage(envelope.EventID(), payload)
	msg.Metadata.Set("event_name", eventName)
	msg.Metadata.Set("aggregate_id", event.AggregateID())

	for i := range handlers {
		topic := fmt.Sprintf("%s_handler_%d", eventName, i+1)
		if err := d.pubSub.Publish(topic, msg); err != nil {
			return fmt.Errorf("failed to publish to handler topic %s: %w", topic, err)
		}
	}
	return nil
}

// Subscribe registers handler against eventName, each subscription getting
// its own topic so every handler sees every matching event.
func (d *WatermillEventDispatcher) Subscribe(eventName string, handler domain.EventHandler) error {
	d.handlersMu.Lock()
	defer d.handlersMu.Unlock()

	d.handlers[eventName] = append(d.handlers[eventName], handler)
	handlerIndex := len(d.handlers[eventName])
	handlerName := fmt.Sprintf("%s_handler_%d", eventName, handlerIndex)

	d.router.AddNoPublisherHandler(handlerName, handlerName, d.pubSub, func(msg *message.Message) error {
		return d.handleMessage(msg, handler)
	})
	return nil
}

func (d *WatermillEventDispatcher) handleMessage(msg *message.Message, handler domain.EventHandler) error {
	var wire envelopeWireFormat
	if err := json.Unmarshal(msg.Payload, &wire); err != nil {
		return fmt.Errorf("failed to deserialize envelope: %w", err)
	}

	event := &domain.DomainEvent{
		Name:          wire.EventName,
		AggID:         wire.AggregateID,
		Ver:           wire.Version,
		CorrID:        wire.CorrelationID,
		UID:           wire.UserID,
		PayloadFields: wire.Payload,
	}
	envelope := &eventEnvelope{event: event, eventID: wire.EventID}

	if err := handler.Handle(context.Background(), envelope); err != nil {
		d.logger.Error("event handler failed", err, watermill.LogFields{"event_id": wire.EventID, "handler": fmt.Sprintf("%T", handler)})
		return fmt.Errorf("event handler failed: %w", err)
	}
	return nil
}

// Close stops the router and releases its background goroutine.
func (d *WatermillEventDispatcher) Close() error {
	d.cancel()
	return d.router.Close()
}

// GetHandlers returns the handlers registered for eventName, for tests.
func (d *WatermillEventDispatcher) GetHandlers(eventName string) []domain.EventHandler {
	d.handlersMu.RLock()
	defer d.handlersMu.RUnlock()
	handlers := make([]domain.EventHandler, len(d.handlers[eventName]))
	copy(handlers, d.handlers[eventName])
	return handlers
}
