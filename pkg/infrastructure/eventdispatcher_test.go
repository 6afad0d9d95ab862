package infrastructure

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/slapcommerce/core/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEventHandler struct {
	mu            sync.Mutex
	handledEvents []domain.Envelope
	eventNames    []string
}

func (h *testEventHandler) Handle(ctx context.Context, envelope domain.Envelope) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handledEvents = append(h.handledEvents, envelope)
	return nil
}

func (h *testEventHandler) EventNames() []string { return h.eventNames }

func (h *testEventHandler) GetHandledEvents() []domain.Envelope {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]domain.Envelope, len(h.handledEvents))
	copy(out, h.handledEvents)
	return out
}

func newDispatchedEnvelope(eventName, aggregateID, eventID string) domain.Envelope {
	event := domain.NewDomainEvent(eventName, aggregateID, 1, "corr-1", "user-1", domain.EventPayload{})
	return &eventEnvelope{event: event, eventID: eventID, storedAt: time.Now()}
}

func TestWatermillEventDispatcher_SubscribeAndDispatch(t *testing.T) {
	dispatcher, err := NewWatermillEventDispatcher(watermill.NopLogger{})
	require.NoError(t, err)
	require.NoError(t, dispatcher.Start())
	defer dispatcher.Close()

	handler := &testEventHandler{eventNames: []string{"variant.created"}}
	require.NoError(t, dispatcher.Subscribe("variant.created", handler))
	assert.Len(t, dispatcher.GetHandlers("variant.created"), 1)

	envelope := newDispatchedEnvelope("variant.created", "v-1", "env-1")
	require.NoError(t, dispatcher.Dispatch(context.Background(), []domain.Envelope{envelope}))

	require.Eventually(t, func() bool {
		return len(handler.GetHandledEvents()) == 1
	}, time.Second, 10*time.Millisecond)

	handled := handler.GetHandledEvents()[0]
	assert.Equal(t, envelope.EventID(), handled.EventID())
	assert.Equal(t, "variant.created", handled.Event().EventName())
}

func TestWatermillEventDispatcher_MultipleHandlers(t *testing.T) {
	dispatcher, err := NewWatermillEventDispatcher(watermill.NopLogger{})
	require.NoError(t, err)
	require.NoError(t, dispatcher.Start())
	defer dispatcher.Close()

	handler1 := &testEventHandler{eventNames: []string{"variant.created"}}
	handler2 := &testEventHandler{eventNames: []string{"variant.created"}}

	require.NoError(t, dispatcher.Subscribe("variant.created", handler1))
	require.NoError(t, dispatcher.Subscribe("variant.created", handler2))
	assert.Len(t, dispatcher.GetHandlers("variant.created"), 2)

	envelope := newDispatchedEnvelope("variant.created", "v-2", "env-2")
	require.NoError(t, dispatcher.Dispatch(context.Background(), []domain.Envelope{envelope}))

	require.Eventually(t, func() bool {
		return len(handler1.GetHandledEvents()) == 1 && len(handler2.GetHandledEvents()) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestWatermillEventDispatcher_DifferentEventNames(t *testing.T) {
	dispatcher, err := NewWatermillEventDispatcher(watermill.NopLogger{})
	require.NoError(t, err)
	require.NoError(t, dispatcher.Start())
	defer dispatcher.Close()

	handler1 := &testEventHandler{eventNames: []string{"variant.created"}}
	handler2 := &testEventHandler{eventNames: []string{"variant.published"}}

	require.NoError(t, dispatcher.Subscribe("variant.created", handler1))
	require.NoError(t, dispatcher.Subscribe("variant.published", handler2))

	envelope1 := newDispatchedEnvelope("variant.created", "v-3", "env-3")
	envelope2 := newDispatchedEnvelope("variant.published", "v-4", "env-4")
	require.NoError(t, dispatcher.Dispatch(context.Background(), []domain.Envelope{envelope1, envelope2}))

	require.Eventually(t, func() bool {
		return len(handler1.GetHandledEvents()) == 1 && len(handler2.GetHandledEvents()) == 1
	}, time.Second, 10*time.Millisecond)

	assert.Equal(t, "variant.created", handler1.GetHandledEvents()[0].Event().EventName())
	assert.Equal(t, "variant.published", handler2.GetHandledEvents()[0].Event().EventName())
}

func TestWatermillEventDispatcher_NoHandlersIsNoop(t *testing.T) {
	dispatcher, err := NewWatermillEventDispatcher(watermill.NopLogger{})
	require.NoError(t, err)
	require.NoError(t, dispatcher.Start())
	defer dispatcher.Close()

	envelope := newDispatchedEnvelope("variant.archived", "v-5", "env-5")
	assert.NoError(t, dispatcher.Dispatch(context.Background(), []domain.Envelope{envelope}))
}
