package application

import (
	"context"
	"time"

	"github.com/slapcommerce/core/pkg/domain"
)

// Shared mock implementations for testing

// MockLogger provides a mock implementation of domain.Logger for testing
type MockLogger struct {
	logs []string
}

func NewMockLogger() *MockLogger {
	return &MockLogger{
		logs: make([]string, 0),
	}
}

// Structured logging methods
func (m *MockLogger) Debug(msg string, keysAndValues ...any) {
	m.logs = append(m.logs, "DEBUG: "+msg)
}

func (m *MockLogger) Info(msg string, keysAndValues ...any) {
	m.logs = append(m.logs, "INFO: "+msg)
}

func (m *MockLogger) Warn(msg string, keysAndValues ...any) {
	m.logs = append(m.logs, "WARN: "+msg)
}

func (m *MockLogger) Error(msg string, keysAndValues ...any) {
	m.logs = append(m.logs, "ERROR: "+msg)
}

func (m *MockLogger) Fatal(msg string, keysAndValues ...any) {
	m.logs = append(m.logs, "FATAL: "+msg)
}

// Formatted logging methods
func (m *MockLogger) Debugf(format string, args ...any) {
	m.logs = append(m.logs, "DEBUG: "+format)
}

func (m *MockLogger) Infof(format string, args ...any) {
	m.logs = append(m.logs, "INFO: "+format)
}

func (m *MockLogger) Warnf(format string, args ...any) {
	m.logs = append(m.logs, "WARN: "+format)
}

func (m *MockLogger) Errorf(format string, args ...any) {
	m.logs = append(m.logs, "ERROR: "+format)
}

func (m *MockLogger) Fatalf(format string, args ...any) {
	m.logs = append(m.logs, "FATAL: "+format)
}

func (m *MockLogger) GetLogs() []string {
	return m.logs
}

// MockEventDispatcher provides a mock implementation of domain.EventDispatcher for testing
type MockEventDispatcher struct {
	handlers map[string]domain.EventHandler
	started  bool
}

func NewMockEventDispatcher() *MockEventDispatcher {
	return &MockEventDispatcher{
		handlers: make(map[string]domain.EventHandler),
	}
}

func (m *MockEventDispatcher) Dispatch(ctx context.Context, envelopes []domain.Envelope) error {
	for _, envelope := range envelopes {
		if handler, exists := m.handlers[envelope.Event().EventName()]; exists {
			if err := handler.Handle(ctx, envelope); err != nil {
				return err
			}
		}
	}
	return nil
}

func (m *MockEventDispatcher) Subscribe(eventName string, handler domain.EventHandler) error {
	m.handlers[eventName] = handler
	return nil
}

func (m *MockEventDispatcher) Start() error {
	m.started = true
	return nil
}

func (m *MockEventDispatcher) Close() error {
	m.started = false
	return nil
}

// MockEnvelope provides a mock implementation of domain.Envelope for testing
type MockEnvelope struct {
	event    domain.Event
	eventID  string
	storedAt time.Time
}

func NewMockEnvelope(event domain.Event) *MockEnvelope {
	return &MockEnvelope{
		event:    event,
		eventID:  "mock-event-id",
		storedAt: time.Now(),
	}
}

func (m *MockEnvelope) Event() domain.Event {
	return m.event
}

func (m *MockEnvelope) EventID() string {
	return m.eventID
}

func (m *MockEnvelope) StoredAt() time.Time {
	return m.storedAt
}

// MockEventHandler provides a mock implementation of domain.EventHandler for testing
type MockEventHandler struct {
	handleFunc func(context.Context, domain.Envelope) error
	eventNames []string
}

func NewMockEventHandler(eventNames []string, handleFunc func(context.Context, domain.Envelope) error) *MockEventHandler {
	return &MockEventHandler{
		handleFunc: handleFunc,
		eventNames: eventNames,
	}
}

func (m *MockEventHandler) Handle(ctx context.Context, envelope domain.Envelope) error {
	if m.handleFunc != nil {
		return m.handleFunc(ctx, envelope)
	}
	return nil
}

func (m *MockEventHandler) EventNames() []string {
	return m.eventNames
}
