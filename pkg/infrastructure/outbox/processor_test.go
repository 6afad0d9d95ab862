package outbox

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/slapcommerce/core/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRow struct {
	entry         domain.OutboxEntry
	status        string
	leaseOwner    string
	leaseExpires  time.Time
	nextAttemptAt time.Time
}

// fakeLeaseStore is an in-memory double for LeaseStore, enough to drive the
// lease/deliver/settle loop without a real database.
type fakeLeaseStore struct {
	mu   sync.Mutex
	rows map[string]*fakeRow
}

func newFakeLeaseStore(entries ...domain.OutboxEntry) *fakeLeaseStore {
	s := &fakeLeaseStore{rows: make(map[string]*fakeRow)}
	for _, e := range entries {
		s.rows[e.ID] = &fakeRow{entry: e, status: domain.OutboxStatusPending}
	}
	return s
}

func (s *fakeLeaseStore) LeaseBatch(ctx context.Context, owner string, limit int, now time.Time, leaseDuration time.Duration) ([]domain.OutboxEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var leased []domain.OutboxEntry
	for _, row := range s.rows {
		if len(leased) >= limit {
			break
		}
		if row.status != domain.OutboxStatusPending {
			continue
		}
		if row.nextAttemptAt.After(now) {
			continue
		}
		row.status = domain.OutboxStatusInflight
		row.leaseOwner = owner
		row.leaseExpires = now.Add(leaseDuration)
		leased = append(leased, row.entry)
	}
	return leased, nil
}

func (s *fakeLeaseStore) MarkDelivered(ctx context.Context, id string, attempts int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row := s.rows[id]
	row.status = domain.OutboxStatusDelivered
	row.entry.Attempts = attempts
	return nil
}

func (s *fakeLeaseStore) MarkFailed(ctx context.Context, id string, attempts int, lastError string, nextAttemptAt time.Time, maxAttempts int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row := s.rows[id]
	row.entry.Attempts = attempts
	row.entry.LastError = lastError
	if attempts >= maxAttempts {
		row.status = domain.OutboxStatusDead
		return nil
	}
	row.status = domain.OutboxStatusPending
	row.nextAttemptAt = nextAttemptAt
	return nil
}

func (s *fakeLeaseStore) ReapExpiredLeases(ctx context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, row := range s.rows {
		if row.status == domain.OutboxStatusInflight && row.leaseExpires.Before(now) {
			row.status = domain.OutboxStatusPending
			n++
		}
	}
	return n, nil
}

func (s *fakeLeaseStore) statusOf(id string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rows[id].status
}

func (s *fakeLeaseStore) attemptsOf(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rows[id].entry.Attempts
}

// flakyPublisher fails the first N calls for a given entry id, then
// succeeds, modelling scenario S4 (retry then deliver).
type flakyPublisher struct {
	mu        sync.Mutex
	failUntil map[string]int
	calls     map[string]int
}

func newFlakyPublisher(failUntil map[string]int) *flakyPublisher {
	return &flakyPublisher{failUntil: failUntil, calls: make(map[string]int)}
}

func (p *flakyPublisher) Publish(ctx context.Context, entry domain.OutboxEntry) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls[entry.ID]++
	if p.calls[entry.ID] <= p.failUntil[entry.ID] {
		return assert.AnError
	}
	return nil
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...interface{})  {}
func (noopLogger) Info(string, ...interface{})   {}
func (noopLogger) Warn(string, ...interface{})   {}
func (noopLogger) Error(string, ...interface{})  {}
func (noopLogger) Fatal(string, ...interface{})  {}
func (noopLogger) Debugf(string, ...interface{}) {}
func (noopLogger) Infof(string, ...interface{})  {}
func (noopLogger) Warnf(string, ...interface{})  {}
func (noopLogger) Errorf(string, ...interface{}) {}
func (noopLogger) Fatalf(string, ...interface{}) {}

func TestProcessor_DeliversOnFirstSuccess(t *testing.T) {
	entry := domain.OutboxEntry{ID: "e-1", AggregateID: "v-1", EventName: "variant.created", OccurredAt: time.Now().UTC()}
	store := newFakeLeaseStore(entry)
	publisher := newFlakyPublisher(nil)

	p := NewProcessor(store, publisher, DefaultConfig(), noopLogger{})
	p.pollOnce(context.Background())

	assert.Equal(t, domain.OutboxStatusDelivered, store.statusOf("e-1"))
	assert.Equal(t, 1, store.attemptsOf("e-1"))
}

func TestProcessor_RetriesThenDelivers(t *testing.T) {
	entry := domain.OutboxEntry{ID: "e-2", AggregateID: "v-2", EventName: "variant.created", OccurredAt: time.Now().UTC()}
	store := newFakeLeaseStore(entry)
	publisher := newFlakyPublisher(map[string]int{"e-2": 2})

	cfg := DefaultConfig()
	p := NewProcessor(store, publisher, cfg, noopLogger{})

	p.pollOnce(context.Background())
	assert.Equal(t, domain.OutboxStatusPending, store.statusOf("e-2"))
	assert.Equal(t, 1, store.attemptsOf("e-2"))

	store.rows["e-2"].nextAttemptAt = time.Time{}
	p.pollOnce(context.Background())
	assert.Equal(t, domain.OutboxStatusPending, store.statusOf("e-2"))
	assert.Equal(t, 2, store.attemptsOf("e-2"))

	store.rows["e-2"].nextAttemptAt = time.Time{}
	p.pollOnce(context.Background())
	assert.Equal(t, domain.OutboxStatusDelivered, store.statusOf("e-2"))
	assert.Equal(t, 3, store.attemptsOf("e-2"))
}

func TestProcessor_DeadLettersAfterMaxAttempts(t *testing.T) {
	entry := domain.OutboxEntry{ID: "e-3", AggregateID: "v-3", EventName: "variant.created", OccurredAt: time.Now().UTC()}
	store := newFakeLeaseStore(entry)
	publisher := newFlakyPublisher(map[string]int{"e-3": 100})

	cfg := DefaultConfig()
	cfg.MaxAttempts = 2
	p := NewProcessor(store, publisher, cfg, noopLogger{})

	p.pollOnce(context.Background())
	require.Equal(t, domain.OutboxStatusPending, store.statusOf("e-3"))

	store.rows["e-3"].nextAttemptAt = time.Time{}
	p.pollOnce(context.Background())
	assert.Equal(t, domain.OutboxStatusDead, store.statusOf("e-3"))
	assert.Equal(t, 2, store.attemptsOf("e-3"))
}

func TestProcessor_ReapExpiredLeasesReturnsRowToPending(t *testing.T) {
	entry := domain.OutboxEntry{ID: "e-4", AggregateID: "v-4", EventName: "variant.created"}
	store := newFakeLeaseStore(entry)
	store.rows["e-4"].status = domain.OutboxStatusInflight
	store.rows["e-4"].leaseExpires = time.Now().UTC().Add(-time.Second)

	n, err := store.ReapExpiredLeases(context.Background(), time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, domain.OutboxStatusPending, store.statusOf("e-4"))
}

func TestProcessor_StartStopRunsWithoutPanicking(t *testing.T) {
	store := newFakeLeaseStore()
	publisher := newFlakyPublisher(nil)
	cfg := DefaultConfig()
	cfg.PollInterval = 5 * time.Millisecond
	cfg.ReapInterval = 5 * time.Millisecond
	cfg.WorkerCount = 2

	p := NewProcessor(store, publisher, cfg, noopLogger{})
	p.Start()
	time.Sleep(20 * time.Millisecond)
	p.Stop()
}

func TestBackoffWithFullJitter_NeverExceedsCappedDelay(t *testing.T) {
	base := 500 * time.Millisecond
	for attempt := 1; attempt <= 10; attempt++ {
		delay := backoffWithFullJitter(base, attempt)
		assert.GreaterOrEqual(t, delay, time.Duration(0))
		max := base * time.Duration(int64(1)<<uint(attempt-1))
		assert.Less(t, delay, max)
	}
}
