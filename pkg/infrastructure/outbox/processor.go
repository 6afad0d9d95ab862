package outbox

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/slapcommerce/core/pkg/domain"
)

var (
	leasedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "core_outbox_leased_total",
		Help: "Total number of outbox rows leased for delivery.",
	})
	deliveredTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "core_outbox_delivered_total",
		Help: "Total number of outbox rows successfully delivered.",
	})
	retriedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "core_outbox_retried_total",
		Help: "Total number of outbox delivery attempts that failed but will retry.",
	})
	deadLetteredTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "core_outbox_dead_lettered_total",
		Help: "Total number of outbox rows moved to the dead-letter set.",
	})
	leasesReapedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "core_outbox_leases_reaped_total",
		Help: "Total number of expired outbox leases returned to pending.",
	})
)

func init() {
	prometheus.MustRegister(leasedTotal, deliveredTotal, retriedTotal, deadLetteredTotal, leasesReapedTotal)
}

// LeaseStore is the leased-polling side of the outbox the processor drives.
// Satisfied by infrastructure.GormOutboxStore; kept as a narrow interface
// here so this package never imports back into infrastructure.
type LeaseStore interface {
	LeaseBatch(ctx context.Context, owner string, limit int, now time.Time, leaseDuration time.Duration) ([]domain.OutboxEntry, error)
	MarkDelivered(ctx context.Context, id string, attempts int) error
	MarkFailed(ctx context.Context, id string, attempts int, lastError string, nextAttemptAt time.Time, maxAttempts int) error
	ReapExpiredLeases(ctx context.Context, now time.Time) (int64, error)
}

// Config tunes the processor, mirroring spec.md §6's outbox.* environment
// knobs.
type Config struct {
	LeaseDuration time.Duration
	MaxAttempts   int
	BackoffBase   time.Duration
	WorkerCount   int
	BatchSize     int
	PollInterval  time.Duration
	ReapInterval  time.Duration
}

// DefaultConfig matches the tuning recorded in SPEC_FULL.md / DESIGN.md.
func DefaultConfig() Config {
	return Config{
		LeaseDuration: 30 * time.Second,
		MaxAttempts:   8,
		BackoffBase:   500 * time.Millisecond,
		WorkerCount:   4,
		BatchSize:     20,
		PollInterval:  200 * time.Millisecond,
		ReapInterval:  5 * time.Second,
	}
}

// Processor drives the lease → deliver → settle loop of spec.md §4.6,
// independently of command servicing, against its own store handle so it
// never contends with the transaction batcher's write cursor.
type Processor struct {
	store     LeaseStore
	publisher Publisher
	cfg       Config
	owner     string
	logger    domain.Logger

	stopC chan struct{}
	wg    sync.WaitGroup
}

// NewProcessor builds a processor identified by a fresh owner id, used as
// the lease-holder tag so two processors racing the same table never both
// claim a row.
func NewProcessor(store LeaseStore, publisher Publisher, cfg Config, logger domain.Logger) *Processor {
	return &Processor{
		store:     store,
		publisher: publisher,
		cfg:       cfg,
		owner:     uuid.NewString(),
		logger:    logger,
		stopC:     make(chan struct{}),
	}
}

// Start launches cfg.WorkerCount leasing workers plus one lease-reaper, all
// as background goroutines. Start must be called at most once per Processor.
func (p *Processor) Start() {
	p.wg.Add(p.cfg.WorkerCount + 1)
	for i := 0; i < p.cfg.WorkerCount; i++ {
		go p.workerLoop()
	}
	go p.reapLoop()
}

// Stop signals every worker and the reaper to exit and waits for them to
// finish their current iteration. Safe to call once; a second call panics
// on the closed channel, matching Go's standard channel-close contract.
func (p *Processor) Stop() {
	close(p.stopC)
	p.wg.Wait()
}

func (p *Processor) workerLoop() {
	defer p.wg.Done()
	ticker := time.NewTicker(p.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-p.stopC:
			return
		case <-ticker.C:
			p.pollOnce(context.Background())
		}
	}
}

func (p *Processor) reapLoop() {
	defer p.wg.Done()
	ticker := time.NewTicker(p.cfg.ReapInterval)
	defer ticker.Stop()
	for {
		select {
		case <-p.stopC:
			return
		case <-ticker.C:
			n, err := p.store.ReapExpiredLeases(context.Background(), time.Now().UTC())
			if err != nil {
				p.logger.Error("outbox: failed to reap expired leases", "error", err)
				continue
			}
			if n > 0 {
				leasesReapedTotal.Add(float64(n))
				p.logger.Warn("outbox: reaped expired leases", "count", n)
			}
		}
	}
}

// pollOnce leases up to cfg.BatchSize due rows and attempts delivery of
// each. A storage error from LeaseBatch itself propagates no further than
// this log line: per spec.md §7, storage errors from the outbox table halt
// delivery for this tick but the worker loop keeps running and retries on
// the next poll.
func (p *Processor) pollOnce(ctx context.Context) {
	entries, err := p.store.LeaseBatch(ctx, p.owner, p.cfg.BatchSize, time.Now().UTC(), p.cfg.LeaseDuration)
	if err != nil {
		p.logger.Error("outbox: failed to lease batch", "error", err)
		return
	}
	if len(entries) == 0 {
		return
	}
	leasedTotal.Add(float64(len(entries)))
	for _, entry := range entries {
		p.settle(ctx, entry)
	}
}

// settle delivers one entry and records the outcome. Publisher failure is
// the normal case (spec.md §4.6 step 2), not an error this method returns;
// every outcome is recorded on the row itself, never surfaced to a caller.
func (p *Processor) settle(ctx context.Context, entry domain.OutboxEntry) {
	err := p.publisher.Publish(ctx, entry)
	attempts := entry.Attempts + 1

	if err == nil {
		if markErr := p.store.MarkDelivered(ctx, entry.ID, attempts); markErr != nil {
			p.logger.Error("outbox: failed to mark entry delivered", "id", entry.ID, "error", markErr)
			return
		}
		deliveredTotal.Inc()
		return
	}

	if attempts >= p.cfg.MaxAttempts {
		if markErr := p.store.MarkFailed(ctx, entry.ID, attempts, err.Error(), time.Time{}, p.cfg.MaxAttempts); markErr != nil {
			p.logger.Error("outbox: failed to dead-letter entry", "id", entry.ID, "error", markErr)
			return
		}
		deadLetteredTotal.Inc()
		p.logger.Warn("outbox: entry exhausted retries, dead-lettered", "id", entry.ID, "attempts", attempts, "error", err)
		return
	}

	nextAttemptAt := time.Now().UTC().Add(backoffWithFullJitter(p.cfg.BackoffBase, attempts))
	if markErr := p.store.MarkFailed(ctx, entry.ID, attempts, err.Error(), nextAttemptAt, p.cfg.MaxAttempts); markErr != nil {
		p.logger.Error("outbox: failed to mark entry failed", "id", entry.ID, "error", markErr)
		return
	}
	retriedTotal.Inc()
	p.logger.Warn("outbox: delivery failed, will retry", "id", entry.ID, "attempts", attempts, "next_attempt_at", nextAttemptAt, "error", err)
}

// backoffWithFullJitter computes an exponential delay capped at 2^20
// multiples of base, then samples uniformly from [0, delay) ("full jitter",
// per AWS's well-known backoff-strategy writeup): every retrying entry gets
// a different wait, so a burst of simultaneous failures doesn't re-collide
// on the same next_attempt_at.
func backoffWithFullJitter(base time.Duration, attempt int) time.Duration {
	shift := attempt - 1
	if shift > 20 {
		shift = 20
	}
	if shift < 0 {
		shift = 0
	}
	delay := base * time.Duration(int64(1)<<uint(shift))
	if delay <= 0 {
		return base
	}
	return time.Duration(rand.Int63n(int64(delay)))
}
