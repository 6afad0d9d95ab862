package infrastructure

import (
	"context"
	"sync"
	"time"

	"github.com/slapcommerce/core/pkg/domain"
	"gorm.io/gorm"
)

// BatcherConfig tunes the transaction batcher (spec §4.3).
type BatcherConfig struct {
	FlushIntervalMs    int `mapstructure:"flush_interval_ms"`
	BatchSizeThreshold int `mapstructure:"batch_size_threshold"`
	MaxQueueDepth      int `mapstructure:"max_queue_depth"`
}

// DefaultBatcherConfig matches the batcher.* defaults registered in config.go.
func DefaultBatcherConfig() BatcherConfig {
	return BatcherConfig{FlushIntervalMs: 10, BatchSizeThreshold: 50, MaxQueueDepth: 1000}
}

// logicalBatch is one caller's prepared statements plus its completion
// channel. stmts runs against the physical transaction in arrival order
// alongside every other queued batch's stmts.
type logicalBatch struct {
	stmts func(tx *gorm.DB) error
	done  chan error
}

// TransactionBatcher coalesces many logical transactions submitted
// concurrently into fewer physical gorm.DB transactions, preserving
// per-logical-transaction atomicity: either every statement in a caller's
// batch is visible, or none are.
type TransactionBatcher struct {
	db     *gorm.DB
	cfg    BatcherConfig
	mu     sync.Mutex
	queue  []*logicalBatch
	timer  *time.Timer
	closed bool
	flushC chan struct{}
	stopC  chan struct{}
	wg     sync.WaitGroup
}

// NewTransactionBatcher starts the background flush loop.
func NewTransactionBatcher(db *gorm.DB, cfg BatcherConfig) *TransactionBatcher {
	b := &TransactionBatcher{
		db:     db,
		cfg:    cfg,
		flushC: make(chan struct{}, 1),
		stopC:  make(chan struct{}),
	}
	b.wg.Add(1)
	go b.loop()
	return b
}

// Submit enqueues stmts as one logical batch and blocks until it has been
// committed or failed as part of a physical transaction.
func (b *TransactionBatcher) Submit(ctx context.Context, stmts func(tx *gorm.DB) error) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return domain.NewStorageError("batcher is shut down", nil)
	}
	if len(b.queue) >= b.cfg.MaxQueueDepth {
		b.mu.Unlock()
		batcherBackPressureTotal.Inc()
		return domain.NewBackPressureError(len(b.queue), b.cfg.MaxQueueDepth)
	}

	batch := &logicalBatch{stmts: stmts, done: make(chan error, 1)}
	b.queue = append(b.queue, batch)
	shouldFlush := len(b.queue) >= b.cfg.BatchSizeThreshold
	batcherQueueDepth.Set(float64(len(b.queue)))
	if len(b.queue) == 1 {
		b.timer = time.AfterFunc(time.Duration(b.cfg.FlushIntervalMs)*time.Millisecond, b.requestFlush)
	}
	b.mu.Unlock()

	if shouldFlush {
		b.requestFlush()
	}

	return <-batch.done
}

func (b *TransactionBatcher) requestFlush() {
	select {
	case b.flushC <- struct{}{}:
	default:
	}
}

func (b *TransactionBatcher) loop() {
	defer b.wg.Done()
	for {
		select {
		case <-b.flushC:
			b.flush()
		case <-b.stopC:
			b.flush()
			return
		}
	}
}

// flush drains the queue and executes every pending logical batch's
// statements inside one physical transaction, in FIFO arrival order.
func (b *TransactionBatcher) flush() {
	b.mu.Lock()
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	batches := b.queue
	b.queue = nil
	b.mu.Unlock()
	batcherQueueDepth.Set(0)

	if len(batches) == 0 {
		return
	}

	start := time.Now()
	err := b.db.Transaction(func(tx *gorm.DB) error {
		for _, batch := range batches {
			if err := batch.stmts(tx); err != nil {
				return err
			}
		}
		return nil
	})
	batcherFlushDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		batcherFlushesTotal.WithLabelValues("error").Inc()
	} else {
		batcherFlushesTotal.WithLabelValues("success").Inc()
	}

	for _, batch := range batches {
		batch.done <- err
	}
}

// Stop flushes every pending batch synchronously, then rejects further
// submissions.
func (b *TransactionBatcher) Stop() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.mu.Unlock()

	close(b.stopC)
	b.wg.Wait()
}
