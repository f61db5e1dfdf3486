package formance

import (
	"context"
	"fmt"
	"sync"
	"time"

	"microtask-ledger-go/internal/store"

	"go.uber.org/zap"
)

// Poster records postings in an external ledger
type Poster interface {
	Post(ctx context.Context, p *Posting) error
}

// Mirror exports ledger rows to Formance in id order
type Mirror struct {
	store           store.LedgerStore
	poster          Poster
	pollingInterval time.Duration
	batchSize       int

	stopChan chan struct{}
	doneChan chan struct{}
	stopOnce sync.Once
}

func NewMirror(ledger store.LedgerStore, poster Poster, pollingInterval time.Duration, batchSize int) *Mirror {
	if batchSize <= 0 {
		batchSize = 100
	}
	if pollingInterval <= 0 {
		pollingInterval = time.Minute
	}
	return &Mirror{
		store:           ledger,
		poster:          poster,
		pollingInterval: pollingInterval,
		batchSize:       batchSize,
		stopChan:        make(chan struct{}),
		doneChan:        make(chan struct{}),
	}
}

// Sync mirrors one batch and returns how many rows were exported.
// It stops at the first row that fails so later rows never overtake it.
func (m *Mirror) Sync(ctx context.Context) (int, error) {
	entries, err := m.store.ListUnmirroredTransactions(ctx, m.batchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to list unmirrored transactions: %w", err)
	}

	mirrored := 0
	for _, entry := range entries {
		posting, err := PostingFor(entry)
		if err != nil {
			return mirrored, err
		}
		if err := m.poster.Post(ctx, posting); err != nil {
			return mirrored, err
		}
		if err := m.store.MarkTransactionMirrored(ctx, entry.Transaction.Id); err != nil {
			return mirrored, err
		}
		mirrored++
	}
	return mirrored, nil
}

// Start begins mirroring in the background
func (m *Mirror) Start(ctx context.Context) {
	zap.L().Info("Starting ledger mirror",
		zap.Duration("polling_interval", m.pollingInterval),
		zap.Int("batch_size", m.batchSize))
	go m.pollLoop(ctx)
}

// Stop gracefully stops the mirror
func (m *Mirror) Stop() {
	zap.L().Info("Stopping ledger mirror")
	m.stopOnce.Do(func() { close(m.stopChan) })
	<-m.doneChan
	zap.L().Info("Ledger mirror stopped")
}

func (m *Mirror) pollLoop(ctx context.Context) {
	defer close(m.doneChan)

	ticker := time.NewTicker(m.pollingInterval)
	defer ticker.Stop()

	m.drain(ctx)

	for {
		select {
		case <-ticker.C:
			m.drain(ctx)
		case <-m.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

// drain syncs full batches until the backlog is empty
func (m *Mirror) drain(ctx context.Context) {
	for {
		n, err := m.Sync(ctx)
		if n > 0 {
			zap.L().Info("Mirrored ledger rows", zap.Int("count", n))
		}
		if err != nil {
			zap.L().Error("Ledger mirror failed", zap.Error(err))
			return
		}
		if n < m.batchSize {
			return
		}
		select {
		case <-m.stopChan:
			return
		default:
		}
	}
}
