/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package payout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"microtask-ledger-go/internal/models"
	"microtask-ledger-go/internal/store"

	"go.uber.org/zap"
)

// ErrRejected marks a payout the gateway will never accept. Other gateway
// errors are treated as transient and the payout is retried on the next poll.
var ErrRejected = errors.New("payout rejected")

// Gateway submits a payout to an external payment rail and returns its external id.
// Submitting the same payout twice must not pay twice.
type Gateway interface {
	Submit(ctx context.Context, payout models.Payout) (string, error)
}

// DispatcherConfig contains configuration for Dispatcher
type DispatcherConfig struct {
	Store           store.LedgerStore
	Gateway         Gateway
	CurrencyType    models.CurrencyType
	PaymentMethod   string // empty accepts every method
	PollingInterval time.Duration
	BatchSize       int
	Concurrency     int
}

// Dispatcher polls pending payouts in one currency and hands them to a gateway
type Dispatcher struct {
	store           store.LedgerStore
	gateway         Gateway
	currency        models.CurrencyType
	method          string
	pollingInterval time.Duration
	batchSize       int
	concurrency     int

	stopChan chan struct{}
	doneChan chan struct{}
	stopOnce sync.Once
}

// Stats counts the outcome of one dispatch pass
type Stats struct {
	Submitted int
	Rejected  int
	Deferred  int
}

func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.PollingInterval <= 0 {
		cfg.PollingInterval = 30 * time.Second
	}

	return &Dispatcher{
		store:           cfg.Store,
		gateway:         cfg.Gateway,
		currency:        cfg.CurrencyType,
		method:          cfg.PaymentMethod,
		pollingInterval: cfg.PollingInterval,
		batchSize:       cfg.BatchSize,
		concurrency:     cfg.Concurrency,
		stopChan:        make(chan struct{}),
		doneChan:        make(chan struct{}),
	}
}

// Start begins polling in the background
func (d *Dispatcher) Start(ctx context.Context) {
	zap.L().Info("Starting payout dispatcher",
		zap.String("currency", string(d.currency)),
		zap.Duration("polling_interval", d.pollingInterval),
		zap.Int("batch_size", d.batchSize))

	go d.pollLoop(ctx)
}

// Stop gracefully stops the dispatcher and waits for the current pass to finish
func (d *Dispatcher) Stop() {
	zap.L().Info("Stopping payout dispatcher")
	d.stopOnce.Do(func() { close(d.stopChan) })
	<-d.doneChan
	zap.L().Info("Payout dispatcher stopped")
}

func (d *Dispatcher) pollLoop(ctx context.Context) {
	defer close(d.doneChan)

	ticker := time.NewTicker(d.pollingInterval)
	defer ticker.Stop()

	d.runOnce(ctx)

	for {
		select {
		case <-ticker.C:
			d.runOnce(ctx)
		case <-d.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (d *Dispatcher) runOnce(ctx context.Context) {
	stats, err := d.Dispatch(ctx)
	if err != nil {
		zap.L().Error("Payout dispatch failed", zap.Error(err))
		return
	}
	if stats.Submitted+stats.Rejected+stats.Deferred > 0 {
		zap.L().Info("Payout dispatch pass complete",
			zap.Int("submitted", stats.Submitted),
			zap.Int("rejected", stats.Rejected),
			zap.Int("deferred", stats.Deferred))
	}
}

// Dispatch runs a single pass over the pending payouts
func (d *Dispatcher) Dispatch(ctx context.Context) (Stats, error) {
	var stats Stats

	pending, err := d.store.ListPendingPayouts(ctx, d.currency, d.method, d.batchSize)
	if err != nil {
		return stats, fmt.Errorf("failed to list pending payouts: %w", err)
	}

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		sem = make(chan struct{}, d.concurrency)
	)

	for _, p := range pending {
		wg.Add(1)
		sem <- struct{}{}

		go func(p models.Payout) {
			defer wg.Done()
			defer func() { <-sem }()

			outcome := d.process(ctx, p)

			mu.Lock()
			defer mu.Unlock()
			switch outcome {
			case outcomeSubmitted:
				stats.Submitted++
			case outcomeRejected:
				stats.Rejected++
			default:
				stats.Deferred++
			}
		}(p)
	}

	wg.Wait()
	return stats, nil
}

type outcome int

const (
	outcomeDeferred outcome = iota
	outcomeSubmitted
	outcomeRejected
)

func (d *Dispatcher) process(ctx context.Context, p models.Payout) outcome {
	externalId, err := d.gateway.Submit(ctx, p)
	if err == nil {
		if err := d.store.MarkPayoutSubmitted(ctx, p.Id, externalId); err != nil {
			// The gateway is idempotent on the payout id, so the next pass only re-records it
			zap.L().Error("Failed to record submitted payout",
				zap.String("payout_id", p.Id),
				zap.String("external_id", externalId),
				zap.Error(err))
			return outcomeDeferred
		}
		return outcomeSubmitted
	}

	if !errors.Is(err, ErrRejected) {
		zap.L().Warn("Payout submission failed, will retry",
			zap.String("payout_id", p.Id),
			zap.String("amount", p.Amount.String()),
			zap.Error(err))
		return outcomeDeferred
	}

	reason := err.Error()
	if p.WalletKind == models.WalletKindUser {
		_, err = d.store.ReversePayout(ctx, p.Id, reason)
	} else {
		err = d.store.MarkPayoutFailed(ctx, p.Id, reason)
	}
	if err != nil {
		zap.L().Error("Failed to settle rejected payout",
			zap.String("payout_id", p.Id),
			zap.String("wallet_kind", p.WalletKind),
			zap.Error(err))
		return outcomeDeferred
	}
	return outcomeRejected
}
