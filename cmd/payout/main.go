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

package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"microtask-ledger-go/internal/common"
	"microtask-ledger-go/internal/config"
	"microtask-ledger-go/internal/models"
	"microtask-ledger-go/internal/payout"
	"microtask-ledger-go/internal/prime"

	"go.uber.org/zap"
)

func main() {
	once := flag.Bool("once", false, "Run a single dispatch pass and exit")
	flag.Parse()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load configuration", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	zap.L().Info("Starting payout dispatcher")

	dbService, err := common.InitializeDatabaseOnly(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbService.Close()

	primeService, err := prime.NewService(cfg.Prime)
	if err != nil {
		zap.L().Fatal("Failed to initialize Prime client", zap.Error(err))
	}

	portfolioId := cfg.Payout.PortfolioId
	if portfolioId == "" {
		zap.L().Info("Finding default portfolio")
		portfolio, err := primeService.FindDefaultPortfolio(ctx)
		if err != nil {
			zap.L().Fatal("Failed to find default portfolio", zap.Error(err))
		}
		portfolioId = portfolio.Id
		zap.L().Info("Using default portfolio",
			zap.String("name", portfolio.Name),
			zap.String("id", portfolio.Id))
	}

	walletId := cfg.Payout.WalletId
	if walletId == "" {
		wallet, err := primeService.FindPayoutWallet(ctx, portfolioId, cfg.Payout.CryptoAsset)
		if err != nil {
			zap.L().Fatal("Failed to find payout wallet", zap.Error(err))
		}
		walletId = wallet.Id
		zap.L().Info("Using payout wallet",
			zap.String("name", wallet.Name),
			zap.String("id", wallet.Id))
	}

	dispatcher := payout.NewDispatcher(payout.DispatcherConfig{
		Store:           dbService,
		Gateway:         payout.NewPrimeGateway(primeService, portfolioId, walletId, cfg.Payout.CryptoAsset),
		CurrencyType:    models.CurrencyUSDTTRC20,
		PaymentMethod:   "crypto",
		PollingInterval: cfg.Payout.PollingInterval,
		BatchSize:       cfg.Payout.BatchSize,
	})

	if *once {
		stats, err := dispatcher.Dispatch(ctx)
		if err != nil {
			zap.L().Fatal("Dispatch failed", zap.Error(err))
		}
		zap.L().Info("Dispatch complete",
			zap.Int("submitted", stats.Submitted),
			zap.Int("rejected", stats.Rejected),
			zap.Int("deferred", stats.Deferred))
		return
	}

	dispatcher.Start(ctx)
	zap.L().Info("Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	zap.L().Info("Shutdown signal received, stopping dispatcher...")

	done := make(chan struct{})
	go func() {
		dispatcher.Stop()
		close(done)
	}()

	select {
	case <-done:
		zap.L().Info("Dispatcher stopped gracefully")
	case <-time.After(30 * time.Second):
		zap.L().Warn("Forced shutdown after timeout")
	}
}
