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

	"microtask-ledger-go/internal/common"
	"microtask-ledger-go/internal/config"
	"microtask-ledger-go/internal/formance"

	"go.uber.org/zap"
)

func main() {
	once := flag.Bool("once", false, "Mirror the current backlog and exit")
	flag.Parse()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load configuration", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dbService, err := common.InitializeDatabaseOnly(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbService.Close()

	formanceService, err := formance.NewService(ctx, cfg.Formance)
	if err != nil {
		zap.L().Fatal("Failed to initialize Formance", zap.Error(err))
	}

	mirror := formance.NewMirror(dbService, formanceService, cfg.Mirror.PollingInterval, cfg.Mirror.BatchSize)

	if *once {
		total := 0
		for {
			n, err := mirror.Sync(ctx)
			total += n
			if err != nil {
				zap.L().Fatal("Mirror failed", zap.Int("mirrored", total), zap.Error(err))
			}
			if n == 0 {
				break
			}
		}
		zap.L().Info("Mirror complete", zap.Int("mirrored", total))
		return
	}

	mirror.Start(ctx)
	zap.L().Info("Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	zap.L().Info("Shutdown signal received, stopping mirror...")
	mirror.Stop()
}
