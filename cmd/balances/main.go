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
	"fmt"

	"microtask-ledger-go/internal/common"
	"microtask-ledger-go/internal/config"
	"microtask-ledger-go/internal/database"
	"microtask-ledger-go/internal/formance"
	"microtask-ledger-go/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type balanceStats struct {
	totalUsers        int
	totalWallets      int
	usersWithWallets  int
	reconcileFailures int
	mirrorMismatches  int
}

// mirror is the subset of the Formance service the report reads from
type mirror interface {
	UserBalance(ctx context.Context, userId string, currency models.CurrencyType) (decimal.Decimal, error)
	CommissionBalance(ctx context.Context, currency models.CurrencyType) (decimal.Decimal, error)
}

func reconcileStatus(err error) string {
	if err != nil {
		return "MISMATCH"
	}
	return "ok"
}

func mirrorStatus(ctx context.Context, local decimal.Decimal, fetch func(context.Context) (decimal.Decimal, error)) (string, bool) {
	remote, err := fetch(ctx)
	if err != nil {
		return "unavailable", false
	}
	if !remote.Equal(local) {
		return fmt.Sprintf("formance=%s", remote.String()), true
	}
	return "formance ok", false
}

func printUserHeader(user common.UserInfo, walletCount int) {
	fmt.Printf("\n┌─ User: %s (%s)\n", user.Name, user.Email)
	fmt.Printf("│  ID: %s  Role: %s\n", user.Id, user.Role)
	fmt.Printf("│  Wallets: %d\n", walletCount)
	common.PrintBoxSeparator(78)
}

func processUser(ctx context.Context, user common.UserInfo, dbService *database.Service, fm mirror, stats *balanceStats) (int, error) {
	wallets, err := dbService.GetUserWallets(ctx, user.Id)
	if err != nil {
		return 0, fmt.Errorf("failed to get wallets: %w", err)
	}

	if len(wallets) == 0 {
		return 0, nil
	}

	printUserHeader(user, len(wallets))
	for i, w := range wallets {
		rerr := dbService.ReconcileWallet(ctx, w.Id)
		if rerr != nil {
			stats.reconcileFailures++
		}

		line := fmt.Sprintf("%s %-12s: %20s (ledger: %s, updated: %s)",
			common.BoxPrefix(i == len(wallets)-1),
			w.CurrencyType,
			w.Balance.StringFixed(w.CurrencyType.Precision()),
			reconcileStatus(rerr),
			w.UpdatedAt.Format("2006-01-02 15:04:05"))

		if fm != nil {
			currency := w.CurrencyType
			status, mismatch := mirrorStatus(ctx, w.Balance, func(ctx context.Context) (decimal.Decimal, error) {
				return fm.UserBalance(ctx, user.Id, currency)
			})
			if mismatch {
				stats.mirrorMismatches++
			}
			line += " [" + status + "]"
		}
		fmt.Println(line)
	}

	return len(wallets), nil
}

func printAdminWallets(ctx context.Context, dbService *database.Service, fm mirror, stats *balanceStats) error {
	wallets, err := dbService.GetAdminWallets(ctx)
	if err != nil {
		return fmt.Errorf("failed to get admin wallets: %w", err)
	}

	fmt.Printf("\n┌─ Platform commission\n")
	common.PrintBoxSeparator(78)
	for i, w := range wallets {
		rerr := dbService.ReconcileAdminWallet(ctx, w.CurrencyType)
		if rerr != nil {
			stats.reconcileFailures++
		}

		precision := w.CurrencyType.Precision()
		line := fmt.Sprintf("%s %-12s: %20s (earned: %s, withdrawn: %s, ledger: %s)",
			common.BoxPrefix(i == len(wallets)-1),
			w.CurrencyType,
			w.Balance.StringFixed(precision),
			w.TotalEarned.StringFixed(precision),
			w.TotalWithdrawn.StringFixed(precision),
			reconcileStatus(rerr))

		if fm != nil {
			currency := w.CurrencyType
			status, mismatch := mirrorStatus(ctx, w.Balance, func(ctx context.Context) (decimal.Decimal, error) {
				return fm.CommissionBalance(ctx, currency)
			})
			if mismatch {
				stats.mirrorMismatches++
			}
			line += " [" + status + "]"
		}
		fmt.Println(line)
	}
	return nil
}

func main() {
	ctx := context.Background()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	emailFlag := flag.String("email", "", "Filter by specific user email (optional)")
	compareFlag := flag.Bool("compare-formance", false, "Compare balances against the Formance mirror")
	flag.Parse()

	logger.Info("Starting balance report")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	logger.Info("Connecting to database", zap.String("path", cfg.Database.Path))
	dbService, err := common.InitializeDatabaseOnly(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbService.Close()

	var fm mirror
	if *compareFlag {
		svc, err := formance.NewService(ctx, cfg.Formance)
		if err != nil {
			logger.Fatal("Failed to connect to Formance", zap.Error(err))
		}
		fm = svc
	}

	users, err := common.InitializeUsers(ctx, dbService, *emailFlag, logger)
	if err != nil {
		logger.Fatal("Failed to initialize users", zap.Error(err))
	}

	common.PrintHeader("WALLET BALANCE REPORT", common.DefaultWidth)

	stats := balanceStats{}
	for _, user := range users {
		stats.totalUsers++

		count, err := processUser(ctx, user, dbService, fm, &stats)
		if err != nil {
			logger.Error("Failed to process user",
				zap.String("user_id", user.Id),
				zap.String("user_name", user.Name),
				zap.Error(err))
			continue
		}
		if count > 0 {
			stats.usersWithWallets++
			stats.totalWallets += count
		}
	}

	if *emailFlag == "" {
		if err := printAdminWallets(ctx, dbService, fm, &stats); err != nil {
			logger.Error("Failed to report admin wallets", zap.Error(err))
		}
	}

	summary := fmt.Sprintf("SUMMARY: %d users with wallets (%d wallets across %d users), %d reconciliation failures",
		stats.usersWithWallets, stats.totalWallets, stats.totalUsers, stats.reconcileFailures)
	if fm != nil {
		summary += fmt.Sprintf(", %d mirror mismatches", stats.mirrorMismatches)
	}
	common.PrintFooter(summary, common.DefaultWidth)

	logger.Info("Balance report completed",
		zap.Int("users_queried", stats.totalUsers),
		zap.Int("wallets", stats.totalWallets),
		zap.Int("reconcile_failures", stats.reconcileFailures),
		zap.Int("mirror_mismatches", stats.mirrorMismatches))
}
