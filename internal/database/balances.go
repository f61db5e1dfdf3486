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

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"microtask-ledger-go/internal/models"
	"microtask-ledger-go/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func parseDecimal(field, value string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse %s '%s': %w", field, value, err)
	}
	return d, nil
}

func scanWallet(row rowScanner) (*models.Wallet, error) {
	var wallet models.Wallet
	var currency, balanceStr string
	if err := row.Scan(&wallet.Id, &wallet.UserId, &currency, &balanceStr,
		&wallet.Version, &wallet.CreatedAt, &wallet.UpdatedAt); err != nil {
		return nil, err
	}
	wallet.CurrencyType = models.CurrencyType(currency)

	balance, err := parseDecimal("balance", balanceStr)
	if err != nil {
		return nil, err
	}
	wallet.Balance = balance
	return &wallet, nil
}

func scanAdminWallet(row rowScanner) (*models.AdminWallet, error) {
	var wallet models.AdminWallet
	var currency, balanceStr, earnedStr, withdrawnStr string
	if err := row.Scan(&wallet.Id, &currency, &balanceStr, &earnedStr, &withdrawnStr,
		&wallet.Version, &wallet.CreatedAt, &wallet.UpdatedAt); err != nil {
		return nil, err
	}
	wallet.CurrencyType = models.CurrencyType(currency)

	var err error
	if wallet.Balance, err = parseDecimal("balance", balanceStr); err != nil {
		return nil, err
	}
	if wallet.TotalEarned, err = parseDecimal("total_earned", earnedStr); err != nil {
		return nil, err
	}
	if wallet.TotalWithdrawn, err = parseDecimal("total_withdrawn", withdrawnStr); err != nil {
		return nil, err
	}
	return &wallet, nil
}

func (s *Service) GetWallet(ctx context.Context, walletId string) (*models.Wallet, error) {
	wallet, err := scanWallet(s.db.QueryRowContext(ctx, queryGetWallet, walletId))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("wallet %s: %w", walletId, store.ErrWalletNotFound)
	}
	if err != nil {
		zap.L().Error("Failed to get wallet", zap.String("wallet_id", walletId), zap.Error(err))
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	return wallet, nil
}

func (s *Service) GetUserWallet(ctx context.Context, userId string, currency models.CurrencyType) (*models.Wallet, error) {
	wallet, err := scanWallet(s.db.QueryRowContext(ctx, queryGetUserWallet, userId, string(currency)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s wallet for user %s: %w", currency, userId, store.ErrWalletNotFound)
	}
	if err != nil {
		zap.L().Error("Failed to get user wallet",
			zap.String("user_id", userId),
			zap.String("currency", string(currency)),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get user wallet: %w", err)
	}
	return wallet, nil
}

// GetUserWallets returns every wallet the user holds, ordered by currency
func (s *Service) GetUserWallets(ctx context.Context, userId string) ([]models.Wallet, error) {
	zap.L().Debug("Getting all wallets", zap.String("user_id", userId))

	rows, err := s.db.QueryContext(ctx, queryGetUserWallets, userId)
	if err != nil {
		zap.L().Error("Failed to get wallets", zap.String("user_id", userId), zap.Error(err))
		return nil, fmt.Errorf("failed to get wallets: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var wallets []models.Wallet
	for rows.Next() {
		wallet, err := scanWallet(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan wallet: %w", err)
		}
		wallets = append(wallets, *wallet)
	}

	// Check for errors during iteration
	if err := rows.Err(); err != nil {
		zap.L().Error("Error during wallet row iteration", zap.Error(err))
		return nil, fmt.Errorf("error iterating wallet rows: %w", err)
	}

	zap.L().Debug("Retrieved wallets", zap.String("user_id", userId), zap.Int("count", len(wallets)))
	return wallets, nil
}

func (s *Service) GetAdminWallet(ctx context.Context, currency models.CurrencyType) (*models.AdminWallet, error) {
	wallet, err := scanAdminWallet(s.db.QueryRowContext(ctx, queryGetAdminWallet, string(currency)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("admin %s wallet: %w", currency, store.ErrWalletNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get admin wallet: %w", err)
	}
	return wallet, nil
}

func (s *Service) GetAdminWallets(ctx context.Context) ([]models.AdminWallet, error) {
	rows, err := s.db.QueryContext(ctx, queryGetAdminWallets)
	if err != nil {
		return nil, fmt.Errorf("failed to get admin wallets: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var wallets []models.AdminWallet
	for rows.Next() {
		wallet, err := scanAdminWallet(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan admin wallet: %w", err)
		}
		wallets = append(wallets, *wallet)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating admin wallet rows: %w", err)
	}
	return wallets, nil
}

// EnsureAdminWallets seeds a zero-balance platform wallet for each currency that lacks one
func (s *Service) EnsureAdminWallets(ctx context.Context, currencies []models.CurrencyType) error {
	now := time.Now().UTC()
	for _, currency := range currencies {
		if !currency.Valid() {
			return fmt.Errorf("unsupported currency %q", currency)
		}
		result, err := s.db.ExecContext(ctx, queryInsertAdminWallet, uuid.New().String(), string(currency), now, now)
		if err != nil {
			return fmt.Errorf("failed to seed admin wallet for %s: %w", currency, err)
		}
		if n, _ := result.RowsAffected(); n > 0 {
			zap.L().Info("Admin wallet created", zap.String("currency", string(currency)))
		}
	}
	return nil
}

// getOrCreateWalletTx fetches the user's wallet for a currency, creating an
// empty one on first use.
func (s *Service) getOrCreateWalletTx(ctx context.Context, tx *sql.Tx, userId string, currency models.CurrencyType, now time.Time) (*models.Wallet, error) {
	wallet, err := scanWallet(tx.QueryRowContext(ctx, queryGetUserWallet, userId, string(currency)))
	if err == nil {
		return wallet, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}

	walletId := uuid.New().String()
	if _, err := tx.ExecContext(ctx, queryInsertWallet, walletId, userId, string(currency), now, now); err != nil {
		return nil, fmt.Errorf("failed to create wallet: %w", err)
	}

	zap.L().Info("Wallet created",
		zap.String("wallet_id", walletId),
		zap.String("user_id", userId),
		zap.String("currency", string(currency)))

	return &models.Wallet{
		Id:           walletId,
		UserId:       userId,
		CurrencyType: currency,
		Balance:      decimal.Zero,
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func (s *Service) getOrCreateAdminWalletTx(ctx context.Context, tx *sql.Tx, currency models.CurrencyType, now time.Time) (*models.AdminWallet, error) {
	wallet, err := scanAdminWallet(tx.QueryRowContext(ctx, queryGetAdminWallet, string(currency)))
	if err == nil {
		return wallet, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to get admin wallet: %w", err)
	}

	walletId := uuid.New().String()
	if _, err := tx.ExecContext(ctx, queryInsertAdminWallet, walletId, string(currency), now, now); err != nil {
		return nil, fmt.Errorf("failed to create admin wallet: %w", err)
	}

	zap.L().Info("Admin wallet created", zap.String("currency", string(currency)))
	return &models.AdminWallet{
		Id:             walletId,
		CurrencyType:   currency,
		Balance:        decimal.Zero,
		TotalEarned:    decimal.Zero,
		TotalWithdrawn: decimal.Zero,
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// setWalletBalanceTx writes a new balance guarded by the version read earlier in the same unit
func setWalletBalanceTx(ctx context.Context, tx *sql.Tx, wallet *models.Wallet, balance decimal.Decimal, now time.Time) error {
	result, err := tx.ExecContext(ctx, queryUpdateWalletBalance, balance.String(), now, wallet.Id, wallet.Version)
	if err != nil {
		return fmt.Errorf("failed to update wallet balance: %w", err)
	}
	if err := checkRowsAffected(result, "wallet balance"); err != nil {
		return err
	}

	wallet.Balance = balance
	wallet.Version++
	wallet.UpdatedAt = now
	return nil
}

func setAdminWalletTx(ctx context.Context, tx *sql.Tx, wallet *models.AdminWallet, balance, earned, withdrawn decimal.Decimal, now time.Time) error {
	if !balance.Equal(earned.Sub(withdrawn)) {
		return fmt.Errorf("admin %s wallet: balance %s != earned %s - withdrawn %s: %w",
			wallet.CurrencyType, balance, earned, withdrawn, store.ErrBalanceMismatch)
	}

	result, err := tx.ExecContext(ctx, queryUpdateAdminWallet,
		balance.String(), earned.String(), withdrawn.String(), now, wallet.Id, wallet.Version)
	if err != nil {
		return fmt.Errorf("failed to update admin wallet: %w", err)
	}
	if err := checkRowsAffected(result, "admin wallet"); err != nil {
		return err
	}

	wallet.Balance = balance
	wallet.TotalEarned = earned
	wallet.TotalWithdrawn = withdrawn
	wallet.Version++
	wallet.UpdatedAt = now
	return nil
}

func (s *Service) sumLedger(ctx context.Context, walletId, walletKind string) (decimal.Decimal, error) {
	rows, err := s.db.QueryContext(ctx, queryGetWalletLedgerAmounts, walletId, walletKind)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to read ledger amounts: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	total := decimal.Zero
	for rows.Next() {
		var amountStr string
		if err := rows.Scan(&amountStr); err != nil {
			return decimal.Zero, fmt.Errorf("failed to scan ledger amount: %w", err)
		}
		amount, err := parseDecimal("amount", amountStr)
		if err != nil {
			return decimal.Zero, err
		}
		total = total.Add(amount)
	}
	if err := rows.Err(); err != nil {
		return decimal.Zero, fmt.Errorf("error iterating ledger rows: %w", err)
	}
	return total, nil
}

// ReconcileWallet verifies that the wallet balance matches the sum of its ledger rows
func (s *Service) ReconcileWallet(ctx context.Context, walletId string) error {
	zap.L().Info("Reconciling wallet", zap.String("wallet_id", walletId))

	wallet, err := s.GetWallet(ctx, walletId)
	if err != nil {
		return err
	}

	calculated, err := s.sumLedger(ctx, walletId, models.WalletKindUser)
	if err != nil {
		return err
	}

	// Exact decimal comparison
	if !wallet.Balance.Equal(calculated) {
		zap.L().Error("Wallet reconciliation failed",
			zap.String("wallet_id", walletId),
			zap.String("current_balance", wallet.Balance.String()),
			zap.String("calculated_balance", calculated.String()),
			zap.String("difference", wallet.Balance.Sub(calculated).String()))
		return fmt.Errorf("wallet %s: current=%s, calculated=%s: %w",
			walletId, wallet.Balance, calculated, store.ErrBalanceMismatch)
	}

	zap.L().Info("Wallet reconciliation successful",
		zap.String("wallet_id", walletId),
		zap.String("balance", wallet.Balance.String()))
	return nil
}

// ReconcileAdminWallet checks balance == total_earned - total_withdrawn and
// that the balance matches the admin ledger rows.
func (s *Service) ReconcileAdminWallet(ctx context.Context, currency models.CurrencyType) error {
	wallet, err := s.GetAdminWallet(ctx, currency)
	if err != nil {
		return err
	}

	if !wallet.Balance.Equal(wallet.TotalEarned.Sub(wallet.TotalWithdrawn)) {
		return fmt.Errorf("admin %s wallet: balance=%s, earned=%s, withdrawn=%s: %w",
			currency, wallet.Balance, wallet.TotalEarned, wallet.TotalWithdrawn, store.ErrBalanceMismatch)
	}

	calculated, err := s.sumLedger(ctx, wallet.Id, models.WalletKindAdmin)
	if err != nil {
		return err
	}
	if !wallet.Balance.Equal(calculated) {
		zap.L().Error("Admin wallet reconciliation failed",
			zap.String("currency", string(currency)),
			zap.String("current_balance", wallet.Balance.String()),
			zap.String("calculated_balance", calculated.String()))
		return fmt.Errorf("admin %s wallet: current=%s, calculated=%s: %w",
			currency, wallet.Balance, calculated, store.ErrBalanceMismatch)
	}

	zap.L().Info("Admin wallet reconciliation successful",
		zap.String("currency", string(currency)),
		zap.String("balance", wallet.Balance.String()))
	return nil
}
