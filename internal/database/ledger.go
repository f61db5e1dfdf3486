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

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func scanTransaction(row rowScanner, extra ...any) (*models.WalletTransaction, error) {
	var t models.WalletTransaction
	var currency, amountStr, beforeStr, afterStr string
	dest := []any{&t.Id, &t.WalletId, &t.WalletKind, &t.TransactionType,
		&amountStr, &beforeStr, &afterStr,
		&currency, &t.Status, &t.ReferenceId, &t.Description, &t.TransactionHash, &t.CreatedAt}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	t.CurrencyType = models.CurrencyType(currency)

	var err error
	if t.Amount, err = parseDecimal("amount", amountStr); err != nil {
		return nil, err
	}
	if t.BalanceBefore, err = parseDecimal("balance_before", beforeStr); err != nil {
		return nil, err
	}
	if t.BalanceAfter, err = parseDecimal("balance_after", afterStr); err != nil {
		return nil, err
	}
	return &t, nil
}

// insertTransactionTx appends one ledger row. A reference may touch a given
// wallet only once; a second attempt is ErrDuplicateTransaction.
func insertTransactionTx(ctx context.Context, tx *sql.Tx, t *models.WalletTransaction) error {
	var existingId int64
	err := tx.QueryRowContext(ctx, queryCheckDuplicateReference, t.WalletId, t.WalletKind, t.ReferenceId).Scan(&existingId)
	if err == nil {
		zap.L().Warn("Duplicate reference detected, skipping",
			zap.String("reference_id", t.ReferenceId),
			zap.String("wallet_id", t.WalletId),
			zap.Int64("existing_transaction_id", existingId))
		return fmt.Errorf("%w: reference %s already recorded on wallet %s", store.ErrDuplicateTransaction, t.ReferenceId, t.WalletId)
	} else if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to check for duplicate transaction: %w", err)
	}

	result, err := tx.ExecContext(ctx, queryInsertTransaction,
		t.WalletId, t.WalletKind, t.TransactionType,
		t.Amount.String(), t.BalanceBefore.String(), t.BalanceAfter.String(),
		string(t.CurrencyType), t.Status, t.ReferenceId, t.Description, t.TransactionHash, t.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: reference %s already recorded on wallet %s", store.ErrDuplicateTransaction, t.ReferenceId, t.WalletId)
		}
		return fmt.Errorf("failed to insert transaction: %w", err)
	}

	t.Id, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read transaction id: %w", err)
	}
	return nil
}

// GetTransactionHistory returns a page of a wallet's ledger, newest first
func (s *Service) GetTransactionHistory(ctx context.Context, walletId string, limit, offset int) ([]models.WalletTransaction, error) {
	zap.L().Debug("Getting transaction history",
		zap.String("wallet_id", walletId),
		zap.Int("limit", limit),
		zap.Int("offset", offset))

	rows, err := s.db.QueryContext(ctx, queryGetTransactionHistory, walletId, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction history: %w", err)
	}
	return collectTransactions(rows)
}

func (s *Service) GetTransactionsByReference(ctx context.Context, referenceId string) ([]models.WalletTransaction, error) {
	rows, err := s.db.QueryContext(ctx, queryGetTransactionsByReference, referenceId)
	if err != nil {
		return nil, fmt.Errorf("failed to get transactions by reference: %w", err)
	}
	return collectTransactions(rows)
}

func collectTransactions(rows *sql.Rows) ([]models.WalletTransaction, error) {
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var transactions []models.WalletTransaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, *t)
	}

	// Check for errors during iteration
	if err := rows.Err(); err != nil {
		zap.L().Error("Error during transaction row iteration", zap.Error(err))
		return nil, fmt.Errorf("error iterating transaction rows: %w", err)
	}
	return transactions, nil
}

// GetEarnings sums the task payments credited to the user's wallet in one currency
func (s *Service) GetEarnings(ctx context.Context, userId string, currency models.CurrencyType) (decimal.Decimal, error) {
	rows, err := s.db.QueryContext(ctx, queryGetEarningAmounts, userId, string(currency))
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to get earnings: %w", err)
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
			return decimal.Zero, fmt.Errorf("failed to scan earning: %w", err)
		}
		amount, err := parseDecimal("amount", amountStr)
		if err != nil {
			return decimal.Zero, err
		}
		if amount.IsPositive() {
			total = total.Add(amount)
		}
	}
	if err := rows.Err(); err != nil {
		return decimal.Zero, fmt.Errorf("error iterating earning rows: %w", err)
	}
	return total, nil
}

// ListUnmirroredTransactions returns the oldest ledger rows not yet exported
func (s *Service) ListUnmirroredTransactions(ctx context.Context, limit int) ([]store.MirrorEntry, error) {
	rows, err := s.db.QueryContext(ctx, queryListUnmirroredTransactions, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list unmirrored transactions: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var entries []store.MirrorEntry
	for rows.Next() {
		var userId string
		t, err := scanTransaction(rows, &userId)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		entries = append(entries, store.MirrorEntry{Transaction: *t, UserId: userId})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transaction rows: %w", err)
	}
	return entries, nil
}

func (s *Service) MarkTransactionMirrored(ctx context.Context, transactionId int64) error {
	result, err := s.db.ExecContext(ctx, queryMarkTransactionMirrored, time.Now().UTC(), transactionId)
	if err != nil {
		return fmt.Errorf("failed to mark transaction %d mirrored: %w", transactionId, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		zap.L().Debug("Transaction already mirrored", zap.Int64("transaction_id", transactionId))
	}
	return nil
}
