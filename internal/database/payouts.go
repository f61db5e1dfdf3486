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

	"go.uber.org/zap"
)

func scanPayout(row rowScanner) (*models.Payout, error) {
	var p models.Payout
	var currency, amountStr string
	if err := row.Scan(&p.Id, &p.TransactionId, &p.WalletId, &p.WalletKind, &currency, &amountStr,
		&p.PaymentMethod, &p.PaymentAddress, &p.BankName, &p.AccountNumber, &p.Notes,
		&p.Status, &p.ExternalId, &p.FailureReason, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.CurrencyType = models.CurrencyType(currency)

	amount, err := parseDecimal("amount", amountStr)
	if err != nil {
		return nil, err
	}
	p.Amount = amount
	return &p, nil
}

func insertPayoutTx(ctx context.Context, tx *sql.Tx, p *models.Payout) error {
	_, err := tx.ExecContext(ctx, queryInsertPayout,
		p.Id, p.TransactionId, p.WalletId, p.WalletKind, string(p.CurrencyType), p.Amount.String(),
		p.PaymentMethod, p.PaymentAddress, p.BankName, p.AccountNumber, p.Notes,
		p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert payout: %w", err)
	}
	return nil
}

// ListPendingPayouts returns the oldest payouts in one currency still waiting for the gateway.
// An empty method matches every payment method.
func (s *Service) ListPendingPayouts(ctx context.Context, currency models.CurrencyType, method string, limit int) ([]models.Payout, error) {
	rows, err := s.db.QueryContext(ctx, queryListPendingPayouts, currency, method, method, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending payouts: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var payouts []models.Payout
	for rows.Next() {
		p, err := scanPayout(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payout: %w", err)
		}
		payouts = append(payouts, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating payout rows: %w", err)
	}
	return payouts, nil
}

func (s *Service) MarkPayoutSubmitted(ctx context.Context, payoutId, externalId string) error {
	result, err := s.db.ExecContext(ctx, queryMarkPayoutSubmitted, externalId, time.Now().UTC(), payoutId)
	if err != nil {
		return fmt.Errorf("failed to mark payout submitted: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("payout %s is not pending: %w", payoutId, store.ErrInvalidState)
	}

	zap.L().Info("Payout submitted",
		zap.String("payout_id", payoutId),
		zap.String("external_id", externalId))
	return nil
}

func (s *Service) MarkPayoutFailed(ctx context.Context, payoutId, reason string) error {
	result, err := s.db.ExecContext(ctx, queryMarkPayoutFailed, reason, time.Now().UTC(), payoutId)
	if err != nil {
		return fmt.Errorf("failed to mark payout failed: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("payout %s is not pending: %w", payoutId, store.ErrInvalidState)
	}

	zap.L().Warn("Payout failed",
		zap.String("payout_id", payoutId),
		zap.String("reason", reason))
	return nil
}

// ReversePayout credits a rejected user payout back to its wallet and marks
// the payout failed in the same unit. Admin payouts are not reversible here.
func (s *Service) ReversePayout(ctx context.Context, payoutId, reason string) (*models.WalletTransaction, error) {
	var reversal models.WalletTransaction
	err := s.withTx(ctx, "reverse_payout", func(tx *sql.Tx) error {
		now := time.Now().UTC()

		payout, err := scanPayout(tx.QueryRowContext(ctx, queryGetPayout, payoutId))
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("payout %s: %w", payoutId, store.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to get payout: %w", err)
		}
		if payout.Status != models.PayoutStatusPending {
			return fmt.Errorf("payout %s is %s: %w", payoutId, payout.Status, store.ErrInvalidState)
		}
		if payout.WalletKind != models.WalletKindUser {
			return fmt.Errorf("payout %s belongs to the %s wallet: %w", payoutId, payout.WalletKind, store.ErrInvalidState)
		}

		wallet, err := getWalletByIdTx(ctx, tx, payout.WalletId)
		if err != nil {
			return err
		}

		before := wallet.Balance
		if err := setWalletBalanceTx(ctx, tx, wallet, before.Add(payout.Amount), now); err != nil {
			return err
		}

		reversal = models.WalletTransaction{
			WalletId:        wallet.Id,
			WalletKind:      models.WalletKindUser,
			TransactionType: models.TransactionTypeWithdrawalReversal,
			Amount:          payout.Amount,
			BalanceBefore:   before,
			BalanceAfter:    wallet.Balance,
			CurrencyType:    payout.CurrencyType,
			Status:          models.TransactionStatusCompleted,
			ReferenceId:     fmt.Sprintf("payout_%s_reversal", payout.Id),
			Description:     fmt.Sprintf("Reversal of rejected payout: %s", reason),
			CreatedAt:       now,
		}
		if err := insertTransactionTx(ctx, tx, &reversal); err != nil {
			return err
		}

		result, err := tx.ExecContext(ctx, queryMarkPayoutFailed, reason, now, payout.Id)
		if err != nil {
			return fmt.Errorf("failed to mark payout failed: %w", err)
		}
		return checkRowsAffected(result, "payout")
	})
	if err != nil {
		return nil, fmt.Errorf("error reversing payout: %w", err)
	}

	zap.L().Info("Payout reversed",
		zap.String("payout_id", payoutId),
		zap.String("wallet_id", reversal.WalletId),
		zap.String("amount", reversal.Amount.String()),
		zap.String("new_balance", reversal.BalanceAfter.String()))
	return &reversal, nil
}
