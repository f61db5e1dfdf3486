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

package api

import (
	"context"
	"errors"
	"fmt"
	"time"

	"microtask-ledger-go/internal/models"
	"microtask-ledger-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DefaultMinAmount applies to withdrawals when no settings row exists yet
var DefaultMinAmount = decimal.NewFromInt(5)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// LedgerService validates requests and turns them into ledger operations
type LedgerService struct {
	store store.LedgerStore
	now   func() time.Time
}

func NewLedgerService(ledger store.LedgerStore) *LedgerService {
	return &LedgerService{
		store: ledger,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (s *LedgerService) HealthCheck(ctx context.Context) error {
	_, err := s.store.GetUsers(ctx)
	if err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}

func validateCurrency(op string, currency models.CurrencyType) *Error {
	if !currency.Valid() {
		return newError(CodeInvalidCurrencyType, op, "unsupported currency type %q", currency)
	}
	return nil
}

// validateAmount rejects non-positive amounts and amounts more precise than the currency allows
func validateAmount(op string, amount decimal.Decimal, currency models.CurrencyType) *Error {
	if !amount.IsPositive() {
		return newError(CodeInvalidAmount, op, "amount must be greater than zero")
	}
	if !amount.Equal(amount.Round(currency.Precision())) {
		return newError(CodeInvalidAmount, op, "amount has more than %d decimal places for %s", currency.Precision(), currency)
	}
	return nil
}

func checkMinimum(op string, amount, minimum decimal.Decimal, currency models.CurrencyType) *Error {
	if amount.LessThan(minimum) {
		return newError(CodeAmountTooLow, op, "minimum amount is %s %s", minimum, currency)
	}
	return nil
}

// minAmount reads the configured minimum, falling back to DefaultMinAmount
func (s *LedgerService) minAmount(ctx context.Context, op string) (decimal.Decimal, error) {
	settings, err := s.store.GetSettings(ctx)
	if errors.Is(err, store.ErrSettingsNotFound) {
		return DefaultMinAmount, nil
	}
	if err != nil {
		return decimal.Zero, newInternal(op, err)
	}
	return settings.MinAmount, nil
}

func (s *LedgerService) GetWallets(ctx context.Context, userId string) ([]models.Wallet, error) {
	const op = "GetWallets"
	if userId == "" {
		return nil, newError(CodeInvalidRequest, op, "user id is required")
	}

	wallets, err := s.store.GetUserWallets(ctx, userId)
	if err != nil {
		zap.L().Error("Failed to get wallets", zap.String("user_id", userId), zap.Error(err))
		return nil, newInternal(op, err)
	}
	if wallets == nil {
		wallets = []models.Wallet{}
	}
	return wallets, nil
}

// GetWallet returns a wallet. A non-empty requesterId must own the wallet.
func (s *LedgerService) GetWallet(ctx context.Context, walletId, requesterId string) (*models.Wallet, error) {
	const op = "GetWallet"
	if walletId == "" {
		return nil, newError(CodeInvalidRequest, op, "wallet id is required")
	}

	wallet, err := s.store.GetWallet(ctx, walletId)
	if err != nil {
		return nil, fromStore(op, err, "user")
	}
	if requesterId != "" && wallet.UserId != requesterId {
		return nil, newError(CodeForbidden, op, "wallet belongs to another user")
	}
	return wallet, nil
}

func (s *LedgerService) GetAdminWallets(ctx context.Context) ([]models.AdminWallet, error) {
	wallets, err := s.store.GetAdminWallets(ctx)
	if err != nil {
		zap.L().Error("Failed to get admin wallets", zap.Error(err))
		return nil, newInternal("GetAdminWallets", err)
	}
	if wallets == nil {
		wallets = []models.AdminWallet{}
	}
	return wallets, nil
}

// GetTransactionHistory returns a page of a wallet's ledger, newest first
func (s *LedgerService) GetTransactionHistory(ctx context.Context, walletId, requesterId string, limit, offset int) ([]models.WalletTransaction, error) {
	const op = "GetTransactionHistory"

	if _, err := s.GetWallet(ctx, walletId, requesterId); err != nil {
		return nil, err
	}

	if limit <= 0 || limit > maxHistoryLimit {
		limit = defaultHistoryLimit
	}
	if offset < 0 {
		offset = 0
	}

	transactions, err := s.store.GetTransactionHistory(ctx, walletId, limit, offset)
	if err != nil {
		zap.L().Error("Failed to get transaction history", zap.String("wallet_id", walletId), zap.Error(err))
		return nil, newInternal(op, err)
	}
	if transactions == nil {
		transactions = []models.WalletTransaction{}
	}
	return transactions, nil
}

// GetEarnings totals the task payments a worker has received in one currency
func (s *LedgerService) GetEarnings(ctx context.Context, userId string, currency models.CurrencyType) (*models.EarningsResponse, error) {
	const op = "GetEarnings"
	if userId == "" {
		return nil, newError(CodeInvalidRequest, op, "user id is required")
	}
	if err := validateCurrency(op, currency); err != nil {
		return nil, err
	}

	total, err := s.store.GetEarnings(ctx, userId, currency)
	if err != nil {
		return nil, newInternal(op, err)
	}
	return &models.EarningsResponse{UserId: userId, CurrencyType: currency, TotalEarned: total}, nil
}
