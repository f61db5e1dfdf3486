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
	"testing"
	"time"

	"microtask-ledger-go/internal/database"
	"microtask-ledger-go/internal/models"
	"microtask-ledger-go/internal/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newBareService opens an empty store with no admin settings
func newBareService(t *testing.T) (*LedgerService, *database.Service) {
	t.Helper()

	db, err := database.NewService(context.Background(), models.DatabaseConfig{
		Path:         ":memory:",
		MaxOpenConns: 1,
		MaxIdleConns: 1,
		PingTimeout:  time.Second,
		BusyTimeout:  5 * time.Second,
		TxMaxRetries: 3,
	})
	require.NoError(t, err)
	t.Cleanup(db.Close)

	return NewLedgerService(db), db
}

func newTestService(t *testing.T) (*LedgerService, *database.Service) {
	t.Helper()

	svc, db := newBareService(t)
	require.NoError(t, db.EnsureAdminWallets(context.Background(), models.SupportedCurrencies))
	require.NoError(t, db.SaveSettings(context.Background(), decimal.RequireFromString("0.05"), decimal.NewFromInt(5)))
	return svc, db
}

// seed credits a wallet directly, bypassing commission
func seed(t *testing.T, db *database.Service, userId string, currency models.CurrencyType, amount string) *models.Wallet {
	t.Helper()
	result, err := db.Deposit(context.Background(), store.DepositParams{
		UserId:       userId,
		CurrencyType: currency,
		NetAmount:    decimal.RequireFromString(amount),
		Commission:   decimal.Zero,
		ReferenceId:  "seed_" + userId + "_" + string(currency),
	})
	require.NoError(t, err)
	return &result.Wallet
}

func requireCode(t *testing.T, err error, code Code) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, code, CodeOf(err), "unexpected error: %v", err)
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeInternal, CodeOf(assert.AnError))
	assert.Equal(t, CodeForbidden, CodeOf(newError(CodeForbidden, "op", "nope")))

	wrapped := fromStore("op", store.ErrInsufficientBalance, "employer")
	assert.Equal(t, CodeInsufficientBalance, wrapped.Code)
	assert.Equal(t, "insufficient employer balance", wrapped.Message)
	assert.ErrorIs(t, wrapped, store.ErrInsufficientBalance)

	internal := fromStore("op", assert.AnError, "user")
	assert.Equal(t, CodeInternal, internal.Code)
	assert.Equal(t, "internal server error", internal.Message)
}

func TestHealthCheck(t *testing.T) {
	svc, _ := newTestService(t)
	assert.NoError(t, svc.HealthCheck(context.Background()))
}

func TestGetTransactionHistory_ClampsAndChecksOwner(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	wallet := seed(t, db, "worker", models.CurrencyUSD, "20")

	history, err := svc.GetTransactionHistory(ctx, wallet.Id, "worker", 0, -3)
	require.NoError(t, err)
	assert.Len(t, history, 1)

	_, err = svc.GetTransactionHistory(ctx, wallet.Id, "someone-else", 10, 0)
	requireCode(t, err, CodeForbidden)

	_, err = svc.GetTransactionHistory(ctx, "missing", "", 10, 0)
	requireCode(t, err, CodeWalletNotFound)
}

func TestGetWallets_EmptyIsNotNil(t *testing.T) {
	svc, _ := newTestService(t)

	wallets, err := svc.GetWallets(context.Background(), "nobody")
	require.NoError(t, err)
	assert.NotNil(t, wallets)
	assert.Empty(t, wallets)

	_, err = svc.GetWallets(context.Background(), "")
	requireCode(t, err, CodeInvalidRequest)
}
