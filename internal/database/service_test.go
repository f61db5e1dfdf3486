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
	"errors"
	"testing"
	"time"

	"microtask-ledger-go/internal/models"
	"microtask-ledger-go/internal/store"

	"github.com/shopspring/decimal"
)

func setupTestDb(t *testing.T) (*Service, func()) {
	t.Helper()

	// A single connection keeps every query on the same in-memory database
	service, err := NewService(context.Background(), models.DatabaseConfig{
		Path:         ":memory:",
		MaxOpenConns: 1,
		MaxIdleConns: 1,
		PingTimeout:  time.Second,
		BusyTimeout:  5 * time.Second,
		TxMaxRetries: 3,
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	return service, service.Close
}

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal %q: %v", s, err)
	}
	return d
}

func fund(t *testing.T, service *Service, userId string, currency models.CurrencyType, amount string) *store.DepositResult {
	t.Helper()
	result, err := service.Deposit(context.Background(), store.DepositParams{
		UserId:       userId,
		CurrencyType: currency,
		NetAmount:    dec(t, amount),
		Commission:   decimal.Zero,
		ReferenceId:  "fund_" + userId + "_" + string(currency) + "_" + amount,
	})
	if err != nil {
		t.Fatalf("Failed to fund wallet: %v", err)
	}
	return result
}

func TestNewService_Validation(t *testing.T) {
	cases := []models.DatabaseConfig{
		{Path: "", MaxOpenConns: 1, PingTimeout: time.Second},
		{Path: ":memory:", MaxOpenConns: 0, PingTimeout: time.Second},
		{Path: ":memory:", MaxOpenConns: 1, MaxIdleConns: -1, PingTimeout: time.Second},
		{Path: ":memory:", MaxOpenConns: 1, PingTimeout: 0},
	}
	for i, cfg := range cases {
		if _, err := NewService(context.Background(), cfg); err == nil {
			t.Errorf("case %d: expected configuration error, got nil", i)
		}
	}
}

func TestSettings_RoundTrip(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()

	if _, err := service.GetSettings(ctx); !errors.Is(err, store.ErrSettingsNotFound) {
		t.Fatalf("Expected ErrSettingsNotFound, got %v", err)
	}

	if err := service.SaveSettings(ctx, dec(t, "0.05"), dec(t, "5")); err != nil {
		t.Fatalf("SaveSettings failed: %v", err)
	}
	if err := service.SaveSettings(ctx, dec(t, "0.10"), dec(t, "2")); err != nil {
		t.Fatalf("SaveSettings overwrite failed: %v", err)
	}

	settings, err := service.GetSettings(ctx)
	if err != nil {
		t.Fatalf("GetSettings failed: %v", err)
	}
	if !settings.CommissionRate.Equal(dec(t, "0.1")) {
		t.Errorf("Expected commission rate 0.1, got %s", settings.CommissionRate)
	}
	if !settings.MinAmount.Equal(dec(t, "2")) {
		t.Errorf("Expected min amount 2, got %s", settings.MinAmount)
	}

	if err := service.SaveSettings(ctx, dec(t, "1.5"), dec(t, "5")); err == nil {
		t.Errorf("Expected rate above 1 to be rejected")
	}
}

func TestCreateUser(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	user, err := service.CreateUser(ctx, "u1", "Dana", "dana@example.com", "employer")
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if user.Role != "employer" {
		t.Errorf("Expected role employer, got %s", user.Role)
	}

	if _, err := service.CreateUser(ctx, "u2", "Dana Again", "dana@example.com", "worker"); err == nil {
		t.Errorf("Expected duplicate email to be rejected")
	}

	if _, err := service.GetUserById(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestEnsureAdminWallets(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if err := service.EnsureAdminWallets(ctx, models.SupportedCurrencies); err != nil {
			t.Fatalf("EnsureAdminWallets failed: %v", err)
		}
	}

	wallets, err := service.GetAdminWallets(ctx)
	if err != nil {
		t.Fatalf("GetAdminWallets failed: %v", err)
	}
	if len(wallets) != 2 {
		t.Fatalf("Expected 2 admin wallets, got %d", len(wallets))
	}
	for _, w := range wallets {
		if !w.Balance.IsZero() || !w.TotalEarned.IsZero() || !w.TotalWithdrawn.IsZero() {
			t.Errorf("Expected empty admin wallet for %s", w.CurrencyType)
		}
	}

	if err := service.EnsureAdminWallets(ctx, []models.CurrencyType{"EUR"}); err == nil {
		t.Errorf("Expected unsupported currency to be rejected")
	}
}

func TestGetUserWallets_CurrencyIsolation(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	fund(t, service, "user1", models.CurrencyUSD, "10")
	fund(t, service, "user1", models.CurrencyUSDTTRC20, "3.5")

	wallets, err := service.GetUserWallets(ctx, "user1")
	if err != nil {
		t.Fatalf("GetUserWallets failed: %v", err)
	}
	if len(wallets) != 2 {
		t.Fatalf("Expected 2 wallets, got %d", len(wallets))
	}

	found := make(map[models.CurrencyType]decimal.Decimal)
	for _, w := range wallets {
		found[w.CurrencyType] = w.Balance
	}
	if !found[models.CurrencyUSD].Equal(dec(t, "10")) {
		t.Errorf("Expected USD balance 10, got %s", found[models.CurrencyUSD])
	}
	if !found[models.CurrencyUSDTTRC20].Equal(dec(t, "3.5")) {
		t.Errorf("Expected USDT_TRC20 balance 3.5, got %s", found[models.CurrencyUSDTTRC20])
	}

	if _, err := service.GetUserWallet(ctx, "user2", models.CurrencyUSD); !errors.Is(err, store.ErrWalletNotFound) {
		t.Errorf("Expected ErrWalletNotFound, got %v", err)
	}
}
