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

	"microtask-ledger-go/internal/models"
	"microtask-ledger-go/internal/store"
)

func withdrawForPayout(t *testing.T, service *Service) *store.WithdrawResult {
	t.Helper()
	fund(t, service, "user1", models.CurrencyUSDTTRC20, "40")

	result, err := service.Withdraw(context.Background(), store.WithdrawParams{
		UserId:         "user1",
		CurrencyType:   models.CurrencyUSDTTRC20,
		Amount:         dec(t, "25.5"),
		ReferenceId:    "withdrawal_1",
		PaymentMethod:  "crypto",
		PaymentAddress: "TXYZ",
	})
	if err != nil {
		t.Fatalf("Withdraw failed: %v", err)
	}
	return result
}

func TestReversePayout_CreditsBack(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	withdrawal := withdrawForPayout(t, service)

	reversal, err := service.ReversePayout(ctx, withdrawal.Payout.Id, "address rejected")
	if err != nil {
		t.Fatalf("ReversePayout failed: %v", err)
	}
	if reversal.TransactionType != models.TransactionTypeWithdrawalReversal || !reversal.Amount.Equal(dec(t, "25.5")) {
		t.Errorf("Unexpected reversal row: %+v", reversal)
	}
	if reversal.ReferenceId != "payout_"+withdrawal.Payout.Id+"_reversal" {
		t.Errorf("Unexpected reversal reference %s", reversal.ReferenceId)
	}

	wallet, err := service.GetWallet(ctx, withdrawal.Wallet.Id)
	if err != nil {
		t.Fatalf("GetWallet failed: %v", err)
	}
	if !wallet.Balance.Equal(dec(t, "40")) {
		t.Errorf("Expected balance restored to 40, got %s", wallet.Balance)
	}
	if err := service.ReconcileWallet(ctx, wallet.Id); err != nil {
		t.Errorf("ReconcileWallet failed: %v", err)
	}

	pending, err := service.ListPendingPayouts(ctx, models.CurrencyUSDTTRC20, "", 10)
	if err != nil {
		t.Fatalf("ListPendingPayouts failed: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("Expected no pending payouts, got %d", len(pending))
	}

	if _, err := service.ReversePayout(ctx, withdrawal.Payout.Id, "again"); !errors.Is(err, store.ErrInvalidState) {
		t.Errorf("Expected ErrInvalidState on second reversal, got %v", err)
	}
}

func TestMarkPayoutSubmitted(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	withdrawal := withdrawForPayout(t, service)

	if err := service.MarkPayoutSubmitted(ctx, withdrawal.Payout.Id, "activity-1"); err != nil {
		t.Fatalf("MarkPayoutSubmitted failed: %v", err)
	}
	if err := service.MarkPayoutFailed(ctx, withdrawal.Payout.Id, "late failure"); !errors.Is(err, store.ErrInvalidState) {
		t.Errorf("Expected ErrInvalidState for a submitted payout, got %v", err)
	}
	if _, err := service.ReversePayout(ctx, withdrawal.Payout.Id, "late failure"); !errors.Is(err, store.ErrInvalidState) {
		t.Errorf("Expected ErrInvalidState reversing a submitted payout, got %v", err)
	}
}

func TestReversePayout_AdminPayoutRejected(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	_, err := service.Deposit(ctx, store.DepositParams{
		UserId:       "user1",
		CurrencyType: models.CurrencyUSD,
		NetAmount:    dec(t, "95"),
		Commission:   dec(t, "5"),
		ReferenceId:  "deposit_1",
	})
	if err != nil {
		t.Fatalf("Deposit failed: %v", err)
	}

	result, err := service.AdminWithdraw(ctx, store.AdminWithdrawParams{
		CurrencyType:   models.CurrencyUSD,
		Amount:         dec(t, "5"),
		ReferenceId:    "admin_withdrawal_1",
		PaymentMethod:  "bank",
		PaymentAddress: "acct",
	})
	if err != nil {
		t.Fatalf("AdminWithdraw failed: %v", err)
	}

	if _, err := service.ReversePayout(ctx, result.Payout.Id, "rejected"); !errors.Is(err, store.ErrInvalidState) {
		t.Fatalf("Expected ErrInvalidState for admin payout reversal, got %v", err)
	}
	if err := service.MarkPayoutFailed(ctx, result.Payout.Id, "rejected"); err != nil {
		t.Fatalf("MarkPayoutFailed failed: %v", err)
	}
	if err := service.ReconcileAdminWallet(ctx, models.CurrencyUSD); err != nil {
		t.Errorf("ReconcileAdminWallet failed: %v", err)
	}
}
