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

// Deposit credits the net amount to the user's wallet and the commission to
// the platform wallet in one unit. Both wallets are created on first use.
func (s *Service) Deposit(ctx context.Context, params store.DepositParams) (*store.DepositResult, error) {
	if params.NetAmount.IsNegative() || params.Commission.IsNegative() {
		return nil, fmt.Errorf("deposit amounts cannot be negative: net=%s commission=%s", params.NetAmount, params.Commission)
	}
	if !params.NetAmount.Add(params.Commission).IsPositive() {
		return nil, fmt.Errorf("deposit amount must be positive")
	}

	zap.L().Info("Processing deposit",
		zap.String("user_id", params.UserId),
		zap.String("currency", string(params.CurrencyType)),
		zap.String("net_amount", params.NetAmount.String()),
		zap.String("commission", params.Commission.String()),
		zap.String("reference_id", params.ReferenceId))

	var result store.DepositResult
	err := s.withTx(ctx, "deposit", func(tx *sql.Tx) error {
		now := time.Now().UTC()

		wallet, err := s.getOrCreateWalletTx(ctx, tx, params.UserId, params.CurrencyType, now)
		if err != nil {
			return err
		}

		before := wallet.Balance
		after := before.Add(params.NetAmount)
		if err := setWalletBalanceTx(ctx, tx, wallet, after, now); err != nil {
			return err
		}

		credit := models.WalletTransaction{
			WalletId:        wallet.Id,
			WalletKind:      models.WalletKindUser,
			TransactionType: models.TransactionTypeDeposit,
			Amount:          params.NetAmount,
			BalanceBefore:   before,
			BalanceAfter:    after,
			CurrencyType:    params.CurrencyType,
			Status:          models.TransactionStatusCompleted,
			ReferenceId:     params.ReferenceId,
			Description:     params.Description,
			TransactionHash: params.TransactionHash,
			CreatedAt:       now,
		}
		if err := insertTransactionTx(ctx, tx, &credit); err != nil {
			return err
		}

		admin, err := s.getOrCreateAdminWalletTx(ctx, tx, params.CurrencyType, now)
		if err != nil {
			return err
		}

		if params.Commission.IsPositive() {
			adminBefore := admin.Balance
			err := setAdminWalletTx(ctx, tx, admin,
				admin.Balance.Add(params.Commission),
				admin.TotalEarned.Add(params.Commission),
				admin.TotalWithdrawn,
				now)
			if err != nil {
				return err
			}

			fee := models.WalletTransaction{
				WalletId:        admin.Id,
				WalletKind:      models.WalletKindAdmin,
				TransactionType: models.TransactionTypeCommission,
				Amount:          params.Commission,
				BalanceBefore:   adminBefore,
				BalanceAfter:    admin.Balance,
				CurrencyType:    params.CurrencyType,
				Status:          models.TransactionStatusCompleted,
				ReferenceId:     params.ReferenceId,
				Description:     fmt.Sprintf("Commission on deposit by user %s", params.UserId),
				TransactionHash: params.TransactionHash,
				CreatedAt:       now,
			}
			if err := insertTransactionTx(ctx, tx, &fee); err != nil {
				return err
			}
		}

		result = store.DepositResult{Wallet: *wallet, Transaction: credit, AdminWallet: *admin}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error processing deposit: %w", err)
	}

	zap.L().Info("Deposit processed successfully",
		zap.String("user_id", params.UserId),
		zap.String("wallet_id", result.Wallet.Id),
		zap.String("new_balance", result.Wallet.Balance.String()),
		zap.String("admin_balance", result.AdminWallet.Balance.String()))
	return &result, nil
}

// Withdraw debits the user's wallet and queues a pending payout for the
// external payment system.
func (s *Service) Withdraw(ctx context.Context, params store.WithdrawParams) (*store.WithdrawResult, error) {
	if !params.Amount.IsPositive() {
		return nil, fmt.Errorf("withdrawal amount must be positive, got %s", params.Amount)
	}

	zap.L().Info("Processing withdrawal",
		zap.String("user_id", params.UserId),
		zap.String("currency", string(params.CurrencyType)),
		zap.String("amount", params.Amount.String()),
		zap.String("payment_method", params.PaymentMethod))

	var result store.WithdrawResult
	err := s.withTx(ctx, "withdraw", func(tx *sql.Tx) error {
		now := time.Now().UTC()

		wallet, err := scanWallet(tx.QueryRowContext(ctx, queryGetUserWallet, params.UserId, string(params.CurrencyType)))
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%s wallet for user %s: %w", params.CurrencyType, params.UserId, store.ErrWalletNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to get wallet: %w", err)
		}

		before := wallet.Balance
		if before.LessThan(params.Amount) {
			return fmt.Errorf("user %s has %s %s, withdrawal needs %s: %w",
				params.UserId, before, params.CurrencyType, params.Amount, store.ErrInsufficientBalance)
		}

		if err := setWalletBalanceTx(ctx, tx, wallet, before.Sub(params.Amount), now); err != nil {
			return err
		}

		debit := models.WalletTransaction{
			WalletId:        wallet.Id,
			WalletKind:      models.WalletKindUser,
			TransactionType: models.TransactionTypeWithdrawal,
			Amount:          params.Amount.Neg(),
			BalanceBefore:   before,
			BalanceAfter:    wallet.Balance,
			CurrencyType:    params.CurrencyType,
			Status:          models.TransactionStatusCompleted,
			ReferenceId:     params.ReferenceId,
			Description:     params.Description,
			CreatedAt:       now,
		}
		if err := insertTransactionTx(ctx, tx, &debit); err != nil {
			return err
		}

		payout := models.Payout{
			Id:             uuid.New().String(),
			TransactionId:  debit.Id,
			WalletId:       wallet.Id,
			WalletKind:     models.WalletKindUser,
			CurrencyType:   params.CurrencyType,
			Amount:         params.Amount,
			PaymentMethod:  params.PaymentMethod,
			PaymentAddress: params.PaymentAddress,
			Notes:          params.Notes,
			Status:         models.PayoutStatusPending,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := insertPayoutTx(ctx, tx, &payout); err != nil {
			return err
		}

		result = store.WithdrawResult{Wallet: *wallet, PreviousBalance: before, Transaction: debit, Payout: payout}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error processing withdrawal: %w", err)
	}

	zap.L().Info("Withdrawal processed successfully",
		zap.String("user_id", params.UserId),
		zap.String("payout_id", result.Payout.Id),
		zap.String("previous_balance", result.PreviousBalance.String()),
		zap.String("new_balance", result.Wallet.Balance.String()))
	return &result, nil
}

// Transfer moves funds between two wallets of the same currency
func (s *Service) Transfer(ctx context.Context, params store.TransferParams) (*store.TransferResult, error) {
	if params.FromWalletId == params.ToWalletId {
		return nil, fmt.Errorf("wallet %s: %w", params.FromWalletId, store.ErrSameWallet)
	}
	if !params.Amount.IsPositive() {
		return nil, fmt.Errorf("transfer amount must be positive, got %s", params.Amount)
	}

	var result store.TransferResult
	err := s.withTx(ctx, "transfer", func(tx *sql.Tx) error {
		now := time.Now().UTC()

		from, err := getWalletByIdTx(ctx, tx, params.FromWalletId)
		if err != nil {
			return err
		}
		to, err := getWalletByIdTx(ctx, tx, params.ToWalletId)
		if err != nil {
			return err
		}
		if from.CurrencyType != to.CurrencyType {
			return fmt.Errorf("cannot move %s into a %s wallet: %w", from.CurrencyType, to.CurrencyType, store.ErrCurrencyMismatch)
		}
		if from.Balance.LessThan(params.Amount) {
			return fmt.Errorf("wallet %s has %s %s, transfer needs %s: %w",
				from.Id, from.Balance, from.CurrencyType, params.Amount, store.ErrInsufficientBalance)
		}

		result, err = moveFundsTx(ctx, tx, from, to, params.Amount, params.ReferenceId, params.Description, now)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("error processing transfer: %w", err)
	}

	zap.L().Info("Transfer processed successfully",
		zap.String("from_wallet", result.From.Id),
		zap.String("to_wallet", result.To.Id),
		zap.String("amount", params.Amount.String()),
		zap.String("reference_id", params.ReferenceId))
	return &result, nil
}

// PayTask pays a task price from the employer's wallet to the worker's
// wallet. The worker wallet is created on first payment.
func (s *Service) PayTask(ctx context.Context, params store.TaskPaymentParams) (*store.TransferResult, error) {
	if params.EmployerId == params.WorkerId {
		return nil, fmt.Errorf("employer %s cannot pay themselves: %w", params.EmployerId, store.ErrSameWallet)
	}
	if !params.Amount.IsPositive() {
		return nil, fmt.Errorf("task payment must be positive, got %s", params.Amount)
	}

	var result store.TransferResult
	err := s.withTx(ctx, "pay_task", func(tx *sql.Tx) error {
		now := time.Now().UTC()

		employer, err := scanWallet(tx.QueryRowContext(ctx, queryGetUserWallet, params.EmployerId, string(params.CurrencyType)))
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("employer %s has no %s wallet: %w", params.EmployerId, params.CurrencyType, store.ErrWalletNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to get employer wallet: %w", err)
		}
		if employer.Balance.LessThan(params.Amount) {
			return fmt.Errorf("employer %s has %s %s, task payment needs %s: %w",
				params.EmployerId, employer.Balance, params.CurrencyType, params.Amount, store.ErrInsufficientBalance)
		}

		worker, err := s.getOrCreateWalletTx(ctx, tx, params.WorkerId, params.CurrencyType, now)
		if err != nil {
			return err
		}

		result, err = moveFundsTx(ctx, tx, employer, worker, params.Amount, params.ReferenceId, params.Description, now)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("error processing task payment: %w", err)
	}

	zap.L().Info("Task payment processed successfully",
		zap.String("employer_id", params.EmployerId),
		zap.String("worker_id", params.WorkerId),
		zap.String("amount", params.Amount.String()),
		zap.String("currency", string(params.CurrencyType)),
		zap.String("reference_id", params.ReferenceId))
	return &result, nil
}

// AdminWithdraw pays commission out of the platform wallet and queues a payout
func (s *Service) AdminWithdraw(ctx context.Context, params store.AdminWithdrawParams) (*store.AdminWithdrawResult, error) {
	if !params.Amount.IsPositive() {
		return nil, fmt.Errorf("withdrawal amount must be positive, got %s", params.Amount)
	}

	var result store.AdminWithdrawResult
	err := s.withTx(ctx, "admin_withdraw", func(tx *sql.Tx) error {
		now := time.Now().UTC()

		admin, err := scanAdminWallet(tx.QueryRowContext(ctx, queryGetAdminWallet, string(params.CurrencyType)))
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("admin %s wallet: %w", params.CurrencyType, store.ErrWalletNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to get admin wallet: %w", err)
		}

		before := admin.Balance
		if before.LessThan(params.Amount) {
			return fmt.Errorf("admin wallet has %s %s, withdrawal needs %s: %w",
				before, params.CurrencyType, params.Amount, store.ErrInsufficientBalance)
		}

		err = setAdminWalletTx(ctx, tx, admin,
			before.Sub(params.Amount),
			admin.TotalEarned,
			admin.TotalWithdrawn.Add(params.Amount),
			now)
		if err != nil {
			return err
		}

		debit := models.WalletTransaction{
			WalletId:        admin.Id,
			WalletKind:      models.WalletKindAdmin,
			TransactionType: models.TransactionTypeWithdrawal,
			Amount:          params.Amount.Neg(),
			BalanceBefore:   before,
			BalanceAfter:    admin.Balance,
			CurrencyType:    params.CurrencyType,
			Status:          models.TransactionStatusCompleted,
			ReferenceId:     params.ReferenceId,
			Description:     params.Description,
			CreatedAt:       now,
		}
		if err := insertTransactionTx(ctx, tx, &debit); err != nil {
			return err
		}

		payout := models.Payout{
			Id:             uuid.New().String(),
			TransactionId:  debit.Id,
			WalletId:       admin.Id,
			WalletKind:     models.WalletKindAdmin,
			CurrencyType:   params.CurrencyType,
			Amount:         params.Amount,
			PaymentMethod:  params.PaymentMethod,
			PaymentAddress: params.PaymentAddress,
			BankName:       params.BankName,
			AccountNumber:  params.AccountNumber,
			Notes:          params.Notes,
			Status:         models.PayoutStatusPending,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := insertPayoutTx(ctx, tx, &payout); err != nil {
			return err
		}

		result = store.AdminWithdrawResult{AdminWallet: *admin, PreviousBalance: before, Transaction: debit, Payout: payout}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error processing admin withdrawal: %w", err)
	}

	zap.L().Info("Admin withdrawal processed successfully",
		zap.String("currency", string(params.CurrencyType)),
		zap.String("amount", params.Amount.String()),
		zap.String("new_balance", result.AdminWallet.Balance.String()),
		zap.String("total_withdrawn", result.AdminWallet.TotalWithdrawn.String()))
	return &result, nil
}

func getWalletByIdTx(ctx context.Context, tx *sql.Tx, walletId string) (*models.Wallet, error) {
	wallet, err := scanWallet(tx.QueryRowContext(ctx, queryGetWallet, walletId))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("wallet %s: %w", walletId, store.ErrWalletNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	return wallet, nil
}

// moveFundsTx writes the debit/credit pair for a transfer. Both rows share
// the reference and timestamp, and their amounts sum to zero.
func moveFundsTx(ctx context.Context, tx *sql.Tx, from, to *models.Wallet, amount decimal.Decimal, referenceId, description string, now time.Time) (store.TransferResult, error) {
	fromBefore := from.Balance
	if err := setWalletBalanceTx(ctx, tx, from, fromBefore.Sub(amount), now); err != nil {
		return store.TransferResult{}, err
	}
	toBefore := to.Balance
	if err := setWalletBalanceTx(ctx, tx, to, toBefore.Add(amount), now); err != nil {
		return store.TransferResult{}, err
	}

	debit := models.WalletTransaction{
		WalletId:        from.Id,
		WalletKind:      models.WalletKindUser,
		TransactionType: models.TransactionTypeTaskPayment,
		Amount:          amount.Neg(),
		BalanceBefore:   fromBefore,
		BalanceAfter:    from.Balance,
		CurrencyType:    from.CurrencyType,
		Status:          models.TransactionStatusCompleted,
		ReferenceId:     referenceId,
		Description:     description,
		CreatedAt:       now,
	}
	if err := insertTransactionTx(ctx, tx, &debit); err != nil {
		return store.TransferResult{}, err
	}

	credit := debit
	credit.Id = 0
	credit.WalletId = to.Id
	credit.Amount = amount
	credit.BalanceBefore = toBefore
	credit.BalanceAfter = to.Balance
	if err := insertTransactionTx(ctx, tx, &credit); err != nil {
		return store.TransferResult{}, err
	}

	return store.TransferResult{From: *from, To: *to, Debit: debit, Credit: credit}, nil
}
