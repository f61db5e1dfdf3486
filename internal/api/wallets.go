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
	"fmt"

	"microtask-ledger-go/internal/commission"
	"microtask-ledger-go/internal/models"
	"microtask-ledger-go/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Deposit credits a user's wallet with the amount minus platform commission
func (s *LedgerService) Deposit(ctx context.Context, req models.DepositRequest) (*models.DepositResponse, error) {
	const op = "Deposit"

	if req.UserId == "" {
		return nil, newError(CodeInvalidRequest, op, "user id is required")
	}
	if err := validateCurrency(op, req.CurrencyType); err != nil {
		return nil, err
	}
	if err := validateAmount(op, req.Amount, req.CurrencyType); err != nil {
		return nil, err
	}

	// Settings are read once so the rate cannot change mid-operation
	settings, err := s.store.GetSettings(ctx)
	if err != nil {
		return nil, fromStore(op, err, "admin")
	}
	if err := checkMinimum(op, req.Amount, settings.MinAmount, req.CurrencyType); err != nil {
		return nil, err
	}

	net, fee, err := commission.Compute(req.Amount, settings.CommissionRate)
	if err != nil {
		return nil, newInternal(op, err)
	}

	referenceId := "deposit_" + uuid.New().String()
	if req.TransactionHash != "" {
		referenceId = "deposit_" + req.TransactionHash
	}

	description := fmt.Sprintf("Deposit of %s %s (commission %s)", req.Amount, req.CurrencyType, fee)
	if req.Notes != "" {
		description += ": " + req.Notes
	}

	zap.L().Info("Processing deposit",
		zap.String("user_id", req.UserId),
		zap.String("currency", string(req.CurrencyType)),
		zap.String("gross_amount", req.Amount.String()),
		zap.String("commission_rate", settings.CommissionRate.String()),
		zap.String("commission", fee.String()),
		zap.String("net_amount", net.String()))

	result, err := s.store.Deposit(ctx, store.DepositParams{
		UserId:          req.UserId,
		CurrencyType:    req.CurrencyType,
		NetAmount:       net,
		Commission:      fee,
		ReferenceId:     referenceId,
		Description:     description,
		TransactionHash: req.TransactionHash,
	})
	if err != nil {
		apiErr := fromStore(op, err, "user")
		if apiErr.Code == CodeInternal {
			zap.L().Error("Deposit processing failed", zap.String("user_id", req.UserId), zap.Error(err))
		}
		return nil, apiErr
	}

	return &models.DepositResponse{
		TransactionId:    result.Transaction.Id,
		ReferenceId:      referenceId,
		DepositedAmount:  req.Amount,
		CommissionRate:   settings.CommissionRate,
		CommissionAmount: fee,
		NetAmount:        net,
		CurrencyType:     req.CurrencyType,
		NewBalance:       result.Wallet.Balance,
		CreatedAt:        result.Transaction.CreatedAt,
		TransactionHash:  req.TransactionHash,
	}, nil
}

// Withdraw debits a user's wallet and queues a payout. No commission is charged.
func (s *LedgerService) Withdraw(ctx context.Context, req models.WithdrawRequest) (*models.WithdrawResponse, error) {
	const op = "Withdraw"

	if req.UserId == "" {
		return nil, newError(CodeInvalidRequest, op, "user id is required")
	}
	if err := validateCurrency(op, req.CurrencyType); err != nil {
		return nil, err
	}
	if err := validateAmount(op, req.Amount, req.CurrencyType); err != nil {
		return nil, err
	}
	if req.PaymentMethod == "" || req.PaymentAddress == "" {
		return nil, newError(CodeInvalidPaymentDetails, op, "payment method and payment address are required")
	}

	minimum, err := s.minAmount(ctx, op)
	if err != nil {
		return nil, err
	}
	if err := checkMinimum(op, req.Amount, minimum, req.CurrencyType); err != nil {
		return nil, err
	}

	result, err := s.store.Withdraw(ctx, store.WithdrawParams{
		UserId:         req.UserId,
		CurrencyType:   req.CurrencyType,
		Amount:         req.Amount,
		ReferenceId:    "withdrawal_" + uuid.New().String(),
		Description:    fmt.Sprintf("Withdrawal via %s to %s", req.PaymentMethod, req.PaymentAddress),
		PaymentMethod:  req.PaymentMethod,
		PaymentAddress: req.PaymentAddress,
		Notes:          req.Notes,
	})
	if err != nil {
		apiErr := fromStore(op, err, "user")
		if apiErr.Code == CodeInsufficientBalance {
			apiErr.Message = fmt.Sprintf("insufficient user balance to withdraw %s %s", req.Amount, req.CurrencyType)
		}
		return nil, apiErr
	}

	return &models.WithdrawResponse{
		TransactionId:   result.Transaction.Id,
		PayoutId:        result.Payout.Id,
		Amount:          req.Amount,
		CurrencyType:    req.CurrencyType,
		PaymentMethod:   req.PaymentMethod,
		PaymentAddress:  req.PaymentAddress,
		PreviousBalance: result.PreviousBalance,
		NewBalance:      result.Wallet.Balance,
		Status:          result.Payout.Status,
		CreatedAt:       result.Transaction.CreatedAt,
	}, nil
}

// AdminWithdraw pays platform commission out to an external account
func (s *LedgerService) AdminWithdraw(ctx context.Context, req models.AdminWithdrawRequest) (*models.AdminWithdrawResponse, error) {
	const op = "AdminWithdraw"

	if err := validateCurrency(op, req.CurrencyType); err != nil {
		return nil, err
	}
	if err := validateAmount(op, req.Amount, req.CurrencyType); err != nil {
		return nil, err
	}
	if req.PaymentMethod == "" || req.PaymentAddress == "" {
		return nil, newError(CodeInvalidPaymentDetails, op, "payment method and payment address are required")
	}

	minimum, err := s.minAmount(ctx, op)
	if err != nil {
		return nil, err
	}
	if err := checkMinimum(op, req.Amount, minimum, req.CurrencyType); err != nil {
		return nil, err
	}

	result, err := s.store.AdminWithdraw(ctx, store.AdminWithdrawParams{
		CurrencyType:   req.CurrencyType,
		Amount:         req.Amount,
		ReferenceId:    "admin_withdrawal_" + uuid.New().String(),
		Description:    fmt.Sprintf("Admin withdrawal via %s to %s", req.PaymentMethod, req.PaymentAddress),
		PaymentMethod:  req.PaymentMethod,
		PaymentAddress: req.PaymentAddress,
		BankName:       req.BankName,
		AccountNumber:  req.AccountNumber,
		Notes:          req.Notes,
	})
	if err != nil {
		apiErr := fromStore(op, err, "admin")
		if apiErr.Code == CodeInsufficientBalance {
			apiErr.Message = fmt.Sprintf("insufficient admin balance to withdraw %s %s", req.Amount, req.CurrencyType)
		}
		return nil, apiErr
	}

	return &models.AdminWithdrawResponse{
		Withdrawal: models.AdminWithdrawal{
			Id:              result.Payout.Id,
			TransactionId:   result.Transaction.Id,
			Amount:          req.Amount,
			CurrencyType:    req.CurrencyType,
			PaymentMethod:   req.PaymentMethod,
			PaymentAddress:  req.PaymentAddress,
			BankName:        req.BankName,
			AccountNumber:   req.AccountNumber,
			PreviousBalance: result.PreviousBalance,
			NewBalance:      result.AdminWallet.Balance,
			TotalWithdrawn:  result.AdminWallet.TotalWithdrawn,
			CreatedAt:       result.Transaction.CreatedAt,
		},
	}, nil
}
