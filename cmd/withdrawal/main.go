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

	"microtask-ledger-go/internal/api"
	"microtask-ledger-go/internal/common"
	"microtask-ledger-go/internal/config"
	"microtask-ledger-go/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type withdrawalRequest struct {
	email       string
	currency    models.CurrencyType
	amount      decimal.Decimal
	method      string
	destination string
}

func parseAndValidateFlags() (*withdrawalRequest, error) {
	emailFlag := flag.String("email", "", "User email (required)")
	currencyFlag := flag.String("currency", string(models.CurrencyUSDTTRC20), "Wallet currency: USD or USDT_TRC20")
	amountFlag := flag.String("amount", "", "Amount to withdraw (required)")
	methodFlag := flag.String("method", "crypto", "Payment method, e.g. crypto or bank_transfer")
	destinationFlag := flag.String("destination", "", "Destination address or account (required)")
	flag.Parse()

	if *emailFlag == "" || *amountFlag == "" || *destinationFlag == "" {
		return nil, fmt.Errorf("flags are required: --email, --amount, --destination")
	}

	amount, err := decimal.NewFromString(*amountFlag)
	if err != nil {
		return nil, fmt.Errorf("invalid amount format: %w", err)
	}

	return &withdrawalRequest{
		email:       *emailFlag,
		currency:    models.CurrencyType(*currencyFlag),
		amount:      amount,
		method:      *methodFlag,
		destination: *destinationFlag,
	}, nil
}

func printWithdrawalFailed(user *models.User, req *withdrawalRequest, err error) {
	common.PrintHeader("WITHDRAWAL FAILED", common.DefaultWidth)
	fmt.Printf("User:        %s (%s)\n", user.Name, user.Email)
	fmt.Printf("Amount:      %s\n", common.FormatAmount(req.amount, req.currency))
	fmt.Printf("Destination: %s\n", req.destination)
	fmt.Printf("Code:        %s\n", api.CodeOf(err))
	fmt.Printf("Error:       %v\n", err)
	common.PrintSeparator("=", common.DefaultWidth)
}

func printWithdrawalSummary(user *models.User, resp *models.WithdrawResponse) {
	common.PrintHeader("WITHDRAWAL QUEUED", common.DefaultWidth)
	fmt.Printf("User:             %s (%s)\n", user.Name, user.Email)
	fmt.Printf("Payout ID:        %s\n", resp.PayoutId)
	fmt.Printf("Amount:           %s\n", common.FormatAmount(resp.Amount, resp.CurrencyType))
	fmt.Printf("Previous Balance: %s\n", common.FormatAmount(resp.PreviousBalance, resp.CurrencyType))
	fmt.Printf("New Balance:      %s\n", common.FormatAmount(resp.NewBalance, resp.CurrencyType))
	fmt.Printf("Destination:      %s (%s)\n", resp.PaymentAddress, resp.PaymentMethod)
	fmt.Printf("Status:           %s\n", resp.Status)
	common.PrintSeparator("=", common.DefaultWidth)
	fmt.Println()
}

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	req, err := parseAndValidateFlags()
	if err != nil {
		zap.L().Fatal("Invalid flags", zap.Error(err))
	}

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load config", zap.Error(err))
	}

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	user, err := services.DbService.GetUserByEmail(ctx, req.email)
	if err != nil {
		zap.L().Fatal("User not found", zap.String("email", req.email), zap.Error(err))
	}

	resp, err := services.LedgerService.Withdraw(ctx, models.WithdrawRequest{
		UserId:         user.Id,
		Amount:         req.amount,
		CurrencyType:   req.currency,
		PaymentMethod:  req.method,
		PaymentAddress: req.destination,
		Notes:          "cli withdrawal",
	})
	if err != nil {
		printWithdrawalFailed(user, req, err)
		zap.L().Fatal("Withdrawal rejected", zap.Error(err))
	}

	printWithdrawalSummary(user, resp)
	if req.currency == models.CurrencyUSDTTRC20 {
		fmt.Println("The payout dispatcher will submit this withdrawal on its next pass.")
	}

	zap.L().Info("Withdrawal queued",
		zap.String("user_id", user.Id),
		zap.String("payout_id", resp.PayoutId),
		zap.String("amount", resp.Amount.String()))
}
