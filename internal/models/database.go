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

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CurrencyType identifies the currency a wallet is denominated in
type CurrencyType string

const (
	CurrencyUSD       CurrencyType = "USD"
	CurrencyUSDTTRC20 CurrencyType = "USDT_TRC20"
)

// SupportedCurrencies lists every currency a wallet can hold
var SupportedCurrencies = []CurrencyType{CurrencyUSD, CurrencyUSDTTRC20}

// Valid reports whether c is one of the supported currencies
func (c CurrencyType) Valid() bool {
	for _, supported := range SupportedCurrencies {
		if c == supported {
			return true
		}
	}
	return false
}

// Precision is the number of decimal places an amount in this currency may carry
func (c CurrencyType) Precision() int32 {
	if c == CurrencyUSDTTRC20 {
		return 6
	}
	return 2
}

const (
	TransactionTypeDeposit            = "deposit"
	TransactionTypeWithdrawal         = "withdrawal"
	TransactionTypeTaskPayment        = "task_payment"
	TransactionTypeCommission         = "commission"
	TransactionTypeWithdrawalReversal = "withdrawal_reversal"

	TransactionStatusPending   = "pending"
	TransactionStatusCompleted = "completed"
	TransactionStatusFailed    = "failed"

	WalletKindUser  = "user"
	WalletKindAdmin = "admin"

	RoleEmployer = "employer"
	RoleWorker   = "worker"
	RoleAdmin    = "admin"
)

const (
	TaskStatusOpen      = "open"
	TaskStatusCompleted = "completed"

	SubmissionStatusPending  = "pending"
	SubmissionStatusApproved = "approved"
	SubmissionStatusRejected = "rejected"

	PaymentStatusSuccess      = "success"
	PaymentStatusFailed       = "failed"
	PaymentStatusNotProcessed = "not_processed"

	PayoutStatusPending   = "pending"
	PayoutStatusSubmitted = "submitted"
	PayoutStatusFailed    = "failed"
)

// User represents a marketplace account (employer, worker or admin)
type User struct {
	Id        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Email     string    `db:"email" json:"email"`
	Role      string    `db:"role" json:"role"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// Wallet is the balance a user holds in one currency
type Wallet struct {
	Id           string          `db:"id" json:"id"`
	UserId       string          `db:"user_id" json:"userId"`
	CurrencyType CurrencyType    `db:"currency_type" json:"currencyType"`
	Balance      decimal.Decimal `db:"balance" json:"balance"`
	Version      int64           `db:"version" json:"-"`
	CreatedAt    time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updatedAt"`
}

// AdminWallet is the platform's commission balance for one currency.
// Balance always equals TotalEarned - TotalWithdrawn.
type AdminWallet struct {
	Id             string          `db:"id" json:"id"`
	CurrencyType   CurrencyType    `db:"currency_type" json:"currencyType"`
	Balance        decimal.Decimal `db:"balance" json:"balance"`
	TotalEarned    decimal.Decimal `db:"total_earned" json:"totalEarned"`
	TotalWithdrawn decimal.Decimal `db:"total_withdrawn" json:"totalWithdrawn"`
	Version        int64           `db:"version" json:"-"`
	CreatedAt      time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updatedAt"`
}

// WalletTransaction is one immutable, signed balance change
type WalletTransaction struct {
	Id              int64           `db:"id" json:"id"`
	WalletId        string          `db:"wallet_id" json:"walletId"`
	WalletKind      string          `db:"wallet_kind" json:"walletKind"`
	TransactionType string          `db:"transaction_type" json:"transactionType"`
	Amount          decimal.Decimal `db:"amount" json:"amount"`
	BalanceBefore   decimal.Decimal `db:"balance_before" json:"balanceBefore"`
	BalanceAfter    decimal.Decimal `db:"balance_after" json:"balanceAfter"`
	CurrencyType    CurrencyType    `db:"currency_type" json:"currencyType"`
	Status          string          `db:"status" json:"status"`
	ReferenceId     string          `db:"reference_id" json:"referenceId"`
	Description     string          `db:"description" json:"description,omitempty"`
	TransactionHash string          `db:"transaction_hash" json:"transactionHash,omitempty"`
	CreatedAt       time.Time       `db:"created_at" json:"createdAt"`
}

// AdminSettings holds the platform-wide values money operations read once per call
type AdminSettings struct {
	CommissionRate decimal.Decimal `db:"commission_rate" json:"commissionRate"`
	MinAmount      decimal.Decimal `db:"min_amount" json:"minAmount"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updatedAt"`
}

// Task carries the fields of a posted task that settlement depends on
type Task struct {
	Id           string          `db:"id" json:"id"`
	EmployerId   string          `db:"employer_id" json:"employerId"`
	Title        string          `db:"title" json:"title"`
	Price        decimal.Decimal `db:"price" json:"price"`
	CurrencyType CurrencyType    `db:"currency_type" json:"currencyType"`
	TotalSlots   int             `db:"total_slots" json:"totalSlots"`
	SlotsFilled  int             `db:"slots_filled" json:"slotsFilled"`
	Status       string          `db:"status" json:"status"`
	CreatedAt    time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updatedAt"`
}

// Submission is a worker's claim on one slot of a task
type Submission struct {
	Id            string     `db:"id" json:"id"`
	TaskId        string     `db:"task_id" json:"taskId"`
	WorkerId      string     `db:"worker_id" json:"workerId"`
	Status        string     `db:"status" json:"status"`
	PaymentStatus string     `db:"payment_status" json:"paymentStatus,omitempty"`
	ReviewerNotes string     `db:"reviewer_notes" json:"reviewerNotes,omitempty"`
	ReviewedAt    *time.Time `db:"reviewed_at" json:"reviewedAt,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"createdAt"`
}

// Payout is an external payout request created by a withdrawal
type Payout struct {
	Id             string          `db:"id" json:"id"`
	TransactionId  int64           `db:"transaction_id" json:"transactionId"`
	WalletId       string          `db:"wallet_id" json:"walletId"`
	WalletKind     string          `db:"wallet_kind" json:"walletKind"`
	CurrencyType   CurrencyType    `db:"currency_type" json:"currencyType"`
	Amount         decimal.Decimal `db:"amount" json:"amount"`
	PaymentMethod  string          `db:"payment_method" json:"paymentMethod"`
	PaymentAddress string          `db:"payment_address" json:"paymentAddress"`
	BankName       string          `db:"bank_name" json:"bankName,omitempty"`
	AccountNumber  string          `db:"account_number" json:"accountNumber,omitempty"`
	Notes          string          `db:"notes" json:"notes,omitempty"`
	Status         string          `db:"status" json:"status"`
	ExternalId     string          `db:"external_id" json:"externalId,omitempty"`
	FailureReason  string          `db:"failure_reason" json:"failureReason,omitempty"`
	CreatedAt      time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updatedAt"`
}
