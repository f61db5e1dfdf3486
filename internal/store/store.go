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

package store

import (
	"context"
	"errors"
	"time"

	"microtask-ledger-go/internal/models"

	"github.com/shopspring/decimal"
)

// Sentinel errors shared across all backend implementations.
var (
	ErrDuplicateTransaction   = errors.New("duplicate transaction")
	ErrConcurrentModification = errors.New("concurrent modification detected")
	ErrWalletNotFound         = errors.New("wallet not found")
	ErrInsufficientBalance    = errors.New("insufficient balance")
	ErrCurrencyMismatch       = errors.New("currency mismatch")
	ErrSettingsNotFound       = errors.New("admin settings not found")
	ErrNotFound               = errors.New("record not found")
	ErrInvalidState           = errors.New("invalid state transition")
	ErrBalanceMismatch        = errors.New("balance does not match ledger")
	ErrSameWallet             = errors.New("source and destination wallet are the same")
)

// DepositParams credits a user wallet with the net amount of a deposit and
// the platform wallet with the commission skimmed from it.
type DepositParams struct {
	UserId          string
	CurrencyType    models.CurrencyType
	NetAmount       decimal.Decimal
	Commission      decimal.Decimal
	ReferenceId     string
	Description     string
	TransactionHash string
}

type DepositResult struct {
	Wallet      models.Wallet
	Transaction models.WalletTransaction
	AdminWallet models.AdminWallet
}

// WithdrawParams debits a user wallet and queues an external payout
type WithdrawParams struct {
	UserId         string
	CurrencyType   models.CurrencyType
	Amount         decimal.Decimal
	ReferenceId    string
	Description    string
	PaymentMethod  string
	PaymentAddress string
	Notes          string
}

type WithdrawResult struct {
	Wallet          models.Wallet
	PreviousBalance decimal.Decimal
	Transaction     models.WalletTransaction
	Payout          models.Payout
}

// TransferParams moves funds between two existing wallets
type TransferParams struct {
	FromWalletId string
	ToWalletId   string
	Amount       decimal.Decimal
	ReferenceId  string
	Description  string
}

// TaskPaymentParams moves a task price from the employer's wallet to the
// worker's wallet, creating the worker wallet on first payment.
type TaskPaymentParams struct {
	EmployerId   string
	WorkerId     string
	CurrencyType models.CurrencyType
	Amount       decimal.Decimal
	ReferenceId  string
	Description  string
}

type TransferResult struct {
	From   models.Wallet
	To     models.Wallet
	Debit  models.WalletTransaction
	Credit models.WalletTransaction
}

// AdminWithdrawParams pays commission out of the platform wallet
type AdminWithdrawParams struct {
	CurrencyType   models.CurrencyType
	Amount         decimal.Decimal
	ReferenceId    string
	Description    string
	PaymentMethod  string
	PaymentAddress string
	BankName       string
	AccountNumber  string
	Notes          string
}

type AdminWithdrawResult struct {
	AdminWallet     models.AdminWallet
	PreviousBalance decimal.Decimal
	Transaction     models.WalletTransaction
	Payout          models.Payout
}

// ApproveSubmissionParams flips a pending submission to approved and fills a task slot
type ApproveSubmissionParams struct {
	SubmissionId  string
	ReviewerNotes string
	ReviewedAt    time.Time
}

type CreateTaskParams struct {
	Id           string
	EmployerId   string
	Title        string
	Price        decimal.Decimal
	CurrencyType models.CurrencyType
	TotalSlots   int
}

type CreateSubmissionParams struct {
	Id       string
	TaskId   string
	WorkerId string
}

// MirrorEntry is a ledger row together with the owner of the wallet it touched
type MirrorEntry struct {
	Transaction models.WalletTransaction
	UserId      string
}

// LedgerStore defines the contract the wallet ledger backend must satisfy.
type LedgerStore interface {
	// --- Users ---
	GetUsers(ctx context.Context) ([]models.User, error)
	GetUserById(ctx context.Context, userId string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateUser(ctx context.Context, userId, name, email, role string) (*models.User, error)

	// --- Settings ---
	GetSettings(ctx context.Context) (*models.AdminSettings, error)
	SaveSettings(ctx context.Context, commissionRate, minAmount decimal.Decimal) error

	// --- Wallets ---
	GetWallet(ctx context.Context, walletId string) (*models.Wallet, error)
	GetUserWallet(ctx context.Context, userId string, currency models.CurrencyType) (*models.Wallet, error)
	GetUserWallets(ctx context.Context, userId string) ([]models.Wallet, error)
	GetAdminWallet(ctx context.Context, currency models.CurrencyType) (*models.AdminWallet, error)
	GetAdminWallets(ctx context.Context) ([]models.AdminWallet, error)
	EnsureAdminWallets(ctx context.Context, currencies []models.CurrencyType) error

	// --- Money movement ---
	Deposit(ctx context.Context, params DepositParams) (*DepositResult, error)
	Withdraw(ctx context.Context, params WithdrawParams) (*WithdrawResult, error)
	Transfer(ctx context.Context, params TransferParams) (*TransferResult, error)
	PayTask(ctx context.Context, params TaskPaymentParams) (*TransferResult, error)
	AdminWithdraw(ctx context.Context, params AdminWithdrawParams) (*AdminWithdrawResult, error)

	// --- Ledger ---
	GetTransactionHistory(ctx context.Context, walletId string, limit, offset int) ([]models.WalletTransaction, error)
	GetTransactionsByReference(ctx context.Context, referenceId string) ([]models.WalletTransaction, error)
	GetEarnings(ctx context.Context, userId string, currency models.CurrencyType) (decimal.Decimal, error)
	ReconcileWallet(ctx context.Context, walletId string) error
	ReconcileAdminWallet(ctx context.Context, currency models.CurrencyType) error
	ListUnmirroredTransactions(ctx context.Context, limit int) ([]MirrorEntry, error)
	MarkTransactionMirrored(ctx context.Context, transactionId int64) error

	// --- Tasks & submissions ---
	CreateTask(ctx context.Context, params CreateTaskParams) (*models.Task, error)
	GetTask(ctx context.Context, taskId string) (*models.Task, error)
	CreateSubmission(ctx context.Context, params CreateSubmissionParams) (*models.Submission, error)
	GetSubmission(ctx context.Context, submissionId string) (*models.Submission, error)
	ApproveSubmission(ctx context.Context, params ApproveSubmissionParams) (*models.Submission, *models.Task, error)
	SetSubmissionPaymentStatus(ctx context.Context, submissionId, paymentStatus string) error
	ListFailedPayments(ctx context.Context) ([]models.Submission, error)

	// --- Payouts ---
	ListPendingPayouts(ctx context.Context, currency models.CurrencyType, method string, limit int) ([]models.Payout, error)
	MarkPayoutSubmitted(ctx context.Context, payoutId, externalId string) error
	MarkPayoutFailed(ctx context.Context, payoutId, reason string) error
	ReversePayout(ctx context.Context, payoutId, reason string) (*models.WalletTransaction, error)

	// --- Lifecycle ---
	Close()
}
