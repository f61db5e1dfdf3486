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

// DepositRequest credits a user's wallet. Commission is taken from the gross amount.
type DepositRequest struct {
	UserId          string          `json:"-"`
	Amount          decimal.Decimal `json:"amount"`
	CurrencyType    CurrencyType    `json:"currencyType"`
	TransactionHash string          `json:"transactionHash,omitempty"`
	Notes           string          `json:"notes,omitempty"`
}

type DepositResponse struct {
	TransactionId    int64           `json:"transactionId"`
	ReferenceId      string          `json:"referenceId"`
	DepositedAmount  decimal.Decimal `json:"depositedAmount"`
	CommissionRate   decimal.Decimal `json:"commissionRate"`
	CommissionAmount decimal.Decimal `json:"commissionAmount"`
	NetAmount        decimal.Decimal `json:"netAmount"`
	CurrencyType     CurrencyType    `json:"currencyType"`
	NewBalance       decimal.Decimal `json:"newBalance"`
	CreatedAt        time.Time       `json:"createdAt"`
	TransactionHash  string          `json:"transactionHash,omitempty"`
}

type WithdrawRequest struct {
	UserId         string          `json:"-"`
	Amount         decimal.Decimal `json:"amount"`
	CurrencyType   CurrencyType    `json:"currencyType"`
	PaymentMethod  string          `json:"paymentMethod"`
	PaymentAddress string          `json:"paymentAddress"`
	Notes          string          `json:"notes,omitempty"`
}

type WithdrawResponse struct {
	TransactionId   int64           `json:"transactionId"`
	PayoutId        string          `json:"payoutId"`
	Amount          decimal.Decimal `json:"amount"`
	CurrencyType    CurrencyType    `json:"currencyType"`
	PaymentMethod   string          `json:"paymentMethod"`
	PaymentAddress  string          `json:"paymentAddress"`
	PreviousBalance decimal.Decimal `json:"previousBalance"`
	NewBalance      decimal.Decimal `json:"newBalance"`
	Status          string          `json:"status"`
	CreatedAt       time.Time       `json:"createdAt"`
}

type ApproveRequest struct {
	SubmissionId  string `json:"-"`
	EmployerId    string `json:"-"`
	ReviewerNotes string `json:"reviewerNotes,omitempty"`
}

// PaymentDetails describes what the task payment did, or why it did not happen
type PaymentDetails struct {
	ReferenceId         string           `json:"referenceId"`
	Amount              decimal.Decimal  `json:"amount"`
	CurrencyType        CurrencyType     `json:"currencyType"`
	EmployerId          string           `json:"employerId"`
	WorkerId            string           `json:"workerId"`
	EmployerBalance     *decimal.Decimal `json:"employerBalance,omitempty"`
	WorkerBalance       *decimal.Decimal `json:"workerBalance,omitempty"`
	DebitTransactionId  int64            `json:"debitTransactionId,omitempty"`
	CreditTransactionId int64            `json:"creditTransactionId,omitempty"`
	Reason              string           `json:"reason,omitempty"`
}

type ApproveResponse struct {
	Submission         Submission      `json:"submission"`
	Task               Task            `json:"task"`
	PaymentStatus      string          `json:"paymentStatus"`
	TransactionDetails *PaymentDetails `json:"transactionDetails"`
}

// TransferRequest moves funds between two wallets. When TaskId and
// SubmissionId are both set the transfer is recorded as that task's payment.
type TransferRequest struct {
	RequesterId  string          `json:"-"`
	FromWalletId string          `json:"fromWalletId"`
	ToWalletId   string          `json:"toWalletId"`
	Amount       decimal.Decimal `json:"amount"`
	TaskId       string          `json:"taskId,omitempty"`
	SubmissionId string          `json:"submissionId,omitempty"`
}

type TransferTransactions struct {
	Debit  WalletTransaction `json:"debit"`
	Credit WalletTransaction `json:"credit"`
}

type TransferResponse struct {
	Amount       decimal.Decimal      `json:"amount"`
	CurrencyType CurrencyType         `json:"currencyType"`
	FromWallet   Wallet               `json:"fromWallet"`
	ToWallet     Wallet               `json:"toWallet"`
	Transactions TransferTransactions `json:"transactions"`
}

type AdminWithdrawRequest struct {
	Amount         decimal.Decimal `json:"amount"`
	CurrencyType   CurrencyType    `json:"currencyType"`
	PaymentMethod  string          `json:"paymentMethod"`
	PaymentAddress string          `json:"paymentAddress"`
	BankName       string          `json:"bankName,omitempty"`
	AccountNumber  string          `json:"accountNumber,omitempty"`
	Notes          string          `json:"notes,omitempty"`
}

type AdminWithdrawal struct {
	Id              string          `json:"id"`
	TransactionId   int64           `json:"transactionId"`
	Amount          decimal.Decimal `json:"amount"`
	CurrencyType    CurrencyType    `json:"currencyType"`
	PaymentMethod   string          `json:"paymentMethod"`
	PaymentAddress  string          `json:"paymentAddress"`
	BankName        string          `json:"bankName,omitempty"`
	AccountNumber   string          `json:"accountNumber,omitempty"`
	PreviousBalance decimal.Decimal `json:"previousBalance"`
	NewBalance      decimal.Decimal `json:"newBalance"`
	TotalWithdrawn  decimal.Decimal `json:"totalWithdrawn"`
	CreatedAt       time.Time       `json:"createdAt"`
}

type AdminWithdrawResponse struct {
	Withdrawal AdminWithdrawal `json:"withdrawal"`
}

type EarningsResponse struct {
	UserId       string          `json:"userId"`
	CurrencyType CurrencyType    `json:"currencyType"`
	TotalEarned  decimal.Decimal `json:"totalEarned"`
}
