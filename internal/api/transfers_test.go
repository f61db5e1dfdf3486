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

	"microtask-ledger-go/internal/database"
	"microtask-ledger-go/internal/models"
	"microtask-ledger-go/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTask(t *testing.T, db *database.Service, taskId, price string, slots int, submissionIds ...string) {
	t.Helper()
	ctx := context.Background()

	_, err := db.CreateTask(ctx, store.CreateTaskParams{
		Id:           taskId,
		EmployerId:   "employer",
		Title:        "Transcribe audio",
		Price:        d(price),
		CurrencyType: models.CurrencyUSD,
		TotalSlots:   slots,
	})
	require.NoError(t, err)

	for _, id := range submissionIds {
		_, err := db.CreateSubmission(ctx, store.CreateSubmissionParams{Id: id, TaskId: taskId, WorkerId: "worker"})
		require.NoError(t, err)
	}
}

func TestApproveSubmission_PaysWorker(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	seed(t, db, "employer", models.CurrencyUSD, "100")
	createTask(t, db, "t1", "10", 3, "s1")

	resp, err := svc.ApproveSubmission(ctx, models.ApproveRequest{SubmissionId: "s1", EmployerId: "employer", ReviewerNotes: "great"})
	require.NoError(t, err)

	assert.Equal(t, models.PaymentStatusSuccess, resp.PaymentStatus)
	assert.Equal(t, models.SubmissionStatusApproved, resp.Submission.Status)
	assert.Equal(t, 1, resp.Task.SlotsFilled)
	require.NotNil(t, resp.TransactionDetails.EmployerBalance)
	assert.True(t, resp.TransactionDetails.EmployerBalance.Equal(d("90")))
	assert.True(t, resp.TransactionDetails.WorkerBalance.Equal(d("10")))

	rows, err := db.GetTransactionsByReference(ctx, "task_t1_submission_s1")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.True(t, rows[0].Amount.Add(rows[1].Amount).IsZero())

	stored, err := db.GetSubmission(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusSuccess, stored.PaymentStatus)

	earnings, err := svc.GetEarnings(ctx, "worker", models.CurrencyUSD)
	require.NoError(t, err)
	assert.True(t, earnings.TotalEarned.Equal(d("10")))
}

// Employer has $50, task pays $80: approval stands, payment fails, balances untouched
func TestApproveSubmission_PaymentFailsApprovalStands(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	employer := seed(t, db, "employer", models.CurrencyUSD, "50")
	createTask(t, db, "t1", "80", 2, "s1")

	resp, err := svc.ApproveSubmission(ctx, models.ApproveRequest{SubmissionId: "s1", EmployerId: "employer"})
	require.NoError(t, err)

	assert.Equal(t, models.PaymentStatusFailed, resp.PaymentStatus)
	assert.Equal(t, models.SubmissionStatusApproved, resp.Submission.Status)
	assert.Equal(t, 1, resp.Task.SlotsFilled)
	assert.Contains(t, resp.TransactionDetails.Reason, "employer")
	assert.Contains(t, resp.TransactionDetails.Reason, "80 USD")

	after, err := db.GetWallet(ctx, employer.Id)
	require.NoError(t, err)
	assert.True(t, after.Balance.Equal(d("50")))
	_, err = db.GetUserWallet(ctx, "worker", models.CurrencyUSD)
	assert.ErrorIs(t, err, store.ErrWalletNotFound)

	failed, err := svc.ListFailedPayments(ctx)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "s1", failed[0].Id)

	// Top up and retry
	_, err = svc.RetryTaskPayment(ctx, "s1", "intruder")
	requireCode(t, err, CodeForbidden)

	seedMore(t, db, "employer", "40")
	retried, err := svc.RetryTaskPayment(ctx, "s1", "employer")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusSuccess, retried.PaymentStatus)
	assert.True(t, retried.TransactionDetails.EmployerBalance.Equal(d("10")))

	failed, err = svc.ListFailedPayments(ctx)
	require.NoError(t, err)
	assert.Empty(t, failed)

	_, err = svc.RetryTaskPayment(ctx, "s1", "employer")
	requireCode(t, err, CodeConflict)
}

func seedMore(t *testing.T, db *database.Service, userId, amount string) {
	t.Helper()
	_, err := db.Deposit(context.Background(), store.DepositParams{
		UserId:       userId,
		CurrencyType: models.CurrencyUSD,
		NetAmount:    d(amount),
		ReferenceId:  "top_up_" + userId + "_" + amount,
	})
	require.NoError(t, err)
}

func TestApproveSubmission_MissingEmployerWallet(t *testing.T) {
	svc, db := newTestService(t)
	createTask(t, db, "t1", "10", 1, "s1")

	resp, err := svc.ApproveSubmission(context.Background(), models.ApproveRequest{SubmissionId: "s1", EmployerId: "employer"})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusFailed, resp.PaymentStatus)
	assert.Equal(t, "employer wallet not found", resp.TransactionDetails.Reason)
	assert.Equal(t, models.TaskStatusCompleted, resp.Task.Status)
}

func TestApproveSubmission_FreeTaskNotProcessed(t *testing.T) {
	svc, db := newTestService(t)
	createTask(t, db, "t1", "0", 1, "s1")

	resp, err := svc.ApproveSubmission(context.Background(), models.ApproveRequest{SubmissionId: "s1", EmployerId: "employer"})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusNotProcessed, resp.PaymentStatus)
}

func TestApproveSubmission_Guards(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	seed(t, db, "employer", models.CurrencyUSD, "100")
	createTask(t, db, "t1", "10", 2, "s1")

	_, err := svc.ApproveSubmission(ctx, models.ApproveRequest{SubmissionId: "missing", EmployerId: "employer"})
	requireCode(t, err, CodeNotFound)

	_, err = svc.ApproveSubmission(ctx, models.ApproveRequest{SubmissionId: "s1", EmployerId: "intruder"})
	requireCode(t, err, CodeForbidden)

	_, err = svc.ApproveSubmission(ctx, models.ApproveRequest{SubmissionId: "s1"})
	requireCode(t, err, CodeInvalidRequest)

	_, err = svc.ApproveSubmission(ctx, models.ApproveRequest{SubmissionId: "s1", EmployerId: "employer"})
	require.NoError(t, err)

	// A second approval must not pay twice
	_, err = svc.ApproveSubmission(ctx, models.ApproveRequest{SubmissionId: "s1", EmployerId: "employer"})
	requireCode(t, err, CodeConflict)

	wallet, err := db.GetUserWallet(ctx, "employer", models.CurrencyUSD)
	require.NoError(t, err)
	assert.True(t, wallet.Balance.Equal(d("90")))
}

// $30 USD cannot move into a USDT_TRC20 wallet
func TestTransfer_CurrencyMismatch(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	a := seed(t, db, "alice", models.CurrencyUSD, "30")
	b := seed(t, db, "bob", models.CurrencyUSDTTRC20, "1")

	_, err := svc.Transfer(ctx, models.TransferRequest{FromWalletId: a.Id, ToWalletId: b.Id, Amount: d("30")})
	requireCode(t, err, CodeCurrencyMismatch)

	afterA, err := db.GetWallet(ctx, a.Id)
	require.NoError(t, err)
	afterB, err := db.GetWallet(ctx, b.Id)
	require.NoError(t, err)
	assert.True(t, afterA.Balance.Equal(d("30")))
	assert.True(t, afterB.Balance.Equal(d("1")))
}

func TestTransfer_TaskReference(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	employer := seed(t, db, "employer", models.CurrencyUSD, "30")
	worker := seed(t, db, "worker", models.CurrencyUSD, "0.01")
	createTask(t, db, "t9", "12.50", 1, "s9")

	req := models.TransferRequest{
		RequesterId:  "employer",
		FromWalletId: employer.Id,
		ToWalletId:   worker.Id,
		Amount:       d("12.50"),
		TaskId:       "t9",
		SubmissionId: "s9",
	}
	resp, err := svc.Transfer(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "task_t9_submission_s9", resp.Transactions.Debit.ReferenceId)
	assert.Equal(t, resp.Transactions.Debit.ReferenceId, resp.Transactions.Credit.ReferenceId)
	assert.True(t, resp.FromWallet.Balance.Equal(d("17.5")))
	assert.True(t, resp.ToWallet.Balance.Equal(d("12.51")))

	_, err = svc.Transfer(ctx, req)
	requireCode(t, err, CodeDuplicateTransaction)

	req.RequesterId = "worker"
	_, err = svc.Transfer(ctx, req)
	requireCode(t, err, CodeForbidden)

	// Paid up front, so approval finds the pair and moves nothing
	approved, err := svc.ApproveSubmission(ctx, models.ApproveRequest{SubmissionId: "s9", EmployerId: "employer"})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusSuccess, approved.PaymentStatus)
	assert.Equal(t, resp.Transactions.Debit.Id, approved.TransactionDetails.DebitTransactionId)
	after, err := db.GetWallet(ctx, employer.Id)
	require.NoError(t, err)
	assert.True(t, after.Balance.Equal(d("17.5")))

	_, err = svc.Transfer(ctx, models.TransferRequest{FromWalletId: employer.Id, ToWalletId: employer.Id, Amount: d("1")})
	requireCode(t, err, CodeSameWallet)

	_, err = svc.Transfer(ctx, models.TransferRequest{FromWalletId: employer.Id, ToWalletId: worker.Id, Amount: d("100")})
	requireCode(t, err, CodeInsufficientBalance)
}

// Transfers that name a submission but are not its payment keep a plain reference
func TestTransfer_TaskReferenceRequiresExactPayment(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	employer := seed(t, db, "employer", models.CurrencyUSD, "100")
	stranger := seed(t, db, "stranger", models.CurrencyUSD, "5")
	worker := seed(t, db, "worker", models.CurrencyUSD, "1")
	createTask(t, db, "t1", "10", 2, "s1")

	tests := []struct {
		name   string
		from   *models.Wallet
		amount string
		taskId string
	}{
		{name: "stranger sender", from: stranger, amount: "0.01", taskId: "t1"},
		{name: "wrong amount", from: employer, amount: "3", taskId: "t1"},
		{name: "wrong task", from: employer, amount: "10", taskId: "t2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := svc.Transfer(ctx, models.TransferRequest{
				FromWalletId: tt.from.Id,
				ToWalletId:   worker.Id,
				Amount:       d(tt.amount),
				TaskId:       tt.taskId,
				SubmissionId: "s1",
			})
			require.NoError(t, err)
			assert.Regexp(t, `^transfer_`, resp.Transactions.Debit.ReferenceId)
		})
	}

	resp, err := svc.ApproveSubmission(ctx, models.ApproveRequest{SubmissionId: "s1", EmployerId: "employer"})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusSuccess, resp.PaymentStatus)
	assert.True(t, resp.TransactionDetails.EmployerBalance.Equal(d("77")))
	assert.True(t, resp.TransactionDetails.WorkerBalance.Equal(d("24.01")))

	rows, err := db.GetTransactionsByReference(ctx, "task_t1_submission_s1")
	require.NoError(t, err)
	require.Len(t, rows, 2)
}

// A reference already held by rows that are not the task payment is a failed payment
func TestApproveSubmission_ReferenceHeldByOtherRows(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	employer := seed(t, db, "employer", models.CurrencyUSD, "100")
	stranger := seed(t, db, "stranger", models.CurrencyUSD, "5")
	worker := seed(t, db, "worker", models.CurrencyUSD, "1")
	createTask(t, db, "t1", "10", 2, "s1")

	_, err := db.Transfer(ctx, store.TransferParams{
		FromWalletId: stranger.Id,
		ToWalletId:   worker.Id,
		Amount:       d("0.01"),
		ReferenceId:  "task_t1_submission_s1",
	})
	require.NoError(t, err)

	resp, err := svc.ApproveSubmission(ctx, models.ApproveRequest{SubmissionId: "s1", EmployerId: "employer"})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusFailed, resp.PaymentStatus)
	assert.Contains(t, resp.TransactionDetails.Reason, "10 USD")

	after, err := db.GetWallet(ctx, employer.Id)
	require.NoError(t, err)
	assert.True(t, after.Balance.Equal(d("100")))

	failed, err := svc.ListFailedPayments(ctx)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "s1", failed[0].Id)
}
