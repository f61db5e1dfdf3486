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
	"errors"
	"fmt"

	"microtask-ledger-go/internal/models"
	"microtask-ledger-go/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TaskPaymentReference is the reference shared by the two ledger rows of a task payment
func TaskPaymentReference(taskId, submissionId string) string {
	return fmt.Sprintf("task_%s_submission_%s", taskId, submissionId)
}

// Transfer moves funds between two wallets of the same currency
func (s *LedgerService) Transfer(ctx context.Context, req models.TransferRequest) (*models.TransferResponse, error) {
	const op = "Transfer"

	if req.FromWalletId == "" || req.ToWalletId == "" {
		return nil, newError(CodeInvalidRequest, op, "source and destination wallet ids are required")
	}
	if req.FromWalletId == req.ToWalletId {
		return nil, newError(CodeSameWallet, op, "source and destination wallet must differ")
	}

	from, err := s.GetWallet(ctx, req.FromWalletId, req.RequesterId)
	if err != nil {
		return nil, err
	}
	to, err := s.store.GetWallet(ctx, req.ToWalletId)
	if err != nil {
		return nil, fromStore(op, err, "destination")
	}
	if from.CurrencyType != to.CurrencyType {
		return nil, newError(CodeCurrencyMismatch, op, "cannot transfer %s into a %s wallet", from.CurrencyType, to.CurrencyType)
	}
	if err := validateAmount(op, req.Amount, from.CurrencyType); err != nil {
		return nil, err
	}

	referenceId := "transfer_" + uuid.New().String()
	description := fmt.Sprintf("Transfer of %s %s", req.Amount, from.CurrencyType)
	if req.TaskId != "" && req.SubmissionId != "" {
		if s.paysSubmission(ctx, req, from, to) {
			referenceId = TaskPaymentReference(req.TaskId, req.SubmissionId)
			description = fmt.Sprintf("Payment for task %s, submission %s", req.TaskId, req.SubmissionId)
		} else {
			zap.L().Warn("Transfer does not settle the named submission, recording as plain transfer",
				zap.String("task_id", req.TaskId),
				zap.String("submission_id", req.SubmissionId),
				zap.String("from_wallet_id", from.Id),
				zap.String("to_wallet_id", to.Id))
		}
	}

	result, err := s.store.Transfer(ctx, store.TransferParams{
		FromWalletId: from.Id,
		ToWalletId:   to.Id,
		Amount:       req.Amount,
		ReferenceId:  referenceId,
		Description:  description,
	})
	if err != nil {
		apiErr := fromStore(op, err, "source")
		if apiErr.Code == CodeInsufficientBalance {
			apiErr.Message = fmt.Sprintf("insufficient source balance to transfer %s %s", req.Amount, from.CurrencyType)
		}
		return nil, apiErr
	}

	return &models.TransferResponse{
		Amount:       req.Amount,
		CurrencyType: from.CurrencyType,
		FromWallet:   result.From,
		ToWallet:     result.To,
		Transactions: models.TransferTransactions{Debit: result.Debit, Credit: result.Credit},
	}, nil
}

// paysSubmission reports whether a transfer is exactly the task payment for
// the named submission: employer to worker, task currency, task price.
func (s *LedgerService) paysSubmission(ctx context.Context, req models.TransferRequest, from, to *models.Wallet) bool {
	sub, err := s.store.GetSubmission(ctx, req.SubmissionId)
	if err != nil || sub.TaskId != req.TaskId {
		return false
	}
	task, err := s.store.GetTask(ctx, sub.TaskId)
	if err != nil {
		return false
	}
	return task.EmployerId == from.UserId &&
		sub.WorkerId == to.UserId &&
		to.CurrencyType == task.CurrencyType &&
		req.Amount.Equal(task.Price)
}

// ApproveSubmission approves a pending submission and then pays the worker.
// The approval stands even when the payment fails; the outcome is reported
// in PaymentStatus and persisted on the submission.
func (s *LedgerService) ApproveSubmission(ctx context.Context, req models.ApproveRequest) (*models.ApproveResponse, error) {
	const op = "ApproveSubmission"

	if req.SubmissionId == "" || req.EmployerId == "" {
		return nil, newError(CodeInvalidRequest, op, "submission id and employer id are required")
	}

	sub, task, apiErr := s.loadSubmission(ctx, op, req.SubmissionId, req.EmployerId)
	if apiErr != nil {
		return nil, apiErr
	}
	if sub.Status != models.SubmissionStatusPending {
		return nil, newError(CodeConflict, op, "submission is already %s", sub.Status)
	}

	sub, task, err := s.store.ApproveSubmission(ctx, store.ApproveSubmissionParams{
		SubmissionId:  req.SubmissionId,
		ReviewerNotes: req.ReviewerNotes,
		ReviewedAt:    s.now(),
	})
	if err != nil {
		if errors.Is(err, store.ErrInvalidState) {
			return nil, newError(CodeConflict, op, "submission was reviewed concurrently")
		}
		return nil, fromStore(op, err, "employer")
	}

	return s.settle(ctx, sub, task), nil
}

// RetryTaskPayment re-runs the payment for an approved submission whose
// earlier payment failed. An empty employerId skips the ownership check.
func (s *LedgerService) RetryTaskPayment(ctx context.Context, submissionId, employerId string) (*models.ApproveResponse, error) {
	const op = "RetryTaskPayment"

	if submissionId == "" {
		return nil, newError(CodeInvalidRequest, op, "submission id is required")
	}

	sub, task, apiErr := s.loadSubmission(ctx, op, submissionId, employerId)
	if apiErr != nil {
		return nil, apiErr
	}
	if sub.Status != models.SubmissionStatusApproved || sub.PaymentStatus != models.PaymentStatusFailed {
		return nil, newError(CodeConflict, op, "only approved submissions with a failed payment can be retried")
	}

	return s.settle(ctx, sub, task), nil
}

// ListFailedPayments returns approved submissions that still owe the worker
func (s *LedgerService) ListFailedPayments(ctx context.Context) ([]models.Submission, error) {
	subs, err := s.store.ListFailedPayments(ctx)
	if err != nil {
		return nil, newInternal("ListFailedPayments", err)
	}
	if subs == nil {
		subs = []models.Submission{}
	}
	return subs, nil
}

func (s *LedgerService) loadSubmission(ctx context.Context, op, submissionId, employerId string) (*models.Submission, *models.Task, *Error) {
	sub, err := s.store.GetSubmission(ctx, submissionId)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, newError(CodeNotFound, op, "submission not found")
		}
		return nil, nil, newInternal(op, err)
	}

	task, err := s.store.GetTask(ctx, sub.TaskId)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, newError(CodeNotFound, op, "task not found")
		}
		return nil, nil, newInternal(op, err)
	}

	if employerId != "" && task.EmployerId != employerId {
		return nil, nil, newError(CodeForbidden, op, "task belongs to another employer")
	}
	return sub, task, nil
}

// settle runs the payment step and records its outcome on the submission
func (s *LedgerService) settle(ctx context.Context, sub *models.Submission, task *models.Task) *models.ApproveResponse {
	status, details := s.payForSubmission(ctx, sub, task)

	if err := s.store.SetSubmissionPaymentStatus(ctx, sub.Id, status); err != nil {
		zap.L().Error("Failed to record payment status",
			zap.String("submission_id", sub.Id),
			zap.String("payment_status", status),
			zap.Error(err))
	}
	sub.PaymentStatus = status

	return &models.ApproveResponse{
		Submission:         *sub,
		Task:               *task,
		PaymentStatus:      status,
		TransactionDetails: details,
	}
}

func (s *LedgerService) payForSubmission(ctx context.Context, sub *models.Submission, task *models.Task) (string, *models.PaymentDetails) {
	details := &models.PaymentDetails{
		ReferenceId:  TaskPaymentReference(task.Id, sub.Id),
		Amount:       task.Price,
		CurrencyType: task.CurrencyType,
		EmployerId:   task.EmployerId,
		WorkerId:     sub.WorkerId,
	}

	if !task.Price.IsPositive() {
		details.Reason = "task has no payable price; no funds moved"
		return models.PaymentStatusNotProcessed, details
	}

	result, err := s.store.PayTask(ctx, store.TaskPaymentParams{
		EmployerId:   task.EmployerId,
		WorkerId:     sub.WorkerId,
		CurrencyType: task.CurrencyType,
		Amount:       task.Price,
		ReferenceId:  details.ReferenceId,
		Description:  fmt.Sprintf("Payment for task %s, submission %s", task.Id, sub.Id),
	})
	if err != nil {
		switch {
		case errors.Is(err, store.ErrWalletNotFound):
			details.Reason = "employer wallet not found"
		case errors.Is(err, store.ErrInsufficientBalance):
			details.Reason = fmt.Sprintf("insufficient employer balance to pay %s %s; worker not credited", task.Price, task.CurrencyType)
		case errors.Is(err, store.ErrDuplicateTransaction):
			if s.paymentRecorded(ctx, sub, task, details) {
				details.Reason = "payment already recorded"
				return models.PaymentStatusSuccess, details
			}
			details.Reason = fmt.Sprintf("reference %s is held by rows that do not pay %s %s to the worker", details.ReferenceId, task.Price, task.CurrencyType)
		case errors.Is(err, store.ErrSameWallet):
			details.Reason = "employer cannot pay their own submission"
		default:
			details.Reason = "payment could not be processed"
			zap.L().Error("Task payment failed",
				zap.String("submission_id", sub.Id),
				zap.String("task_id", task.Id),
				zap.Error(err))
		}
		zap.L().Warn("Task payment not completed",
			zap.String("submission_id", sub.Id),
			zap.String("reason", details.Reason))
		return models.PaymentStatusFailed, details
	}

	employerBalance := result.From.Balance
	workerBalance := result.To.Balance
	details.EmployerBalance = &employerBalance
	details.WorkerBalance = &workerBalance
	details.DebitTransactionId = result.Debit.Id
	details.CreditTransactionId = result.Credit.Id
	return models.PaymentStatusSuccess, details
}

// paymentRecorded checks that the rows already written under the task
// reference are the employer debit and worker credit of the task price.
func (s *LedgerService) paymentRecorded(ctx context.Context, sub *models.Submission, task *models.Task, details *models.PaymentDetails) bool {
	rows, err := s.store.GetTransactionsByReference(ctx, details.ReferenceId)
	if err != nil || len(rows) != 2 {
		return false
	}
	employer, err := s.store.GetUserWallet(ctx, task.EmployerId, task.CurrencyType)
	if err != nil {
		return false
	}
	worker, err := s.store.GetUserWallet(ctx, sub.WorkerId, task.CurrencyType)
	if err != nil {
		return false
	}

	var debit, credit *models.WalletTransaction
	for i := range rows {
		row := &rows[i]
		if row.WalletKind != models.WalletKindUser {
			return false
		}
		switch {
		case row.WalletId == employer.Id && row.Amount.Equal(task.Price.Neg()):
			debit = row
		case row.WalletId == worker.Id && row.Amount.Equal(task.Price):
			credit = row
		}
	}
	if debit == nil || credit == nil {
		return false
	}

	details.DebitTransactionId = debit.Id
	details.CreditTransactionId = credit.Id
	return true
}
