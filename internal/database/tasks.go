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

	"go.uber.org/zap"
)

func scanTask(row rowScanner) (*models.Task, error) {
	var task models.Task
	var currency, priceStr string
	if err := row.Scan(&task.Id, &task.EmployerId, &task.Title, &priceStr, &currency,
		&task.TotalSlots, &task.SlotsFilled, &task.Status, &task.CreatedAt, &task.UpdatedAt); err != nil {
		return nil, err
	}
	task.CurrencyType = models.CurrencyType(currency)

	price, err := parseDecimal("price", priceStr)
	if err != nil {
		return nil, err
	}
	task.Price = price
	return &task, nil
}

func scanSubmission(row rowScanner) (*models.Submission, error) {
	var sub models.Submission
	var reviewedAt sql.NullTime
	if err := row.Scan(&sub.Id, &sub.TaskId, &sub.WorkerId, &sub.Status, &sub.PaymentStatus,
		&sub.ReviewerNotes, &reviewedAt, &sub.CreatedAt); err != nil {
		return nil, err
	}
	if reviewedAt.Valid {
		t := reviewedAt.Time
		sub.ReviewedAt = &t
	}
	return &sub, nil
}

func (s *Service) CreateTask(ctx context.Context, params store.CreateTaskParams) (*models.Task, error) {
	if !params.CurrencyType.Valid() {
		return nil, fmt.Errorf("unsupported currency %q", params.CurrencyType)
	}
	if params.TotalSlots <= 0 {
		return nil, fmt.Errorf("total slots must be positive, got %d", params.TotalSlots)
	}

	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, queryInsertTask, params.Id, params.EmployerId, params.Title,
		params.Price.String(), string(params.CurrencyType), params.TotalSlots, now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to insert task: %w", err)
	}

	zap.L().Info("Task created",
		zap.String("task_id", params.Id),
		zap.String("employer_id", params.EmployerId),
		zap.String("price", params.Price.String()),
		zap.String("currency", string(params.CurrencyType)))
	return s.GetTask(ctx, params.Id)
}

func (s *Service) GetTask(ctx context.Context, taskId string) (*models.Task, error) {
	task, err := scanTask(s.db.QueryRowContext(ctx, queryGetTask, taskId))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("task %s: %w", taskId, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return task, nil
}

func (s *Service) CreateSubmission(ctx context.Context, params store.CreateSubmissionParams) (*models.Submission, error) {
	if _, err := s.db.ExecContext(ctx, queryInsertSubmission, params.Id, params.TaskId, params.WorkerId, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("failed to insert submission: %w", err)
	}
	return s.GetSubmission(ctx, params.Id)
}

func (s *Service) GetSubmission(ctx context.Context, submissionId string) (*models.Submission, error) {
	sub, err := scanSubmission(s.db.QueryRowContext(ctx, queryGetSubmission, submissionId))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("submission %s: %w", submissionId, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}
	return sub, nil
}

// ApproveSubmission moves a pending submission to approved and fills one slot
// on its task. Only one caller can win the pending -> approved transition; the
// others get ErrInvalidState.
func (s *Service) ApproveSubmission(ctx context.Context, params store.ApproveSubmissionParams) (*models.Submission, *models.Task, error) {
	var sub *models.Submission
	var task *models.Task

	err := s.withTx(ctx, "approve_submission", func(tx *sql.Tx) error {
		current, err := scanSubmission(tx.QueryRowContext(ctx, queryGetSubmission, params.SubmissionId))
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("submission %s: %w", params.SubmissionId, store.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to get submission: %w", err)
		}
		if current.Status != models.SubmissionStatusPending {
			return fmt.Errorf("submission %s is %s: %w", params.SubmissionId, current.Status, store.ErrInvalidState)
		}

		result, err := tx.ExecContext(ctx, queryApproveSubmission, params.ReviewerNotes, params.ReviewedAt, params.SubmissionId)
		if err != nil {
			return fmt.Errorf("failed to approve submission: %w", err)
		}
		if n, err := result.RowsAffected(); err != nil {
			return fmt.Errorf("failed to check rows affected: %w", err)
		} else if n == 0 {
			return fmt.Errorf("submission %s already reviewed: %w", params.SubmissionId, store.ErrInvalidState)
		}

		result, err = tx.ExecContext(ctx, queryFillTaskSlot, params.ReviewedAt, current.TaskId)
		if err != nil {
			return fmt.Errorf("failed to fill task slot: %w", err)
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return fmt.Errorf("task %s: %w", current.TaskId, store.ErrNotFound)
		}

		if sub, err = scanSubmission(tx.QueryRowContext(ctx, queryGetSubmission, params.SubmissionId)); err != nil {
			return fmt.Errorf("failed to reload submission: %w", err)
		}
		if task, err = scanTask(tx.QueryRowContext(ctx, queryGetTask, current.TaskId)); err != nil {
			return fmt.Errorf("failed to reload task: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	zap.L().Info("Submission approved",
		zap.String("submission_id", sub.Id),
		zap.String("task_id", task.Id),
		zap.Int("slots_filled", task.SlotsFilled),
		zap.Int("total_slots", task.TotalSlots),
		zap.String("task_status", task.Status))
	return sub, task, nil
}

func (s *Service) SetSubmissionPaymentStatus(ctx context.Context, submissionId, paymentStatus string) error {
	result, err := s.db.ExecContext(ctx, querySetSubmissionPaymentStatus, paymentStatus, submissionId)
	if err != nil {
		return fmt.Errorf("failed to set payment status: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("submission %s: %w", submissionId, store.ErrNotFound)
	}
	return nil
}

// ListFailedPayments returns approved submissions whose task payment did not go through
func (s *Service) ListFailedPayments(ctx context.Context) ([]models.Submission, error) {
	rows, err := s.db.QueryContext(ctx, queryListFailedPayments)
	if err != nil {
		return nil, fmt.Errorf("failed to list failed payments: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var subs []models.Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan submission: %w", err)
		}
		subs = append(subs, *sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating submission rows: %w", err)
	}
	return subs, nil
}
