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

	"microtask-ledger-go/internal/commission"
	"microtask-ledger-go/internal/models"
	"microtask-ledger-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func (s *Service) GetSettings(ctx context.Context) (*models.AdminSettings, error) {
	var settings models.AdminSettings
	var rateStr, minStr string
	err := s.db.QueryRowContext(ctx, queryGetSettings).Scan(&rateStr, &minStr, &settings.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrSettingsNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get admin settings: %w", err)
	}

	if settings.CommissionRate, err = parseDecimal("commission_rate", rateStr); err != nil {
		return nil, err
	}
	if settings.MinAmount, err = parseDecimal("min_amount", minStr); err != nil {
		return nil, err
	}
	return &settings, nil
}

// SaveSettings creates or replaces the singleton settings row
func (s *Service) SaveSettings(ctx context.Context, commissionRate, minAmount decimal.Decimal) error {
	if err := commission.ValidateRate(commissionRate); err != nil {
		return err
	}
	if minAmount.IsNegative() {
		return fmt.Errorf("minimum amount cannot be negative, got %s", minAmount)
	}

	if _, err := s.db.ExecContext(ctx, queryUpsertSettings, commissionRate.String(), minAmount.String(), time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to save admin settings: %w", err)
	}

	zap.L().Info("Admin settings saved",
		zap.String("commission_rate", commissionRate.String()),
		zap.String("min_amount", minAmount.String()))
	return nil
}
