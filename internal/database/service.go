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
	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// Compile-time check: *Service must satisfy store.LedgerStore.
var _ store.LedgerStore = (*Service)(nil)

type Service struct {
	db         *sql.DB
	maxRetries int
}

type rowScanner interface {
	Scan(dest ...any) error
}

func NewService(ctx context.Context, cfg models.DatabaseConfig) (*Service, error) {
	// Validate configuration
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}
	if cfg.MaxOpenConns <= 0 {
		return nil, fmt.Errorf("max open connections must be positive, got %d", cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns < 0 {
		return nil, fmt.Errorf("max idle connections cannot be negative, got %d", cfg.MaxIdleConns)
	}
	if cfg.PingTimeout <= 0 {
		return nil, fmt.Errorf("ping timeout must be positive, got %v", cfg.PingTimeout)
	}

	// Write transactions take the lock at BEGIN so balance checks and writes cannot interleave
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_txlock=immediate&_busy_timeout=%d&_foreign_keys=1",
		cfg.Path, cfg.BusyTimeout.Milliseconds())

	zap.L().Info("Opening SQLite database", zap.String("file", cfg.Path))
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}

	// Set connection timeouts and limits
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// Test connection with timeout
	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	maxRetries := cfg.TxMaxRetries
	if maxRetries < 1 {
		maxRetries = 1
	}

	service := &Service{db: db, maxRetries: maxRetries}
	if err := service.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("unable to initialize schema: %w", err)
	}

	if cfg.CreateDummyUsers {
		service.createDummyUsers(ctx)
	} else {
		zap.L().Info("Skipping dummy user creation (CREATE_DUMMY_USERS=false)")
	}

	zap.L().Info("Database service initialized successfully")
	return service, nil
}

func (s *Service) Close() {
	if err := s.db.Close(); err != nil {
		zap.L().Warn("Failed to close database connection", zap.Error(err))
	}
}

func (s *Service) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		role TEXT NOT NULL DEFAULT 'worker',
		active BOOLEAN NOT NULL DEFAULT 1,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);
	CREATE INDEX IF NOT EXISTS idx_users_active ON users(active);

	CREATE TABLE IF NOT EXISTS admin_settings (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		commission_rate TEXT NOT NULL,
		min_amount TEXT NOT NULL,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	-- User wallets (current state, hot data)
	CREATE TABLE IF NOT EXISTS wallets (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		currency_type TEXT NOT NULL,
		balance TEXT NOT NULL DEFAULT '0' CHECK (CAST(balance AS REAL) >= 0),
		version INTEGER NOT NULL DEFAULT 1,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(user_id, currency_type)
	);

	CREATE INDEX IF NOT EXISTS idx_wallets_user_id ON wallets(user_id);

	-- Platform commission wallets, one per currency
	CREATE TABLE IF NOT EXISTS admin_wallets (
		id TEXT PRIMARY KEY,
		currency_type TEXT NOT NULL UNIQUE,
		balance TEXT NOT NULL DEFAULT '0' CHECK (CAST(balance AS REAL) >= 0),
		total_earned TEXT NOT NULL DEFAULT '0',
		total_withdrawn TEXT NOT NULL DEFAULT '0',
		version INTEGER NOT NULL DEFAULT 1,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	-- Ledger (audit trail, append-only)
	CREATE TABLE IF NOT EXISTS wallet_transactions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		wallet_id TEXT NOT NULL,
		wallet_kind TEXT NOT NULL CHECK (wallet_kind IN ('user', 'admin')),
		transaction_type TEXT NOT NULL,
		amount TEXT NOT NULL,
		balance_before TEXT NOT NULL,
		balance_after TEXT NOT NULL,
		currency_type TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'completed',
		reference_id TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		transaction_hash TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		mirrored_at TIMESTAMP
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_wallet_transactions_reference
		ON wallet_transactions(wallet_id, wallet_kind, reference_id);
	CREATE INDEX IF NOT EXISTS idx_wallet_transactions_wallet ON wallet_transactions(wallet_id, id);
	CREATE INDEX IF NOT EXISTS idx_wallet_transactions_reference_id ON wallet_transactions(reference_id);
	CREATE INDEX IF NOT EXISTS idx_wallet_transactions_unmirrored ON wallet_transactions(mirrored_at);

	CREATE TRIGGER IF NOT EXISTS trg_wallet_transactions_no_delete
	BEFORE DELETE ON wallet_transactions
	BEGIN
		SELECT RAISE(ABORT, 'wallet_transactions is append-only');
	END;

	CREATE TRIGGER IF NOT EXISTS trg_wallet_transactions_no_update
	BEFORE UPDATE OF wallet_id, wallet_kind, transaction_type, amount, balance_before, balance_after,
		currency_type, status, reference_id, description, transaction_hash, created_at
	ON wallet_transactions
	BEGIN
		SELECT RAISE(ABORT, 'wallet_transactions is append-only');
	END;

	CREATE TABLE IF NOT EXISTS tasks (
		id TEXT PRIMARY KEY,
		employer_id TEXT NOT NULL,
		title TEXT NOT NULL,
		price TEXT NOT NULL,
		currency_type TEXT NOT NULL,
		total_slots INTEGER NOT NULL CHECK (total_slots > 0),
		slots_filled INTEGER NOT NULL DEFAULT 0 CHECK (slots_filled <= total_slots),
		status TEXT NOT NULL DEFAULT 'open',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS submissions (
		id TEXT PRIMARY KEY,
		task_id TEXT NOT NULL REFERENCES tasks(id),
		worker_id TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		payment_status TEXT NOT NULL DEFAULT '',
		reviewer_notes TEXT NOT NULL DEFAULT '',
		reviewed_at TIMESTAMP,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_submissions_payment ON submissions(status, payment_status);

	-- External payout requests created by withdrawals
	CREATE TABLE IF NOT EXISTS payouts (
		id TEXT PRIMARY KEY,
		transaction_id INTEGER NOT NULL REFERENCES wallet_transactions(id),
		wallet_id TEXT NOT NULL,
		wallet_kind TEXT NOT NULL,
		currency_type TEXT NOT NULL,
		amount TEXT NOT NULL,
		payment_method TEXT NOT NULL,
		payment_address TEXT NOT NULL,
		bank_name TEXT NOT NULL DEFAULT '',
		account_number TEXT NOT NULL DEFAULT '',
		notes TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'pending',
		external_id TEXT NOT NULL DEFAULT '',
		failure_reason TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_payouts_status ON payouts(status, created_at);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

func (s *Service) createDummyUsers(ctx context.Context) {
	users := []struct {
		name  string
		email string
		role  string
	}{
		{"Alice Johnson", "alice.johnson@example.com", models.RoleEmployer},
		{"Bob Smith", "bob.smith@example.com", models.RoleWorker},
		{"Carol Williams", "carol.williams@example.com", models.RoleAdmin},
	}

	now := time.Now().UTC()
	for _, user := range users {
		id := uuid.New().String()
		_, err := s.db.ExecContext(ctx, queryInsertUser, id, user.name, user.email, user.role, now, now)
		if err != nil {
			zap.L().Error("Failed to insert dummy user", zap.String("name", user.name), zap.Error(err))
		} else {
			zap.L().Info("Dummy user created", zap.String("id", id), zap.String("name", user.name))
		}
	}
}

// withTx runs fn inside one database transaction, retrying the whole unit when
// an optimistic version check loses to a concurrent writer.
func (s *Service) withTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	var err error
	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		err = s.runTx(ctx, fn)
		if err == nil || !errors.Is(err, store.ErrConcurrentModification) {
			return err
		}
		zap.L().Warn("Retrying transaction after concurrent modification",
			zap.String("op", op),
			zap.Int("attempt", attempt),
			zap.Error(err))
	}
	return err
}

func (s *Service) runTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}

func checkRowsAffected(result sql.Result, what string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s update failed - %w", what, store.ErrConcurrentModification)
	}
	return nil
}
