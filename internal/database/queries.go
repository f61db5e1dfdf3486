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

const (
	// User queries
	queryGetActiveUsers = `
		SELECT id, name, email, role, created_at, updated_at
		FROM users
		WHERE active = 1
		ORDER BY created_at`

	queryInsertUser = `
		INSERT OR IGNORE INTO users (id, name, email, role, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`

	queryGetUserById = `
		SELECT id, name, email, role, created_at, updated_at
		FROM users
		WHERE id = ? AND active = 1`

	queryGetUserByEmail = `
		SELECT id, name, email, role, created_at, updated_at
		FROM users
		WHERE email = ? AND active = 1`

	// Settings queries
	queryGetSettings = `
		SELECT commission_rate, min_amount, updated_at
		FROM admin_settings
		WHERE id = 1`

	queryUpsertSettings = `
		INSERT INTO admin_settings (id, commission_rate, min_amount, updated_at)
		VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			commission_rate = excluded.commission_rate,
			min_amount = excluded.min_amount,
			updated_at = excluded.updated_at`

	// Wallet queries
	walletColumns = `id, user_id, currency_type, balance, version, created_at, updated_at`

	queryGetWallet = `
		SELECT ` + walletColumns + `
		FROM wallets
		WHERE id = ?`

	queryGetUserWallet = `
		SELECT ` + walletColumns + `
		FROM wallets
		WHERE user_id = ? AND currency_type = ?`

	queryGetUserWallets = `
		SELECT ` + walletColumns + `
		FROM wallets
		WHERE user_id = ?
		ORDER BY currency_type`

	queryInsertWallet = `
		INSERT INTO wallets (id, user_id, currency_type, balance, version, created_at, updated_at)
		VALUES (?, ?, ?, '0', 1, ?, ?)`

	queryUpdateWalletBalance = `
		UPDATE wallets
		SET balance = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`

	// Admin wallet queries
	adminWalletColumns = `id, currency_type, balance, total_earned, total_withdrawn, version, created_at, updated_at`

	queryGetAdminWallet = `
		SELECT ` + adminWalletColumns + `
		FROM admin_wallets
		WHERE currency_type = ?`

	queryGetAdminWallets = `
		SELECT ` + adminWalletColumns + `
		FROM admin_wallets
		ORDER BY currency_type`

	queryInsertAdminWallet = `
		INSERT OR IGNORE INTO admin_wallets (id, currency_type, balance, total_earned, total_withdrawn, version, created_at, updated_at)
		VALUES (?, ?, '0', '0', '0', 1, ?, ?)`

	queryUpdateAdminWallet = `
		UPDATE admin_wallets
		SET balance = ?, total_earned = ?, total_withdrawn = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`

	// Ledger queries
	transactionColumns = `id, wallet_id, wallet_kind, transaction_type, amount, balance_before, balance_after,
		currency_type, status, reference_id, description, transaction_hash, created_at`

	queryCheckDuplicateReference = `
		SELECT id FROM wallet_transactions
		WHERE wallet_id = ? AND wallet_kind = ? AND reference_id = ?
		LIMIT 1`

	queryInsertTransaction = `
		INSERT INTO wallet_transactions (
			wallet_id, wallet_kind, transaction_type, amount, balance_before, balance_after,
			currency_type, status, reference_id, description, transaction_hash, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	queryGetTransactionHistory = `
		SELECT ` + transactionColumns + `
		FROM wallet_transactions
		WHERE wallet_id = ?
		ORDER BY id DESC
		LIMIT ? OFFSET ?`

	queryGetTransactionsByReference = `
		SELECT ` + transactionColumns + `
		FROM wallet_transactions
		WHERE reference_id = ?
		ORDER BY id`

	queryGetWalletLedgerAmounts = `
		SELECT amount
		FROM wallet_transactions
		WHERE wallet_id = ? AND wallet_kind = ? AND status = 'completed'`

	queryGetEarningAmounts = `
		SELECT t.amount
		FROM wallet_transactions t
		JOIN wallets w ON w.id = t.wallet_id AND t.wallet_kind = 'user'
		WHERE w.user_id = ? AND w.currency_type = ?
		  AND t.transaction_type = 'task_payment' AND t.status = 'completed'`

	queryListUnmirroredTransactions = `
		SELECT t.id, t.wallet_id, t.wallet_kind, t.transaction_type, t.amount, t.balance_before, t.balance_after,
		       t.currency_type, t.status, t.reference_id, t.description, t.transaction_hash, t.created_at,
		       COALESCE(w.user_id, '')
		FROM wallet_transactions t
		LEFT JOIN wallets w ON w.id = t.wallet_id AND t.wallet_kind = 'user'
		WHERE t.mirrored_at IS NULL
		ORDER BY t.id
		LIMIT ?`

	queryMarkTransactionMirrored = `
		UPDATE wallet_transactions
		SET mirrored_at = ?
		WHERE id = ? AND mirrored_at IS NULL`

	// Task queries
	taskColumns = `id, employer_id, title, price, currency_type, total_slots, slots_filled, status, created_at, updated_at`

	queryInsertTask = `
		INSERT INTO tasks (id, employer_id, title, price, currency_type, total_slots, slots_filled, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, 0, 'open', ?, ?)`

	queryGetTask = `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE id = ?`

	queryFillTaskSlot = `
		UPDATE tasks
		SET slots_filled = MIN(slots_filled + 1, total_slots),
		    status = CASE WHEN slots_filled + 1 >= total_slots THEN 'completed' ELSE status END,
		    updated_at = ?
		WHERE id = ?`

	// Submission queries
	submissionColumns = `id, task_id, worker_id, status, payment_status, reviewer_notes, reviewed_at, created_at`

	queryInsertSubmission = `
		INSERT INTO submissions (id, task_id, worker_id, status, payment_status, reviewer_notes, created_at)
		VALUES (?, ?, ?, 'pending', '', '', ?)`

	queryGetSubmission = `
		SELECT ` + submissionColumns + `
		FROM submissions
		WHERE id = ?`

	queryApproveSubmission = `
		UPDATE submissions
		SET status = 'approved', reviewer_notes = ?, reviewed_at = ?
		WHERE id = ? AND status = 'pending'`

	querySetSubmissionPaymentStatus = `
		UPDATE submissions
		SET payment_status = ?
		WHERE id = ?`

	queryListFailedPayments = `
		SELECT ` + submissionColumns + `
		FROM submissions
		WHERE status = 'approved' AND payment_status = 'failed'
		ORDER BY reviewed_at`

	// Payout queries
	payoutColumns = `id, transaction_id, wallet_id, wallet_kind, currency_type, amount, payment_method, payment_address,
		bank_name, account_number, notes, status, external_id, failure_reason, created_at, updated_at`

	queryInsertPayout = `
		INSERT INTO payouts (` + payoutColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 'pending', '', '', ?, ?)`

	queryGetPayout = `
		SELECT ` + payoutColumns + `
		FROM payouts
		WHERE id = ?`

	queryListPendingPayouts = `
		SELECT ` + payoutColumns + `
		FROM payouts
		WHERE status = 'pending' AND currency_type = ? AND (? = '' OR payment_method = ?)
		ORDER BY created_at
		LIMIT ?`

	queryMarkPayoutSubmitted = `
		UPDATE payouts
		SET status = 'submitted', external_id = ?, updated_at = ?
		WHERE id = ? AND status = 'pending'`

	queryMarkPayoutFailed = `
		UPDATE payouts
		SET status = 'failed', failure_reason = ?, updated_at = ?
		WHERE id = ? AND status = 'pending'`
)
