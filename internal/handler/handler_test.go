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

package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"microtask-ledger-go/internal/api"
	"microtask-ledger-go/internal/database"
	"microtask-ledger-go/internal/models"
	"microtask-ledger-go/internal/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) (http.Handler, *database.Service) {
	t.Helper()
	ctx := context.Background()

	db, err := database.NewService(ctx, models.DatabaseConfig{
		Path:         ":memory:",
		MaxOpenConns: 1,
		MaxIdleConns: 1,
		PingTimeout:  time.Second,
		BusyTimeout:  5 * time.Second,
		TxMaxRetries: 3,
	})
	require.NoError(t, err)
	t.Cleanup(db.Close)

	require.NoError(t, db.EnsureAdminWallets(ctx, models.SupportedCurrencies))
	require.NoError(t, db.SaveSettings(ctx, decimal.RequireFromString("0.05"), decimal.NewFromInt(5)))

	return NewRouter(api.NewLedgerService(db), models.ServerConfig{RequestTimeout: 5 * time.Second}), db
}

func do(t *testing.T, router http.Handler, method, path, userId, role, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if userId != "" {
		req.Header.Set(HeaderUserId, userId)
	}
	if role != "" {
		req.Header.Set(HeaderUserRole, role)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func requireErrorCode(t *testing.T, rec *httptest.ResponseRecorder, status int, code api.Code) {
	t.Helper()
	require.Equal(t, status, rec.Code, rec.Body.String())

	var body errorResponse
	decodeBody(t, rec, &body)
	assert.Equal(t, string(code), body.Code)
	assert.NotEmpty(t, body.Error)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		code   api.Code
		status int
	}{
		{api.CodeInvalidAmount, http.StatusBadRequest},
		{api.CodeAmountTooLow, http.StatusBadRequest},
		{api.CodeSameWallet, http.StatusBadRequest},
		{api.CodeCurrencyMismatch, http.StatusBadRequest},
		{api.CodeWalletNotFound, http.StatusNotFound},
		{api.CodeInsufficientBalance, http.StatusUnprocessableEntity},
		{api.CodeDuplicateTransaction, http.StatusConflict},
		{api.CodeConflict, http.StatusConflict},
		{api.CodeForbidden, http.StatusForbidden},
		{api.CodeUnauthorized, http.StatusUnauthorized},
		{api.CodeAdminSettingsNotFound, http.StatusInternalServerError},
		{api.CodeInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.status, statusFor(tt.code))
		})
	}
}

func TestHealth(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := do(t, router, http.MethodGet, "/health", "", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestMissingIdentity(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := do(t, router, http.MethodGet, "/wallet", "", "", "")
	requireErrorCode(t, rec, http.StatusUnauthorized, api.CodeUnauthorized)
}

func TestDepositAndListWallets(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := do(t, router, http.MethodPost, "/wallet/deposit", "alice", "",
		`{"amount":"100","currencyType":"USD"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var deposit models.DepositResponse
	decodeBody(t, rec, &deposit)
	assert.True(t, deposit.CommissionAmount.Equal(decimal.NewFromInt(5)))
	assert.True(t, deposit.NewBalance.Equal(decimal.NewFromInt(95)))

	rec = do(t, router, http.MethodGet, "/wallet", "alice", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var wallets []models.Wallet
	decodeBody(t, rec, &wallets)
	require.Len(t, wallets, 1)
	assert.Equal(t, models.CurrencyUSD, wallets[0].CurrencyType)
	assert.True(t, wallets[0].Balance.Equal(decimal.NewFromInt(95)))
	assert.NotContains(t, rec.Body.String(), "version")

	rec = do(t, router, http.MethodGet, "/admin/wallet", "carol", models.RoleAdmin, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var admin []models.AdminWallet
	decodeBody(t, rec, &admin)
	for _, w := range admin {
		if w.CurrencyType == models.CurrencyUSD {
			assert.True(t, w.Balance.Equal(decimal.NewFromInt(5)))
		}
	}
}

func TestDepositErrors(t *testing.T) {
	router, _ := newTestRouter(t)

	tests := []struct {
		name   string
		body   string
		status int
		code   api.Code
	}{
		{"malformed body", `{"amount":`, http.StatusBadRequest, api.CodeInvalidRequest},
		{"negative amount", `{"amount":"-1","currencyType":"USD"}`, http.StatusBadRequest, api.CodeInvalidAmount},
		{"below minimum", `{"amount":"4.99","currencyType":"USD"}`, http.StatusBadRequest, api.CodeAmountTooLow},
		{"unknown currency", `{"amount":"10","currencyType":"EUR"}`, http.StatusBadRequest, api.CodeInvalidCurrencyType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, router, http.MethodPost, "/wallet/deposit", "alice", "", tt.body)
			requireErrorCode(t, rec, tt.status, tt.code)
		})
	}
}

func TestWithdrawInsufficientBalance(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := do(t, router, http.MethodPost, "/wallet/deposit", "alice", "", `{"amount":"20","currencyType":"USD"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, router, http.MethodPost, "/wallet/withdraw", "alice", "",
		`{"amount":"50","currencyType":"USD","paymentMethod":"bank_transfer","paymentAddress":"acct-1"}`)
	requireErrorCode(t, rec, http.StatusUnprocessableEntity, api.CodeInsufficientBalance)

	rec = do(t, router, http.MethodPost, "/wallet/withdraw", "bob", "",
		`{"amount":"10","currencyType":"USD","paymentMethod":"bank_transfer","paymentAddress":"acct-1"}`)
	requireErrorCode(t, rec, http.StatusNotFound, api.CodeWalletNotFound)
}

func TestTransactionHistoryOwnership(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := do(t, router, http.MethodPost, "/wallet/deposit", "alice", "", `{"amount":"100","currencyType":"USD"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, router, http.MethodGet, "/wallet", "alice", "", "")
	var wallets []models.Wallet
	decodeBody(t, rec, &wallets)
	require.Len(t, wallets, 1)
	path := "/wallet/" + wallets[0].Id + "/transactions?limit=10"

	rec = do(t, router, http.MethodGet, path, "alice", "", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var txs []models.WalletTransaction
	decodeBody(t, rec, &txs)
	require.Len(t, txs, 1)
	assert.Equal(t, models.TransactionTypeDeposit, txs[0].TransactionType)

	rec = do(t, router, http.MethodGet, path, "mallory", "", "")
	requireErrorCode(t, rec, http.StatusForbidden, api.CodeForbidden)

	rec = do(t, router, http.MethodGet, path, "carol", models.RoleAdmin, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, router, http.MethodGet, "/wallet/"+wallets[0].Id+"/transactions?limit=abc", "alice", "", "")
	requireErrorCode(t, rec, http.StatusBadRequest, api.CodeInvalidRequest)
}

func TestApproveSubmissionRoute(t *testing.T) {
	router, db := newTestRouter(t)
	ctx := context.Background()

	rec := do(t, router, http.MethodPost, "/wallet/deposit", "alice", "", `{"amount":"100","currencyType":"USD"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	_, err := db.CreateTask(ctx, store.CreateTaskParams{
		Id:           "t1",
		EmployerId:   "alice",
		Title:        "Label images",
		Price:        decimal.NewFromInt(10),
		CurrencyType: models.CurrencyUSD,
		TotalSlots:   2,
	})
	require.NoError(t, err)
	_, err = db.CreateSubmission(ctx, store.CreateSubmissionParams{Id: "s1", TaskId: "t1", WorkerId: "bob"})
	require.NoError(t, err)

	rec = do(t, router, http.MethodPost, "/submissions/s1/approve", "mallory", "", "")
	requireErrorCode(t, rec, http.StatusForbidden, api.CodeForbidden)

	rec = do(t, router, http.MethodPost, "/submissions/s1/approve", "alice", "", `{"reviewerNotes":"thanks"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp models.ApproveResponse
	decodeBody(t, rec, &resp)
	assert.Equal(t, models.PaymentStatusSuccess, resp.PaymentStatus)
	assert.Equal(t, "thanks", resp.Submission.ReviewerNotes)

	rec = do(t, router, http.MethodPost, "/submissions/s1/approve", "alice", "", "")
	requireErrorCode(t, rec, http.StatusConflict, api.CodeConflict)

	rec = do(t, router, http.MethodPost, "/submissions/s1/retry-payment", "alice", "", "")
	requireErrorCode(t, rec, http.StatusConflict, api.CodeConflict)

	rec = do(t, router, http.MethodGet, "/wallet/earnings?currencyType=USD", "bob", "", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var earnings models.EarningsResponse
	decodeBody(t, rec, &earnings)
	assert.True(t, earnings.TotalEarned.Equal(decimal.NewFromInt(10)))
}

func TestAdminRoutesRequireRole(t *testing.T) {
	router, _ := newTestRouter(t)

	for _, path := range []string{"/admin/wallet", "/admin/payments/failed"} {
		rec := do(t, router, http.MethodGet, path, "alice", "", "")
		requireErrorCode(t, rec, http.StatusForbidden, api.CodeForbidden)

		rec = do(t, router, http.MethodGet, path, "carol", models.RoleAdmin, "")
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}

	rec := do(t, router, http.MethodPost, "/admin/wallet/withdraw", "carol", models.RoleAdmin,
		`{"amount":"10","currencyType":"USD","paymentMethod":"bank_transfer","paymentAddress":"acct-9"}`)
	requireErrorCode(t, rec, http.StatusUnprocessableEntity, api.CodeInsufficientBalance)
}

func TestWriteErrorHidesInternalCause(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, assert.AnError)

	requireErrorCode(t, rec, http.StatusInternalServerError, api.CodeInternal)
	assert.NotContains(t, rec.Body.String(), assert.AnError.Error())
}
