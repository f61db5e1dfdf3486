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
	"net/http"
	"strconv"

	"microtask-ledger-go/internal/api"
	"microtask-ledger-go/internal/models"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.ledger.HealthCheck(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) GetWallets(w http.ResponseWriter, r *http.Request) {
	wallets, err := h.ledger.GetWallets(r.Context(), identityFrom(r.Context()).UserId)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, wallets)
}

func (h *Handler) GetEarnings(w http.ResponseWriter, r *http.Request) {
	currency := models.CurrencyType(r.URL.Query().Get("currencyType"))
	earnings, err := h.ledger.GetEarnings(r.Context(), identityFrom(r.Context()).UserId, currency)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, earnings)
}

func (h *Handler) Deposit(w http.ResponseWriter, r *http.Request) {
	var req models.DepositRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	req.UserId = identityFrom(r.Context()).UserId

	resp, err := h.ledger.Deposit(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (h *Handler) Withdraw(w http.ResponseWriter, r *http.Request) {
	var req models.WithdrawRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	req.UserId = identityFrom(r.Context()).UserId

	resp, err := h.ledger.Withdraw(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

// Transfer moves funds between two wallets. Admins may move funds out of any wallet.
func (h *Handler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req models.TransferRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	req.RequesterId = requesterOf(r)

	resp, err := h.ledger.Transfer(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) GetTransactionHistory(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, err)
		return
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		writeError(w, err)
		return
	}

	txs, err := h.ledger.GetTransactionHistory(r.Context(), chi.URLParam(r, "walletId"), requesterOf(r), limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, txs)
}

// requesterOf returns the caller id used for ownership checks; empty for admins
func requesterOf(r *http.Request) string {
	id := identityFrom(r.Context())
	if id.IsAdmin() {
		return ""
	}
	return id.UserId
}

func queryInt(r *http.Request, key string) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &api.Error{Code: api.CodeInvalidRequest, Op: "query", Message: "invalid " + key, Err: err}
	}
	return n, nil
}
