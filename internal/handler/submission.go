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
	"errors"
	"io"
	"net/http"

	"microtask-ledger-go/internal/models"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) ApproveSubmission(w http.ResponseWriter, r *http.Request) {
	var req models.ApproveRequest
	// body is optional
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, err)
			return
		}
	}
	req.SubmissionId = chi.URLParam(r, "submissionId")
	req.EmployerId = identityFrom(r.Context()).UserId

	resp, err := h.ledger.ApproveSubmission(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) RetryTaskPayment(w http.ResponseWriter, r *http.Request) {
	resp, err := h.ledger.RetryTaskPayment(r.Context(), chi.URLParam(r, "submissionId"), requesterOf(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) GetAdminWallets(w http.ResponseWriter, r *http.Request) {
	wallets, err := h.ledger.GetAdminWallets(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, wallets)
}

func (h *Handler) AdminWithdraw(w http.ResponseWriter, r *http.Request) {
	var req models.AdminWithdrawRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	resp, err := h.ledger.AdminWithdraw(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (h *Handler) ListFailedPayments(w http.ResponseWriter, r *http.Request) {
	subs, err := h.ledger.ListFailedPayments(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, subs)
}
