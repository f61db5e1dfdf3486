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
	"errors"
	"net/http"

	"microtask-ledger-go/internal/api"
	"microtask-ledger-go/internal/models"

	"go.uber.org/zap"
)

const (
	HeaderUserId   = "X-User-Id"
	HeaderUserRole = "X-User-Role"
)

type identityKey struct{}

// Identity is the caller as asserted by the upstream gateway
type Identity struct {
	UserId string
	Role   string
}

func (i Identity) IsAdmin() bool {
	return i.Role == models.RoleAdmin
}

func identityFrom(ctx context.Context) Identity {
	id, _ := ctx.Value(identityKey{}).(Identity)
	return id
}

// requireIdentity rejects requests that carry no user id
func requireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userId := r.Header.Get(HeaderUserId)
		if userId == "" {
			writeError(w, &api.Error{Code: api.CodeUnauthorized, Op: "identity", Message: "missing user identity"})
			return
		}
		id := Identity{UserId: userId, Role: r.Header.Get(HeaderUserRole)}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), identityKey{}, id)))
	})
}

func requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !identityFrom(r.Context()).IsAdmin() {
			writeError(w, &api.Error{Code: api.CodeForbidden, Op: "identity", Message: "admin role required"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func statusFor(code api.Code) int {
	switch code {
	case api.CodeInvalidRequest, api.CodeInvalidAmount, api.CodeAmountTooLow, api.CodeInvalidCurrencyType,
		api.CodeInvalidPaymentDetails, api.CodeSameWallet, api.CodeCurrencyMismatch:
		return http.StatusBadRequest
	case api.CodeWalletNotFound, api.CodeNotFound:
		return http.StatusNotFound
	case api.CodeInsufficientBalance:
		return http.StatusUnprocessableEntity
	case api.CodeConflict, api.CodeDuplicateTransaction:
		return http.StatusConflict
	case api.CodeForbidden:
		return http.StatusForbidden
	case api.CodeUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("Failed to encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, err error) {
	var apiErr *api.Error
	if !errors.As(err, &apiErr) {
		apiErr = &api.Error{Code: api.CodeInternal, Message: "internal server error", Err: err}
	}

	status := statusFor(apiErr.Code)
	if status == http.StatusInternalServerError {
		zap.L().Error("Request failed", zap.String("op", apiErr.Op), zap.Error(err))
	}
	writeJSON(w, status, errorResponse{Error: apiErr.Message, Code: string(apiErr.Code)})
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return &api.Error{Code: api.CodeInvalidRequest, Op: "decode", Message: "invalid request body", Err: err}
	}
	return nil
}
