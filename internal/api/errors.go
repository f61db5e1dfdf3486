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
	"errors"
	"fmt"

	"microtask-ledger-go/internal/store"
)

// Code is the machine-readable error code returned to callers
type Code string

const (
	CodeInvalidRequest        Code = "INVALID_REQUEST"
	CodeInvalidAmount         Code = "INVALID_AMOUNT"
	CodeAmountTooLow          Code = "AMOUNT_TOO_LOW"
	CodeInvalidCurrencyType   Code = "INVALID_CURRENCY_TYPE"
	CodeInvalidPaymentDetails Code = "INVALID_PAYMENT_DETAILS"
	CodeSameWallet            Code = "SAME_WALLET"
	CodeCurrencyMismatch      Code = "CURRENCY_MISMATCH"
	CodeWalletNotFound        Code = "WALLET_NOT_FOUND"
	CodeNotFound              Code = "NOT_FOUND"
	CodeInsufficientBalance   Code = "INSUFFICIENT_BALANCE"
	CodeAdminSettingsNotFound Code = "ADMIN_SETTINGS_NOT_FOUND"
	CodeConflict              Code = "CONFLICT"
	CodeDuplicateTransaction  Code = "DUPLICATE_TRANSACTION"
	CodeForbidden             Code = "FORBIDDEN"
	CodeUnauthorized          Code = "UNAUTHORIZED"
	CodeInternal              Code = "INTERNAL_ERROR"
)

// Error is returned by every LedgerService operation that fails.
// Message is safe to show to the caller; Err carries the cause for logs.
type Error struct {
	Code    Code
	Message string
	Op      string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s [%s]: %s -> %v", e.Code, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s [%s]: %s", e.Code, e.Op, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(code Code, op, format string, args ...any) *Error {
	return &Error{Code: code, Op: op, Message: fmt.Sprintf(format, args...)}
}

func newInternal(op string, err error) *Error {
	return &Error{Code: CodeInternal, Op: op, Message: "internal server error", Err: err}
}

// CodeOf returns the code carried by err, or CodeInternal for foreign errors
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// fromStore translates a storage sentinel into a coded error. side names the
// party whose wallet was involved ("user", "employer", "admin").
func fromStore(op string, err error, side string) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}

	wrap := func(code Code, format string, args ...any) *Error {
		apiErr := newError(code, op, format, args...)
		apiErr.Err = err
		return apiErr
	}

	switch {
	case errors.Is(err, store.ErrWalletNotFound):
		return wrap(CodeWalletNotFound, "%s wallet not found", side)
	case errors.Is(err, store.ErrInsufficientBalance):
		return wrap(CodeInsufficientBalance, "insufficient %s balance", side)
	case errors.Is(err, store.ErrCurrencyMismatch):
		return wrap(CodeCurrencyMismatch, "wallets hold different currencies")
	case errors.Is(err, store.ErrSameWallet):
		return wrap(CodeSameWallet, "source and destination wallet must differ")
	case errors.Is(err, store.ErrDuplicateTransaction):
		return wrap(CodeDuplicateTransaction, "transaction already recorded")
	case errors.Is(err, store.ErrSettingsNotFound):
		return wrap(CodeAdminSettingsNotFound, "admin settings not found")
	case errors.Is(err, store.ErrNotFound):
		return wrap(CodeNotFound, "resource not found")
	case errors.Is(err, store.ErrInvalidState):
		return wrap(CodeConflict, "resource is not in a state that allows this operation")
	case errors.Is(err, store.ErrConcurrentModification):
		return wrap(CodeConflict, "wallet was modified concurrently, please retry")
	default:
		return newInternal(op, err)
	}
}
