package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Ledger Business Logic (LEDGER) ----

func ErrInsufficientBalance() *AppError {
	return New("LEDGER_001", "Insufficient balance", http.StatusPaymentRequired)
}

func ErrInvalidAmount() *AppError {
	return New("LEDGER_002", "Amount must be positive", http.StatusBadRequest)
}

func ErrInvalidCurrency() *AppError {
	return New("LEDGER_003", "Unknown currency kind", http.StatusBadRequest)
}

func ErrNotFound(entity string) *AppError {
	return New("LEDGER_004", fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

// ErrBalanceRecordMissing signals the invariant violation of locking a
// balance row that EnsureExists should have created. It indicates a bug,
// not a caller mistake.
func ErrBalanceRecordMissing(userID string) *AppError {
	return New("LEDGER_005", fmt.Sprintf("balance record missing for user %s", userID), http.StatusInternalServerError)
}

// ---- Purchase Reconciliation (PURCH) ----

func ErrInvalidPackage() *AppError {
	return New("PURCH_001", "Unknown or inactive currency package", http.StatusBadRequest)
}

// ErrAlreadyProcessed reports a duplicate completion attempt. Callers should
// treat it as success-already-happened rather than a new failure.
func ErrAlreadyProcessed() *AppError {
	return New("PURCH_002", "Purchase already processed", http.StatusConflict)
}

func ErrDuplicateSubmission() *AppError {
	return New("PURCH_003", "Duplicate provider transaction", http.StatusConflict)
}

func ErrNotRefundable() *AppError {
	return New("PURCH_004", "Purchase is not in a refundable state", http.StatusBadRequest)
}

// ---- System & Infrastructure (SYS) ----

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

// ErrLockTimeout reports a lock acquisition timeout. Retryable by the
// caller with backoff; the ledger itself never retries.
func ErrLockTimeout(err error) *AppError {
	return Wrap("SYS_002", "Lock acquisition timeout", http.StatusServiceUnavailable, err)
}

// Validation returns a LEDGER_002-style validation error with a custom message.
func Validation(message string) *AppError {
	return New("LEDGER_002", message, http.StatusBadRequest)
}
