package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
// Details carries machine-readable rejection context (days remaining,
// minimum balance, current balance) that calling UIs render directly.
type AppError struct {
	Code       string         `json:"error_code"`
	Message    string         `json:"message"`
	Details    map[string]any `json:"details,omitempty"`
	HTTPStatus int            `json:"-"`
	Err        error          `json:"-"` // Wrapped internal error (not exposed to client)
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

// WithDetails attaches structured detail fields and returns the error.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	e.Details = details
	return e
}

// ---- Ledger Business Logic (LED) ----

func ErrInsufficientFunds(available, requested string) *AppError {
	return New("LED_001", "Insufficient available balance", http.StatusPaymentRequired).
		WithDetails(map[string]any{
			"available": available,
			"requested": requested,
		})
}

func ErrWalletFrozen() *AppError {
	return New("LED_002", "Wallet is frozen", http.StatusForbidden)
}

func ErrInvalidAmount() *AppError {
	return New("LED_003", "Invalid amount", http.StatusBadRequest)
}

func ErrNotFound(entity string) *AppError {
	return New("LED_004", fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

// ---- Withdrawal Eligibility (WDR) ----

// ErrNotEligible rejects a user withdrawal still inside the anti-fraud
// holding window. daysRemaining is reported so the UI can show a countdown.
func ErrNotEligible(daysRemaining int) *AppError {
	return New("WDR_001", "Wallet not yet eligible for withdrawal", http.StatusUnprocessableEntity).
		WithDetails(map[string]any{
			"days_remaining": daysRemaining,
		})
}

// ErrBelowMinimumBalance rejects a venue withdrawal under the balance floor.
func ErrBelowMinimumBalance(minimum, current string) *AppError {
	return New("WDR_002", "Balance below minimum withdrawal threshold", http.StatusUnprocessableEntity).
		WithDetails(map[string]any{
			"minimum_balance": minimum,
			"current_balance": current,
		})
}

func ErrInvalidState(from, action string) *AppError {
	return New("WDR_003", "Illegal withdrawal state transition", http.StatusConflict).
		WithDetails(map[string]any{
			"current_status": from,
			"action":         action,
		})
}

func ErrAmountBelowFee(fee string) *AppError {
	return New("WDR_004", "Withdrawal amount must exceed the flat fee", http.StatusBadRequest).
		WithDetails(map[string]any{
			"fee": fee,
		})
}

// ---- External Processor (PSP) ----

func ErrExternalProcessor(err error) *AppError {
	return Wrap("PSP_001", "Payment processor error", http.StatusBadGateway, err)
}

// ---- Authentication (AUTH) ----

func ErrInvalidToken() *AppError {
	return New("AUTH_001", "Invalid or expired token", http.StatusUnauthorized)
}

func ErrInvalidSignature() *AppError {
	return New("AUTH_002", "Invalid webhook signature", http.StatusUnauthorized)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

func ErrDatabaseError(err error) *AppError {
	return Wrap("SYS_001", "Internal database error", http.StatusInternalServerError, err)
}

// Validation returns a LED_003-style validation error with a custom message.
func Validation(message string) *AppError {
	return New("LED_003", message, http.StatusBadRequest)
}
