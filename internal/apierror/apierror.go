package apierror

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"
)

type ErrorCode string

const (
	ErrNotFound       ErrorCode = "NOT_FOUND"
	ErrConflict       ErrorCode = "CONFLICT"
	ErrBadRequest     ErrorCode = "BAD_REQUEST"
	ErrInvalidInput   ErrorCode = "INVALID_INPUT"
	ErrInternalServer ErrorCode = "INTERNAL_SERVER_ERROR"

	// Link lifecycle errors. Each maps to a distinct remediation on the
	// caller's side, so they are never collapsed into a generic failure.
	ErrComplianceBlocked   ErrorCode = "COMPLIANCE_BLOCKED"
	ErrInsufficientBalance ErrorCode = "INSUFFICIENT_BALANCE"
	ErrMalformedKey        ErrorCode = "MALFORMED_KEY"
	ErrAlreadyClaimed      ErrorCode = "ALREADY_CLAIMED"
	ErrLinkExhausted       ErrorCode = "LINK_EXHAUSTED"
	ErrTransferFailed      ErrorCode = "TRANSFER_FAILED"
	ErrPartialFunding      ErrorCode = "PARTIAL_FUNDING"
	ErrLedgerUnconfirmed   ErrorCode = "LEDGER_UNCONFIRMED"
)

type APIError struct {
	Code    ErrorCode   `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func (e APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewAPIError(code ErrorCode, message string, details interface{}) APIError {
	logrus.Error(details)
	return APIError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// Is lets errors.Is match two APIErrors by code regardless of message.
func (e APIError) Is(target error) bool {
	var other APIError
	if errors.As(target, &other) {
		return e.Code == other.Code
	}
	return false
}

// CodeOf extracts the error code from an error chain, or
// ErrInternalServer when the error is not an APIError.
func CodeOf(err error) ErrorCode {
	var apiErr APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return ErrInternalServer
}

func MapErrorToHTTPStatus(err error) int {
	var apiErr APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case ErrNotFound:
			return http.StatusNotFound
		case ErrConflict, ErrAlreadyClaimed:
			return http.StatusConflict
		case ErrInvalidInput, ErrMalformedKey, ErrInsufficientBalance:
			return http.StatusBadRequest
		case ErrComplianceBlocked:
			return http.StatusForbidden
		case ErrLinkExhausted:
			return http.StatusGone
		case ErrTransferFailed, ErrPartialFunding:
			return http.StatusBadGateway
		case ErrLedgerUnconfirmed:
			return http.StatusAccepted
		case ErrInternalServer:
			return http.StatusInternalServerError
		default:
			return http.StatusInternalServerError
		}
	}
	return http.StatusInternalServerError
}
