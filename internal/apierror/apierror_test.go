package apierror

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestAPIErrorError(t *testing.T) {
	err := NewAPIError(ErrMalformedKey, "invalid custody key encoding", nil)
	assert.Equal(t, "MALFORMED_KEY: invalid custody key encoding", err.Error())
}

func TestCodeOf(t *testing.T) {
	err := NewAPIError(ErrAlreadyClaimed, "link already claimed", nil)
	assert.Equal(t, ErrAlreadyClaimed, CodeOf(err))

	wrapped := errors.Wrap(err, "refund")
	assert.Equal(t, ErrAlreadyClaimed, CodeOf(wrapped))

	assert.Equal(t, ErrInternalServer, CodeOf(fmt.Errorf("boom")))
}

func TestMapErrorToHTTPStatus(t *testing.T) {
	cases := map[ErrorCode]int{
		ErrNotFound:            http.StatusNotFound,
		ErrConflict:            http.StatusConflict,
		ErrAlreadyClaimed:      http.StatusConflict,
		ErrInvalidInput:        http.StatusBadRequest,
		ErrMalformedKey:        http.StatusBadRequest,
		ErrInsufficientBalance: http.StatusBadRequest,
		ErrComplianceBlocked:   http.StatusForbidden,
		ErrLinkExhausted:       http.StatusGone,
		ErrTransferFailed:      http.StatusBadGateway,
		ErrPartialFunding:      http.StatusBadGateway,
		ErrLedgerUnconfirmed:   http.StatusAccepted,
		ErrInternalServer:      http.StatusInternalServerError,
	}
	for code, want := range cases {
		got := MapErrorToHTTPStatus(APIError{Code: code, Message: "x"})
		assert.Equal(t, want, got, string(code))
	}
	assert.Equal(t, http.StatusInternalServerError, MapErrorToHTTPStatus(fmt.Errorf("plain")))
}
