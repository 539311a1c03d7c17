package httpx_test

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"libralend/internal/errs"
	"libralend/internal/httpx"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", errs.NewValueIsRequiredError("barcode"), http.StatusBadRequest},
		{"not found", errs.NewNotFoundError(errs.CodeItemNotFound, "B404"), http.StatusNotFound},
		{"conflict", errs.NewConflictError(errs.CodeItemUnavailable, "loaned"), http.StatusConflict},
		{"ineligible", errs.NewIneligibleError("M001", "is blacklisted"), http.StatusUnprocessableEntity},
		{"ownership", errs.NewOwnershipMismatchError("B001", "M003"), http.StatusForbidden},
		{"rate limited", errs.NewRateLimitedError("member registration"), http.StatusTooManyRequests},
		{"conflict caused by a missing row", errs.NewConflictErrorWithCause(errs.CodeNoActiveLending, errs.NewNotFoundError(errs.CodeLendingNotFound, "B001"), "no open loan"), http.StatusConflict},
		{"wrapped not found", fmt.Errorf("lookup: %w", errs.NewNotFoundError(errs.CodeItemNotFound, "B404")), http.StatusNotFound},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, httpx.StatusFor(tt.err))
		})
	}
}

func TestWriteError(t *testing.T) {
	t.Run("typed error keeps code", func(t *testing.T) {
		rec := httptest.NewRecorder()
		httpx.WriteError(rec, errs.NewConflictError(errs.CodeNotWaiting, "reservation is CANCELED"))

		assert.Equal(t, http.StatusConflict, rec.Code)
		var body httpx.ErrorResponse
		require.NoError(t, httpx.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "NOT_WAITING", body.Code)
	})

	t.Run("internal error is masked", func(t *testing.T) {
		rec := httptest.NewRecorder()
		httpx.WriteError(rec, errors.New("connection refused to 10.0.0.3"))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.NotContains(t, rec.Body.String(), "10.0.0.3")
	})
}
