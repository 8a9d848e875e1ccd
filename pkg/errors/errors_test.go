package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"app error wins", fmt.Errorf("run: %w", Newf(ErrInvalidInput, http.StatusRequestEntityTooLarge, "too big")), http.StatusRequestEntityTooLarge},
		{"invalid", Invalid("unknown field %q", "Colour"), http.StatusBadRequest},
		{"not found", NotFound("run %s", "x"), http.StatusNotFound},
		{"rate limited", fmt.Errorf("wait: %w", ErrRateLimited), http.StatusTooManyRequests},
		{"search down", fmt.Errorf("es: %w", ErrSearchUnavailable), http.StatusServiceUnavailable},
		{"timeout", ErrTimeout, http.StatusServiceUnavailable},
		{"other", context.Canceled, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatusCode(tt.err))
		})
	}
}

func TestAppErrorUnwraps(t *testing.T) {
	err := NotFound("run %s", "01J")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, "not found: run 01J", err.Error())
}
