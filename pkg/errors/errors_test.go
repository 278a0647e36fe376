package errors

import (
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
		{"app error", New(ErrInternal, http.StatusTeapot, "brew"), http.StatusTeapot},
		{"invalid parameter", InvalidParameterf("resolution %d", 0), http.StatusBadRequest},
		{"wrapped invalid input", fmt.Errorf("decoding: %w", ErrInvalidInput), http.StatusBadRequest},
		{"not found", fmt.Errorf("animals: %w", ErrCategoryNotFound), http.StatusNotFound},
		{"timeout", ErrTimeout, http.StatusServiceUnavailable},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatusCode(tt.err))
		})
	}
}

func TestAppErrorUnwrap(t *testing.T) {
	err := InvalidParameterf("resolution must be >= 1, got %d", -2)
	assert.ErrorIs(t, err, ErrInvalidParameter)
	assert.Equal(t, "invalid parameter: resolution must be >= 1, got -2", err.Error())
}
