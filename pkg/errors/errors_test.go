package errors

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/frostdev-ops/fileflows-bridge/internal/adapters/fileflows"
)

func TestFromFileFlows(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"connection", &fileflows.Error{Kind: fileflows.KindConnection, Op: "GET api/node", Err: context.DeadlineExceeded}, http.StatusBadGateway},
		{"auth", &fileflows.Error{Kind: fileflows.KindAuth, Op: "login", Status: 401}, http.StatusBadGateway},
		{"protocol", fmt.Errorf("pause: %w", &fileflows.Error{Kind: fileflows.KindProtocol, Op: "POST", Status: 500}), http.StatusBadGateway},
		{"invalid command", fmt.Errorf("%w: id is required", fileflows.ErrInvalidCommand), http.StatusBadRequest},
		{"app error", ErrUnavailable, http.StatusServiceUnavailable},
		{"other", fmt.Errorf("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			appErr := FromFileFlows(tt.err)
			assert.Equal(t, tt.code, appErr.Code)
			assert.Equal(t, tt.code, GetStatusCode(appErr))
		})
	}
	assert.Nil(t, FromFileFlows(nil))
}

func TestAppErrorHelpers(t *testing.T) {
	err := WithDetails(ErrNotFound, "entity fileflows_sensor_x")
	assert.True(t, IsAppError(fmt.Errorf("wrapped: %w", err)))
	assert.Contains(t, err.Error(), "details=entity fileflows_sensor_x")
	assert.Equal(t, "Resource not found", ErrNotFound.Message)
	assert.False(t, IsAppError(fmt.Errorf("plain")))
	assert.Equal(t, http.StatusInternalServerError, GetStatusCode(fmt.Errorf("plain")))
}
