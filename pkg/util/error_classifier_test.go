package util

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
)

func TestIsRetryableError(t *testing.T) {
	jsonErr := json.Unmarshal([]byte(`{bad`), &struct{}{})

	tests := []struct {
		name          string
		err           error
		wantRetryable bool
		wantType      string
	}{
		{"nil", nil, false, ""},
		{"json syntax", jsonErr, false, "json_decode_error"},
		{"no rows", pgx.ErrNoRows, false, "record_not_found"},
		{"wrapped no rows", fmt.Errorf("load user: %w", pgx.ErrNoRows), false, "record_not_found"},
		{"duplicate key", errors.New(`duplicate key value violates unique constraint "uq_notifications_dedup"`), false, "duplicate_key"},
		{"db connection", errors.New("failed to connect: connection refused"), true, "db_connection_error"},
		{"deadline", context.DeadlineExceeded, true, "timeout"},
		{"wrapped deadline", fmt.Errorf("push fan-out: %w", context.DeadlineExceeded), true, "timeout"},
		{"canceled", context.Canceled, false, "context_canceled"},
		{"dns failure", &net.DNSError{Err: "no such host", Name: "push.internal"}, true, "network_error"},
		{"provider error", errors.New("push provider returned error: status=503"), true, "push_provider_error"},
		{"provider unreachable", errors.New("failed to call push provider: dial tcp: no route"), true, "push_provider_unavailable"},
		{"unknown", errors.New("something odd"), false, "unknown_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			retryable, errorType := IsRetryableError(tt.err)
			assert.Equal(t, tt.wantRetryable, retryable)
			assert.Equal(t, tt.wantType, errorType)
		})
	}
}

func TestShouldRetry(t *testing.T) {
	assert.False(t, ShouldRetry(1, 5, false))
	assert.True(t, ShouldRetry(1, 5, true))
	assert.True(t, ShouldRetry(5, 5, true))
	assert.False(t, ShouldRetry(6, 5, true))
}
