package resilience

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
)

func TestStatusError(t *testing.T) {
	inner := errors.New("overloaded")
	err := eris.Wrap(NewStatusError(inner, 529), "anthropic: create message")

	assert.Equal(t, 529, StatusCode(err))
	assert.ErrorIs(t, err, inner)
	assert.True(t, IsTransient(err))
	assert.Equal(t, 0, StatusCode(errors.New("plain")))
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"regular", errors.New("invalid input: missing field"), false},
		{"transient status", NewStatusError(errors.New("rate limited"), 429), true},
		{"wrapped transient status", fmt.Errorf("api call failed: %w", NewStatusError(errors.New("boom"), 503)), true},
		{"permanent status", NewStatusError(errors.New("unauthorized"), 401), false},
		{"permanent status with network text", NewStatusError(errors.New("i/o timeout"), 400), false},
		{"connection reset", fmt.Errorf("write tcp: %w", syscall.ECONNRESET), true},
		{"connection refused", fmt.Errorf("dial tcp: %w", syscall.ECONNREFUSED), true},
		{"network timeout", &net.DNSError{IsTimeout: true, Err: "timeout"}, true},
		{"reset pattern", errors.New("connection reset by peer"), true},
		{"broken pipe pattern", errors.New("broken pipe"), true},
		{"tls pattern", errors.New("TLS handshake timeout"), true},
		{"io timeout pattern", errors.New("i/o timeout"), true},
		{"idle pattern", errors.New("server closed idle connection"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestIsTransientHTTPStatus(t *testing.T) {
	for _, code := range []int{408, 429, 500, 502, 503, 504, 529} {
		assert.True(t, IsTransientHTTPStatus(code), code)
	}
	for _, code := range []int{200, 400, 401, 403, 404, 422} {
		assert.False(t, IsTransientHTTPStatus(code), code)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Class
	}{
		{"nil", nil, ClassNone},
		{"deadline", eris.Wrap(context.DeadlineExceeded, "narrative: generate"), ClassTimeout},
		{"canceled", fmt.Errorf("call: %w", context.Canceled), ClassCanceled},
		{"status", NewStatusError(errors.New("bad request"), 400), ClassStatus},
		{"transient status", NewStatusError(errors.New("unavailable"), 503), ClassStatus},
		{"net timeout", &net.DNSError{IsTimeout: true, Err: "timeout"}, ClassTimeout},
		{"reset", fmt.Errorf("read: %w", syscall.ECONNRESET), ClassTransient},
		{"dns pattern", errors.New("dial tcp: lookup api.example.com: no such host"), ClassTransient},
		{"status wins over network text", NewStatusError(errors.New("connection reset by peer"), 401), ClassStatus},
		{"other", errors.New("empty response"), ClassOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}
