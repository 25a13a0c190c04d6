package resilience

import (
	"errors"
	"fmt"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestIsTransient(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", errors.New("bad request"), false},
		{"explicit", NewTransientError(errors.New("503"), 503), true},
		{"wrapped explicit", fmt.Errorf("audit: %w", NewTransientError(errors.New("429"), 429)), true},
		{"net timeout", fmt.Errorf("post: %w", timeoutErr{}), true},
		{"econnrefused", fmt.Errorf("dial: %w", syscall.ECONNREFUSED), true},
		{"reset string", errors.New("read tcp: connection reset by peer"), true},
		{"dns string", errors.New("dial tcp: lookup x: no such host"), true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestIsTransientHTTPStatus(t *testing.T) {
	t.Parallel()

	for _, code := range []int{408, 429, 500, 502, 503, 504} {
		assert.True(t, IsTransientHTTPStatus(code), code)
	}
	for _, code := range []int{200, 400, 401, 403, 404, 422} {
		assert.False(t, IsTransientHTTPStatus(code), code)
	}
}

func TestTransientError_Unwrap(t *testing.T) {
	t.Parallel()

	inner := errors.New("inner")
	te := NewTransientError(inner, 502)
	assert.ErrorIs(t, te, inner)
	assert.Equal(t, "inner", te.Error())
	assert.Equal(t, 502, te.StatusCode)
}
