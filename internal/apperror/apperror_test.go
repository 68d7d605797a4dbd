package apperror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	cause := errors.New("connection refused")
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"validation", Validation("bad subcategory %q", "defi"), KindValidation},
		{"wrapped upstream", fmt.Errorf("import: %w", Upstream(cause, "time-series store")), KindUpstreamUnavailable},
		{"plain error", cause, KindInternal},
		{"nil", nil, KindInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestError_IsAndUnwrap(t *testing.T) {
	cause := errors.New("timeout")
	err := fmt.Errorf("refresh: %w", Upstream(cause, "kitrading"))

	assert.True(t, errors.Is(err, ErrUpstreamUnavailable))
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, "refresh: kitrading: timeout", err.Error())
}

func TestError_MessageOnly(t *testing.T) {
	err := NotFound("symbol %s not found", "EURUSD")
	assert.Equal(t, "symbol EURUSD not found", err.Error())
	assert.True(t, errors.Is(err, ErrNotFound))
}
