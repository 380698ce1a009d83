package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errSentinel = errors.New("sentinel")

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, KindUnknown},
		{"plain", errors.New("boom"), KindUnknown},
		{"validation", Validation(errSentinel), KindValidation},
		{"auth", Auth(errSentinel), KindAuth},
		{"not found", NotFound(errSentinel), KindNotFound},
		{"storage", Storage(errSentinel, "insert user"), KindStorage},
		{"wrapped by fmt", fmt.Errorf("handler: %w", NotFound(errSentinel)), KindNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestWrappingKeepsSentinel(t *testing.T) {
	err := fmt.Errorf("login: %w", Auth(errSentinel))
	assert.ErrorIs(t, err, errSentinel)
	assert.True(t, Is(err, KindAuth))
}

func TestStorageCarriesOperation(t *testing.T) {
	err := Storage(errors.New("connection refused"), "list employees")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list employees")
	assert.Equal(t, "list employees", Context(err)["op"])
}

func TestNilStaysNil(t *testing.T) {
	assert.NoError(t, Storage(nil, "noop"))
	assert.NoError(t, Validation(nil))
}
