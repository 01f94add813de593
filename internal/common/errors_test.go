package common

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_MessageIsVerbatim(t *testing.T) {
	err := &Error{Kind: ErrLedgerRejected, Message: "Campaign not active"}

	assert.Equal(t, "Campaign not active", err.Error())
	assert.ErrorIs(t, err, ErrLedgerRejected)
	assert.NotErrorIs(t, err, ErrReadFailed)
}

func TestError_EmptyMessageFallsBackToKind(t *testing.T) {
	err := &Error{Kind: ErrNotConnected}
	assert.Equal(t, ErrNotConnected.Error(), err.Error())
}

func TestWrap_KeepsCause(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := Wrap(ErrReadFailed, cause)

	require.ErrorIs(t, err, ErrReadFailed)
	require.ErrorIs(t, err, cause)
	assert.Equal(t, "dial tcp: refused", err.Error())
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"nil", nil, nil},
		{"classified", Validation("title is required"), ErrValidationFailed},
		{"wrapped classified", fmt.Errorf("create: %w", NewError(ErrUserRejected, "declined")), ErrUserRejected},
		{"bare sentinel", fmt.Errorf("x: %w", ErrNotConnected), ErrNotConnected},
		{"plain", errors.New("boom"), ErrUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}
