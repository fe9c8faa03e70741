package types

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOutcomeOf(t *testing.T) {
	tests := []struct {
		err  error
		want Outcome
		name string
	}{
		{nil, OutcomeFound, "found"},
		{fmt.Errorf("scan: %w", ErrSearchExhausted), OutcomeNotFound, "not_found"},
		{fmt.Errorf("%w: %w", ErrCancelled, context.Canceled), OutcomeCancelled, "cancelled"},
		{context.DeadlineExceeded, OutcomeCancelled, "cancelled"},
		{fmt.Errorf("%w: nonce 10", ErrInputTooLarge), OutcomeInputTooLarge, "input_too_large"},
		{errors.New("boom"), OutcomeFailed, "failed"},
	}

	for _, tt := range tests {
		got := OutcomeOf(tt.err)
		assert.Equal(t, tt.want, got, "OutcomeOf(%v)", tt.err)
		assert.Equal(t, tt.name, got.String())
	}
}
