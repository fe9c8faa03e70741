package types

import (
	"context"
	"errors"
	"hash"
	"time"

	"go.uber.org/ratelimit"
)

// Errors
var (
	ErrInvalidPrefix   = errors.New("target prefix must be 1-64 hex characters")
	ErrInputTooLarge   = errors.New("candidate input exceeds maximum size")
	ErrSearchExhausted = errors.New("nonce range exhausted without a match")
	ErrCancelled       = errors.New("search cancelled")
)

// Result represents a successful search
type Result struct {
	Nonce    uint64
	Digest   string // lowercase hex
	Attempts uint64
	Duration time.Duration
}

// Outcome is the terminal state of a search.
type Outcome int

const (
	OutcomeFound Outcome = iota
	OutcomeNotFound
	OutcomeCancelled
	OutcomeInputTooLarge
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeFound:
		return "found"
	case OutcomeNotFound:
		return "not_found"
	case OutcomeCancelled:
		return "cancelled"
	case OutcomeInputTooLarge:
		return "input_too_large"
	default:
		return "failed"
	}
}

// OutcomeOf classifies the error returned by a search.
func OutcomeOf(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeFound
	case errors.Is(err, ErrSearchExhausted):
		return OutcomeNotFound
	case errors.Is(err, ErrCancelled), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return OutcomeCancelled
	case errors.Is(err, ErrInputTooLarge):
		return OutcomeInputTooLarge
	default:
		return OutcomeFailed
	}
}

// WorkerConfig contains configuration shared by every worker of one search
type WorkerConfig struct {
	Data    []byte // never modified
	Prefix  string // normalized lowercase hex
	NewHash func() hash.Hash

	MaxInputSize  int               // 0 disables the cap
	YieldInterval uint64            // attempts between yield points
	Limiter       ratelimit.Limiter // taken once per yield point; nil for unlimited
}

// Hit is the first event a worker observed in its range.
type Hit struct {
	Found  bool
	Nonce  uint64
	Digest string
}
