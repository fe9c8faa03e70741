package worker

import (
	"context"
	"encoding/hex"
	"fmt"
	"hash"
	"runtime"
	"strconv"

	"github.com/screa/nonce-miner/internal/crypto"
	"github.com/screa/nonce-miner/pkg/types"
)

// DefaultYieldInterval is the number of attempts between yield points.
const DefaultYieldInterval = 1_000_000

// Worker scans nonce ranges for a digest whose hex form starts with the target prefix
type Worker struct {
	config *types.WorkerConfig
	hasher hash.Hash

	// prefixBytes is the number of leading digest bytes that must be
	// hex-encoded to compare against the prefix.
	prefixBytes   int
	yieldInterval uint64

	// Pre-allocated buffers for performance
	input      []byte
	sum        [crypto.DigestSize]byte
	hexBuf     [crypto.DigestHexLen]byte
	pending    uint64 // attempts not yet reported
	sinceYield uint64 // carried across Scan calls
}

// NewWorker creates a new worker instance
func NewWorker(config *types.WorkerConfig) *Worker {
	yieldInterval := config.YieldInterval
	if yieldInterval == 0 {
		yieldInterval = DefaultYieldInterval
	}
	input := make([]byte, len(config.Data), len(config.Data)+20)
	copy(input, config.Data)
	return &Worker{
		config:        config,
		hasher:        config.NewHash(),
		prefixBytes:   (len(config.Prefix) + 1) / 2,
		yieldInterval: yieldInterval,
		input:         input,
	}
}

// Candidate returns data || decimal(nonce) in the worker's buffer. The slice is
// only valid until the next call.
func (w *Worker) Candidate(nonce uint64) []byte {
	w.input = strconv.AppendUint(w.input[:len(w.config.Data)], nonce, 10)
	return w.input
}

// Scan tries every nonce in [from, to] in increasing order and returns the first
// match. A zero Hit means the range held no match. Every YieldInterval attempts
// the worker yields the processor, waits on the limiter, and checks ctx; the
// count carries over between calls so chunked scans keep the same cadence.
func (w *Worker) Scan(ctx context.Context, from, to uint64, attempts func(uint64)) (types.Hit, error) {
	if from > to {
		return types.Hit{}, nil
	}
	defer w.flush(attempts)

	for nonce := from; ; nonce++ {
		candidate := w.Candidate(nonce)
		if limit := w.config.MaxInputSize; limit > 0 && len(candidate) > limit {
			return types.Hit{}, fmt.Errorf("%w: nonce %d needs %d bytes, limit %d",
				types.ErrInputTooLarge, nonce, len(candidate), limit)
		}

		w.pending++
		if w.matches(candidate) {
			return types.Hit{Found: true, Nonce: nonce, Digest: w.digestHex()}, nil
		}

		w.sinceYield++
		if w.sinceYield == w.yieldInterval {
			w.sinceYield = 0
			w.flush(attempts)
			if err := w.yield(ctx); err != nil {
				return types.Hit{}, err
			}
		}

		if nonce == to {
			return types.Hit{}, nil
		}
	}
}

// matches hashes candidate and compares only as many hex characters as the
// prefix needs.
func (w *Worker) matches(candidate []byte) bool {
	digest := crypto.SumInto(w.hasher, candidate, w.sum[:])
	hex.Encode(w.hexBuf[:], digest[:w.prefixBytes])
	return string(w.hexBuf[:len(w.config.Prefix)]) == w.config.Prefix
}

// digestHex encodes the full digest of the last matched candidate.
func (w *Worker) digestHex() string {
	hex.Encode(w.hexBuf[:], w.sum[:])
	return string(w.hexBuf[:])
}

func (w *Worker) yield(ctx context.Context) error {
	runtime.Gosched()
	if w.config.Limiter != nil {
		w.config.Limiter.Take()
	}
	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", types.ErrCancelled, ctx.Err())
	default:
		return nil
	}
}

func (w *Worker) flush(attempts func(uint64)) {
	if w.pending == 0 {
		return
	}
	if attempts != nil {
		attempts(w.pending)
	}
	w.pending = 0
}
