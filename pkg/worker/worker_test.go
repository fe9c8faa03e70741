package worker

import (
	"context"
	"crypto/sha256"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/screa/nonce-miner/pkg/types"
)

func newTestWorker(data []byte, prefix string) *Worker {
	return NewWorker(&types.WorkerConfig{
		Data:    data,
		Prefix:  prefix,
		NewHash: sha256.New,
	})
}

func TestNewWorker(t *testing.T) {
	config := &types.WorkerConfig{
		Data:    []byte("block"),
		Prefix:  "000",
		NewHash: sha256.New,
	}

	worker := NewWorker(config)
	require.NotNil(t, worker)
	assert.Same(t, config, worker.config)
	assert.Equal(t, 2, worker.prefixBytes)
	assert.Equal(t, uint64(DefaultYieldInterval), worker.yieldInterval)
	assert.Zero(t, config.YieldInterval, "config must not be modified")
}

func TestWorkerCandidate(t *testing.T) {
	data := []byte("abc")
	worker := newTestWorker(data, "00")

	assert.Equal(t, "abc0", string(worker.Candidate(0)))
	assert.Equal(t, "abc18446744073709551615", string(worker.Candidate(math.MaxUint64)))
	assert.Equal(t, "abc42", string(worker.Candidate(42)))
	assert.Equal(t, "abc", string(data), "block data must not be modified")
}

func TestWorkerScan(t *testing.T) {
	tests := []struct {
		name      string
		data      string
		prefix    string
		from, to  uint64
		wantFound bool
		wantNonce uint64
		wantHex   string
	}{
		{
			name:      "empty data two zeros",
			prefix:    "00",
			to:        math.MaxUint64,
			wantFound: true,
			wantNonce: 286,
			wantHex:   "00328ce57bbc14b33bd6695bc8eb32cdf2fb5f3a7d89ec14a42825e15d39df60",
		},
		{
			name:      "odd length prefix",
			prefix:    "000",
			to:        math.MaxUint64,
			wantFound: true,
			wantNonce: 886,
			wantHex:   "000f21ac06aceb9cdd0575e82d0d85fc39bed0a7a1d71970ba1641666a44f530",
		},
		{
			name:   "range ends one before the match",
			prefix: "000",
			to:     885,
		},
		{
			name:      "range ends on the match",
			prefix:    "000",
			to:        886,
			wantFound: true,
			wantNonce: 886,
			wantHex:   "000f21ac06aceb9cdd0575e82d0d85fc39bed0a7a1d71970ba1641666a44f530",
		},
		{
			name:      "non zero prefix",
			data:      "hello",
			prefix:    "abc",
			from:      3000,
			to:        4000,
			wantFound: true,
			wantNonce: 3466,
			wantHex:   "abcaaadf0d50c8f6c72f727e1ac609a1a36c62d9b61145043c6c28b27ea04376",
		},
		{
			name:   "empty range",
			prefix: "00",
			from:   10,
			to:     9,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			worker := newTestWorker([]byte(tt.data), tt.prefix)
			hit, err := worker.Scan(context.Background(), tt.from, tt.to, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.wantFound, hit.Found)
			assert.Equal(t, tt.wantNonce, hit.Nonce)
			assert.Equal(t, tt.wantHex, hit.Digest)
		})
	}
}

func TestWorkerScanCountsAttempts(t *testing.T) {
	worker := NewWorker(&types.WorkerConfig{
		Prefix:        "00",
		NewHash:       sha256.New,
		YieldInterval: 100,
	})

	var total uint64
	hit, err := worker.Scan(context.Background(), 0, math.MaxUint64, func(n uint64) { total += n })
	require.NoError(t, err)
	require.True(t, hit.Found)
	assert.Equal(t, uint64(287), total)
}

func TestWorkerScanInputCap(t *testing.T) {
	config := &types.WorkerConfig{
		Data:         []byte("0123456789"),
		Prefix:       "ffffffffffffffff",
		NewHash:      sha256.New,
		MaxInputSize: 11,
	}

	t.Run("candidates at the cap are hashed", func(t *testing.T) {
		hit, err := NewWorker(config).Scan(context.Background(), 0, 9, nil)
		require.NoError(t, err)
		assert.False(t, hit.Found)
	})

	t.Run("first candidate over the cap fails", func(t *testing.T) {
		hit, err := NewWorker(config).Scan(context.Background(), 0, 100, nil)
		require.ErrorIs(t, err, types.ErrInputTooLarge)
		assert.Contains(t, err.Error(), "nonce 10")
		assert.False(t, hit.Found)
	})
}

func TestWorkerScanCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	worker := NewWorker(&types.WorkerConfig{
		Prefix:        "ffffffffffffffff",
		NewHash:       sha256.New,
		YieldInterval: 1,
	})

	var total uint64
	_, err := worker.Scan(ctx, 0, math.MaxUint64, func(n uint64) { total += n })
	require.ErrorIs(t, err, types.ErrCancelled)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, uint64(1), total)
}

type countingLimiter struct{ takes int }

func (l *countingLimiter) Take() time.Time {
	l.takes++
	return time.Now()
}

func TestWorkerScanTakesLimiter(t *testing.T) {
	limiter := &countingLimiter{}
	worker := NewWorker(&types.WorkerConfig{
		Prefix:        "00",
		NewHash:       sha256.New,
		YieldInterval: 100,
		Limiter:       limiter,
	})

	hit, err := worker.Scan(context.Background(), 0, math.MaxUint64, nil)
	require.NoError(t, err)
	require.True(t, hit.Found)
	// nonce 286 is the 287th attempt: yields after attempts 100 and 200
	assert.Equal(t, 2, limiter.takes)
}

func TestWorkerYieldCountCarriesAcrossScans(t *testing.T) {
	limiter := &countingLimiter{}
	worker := NewWorker(&types.WorkerConfig{
		Prefix:        "ffffffffffffffff",
		NewHash:       sha256.New,
		YieldInterval: 100,
		Limiter:       limiter,
	})

	// three chunks of 60 nonces: yields after attempts 100 only
	for from := uint64(0); from < 180; from += 60 {
		hit, err := worker.Scan(context.Background(), from, from+59, nil)
		require.NoError(t, err)
		require.False(t, hit.Found)
	}
	assert.Equal(t, 1, limiter.takes)

	hit, err := worker.Scan(context.Background(), 180, 199, nil)
	require.NoError(t, err)
	require.False(t, hit.Found)
	assert.Equal(t, 2, limiter.takes, "the 200th attempt ends a chunk and still yields")
}
