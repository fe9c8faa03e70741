package miner

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/ratelimit"
	"go.uber.org/zap"

	"github.com/screa/nonce-miner/internal/config"
	"github.com/screa/nonce-miner/internal/crypto"
	"github.com/screa/nonce-miner/pkg/types"
	"github.com/screa/nonce-miner/pkg/worker"
)

// defaultChunkSize is the number of nonces a parallel worker claims at once.
const defaultChunkSize = 1 << 16

// Metrics receives search instrumentation.
type Metrics interface {
	ObserveHashes(n uint64)
	ObserveSearch(err error, prefix string, started time.Time)
}

type noopMetrics struct{}

func (noopMetrics) ObserveHashes(uint64)                   {}
func (noopMetrics) ObserveSearch(error, string, time.Time) {}

// Miner coordinates one nonce search
type Miner struct {
	config       *config.Config
	logger       *zap.Logger
	metrics      Metrics
	workerConfig *types.WorkerConfig
	attempts     atomic.Uint64
	chunkSize    uint64

	mu     sync.Mutex
	cancel context.CancelFunc // cancels the in-flight Mine, nil when idle
}

// NewMiner validates cfg and creates a miner over data. A nil logger or
// metrics disables that output.
func NewMiner(cfg *config.Config, data []byte, log *zap.Logger, metrics Metrics) (*Miner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	newHash, err := crypto.Constructor(cfg.HashAlgorithm())
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}

	workerConfig := &types.WorkerConfig{
		Data:          data,
		Prefix:        cfg.Prefix,
		NewHash:       newHash,
		MaxInputSize:  cfg.MaxInputSize,
		YieldInterval: cfg.YieldInterval,
	}
	if cfg.Rate > 0 {
		workerConfig.Limiter = ratelimit.New(cfg.Rate)
	}

	return &Miner{
		config:       cfg,
		logger:       log,
		metrics:      metrics,
		workerConfig: workerConfig,
		chunkSize:    defaultChunkSize,
	}, nil
}

// Search finds the smallest nonce such that the lowercase hex SHA-256 digest
// of data followed by the decimal nonce starts with prefix. It runs on the
// calling goroutine until a match is found or ctx is done.
func Search(ctx context.Context, data []byte, prefix string) (*types.Result, error) {
	cfg := config.NewConfig()
	cfg.Prefix = prefix
	m, err := NewMiner(cfg, data, nil, nil)
	if err != nil {
		return nil, err
	}
	return m.Mine(ctx)
}

// Verify reports whether nonce satisfies prefix for data under alg, and
// returns the digest it computed.
func Verify(data []byte, prefix string, nonce uint64, alg crypto.Algorithm) (string, bool, error) {
	p, ok := crypto.NormalizePrefix(prefix)
	if !ok {
		return "", false, fmt.Errorf("%w: %q", types.ErrInvalidPrefix, prefix)
	}
	candidate := strconv.AppendUint(append([]byte(nil), data...), nonce, 10)
	digest, err := crypto.HexDigest(alg, candidate)
	if err != nil {
		return "", false, err
	}
	return digest, digest[:len(p)] == p, nil
}

// Mine runs the search. With one worker the scan happens on the calling
// goroutine; with more, workers claim nonce chunks in increasing order and the
// smallest match still wins. Calls must not overlap.
func (m *Miner) Mine(ctx context.Context) (result *types.Result, err error) {
	start := time.Now()
	m.attempts.Store(0)
	defer func() {
		m.metrics.ObserveSearch(err, m.config.Prefix, start)
	}()

	ctx, cancel := context.WithCancel(ctx)
	m.mu.Lock()
	m.cancel = cancel
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		m.cancel = nil
		m.mu.Unlock()
		cancel()
	}()

	first, last := m.config.StartNonce, m.config.MaxNonce
	capErr, err := m.clampToInputSize(&last)
	if err != nil {
		return nil, err
	}

	if m.config.Verbose {
		ticker := time.NewTicker(time.Duration(m.config.LogInterval) * time.Second)
		logDone := make(chan struct{})
		go m.periodicLogger(ticker, logDone, start)
		defer func() {
			ticker.Stop()
			close(logDone)
		}()
	}

	var hit types.Hit
	if m.config.Workers <= 1 {
		hit, err = worker.NewWorker(m.workerConfig).Scan(ctx, first, last, m.addAttempts)
	} else {
		hit, err = m.mineParallel(ctx, first, last)
	}
	if err != nil {
		return nil, err
	}

	if !hit.Found {
		if capErr != nil {
			return nil, capErr
		}
		return nil, fmt.Errorf("%w: [%d, %d]", types.ErrSearchExhausted, first, last)
	}

	result = &types.Result{
		Nonce:    hit.Nonce,
		Digest:   hit.Digest,
		Attempts: m.attempts.Load(),
		Duration: time.Since(start),
	}
	m.logger.Debug("search finished",
		zap.Uint64("nonce", result.Nonce),
		zap.Uint64("attempts", result.Attempts),
		zap.Duration("duration", result.Duration))
	return result, nil
}

// clampToInputSize lowers *last to the largest nonce whose candidate fits
// MaxInputSize. It returns the error to report if the clamped range holds no
// match, or an immediate error when the first nonce already does not fit.
func (m *Miner) clampToInputSize(last *uint64) (capErr, err error) {
	limit := m.config.MaxInputSize
	if limit <= 0 {
		return nil, nil
	}
	first := m.config.StartNonce
	dataLen := len(m.workerConfig.Data)

	fit, ok := lastFittingNonce(dataLen, limit)
	if !ok || fit < first {
		return nil, inputTooLarge(first, dataLen, limit)
	}
	if fit < *last {
		*last = fit
		return inputTooLarge(fit+1, dataLen, limit), nil
	}
	return nil, nil
}

// lastFittingNonce returns the largest nonce whose decimal form fits in
// limit-dataLen bytes, and false if not even a single digit fits.
func lastFittingNonce(dataLen, limit int) (uint64, bool) {
	digits := limit - dataLen
	if digits < 1 {
		return 0, false
	}
	if digits >= 20 {
		return math.MaxUint64, true
	}
	n := uint64(1)
	for i := 0; i < digits; i++ {
		n *= 10
	}
	return n - 1, true
}

func inputTooLarge(nonce uint64, dataLen, limit int) error {
	size := dataLen + len(strconv.FormatUint(nonce, 10))
	return fmt.Errorf("%w: nonce %d needs %d bytes, limit %d", types.ErrInputTooLarge, nonce, size, limit)
}

// mineParallel scans [first, last] with config.Workers goroutines.
func (m *Miner) mineParallel(ctx context.Context, first, last uint64) (types.Hit, error) {
	f := newFrontier(first, last, m.chunkSize)

	var (
		wg      sync.WaitGroup
		errOnce sync.Once
		scanErr error
	)
	fail := func(err error) {
		errOnce.Do(func() { scanErr = err })
	}

	for i := 0; i < m.config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			w := worker.NewWorker(m.workerConfig)
			for {
				if err := ctx.Err(); err != nil {
					fail(fmt.Errorf("%w: %w", types.ErrCancelled, err))
					return
				}
				from, to, ok := f.claim()
				if !ok {
					return
				}
				hit, err := w.Scan(ctx, from, to, m.addAttempts)
				if err != nil {
					fail(err)
					return
				}
				if hit.Found {
					m.logger.Debug("worker found match",
						zap.Int("worker", workerID),
						zap.Uint64("nonce", hit.Nonce))
					f.report(hit)
				}
			}
		}(i)
	}
	wg.Wait()

	if scanErr != nil {
		return types.Hit{}, scanErr
	}
	return f.best(), nil
}

func (m *Miner) addAttempts(n uint64) {
	m.attempts.Add(n)
	m.metrics.ObserveHashes(n)
}

// Stop cancels the in-flight Mine, if any. The miner can be mined again
// afterwards.
func (m *Miner) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		m.cancel()
	}
}

// Attempts returns the number of digests computed so far
func (m *Miner) Attempts() uint64 {
	return m.attempts.Load()
}

// periodicLogger logs mining progress at regular intervals
func (m *Miner) periodicLogger(ticker *time.Ticker, done chan struct{}, start time.Time) {
	for {
		select {
		case <-ticker.C:
			attempts := m.attempts.Load()
			elapsed := time.Since(start)

			rate := 0.0
			if elapsed.Seconds() > 0 {
				rate = float64(attempts) / elapsed.Seconds()
			}
			m.logger.Info("progress",
				zap.Uint64("attempts", attempts),
				zap.String("rate", fmt.Sprintf("%.2f hashes/sec", rate)),
				zap.Duration("elapsed", elapsed.Round(time.Millisecond)))
		case <-done:
			return
		}
	}
}
