package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/screa/nonce-miner/internal/crypto"
	"github.com/screa/nonce-miner/pkg/types"
)

// DefaultPrefix is the target prefix used when none is given.
const DefaultPrefix = "00000"

// Errors
var (
	ErrConflictingData = errors.New("specify at most one of --data, --data-hex, or --data-file")
	ErrInvalidRange    = errors.New("--start-nonce must not exceed --max-nonce")
	ErrInvalidSetting  = errors.New("invalid setting")
)

// Config holds the application configuration
type Config struct {
	Workers       int
	Prefix        string
	Algorithm     string
	Data          string
	DataHex       string
	DataFile      string
	StartNonce    uint64
	MaxNonce      uint64
	MaxInputSize  int
	YieldInterval uint64
	Rate          int // yield batches per second, 0 for unlimited
	Timeout       time.Duration
	Verbose       bool
	LogFile       string
	LogInterval   int // Logging interval in seconds
	MetricsAddr   string
}

// NewConfig creates a new configuration with default values
func NewConfig() *Config {
	return &Config{
		Workers:       1,
		Prefix:        DefaultPrefix,
		Algorithm:     string(crypto.DefaultAlgorithm),
		MaxNonce:      math.MaxUint64,
		YieldInterval: 1_000_000,
		LogInterval:   5,
	}
}

// Validate validates the configuration and normalizes the prefix and algorithm
func (c *Config) Validate() error {
	sources := 0
	for _, s := range []string{c.Data, c.DataHex, c.DataFile} {
		if s != "" {
			sources++
		}
	}
	if sources > 1 {
		return ErrConflictingData
	}

	prefix, ok := crypto.NormalizePrefix(c.Prefix)
	if !ok {
		return fmt.Errorf("%w: %q", types.ErrInvalidPrefix, c.Prefix)
	}
	c.Prefix = prefix

	alg, err := crypto.ParseAlgorithm(c.Algorithm)
	if err != nil {
		return err
	}
	c.Algorithm = string(alg)

	if c.StartNonce > c.MaxNonce {
		return ErrInvalidRange
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.MaxInputSize < 0 {
		return fmt.Errorf("%w: --max-input-size must not be negative", ErrInvalidSetting)
	}
	if c.YieldInterval == 0 {
		return fmt.Errorf("%w: --yield-interval must be positive", ErrInvalidSetting)
	}
	if c.Rate < 0 {
		return fmt.Errorf("%w: --rate must not be negative", ErrInvalidSetting)
	}
	if c.LogInterval <= 0 {
		return fmt.Errorf("%w: --log-interval must be positive", ErrInvalidSetting)
	}
	return nil
}

// HashAlgorithm returns the configured algorithm.
func (c *Config) HashAlgorithm() crypto.Algorithm {
	return crypto.Algorithm(c.Algorithm)
}

// GetTargetDescription returns a human-readable description of the target
func (c *Config) GetTargetDescription() string {
	desc := c.Algorithm + " prefix " + c.Prefix
	if c.MaxNonce != math.MaxUint64 || c.StartNonce != 0 {
		desc += fmt.Sprintf(" in nonces [%d, %d]", c.StartNonce, c.MaxNonce)
	}
	return desc
}

// GetData returns the block data to search over
func (c *Config) GetData() ([]byte, error) {
	switch {
	case c.DataFile != "":
		return os.ReadFile(c.DataFile)
	case c.DataHex != "":
		return readHexData(c.DataHex)
	default:
		return []byte(c.Data), nil
	}
}

// readHexData decodes hex block data, tolerating surrounding whitespace and a
// 0x marker
func readHexData(s string) ([]byte, error) {
	code := strings.Join(strings.Fields(s), "")
	b, err := crypto.HexToBytes(code)
	if err != nil {
		return nil, fmt.Errorf("decode --data-hex: %w", err)
	}
	return b, nil
}
