package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/screa/nonce-miner/internal/config"
	"github.com/screa/nonce-miner/internal/crypto"
	logpkg "github.com/screa/nonce-miner/internal/logger"
	"github.com/screa/nonce-miner/internal/metrics"
	minerpkg "github.com/screa/nonce-miner/pkg/miner"
	"github.com/screa/nonce-miner/pkg/types"
)

// Exit codes
const (
	exitError     = 1
	exitNotFound  = 2
	exitCancelled = 130
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

// newRootCmd builds the command tree. The search result is the only thing
// written to the command's stdout; logs go to stderr or the log file.
func newRootCmd() *cobra.Command {
	cfg := config.NewConfig()

	rootCmd := &cobra.Command{
		Use:   "nonce-miner",
		Short: "Proof-of-work nonce search",
		Long: `Finds the smallest nonce such that the hex digest of the block data
followed by the decimal nonce starts with the target prefix.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMiner(cmd, cfg)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&cfg.Data, "data", "d", "", "Block data as text")
	flags.StringVarP(&cfg.DataHex, "data-hex", "x", "", "Block data as hex")
	flags.StringVarP(&cfg.DataFile, "data-file", "F", "", "File containing raw block data")
	flags.StringVarP(&cfg.Prefix, "prefix", "p", config.DefaultPrefix, "Target hex prefix of the digest")
	flags.StringVarP(&cfg.Algorithm, "algorithm", "a", string(crypto.DefaultAlgorithm), "Hash algorithm")
	flags.BoolVarP(&cfg.Verbose, "verbose", "v", false, "Verbose output")
	flags.StringVarP(&cfg.LogFile, "log-file", "l", "", "Log file for progress tracking (default: stderr)")

	rootCmd.Flags().IntVarP(&cfg.Workers, "workers", "w", 1, "Number of worker goroutines (0 uses every CPU)")
	rootCmd.Flags().Uint64Var(&cfg.StartNonce, "start-nonce", 0, "First nonce to try")
	rootCmd.Flags().Uint64Var(&cfg.MaxNonce, "max-nonce", math.MaxUint64, "Last nonce to try")
	rootCmd.Flags().IntVar(&cfg.MaxInputSize, "max-input-size", 0, "Maximum candidate size in bytes (0 for no limit)")
	rootCmd.Flags().Uint64Var(&cfg.YieldInterval, "yield-interval", cfg.YieldInterval, "Attempts between yield and cancellation checks")
	rootCmd.Flags().IntVar(&cfg.Rate, "rate", 0, "Maximum yield intervals per second (0 for unlimited)")
	rootCmd.Flags().DurationVar(&cfg.Timeout, "timeout", 0, "Abort the search after this duration")
	rootCmd.Flags().IntVarP(&cfg.LogInterval, "log-interval", "i", 5, "Logging interval in seconds")
	rootCmd.Flags().StringVar(&cfg.MetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address while mining")

	var verifyNonce uint64
	verifyCmd := &cobra.Command{
		Use:           "verify",
		Short:         "Check that a nonce satisfies the target prefix",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(cmd, cfg, verifyNonce)
		},
	}
	verifyCmd.Flags().Uint64VarP(&verifyNonce, "nonce", "n", 0, "Nonce to verify")
	_ = verifyCmd.MarkFlagRequired("nonce")
	rootCmd.AddCommand(verifyCmd)
	return rootCmd
}

func exitCode(err error) int {
	switch types.OutcomeOf(err) {
	case types.OutcomeNotFound:
		return exitNotFound
	case types.OutcomeCancelled:
		return exitCancelled
	default:
		return exitError
	}
}

func runMiner(cmd *cobra.Command, cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	data, err := cfg.GetData()
	if err != nil {
		return fmt.Errorf("read block data: %w", err)
	}

	logger, closeLog, err := setupLogging(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer closeLog()

	logger.Info("starting nonce miner",
		zap.Int("workers", cfg.Workers),
		zap.String("target", cfg.GetTargetDescription()),
		zap.Int("data_bytes", len(data)))

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	if cfg.MetricsAddr != "" {
		srv := serveMetrics(cfg.MetricsAddr, logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	miner, err := minerpkg.NewMiner(cfg, data, logger, metrics.NewMiner(cfg.Algorithm))
	if err != nil {
		return err
	}

	result, err := miner.Mine(ctx)
	switch types.OutcomeOf(err) {
	case types.OutcomeFound:
		rate := 0.0
		if result.Duration.Seconds() > 0 {
			rate = float64(result.Attempts) / result.Duration.Seconds()
		}
		logger.Info("found match",
			zap.Uint64("nonce", result.Nonce),
			zap.String("digest", result.Digest),
			zap.Uint64("attempts", result.Attempts),
			zap.Duration("duration", result.Duration),
			zap.String("rate", fmt.Sprintf("%.2f hashes/sec", rate)))
		fmt.Fprintf(cmd.OutOrStdout(), "%d %s\n", result.Nonce, result.Digest)
		return nil
	case types.OutcomeCancelled:
		logger.Warn("mining stopped", zap.Uint64("attempts", miner.Attempts()), zap.Error(err))
	case types.OutcomeNotFound:
		logger.Warn("no match found", zap.Uint64("attempts", miner.Attempts()))
	}
	return err
}

func runVerify(cmd *cobra.Command, cfg *config.Config, verifyNonce uint64) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	data, err := cfg.GetData()
	if err != nil {
		return fmt.Errorf("read block data: %w", err)
	}

	digest, ok, err := minerpkg.Verify(data, cfg.Prefix, verifyNonce, cfg.HashAlgorithm())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d %s\n", verifyNonce, digest)
	if !ok {
		return fmt.Errorf("nonce %d: digest does not start with %q", verifyNonce, cfg.Prefix)
	}
	return nil
}

func setupLogging(cfg *config.Config, stderr io.Writer) (*zap.Logger, func(), error) {
	if cfg.LogFile == "" {
		logger := logpkg.New(stderr, cfg.Verbose)
		return logger, func() { _ = logger.Sync() }, nil
	}

	file, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	logger := logpkg.NewWriter(file, cfg.Verbose)
	return logger, func() {
		_ = logger.Sync()
		_ = file.Close()
	}, nil
}

func serveMetrics(addr string, logger *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()
	logger.Info("serving metrics", zap.String("addr", addr))
	return srv
}
