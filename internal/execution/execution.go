// Package execution drives a single swap from quote to submission with bounded retries.
package execution

import (
	"context"
	"errors"
	"fmt"
	"time"

	solana "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog"

	"whirlswap-go/internal/metrics"
	"whirlswap-go/internal/swap"
)

var (
	// ErrConfig marks failures that retrying cannot fix.
	ErrConfig = swap.ErrConfig
	// ErrRetriesExhausted is returned once every attempt has failed.
	ErrRetriesExhausted = errors.New("max retries reached")
)

// Venue prices an order against current pool state.
type Venue interface {
	Quote(ctx context.Context, order swap.Order) (swap.Quote, error)
}

// Confirmer requests network confirmation for a submitted signature.
type Confirmer interface {
	LatestBlockhash(ctx context.Context) (swap.Blockhash, error)
	Confirm(ctx context.Context, sig solana.Signature, bh swap.Blockhash, commitment rpc.CommitmentType) error
}

// RetryPolicy bounds the quote-and-submit loop.
type RetryPolicy struct {
	MaxRetries int
	Delay      time.Duration
}

// Result describes a successful submission.
type Result struct {
	Signature solana.Signature
	Attempts  int
	Quote     swap.Quote
	// Confirmation yields the confirmation outcome once; the swap is already submitted either way.
	Confirmation <-chan error
}

// Executor runs swaps against one venue.
type Executor struct {
	log        zerolog.Logger
	venue      Venue
	confirmer  Confirmer
	policy     RetryPolicy
	commitment rpc.CommitmentType
	sleep      func(ctx context.Context, d time.Duration) error
}

// Option configures an Executor.
type Option func(*Executor)

// WithCommitment sets the level confirmation waits for.
func WithCommitment(c rpc.CommitmentType) Option {
	return func(e *Executor) { e.commitment = c }
}

// WithSleep replaces the inter-retry wait, mainly for tests.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(e *Executor) {
		if sleep != nil {
			e.sleep = sleep
		}
	}
}

// NewExecutor wires a venue, a confirmer and a retry policy.
func NewExecutor(log zerolog.Logger, venue Venue, confirmer Confirmer, policy RetryPolicy, opts ...Option) *Executor {
	e := &Executor{
		log:        log,
		venue:      venue,
		confirmer:  confirmer,
		policy:     policy,
		commitment: rpc.CommitmentConfirmed,
		sleep:      sleepContext,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExecuteSwapWithRetry quotes and submits order, retrying failures until one submission succeeds
// or the retry budget is spent. It never submits more than once.
func (e *Executor) ExecuteSwapWithRetry(ctx context.Context, order swap.Order) (*Result, error) {
	if e.policy.MaxRetries <= 0 {
		return nil, fmt.Errorf("%w: max retries must be positive", ErrConfig)
	}
	if order.Pool == nil {
		return nil, fmt.Errorf("%w: order has no pool", ErrConfig)
	}
	pool := order.Pool.Address().String()

	retries := 0
	for retries < e.policy.MaxRetries {
		metrics.SwapAttemptsTotal.WithLabelValues(pool).Inc()
		quote, sig, err := e.attempt(ctx, order)
		if err == nil {
			metrics.SwapSubmissionsTotal.WithLabelValues(pool).Inc()
			e.log.Info().Str("signature", sig.String()).Int("attempts", retries+1).Msg("swap submitted")
			return &Result{
				Signature:    sig,
				Attempts:     retries + 1,
				Quote:        quote,
				Confirmation: e.confirm(ctx, sig),
			}, nil
		}

		metrics.SwapFailuresTotal.WithLabelValues(pool).Inc()
		e.log.Error().Err(err).Msg("swap attempt failed")
		if errors.Is(err, ErrConfig) {
			return nil, err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}

		retries++
		if retries >= e.policy.MaxRetries {
			metrics.SwapExhaustedTotal.WithLabelValues(pool).Inc()
			e.log.Error().Msgf("max retries (%d) reached, unable to complete swap", e.policy.MaxRetries)
			return nil, fmt.Errorf("%w after %d attempts: %v", ErrRetriesExhausted, retries, err)
		}
		e.log.Warn().Msgf("retrying (%d/%d)", retries, e.policy.MaxRetries)
		if err := e.sleep(ctx, e.policy.Delay); err != nil {
			return nil, err
		}
	}
	return nil, ErrRetriesExhausted
}

func (e *Executor) attempt(ctx context.Context, order swap.Order) (swap.Quote, solana.Signature, error) {
	quote, err := e.venue.Quote(ctx, order)
	if err != nil {
		return nil, solana.Signature{}, fmt.Errorf("quote: %w", err)
	}
	e.log.Info().
		Str("estimatedAmountIn", order.Input.FromBaseUnits(quote.EstimatedAmountIn()).String()).
		Str("in", order.Input.Symbol).
		Str("estimatedAmountOut", order.Output.FromBaseUnits(quote.EstimatedAmountOut()).String()).
		Str("out", order.Output.Symbol).
		Msg("swap quote")

	tx, err := order.Pool.Swap(ctx, quote)
	if err != nil {
		return nil, solana.Signature{}, fmt.Errorf("build swap: %w", err)
	}
	sig, err := tx.BuildAndExecute(ctx)
	if err != nil {
		return nil, solana.Signature{}, fmt.Errorf("submit swap: %w", err)
	}
	return quote, sig, nil
}

// confirm starts confirmation in the background; its failures never trigger a resubmission.
func (e *Executor) confirm(ctx context.Context, sig solana.Signature) <-chan error {
	done := make(chan error, 1)
	if e.confirmer == nil {
		close(done)
		return done
	}
	go func() {
		defer close(done)
		bh, err := e.confirmer.LatestBlockhash(ctx)
		if err == nil {
			err = e.confirmer.Confirm(ctx, sig, bh, e.commitment)
		}
		if err != nil {
			e.log.Error().Err(err).Str("signature", sig.String()).Msg("confirmation failed")
		} else {
			e.log.Info().Str("signature", sig.String()).Str("commitment", string(e.commitment)).Msg("swap confirmed")
		}
		done <- err
	}()
	return done
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
