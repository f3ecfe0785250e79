// Binary swap submits one Orca Whirlpool swap, retrying until a transaction lands or the retry budget runs out.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	solana "github.com/gagliardetto/solana-go"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"whirlswap-go/internal/config"
	dex "whirlswap-go/internal/dex/solana"
	"whirlswap-go/internal/dex/jupiter"
	"whirlswap-go/internal/dex/whirlpool"
	"whirlswap-go/internal/execution"
	"whirlswap-go/internal/journal"
	"whirlswap-go/internal/metrics"
	"whirlswap-go/internal/swap"
	"whirlswap-go/internal/util"
)

func main() {
	_ = godotenv.Load()
	log := util.NewLogger(os.Getenv(config.EnvLogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, log, os.LookupEnv, connect)
	stop()
	if err != nil {
		log.Error().Err(err).Msg("swap failed")
		os.Exit(1)
	}
}

// venue quotes orders and resolves the pool they trade against.
type venue interface {
	execution.Venue
	jupiter.PoolGetter
}

type session struct {
	venue     venue
	confirmer execution.Confirmer
}

type connectFunc func(ctx context.Context, cfg *config.Config, owner solana.PrivateKey) (*session, error)

// connect builds the RPC-backed clients; it is the first step that can reach the network.
func connect(_ context.Context, cfg *config.Config, owner solana.PrivateKey) (*session, error) {
	sender := dex.NewSender(cfg.Dex.RpcURL, owner, cfg.Dex.Commitment)
	var opts []whirlpool.Option
	if fee := cfg.Dex.PriorityFeeMicroLamports; fee > 0 {
		opts = append(opts, whirlpool.WithPriorityFee(fee))
	}
	pools := whirlpool.NewVenue(whirlpool.NewClient(sender, opts...))

	if cfg.Dex.Venue == config.VenueJupiter {
		jup := jupiter.NewClient(cfg.Dex.JupiterBase, sender)
		return &session{venue: jupiter.NewVenue(jup, pools), confirmer: sender}, nil
	}
	return &session{venue: pools, confirmer: sender}, nil
}

func run(ctx context.Context, log zerolog.Logger, lookup func(string) (string, bool), connect connectFunc) error {
	cfg := config.Default()
	if path, ok := lookup(config.EnvConfigPath); ok && path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return fmt.Errorf("%w: %v", execution.ErrConfig, err)
		}
		cfg = loaded
	}
	config.ApplyEnv(cfg, lookup)
	if lvl, err := zerolog.ParseLevel(cfg.App.LogLevel); err == nil && cfg.App.LogLevel != "" {
		log = log.Level(lvl)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	params, err := cfg.Swap.Resolve()
	if err != nil {
		return err
	}
	owner, err := dex.LoadPrivateKey(cfg.Wallet.KeypairPath, cfg.Wallet.PrivateKeyBase58)
	if err != nil {
		return fmt.Errorf("%w: wallet: %v", execution.ErrConfig, err)
	}

	poolAddress := params.Pool
	if poolAddress.IsZero() {
		poolAddress, err = whirlpool.DerivePoolAddress(whirlpool.ProgramID, whirlpool.ConfigID,
			params.Input.Mint, params.Output.Mint, cfg.Swap.TickSpacing)
		if err != nil {
			return fmt.Errorf("%w: %v", execution.ErrConfig, err)
		}
	}
	log.Info().
		Str("endpoint", cfg.Dex.RpcURL).
		Str("wallet", owner.PublicKey().String()).
		Str("pool", poolAddress.String()).
		Str("venue", cfg.Dex.Venue).
		Msg("starting swap")

	if srv := metrics.Serve(cfg.App.MetricsAddr); srv != nil {
		defer srv.Close()
	}

	sess, err := connect(ctx, cfg, owner)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	pool, err := sess.venue.GetPool(ctx, poolAddress)
	if err != nil {
		return fmt.Errorf("fetch pool %s: %w", poolAddress, err)
	}
	logPool(log, pool, params)

	executor := execution.NewExecutor(log, sess.venue, sess.confirmer,
		execution.RetryPolicy{MaxRetries: cfg.Swap.MaxRetries, Delay: params.Delay},
		execution.WithCommitment(dex.ParseCommitment(cfg.Dex.Commitment)))
	res, err := executor.ExecuteSwapWithRetry(ctx, swap.Order{
		Pool:     pool,
		Input:    params.Input,
		Output:   params.Output,
		AmountIn: params.AmountIn,
		Slippage: params.Slippage,
	})
	if err != nil {
		return err
	}
	if cfg.App.JournalPath != "" {
		if err := record(cfg.App.JournalPath, journal.Entry{
			Time:         time.Now().UTC(),
			Venue:        cfg.Dex.Venue,
			Pool:         poolAddress.String(),
			Signature:    res.Signature.String(),
			Attempts:     res.Attempts,
			InputMint:    params.Input.Mint.String(),
			OutputMint:   params.Output.Mint.String(),
			AmountIn:     params.AmountIn,
			EstimatedOut: res.Quote.EstimatedAmountOut(),
		}); err != nil {
			log.Warn().Err(err).Str("path", cfg.App.JournalPath).Msg("journal write failed")
		}
	}

	// The swap counts as done once submitted; confirmation is reported but never changes the outcome.
	select {
	case <-ctx.Done():
	case err := <-res.Confirmation:
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Warn().Err(err).Str("signature", res.Signature.String()).Msg("submitted swap was not confirmed")
		}
	}
	return nil
}

func record(path string, entry journal.Entry) error {
	rec, err := journal.NewJSONLRecorder(path)
	if err != nil {
		return err
	}
	if err := rec.Record(entry); err != nil {
		rec.Close()
		return err
	}
	return rec.Close()
}

func logPool(log zerolog.Logger, pool swap.Pool, params *config.Resolved) {
	for {
		u, ok := pool.(interface{ Unwrap() swap.Pool })
		if !ok {
			break
		}
		pool = u.Unwrap()
	}
	wp, ok := pool.(*whirlpool.Pool)
	if !ok {
		return
	}
	data := wp.Data()
	a, b := params.Input, params.Output
	if !data.TokenMintA.Equals(a.Mint) {
		a, b = b, a
	}
	log.Info().
		Str("pool", wp.Address().String()).
		Str("price", wp.Price(a.Decimals, b.Decimals).String()).
		Str("pair", a.Symbol+"/"+b.Symbol).
		Uint16("tickSpacing", data.TickSpacing).
		Uint16("feeRate", data.FeeRate).
		Msg("pool loaded")
}
