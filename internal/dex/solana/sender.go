// Package solana wraps the RPC, signing, and confirmation plumbing shared by every venue.
package solana

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	solana "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"whirlswap-go/internal/swap"
)

// ErrBlockhashExpired means the transaction can no longer land because its blockhash aged out.
var ErrBlockhashExpired = errors.New("blockhash expired before confirmation")

const defaultPollInterval = 500 * time.Millisecond

// ParseCommitment maps a config string onto an RPC commitment, defaulting to confirmed.
func ParseCommitment(commit string) rpc.CommitmentType {
	switch strings.ToLower(strings.TrimSpace(commit)) {
	case "processed":
		return rpc.CommitmentProcessed
	case "finalized":
		return rpc.CommitmentFinalized
	}
	return rpc.CommitmentConfirmed
}

// Sender signs transactions with the wallet and pushes them through an RPC node.
type Sender struct {
	RPC           *rpc.Client
	Owner         solana.PrivateKey
	Commit        rpc.CommitmentType
	SkipPreflight bool
	PollInterval  time.Duration
}

// NewSender binds an RPC endpoint and signer.
func NewSender(rpcURL string, owner solana.PrivateKey, commit string) *Sender {
	return &Sender{
		RPC:          rpc.New(rpcURL),
		Owner:        owner,
		Commit:       ParseCommitment(commit),
		PollInterval: defaultPollInterval,
	}
}

// PublicKey returns the fee payer and token owner.
func (s *Sender) PublicKey() solana.PublicKey { return s.Owner.PublicKey() }

// LatestBlockhash fetches a recent blockhash at the sender's commitment.
func (s *Sender) LatestBlockhash(ctx context.Context) (swap.Blockhash, error) {
	out, err := s.RPC.GetLatestBlockhash(ctx, s.Commit)
	if err != nil {
		return swap.Blockhash{}, fmt.Errorf("latest blockhash: %w", err)
	}
	if out == nil || out.Value == nil {
		return swap.Blockhash{}, errors.New("latest blockhash: empty response")
	}
	return swap.Blockhash{Hash: out.Value.Blockhash, LastValidBlockHeight: out.Value.LastValidBlockHeight}, nil
}

// BuildAndSend wraps instructions into a transaction paid by the owner, signs and submits it.
func (s *Sender) BuildAndSend(ctx context.Context, instructions []solana.Instruction) (solana.Signature, error) {
	if len(instructions) == 0 {
		return solana.Signature{}, errors.New("no instructions to send")
	}
	bh, err := s.LatestBlockhash(ctx)
	if err != nil {
		return solana.Signature{}, err
	}
	tx, err := solana.NewTransaction(instructions, bh.Hash, solana.TransactionPayer(s.PublicKey()))
	if err != nil {
		return solana.Signature{}, fmt.Errorf("build tx: %w", err)
	}
	return s.Send(ctx, tx)
}

// Send signs with the owner key and submits via RPC.
func (s *Sender) Send(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	owner := s.PublicKey()
	// transactions built elsewhere arrive with empty signature slots
	tx.Signatures = nil
	_, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(owner) {
			return &s.Owner
		}
		return nil
	})
	if err != nil {
		return solana.Signature{}, fmt.Errorf("sign: %w", err)
	}

	sig, err := s.RPC.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		SkipPreflight:       s.SkipPreflight,
		PreflightCommitment: s.Commit,
	})
	if err != nil {
		return solana.Signature{}, fmt.Errorf("send tx: %w", err)
	}
	return sig, nil
}

// Confirm polls signature status until commitment is reached, the transaction fails, or bh expires.
func (s *Sender) Confirm(ctx context.Context, sig solana.Signature, bh swap.Blockhash, commitment rpc.CommitmentType) error {
	interval := s.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		done, err := s.checkStatus(ctx, sig, commitment)
		if done || err != nil {
			return err
		}
		height, err := s.RPC.GetBlockHeight(ctx, commitment)
		if err == nil && height > bh.LastValidBlockHeight {
			return fmt.Errorf("%s: %w", sig, ErrBlockhashExpired)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *Sender) checkStatus(ctx context.Context, sig solana.Signature, commitment rpc.CommitmentType) (bool, error) {
	out, err := s.RPC.GetSignatureStatuses(ctx, false, sig)
	if err != nil {
		// transient RPC errors are polled through
		return false, nil
	}
	if out == nil || len(out.Value) == 0 || out.Value[0] == nil {
		return false, nil
	}
	status := out.Value[0]
	if status.Err != nil {
		return true, fmt.Errorf("transaction %s failed: %v", sig, status.Err)
	}
	return reached(status.ConfirmationStatus, commitment), nil
}

func reached(status rpc.ConfirmationStatusType, want rpc.CommitmentType) bool {
	rank := func(s string) int {
		switch s {
		case string(rpc.CommitmentProcessed):
			return 1
		case string(rpc.CommitmentConfirmed):
			return 2
		case string(rpc.CommitmentFinalized):
			return 3
		}
		return 0
	}
	got := rank(string(status))
	return got > 0 && got >= rank(string(want))
}

// TransactionBuilder holds instructions until BuildAndExecute signs and submits them.
type TransactionBuilder struct {
	sender       *Sender
	instructions []solana.Instruction
}

// NewTransactionBuilder prepares instructions for submission through sender.
func NewTransactionBuilder(sender *Sender, instructions ...solana.Instruction) *TransactionBuilder {
	return &TransactionBuilder{sender: sender, instructions: instructions}
}

// Instructions returns the queued instructions in submission order.
func (b *TransactionBuilder) Instructions() []solana.Instruction { return b.instructions }

// BuildAndExecute implements swap.Transaction.
func (b *TransactionBuilder) BuildAndExecute(ctx context.Context) (solana.Signature, error) {
	return b.sender.BuildAndSend(ctx, b.instructions)
}
