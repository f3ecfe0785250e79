package solana

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	solana "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/rpc"

	"whirlswap-go/internal/swap"
)

// rpcStub answers the handful of JSON-RPC methods the sender uses.
type rpcStub struct {
	mu       sync.Mutex
	calls    map[string]int
	statuses []string // raw JSON per getSignatureStatuses call; the last one repeats
	height   uint64
}

func (s *rpcStub) count(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method]
}

func (s *rpcStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID     json.RawMessage `json:"id"`
		Method string          `json:"method"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	if s.calls == nil {
		s.calls = map[string]int{}
	}
	s.calls[req.Method]++
	n := s.calls[req.Method]
	s.mu.Unlock()

	var result string
	switch req.Method {
	case "getLatestBlockhash":
		result = `{"context":{"slot":1},"value":{"blockhash":"` + solana.Hash{1, 2, 3}.String() + `","lastValidBlockHeight":200}}`
	case "sendTransaction":
		result = `"` + solana.Signature{7}.String() + `"`
	case "getBlockHeight":
		result = jsonUint(s.height)
	case "getSignatureStatuses":
		idx := n - 1
		if idx >= len(s.statuses) {
			idx = len(s.statuses) - 1
		}
		result = `{"context":{"slot":1},"value":[` + s.statuses[idx] + `]}`
	default:
		http.Error(w, "unexpected method "+req.Method, http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":` + string(req.ID) + `,"result":` + result + `}`))
}

func jsonUint(v uint64) string {
	b, _ := json.Marshal(v)
	return string(b)
}

func newStubSender(t *testing.T, stub *rpcStub) *Sender {
	t.Helper()
	srv := httptest.NewServer(stub)
	t.Cleanup(srv.Close)
	s := NewSender(srv.URL, solana.NewWallet().PrivateKey, "confirmed")
	s.PollInterval = time.Millisecond
	return s
}

func TestLatestBlockhash(t *testing.T) {
	s := newStubSender(t, &rpcStub{})
	bh, err := s.LatestBlockhash(context.Background())
	if err != nil {
		t.Fatalf("LatestBlockhash returned error: %v", err)
	}
	if bh.Hash != (solana.Hash{1, 2, 3}) || bh.LastValidBlockHeight != 200 {
		t.Fatalf("unexpected blockhash %+v", bh)
	}
}

func TestTransactionBuilderSubmits(t *testing.T) {
	stub := &rpcStub{}
	s := newStubSender(t, stub)
	ix := system.NewTransferInstruction(1, s.PublicKey(), solana.NewWallet().PublicKey()).Build()

	builder := NewTransactionBuilder(s, ix)
	if len(builder.Instructions()) != 1 {
		t.Fatalf("expected one queued instruction")
	}
	sig, err := builder.BuildAndExecute(context.Background())
	if err != nil {
		t.Fatalf("BuildAndExecute returned error: %v", err)
	}
	if sig != (solana.Signature{7}) {
		t.Fatalf("unexpected signature %s", sig)
	}
	if stub.count("getLatestBlockhash") != 1 || stub.count("sendTransaction") != 1 {
		t.Fatalf("unexpected rpc calls %v", stub.calls)
	}

	if _, err := s.BuildAndSend(context.Background(), nil); err == nil {
		t.Fatalf("expected error for empty instruction list")
	}
}

func TestConfirmReachesCommitment(t *testing.T) {
	stub := &rpcStub{
		height: 150,
		statuses: []string{
			`null`,
			`{"slot":5,"confirmations":1,"err":null,"confirmationStatus":"processed"}`,
			`{"slot":5,"confirmations":2,"err":null,"confirmationStatus":"confirmed"}`,
		},
	}
	s := newStubSender(t, stub)
	err := s.Confirm(context.Background(), solana.Signature{7}, swap.Blockhash{LastValidBlockHeight: 200}, rpc.CommitmentConfirmed)
	if err != nil {
		t.Fatalf("Confirm returned error: %v", err)
	}
	if got := stub.count("getSignatureStatuses"); got != 3 {
		t.Fatalf("expected 3 status polls, got %d", got)
	}
}

func TestConfirmBlockhashExpired(t *testing.T) {
	stub := &rpcStub{height: 201, statuses: []string{`null`}}
	s := newStubSender(t, stub)
	err := s.Confirm(context.Background(), solana.Signature{7}, swap.Blockhash{LastValidBlockHeight: 200}, rpc.CommitmentConfirmed)
	if !errors.Is(err, ErrBlockhashExpired) {
		t.Fatalf("expected ErrBlockhashExpired, got %v", err)
	}
}

func TestConfirmTransactionError(t *testing.T) {
	stub := &rpcStub{
		height:   10,
		statuses: []string{`{"slot":5,"confirmations":null,"err":{"InstructionError":[0,{"Custom":6001}]},"confirmationStatus":"processed"}`},
	}
	s := newStubSender(t, stub)
	err := s.Confirm(context.Background(), solana.Signature{7}, swap.Blockhash{LastValidBlockHeight: 200}, rpc.CommitmentConfirmed)
	if err == nil || !strings.Contains(err.Error(), "failed") {
		t.Fatalf("expected transaction failure, got %v", err)
	}
}

func TestConfirmStopsOnCancel(t *testing.T) {
	stub := &rpcStub{height: 10, statuses: []string{`null`}}
	s := newStubSender(t, stub)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := s.Confirm(ctx, solana.Signature{7}, swap.Blockhash{LastValidBlockHeight: 200}, rpc.CommitmentFinalized)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestReached(t *testing.T) {
	cases := []struct {
		status rpc.ConfirmationStatusType
		want   rpc.CommitmentType
		ok     bool
	}{
		{rpc.ConfirmationStatusProcessed, rpc.CommitmentConfirmed, false},
		{rpc.ConfirmationStatusConfirmed, rpc.CommitmentConfirmed, true},
		{rpc.ConfirmationStatusFinalized, rpc.CommitmentConfirmed, true},
		{rpc.ConfirmationStatusConfirmed, rpc.CommitmentFinalized, false},
		{"", rpc.CommitmentProcessed, false},
	}
	for _, tc := range cases {
		if got := reached(tc.status, tc.want); got != tc.ok {
			t.Fatalf("reached(%q, %q) = %v, want %v", tc.status, tc.want, got, tc.ok)
		}
	}
}

func TestParseCommitment(t *testing.T) {
	if ParseCommitment("processed") != rpc.CommitmentProcessed ||
		ParseCommitment("finalized") != rpc.CommitmentFinalized ||
		ParseCommitment("") != rpc.CommitmentConfirmed {
		t.Fatalf("unexpected commitment mapping")
	}
}
