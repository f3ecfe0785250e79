// Package jupiter routes quotes and swap transactions through the Jupiter aggregator API.
package jupiter

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	bin "github.com/gagliardetto/binary"
	solana "github.com/gagliardetto/solana-go"

	dex "whirlswap-go/internal/dex/solana"
)

// DefaultBase is the public Jupiter API host.
const DefaultBase = "https://quote-api.jup.ag"

type Client struct {
	Base             string
	Sender           *dex.Sender
	Http             *http.Client
	Dexes            []string
	OnlyDirectRoutes bool
}

// SwapInfo describes a single AMM hop of a route.
type SwapInfo struct {
	AmmKey     string `json:"ammKey"`
	Label      string `json:"label"`
	InputMint  string `json:"inputMint"`
	OutputMint string `json:"outputMint"`
	InAmount   string `json:"inAmount"`
	OutAmount  string `json:"outAmount"`
}

// RoutePlanStep is one leg of a route plan.
type RoutePlanStep struct {
	SwapInfo SwapInfo `json:"swapInfo"`
	Percent  int      `json:"percent"`
}

type Quote struct {
	InputMint      string          `json:"inputMint"`
	OutputMint     string          `json:"outputMint"`
	InAmount       string          `json:"inAmount"`
	OutAmount      string          `json:"outAmount"`
	OtherAmount    string          `json:"otherAmountThreshold"`
	SlippageBps    int             `json:"slippageBps"`
	RoutePlan      []RoutePlanStep `json:"routePlan"`
	PriceImpactPct string          `json:"priceImpactPct"`

	in, out uint64
	// raw is posted back verbatim so no fields the swap endpoint needs are lost
	raw json.RawMessage
}

// EstimatedAmountIn implements swap.Quote.
func (q *Quote) EstimatedAmountIn() uint64 { return q.in }

// EstimatedAmountOut implements swap.Quote.
func (q *Quote) EstimatedAmountOut() uint64 { return q.out }

func NewClient(base string, sender *dex.Sender) *Client {
	if base == "" {
		base = DefaultBase
	}
	return &Client{
		Base:   strings.TrimSuffix(base, "/"),
		Sender: sender,
		Http:   &http.Client{Timeout: 8 * time.Second},
	}
}

// amount is in smallest units (lamports for SOL; token decimals apply).
func (j *Client) GetQuote(ctx context.Context, inputMint, outputMint string, amount uint64, slippageBps int) (*Quote, error) {
	q := url.Values{}
	q.Set("inputMint", inputMint)
	q.Set("outputMint", outputMint)
	q.Set("amount", strconv.FormatUint(amount, 10))
	q.Set("slippageBps", strconv.Itoa(slippageBps))
	q.Set("onlyDirectRoutes", strconv.FormatBool(j.OnlyDirectRoutes))
	if len(j.Dexes) > 0 {
		q.Set("dexes", strings.Join(j.Dexes, ","))
	}
	u := j.Base + "/v6/quote?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := j.Http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("jupiter quote status %d", resp.StatusCode)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read quote: %w", err)
	}
	var out Quote
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode quote: %w", err)
	}
	if out.in, err = strconv.ParseUint(out.InAmount, 10, 64); err != nil {
		return nil, fmt.Errorf("quote inAmount %q: %w", out.InAmount, err)
	}
	if out.out, err = strconv.ParseUint(out.OutAmount, 10, 64); err != nil {
		return nil, fmt.Errorf("quote outAmount %q: %w", out.OutAmount, err)
	}
	out.raw = raw
	return &out, nil
}

// BuildAndSendSwap asks Jupiter for a ready-to-sign transaction, signs it locally, then submits via RPC.
func (j *Client) BuildAndSendSwap(ctx context.Context, quote *Quote) (solana.Signature, error) {
	var sig solana.Signature
	quoteResponse := quote.raw
	if quoteResponse == nil {
		encoded, err := json.Marshal(quote)
		if err != nil {
			return sig, fmt.Errorf("encode quote: %w", err)
		}
		quoteResponse = encoded
	}
	payload := map[string]any{
		"userPublicKey":             j.Sender.PublicKey().String(),
		"wrapAndUnwrapSol":          true,
		"asLegacyTransaction":       false,
		"useTokenLedger":            false,
		"prioritizationFeeLamports": 0,
		"quoteResponse":             quoteResponse,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return sig, fmt.Errorf("encode swap request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, j.Base+"/v6/swap", bytes.NewReader(body))
	if err != nil {
		return sig, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := j.Http.Do(req)
	if err != nil {
		return sig, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return sig, fmt.Errorf("jupiter swap status %d", resp.StatusCode)
	}
	var sr struct {
		SwapTransaction string `json:"swapTransaction"` // base64-encoded tx (unsigned)
	}
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return sig, err
	}

	raw, err := base64.StdEncoding.DecodeString(sr.SwapTransaction)
	if err != nil {
		return sig, fmt.Errorf("decode tx: %w", err)
	}
	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(raw))
	if err != nil {
		return sig, fmt.Errorf("unmarshal tx: %w", err)
	}
	return j.Sender.Send(ctx, tx)
}
