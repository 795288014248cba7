// Package exchange is the Exchange Client (C2): a thin, rate-limited
// facade over the opaque Polymarket CLOB SDK. It normalizes order book
// reads into pkg/types.OrderBook and presents a single PlaceOrder/
// CancelOrder/CancelAll surface the executor drives without knowing
// about signers, tick sizes, or order builders.
package exchange

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/GoPolymarket/polymarket-go-sdk/pkg/auth"
	"github.com/GoPolymarket/polymarket-go-sdk/pkg/clob"
	"github.com/GoPolymarket/polymarket-go-sdk/pkg/clob/clobtypes"

	"github.com/polybot/arb-trader/internal/config"
	"github.com/polybot/arb-trader/pkg/types"
)

// Client is the Exchange Client. Construction never fails: a missing
// or misbehaving SDK connection surfaces per-call as a "missing" order
// book or a placement error, never as a panic or a fatal error at
// startup (dry-run must be able to run with no live credentials at all).
type Client struct {
	clob   clob.Client
	signer auth.Signer
	rl     *RateLimiter
	dryRun bool
	logger *slog.Logger
}

// NewClient builds an Exchange Client around an already-authenticated
// SDK client. signer may be nil when DryRun is true.
func NewClient(cfg config.ExchangeConfig, dryRun bool, clobClient clob.Client, signer auth.Signer, logger *slog.Logger) *Client {
	return &Client{
		clob:   clobClient,
		signer: signer,
		rl:     NewRateLimiter(cfg.OrderRateCapacity, cfg.OrderRatePerSecond, cfg.BookRateCapacity, cfg.BookRatePerSecond),
		dryRun: dryRun,
		logger: logger,
	}
}

// OrderBook fetches and normalizes the order book for one token. On any
// SDK failure it logs a warning and returns a missing book rather than
// propagating the error up into the scanner's enrichment loop.
func (c *Client) OrderBook(ctx context.Context, tokenID string) types.OrderBook {
	if err := c.rl.Book.Wait(ctx); err != nil {
		return types.Missing()
	}
	if c.clob == nil {
		return types.Missing()
	}
	raw, err := c.clob.OrderBook(ctx, &clobtypes.BookRequest{TokenID: tokenID})
	if err != nil {
		c.logger.Warn("orderbook fetch failed", "token_id", tokenID, "err", err)
		return types.Missing()
	}
	return normalizeBook(raw)
}

func normalizeBook(raw clobtypes.OrderBook) types.OrderBook {
	ob := types.OrderBook{}
	ob.Asks = parseLevels(raw.Asks)
	ob.Bids = parseLevels(raw.Bids)
	if len(ob.Asks) > 0 {
		ob.BestAsk = ob.Asks[0].Price
		ob.HasAsk = true
	}
	if len(ob.Bids) > 0 {
		ob.BestBid = ob.Bids[0].Price
		ob.HasBid = true
	}
	if ob.HasAsk && ob.HasBid {
		if ob.BestAsk == 0 {
			ob.SpreadPct = 100.0
		} else {
			ob.SpreadPct = (ob.BestAsk - ob.BestBid) / ob.BestAsk * 100
		}
	}
	for i := 0; i < 10 && i < len(ob.Asks); i++ {
		ob.AsksDepth += ob.Asks[i].Size
	}
	for i := 0; i < 10 && i < len(ob.Bids); i++ {
		ob.BidsDepth += ob.Bids[i].Size
	}
	return ob
}

func parseLevels(levels []clobtypes.PriceLevel) []types.PriceLevel {
	out := make([]types.PriceLevel, 0, len(levels))
	for _, lvl := range levels {
		price, err := strconv.ParseFloat(lvl.Price, 64)
		if err != nil {
			continue
		}
		size, err := strconv.ParseFloat(lvl.Size, 64)
		if err != nil {
			continue
		}
		out = append(out, types.PriceLevel{Price: price, Size: size})
	}
	return out
}

// PlaceOrder places a single-leg FAK market order sized in USD. In
// dry-run mode it never calls the SDK and returns a zero-slippage
// synthetic fill at leg.Price, matching the executor's simulated-fill
// contract.
func (c *Client) PlaceOrder(ctx context.Context, leg types.Leg, side string) (types.OrderFill, error) {
	if c.dryRun {
		return types.OrderFill{
			Outcome:     leg.Outcome,
			OrderID:     "dry-" + leg.TokenID,
			Side:        side,
			Price:       leg.Price,
			Size:        leg.SizeTokens,
			Filled:      leg.SizeTokens,
			Status:      "filled",
			FillPrice:   leg.Price,
			SlippagePct: 0,
		}, nil
	}
	if err := c.rl.Order.Wait(ctx); err != nil {
		return types.OrderFill{}, fmt.Errorf("order rate limit: %w", err)
	}

	builder := clob.NewOrderBuilder(c.clob, c.signer).
		TokenID(leg.TokenID).
		Side(side).
		AmountUSDC(leg.SizeUSD).
		NegRisk(leg.NegRisk).
		OrderType(clobtypes.OrderTypeFAK)

	signable, err := builder.BuildMarketWithContext(ctx)
	if err != nil {
		return types.OrderFill{}, fmt.Errorf("build market order: %w", err)
	}
	resp, err := c.clob.CreateOrderFromSignable(ctx, signable)
	if err != nil {
		return types.OrderFill{}, fmt.Errorf("place market order: %w", err)
	}

	fillPrice, _ := strconv.ParseFloat(resp.Price, 64)
	filled, _ := strconv.ParseFloat(resp.SizeMatched, 64)
	return types.OrderFill{
		Outcome:   leg.Outcome,
		OrderID:   resp.ID,
		Side:      side,
		Price:     leg.Price,
		Size:      leg.SizeTokens,
		Filled:    filled,
		Status:    string(resp.Status),
		FillPrice: fillPrice,
	}, nil
}

// CancelOrder cancels a single order by ID. A no-op in dry-run.
func (c *Client) CancelOrder(ctx context.Context, orderID string) error {
	if c.dryRun || orderID == "" {
		return nil
	}
	if err := c.rl.Cancel.Wait(ctx); err != nil {
		return err
	}
	_, err := c.clob.CancelOrders(ctx, &clobtypes.CancelOrdersRequest{OrderIDs: []string{orderID}})
	return err
}

// CancelAll cancels every open order across all markets — the safety
// net invoked on shutdown and on emergency halt.
func (c *Client) CancelAll(ctx context.Context) error {
	if c.dryRun {
		return nil
	}
	if err := c.rl.Cancel.Wait(ctx); err != nil {
		return err
	}
	_, err := c.clob.CancelAll(ctx)
	return err
}
