package executor

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"solana-signal-trader/internal/domain"
	"solana-signal-trader/internal/jupiter"
	"solana-signal-trader/internal/observability"
	"solana-signal-trader/internal/solana"
)

// SwapAPI is the part of the Jupiter client used for live trading.
type SwapAPI interface {
	Quote(ctx context.Context, req jupiter.QuoteRequest) (*jupiter.Quote, error)
	SwapTransaction(ctx context.Context, req jupiter.SwapRequest) (string, error)
	CreateLimitOrder(ctx context.Context, req jupiter.LimitOrderRequest) (*jupiter.LimitOrder, error)
}

// JupiterOptions configures a live executor.
type JupiterOptions struct {
	API    SwapAPI
	RPC    solana.RPCClient
	Wallet *solana.Keypair

	SlippageBps         int
	PriorityFeeLamports uint64
	// ConfirmTimeout bounds the wait for each transaction; zero skips confirmation.
	ConfirmTimeout  time.Duration
	ConfirmInterval time.Duration

	// NewBase creates the order account of a limit order. Defaults to a fresh keypair.
	NewBase func() (*solana.Keypair, error)
	Logger  logrus.FieldLogger
}

// Jupiter trades with real funds: swaps through the Jupiter aggregator and
// rests exits as Jupiter limit orders. Every transaction is built by Jupiter,
// signed locally and submitted through the configured RPC node.
type Jupiter struct {
	api    SwapAPI
	rpc    solana.RPCClient
	wallet *solana.Keypair

	slippageBps     int
	priorityFee     uint64
	confirmTimeout  time.Duration
	confirmInterval time.Duration
	newBase         func() (*solana.Keypair, error)
	log             logrus.FieldLogger
}

var _ Executor = (*Jupiter)(nil)

// NewJupiter creates a live executor.
func NewJupiter(opts JupiterOptions) (*Jupiter, error) {
	if opts.API == nil || opts.RPC == nil || opts.Wallet == nil {
		return nil, errors.New("executor: jupiter api, rpc client and wallet are required")
	}
	if opts.SlippageBps <= 0 {
		opts.SlippageBps = 50
	}
	if opts.ConfirmInterval <= 0 {
		opts.ConfirmInterval = 2 * time.Second
	}
	if opts.NewBase == nil {
		opts.NewBase = solana.GenerateKeypair
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	return &Jupiter{
		api:             opts.API,
		rpc:             opts.RPC,
		wallet:          opts.Wallet,
		slippageBps:     opts.SlippageBps,
		priorityFee:     opts.PriorityFeeLamports,
		confirmTimeout:  opts.ConfirmTimeout,
		confirmInterval: opts.ConfirmInterval,
		newBase:         opts.NewBase,
		log:             opts.Logger.WithField("component", "executor-jupiter"),
	}, nil
}

// Mode returns ModeLive.
func (j *Jupiter) Mode() string { return ModeLive }

// PlaceMarketBuy swaps SOL for exactly order.Amount token units and returns
// the transaction signature.
func (j *Jupiter) PlaceMarketBuy(ctx context.Context, order MarketOrder) (id string, err error) {
	defer func() { observability.RecordOrder("market", err) }()

	if err := order.validate(); err != nil {
		return "", err
	}

	quote, err := j.api.Quote(ctx, jupiter.QuoteRequest{
		InputMint:   domain.NativeMint,
		OutputMint:  order.Address,
		Amount:      order.Amount,
		SlippageBps: j.slippageBps,
		SwapMode:    jupiter.ExactOut,
	})
	if err != nil {
		return "", fmt.Errorf("market buy %s: %w", order.Address, err)
	}
	if err := j.checkBalance(ctx, quote); err != nil {
		return "", fmt.Errorf("market buy %s: %w", order.Address, err)
	}

	tx, err := j.api.SwapTransaction(ctx, jupiter.SwapRequest{
		Quote:                     quote,
		UserPublicKey:             j.wallet.Address(),
		PrioritizationFeeLamports: j.priorityFee,
	})
	if err != nil {
		return "", fmt.Errorf("market buy %s: %w", order.Address, err)
	}

	signed, signature, err := solana.SignTransaction(tx, j.wallet)
	if err != nil {
		return "", fmt.Errorf("market buy %s: sign: %w", order.Address, err)
	}
	if err := j.submit(ctx, signed, signature); err != nil {
		return "", fmt.Errorf("market buy %s: %w", order.Address, err)
	}

	j.log.WithFields(logrus.Fields{
		"address":   order.Address,
		"amount":    order.Amount,
		"in_amount": quote.InAmount,
		"signature": signature,
	}).Info("market buy confirmed")
	return signature, nil
}

// checkBalance fails when the wallet holds less than the quoted input plus
// the priority fee.
func (j *Jupiter) checkBalance(ctx context.Context, quote *jupiter.Quote) error {
	need, err := strconv.ParseUint(quote.InAmount, 10, 64)
	if err != nil {
		return fmt.Errorf("quote in amount %q: %w", quote.InAmount, err)
	}
	need += j.priorityFee

	balance, err := j.rpc.GetBalance(ctx, j.wallet.Address())
	if err != nil {
		return fmt.Errorf("wallet balance: %w", err)
	}
	if balance < need {
		return fmt.Errorf("%w: have %d lamports, need %d", ErrInsufficientBalance, balance, need)
	}
	return nil
}

// PlaceLimitOrder opens a Jupiter limit order selling order.Amount tokens for
// SOL at the target price. The order account address is the returned id.
func (j *Jupiter) PlaceLimitOrder(ctx context.Context, order LimitOrder) (id string, err error) {
	defer func() { observability.RecordOrder(string(order.Kind), err) }()

	outLamports, err := order.OutLamports()
	if err != nil {
		return "", err
	}

	base, err := j.newBase()
	if err != nil {
		return "", fmt.Errorf("limit order %s: order account: %w", order.Kind, err)
	}

	created, err := j.api.CreateLimitOrder(ctx, jupiter.LimitOrderRequest{
		Owner:      j.wallet.Address(),
		Base:       base.Address(),
		InputMint:  order.Address,
		OutputMint: domain.NativeMint,
		InAmount:   order.Amount,
		OutAmount:  outLamports,
	})
	if err != nil {
		return "", fmt.Errorf("limit order %s: %w", order.Kind, err)
	}

	signed, signature, err := solana.SignTransaction(created.Tx, j.wallet)
	if err != nil {
		return "", fmt.Errorf("limit order %s: sign: %w", order.Kind, err)
	}
	signed, _, err = solana.SignTransaction(signed, base)
	if err != nil {
		return "", fmt.Errorf("limit order %s: sign order account: %w", order.Kind, err)
	}
	if err := j.submit(ctx, signed, signature); err != nil {
		return "", fmt.Errorf("limit order %s: %w", order.Kind, err)
	}

	orderID := created.OrderPubkey
	if orderID == "" {
		orderID = base.Address()
	}
	j.log.WithFields(logrus.Fields{
		"address":      order.Address,
		"kind":         order.Kind,
		"amount":       order.Amount,
		"out_lamports": outLamports,
		"order":        orderID,
		"signature":    signature,
	}).Info("limit order placed")
	return orderID, nil
}

// submit sends a signed transaction and waits for confirmation when enabled.
func (j *Jupiter) submit(ctx context.Context, signedTx, signature string) error {
	sent, err := j.rpc.SendTransaction(ctx, signedTx, solana.SendOptions{
		SkipPreflight:       true,
		PreflightCommitment: "confirmed",
	})
	if err != nil {
		return fmt.Errorf("send transaction: %w", err)
	}
	if sent != "" && sent != signature {
		j.log.WithFields(logrus.Fields{"expected": signature, "got": sent}).Warn("rpc returned a different signature")
		signature = sent
	}

	if j.confirmTimeout <= 0 {
		return nil
	}
	confirmCtx, cancel := context.WithTimeout(ctx, j.confirmTimeout)
	defer cancel()
	return solana.ConfirmTransaction(confirmCtx, j.rpc, signature, j.confirmInterval)
}
