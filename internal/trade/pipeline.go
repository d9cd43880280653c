// Package trade runs the purchase pipeline a match event triggers: quote,
// swap instructions, lookup tables, transaction build, relay submit.
package trade

import (
	"context"
	"encoding/base64"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"tweet-sniper/internal/domain"
	"tweet-sniper/internal/jupiter"
	"tweet-sniper/internal/observability"
	"tweet-sniper/internal/relay"
	"tweet-sniper/internal/solana"
	"tweet-sniper/internal/txbuilder"
)

// WrappedSOLMint is the wrapped-SOL mint, the input side of every purchase.
const WrappedSOLMint = "So11111111111111111111111111111111111111112"

const lamportsPerSOL = 1e9

// Pipeline executes a purchase for a match event. Implements
// watch.Executor. Each run produces exactly one TradeResult; a failure at
// any stage terminates the run and is never retried.
type Pipeline struct {
	swaps       *jupiter.Client
	rpc         *solana.HTTPClient
	relay       *relay.Submitter
	wallet      *solana.Keypair
	slippageBps int
	tipLamports uint64
	tipAccount  string
	log         *logrus.Entry
}

// Config wires the pipeline's external dependencies.
type Config struct {
	Swaps       *jupiter.Client
	RPC         *solana.HTTPClient
	Relay       *relay.Submitter
	Wallet      *solana.Keypair
	SlippageBps int
	TipLamports uint64
	TipAccount  string
	Logger      *logrus.Logger
}

// NewPipeline creates a trade pipeline.
func NewPipeline(cfg Config) *Pipeline {
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.New()
	}
	return &Pipeline{
		swaps:       cfg.Swaps,
		rpc:         cfg.RPC,
		relay:       cfg.Relay,
		wallet:      cfg.Wallet,
		slippageBps: cfg.SlippageBps,
		tipLamports: cfg.TipLamports,
		tipAccount:  cfg.TipAccount,
		log:         logger.WithField("component", "trade"),
	}
}

// Execute runs the full pipeline for one event and returns the outcome.
// Never returns nil.
func (p *Pipeline) Execute(ctx context.Context, event *domain.MatchEvent) *domain.TradeResult {
	result := &domain.TradeResult{
		ResultID:  uuid.NewString(),
		EventID:   event.EventID,
		Mint:      event.Mint,
		AmountSOL: event.AmountSOL,
		CreatedAt: time.Now().UTC(),
	}

	fail := func(stage string, err error) *domain.TradeResult {
		result.Stage = stage
		result.FailureReason = err.Error()
		return result
	}

	if math.IsNaN(event.AmountSOL) || math.IsInf(event.AmountSOL, 0) || event.AmountSOL <= 0 {
		return fail(domain.StageQuote, fmt.Errorf("invalid purchase amount %v SOL", event.AmountSOL))
	}
	lamports := uint64(math.Floor(event.AmountSOL * lamportsPerSOL))
	result.Lamports = lamports
	if lamports == 0 {
		return fail(domain.StageQuote, fmt.Errorf("amount %v SOL rounds to zero lamports", event.AmountSOL))
	}

	log := p.log.WithFields(logrus.Fields{
		"event_id": event.EventID,
		"mint":     event.Mint,
	})

	start := time.Now()
	quote, err := p.swaps.GetQuote(ctx, WrappedSOLMint, event.Mint, lamports, p.slippageBps)
	observability.RecordStageDuration(domain.StageQuote, time.Since(start).Seconds())
	if err != nil {
		return fail(domain.StageQuote, err)
	}
	log.WithField("out_amount", quote.OutAmount).Debug("quote obtained")

	start = time.Now()
	swap, err := p.swaps.GetSwapInstructions(ctx, quote, p.wallet.PublicKey())
	observability.RecordStageDuration(domain.StageInstructions, time.Since(start).Seconds())
	if err != nil {
		return fail(domain.StageInstructions, err)
	}

	start = time.Now()
	tables, err := solana.ResolveLookupTables(ctx, p.rpc, swap.AddressLookupTableAddresses)
	observability.RecordStageDuration(domain.StageLookup, time.Since(start).Seconds())
	if err != nil {
		return fail(domain.StageLookup, err)
	}

	start = time.Now()
	instrs, err := p.assemble(swap)
	if err != nil {
		observability.RecordStageDuration(domain.StageBuild, time.Since(start).Seconds())
		return fail(domain.StageBuild, err)
	}

	blockhash, err := p.rpc.GetLatestBlockhash(ctx)
	if err != nil {
		observability.RecordStageDuration(domain.StageBuild, time.Since(start).Seconds())
		return fail(domain.StageBuild, err)
	}

	tx, _, err := txbuilder.BuildTransaction(p.wallet, instrs, blockhash.Blockhash, tables)
	observability.RecordStageDuration(domain.StageBuild, time.Since(start).Seconds())
	if err != nil {
		return fail(domain.StageBuild, err)
	}

	start = time.Now()
	signature, err := p.relay.SendTransaction(ctx, tx)
	observability.RecordStageDuration(domain.StageSubmit, time.Since(start).Seconds())
	if err != nil {
		return fail(domain.StageSubmit, err)
	}

	result.Stage = domain.StageSubmit
	result.Signature = signature
	log.WithField("signature", signature).Info("transaction submitted")
	return result
}

// assemble flattens the swap instruction groups into execution order and
// appends the relay tip last, after the swap has succeeded.
func (p *Pipeline) assemble(swap *jupiter.SwapInstructions) ([]txbuilder.Instruction, error) {
	var instrs []txbuilder.Instruction

	add := func(api *jupiter.APIInstruction) error {
		ins, err := convertInstruction(api)
		if err != nil {
			return err
		}
		instrs = append(instrs, ins)
		return nil
	}

	for i := range swap.ComputeBudgetInstructions {
		if err := add(&swap.ComputeBudgetInstructions[i]); err != nil {
			return nil, err
		}
	}
	for i := range swap.SetupInstructions {
		if err := add(&swap.SetupInstructions[i]); err != nil {
			return nil, err
		}
	}
	if err := add(swap.SwapInstruction); err != nil {
		return nil, err
	}
	if swap.CleanupInstruction != nil {
		if err := add(swap.CleanupInstruction); err != nil {
			return nil, err
		}
	}

	if p.tipLamports > 0 && p.tipAccount != "" {
		instrs = append(instrs, txbuilder.NewTransferInstruction(p.wallet.PublicKey(), p.tipAccount, p.tipLamports))
	}

	return instrs, nil
}

func convertInstruction(api *jupiter.APIInstruction) (txbuilder.Instruction, error) {
	data, err := base64.StdEncoding.DecodeString(api.Data)
	if err != nil {
		return txbuilder.Instruction{}, fmt.Errorf("decode instruction data for %s: %w", api.ProgramID, err)
	}

	metas := make([]txbuilder.AccountMeta, len(api.Accounts))
	for i, a := range api.Accounts {
		metas[i] = txbuilder.AccountMeta{
			PubKey:     a.Pubkey,
			IsSigner:   a.IsSigner,
			IsWritable: a.IsWritable,
		}
	}

	return txbuilder.Instruction{
		ProgramID: api.ProgramID,
		Accounts:  metas,
		Data:      data,
	}, nil
}
