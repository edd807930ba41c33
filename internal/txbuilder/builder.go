package txbuilder

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"

	"github.com/quantfish/ammbot/internal/constants"
	"github.com/quantfish/ammbot/internal/rpc"
	"github.com/quantfish/ammbot/internal/wallet"
)

var (
	ErrEmptyBundle = errors.New("txbuilder: bundle has no instructions")
	ErrNegativeTip = errors.New("txbuilder: tip must not be negative")
)

// ChainRPC is the subset of the RPC client the builder consumes.
type ChainRPC interface {
	GetLatestBlockhash(ctx context.Context, commitment string, minSlot uint64) (solana.Hash, uint64, error)
	SimulateTransaction(ctx context.Context, tx *solana.Transaction) (*rpc.SimulationResult, error)
	GetPriorityFeeEstimate(ctx context.Context, accounts []solana.PublicKey) (uint64, error)
	SendTransaction(ctx context.Context, tx *solana.Transaction, skipPreflight bool) (string, error)
}

// TipSource supplies a recommended relay tip in lamports.
type TipSource interface {
	RecommendedTip(ctx context.Context) (uint64, error)
}

// Builder assembles signed wire transactions. It fetches a fresh blockhash
// per build and never reuses one across builds; transactions within a single
// bundle group share one blockhash.
type Builder struct {
	chain  ChainRPC
	wallet *wallet.Wallet
	tips   TipSource
	logger *logrus.Logger
}

// Config holds dependencies for the Builder. Tips may be nil; tip sizing then
// falls back to the hardcoded floor.
type Config struct {
	Chain  ChainRPC
	Wallet *wallet.Wallet
	Tips   TipSource
	Logger *logrus.Logger
}

func New(cfg Config) (*Builder, error) {
	if cfg.Chain == nil {
		return nil, fmt.Errorf("txbuilder: chain RPC is required")
	}
	if cfg.Wallet == nil {
		return nil, fmt.Errorf("txbuilder: wallet is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &Builder{
		chain:  cfg.Chain,
		wallet: cfg.Wallet,
		tips:   cfg.Tips,
		logger: cfg.Logger,
	}, nil
}

// SenderOptions tunes a priority-routed build. Zero values mean "estimate".
type SenderOptions struct {
	// TipLamports is used exactly as given when non-zero. 0 sizes the tip from
	// the recommended feed, floored at MinTipLamports.
	TipLamports      uint64
	ComputeUnitLimit uint32 // 0 = simulate and size with headroom
	ComputeUnitPrice uint64 // 0 = estimate, microlamports per unit
	MinSlot          uint64
}

// Bundle is an ordered, non-empty instruction list plus the extra signers it
// requires beyond the fee payer.
type Bundle struct {
	Instructions []solana.Instruction
	Signers      []solana.PrivateKey
}

// BuildSimple signs and encodes the instructions as-is; no fee tuning.
func (b *Builder) BuildSimple(ctx context.Context, ixs []solana.Instruction, minSlot uint64) (*solana.Transaction, error) {
	if len(ixs) == 0 {
		return nil, ErrEmptyBundle
	}

	blockhash, _, err := b.chain.GetLatestBlockhash(ctx, "confirmed", minSlot)
	if err != nil {
		return nil, fmt.Errorf("failed to get blockhash: %w", err)
	}

	tx, err := solana.NewTransaction(ixs, blockhash, solana.TransactionPayer(b.wallet.PublicKey()))
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}
	if err := b.wallet.Sign(tx); err != nil {
		return nil, err
	}
	return tx, nil
}

// BuildSender builds a priority-routed transaction: a compute-unit limit, a
// compute-unit price and a tip transfer to a random tip account are prepended
// before signing. Every estimation step degrades to a hardcoded fallback on
// error; tuning is best-effort, the trade itself is not.
func (b *Builder) BuildSender(ctx context.Context, ixs []solana.Instruction, opts SenderOptions) (*solana.Transaction, error) {
	if len(ixs) == 0 {
		return nil, ErrEmptyBundle
	}

	tip := opts.TipLamports
	if tip == 0 {
		tip = b.estimateOr(ctx, "tip", constants.MinTipLamports, func(ctx context.Context) (uint64, error) {
			if b.tips == nil {
				return 0, fmt.Errorf("no tip source configured")
			}
			return b.tips.RecommendedTip(ctx)
		})
		// The floor guards only the estimated path; an explicit tip is the
		// caller's call, even when it undercuts the going rate.
		if tip < constants.MinTipLamports {
			tip = constants.MinTipLamports
		}
	}

	limit := opts.ComputeUnitLimit
	if limit == 0 {
		limit = b.estimateComputeUnits(ctx, ixs)
	}

	price := opts.ComputeUnitPrice
	if price == 0 {
		price = b.estimateOr(ctx, "priority fee", constants.DefaultPriorityFeeMicroLamports, func(ctx context.Context) (uint64, error) {
			fee, err := b.chain.GetPriorityFeeEstimate(ctx, writableAccounts(ixs))
			if err != nil {
				return 0, err
			}
			return fee * 12 / 10, nil
		})
	}

	tipIx := NewSystemTransferIx(b.wallet.PublicKey(), randomTipAccount(), tip)
	full := make([]solana.Instruction, 0, len(ixs)+3)
	full = append(full, NewComputeUnitLimitIx(limit), NewComputeUnitPriceIx(price), tipIx)
	full = append(full, ixs...)

	return b.BuildSimple(ctx, full, opts.MinSlot)
}

// BuildBundle builds N signed transactions sharing one blockhash. Only bundle
// index 0 receives an appended tip transfer, and only when tip > 0; the other
// bundles pass through untouched.
func (b *Builder) BuildBundle(ctx context.Context, bundles []Bundle, tipLamports int64) ([]*solana.Transaction, error) {
	if len(bundles) == 0 {
		return nil, ErrEmptyBundle
	}
	if tipLamports < 0 {
		return nil, ErrNegativeTip
	}
	for i, bundle := range bundles {
		if len(bundle.Instructions) == 0 {
			return nil, fmt.Errorf("%w (index %d)", ErrEmptyBundle, i)
		}
	}

	blockhash, _, err := b.chain.GetLatestBlockhash(ctx, "confirmed", 0)
	if err != nil {
		return nil, fmt.Errorf("failed to get blockhash: %w", err)
	}

	txs := make([]*solana.Transaction, 0, len(bundles))
	for i, bundle := range bundles {
		ixs := bundle.Instructions
		if i == 0 && tipLamports > 0 {
			ixs = append(ixs[:len(ixs):len(ixs)],
				NewSystemTransferIx(b.wallet.PublicKey(), randomTipAccount(), uint64(tipLamports)))
		}

		tx, err := solana.NewTransaction(ixs, blockhash, solana.TransactionPayer(b.wallet.PublicKey()))
		if err != nil {
			return nil, fmt.Errorf("failed to create bundle transaction %d: %w", i, err)
		}
		if err := b.wallet.Sign(tx, bundle.Signers...); err != nil {
			return nil, fmt.Errorf("failed to sign bundle transaction %d: %w", i, err)
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

// SendSimple builds and submits directly to the RPC endpoint.
func (b *Builder) SendSimple(ctx context.Context, ixs []solana.Instruction, minSlot uint64) (string, error) {
	tx, err := b.BuildSimple(ctx, ixs, minSlot)
	if err != nil {
		return "", err
	}
	return b.chain.SendTransaction(ctx, tx, false)
}

// SendSender builds a priority-routed transaction and submits it with
// preflight skipped; the tip buys inclusion, not simulation.
func (b *Builder) SendSender(ctx context.Context, ixs []solana.Instruction, opts SenderOptions) (string, error) {
	tx, err := b.BuildSender(ctx, ixs, opts)
	if err != nil {
		return "", err
	}
	return b.chain.SendTransaction(ctx, tx, true)
}

// estimateComputeUnits simulates a draft of the instructions and sizes the
// limit with headroom. Implausibly small estimates and simulation failures
// both fall back to the default limit.
func (b *Builder) estimateComputeUnits(ctx context.Context, ixs []solana.Instruction) uint32 {
	units := b.estimateOr(ctx, "compute units", constants.DefaultComputeUnits, func(ctx context.Context) (uint64, error) {
		blockhash, _, err := b.chain.GetLatestBlockhash(ctx, "confirmed", 0)
		if err != nil {
			return 0, err
		}
		draft, err := solana.NewTransaction(ixs, blockhash, solana.TransactionPayer(b.wallet.PublicKey()))
		if err != nil {
			return 0, err
		}
		if err := b.wallet.Sign(draft); err != nil {
			return 0, err
		}
		sim, err := b.chain.SimulateTransaction(ctx, draft)
		if err != nil {
			return 0, err
		}
		if sim.UnitsConsumed < constants.MinPlausibleComputeUnits {
			return constants.DefaultComputeUnits, nil
		}
		return uint64(float64(sim.UnitsConsumed) * constants.ComputeUnitHeadroom), nil
	})
	if units > constants.MaxComputeUnits {
		units = constants.MaxComputeUnits
	}
	return uint32(units)
}

// estimateOr runs an estimation step and substitutes the fallback on any
// error. All best-effort tuning flows through here so the fallback policy is
// auditable in one place.
func (b *Builder) estimateOr(ctx context.Context, name string, fallback uint64, fn func(context.Context) (uint64, error)) uint64 {
	v, err := fn(ctx)
	if err != nil {
		b.logger.WithError(err).WithFields(logrus.Fields{
			"step":     name,
			"fallback": fallback,
		}).Debug("estimation failed, using fallback")
		return fallback
	}
	return v
}

func randomTipAccount() solana.PublicKey {
	return solana.MustPublicKeyFromBase58(constants.TipAccounts[rand.IntN(len(constants.TipAccounts))])
}

// writableAccounts collects the writable accounts the instructions touch;
// priority-fee estimation weighs contention on these.
func writableAccounts(ixs []solana.Instruction) []solana.PublicKey {
	seen := make(map[solana.PublicKey]struct{})
	var out []solana.PublicKey
	for _, ix := range ixs {
		for _, meta := range ix.Accounts() {
			if meta.IsWritable {
				if _, ok := seen[meta.PublicKey]; !ok {
					seen[meta.PublicKey] = struct{}{}
					out = append(out, meta.PublicKey)
				}
			}
		}
	}
	return out
}
