package main

import (
	"context"
	"flag"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/gagliardetto/solana-go"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/quantfish/ammbot/internal/amm"
	"github.com/quantfish/ammbot/internal/config"
	"github.com/quantfish/ammbot/internal/confirm"
	"github.com/quantfish/ammbot/internal/constants"
	"github.com/quantfish/ammbot/internal/jito"
	"github.com/quantfish/ammbot/internal/rpc"
	"github.com/quantfish/ammbot/internal/txbuilder"
	"github.com/quantfish/ammbot/internal/wallet"
)

func loadEnv() {
	_, filename, _, _ := runtime.Caller(0)
	projectRoot := filepath.Join(filepath.Dir(filename), "../..")
	_ = godotenv.Load(filepath.Join(projectRoot, ".env"))
}

func main() {
	loadEnv()

	mode := flag.String("mode", "quote", "quote | execute")
	route := flag.String("route", "simple", "simple | sender | bundle")
	poolStr := flag.String("pool", "", "pool account address (base58)")
	side := flag.String("side", "buy", "buy | sell")
	exact := flag.String("exact", "base", "which leg -amount fixes: base | quote")
	amount := flag.Uint64("amount", 0, "amount in native units")
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	if *amount == 0 {
		fmt.Println("missing -amount (must be > 0)")
		os.Exit(2)
	}
	pool, err := solana.PublicKeyFromBase58(*poolStr)
	if err != nil {
		fmt.Println("invalid -pool:", err)
		os.Exit(2)
	}
	if *side != "buy" && *side != "sell" {
		fmt.Println("invalid -side (use buy|sell)")
		os.Exit(2)
	}
	if *exact != "base" && *exact != "quote" {
		fmt.Println("invalid -exact (use base|quote)")
		os.Exit(2)
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	chain := rpc.NewClient(rpc.ClientConfig{
		BaseURL:      cfg.RPCUrl,
		Timeout:      cfg.HTTPTimeout,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
		RateLimit:    cfg.RPCRateLimit,
		Logger:       logger,
	})

	t := &trader{cfg: cfg, chain: chain, logger: logger}
	if err := t.run(ctx, *mode, *route, pool, *side, *exact, *amount); err != nil {
		logger.WithError(err).Fatal("trade failed")
	}
}

type trader struct {
	cfg    *config.Config
	chain  *rpc.Client
	logger *logrus.Logger
}

func (t *trader) run(ctx context.Context, mode, route string, pool solana.PublicKey, side, exact string, amount uint64) error {
	keys, err := amm.FetchPoolKeys(ctx, t.chain, pool)
	if err != nil {
		return err
	}
	// The wrap/sync/close flow below only makes sense with a wrapped-SOL
	// quote side; every pump AMM pool we trade has one.
	if !keys.QuoteMint.Equals(constants.WSOLMint) {
		return fmt.Errorf("pool %s quote mint is %s, expected wrapped SOL", pool, keys.QuoteMint)
	}
	reserves, err := amm.FetchReserves(ctx, t.chain, keys)
	if err != nil {
		return err
	}
	global, err := amm.FetchGlobalConfig(ctx, t.chain)
	if err != nil {
		return err
	}
	fees := global.FeeConfig()

	t.logger.WithFields(logrus.Fields{
		"pool":          pool,
		"base_reserve":  reserves.Base,
		"quote_reserve": reserves.Quote,
	}).Info("pool loaded")

	amt := new(big.Int).SetUint64(amount)
	slippage := t.cfg.SlippagePercent

	if side == "buy" {
		var q *amm.BuyQuote
		if exact == "base" {
			q, err = amm.QuoteBuyBaseOut(amt, reserves, fees, slippage, keys.CoinCreator)
		} else {
			q, err = amm.QuoteBuyQuoteIn(amt, reserves, fees, slippage, keys.CoinCreator)
		}
		if err != nil {
			return err
		}
		fmt.Printf("buy base=%s raw_quote=%s lp_fee=%s protocol_fee=%s creator_fee=%s total=%s max=%s\n",
			q.Base, q.RawQuote, q.LPFee, q.ProtocolFee, q.CreatorFee, q.TotalQuote, q.MaxQuote)
		if mode != "execute" {
			return nil
		}
		return t.executeBuy(ctx, route, keys, global, q)
	}

	var q *amm.SellQuote
	if exact == "base" {
		q, err = amm.QuoteSellBaseIn(amt, reserves, fees, slippage, keys.CoinCreator)
	} else {
		q, err = amm.QuoteSellQuoteOut(amt, reserves, fees, slippage, keys.CoinCreator)
	}
	if err != nil {
		return err
	}
	fmt.Printf("sell base=%s raw_quote=%s lp_fee=%s protocol_fee=%s creator_fee=%s net=%s min=%s\n",
		q.Base, q.RawQuote, q.LPFee, q.ProtocolFee, q.CreatorFee, q.NetQuote, q.MinQuote)
	if mode != "execute" {
		return nil
	}
	return t.executeSell(ctx, route, keys, global, q)
}

// executeBuy wraps SOL into the quote ATA, swaps, and unwraps the refund.
func (t *trader) executeBuy(ctx context.Context, route string, keys *amm.PoolKeys, global *amm.GlobalConfig, q *amm.BuyQuote) error {
	w, err := wallet.New(t.cfg.PrivateKey)
	if err != nil {
		return err
	}
	user := w.PublicKey()

	accts, setup, err := t.prepareAccounts(ctx, user, keys, global)
	if err != nil {
		return err
	}

	maxQuote := q.MaxQuote.Uint64()
	ixs := setup
	ixs = append(ixs,
		txbuilder.NewSystemTransferIx(user, accts.UserQuoteTokenAccount, maxQuote),
		txbuilder.NewTokenSyncNativeIx(accts.UserQuoteTokenAccount),
	)
	swap, err := amm.BuildBuyInstruction(keys, accts, q.Base.Uint64(), maxQuote)
	if err != nil {
		return err
	}
	ixs = append(ixs, swap)
	// Close the wrapped-SOL account so the unspent slippage cushion comes back
	// as lamports.
	ixs = append(ixs, txbuilder.NewTokenCloseAccountIx(accts.UserQuoteTokenAccount, user, user))

	return t.send(ctx, route, w, ixs)
}

// executeSell swaps and closes the quote ATA to unwrap the proceeds.
func (t *trader) executeSell(ctx context.Context, route string, keys *amm.PoolKeys, global *amm.GlobalConfig, q *amm.SellQuote) error {
	w, err := wallet.New(t.cfg.PrivateKey)
	if err != nil {
		return err
	}
	user := w.PublicKey()

	accts, setup, err := t.prepareAccounts(ctx, user, keys, global)
	if err != nil {
		return err
	}

	swap, err := amm.BuildSellInstruction(keys, accts, q.Base.Uint64(), q.MinQuote.Uint64())
	if err != nil {
		return err
	}
	ixs := append(setup, swap)
	ixs = append(ixs, txbuilder.NewTokenCloseAccountIx(accts.UserQuoteTokenAccount, user, user))

	return t.send(ctx, route, w, ixs)
}

// prepareAccounts resolves the swap account set and returns create-ATA
// instructions for any account that does not exist yet.
func (t *trader) prepareAccounts(ctx context.Context, user solana.PublicKey, keys *amm.PoolKeys, global *amm.GlobalConfig) (amm.SwapAccounts, []solana.Instruction, error) {
	var setup []solana.Instruction

	userBase, _, err := txbuilder.FindAssociatedTokenAddress(user, keys.BaseMint)
	if err != nil {
		return amm.SwapAccounts{}, nil, err
	}
	userQuote, _, err := txbuilder.FindAssociatedTokenAddress(user, keys.QuoteMint)
	if err != nil {
		return amm.SwapAccounts{}, nil, err
	}

	for _, acct := range []struct {
		address solana.PublicKey
		mint    solana.PublicKey
	}{
		{userBase, keys.BaseMint},
		{userQuote, keys.QuoteMint},
	} {
		exists, err := t.chain.AccountExists(ctx, acct.address)
		if err != nil {
			return amm.SwapAccounts{}, nil, err
		}
		if !exists {
			setup = append(setup, txbuilder.NewCreateAssociatedTokenAccountIx(user, acct.address, user, acct.mint))
		}
	}

	recipient, err := global.ProtocolFeeRecipient()
	if err != nil {
		return amm.SwapAccounts{}, nil, err
	}
	recipientATA, _, err := txbuilder.FindAssociatedTokenAddress(recipient, keys.QuoteMint)
	if err != nil {
		return amm.SwapAccounts{}, nil, err
	}

	return amm.SwapAccounts{
		User:                             user,
		UserBaseTokenAccount:             userBase,
		UserQuoteTokenAccount:            userQuote,
		ProtocolFeeRecipient:             recipient,
		ProtocolFeeRecipientTokenAccount: recipientATA,
	}, setup, nil
}

// send builds and submits the swap over the requested route and waits for a
// terminal confirmation state.
func (t *trader) send(ctx context.Context, route string, w *wallet.Wallet, ixs []solana.Instruction) error {
	relay, err := jito.NewClient(jito.ClientConfig{
		Regions: t.cfg.RelayRegions,
		UUID:    t.cfg.RelayUUID,
		Logger:  t.logger,
	})
	if err != nil {
		return err
	}

	builder, err := txbuilder.New(txbuilder.Config{
		Chain:  t.chain,
		Wallet: w,
		Tips:   relay,
		Logger: t.logger,
	})
	if err != nil {
		return err
	}

	switch route {
	case "simple":
		tx, err := builder.BuildSimple(ctx, ixs, 0)
		if err != nil {
			return err
		}
		return t.submit(ctx, tx)

	case "sender":
		tx, err := builder.BuildSender(ctx, ixs, txbuilder.SenderOptions{
			TipLamports: t.cfg.TipLamports,
		})
		if err != nil {
			return err
		}
		return t.submit(ctx, tx)

	case "bundle":
		tip := int64(t.cfg.TipLamports)
		if tip == 0 {
			if recommended, err := relay.RecommendedTip(ctx); err == nil {
				tip = int64(recommended)
			} else {
				t.logger.WithError(err).Warn("tip floor unavailable, using minimum tip")
				tip = constants.MinTipLamports
			}
		}

		txs, err := builder.BuildBundle(ctx, []txbuilder.Bundle{{Instructions: ixs}}, tip)
		if err != nil {
			return err
		}
		if err := t.simulateFirst(ctx, txs[0]); err != nil {
			return err
		}

		bundleID, err := relay.SendBundleShaking(ctx, txs)
		if err != nil {
			return err
		}
		t.logger.WithField("bundle_id", bundleID).Info("bundle accepted by relay")

		state, err := confirm.Bundle(ctx, relay, bundleID, confirm.Options{})
		if err != nil {
			return err
		}
		fmt.Printf("bundle=%s state=%s\n", bundleID, state)
		return nil

	default:
		return fmt.Errorf("invalid -route %q (use simple|sender|bundle)", route)
	}
}

func (t *trader) submit(ctx context.Context, tx *solana.Transaction) error {
	if err := t.simulateFirst(ctx, tx); err != nil {
		return err
	}

	signature, err := t.chain.SendTransaction(ctx, tx, true)
	if err != nil {
		return err
	}
	t.logger.WithField("signature", signature).Info("transaction sent")

	outcome, err := confirm.Transaction(ctx, t.chain, signature, confirm.Options{})
	if err != nil {
		return err
	}
	switch {
	case outcome.Confirmed:
		fmt.Printf("confirmed sig=%s\n", signature)
	case outcome.TxErr != nil:
		return outcome.TxErr
	default:
		fmt.Printf("unconfirmed sig=%s (retry budget exhausted, may still land)\n", signature)
	}
	return nil
}

func (t *trader) simulateFirst(ctx context.Context, tx *solana.Transaction) error {
	if !t.cfg.SimulateFirst {
		return nil
	}
	result, err := t.chain.SimulateTransaction(ctx, tx)
	if err != nil {
		return err
	}
	if result.Err != nil {
		for _, line := range result.Logs {
			t.logger.WithField("log", line).Debug("simulation log")
		}
		return fmt.Errorf("simulation failed: %v", result.Err)
	}
	return nil
}
