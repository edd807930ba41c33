package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/quantfish/ammbot/internal/amm"
	"github.com/quantfish/ammbot/internal/config"
	"github.com/quantfish/ammbot/internal/constants"
	"github.com/quantfish/ammbot/internal/jito"
	"github.com/quantfish/ammbot/internal/rpc"
	"github.com/quantfish/ammbot/internal/stream"
)

func loadEnv() {
	_, filename, _, _ := runtime.Caller(0)
	projectRoot := filepath.Join(filepath.Dir(filename), "../..")
	_ = godotenv.Load(filepath.Join(projectRoot, ".env"))
}

// watcher tails swap events, and optionally pool reserves, pool creations and
// the relay tip floor, so operators can see flow and tip pressure in one
// place.
func main() {
	loadEnv()

	poolStr := flag.String("pool", "", "follow this pool's swaps and vault reserves (base58, optional)")
	discover := flag.Bool("discover", false, "report pool account creations and changes program-wide")
	tips := flag.Bool("tips", true, "follow the relay tip floor stream")
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	var pool solana.PublicKey
	if *poolStr != "" {
		pk, err := solana.PublicKeyFromBase58(*poolStr)
		if err != nil {
			logger.WithError(err).Fatal("invalid -pool")
		}
		pool = pk
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
		logger.Info("shutting down")
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

	streamCfg := stream.Config{WSURL: cfg.WSUrl, Logger: logger}

	// Resolve the watched pool up front; its vault addresses feed the reserve
	// subscriptions and its address filters the event feed.
	var watched *amm.PoolKeys
	var baseReserves, quoteReserves <-chan stream.Update[token.Account]
	if !pool.IsZero() {
		keys, err := amm.FetchPoolKeys(ctx, chain, pool)
		if err != nil {
			logger.WithError(err).Fatal("failed to fetch pool")
		}
		watched = keys
		logger.WithFields(logrus.Fields{
			"pool":        pool,
			"base_mint":   keys.BaseMint,
			"quote_mint":  keys.QuoteMint,
			"base_vault":  keys.BaseVault,
			"quote_vault": keys.QuoteVault,
		}).Info("watching pool")

		baseReserves, err = stream.Account(ctx, streamCfg, chain, keys.BaseVault, stream.DecodeTokenAccount)
		if err != nil {
			logger.WithError(err).Fatal("failed to subscribe to base vault")
		}
		quoteReserves, err = stream.Account(ctx, streamCfg, chain, keys.QuoteVault, stream.DecodeTokenAccount)
		if err != nil {
			logger.WithError(err).Fatal("failed to subscribe to quote vault")
		}
	}

	buys, err := stream.Events(ctx, streamCfg, constants.PumpAmmProgramID, amm.BuyEventDiscriminator, stream.DecodeBorsh[amm.BuyEvent])
	if err != nil {
		logger.WithError(err).Fatal("failed to subscribe to buy events")
	}
	sells, err := stream.Events(ctx, streamCfg, constants.PumpAmmProgramID, amm.SellEventDiscriminator, stream.DecodeBorsh[amm.SellEvent])
	if err != nil {
		logger.WithError(err).Fatal("failed to subscribe to sell events")
	}

	var pools <-chan stream.ProgramUpdate[*amm.PoolKeys]
	if *discover {
		pools, err = stream.Program(ctx, streamCfg, constants.PumpAmmProgramID, amm.PoolAccountSize,
			func(data []byte) (*amm.PoolKeys, error) {
				// The account address arrives on the update, not in the data.
				return amm.DecodePoolKeys(solana.PublicKey{}, data)
			})
		if err != nil {
			logger.WithError(err).Fatal("failed to subscribe to pool accounts")
		}
	}

	var tipUpdates <-chan jito.TipFloorSnapshot
	if *tips {
		relay, err := jito.NewClient(jito.ClientConfig{
			Regions: cfg.RelayRegions,
			UUID:    cfg.RelayUUID,
			Logger:  logger,
		})
		if err != nil {
			logger.WithError(err).Fatal("failed to create relay client")
		}
		feed, err := relay.TipStream(ctx)
		if err != nil {
			logger.WithError(err).Warn("tip stream unavailable")
		} else {
			tipUpdates = feed.Subscribe(ctx)
		}
	}

	for {
		select {
		case <-ctx.Done():
			return

		case update, ok := <-buys:
			if !ok {
				logger.Error("buy event stream closed")
				return
			}
			if update.Err != nil {
				logger.WithError(update.Err).Fatal("buy event stream failed")
			}
			if watched != nil && update.Event.Pool != watched.Pool {
				continue
			}
			logger.WithFields(logrus.Fields{
				"signature": update.Signature,
				"slot":      update.Slot,
				"pool":      update.Event.Pool,
				"base_out":  update.Event.BaseAmountOut,
				"quote_in":  update.Event.QuoteAmountInWithLPFee,
				"user":      update.Event.User,
			}).Info("buy")

		case update, ok := <-sells:
			if !ok {
				logger.Error("sell event stream closed")
				return
			}
			if update.Err != nil {
				logger.WithError(update.Err).Fatal("sell event stream failed")
			}
			if watched != nil && update.Event.Pool != watched.Pool {
				continue
			}
			logger.WithFields(logrus.Fields{
				"signature": update.Signature,
				"slot":      update.Slot,
				"pool":      update.Event.Pool,
				"base_in":   update.Event.BaseAmountIn,
				"quote_out": update.Event.UserQuoteAmountOut,
				"user":      update.Event.User,
			}).Info("sell")

		case update, ok := <-baseReserves:
			if !ok {
				logger.Error("base vault stream closed")
				return
			}
			if update.Err != nil {
				logger.WithError(update.Err).Fatal("base vault stream failed")
			}
			logger.WithFields(logrus.Fields{
				"slot":    update.Slot,
				"reserve": update.Value.Amount,
			}).Info("base reserve")

		case update, ok := <-quoteReserves:
			if !ok {
				logger.Error("quote vault stream closed")
				return
			}
			if update.Err != nil {
				logger.WithError(update.Err).Fatal("quote vault stream failed")
			}
			logger.WithFields(logrus.Fields{
				"slot":    update.Slot,
				"reserve": update.Value.Amount,
			}).Info("quote reserve")

		case update, ok := <-pools:
			if !ok {
				logger.Error("pool account stream closed")
				return
			}
			if update.Err != nil {
				logger.WithError(update.Err).Fatal("pool account stream failed")
			}
			logger.WithFields(logrus.Fields{
				"slot":       update.Slot,
				"pool":       update.Account,
				"base_mint":  update.Value.BaseMint,
				"quote_mint": update.Value.QuoteMint,
				"lp_supply":  update.Value.LPSupply,
			}).Info("pool account changed")

		case snapshot := <-tipUpdates:
			logger.WithFields(logrus.Fields{
				"p50":   snapshot.LandedTips50thPercentile,
				"p75":   snapshot.LandedTips75thPercentile,
				"p95":   snapshot.LandedTips95thPercentile,
				"ema50": snapshot.EMALandedTips50thPercentile,
			}).Info("tip floor")
		}
	}
}
