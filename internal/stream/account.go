package stream

import (
	"context"
	"fmt"
	"time"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	solrpc "github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/ws"
	"github.com/sirupsen/logrus"
)

// Fetcher fetches raw account data for the optional fetch-then-stream
// snapshot.
type Fetcher interface {
	GetAccountData(ctx context.Context, account solana.PublicKey) ([]byte, error)
}

// Update is one delivery from an account subscription. A non-nil Err is
// terminal: it is sent once retries are exhausted, just before the channel
// closes.
type Update[T any] struct {
	Slot  uint64
	Value T
	Err   error
}

// DecodeBorsh decodes a Borsh-encoded payload into T.
func DecodeBorsh[T any](data []byte) (T, error) {
	var v T
	if err := bin.NewBorshDecoder(data).Decode(&v); err != nil {
		return v, fmt.Errorf("borsh decode: %w", err)
	}
	return v, nil
}

// DecodeBin decodes a fixed-layout binary payload (e.g. an SPL token
// account) into T.
func DecodeBin[T any](data []byte) (T, error) {
	var v T
	if err := bin.NewBinDecoder(data).Decode(&v); err != nil {
		return v, fmt.Errorf("bin decode: %w", err)
	}
	return v, nil
}

// DecodeTokenAccount decodes an SPL token account. Vault balance watching
// subscribes with it to follow pool reserves live.
func DecodeTokenAccount(data []byte) (token.Account, error) {
	return DecodeBin[token.Account](data)
}

// Account subscribes to state changes of a single account, decoding each
// update with decode. When fetcher is non-nil an immediate snapshot is
// emitted before the live feed starts. The subscription resubscribes on
// transport drops up to cfg.MaxRetries times with a fixed delay; any
// successful delivery resets the counter. Cancelling ctx stops retries and
// releases the connection.
func Account[T any](ctx context.Context, cfg Config, fetcher Fetcher, account solana.PublicKey, decode func([]byte) (T, error)) (<-chan Update[T], error) {
	cfg = cfg.withDefaults()
	out := make(chan Update[T], 16)

	go func() {
		defer close(out)

		if fetcher != nil {
			data, err := fetcher.GetAccountData(ctx, account)
			if err != nil {
				cfg.Logger.WithError(err).WithField("account", account).Warn("initial account fetch failed")
			} else if value, err := decode(data); err != nil {
				cfg.Logger.WithError(err).WithField("account", account).Warn("initial account decode failed")
			} else {
				select {
				case out <- Update[T]{Value: value}:
				case <-ctx.Done():
					return
				}
			}
		}

		retries := 0
		for {
			err := consumeAccount(ctx, cfg, account, decode, out, &retries)
			if ctx.Err() != nil {
				return
			}
			retries++
			if retries > cfg.MaxRetries {
				cfg.Logger.WithError(err).WithField("account", account).Error("account subscription gave up")
				out <- Update[T]{Err: fmt.Errorf("account subscription failed after %d retries: %w", cfg.MaxRetries, err)}
				return
			}
			cfg.Logger.WithError(err).WithFields(logrus.Fields{
				"account": account,
				"retry":   retries,
			}).Warn("account subscription dropped, resubscribing")

			select {
			case <-ctx.Done():
				return
			case <-time.After(cfg.RetryDelay):
			}
		}
	}()

	return out, nil
}

func consumeAccount[T any](ctx context.Context, cfg Config, account solana.PublicKey, decode func([]byte) (T, error), out chan<- Update[T], retries *int) error {
	client, err := ws.Connect(ctx, cfg.WSURL)
	if err != nil {
		return fmt.Errorf("ws connect: %w", err)
	}
	defer client.Close()

	sub, err := client.AccountSubscribeWithOpts(account, solrpc.CommitmentConfirmed, solana.EncodingBase64)
	if err != nil {
		return fmt.Errorf("account subscribe: %w", err)
	}
	defer sub.Unsubscribe()

	for {
		msg, err := sub.Recv(ctx)
		if err != nil {
			return fmt.Errorf("account recv: %w", err)
		}
		if msg == nil || msg.Value == nil {
			continue
		}

		value, err := decode(msg.Value.Data.GetBinary())
		if err != nil {
			cfg.Logger.WithError(err).WithField("account", account).Warn("account update decode failed")
			continue
		}

		select {
		case out <- Update[T]{Slot: msg.Context.Slot, Value: value}:
			*retries = 0
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
