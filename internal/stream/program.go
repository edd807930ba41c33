package stream

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	solrpc "github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/ws"
	"github.com/sirupsen/logrus"
)

// ProgramUpdate is one decoded account owned by the watched program. A
// non-nil Err is terminal.
type ProgramUpdate[T any] struct {
	Account solana.PublicKey
	Slot    uint64
	Value   T
	Err     error
}

// Program subscribes to every account owned by program whose data is exactly
// dataSize bytes, decoding each update with decode. A dataSize of zero
// disables the filter. Retry semantics match Account.
func Program[T any](ctx context.Context, cfg Config, program solana.PublicKey, dataSize uint64, decode func([]byte) (T, error)) (<-chan ProgramUpdate[T], error) {
	cfg = cfg.withDefaults()
	out := make(chan ProgramUpdate[T], 16)

	go func() {
		defer close(out)

		retries := 0
		for {
			err := consumeProgram(ctx, cfg, program, dataSize, decode, out, &retries)
			if ctx.Err() != nil {
				return
			}
			retries++
			if retries > cfg.MaxRetries {
				cfg.Logger.WithError(err).WithField("program", program).Error("program subscription gave up")
				out <- ProgramUpdate[T]{Err: fmt.Errorf("program subscription failed after %d retries: %w", cfg.MaxRetries, err)}
				return
			}
			cfg.Logger.WithError(err).WithFields(logrus.Fields{
				"program": program,
				"retry":   retries,
			}).Warn("program subscription dropped, resubscribing")

			select {
			case <-ctx.Done():
				return
			case <-time.After(cfg.RetryDelay):
			}
		}
	}()

	return out, nil
}

func consumeProgram[T any](ctx context.Context, cfg Config, program solana.PublicKey, dataSize uint64, decode func([]byte) (T, error), out chan<- ProgramUpdate[T], retries *int) error {
	client, err := ws.Connect(ctx, cfg.WSURL)
	if err != nil {
		return fmt.Errorf("ws connect: %w", err)
	}
	defer client.Close()

	var filters []solrpc.RPCFilter
	if dataSize > 0 {
		filters = append(filters, solrpc.RPCFilter{DataSize: dataSize})
	}

	sub, err := client.ProgramSubscribeWithOpts(program, solrpc.CommitmentConfirmed, solana.EncodingBase64, filters)
	if err != nil {
		return fmt.Errorf("program subscribe: %w", err)
	}
	defer sub.Unsubscribe()

	for {
		msg, err := sub.Recv(ctx)
		if err != nil {
			return fmt.Errorf("program recv: %w", err)
		}
		if msg == nil || msg.Value.Account == nil {
			continue
		}

		value, err := decode(msg.Value.Account.Data.GetBinary())
		if err != nil {
			cfg.Logger.WithError(err).WithField("account", msg.Value.Pubkey).Warn("program account decode failed")
			continue
		}

		select {
		case out <- ProgramUpdate[T]{
			Account: msg.Value.Pubkey,
			Slot:    msg.Context.Slot,
			Value:   value,
		}:
			*retries = 0
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
