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

// EventUpdate is one decoded program event. A non-nil Err is terminal.
type EventUpdate[T any] struct {
	Signature solana.Signature
	Slot      uint64
	Event     T
	Err       error
}

// Events subscribes to logs mentioning program and emits every event whose
// payload starts with discriminator, decoded with decode. Payloads are
// attributed with a program-invocation stack so identically shaped events
// from unrelated programs in the same transaction are ignored. Failed
// transactions are skipped. Retry semantics match Account.
func Events[T any](ctx context.Context, cfg Config, program solana.PublicKey, discriminator []byte, decode func([]byte) (T, error)) (<-chan EventUpdate[T], error) {
	cfg = cfg.withDefaults()
	out := make(chan EventUpdate[T], 16)

	go func() {
		defer close(out)

		retries := 0
		for {
			err := consumeEvents(ctx, cfg, program, discriminator, decode, out, &retries)
			if ctx.Err() != nil {
				return
			}
			retries++
			if retries > cfg.MaxRetries {
				cfg.Logger.WithError(err).WithField("program", program).Error("event subscription gave up")
				out <- EventUpdate[T]{Err: fmt.Errorf("event subscription failed after %d retries: %w", cfg.MaxRetries, err)}
				return
			}
			cfg.Logger.WithError(err).WithFields(logrus.Fields{
				"program": program,
				"retry":   retries,
			}).Warn("event subscription dropped, resubscribing")

			select {
			case <-ctx.Done():
				return
			case <-time.After(cfg.RetryDelay):
			}
		}
	}()

	return out, nil
}

func consumeEvents[T any](ctx context.Context, cfg Config, program solana.PublicKey, discriminator []byte, decode func([]byte) (T, error), out chan<- EventUpdate[T], retries *int) error {
	client, err := ws.Connect(ctx, cfg.WSURL)
	if err != nil {
		return fmt.Errorf("ws connect: %w", err)
	}
	defer client.Close()

	sub, err := client.LogsSubscribeMentions(program, solrpc.CommitmentConfirmed)
	if err != nil {
		return fmt.Errorf("logs subscribe: %w", err)
	}
	defer sub.Unsubscribe()

	for {
		msg, err := sub.Recv(ctx)
		if err != nil {
			return fmt.Errorf("logs recv: %w", err)
		}
		if msg == nil || msg.Value.Err != nil {
			continue
		}

		for _, payload := range extractEventData(msg.Value.Logs, program, discriminator) {
			event, err := decode(payload)
			if err != nil {
				cfg.Logger.WithError(err).WithField("signature", msg.Value.Signature).Warn("event decode failed")
				continue
			}

			select {
			case out <- EventUpdate[T]{
				Signature: msg.Value.Signature,
				Slot:      msg.Context.Slot,
				Event:     event,
			}:
				*retries = 0
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}
