// Package confirm polls signature and bundle status to a terminal outcome
// within a bounded retry budget.
package confirm

import (
	"context"
	"fmt"
	"time"

	"github.com/quantfish/ammbot/internal/constants"
	"github.com/quantfish/ammbot/internal/jito"
	"github.com/quantfish/ammbot/internal/rpc"
)

// StatusSource is the subset of the RPC client the poller consumes.
type StatusSource interface {
	GetSignatureStatus(ctx context.Context, signature string) (*rpc.SignatureStatus, error)
}

// BundleStatusSource is the subset of the relay client the poller consumes.
type BundleStatusSource interface {
	GetBundleStatuses(ctx context.Context, bundleIDs []string) ([]*jito.BundleStatus, error)
}

// Options bound the polling loop.
type Options struct {
	MaxRetries int           // number of status checks; default 4
	RetryDelay time.Duration // sleep between checks; default 500ms
}

func (o Options) withDefaults() Options {
	if o.MaxRetries <= 0 {
		o.MaxRetries = constants.ConfirmMaxRetries
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = constants.ConfirmRetryDelay
	}
	return o
}

// Outcome is the tri-state result of confirmation polling. Confirmed means
// the cluster reached confirmed or finalized commitment. A non-nil TxErr is
// a definitive on-chain failure. Both zero means the retry budget ran out
// without a terminal status: the transaction may still land, and the caller
// should re-check later rather than assume loss.
type Outcome struct {
	Confirmed bool
	TxErr     error
}

// Transaction polls a signature's status up to MaxRetries times. A reported
// on-chain error or a confirmed/finalized commitment ends polling
// immediately; otherwise the poller sleeps RetryDelay between checks.
func Transaction(ctx context.Context, source StatusSource, signature string, opts Options) (Outcome, error) {
	opts = opts.withDefaults()

	for attempt := 0; attempt < opts.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return Outcome{}, ctx.Err()
			case <-time.After(opts.RetryDelay):
			}
		}

		status, err := source.GetSignatureStatus(ctx, signature)
		if err != nil {
			return Outcome{}, fmt.Errorf("confirm %s: %w", signature, err)
		}
		if status == nil {
			continue
		}
		if status.Err != nil {
			return Outcome{TxErr: fmt.Errorf("transaction failed: %v", status.Err)}, nil
		}
		switch status.ConfirmationStatus {
		case "confirmed", "finalized":
			return Outcome{Confirmed: true}, nil
		}
	}

	// Inconclusive: distinct from a definitive failure.
	return Outcome{}, nil
}

// Bundle polls a relay's bundle status up to MaxRetries times, classifying
// the response into landed, failed or pending. Exhaustion leaves the bundle
// pending; pending is not an error.
func Bundle(ctx context.Context, source BundleStatusSource, bundleID string, opts Options) (jito.BundleState, error) {
	opts = opts.withDefaults()

	for attempt := 0; attempt < opts.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return jito.BundlePending, ctx.Err()
			case <-time.After(opts.RetryDelay):
			}
		}

		statuses, err := source.GetBundleStatuses(ctx, []string{bundleID})
		if err != nil {
			return jito.BundlePending, fmt.Errorf("bundle status %s: %w", bundleID, err)
		}
		for _, status := range statuses {
			if status == nil || status.BundleID != bundleID {
				continue
			}
			if state := status.State(); state != jito.BundlePending {
				return state, nil
			}
		}
	}

	return jito.BundlePending, nil
}
