package jito

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"
)

// SendBundleShaking fires the same encoded bundle at every region
// concurrently and returns as soon as any one accepts it. Losing responses,
// including errors, are discarded; an error surfaces only when every region
// fails.
func (c *Client) SendBundleShaking(ctx context.Context, txs []*solana.Transaction) (string, error) {
	encoded, err := encodeBundle(txs)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type outcome struct {
		region   string
		bundleID string
		err      error
	}
	results := make(chan outcome, len(c.names))

	for _, region := range c.names {
		go func(region string) {
			id, err := c.sendBundleTo(ctx, region, encoded)
			results <- outcome{region: region, bundleID: id, err: err}
		}(region)
	}

	errs := make([]error, 0, len(c.names))
	for range c.names {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case r := <-results:
			if r.err == nil {
				c.logger.WithFields(logrus.Fields{
					"region": r.region,
					"bundle": r.bundleID,
				}).Debug("bundle accepted")
				return r.bundleID, nil
			}
			errs = append(errs, fmt.Errorf("%s: %w", r.region, r.err))
		}
	}

	return "", fmt.Errorf("all %d relay regions rejected the bundle: %w", len(c.names), errors.Join(errs...))
}
