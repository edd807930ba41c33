// Package stream maintains resilient push subscriptions over account state,
// program accounts and program log output, decoding raw payloads into typed
// records.
package stream

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/quantfish/ammbot/internal/constants"
)

// Config holds settings shared by every subscription kind. Each subscription
// opens its own websocket connection, so cancelling one never disturbs
// another.
type Config struct {
	WSURL      string
	MaxRetries int           // resubscribe attempts before giving up
	RetryDelay time.Duration // fixed delay between resubscribes
	Logger     *logrus.Logger
}

func (c Config) withDefaults() Config {
	if c.MaxRetries <= 0 {
		c.MaxRetries = constants.SubscribeMaxRetries
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = constants.SubscribeRetryDelay
	}
	if c.Logger == nil {
		c.Logger = logrus.New()
	}
	return c
}
