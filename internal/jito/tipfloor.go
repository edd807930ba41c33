package jito

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	tipFloorAttempts       = 3
	tipFloorAttemptTimeout = 5 * time.Second
	tipStreamReconnectWait = 3 * time.Second
)

// TipFloorSnapshot holds percentile statistics over recently landed relay
// tips. Values are in SOL.
type TipFloorSnapshot struct {
	Time                        string  `json:"time"`
	LandedTips25thPercentile    float64 `json:"landed_tips_25th_percentile"`
	LandedTips50thPercentile    float64 `json:"landed_tips_50th_percentile"`
	LandedTips75thPercentile    float64 `json:"landed_tips_75th_percentile"`
	LandedTips95thPercentile    float64 `json:"landed_tips_95th_percentile"`
	LandedTips99thPercentile    float64 `json:"landed_tips_99th_percentile"`
	EMALandedTips50thPercentile float64 `json:"ema_landed_tips_50th_percentile"`
}

// GetTipFloor fetches current tip-floor statistics from the REST endpoint.
// Up to 3 attempts with linear backoff; exhausting them is fatal for this
// call (streaming consumers fall back to the cached snapshot instead).
func (c *Client) GetTipFloor(ctx context.Context) (*TipFloorSnapshot, error) {
	var lastErr error
	for attempt := 1; attempt <= tipFloorAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt-1) * time.Second):
			}
		}

		snapshot, err := c.fetchTipFloor(ctx)
		if err == nil {
			return snapshot, nil
		}
		lastErr = err
		c.logger.WithError(err).WithField("attempt", attempt).Debug("tip floor fetch failed")
	}
	return nil, fmt.Errorf("tip floor unavailable after %d attempts: %w", tipFloorAttempts, lastErr)
}

func (c *Client) fetchTipFloor(ctx context.Context) (*TipFloorSnapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, tipFloorAttemptTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", c.tipFloorURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tip floor request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tip floor endpoint returned status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read tip floor response: %w", err)
	}

	var snapshots []TipFloorSnapshot
	if err := json.Unmarshal(raw, &snapshots); err != nil {
		return nil, fmt.Errorf("failed to unmarshal tip floor response: %w", err)
	}
	if len(snapshots) == 0 {
		return nil, fmt.Errorf("tip floor response is empty")
	}
	return &snapshots[0], nil
}

// TipFeed is the one piece of shared cached state in the process: a single
// push subscription fans snapshots out to any number of subscribers. Callers
// read snapshots; only the feed's own update path replaces them.
type TipFeed struct {
	mu   sync.RWMutex
	last TipFloorSnapshot
	subs map[chan TipFloorSnapshot]struct{}
}

func newTipFeed(initial TipFloorSnapshot) *TipFeed {
	return &TipFeed{
		last: initial,
		subs: make(map[chan TipFloorSnapshot]struct{}),
	}
}

// Last returns the most recent snapshot.
func (f *TipFeed) Last() TipFloorSnapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.last
}

// Subscribe returns a channel that immediately yields the current snapshot
// and then every update. The channel closes when ctx is cancelled; slow
// subscribers miss intermediate updates rather than blocking the feed.
func (f *TipFeed) Subscribe(ctx context.Context) <-chan TipFloorSnapshot {
	ch := make(chan TipFloorSnapshot, 8)

	f.mu.Lock()
	ch <- f.last
	f.subs[ch] = struct{}{}
	f.mu.Unlock()

	go func() {
		<-ctx.Done()
		f.mu.Lock()
		delete(f.subs, ch)
		f.mu.Unlock()
		close(ch)
	}()
	return ch
}

func (f *TipFeed) publish(s TipFloorSnapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.last = s
	for ch := range f.subs {
		select {
		case ch <- s:
		default:
		}
	}
}

// republishLast re-emits the cached snapshot; subscribers see stale data on
// transport failure, never a dead stream.
func (f *TipFeed) republishLast() {
	f.mu.RLock()
	last := f.last
	f.mu.RUnlock()
	f.publish(last)
}

// tipFeedHandle guards lazy construction of the shared feed.
type tipFeedHandle struct {
	mu   sync.Mutex
	feed *TipFeed
}

// TipStream returns the shared tip-floor feed, creating it on first use: an
// initial snapshot is fetched, then one websocket subscription keeps it
// live for the remaining lifetime of ctx. Subsequent calls return the same
// feed without opening another subscription.
func (c *Client) TipStream(ctx context.Context) (*TipFeed, error) {
	c.feed.mu.Lock()
	defer c.feed.mu.Unlock()

	if c.feed.feed != nil {
		return c.feed.feed, nil
	}

	initial, err := c.GetTipFloor(ctx)
	if err != nil {
		return nil, fmt.Errorf("tip stream initial snapshot: %w", err)
	}

	feed := newTipFeed(*initial)
	c.feed.feed = feed
	go c.runTipStream(ctx, feed)
	return feed, nil
}

// runTipStream keeps the websocket subscription alive, republishing the last
// known snapshot on any transport error before reconnecting.
func (c *Client) runTipStream(ctx context.Context, feed *TipFeed) {
	for {
		if ctx.Err() != nil {
			return
		}

		if err := c.consumeTipStream(ctx, feed); err != nil && ctx.Err() == nil {
			c.logger.WithError(err).Debug("tip stream disconnected")
			feed.republishLast()
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(tipStreamReconnectWait):
		}
	}
}

func (c *Client) consumeTipStream(ctx context.Context, feed *TipFeed) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.tipWSURL, nil)
	if err != nil {
		return fmt.Errorf("tip stream dial: %w", err)
	}
	defer conn.Close()

	// Close the socket when ctx ends so the read loop unblocks.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		var snapshots []TipFloorSnapshot
		if err := conn.ReadJSON(&snapshots); err != nil {
			return fmt.Errorf("tip stream read: %w", err)
		}
		for _, s := range snapshots {
			feed.publish(s)
		}
	}
}

// RecommendedTip returns a lamport tip sized from the live 75th-percentile
// floor, falling back to a direct fetch when the stream is not running.
func (c *Client) RecommendedTip(ctx context.Context) (uint64, error) {
	c.feed.mu.Lock()
	feed := c.feed.feed
	c.feed.mu.Unlock()

	var snapshot TipFloorSnapshot
	if feed != nil {
		snapshot = feed.Last()
	} else {
		s, err := c.GetTipFloor(ctx)
		if err != nil {
			return 0, err
		}
		snapshot = *s
	}
	return uint64(snapshot.LandedTips75thPercentile * 1e9), nil
}
