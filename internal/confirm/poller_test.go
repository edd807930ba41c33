package confirm

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfish/ammbot/internal/jito"
	"github.com/quantfish/ammbot/internal/rpc"
)

// scriptedStatuses returns one canned response per poll, in order.
type scriptedStatuses struct {
	responses []*rpc.SignatureStatus
	err       error
	calls     int
}

func (s *scriptedStatuses) GetSignatureStatus(context.Context, string) (*rpc.SignatureStatus, error) {
	defer func() { s.calls++ }()
	if s.err != nil {
		return nil, s.err
	}
	if s.calls < len(s.responses) {
		return s.responses[s.calls], nil
	}
	return nil, nil
}

func fastOpts() Options {
	return Options{MaxRetries: 4, RetryDelay: time.Millisecond}
}

func TestTransaction_Confirmed(t *testing.T) {
	source := &scriptedStatuses{responses: []*rpc.SignatureStatus{
		nil,
		{ConfirmationStatus: "processed"},
		{ConfirmationStatus: "confirmed"},
	}}

	outcome, err := Transaction(context.Background(), source, "sig", fastOpts())
	require.NoError(t, err)
	assert.True(t, outcome.Confirmed)
	assert.NoError(t, outcome.TxErr)
	// polling stops at the terminal status
	assert.Equal(t, 3, source.calls)
}

func TestTransaction_Finalized(t *testing.T) {
	source := &scriptedStatuses{responses: []*rpc.SignatureStatus{
		{ConfirmationStatus: "finalized"},
	}}

	outcome, err := Transaction(context.Background(), source, "sig", fastOpts())
	require.NoError(t, err)
	assert.True(t, outcome.Confirmed)
	assert.Equal(t, 1, source.calls)
}

func TestTransaction_OnChainFailure(t *testing.T) {
	source := &scriptedStatuses{responses: []*rpc.SignatureStatus{
		{Err: map[string]interface{}{"InstructionError": []interface{}{0, "Custom"}}},
	}}

	outcome, err := Transaction(context.Background(), source, "sig", fastOpts())
	require.NoError(t, err)
	assert.False(t, outcome.Confirmed)
	assert.ErrorContains(t, outcome.TxErr, "transaction failed")
	assert.Equal(t, 1, source.calls)
}

func TestTransaction_ExhaustionIsInconclusive(t *testing.T) {
	// the status never turns up: exactly MaxRetries checks, then a clean
	// not-confirmed, no-error outcome
	source := &scriptedStatuses{}

	outcome, err := Transaction(context.Background(), source, "sig", fastOpts())
	require.NoError(t, err)
	assert.False(t, outcome.Confirmed)
	assert.NoError(t, outcome.TxErr)
	assert.Equal(t, 4, source.calls)
}

func TestTransaction_SourceError(t *testing.T) {
	source := &scriptedStatuses{err: fmt.Errorf("rpc down")}

	_, err := Transaction(context.Background(), source, "sig", fastOpts())
	assert.ErrorContains(t, err, "rpc down")
	assert.Equal(t, 1, source.calls)
}

func TestTransaction_Cancelled(t *testing.T) {
	source := &scriptedStatuses{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// cancellation is observed between polls
	_, err := Transaction(ctx, source, "sig", Options{MaxRetries: 4, RetryDelay: time.Hour})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, source.calls)
}

type scriptedBundles struct {
	responses [][]*jito.BundleStatus
	calls     int
}

func (s *scriptedBundles) GetBundleStatuses(context.Context, []string) ([]*jito.BundleStatus, error) {
	defer func() { s.calls++ }()
	if s.calls < len(s.responses) {
		return s.responses[s.calls], nil
	}
	return nil, nil
}

func TestBundle_Landed(t *testing.T) {
	source := &scriptedBundles{responses: [][]*jito.BundleStatus{
		{{BundleID: "b-1"}},
		{{BundleID: "b-1", ConfirmationStatus: "confirmed"}},
	}}

	state, err := Bundle(context.Background(), source, "b-1", fastOpts())
	require.NoError(t, err)
	assert.Equal(t, jito.BundleLanded, state)
	assert.Equal(t, 2, source.calls)
}

func TestBundle_Failed(t *testing.T) {
	source := &scriptedBundles{responses: [][]*jito.BundleStatus{
		{{BundleID: "b-1", Err: "dropped"}},
	}}

	state, err := Bundle(context.Background(), source, "b-1", fastOpts())
	require.NoError(t, err)
	assert.Equal(t, jito.BundleFailed, state)
}

func TestBundle_IgnoresOtherBundles(t *testing.T) {
	source := &scriptedBundles{responses: [][]*jito.BundleStatus{
		{{BundleID: "other", ConfirmationStatus: "confirmed"}},
	}}

	state, err := Bundle(context.Background(), source, "b-1", fastOpts())
	require.NoError(t, err)
	assert.Equal(t, jito.BundlePending, state)
	assert.Equal(t, 4, source.calls)
}

func TestBundle_ExhaustionStaysPending(t *testing.T) {
	source := &scriptedBundles{}

	state, err := Bundle(context.Background(), source, "b-1", fastOpts())
	require.NoError(t, err)
	assert.Equal(t, jito.BundlePending, state)
	assert.Equal(t, 4, source.calls)
}
