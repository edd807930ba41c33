package stream

import (
	"encoding/base64"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	targetProgram = solana.MustPublicKeyFromBase58("pAMMBay6oceH9fJKBRHGP5D4bD4sWpmSwMn52FMfXEA")
	otherProgram  = solana.MustPublicKeyFromBase58("11111111111111111111111111111111")

	testDiscriminator = []byte{103, 244, 82, 31, 44, 245, 119, 119}
)

func eventLine(discriminator, payload []byte) string {
	return "Program data: " + base64.StdEncoding.EncodeToString(append(append([]byte{}, discriminator...), payload...))
}

func TestExtractEventData(t *testing.T) {
	logs := []string{
		"Program " + targetProgram.String() + " invoke [1]",
		eventLine(testDiscriminator, []byte("payload-1")),
		"Program " + targetProgram.String() + " success",
	}

	out := extractEventData(logs, targetProgram, testDiscriminator)
	require.Len(t, out, 1)
	assert.Equal(t, []byte("payload-1"), out[0])
}

func TestExtractEventData_NestedInvocation(t *testing.T) {
	// the target calls another program; data lines emitted inside the inner
	// frame belong to the inner program, not the target
	logs := []string{
		"Program " + targetProgram.String() + " invoke [1]",
		"Program " + otherProgram.String() + " invoke [2]",
		eventLine(testDiscriminator, []byte("inner")),
		"Program " + otherProgram.String() + " success",
		eventLine(testDiscriminator, []byte("outer")),
		"Program " + targetProgram.String() + " success",
	}

	out := extractEventData(logs, targetProgram, testDiscriminator)
	require.Len(t, out, 1)
	assert.Equal(t, []byte("outer"), out[0])
}

func TestExtractEventData_TargetNestedInsideOther(t *testing.T) {
	logs := []string{
		"Program " + otherProgram.String() + " invoke [1]",
		"Program " + targetProgram.String() + " invoke [2]",
		eventLine(testDiscriminator, []byte("nested")),
		"Program " + targetProgram.String() + " success",
		"Program " + otherProgram.String() + " success",
	}

	out := extractEventData(logs, targetProgram, testDiscriminator)
	require.Len(t, out, 1)
	assert.Equal(t, []byte("nested"), out[0])
}

func TestExtractEventData_FailedFramePops(t *testing.T) {
	logs := []string{
		"Program " + otherProgram.String() + " invoke [1]",
		"Program " + targetProgram.String() + " invoke [2]",
		"Program " + targetProgram.String() + " failed: custom program error: 0x1",
		eventLine(testDiscriminator, []byte("after-failure")),
		"Program " + otherProgram.String() + " success",
	}

	// after the target's frame pops, its discriminator no longer matches
	out := extractEventData(logs, targetProgram, testDiscriminator)
	assert.Empty(t, out)
}

func TestExtractEventData_DiscriminatorMismatch(t *testing.T) {
	logs := []string{
		"Program " + targetProgram.String() + " invoke [1]",
		eventLine([]byte{1, 2, 3, 4, 5, 6, 7, 8}, []byte("wrong-event")),
		"Program " + targetProgram.String() + " success",
	}

	out := extractEventData(logs, targetProgram, testDiscriminator)
	assert.Empty(t, out)
}

func TestExtractEventData_SkipsPlainTextLogs(t *testing.T) {
	logs := []string{
		"Program " + targetProgram.String() + " invoke [1]",
		"Program log: Instruction: Buy",
		"Program log: not base64 at all!!",
		eventLine(testDiscriminator, []byte("real")),
		"Program " + targetProgram.String() + " consumed 30000 of 200000 compute units",
		"Program " + targetProgram.String() + " success",
	}

	out := extractEventData(logs, targetProgram, testDiscriminator)
	require.Len(t, out, 1)
	assert.Equal(t, []byte("real"), out[0])
}

func TestExtractEventData_LogTextMentioningInvoke(t *testing.T) {
	// log text beginning with stack-transition words must not corrupt the
	// call stack; events after such a line still belong to the target
	logs := []string{
		"Program " + targetProgram.String() + " invoke [1]",
		"Program log: invoke count 3",
		"Program log: success rate 0.99",
		eventLine(testDiscriminator, []byte("after-chatter")),
		"Program " + targetProgram.String() + " success",
	}

	out := extractEventData(logs, targetProgram, testDiscriminator)
	require.Len(t, out, 1)
	assert.Equal(t, []byte("after-chatter"), out[0])
}

func TestExtractEventData_MultipleEvents(t *testing.T) {
	logs := []string{
		"Program " + targetProgram.String() + " invoke [1]",
		eventLine(testDiscriminator, []byte("one")),
		eventLine(testDiscriminator, []byte("two")),
		"Program " + targetProgram.String() + " success",
	}

	out := extractEventData(logs, targetProgram, testDiscriminator)
	require.Len(t, out, 2)
	assert.Equal(t, []byte("one"), out[0])
	assert.Equal(t, []byte("two"), out[1])
}

func TestMatchesDiscriminator(t *testing.T) {
	assert.True(t, matchesDiscriminator(append(append([]byte{}, testDiscriminator...), 0xff), testDiscriminator))
	assert.False(t, matchesDiscriminator([]byte{1, 2, 3}, testDiscriminator))
	assert.False(t, matchesDiscriminator(nil, testDiscriminator))
}
