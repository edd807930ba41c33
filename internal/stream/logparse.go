package stream

import (
	"bytes"
	"encoding/base64"
	"strings"

	"github.com/gagliardetto/solana-go"
)

// Program logs are a flat text stream interleaving every program a
// transaction invokes, including nested inter-program calls. To attribute a
// data line to the right program the parser replays the invocation stack:
// "Program X invoke" pushes X, "Program X success/failed" pops it, and only
// lines emitted while the target program is top-of-stack count.

const (
	logDataPrefix = "Program data: "
	logTextPrefix = "Program log: "
)

// callStack tracks which program each log line belongs to.
type callStack struct {
	frames []string
}

func (s *callStack) push(program string) {
	s.frames = append(s.frames, program)
}

func (s *callStack) pop(program string) {
	if n := len(s.frames); n > 0 && s.frames[n-1] == program {
		s.frames = s.frames[:n-1]
	}
}

func (s *callStack) top() string {
	if n := len(s.frames); n > 0 {
		return s.frames[n-1]
	}
	return ""
}

// matchesDiscriminator reports whether data starts with the 8-byte event
// discriminator.
func matchesDiscriminator(data, discriminator []byte) bool {
	return len(data) >= len(discriminator) && bytes.Equal(data[:len(discriminator)], discriminator)
}

// extractEventData walks a transaction's log lines and returns the decoded
// event payloads (discriminator stripped) the target program emitted.
func extractEventData(logs []string, program solana.PublicKey, discriminator []byte) [][]byte {
	target := program.String()
	var stack callStack
	var out [][]byte

	for _, line := range logs {
		// Payload lines are classified before stack transitions: a program's
		// own log text may contain words like "invoke" and must never be
		// mistaken for an invocation marker.
		var payload string
		isPayload := true
		if rest, ok := strings.CutPrefix(line, logDataPrefix); ok {
			payload = rest
		} else if rest, ok := strings.CutPrefix(line, logTextPrefix); ok {
			payload = rest
		} else {
			isPayload = false
		}

		if isPayload {
			if stack.top() != target {
				continue
			}
			raw, err := base64.StdEncoding.DecodeString(payload)
			if err != nil {
				// Plain-text program logs share the prefix; skip them.
				continue
			}
			if matchesDiscriminator(raw, discriminator) {
				out = append(out, raw[len(discriminator):])
			}
			continue
		}

		if rest, ok := strings.CutPrefix(line, "Program "); ok {
			fields := strings.Fields(rest)
			if len(fields) >= 2 {
				switch fields[1] {
				case "invoke":
					stack.push(fields[0])
				case "success":
					stack.pop(fields[0])
				case "failed:":
					stack.pop(fields[0])
				}
			}
		}
	}
	return out
}
