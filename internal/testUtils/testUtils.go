package testUtils

import (
	"encoding/base64"
	"fmt"

	"github.com/aldrin-exchange/anchor/pkg/eventDecoder"
	"github.com/near/borsh-go"
	"go.uber.org/zap"
)

const (
	AmmProgramID   = "AmmV2Prog11111111111111111111111111111111111"
	TokenProgramID = "TokenkegQfeZyiNwAJbNbGKPFxCWuBvf9Ss623VQ5DA"
)

// SwapEvent mirrors the wire shape of a typical AMM swap event.
type SwapEvent struct {
	Pool      string
	AmountIn  uint64
	AmountOut uint64
}

// PoolCreatedEvent mirrors the wire shape of a pool creation event.
type PoolCreatedEvent struct {
	Pool string
	Fee  uint16
}

// NewFixtureDecoder returns a decoder with the fixture events registered.
func NewFixtureDecoder(logger *zap.Logger) (*eventDecoder.Decoder, error) {
	decoder := eventDecoder.NewDecoder(logger)
	if err := decoder.RegisterEvent("SwapEvent", SwapEvent{}); err != nil {
		return nil, err
	}
	if err := decoder.RegisterEvent("PoolCreatedEvent", PoolCreatedEvent{}); err != nil {
		return nil, err
	}
	return decoder, nil
}

func InvokeLine(programID string, depth int) string {
	return fmt.Sprintf("Program %s invoke [%d]", programID, depth)
}

func ConsumedLine(programID string) string {
	return fmt.Sprintf("Program %s consumed 2366 of 200000 compute units", programID)
}

func SuccessLine(programID string) string {
	return fmt.Sprintf("Program %s success", programID)
}

func LogLine(message string) string {
	return "Program log: " + message
}

func DataLine(payload string) string {
	return "Program data: " + payload
}

// EncodeEvent produces the payload a program emits for a named event: the
// eight-byte discriminator followed by the borsh-encoded body, base64 encoded.
func EncodeEvent(name string, event interface{}) (string, error) {
	body, err := borsh.Serialize(event)
	if err != nil {
		return "", err
	}
	discriminator := eventDecoder.EventDiscriminator(name)
	return base64.StdEncoding.EncodeToString(append(discriminator[:], body...)), nil
}

// MustEncodeEvent is EncodeEvent for static fixtures that cannot fail.
func MustEncodeEvent(name string, event interface{}) string {
	payload, err := EncodeEvent(name, event)
	if err != nil {
		panic(err)
	}
	return payload
}

// SingleInvocationStream wraps payload lines in a complete top-level
// invocation frame the way the runtime logs one successful transaction.
func SingleInvocationStream(programID string, payloadLines ...string) []string {
	lines := []string{InvokeLine(programID, 1)}
	lines = append(lines, payloadLines...)
	lines = append(lines, ConsumedLine(programID), SuccessLine(programID))
	return lines
}
