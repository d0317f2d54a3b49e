package eventDecoder

import (
	"encoding/base64"
	"encoding/hex"
	"testing"

	"github.com/near/borsh-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type swapEvent struct {
	Pool      string
	AmountIn  uint64
	AmountOut uint64
}

type poolCreatedEvent struct {
	Pool string
	Fee  uint16
}

// encodeEvent builds the wire form a program emits: discriminator, borsh
// body, base64 over the lot.
func encodeEvent(t *testing.T, name string, event interface{}) string {
	t.Helper()

	body, err := borsh.Serialize(event)
	require.NoError(t, err)

	discriminator := EventDiscriminator(name)
	return base64.StdEncoding.EncodeToString(append(discriminator[:], body...))
}

func TestDecoder_Decode(t *testing.T) {
	decoder := NewDecoder(zap.NewNop())
	require.NoError(t, decoder.RegisterEvent("SwapEvent", swapEvent{}))
	require.NoError(t, decoder.RegisterEvent("PoolCreatedEvent", poolCreatedEvent{}))

	t.Run("round trips a registered event", func(t *testing.T) {
		emitted := swapEvent{
			Pool:      "AmmPool1111",
			AmountIn:  1_000_000,
			AmountOut: 987_654,
		}

		decoded, ok := decoder.Decode(encodeEvent(t, "SwapEvent", emitted))
		require.True(t, ok)

		swap, isSwap := decoded.(*swapEvent)
		require.True(t, isSwap)
		assert.Equal(t, emitted, *swap)
	})

	t.Run("selects the event by discriminator", func(t *testing.T) {
		decoded, ok := decoder.Decode(encodeEvent(t, "PoolCreatedEvent", poolCreatedEvent{
			Pool: "AmmPool2222",
			Fee:  30,
		}))
		require.True(t, ok)

		created, isCreated := decoded.(*poolCreatedEvent)
		require.True(t, isCreated)
		assert.Equal(t, uint16(30), created.Fee)
	})

	t.Run("rejects an unregistered discriminator", func(t *testing.T) {
		decoded, ok := decoder.Decode(encodeEvent(t, "UnknownEvent", swapEvent{}))
		assert.False(t, ok)
		assert.Nil(t, decoded)
	})

	t.Run("rejects payloads shorter than a discriminator", func(t *testing.T) {
		decoded, ok := decoder.Decode(base64.StdEncoding.EncodeToString([]byte("abc")))
		assert.False(t, ok)
		assert.Nil(t, decoded)
	})

	t.Run("rejects plain text prints", func(t *testing.T) {
		decoded, ok := decoder.Decode("Instruction: Swap")
		assert.False(t, ok)
		assert.Nil(t, decoded)
	})

	t.Run("rejects a registered discriminator with a truncated body", func(t *testing.T) {
		discriminator := EventDiscriminator("SwapEvent")
		payload := base64.StdEncoding.EncodeToString(append(discriminator[:], 0x01))

		decoded, ok := decoder.Decode(payload)
		assert.False(t, ok)
		assert.Nil(t, decoded)
	})
}

func TestDecoder_DecodeWithName(t *testing.T) {
	decoder := NewDecoder(zap.NewNop())
	require.NoError(t, decoder.RegisterEvent("SwapEvent", &swapEvent{}))

	name, decoded, ok := decoder.DecodeWithName(encodeEvent(t, "SwapEvent", swapEvent{
		Pool:     "AmmPool1111",
		AmountIn: 42,
	}))
	require.True(t, ok)
	assert.Equal(t, "SwapEvent", name)
	assert.NotNil(t, decoded)
}

func TestDecoder_Named(t *testing.T) {
	decoder := NewDecoder(zap.NewNop())
	require.NoError(t, decoder.RegisterEvent("SwapEvent", swapEvent{}))
	named := decoder.Named()

	t.Run("wraps decoded events with their name", func(t *testing.T) {
		decoded, ok := named.Decode(encodeEvent(t, "SwapEvent", swapEvent{Pool: "AmmPool1111"}))
		require.True(t, ok)

		event, ok := decoded.(*NamedEvent)
		require.True(t, ok)
		assert.Equal(t, "SwapEvent", event.Name)
		assert.Equal(t, "AmmPool1111", event.Data.(*swapEvent).Pool)
	})

	t.Run("still rejects non-events", func(t *testing.T) {
		decoded, ok := named.Decode("not base64 at all")
		assert.False(t, ok)
		assert.Nil(t, decoded)
	})
}

func TestDecoder_RegisterRawEvent(t *testing.T) {
	decoder := NewDecoder(zap.NewNop())
	require.NoError(t, decoder.RegisterRawEvent("SwapEvent"))

	t.Run("keeps the configured name and the raw body", func(t *testing.T) {
		emitted := swapEvent{Pool: "AmmPool1111", AmountIn: 42}
		name, decoded, ok := decoder.DecodeWithName(encodeEvent(t, "SwapEvent", emitted))
		require.True(t, ok)
		assert.Equal(t, "SwapEvent", name)

		raw, ok := decoded.(*RawEvent)
		require.True(t, ok)
		assert.Equal(t, EventDiscriminator("SwapEvent"), raw.Discriminator)
		assert.NotEmpty(t, raw.Data)
	})

	t.Run("rejects duplicate registration", func(t *testing.T) {
		err := decoder.RegisterRawEvent("SwapEvent")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "already registered")
	})

	t.Run("rejects an empty name", func(t *testing.T) {
		require.Error(t, decoder.RegisterRawEvent(""))
	})
}

func TestDecoder_RegisterEvent(t *testing.T) {
	t.Run("rejects duplicate registration", func(t *testing.T) {
		decoder := NewDecoder(zap.NewNop())
		require.NoError(t, decoder.RegisterEvent("SwapEvent", swapEvent{}))

		err := decoder.RegisterEvent("SwapEvent", swapEvent{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "already registered")
	})

	t.Run("rejects non-struct prototypes", func(t *testing.T) {
		decoder := NewDecoder(zap.NewNop())

		err := decoder.RegisterEvent("SwapEvent", "not a struct")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "must be a struct")
	})

	t.Run("rejects nil prototypes", func(t *testing.T) {
		decoder := NewDecoder(zap.NewNop())

		err := decoder.RegisterEvent("SwapEvent", nil)
		require.Error(t, err)
	})

	t.Run("lists registered events", func(t *testing.T) {
		decoder := NewDecoder(zap.NewNop())
		require.NoError(t, decoder.RegisterEvent("SwapEvent", swapEvent{}))
		require.NoError(t, decoder.RegisterEvent("PoolCreatedEvent", poolCreatedEvent{}))

		assert.ElementsMatch(t, []string{"SwapEvent", "PoolCreatedEvent"}, decoder.RegisteredEvents())
	})
}

func TestEventDiscriminator(t *testing.T) {
	t.Run("is stable for a name", func(t *testing.T) {
		assert.Equal(t, EventDiscriminator("SwapEvent"), EventDiscriminator("SwapEvent"))
	})

	t.Run("differs across names", func(t *testing.T) {
		assert.NotEqual(t, EventDiscriminator("SwapEvent"), EventDiscriminator("PoolCreatedEvent"))
	})
}

func TestRawDecoder_Decode(t *testing.T) {
	decoder := NewRawDecoder()

	t.Run("passes any well-formed payload through", func(t *testing.T) {
		discriminator := EventDiscriminator("SwapEvent")
		body := []byte{0xde, 0xad, 0xbe, 0xef}
		payload := base64.StdEncoding.EncodeToString(append(discriminator[:], body...))

		decoded, ok := decoder.Decode(payload)
		require.True(t, ok)

		raw, isRaw := decoded.(*RawEvent)
		require.True(t, isRaw)
		assert.Equal(t, discriminator, raw.Discriminator)
		assert.Equal(t, body, raw.Data)
	})

	t.Run("rejects short payloads", func(t *testing.T) {
		_, ok := decoder.Decode(base64.StdEncoding.EncodeToString([]byte{1, 2, 3}))
		assert.False(t, ok)
	})

	t.Run("rejects non-base64 payloads", func(t *testing.T) {
		_, ok := decoder.Decode("Instruction: Deposit")
		assert.False(t, ok)
	})
}

func TestRawDecoder_Named(t *testing.T) {
	named := NewRawDecoder().Named()

	discriminator := EventDiscriminator("SwapEvent")
	payload := base64.StdEncoding.EncodeToString(append(discriminator[:], 0x01, 0x02))

	decoded, ok := named.Decode(payload)
	require.True(t, ok)

	event, isNamed := decoded.(*NamedEvent)
	require.True(t, isNamed)
	assert.Equal(t, "raw:"+hex.EncodeToString(discriminator[:]), event.Name)
	assert.Equal(t, []byte{0x01, 0x02}, event.Data.(*RawEvent).Data)
}
