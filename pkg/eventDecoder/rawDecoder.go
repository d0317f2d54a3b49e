package eventDecoder

import (
	"encoding/base64"
	"encoding/hex"

	"github.com/aldrin-exchange/anchor/pkg/programLogParser"
)

// RawEvent is an undecoded program event: the discriminator that identifies
// it and the borsh-encoded body that followed.
type RawEvent struct {
	Discriminator [discriminatorLength]byte
	Data          []byte
}

// RawDecoder accepts every well-formed event payload without interpreting the
// body. It serves consumers that archive or forward events without a schema.
type RawDecoder struct{}

var _ programLogParser.EventDecoder = (*RawDecoder)(nil)

func NewRawDecoder() *RawDecoder {
	return &RawDecoder{}
}

func (rd *RawDecoder) Decode(payload string) (interface{}, bool) {
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil || len(raw) < discriminatorLength {
		return nil, false
	}

	event := &RawEvent{
		Data: raw[discriminatorLength:],
	}
	copy(event.Discriminator[:], raw[:discriminatorLength])
	return event, true
}

type namedRawDecoder struct {
	inner *RawDecoder
}

func (nd *namedRawDecoder) Decode(payload string) (interface{}, bool) {
	raw, ok := nd.inner.Decode(payload)
	if !ok {
		return nil, false
	}
	event := raw.(*RawEvent)
	return &NamedEvent{
		Name: "raw:" + hex.EncodeToString(event.Discriminator[:]),
		Data: event,
	}, true
}

// Named wraps the decoder so accepted payloads come back as *NamedEvent,
// labeled by discriminator hex since no schema knows their real names.
func (rd *RawDecoder) Named() programLogParser.EventDecoder {
	return &namedRawDecoder{inner: rd}
}
