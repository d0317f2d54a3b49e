package eventDecoder

import (
	"crypto/sha256"
	"encoding/base64"
	"reflect"

	"github.com/aldrin-exchange/anchor/pkg/programLogParser"
	"github.com/near/borsh-go"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// discriminatorLength is the number of leading payload bytes that identify
// which event a payload carries.
const discriminatorLength = 8

// Decoder decodes program events from their on-chain wire form: a base64
// payload whose first eight bytes select the event and whose remainder is the
// borsh-encoded body. Events are registered up front with the Go struct they
// deserialize into.
type Decoder struct {
	logger *zap.Logger
	events map[[discriminatorLength]byte]registeredEvent
}

type registeredEvent struct {
	name      string
	prototype reflect.Type
}

var _ programLogParser.EventDecoder = (*Decoder)(nil)

func NewDecoder(logger *zap.Logger) *Decoder {
	return &Decoder{
		logger: logger,
		events: make(map[[discriminatorLength]byte]registeredEvent),
	}
}

// EventDiscriminator derives the eight-byte tag a program stamps on each
// emitted event, a prefix of sha256 over the namespaced event name.
func EventDiscriminator(name string) [discriminatorLength]byte {
	sum := sha256.Sum256([]byte("event:" + name))
	var discriminator [discriminatorLength]byte
	copy(discriminator[:], sum[:discriminatorLength])
	return discriminator
}

// RegisterEvent maps an event name to the struct its body deserializes into.
// prototype may be a struct value or a pointer to one; only its type is kept.
func (d *Decoder) RegisterEvent(name string, prototype interface{}) error {
	prototypeType := reflect.TypeOf(prototype)
	if prototypeType == nil {
		return errors.Errorf("event %s registered with a nil prototype", name)
	}
	if prototypeType.Kind() == reflect.Ptr {
		prototypeType = prototypeType.Elem()
	}
	if prototypeType.Kind() != reflect.Struct {
		return errors.Errorf("event %s prototype must be a struct, got %s", name, prototypeType.Kind())
	}

	discriminator := EventDiscriminator(name)
	if existing, ok := d.events[discriminator]; ok {
		return errors.Errorf("event %s already registered for this discriminator", existing.name)
	}

	d.events[discriminator] = registeredEvent{
		name:      name,
		prototype: prototypeType,
	}
	return nil
}

// RegisterRawEvent maps an event name to its discriminator without a typed
// body. Decoded payloads come back as *RawEvent carrying the raw bytes, which
// lets config-driven consumers follow events they have no struct for.
func (d *Decoder) RegisterRawEvent(name string) error {
	if name == "" {
		return errors.New("raw event registration requires a name")
	}
	discriminator := EventDiscriminator(name)
	if existing, ok := d.events[discriminator]; ok {
		return errors.Errorf("event %s already registered for this discriminator", existing.name)
	}
	d.events[discriminator] = registeredEvent{name: name}
	return nil
}

// Decode implements programLogParser.EventDecoder. Payloads that are not
// valid base64, are too short to carry a discriminator, or carry an
// unregistered one are not events; they report false without logging since
// ordinary debug prints land here constantly.
func (d *Decoder) Decode(payload string) (interface{}, bool) {
	_, event, ok := d.DecodeWithName(payload)
	return event, ok
}

// DecodeWithName is Decode plus the registered name of the decoded event,
// for consumers that index or label events by name.
func (d *Decoder) DecodeWithName(payload string) (string, interface{}, bool) {
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil || len(raw) < discriminatorLength {
		return "", nil, false
	}

	var discriminator [discriminatorLength]byte
	copy(discriminator[:], raw[:discriminatorLength])

	registered, ok := d.events[discriminator]
	if !ok {
		return "", nil, false
	}

	if registered.prototype == nil {
		event := &RawEvent{Data: raw[discriminatorLength:]}
		copy(event.Discriminator[:], discriminator[:])
		return registered.name, event, true
	}

	event := reflect.New(registered.prototype).Interface()
	if err := borsh.Deserialize(event, raw[discriminatorLength:]); err != nil {
		// A matching discriminator with an undecodable body means the
		// registered struct is out of step with the program. Worth surfacing.
		d.logger.Sugar().Warnw("Failed to deserialize registered event",
			zap.String("eventName", registered.name),
			zap.Error(err),
		)
		return "", nil, false
	}
	return registered.name, event, true
}

// NamedEvent pairs a decoded event body with its registered name.
type NamedEvent struct {
	Name string
	Data interface{}
}

type namedDecoder struct {
	inner *Decoder
}

func (nd *namedDecoder) Decode(payload string) (interface{}, bool) {
	name, data, ok := nd.inner.DecodeWithName(payload)
	if !ok {
		return nil, false
	}
	return &NamedEvent{Name: name, Data: data}, true
}

// Named wraps the decoder so decoded events come back as *NamedEvent, for
// consumers that label events by name rather than by Go type.
func (d *Decoder) Named() programLogParser.EventDecoder {
	return &namedDecoder{inner: d}
}

// RegisteredEvents returns the names of all registered events.
func (d *Decoder) RegisteredEvents() []string {
	names := make([]string, 0, len(d.events))
	for _, registered := range d.events {
		names = append(names, registered.name)
	}
	return names
}
