package programLogParser

// EventDecoder turns one raw program-log payload into a structured event.
//
// Decode receives the payload with its log prefix already stripped. It
// reports false when the payload is not one of the decoder's events; that is
// the common case for plain debug prints and is never an error.
type EventDecoder interface {
	Decode(payload string) (interface{}, bool)
}

// EmitEventFunc receives each decoded event in log order. Returning a
// non-nil error aborts the walk and surfaces the error to the caller.
type EmitEventFunc func(event interface{}) error

// lineKind tags the single outcome applied for one log line.
type lineKind int

const (
	// lineKindNoop covers lines that carry no structural marker and no
	// decodable event.
	lineKindNoop lineKind = iota

	// lineKindEvent marks a program-owned line whose payload the decoder
	// recognized.
	lineKindEvent

	// lineKindEnterProgram marks a line that opened a new invocation frame.
	lineKindEnterProgram

	// lineKindExitInvocation marks a line that closed the innermost frame.
	lineKindExitInvocation
)

// lineResult is the outcome of classifying and applying a single log line.
// Exactly one kind applies per line.
type lineResult struct {
	kind lineKind

	// event is populated when kind is lineKindEvent.
	event interface{}

	// enteredProgram is populated when kind is lineKindEnterProgram. It holds
	// the target program id or the placeholder for foreign frames.
	enteredProgram string
}
