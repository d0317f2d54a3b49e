package types

import (
	"fmt"
	"time"
)

// EventRecord is one decoded program event together with where it was
// observed on chain. Data holds the decoded struct the event deserialized
// into and is opaque to everything but the consumer that registered it.
type EventRecord struct {
	Name      string
	Data      interface{}
	ProgramID string
	Slot      uint64
	Signature string
	BlockTime int64
	// LogIndex orders events that share a transaction: it is the position of
	// the event among the transaction's decoded events, starting at zero.
	LogIndex int
}

func NewEventRecord(name string, data interface{}, programID string, signature string, slot uint64) (*EventRecord, error) {
	if name == "" {
		return nil, fmt.Errorf("event record requires a name")
	}
	if data == nil {
		return nil, fmt.Errorf("event record %s requires decoded data", name)
	}
	if programID == "" {
		return nil, fmt.Errorf("event record %s requires a program id", name)
	}
	return &EventRecord{
		Name:      name,
		Data:      data,
		ProgramID: programID,
		Signature: signature,
		Slot:      slot,
	}, nil
}

// ObservedAt reports the block time as a time.Time, or the zero value when
// the transaction carried no block time.
func (er *EventRecord) ObservedAt() time.Time {
	if er.BlockTime == 0 {
		return time.Time{}
	}
	return time.Unix(er.BlockTime, 0).UTC()
}

func (er *EventRecord) String() string {
	return fmt.Sprintf("%s@%s[%d]", er.Name, er.Signature, er.LogIndex)
}
