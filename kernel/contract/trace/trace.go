package trace

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/alkanes/alkanescore/kernel/contract"
)

// RevertFuelUsed marks the fuel of a reverted call.
const RevertFuelUsed = math.MaxUint64

// ErrSealed is returned when appending to a persisted trace.
var ErrSealed = errors.New("trace is sealed")

// EventKind tags a trace event.
type EventKind int

const (
	EnterCall EventKind = iota
	EnterDelegatecall
	EnterStaticcall
	ReturnContext
	RevertContext
	CreateAlkane
)

var eventKindNames = []string{
	"enter_call", "enter_delegatecall", "enter_staticcall",
	"return_context", "revert_context", "create_alkane",
}

func (k EventKind) String() string {
	if int(k) < len(eventKindNames) {
		return eventKindNames[k]
	}
	return fmt.Sprintf("event_kind(%d)", int(k))
}

// MarshalText implements encoding.TextMarshaler.
func (k EventKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *EventKind) UnmarshalText(text []byte) error {
	for i, name := range eventKindNames {
		if name == string(text) {
			*k = EventKind(i)
			return nil
		}
	}
	return fmt.Errorf("unknown trace event %q", text)
}

// EnterKind maps a call kind to the event opening its frame.
func EnterKind(kind contract.CallKind) EventKind {
	switch kind {
	case contract.CallKindDelegate:
		return EnterDelegatecall
	case contract.CallKindStatic:
		return EnterStaticcall
	}
	return EnterCall
}

// Context is recorded when a frame is entered.
type Context struct {
	Inner  contract.CallFrame  `json:"inner"`
	Target contract.ContractId `json:"target"`
	Fuel   uint64              `json:"fuel"`
}

// Response is recorded when a frame terminates.
type Response struct {
	Alkanes  []contract.RuneTransfer `json:"alkanes"`
	Data     []byte                  `json:"data"`
	FuelUsed uint64                  `json:"fuel_used"`
}

// Event is one entry of a trace.
type Event struct {
	Kind     EventKind            `json:"kind"`
	Context  *Context             `json:"context,omitempty"`
	Response *Response            `json:"response,omitempty"`
	Created  *contract.ContractId `json:"created,omitempty"`
}

// Terminal reports whether e closes a frame.
func (e Event) Terminal() bool {
	return e.Kind == ReturnContext || e.Kind == RevertContext
}

// Trace is the append-only event log of one outpoint. It is shared by the
// orchestrator and the engine's host calls; appends are serialized.
type Trace struct {
	mu     sync.Mutex
	events []Event
	sealed bool
}

// New returns an empty trace.
func New() *Trace {
	return &Trace{}
}

// Clock appends e.
func (t *Trace) Clock(e Event) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sealed {
		return ErrSealed
	}
	t.events = append(t.events, e)
	return nil
}

// Events returns a copy of the log in append order.
func (t *Trace) Events() []Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Event(nil), t.events...)
}

// Len is the number of events.
func (t *Trace) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.events)
}

// Last returns the most recent event.
func (t *Trace) Last() (Event, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.events) == 0 {
		return Event{}, false
	}
	return t.events[len(t.events)-1], true
}

// Seal freezes the trace.
func (t *Trace) Seal() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sealed = true
}

// Sealed reports whether Seal was called.
func (t *Trace) Sealed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sealed
}

// MarshalJSON encodes the events.
func (t *Trace) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Events())
}

// UnmarshalJSON restores a sealed trace.
func (t *Trace) UnmarshalJSON(data []byte) error {
	var events []Event
	if err := json.Unmarshal(data, &events); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = events
	t.sealed = true
	return nil
}
