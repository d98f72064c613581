// Package eventlog defines the structured events a training session emits
// and stores them as JSON Lines.
package eventlog

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Type is the discriminant written as the "type" field of every event.
type Type string

const (
	TypeSessionStart Type = "sessionStart"
	TypeEmission     Type = "emission"
	TypeCorrect      Type = "correct"
	TypeIncorrect    Type = "incorrect"
	TypeTimeout      Type = "timeout"
	TypeSessionEnd   Type = "sessionEnd"
)

// Event is one of SessionStart, Emission, Correct, Incorrect, Timeout or
// SessionEnd.
type Event interface {
	Type() Type
	isEvent()
}

// Millis is a duration stored as whole milliseconds.
type Millis int64

func ToMillis(d time.Duration) Millis { return Millis(d.Milliseconds()) }

func (m Millis) Duration() time.Duration { return time.Duration(m) * time.Millisecond }

type SessionStart struct {
	Epoch         uint64 `json:"epoch"`
	Mode          string `json:"mode"`
	WPM           int    `json:"wpm"`
	FarnsworthWPM int    `json:"farnsworthWpm"`
	SpeedTier     string `json:"speedTier,omitempty"`
	Length        Millis `json:"lengthMs"`
	Alphabet      string `json:"alphabet"`
	At            Millis `json:"atMs"`
}

type Emission struct {
	ID   uuid.UUID `json:"id"`
	Mode string    `json:"mode"`
	Char string    `json:"char"`
	At   Millis    `json:"atMs"`
}

type Correct struct {
	ID      uuid.UUID `json:"id"`
	Char    string    `json:"char"`
	Latency Millis    `json:"latencyMs"`
	At      Millis    `json:"atMs"`
}

type Incorrect struct {
	ID      uuid.UUID `json:"id"`
	Char    string    `json:"char"`
	Pressed string    `json:"pressed"`
	Latency Millis    `json:"latencyMs"`
	At      Millis    `json:"atMs"`
}

type Timeout struct {
	ID   uuid.UUID `json:"id"`
	Char string    `json:"char"`
	At   Millis    `json:"atMs"`
}

type SessionEnd struct {
	Epoch     uint64 `json:"epoch"`
	Reason    string `json:"reason"`
	Emitted   int    `json:"emitted"`
	Correct   int    `json:"correct"`
	Incorrect int    `json:"incorrect"`
	Timeouts  int    `json:"timeouts"`
	At        Millis `json:"atMs"`
}

func (SessionStart) Type() Type { return TypeSessionStart }
func (Emission) Type() Type     { return TypeEmission }
func (Correct) Type() Type      { return TypeCorrect }
func (Incorrect) Type() Type    { return TypeIncorrect }
func (Timeout) Type() Type      { return TypeTimeout }
func (SessionEnd) Type() Type   { return TypeSessionEnd }

func (SessionStart) isEvent() {}
func (Emission) isEvent()     {}
func (Correct) isEvent()      {}
func (Incorrect) isEvent()    {}
func (Timeout) isEvent()      {}
func (SessionEnd) isEvent()   {}

func (e SessionStart) MarshalJSON() ([]byte, error) {
	type plain SessionStart
	b, err := json.Marshal(plain(e))
	return tagged(e.Type(), b, err)
}

func (e Emission) MarshalJSON() ([]byte, error) {
	type plain Emission
	b, err := json.Marshal(plain(e))
	return tagged(e.Type(), b, err)
}

func (e Correct) MarshalJSON() ([]byte, error) {
	type plain Correct
	b, err := json.Marshal(plain(e))
	return tagged(e.Type(), b, err)
}

func (e Incorrect) MarshalJSON() ([]byte, error) {
	type plain Incorrect
	b, err := json.Marshal(plain(e))
	return tagged(e.Type(), b, err)
}

func (e Timeout) MarshalJSON() ([]byte, error) {
	type plain Timeout
	b, err := json.Marshal(plain(e))
	return tagged(e.Type(), b, err)
}

func (e SessionEnd) MarshalJSON() ([]byte, error) {
	type plain SessionEnd
	b, err := json.Marshal(plain(e))
	return tagged(e.Type(), b, err)
}

// tagged prepends the "type" field to a marshalled JSON object.
func tagged(t Type, body []byte, err error) ([]byte, error) {
	if err != nil {
		return nil, err
	}
	head := fmt.Sprintf(`{"type":%q`, t)
	if len(body) <= 2 {
		return []byte(head + "}"), nil
	}
	return append([]byte(head+","), body[1:]...), nil
}

// Unmarshal decodes one event, dispatching on its "type" field.
func Unmarshal(data []byte) (Event, error) {
	var head struct {
		Type Type `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("failed to decode event: %w", err)
	}

	switch head.Type {
	case TypeSessionStart:
		return decode[SessionStart](data)
	case TypeEmission:
		return decode[Emission](data)
	case TypeCorrect:
		return decode[Correct](data)
	case TypeIncorrect:
		return decode[Incorrect](data)
	case TypeTimeout:
		return decode[Timeout](data)
	case TypeSessionEnd:
		return decode[SessionEnd](data)
	default:
		return nil, fmt.Errorf("unknown event type %q", head.Type)
	}
}

func decode[E Event](data []byte) (Event, error) {
	var e E
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("failed to decode %s event: %w", e.Type(), err)
	}
	return e, nil
}
