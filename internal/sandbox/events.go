package sandbox

import (
	"encoding/json"
	"fmt"
)

// Outbound event types.
const (
	EventTone         = "tone"
	EventFrame        = "frame"
	EventLayout       = "layout"
	EventRecording    = "recording"
	EventNotice       = "notice"
	EventState        = "state"
	EventMelodyExport = "melody_export"
	EventClosed       = "session_closed"
)

// Event is a message produced by a session for its watchers. It encodes as
// a flat JSON object: {"type": ..., "session_id": ..., <fields>}.
type Event struct {
	SessionID string
	Type      string
	Fields    map[string]interface{}
}

func NewEvent(sessionID, typ string, fields map[string]interface{}) Event {
	return Event{SessionID: sessionID, Type: typ, Fields: fields}
}

// Notice builds a user-visible notice event.
func Notice(sessionID, level, message string) Event {
	return NewEvent(sessionID, EventNotice, map[string]interface{}{
		"level":   level,
		"message": message,
	})
}

func (e Event) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(e.Fields)+2)
	for k, v := range e.Fields {
		out[k] = v
	}
	out["type"] = e.Type
	out["session_id"] = e.SessionID
	return json.Marshal(out)
}

func (e *Event) UnmarshalJSON(data []byte) error {
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	typ, ok := raw["type"].(string)
	if !ok {
		return fmt.Errorf("event without type")
	}
	id, _ := raw["session_id"].(string)
	delete(raw, "type")
	delete(raw, "session_id")
	*e = Event{SessionID: id, Type: typ, Fields: raw}
	return nil
}
