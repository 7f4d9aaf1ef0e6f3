package realtime

import "encoding/json"

// Socket event names.
const (
	EventJoin           = "join"
	EventJoined         = "joined"
	EventSendMessage    = "send_message"
	EventReceiveMessage = "receive_message"
	EventMessageSent    = "message_sent"
	EventError          = "error"
)

// Envelope is the JSON frame exchanged in both directions:
// {"event": "...", "data": ...}.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type outgoing struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// ErrorData is the payload of an error frame.
type ErrorData struct {
	Message string `json:"message"`
	Ref     string `json:"ref,omitempty"` // client-supplied id of the failed frame
}

func encode(event string, data any) ([]byte, error) {
	return json.Marshal(outgoing{Event: event, Data: data})
}
