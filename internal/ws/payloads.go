package ws

import "encoding/json"

// Frame is every websocket message in both directions.
type Frame struct {
	Type    string          `json:"type"`
	Channel string          `json:"channel,omitempty"`
	Event   string          `json:"event,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

// answerIdentity is the part of an answer broadcast the relay checks.
type answerIdentity struct {
	PlayerID string `json:"playerId"`
}

func errorFrame(msg string) Frame {
	b, _ := json.Marshal(ErrorPayload{Message: msg})
	return Frame{Type: MsgError, Payload: b}
}
