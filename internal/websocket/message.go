package websocket

import "encoding/json"

// Actions understood by the browser.
const (
	ActionTradeExecuted = "trade.executed"
	ActionPing          = "ping"
	ActionPong          = "pong"
	ActionError         = "error"
)

// Message defines the structure for websocket messages.
type Message struct {
	Action  string      `json:"action"`
	Payload interface{} `json:"payload"`
}

// NewErrorMessage creates a JSON-encoded error message.
func NewErrorMessage(errMsg string) []byte {
	msg, _ := json.Marshal(Message{
		Action:  ActionError,
		Payload: map[string]string{"error": errMsg},
	})
	return msg
}

// NewPongMessage answers a client ping.
func NewPongMessage() []byte {
	msg, _ := json.Marshal(Message{Action: ActionPong})
	return msg
}
