package models

// Actions accepted from realtime clients.
const (
	ActionSendMessage   = "send_message"
	ActionFetchHistory  = "fetch_history"
	ActionFetchState    = "fetch_state"
	ActionJoinQueue     = "join_queue"
	ActionLeaveQueue    = "leave_queue"
	ActionRequestMatch  = "request_match"
	ActionFetchMessages = "fetch_messages"
)

// Events pushed to realtime clients.
const (
	EventHistory  = "history"
	EventState    = "state"
	EventMessage  = "message"
	EventMessages = "messages"
	EventError    = "error"
	EventInfo     = "info"
)

// Inbound is one frame received from a client: {"action": ..., ...}.
type Inbound struct {
	Action      string `json:"action"`
	Content     string `json:"content,omitempty"`
	IsAnonymous bool   `json:"is_anonymous,omitempty"`
	Limit       int    `json:"limit,omitempty"`
	// Malformed is set by the transport when the frame was not valid JSON.
	Malformed bool `json:"-"`
}

// Event is one frame sent to a client. Only the fields relevant to the
// event type are set.
type Event struct {
	Event    string `json:"event"`
	Payload  any    `json:"payload,omitempty"`
	Message  any    `json:"message,omitempty"`
	Messages any    `json:"messages,omitempty"`
	Detail   string `json:"detail,omitempty"`
	Code     string `json:"code,omitempty"`
	Field    string `json:"field,omitempty"`
}
