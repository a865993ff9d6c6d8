package chathub

import (
	"encoding/json"
	"strconv"
)

// Envelope kinds.
const (
	KindRoomMessage    = "room.message"
	KindSessionMessage = "session.message"
	KindStateDispatch  = "state.dispatch"
)

// Envelope is one group broadcast. It is what travels over the Redis relay,
// so Data is kept as raw JSON and decoded by the receiving actor.
type Envelope struct {
	Group string          `json:"group"`
	Kind  string          `json:"kind"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func NewEnvelope(group, kind string, data any) (Envelope, error) {
	env := Envelope{Group: group, Kind: kind}
	if data == nil {
		return env, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, err
	}
	env.Data = raw
	return env, nil
}

func RoomGroup(roomID uint) string {
	return "chatroom_" + strconv.FormatUint(uint64(roomID), 10)
}

func SessionGroup(sessionID string) string {
	return "random_chat_session_" + sessionID
}

func UserGroup(identityID string) string {
	return "random_chat_user_" + identityID
}
