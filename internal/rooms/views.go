package rooms

import (
	"chatlounge/backend/internal/config"
	"chatlounge/backend/internal/identity"
	"chatlounge/backend/internal/models"
	"time"
)

type RoomView struct {
	ID          uint      `json:"id"`
	Name        string    `json:"name"`
	Capacity    int       `json:"capacity"`
	IsPrivate   bool      `json:"is_private"`
	MemberCount int64     `json:"member_count"`
	IsMember    bool      `json:"is_member"`
	IsOwner     bool      `json:"is_owner"`
	CreatedAt   time.Time `json:"created_at"`
}

func newRoomView(r models.Room, members int64, isMember bool, viewerID string) RoomView {
	return RoomView{
		ID:          r.ID,
		Name:        r.Name,
		Capacity:    r.Capacity,
		IsPrivate:   r.IsPrivate,
		MemberCount: members,
		IsMember:    isMember,
		IsOwner:     viewerID != "" && r.OwnedBy(viewerID),
		CreatedAt:   r.CreatedAt,
	}
}

// MessageView is a room message as one viewer sees it.
type MessageView struct {
	ID          uint      `json:"id"`
	RoomID      uint      `json:"room_id"`
	SenderName  string    `json:"sender_name"`
	IsAnonymous bool      `json:"is_anonymous"`
	FromSelf    bool      `json:"from_self"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"created_at"`
}

// ProjectMessage hides the sender of anonymous messages from everyone but
// staff. The stored message is never changed.
func ProjectMessage(m models.RoomMessage, viewer identity.Identity) MessageView {
	name := m.SenderName
	if m.IsAnonymous && !viewer.IsStaff {
		name = config.AnonymousDisplayName
	}
	return MessageView{
		ID:          m.ID,
		RoomID:      m.RoomID,
		SenderName:  name,
		IsAnonymous: m.IsAnonymous,
		FromSelf:    m.SenderID == viewer.ID,
		Content:     m.Content,
		CreatedAt:   m.CreatedAt,
	}
}
