package randomchat

import (
	"chatlounge/backend/internal/config"
	"chatlounge/backend/internal/models"
	"fmt"
	"hash/fnv"
	"time"
)

// State is what a participant sees of random chat.
type State struct {
	InQueue        bool          `json:"in_queue"`
	QueuePosition  *int          `json:"queue_position"`
	QueueSize      int64         `json:"queue_size"`
	ActiveSessions int64         `json:"active_sessions"`
	Session        *SessionView  `json:"session"`
	Messages       []MessageView `json:"messages"`
}

type SessionView struct {
	ID           string    `json:"id"`
	StartedAt    time.Time `json:"started_at"`
	PartnerAlias string    `json:"partner_alias"`
}

// MessageView is a session message as seen by one participant.
type MessageView struct {
	ID        uint      `json:"id"`
	SessionID string    `json:"session_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	FromSelf  bool      `json:"from_self"`
}

// PartnerAlias hides the partner behind a stable four-digit pseudonym derived
// from a hash of the identity id, so platform ids never reach the other side.
func PartnerAlias(partnerID string) string {
	h := fnv.New32a()
	h.Write([]byte(config.PartnerAliasPrefix))
	h.Write([]byte(partnerID))
	return fmt.Sprintf("%s%04d", config.PartnerAliasPrefix, h.Sum32()%10000)
}

func ProjectMessage(m models.SessionMessage, viewerID string) MessageView {
	return MessageView{
		ID:        m.ID,
		SessionID: m.SessionID,
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
		FromSelf:  m.SenderID == viewerID,
	}
}

func ProjectMessages(msgs []models.SessionMessage, viewerID string) []MessageView {
	out := make([]MessageView, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, ProjectMessage(m, viewerID))
	}
	return out
}

func projectSession(s *models.Session, viewerID string) *SessionView {
	if s == nil {
		return nil
	}
	return &SessionView{
		ID:           s.ID,
		StartedAt:    s.StartedAt,
		PartnerAlias: PartnerAlias(s.PartnerOf(viewerID)),
	}
}

// ClampWindow applies the default and the cap to a requested message count.
func ClampWindow(limit int) int {
	switch {
	case limit <= 0:
		return config.SessionWindowDefault
	case limit > config.SessionWindowMax:
		return config.SessionWindowMax
	}
	return limit
}
