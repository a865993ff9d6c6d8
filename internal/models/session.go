package models

import (
	"time"

	"github.com/google/uuid"
)

// QueueEntry marks an identity as waiting for a random chat partner.
type QueueEntry struct {
	// IdentityID is the waiting user. At most one entry per identity.
	IdentityID string `gorm:"primaryKey;type:varchar(64)" json:"identity_id"`
	// JoinedAt orders the queue; refreshed on every re-entry.
	JoinedAt time.Time `gorm:"not null;index" json:"joined_at"`
}

func (QueueEntry) TableName() string { return "random_chat_queue_entries" }

// Session is a one-to-one random chat between two identities.
// Sessions are never deleted; ending one only flips IsActive.
type Session struct {
	// ID is the unique identifier of the session (UUID).
	ID string `gorm:"primaryKey;type:varchar(36)" json:"id"`
	// ParticipantA is the identity that requested the match.
	ParticipantA string `gorm:"type:varchar(64);not null;index" json:"-"`
	// ParticipantB is the identity picked from the queue.
	ParticipantB string `gorm:"type:varchar(64);not null;index" json:"-"`
	// StartedAt is when the match was made.
	StartedAt time.Time `gorm:"not null;index" json:"started_at"`
	// EndedAt is set once, when the session leaves the active state.
	EndedAt *time.Time `json:"ended_at,omitempty"`
	// IsActive is true until the session is ended for any reason.
	IsActive bool `gorm:"not null;index" json:"is_active"`
}

func (Session) TableName() string { return "random_chat_sessions" }

// NewSession builds an active session between a and b.
func NewSession(a, b string, now time.Time) *Session {
	return &Session{
		ID:           uuid.NewString(),
		ParticipantA: a,
		ParticipantB: b,
		StartedAt:    now,
		IsActive:     true,
	}
}

func (s *Session) Includes(identityID string) bool {
	return s.ParticipantA == identityID || s.ParticipantB == identityID
}

// PartnerOf returns the other participant, or "" if identityID is not one.
func (s *Session) PartnerOf(identityID string) string {
	switch identityID {
	case s.ParticipantA:
		return s.ParticipantB
	case s.ParticipantB:
		return s.ParticipantA
	}
	return ""
}
