package models

import "time"

// SessionMessage is a message sent inside a random chat session.
type SessionMessage struct {
	ID uint `gorm:"primaryKey" json:"id"`
	// SessionID references the session the message belongs to.
	SessionID string `gorm:"type:varchar(36);not null;index:idx_session_msg,priority:1" json:"session_id"`
	// SenderID is the identity that wrote the message.
	SenderID  string    `gorm:"type:varchar(64);not null" json:"sender_id"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `gorm:"not null;index:idx_session_msg,priority:2" json:"created_at"`
}

func (SessionMessage) TableName() string { return "random_chat_messages" }

// RoomMessage is a message posted to a Room. The stored row always keeps the
// real sender; anonymity is applied when the message is shown to a viewer.
type RoomMessage struct {
	ID     uint `gorm:"primaryKey" json:"id"`
	RoomID uint `gorm:"not null;index:idx_room_msg,priority:1" json:"room_id"`
	// SenderID is the identity that wrote the message.
	SenderID string `gorm:"type:varchar(64);not null" json:"sender_id"`
	// SenderName is the display name captured at write time.
	SenderName string `gorm:"size:150;not null" json:"sender_name"`
	// IsAnonymous hides SenderName from non-staff viewers.
	IsAnonymous bool      `gorm:"not null" json:"is_anonymous"`
	Content     string    `gorm:"type:text;not null" json:"content"`
	CreatedAt   time.Time `gorm:"not null;index:idx_room_msg,priority:2" json:"created_at"`
}

func (RoomMessage) TableName() string { return "chat_room_messages" }
