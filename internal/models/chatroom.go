package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Room is a named multi-user chat room.
type Room struct {
	ID uint `gorm:"primaryKey" json:"id"`
	// Name is unique ignoring case (see storage.Migrate).
	Name string `gorm:"size:50;not null" json:"name"`
	// OwnerID is nil for system rooms such as the default lounge.
	OwnerID   *string `gorm:"type:varchar(64);index" json:"-"`
	Capacity  int     `gorm:"not null" json:"capacity"`
	IsPrivate bool    `gorm:"not null;index" json:"is_private"`
	// PasswordHash is a bcrypt hash, empty for public rooms.
	PasswordHash string    `gorm:"size:128" json:"-"`
	CreatedAt    time.Time `gorm:"not null" json:"created_at"`
}

func (Room) TableName() string { return "chat_rooms" }

func (r *Room) SetPassword(raw string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	r.PasswordHash = string(hash)
	return nil
}

func (r *Room) CheckPassword(raw string) bool {
	if r.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(r.PasswordHash), []byte(raw)) == nil
}

func (r *Room) OwnedBy(identityID string) bool {
	return r.OwnerID != nil && *r.OwnerID == identityID
}

// Membership links an identity to a room; the pair is unique.
type Membership struct {
	RoomID     uint      `gorm:"primaryKey;autoIncrement:false" json:"room_id"`
	IdentityID string    `gorm:"primaryKey;type:varchar(64)" json:"identity_id"`
	JoinedAt   time.Time `gorm:"not null" json:"joined_at"`
}

func (Membership) TableName() string { return "chat_room_memberships" }
