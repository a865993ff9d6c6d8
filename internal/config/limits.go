package config

import (
	"regexp"
	"time"
)

const (
	// Rooms
	RoomNameMaxLength   = 50
	RoomCapacityMin     = 2
	RoomCapacityMax     = 200
	RoomCapacityDefault = 20
	MaxOwnedRooms       = 4
	DefaultRoomName     = "Open Lounge"
	DefaultRoomCapacity = 200

	// History windows
	RoomHistoryDefault   = 50
	RoomHistoryMax       = 150
	RoomHistoryOnConnect = 80
	SessionWindowDefault = 40
	SessionWindowMax     = 80

	// Content
	MessageMaxLength = 500

	// Random chat
	DefaultIdleTimeout   = 10 * time.Minute
	DefaultAnonBlock     = 5 * time.Minute
	PartnerAliasPrefix   = "Anonymous#"
	AnonymousDisplayName = "Anonymous"
)

// PhoneNumberPattern matches mobile numbers written as 010-1234-5678.
var PhoneNumberPattern = regexp.MustCompile(`010-\d{4}-\d{4}`)
