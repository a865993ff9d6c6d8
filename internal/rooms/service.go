// Package rooms implements persistent multi-member chat rooms.
package rooms

import (
	"chatlounge/backend/internal/apperr"
	"chatlounge/backend/internal/config"
	"chatlounge/backend/internal/content"
	"chatlounge/backend/internal/identity"
	"chatlounge/backend/internal/metrics"
	"chatlounge/backend/internal/models"
	"chatlounge/backend/internal/storage"
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type Service struct {
	Store storage.RoomStore
	Now   func() time.Time
	log   *logrus.Entry
}

func NewService(store storage.RoomStore, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{
		Store: store,
		Now:   now,
		log:   logrus.WithField("component", "rooms"),
	}
}

// CreateRoomInput is the owner's request. A nil Capacity means the default.
type CreateRoomInput struct {
	Name      string `json:"name"`
	Capacity  *int   `json:"capacity"`
	IsPrivate bool   `json:"is_private"`
	Password  string `json:"password"`
}

func (s *Service) CreateRoom(ctx context.Context, owner identity.Identity, in CreateRoomInput) (*RoomView, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" || utf8.RuneCountInString(name) > config.RoomNameMaxLength {
		return nil, apperr.Field(apperr.CodeInvalidRoomName, "name")
	}

	capacity := config.RoomCapacityDefault
	if in.Capacity != nil {
		capacity = *in.Capacity
	}
	if capacity < config.RoomCapacityMin || capacity > config.RoomCapacityMax {
		return nil, apperr.Field(apperr.CodeCapacityOutOfRange, "capacity")
	}

	if in.IsPrivate && in.Password == "" {
		return nil, apperr.Field(apperr.CodeMissingPassword, "password")
	}

	owned, err := s.Store.CountOwnedRooms(ctx, owner.ID)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeInternal)
	}
	if owned >= config.MaxOwnedRooms {
		return nil, apperr.New(apperr.CodeOwnerQuotaExceeded)
	}

	existing, err := s.Store.FindRoomByName(ctx, name)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeInternal)
	}
	if existing != nil {
		return nil, apperr.Field(apperr.CodeDuplicateName, "name")
	}

	ownerID := owner.ID
	room := &models.Room{
		Name:      name,
		OwnerID:   &ownerID,
		Capacity:  capacity,
		IsPrivate: in.IsPrivate,
		CreatedAt: s.Now(),
	}
	if in.IsPrivate {
		if err := room.SetPassword(in.Password); err != nil {
			return nil, apperr.Wrap(err, apperr.CodeInternal)
		}
	}

	if err := s.Store.CreateRoom(ctx, room); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.Field(apperr.CodeDuplicateName, "name")
		}
		return nil, apperr.Wrap(err, apperr.CodeInternal)
	}

	s.log.WithFields(logrus.Fields{"room_id": room.ID, "user_id": owner.ID}).Info("room created")
	return &RoomView{
		ID:          room.ID,
		Name:        room.Name,
		Capacity:    room.Capacity,
		IsPrivate:   room.IsPrivate,
		MemberCount: 1,
		IsMember:    true,
		IsOwner:     true,
		CreatedAt:   room.CreatedAt,
	}, nil
}

// JoinRoom adds who to the named room. Joining a room one already belongs to
// succeeds without changes.
func (s *Service) JoinRoom(ctx context.Context, who identity.Identity, name, password string) (*RoomView, error) {
	room, err := s.Store.FindRoomByName(ctx, strings.TrimSpace(name))
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeInternal)
	}
	if room == nil {
		return nil, apperr.New(apperr.CodeRoomNotFound)
	}

	member, err := s.Store.IsMember(ctx, room.ID, who.ID)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeInternal)
	}

	if !member {
		if room.IsPrivate {
			if password == "" {
				return nil, apperr.Field(apperr.CodePasswordRequired, "password")
			}
			if !room.CheckPassword(password) {
				return nil, apperr.Field(apperr.CodePasswordIncorrect, "password")
			}
		}

		count, err := s.Store.CountMembers(ctx, room.ID)
		if err != nil {
			return nil, apperr.Wrap(err, apperr.CodeInternal)
		}
		if count >= int64(room.Capacity) {
			return nil, apperr.New(apperr.CodeRoomFull)
		}

		if _, err := s.Store.AddMember(ctx, room.ID, who.ID, s.Now()); err != nil {
			return nil, apperr.Wrap(err, apperr.CodeInternal)
		}
	}

	count, err := s.Store.CountMembers(ctx, room.ID)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeInternal)
	}
	view := newRoomView(*room, count, true, who.ID)
	return &view, nil
}

// LeaveRoom removes who from the room if they are a member.
func (s *Service) LeaveRoom(ctx context.Context, who identity.Identity, roomID uint) error {
	if _, err := s.Room(ctx, roomID); err != nil {
		return err
	}
	return apperr.Wrap(s.Store.RemoveMember(ctx, roomID, who.ID), apperr.CodeInternal)
}

// ListPublicRooms returns public rooms ordered by name. viewer may be nil.
// When no public room exists yet the default lounge is created first.
func (s *Service) ListPublicRooms(ctx context.Context, viewer *identity.Identity) ([]RoomView, error) {
	rooms, err := s.Store.PublicRooms(ctx)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeInternal)
	}
	if len(rooms) == 0 {
		lounge, err := s.EnsureDefaultRoom(ctx)
		if err != nil {
			return nil, err
		}
		if !lounge.IsPrivate {
			rooms = append(rooms, *lounge)
		}
	}

	ids := make([]uint, 0, len(rooms))
	for _, r := range rooms {
		ids = append(ids, r.ID)
	}
	counts, err := s.Store.MemberCounts(ctx, ids)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeInternal)
	}

	member := map[uint]bool{}
	viewerID := ""
	if viewer != nil {
		viewerID = viewer.ID
		if member, err = s.Store.MemberRoomIDs(ctx, viewer.ID, ids); err != nil {
			return nil, apperr.Wrap(err, apperr.CodeInternal)
		}
	}

	views := make([]RoomView, 0, len(rooms))
	for _, r := range rooms {
		views = append(views, newRoomView(r, counts[r.ID], member[r.ID], viewerID))
	}
	return views, nil
}

func (s *Service) Room(ctx context.Context, roomID uint) (*models.Room, error) {
	room, err := s.Store.FindRoom(ctx, roomID)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeInternal)
	}
	if room == nil {
		return nil, apperr.New(apperr.CodeRoomNotFound)
	}
	return room, nil
}

func (s *Service) IsMember(ctx context.Context, roomID uint, identityID string) (bool, error) {
	ok, err := s.Store.IsMember(ctx, roomID, identityID)
	return ok, apperr.Wrap(err, apperr.CodeInternal)
}

// PostMessage stores a message from a member. Staff never post anonymously.
func (s *Service) PostMessage(ctx context.Context, who identity.Identity, roomID uint, raw string, anonymous bool) (*models.RoomMessage, error) {
	text, err := content.Validate(raw)
	if err != nil {
		return nil, err
	}
	if err := s.requireMember(ctx, roomID, who.ID); err != nil {
		return nil, err
	}

	msg := &models.RoomMessage{
		RoomID:      roomID,
		SenderID:    who.ID,
		SenderName:  who.DisplayName,
		IsAnonymous: anonymous && !who.IsStaff,
		Content:     text,
		CreatedAt:   s.Now(),
	}
	if err := s.Store.CreateRoomMessage(ctx, msg); err != nil {
		return nil, apperr.Wrap(err, apperr.CodeInternal)
	}
	metrics.MessagesTotal.WithLabelValues(metrics.SurfaceRoom).Inc()
	return msg, nil
}

// FetchHistory returns up to limit recent messages, oldest first, projected
// for who.
func (s *Service) FetchHistory(ctx context.Context, who identity.Identity, roomID uint, limit int) ([]MessageView, error) {
	if err := s.requireMember(ctx, roomID, who.ID); err != nil {
		return nil, err
	}
	return s.history(ctx, who, roomID, ClampHistory(limit))
}

// ConnectHistory is the window pushed to a freshly connected member.
func (s *Service) ConnectHistory(ctx context.Context, who identity.Identity, roomID uint) ([]MessageView, error) {
	return s.history(ctx, who, roomID, config.RoomHistoryOnConnect)
}

func (s *Service) history(ctx context.Context, who identity.Identity, roomID uint, limit int) ([]MessageView, error) {
	msgs, err := s.Store.RecentRoomMessages(ctx, roomID, limit)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeInternal)
	}
	views := make([]MessageView, 0, len(msgs))
	for _, m := range msgs {
		views = append(views, ProjectMessage(m, who))
	}
	return views, nil
}

// EnsureDefaultRoom creates the public lounge every deployment starts with.
func (s *Service) EnsureDefaultRoom(ctx context.Context) (*models.Room, error) {
	room, err := s.Store.EnsureRoom(ctx, &models.Room{
		Name:      config.DefaultRoomName,
		Capacity:  config.DefaultRoomCapacity,
		CreatedAt: s.Now(),
	})
	return room, apperr.Wrap(err, apperr.CodeInternal)
}

func (s *Service) requireMember(ctx context.Context, roomID uint, identityID string) error {
	if _, err := s.Room(ctx, roomID); err != nil {
		return err
	}
	member, err := s.IsMember(ctx, roomID, identityID)
	if err != nil {
		return err
	}
	if !member {
		return apperr.New(apperr.CodeNotMember)
	}
	return nil
}

func ClampHistory(limit int) int {
	switch {
	case limit <= 0:
		return config.RoomHistoryDefault
	case limit > config.RoomHistoryMax:
		return config.RoomHistoryMax
	}
	return limit
}
