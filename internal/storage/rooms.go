package storage

import (
	"chatlounge/backend/internal/models"
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func (s *Service) FindRoom(ctx context.Context, roomID uint) (*models.Room, error) {
	var room models.Room
	err := s.DB.WithContext(ctx).First(&room, roomID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &room, nil
}

// FindRoomByName шукає кімнату за назвою без урахування регістру.
func (s *Service) FindRoomByName(ctx context.Context, name string) (*models.Room, error) {
	var rooms []models.Room
	if err := s.DB.WithContext(ctx).
		Where("lower(name) = ?", strings.ToLower(name)).
		Limit(1).
		Find(&rooms).Error; err != nil {
		return nil, err
	}
	if len(rooms) == 0 {
		return nil, nil
	}
	return &rooms[0], nil
}

func (s *Service) CountOwnedRooms(ctx context.Context, ownerID string) (int64, error) {
	var n int64
	err := s.DB.WithContext(ctx).Model(&models.Room{}).
		Where("owner_id = ?", ownerID).
		Count(&n).Error
	return n, err
}

// CreateRoom зберігає кімнату і, якщо є власник, додає його учасником в тій самій транзакції.
// Конфлікт назви повертається як gorm.ErrDuplicatedKey.
func (s *Service) CreateRoom(ctx context.Context, room *models.Room) error {
	room.CreatedAt = room.CreatedAt.UTC()
	return s.withRetry(ctx, func(tx *gorm.DB) error {
		room.ID = 0
		if err := tx.Create(room).Error; err != nil {
			return err
		}
		if room.OwnerID == nil {
			return nil
		}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&models.Membership{
			RoomID:     room.ID,
			IdentityID: *room.OwnerID,
			JoinedAt:   room.CreatedAt,
		}).Error
	})
}

// EnsureRoom повертає кімнату з такою ж назвою або створює її.
func (s *Service) EnsureRoom(ctx context.Context, room *models.Room) (*models.Room, error) {
	existing, err := s.FindRoomByName(ctx, room.Name)
	if err != nil || existing != nil {
		return existing, err
	}
	err = s.CreateRoom(ctx, room)
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return s.FindRoomByName(ctx, room.Name)
	}
	if err != nil {
		return nil, err
	}
	return room, nil
}

// PublicRooms повертає всі публічні кімнати, впорядковані за назвою.
func (s *Service) PublicRooms(ctx context.Context) ([]models.Room, error) {
	var rooms []models.Room
	err := s.DB.WithContext(ctx).
		Where("is_private = ?", false).
		Order("name").
		Find(&rooms).Error
	return rooms, err
}

func (s *Service) MemberCounts(ctx context.Context, roomIDs []uint) (map[uint]int64, error) {
	counts := make(map[uint]int64, len(roomIDs))
	if len(roomIDs) == 0 {
		return counts, nil
	}

	var rows []struct {
		RoomID uint
		Total  int64
	}
	if err := s.DB.WithContext(ctx).Model(&models.Membership{}).
		Select("room_id, COUNT(*) AS total").
		Where("room_id IN ?", roomIDs).
		Group("room_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, r := range rows {
		counts[r.RoomID] = r.Total
	}
	return counts, nil
}

func (s *Service) MemberRoomIDs(ctx context.Context, identityID string, roomIDs []uint) (map[uint]bool, error) {
	member := make(map[uint]bool, len(roomIDs))
	if len(roomIDs) == 0 {
		return member, nil
	}

	var ids []uint
	if err := s.DB.WithContext(ctx).Model(&models.Membership{}).
		Where("identity_id = ? AND room_id IN ?", identityID, roomIDs).
		Pluck("room_id", &ids).Error; err != nil {
		return nil, err
	}
	for _, id := range ids {
		member[id] = true
	}
	return member, nil
}

// AddMember додає учасника; created=false, якщо він уже був у кімнаті.
func (s *Service) AddMember(ctx context.Context, roomID uint, identityID string, at time.Time) (bool, error) {
	res := s.DB.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.Membership{RoomID: roomID, IdentityID: identityID, JoinedAt: at.UTC()})
	return res.RowsAffected > 0, res.Error
}

func (s *Service) RemoveMember(ctx context.Context, roomID uint, identityID string) error {
	return s.DB.WithContext(ctx).
		Where("room_id = ? AND identity_id = ?", roomID, identityID).
		Delete(&models.Membership{}).Error
}

func (s *Service) IsMember(ctx context.Context, roomID uint, identityID string) (bool, error) {
	var n int64
	err := s.DB.WithContext(ctx).Model(&models.Membership{}).
		Where("room_id = ? AND identity_id = ?", roomID, identityID).
		Count(&n).Error
	return n > 0, err
}

func (s *Service) CountMembers(ctx context.Context, roomID uint) (int64, error) {
	var n int64
	err := s.DB.WithContext(ctx).Model(&models.Membership{}).
		Where("room_id = ?", roomID).
		Count(&n).Error
	return n, err
}

func (s *Service) CreateRoomMessage(ctx context.Context, msg *models.RoomMessage) error {
	msg.CreatedAt = msg.CreatedAt.UTC()
	if err := s.DB.WithContext(ctx).Create(msg).Error; err != nil {
		s.Log.WithError(err).WithField("room_id", msg.RoomID).Error("failed to save room message")
		return err
	}
	return nil
}

// RecentRoomMessages повертає останні limit повідомлень кімнати, від старіших до новіших.
func (s *Service) RecentRoomMessages(ctx context.Context, roomID uint, limit int) ([]models.RoomMessage, error) {
	var msgs []models.RoomMessage
	if err := s.DB.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&msgs).Error; err != nil {
		return nil, err
	}
	slices.Reverse(msgs)
	return msgs, nil
}
