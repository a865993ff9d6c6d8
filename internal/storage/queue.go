package storage

import (
	"chatlounge/backend/internal/models"
	"context"
	"time"

	"gorm.io/gorm/clause"
)

// EnterQueue додає користувача в чергу або оновлює joined_at, якщо він уже там.
func (s *Service) EnterQueue(ctx context.Context, identityID string, at time.Time) error {
	return s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "identity_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"joined_at"}),
	}).Create(&models.QueueEntry{IdentityID: identityID, JoinedAt: at.UTC()}).Error
}

// LeaveQueue видаляє запис користувача; відсутність запису не є помилкою.
func (s *Service) LeaveQueue(ctx context.Context, identityID string) error {
	return s.DB.WithContext(ctx).
		Where("identity_id = ?", identityID).
		Delete(&models.QueueEntry{}).Error
}

func (s *Service) QueueEntry(ctx context.Context, identityID string) (*models.QueueEntry, error) {
	var entries []models.QueueEntry
	if err := s.DB.WithContext(ctx).
		Where("identity_id = ?", identityID).
		Limit(1).
		Find(&entries).Error; err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}
	return &entries[0], nil
}

// QueuePosition повертає 1 + кількість записів, що стали в чергу раніше, або nil.
func (s *Service) QueuePosition(ctx context.Context, identityID string) (*int, error) {
	entry, err := s.QueueEntry(ctx, identityID)
	if err != nil || entry == nil {
		return nil, err
	}

	var earlier int64
	if err := s.DB.WithContext(ctx).Model(&models.QueueEntry{}).
		Where("joined_at < ?", entry.JoinedAt.UTC()).
		Count(&earlier).Error; err != nil {
		return nil, err
	}
	pos := int(earlier) + 1
	return &pos, nil
}

func (s *Service) QueueSize(ctx context.Context) (int64, error) {
	var n int64
	err := s.DB.WithContext(ctx).Model(&models.QueueEntry{}).Count(&n).Error
	return n, err
}
