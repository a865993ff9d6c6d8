package storage

import (
	"chatlounge/backend/internal/models"
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// QueueStore зберігає чергу очікування випадкового чату.
type QueueStore interface {
	EnterQueue(ctx context.Context, identityID string, at time.Time) error
	LeaveQueue(ctx context.Context, identityID string) error
	QueueEntry(ctx context.Context, identityID string) (*models.QueueEntry, error)
	QueuePosition(ctx context.Context, identityID string) (*int, error)
	QueueSize(ctx context.Context) (int64, error)
}

// SessionStore зберігає сесії випадкового чату та їхні повідомлення.
type SessionStore interface {
	MatchFromQueue(ctx context.Context, identityID string, now time.Time, pick func(n int) int) (*MatchOutcome, error)
	ActiveSession(ctx context.Context, identityID string) (*models.Session, error)
	EndSessions(ctx context.Context, identityID string, now time.Time) (int64, error)
	CountActiveSessions(ctx context.Context) (int64, error)
	ExpireIdleSessions(ctx context.Context, cutoff, now time.Time) ([]models.Session, error)
	ResetIdentity(ctx context.Context, identityID string, now time.Time) error
	CreateSessionMessage(ctx context.Context, msg *models.SessionMessage) error
	RecentSessionMessages(ctx context.Context, sessionID string, limit int) ([]models.SessionMessage, error)
}

type RandomChatStore interface {
	QueueStore
	SessionStore
}

// RoomStore зберігає кімнати, учасників та історію повідомлень.
type RoomStore interface {
	FindRoom(ctx context.Context, roomID uint) (*models.Room, error)
	FindRoomByName(ctx context.Context, name string) (*models.Room, error)
	CountOwnedRooms(ctx context.Context, ownerID string) (int64, error)
	CreateRoom(ctx context.Context, room *models.Room) error
	EnsureRoom(ctx context.Context, room *models.Room) (*models.Room, error)
	PublicRooms(ctx context.Context) ([]models.Room, error)
	MemberCounts(ctx context.Context, roomIDs []uint) (map[uint]int64, error)
	MemberRoomIDs(ctx context.Context, identityID string, roomIDs []uint) (map[uint]bool, error)
	AddMember(ctx context.Context, roomID uint, identityID string, at time.Time) (bool, error)
	RemoveMember(ctx context.Context, roomID uint, identityID string) error
	IsMember(ctx context.Context, roomID uint, identityID string) (bool, error)
	CountMembers(ctx context.Context, roomID uint) (int64, error)
	CreateRoomMessage(ctx context.Context, msg *models.RoomMessage) error
	RecentRoomMessages(ctx context.Context, roomID uint, limit int) ([]models.RoomMessage, error)
}

type Storage interface {
	RandomChatStore
	RoomStore
}

type Service struct {
	DB  *gorm.DB
	Log *logrus.Entry
}

// NewStorageService Constructor
func NewStorageService(db *gorm.DB) *Service {
	return &Service{
		DB:  db,
		Log: logrus.WithField("component", "storage"),
	}
}

// Migrate створює таблиці та індекси, які AutoMigrate не вміє описати.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.QueueEntry{},
		&models.Session{},
		&models.SessionMessage{},
		&models.Room{},
		&models.Membership{},
		&models.RoomMessage{},
	); err != nil {
		return err
	}
	return db.Exec("CREATE UNIQUE INDEX IF NOT EXISTS idx_chat_rooms_name_lower ON chat_rooms (lower(name))").Error
}

// withRetry виконує fn в транзакції і повторює її один раз при тимчасовій помилці.
func (s *Service) withRetry(ctx context.Context, fn func(tx *gorm.DB) error) error {
	err := s.DB.WithContext(ctx).Transaction(fn)
	if err != nil && isTransient(err) {
		s.Log.WithError(err).Warn("retrying transaction after transient failure")
		err = s.DB.WithContext(ctx).Transaction(fn)
	}
	return err
}

// isTransient reports serialization failures, deadlocks, lock timeouts,
// racing inserts and SQLite busy errors.
func isTransient(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01", "55P03", "23505":
			return true
		}
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY")
}
