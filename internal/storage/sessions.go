package storage

import (
	"chatlounge/backend/internal/models"
	"context"
	"slices"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MatchOutcome is the result of one matchmaking attempt.
type MatchOutcome struct {
	// Matched is false when nobody else was waiting.
	Matched bool
	// Created is false when the requester had already been paired by a
	// concurrent match and the existing session is returned instead.
	Created   bool
	Session   *models.Session
	PartnerID string
}

// MatchFromQueue виконує весь підбір пари в одній транзакції: блокує всю чергу,
// обирає кандидата через pick, видаляє обидва записи, завершує попередні сесії
// обох учасників і створює нову.
func (s *Service) MatchFromQueue(ctx context.Context, identityID string, now time.Time, pick func(n int) int) (*MatchOutcome, error) {
	now = now.UTC()
	var outcome *MatchOutcome

	// Сесія, що існувала до початку запиту, не вважається конкурентним підбором.
	prior, err := activeSession(s.DB.WithContext(ctx), identityID)
	if err != nil {
		return nil, err
	}

	err = s.withRetry(ctx, func(tx *gorm.DB) error {
		outcome = &MatchOutcome{}

		var entries []models.QueueEntry
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Order("identity_id").
			Find(&entries).Error; err != nil {
			return err
		}

		queued := false
		candidates := make([]models.QueueEntry, 0, len(entries))
		for _, e := range entries {
			if e.IdentityID == identityID {
				queued = true
				continue
			}
			candidates = append(candidates, e)
		}

		if !queued {
			// Запис міг зникнути, бо конкурентний запит уже створив пару з нами.
			active, err := activeSession(tx, identityID)
			if err != nil {
				return err
			}
			if active != nil && startedDuring(active, prior, now) {
				outcome.Matched = true
				outcome.Session = active
				outcome.PartnerID = active.PartnerOf(identityID)
				return nil
			}
			if err := tx.Create(&models.QueueEntry{IdentityID: identityID, JoinedAt: now}).Error; err != nil {
				return err
			}
		}

		if len(candidates) == 0 {
			return nil
		}

		partner := candidates[pick(len(candidates))].IdentityID

		if err := tx.Where("identity_id IN ?", []string{identityID, partner}).
			Delete(&models.QueueEntry{}).Error; err != nil {
			return err
		}
		if _, err := endSessions(tx, now, identityID, partner); err != nil {
			return err
		}

		session := models.NewSession(identityID, partner, now)
		if err := tx.Create(session).Error; err != nil {
			return err
		}

		outcome.Matched = true
		outcome.Created = true
		outcome.Session = session
		outcome.PartnerID = partner
		return nil
	})
	if err != nil {
		return nil, err
	}
	return outcome, nil
}

// startedDuring повідомляє, чи сесія з'явилась уже після початку запиту.
func startedDuring(active, prior *models.Session, requestStart time.Time) bool {
	if prior == nil || prior.ID != active.ID {
		return true
	}
	return !active.StartedAt.Before(requestStart)
}

// ActiveSession повертає активну сесію користувача або nil.
func (s *Service) ActiveSession(ctx context.Context, identityID string) (*models.Session, error) {
	return activeSession(s.DB.WithContext(ctx), identityID)
}

func activeSession(db *gorm.DB, identityID string) (*models.Session, error) {
	var sessions []models.Session
	if err := db.Where("is_active = ?", true).
		Where("(participant_a = ? OR participant_b = ?)", identityID, identityID).
		Order("started_at DESC").
		Limit(1).
		Find(&sessions).Error; err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return nil, nil
	}
	return &sessions[0], nil
}

// EndSessions завершує всі активні сесії користувача.
func (s *Service) EndSessions(ctx context.Context, identityID string, now time.Time) (int64, error) {
	return endSessions(s.DB.WithContext(ctx), now.UTC(), identityID)
}

func endSessions(db *gorm.DB, now time.Time, identityIDs ...string) (int64, error) {
	res := db.Model(&models.Session{}).
		Where("is_active = ?", true).
		Where("(participant_a IN ? OR participant_b IN ?)", identityIDs, identityIDs).
		Updates(map[string]interface{}{
			"is_active": false,
			"ended_at":  now,
		})
	return res.RowsAffected, res.Error
}

func (s *Service) CountActiveSessions(ctx context.Context) (int64, error) {
	var n int64
	err := s.DB.WithContext(ctx).Model(&models.Session{}).
		Where("is_active = ?", true).
		Count(&n).Error
	return n, err
}

// ExpireIdleSessions завершує активні сесії, які почались до cutoff і не мають
// жодного повідомлення, та повертає завершені сесії.
func (s *Service) ExpireIdleSessions(ctx context.Context, cutoff, now time.Time) ([]models.Session, error) {
	now = now.UTC()
	var expired []models.Session
	err := s.withRetry(ctx, func(tx *gorm.DB) error {
		expired = nil
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("is_active = ? AND started_at < ?", true, cutoff.UTC()).
			Where("NOT EXISTS (SELECT 1 FROM random_chat_messages m WHERE m.session_id = random_chat_sessions.id)").
			Find(&expired).Error; err != nil {
			return err
		}
		if len(expired) == 0 {
			return nil
		}

		ids := make([]string, 0, len(expired))
		for i := range expired {
			ids = append(ids, expired[i].ID)
			expired[i].IsActive = false
			expired[i].EndedAt = &now
		}
		return tx.Model(&models.Session{}).
			Where("id IN ? AND is_active = ?", ids, true).
			Updates(map[string]interface{}{
				"is_active": false,
				"ended_at":  now,
			}).Error
	})
	if err != nil {
		return nil, err
	}
	return expired, nil
}

// ResetIdentity прибирає користувача з черги та завершує його сесії однією транзакцією.
func (s *Service) ResetIdentity(ctx context.Context, identityID string, now time.Time) error {
	return s.withRetry(ctx, func(tx *gorm.DB) error {
		if err := tx.Where("identity_id = ?", identityID).
			Delete(&models.QueueEntry{}).Error; err != nil {
			return err
		}
		_, err := endSessions(tx, now.UTC(), identityID)
		return err
	})
}

func (s *Service) CreateSessionMessage(ctx context.Context, msg *models.SessionMessage) error {
	msg.CreatedAt = msg.CreatedAt.UTC()
	if err := s.DB.WithContext(ctx).Create(msg).Error; err != nil {
		s.Log.WithError(err).WithField("session_id", msg.SessionID).Error("failed to save session message")
		return err
	}
	return nil
}

// RecentSessionMessages повертає останні limit повідомлень, від старіших до новіших.
func (s *Service) RecentSessionMessages(ctx context.Context, sessionID string, limit int) ([]models.SessionMessage, error) {
	var msgs []models.SessionMessage
	if err := s.DB.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&msgs).Error; err != nil {
		return nil, err
	}
	slices.Reverse(msgs)
	return msgs, nil
}
