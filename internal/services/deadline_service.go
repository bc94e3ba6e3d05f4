package services

import (
	"context"
	"time"

	"github.com/senyabanana/freelance-service/internal/metrics"
	"github.com/senyabanana/freelance-service/internal/models"
	"github.com/senyabanana/freelance-service/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DeadlineService - пакетные задачи по срокам конкурсов.
type DeadlineService struct {
	Store    repository.Store
	Notifier *Notifier
	Metrics  *metrics.Metrics
	Logger   *zap.Logger
	now      Clock
}

func NewDeadlineService(store repository.Store, notifier *Notifier, m *metrics.Metrics, logger *zap.Logger) *DeadlineService {
	return &DeadlineService{Store: store, Notifier: notifier, Metrics: m, Logger: logger, now: utcNow}
}

// Sweep переводит в REVIEW открытые конкурсы с истёкшим сроком подачи.
// Повторный запуск ничего не меняет.
func (s *DeadlineService) Sweep(ctx context.Context) (int, error) {
	now := s.now()
	expired, err := s.Store.Competitions().ListExpiredOpen(ctx, now)
	if err != nil {
		return 0, err
	}

	moved := 0
	for _, candidate := range expired {
		changed, err := s.moveToReview(ctx, candidate.ID, now)
		if err != nil {
			return moved, err
		}
		if changed {
			moved++
			s.Metrics.SweepMoved.Inc()
			s.Metrics.CompetitionTransitions.WithLabelValues(string(models.ReviewCompetition)).Inc()
		}
	}
	if moved > 0 {
		s.Logger.Info("competitions moved to review", zap.Int("count", moved))
	}
	return moved, nil
}

func (s *DeadlineService) moveToReview(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	changed := false
	err := s.Store.InTx(ctx, func(tx repository.Store) error {
		competition, err := tx.Competitions().GetCompetitionForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if competition.Status != models.OpenCompetition || competition.SubmissionDeadline.After(now) {
			return nil
		}

		competition.Status = models.ReviewCompetition
		competition.UpdatedAt = now
		if err := tx.Competitions().UpdateCompetition(ctx, competition); err != nil {
			return err
		}
		changed = true

		proposals, err := tx.Proposals().ListCompetitionProposals(ctx, competition.ID)
		if err != nil {
			return err
		}
		for freelancerID := range activeProposers(proposals) {
			if _, err := s.Notifier.NotifyOnce(ctx, tx, competitionInReview(competition, freelancerID)); err != nil {
				return err
			}
		}
		return nil
	})
	return changed, err
}

// Remind напоминает о скором закрытии приёма тем, кто добавил конкурс в
// закладки и ещё не подал предложение.
func (s *DeadlineService) Remind(ctx context.Context, window time.Duration) (int, error) {
	now := s.now()
	closing, err := s.Store.Competitions().ListClosingSoon(ctx, now, now.Add(window))
	if err != nil {
		return 0, err
	}

	sent := 0
	for i := range closing {
		competition := &closing[i]
		err := s.Store.InTx(ctx, func(tx repository.Store) error {
			bookmarkers, err := tx.Competitions().ListBookmarkUserIDs(ctx, competition.ID)
			if err != nil {
				return err
			}
			proposals, err := tx.Proposals().ListCompetitionProposals(ctx, competition.ID)
			if err != nil {
				return err
			}
			submitted := make(map[uuid.UUID]bool, len(proposals))
			for _, p := range proposals {
				submitted[p.FreelancerID] = true
			}

			for _, userID := range bookmarkers {
				if submitted[userID] {
					continue
				}
				created, err := s.Notifier.NotifyOnce(ctx, tx, deadlineApproaching(competition, userID))
				if err != nil {
					return err
				}
				if created {
					sent++
					s.Metrics.RemindersSent.Inc()
				}
			}
			return nil
		})
		if err != nil {
			return sent, err
		}
	}
	if sent > 0 {
		s.Logger.Info("deadline reminders sent", zap.Int("count", sent))
	}
	return sent, nil
}
