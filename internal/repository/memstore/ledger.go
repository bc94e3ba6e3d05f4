package memstore

import (
	"context"
	"sort"
	"time"

	"github.com/senyabanana/freelance-service/internal/models"
	"github.com/senyabanana/freelance-service/internal/repository"

	"github.com/google/uuid"
)

type paymentRepo struct {
	db *shared
}

func (r *paymentRepo) CreatePayment(_ context.Context, p *models.PaymentRecord) error {
	st := r.db.lock()
	defer r.db.unlock()

	for _, existing := range st.payments {
		if existing.CompetitionID == p.CompetitionID {
			return repository.ErrConflict
		}
		if p.TransactionReference != nil && existing.TransactionReference != nil &&
			*existing.TransactionReference == *p.TransactionReference {
			return repository.ErrConflict
		}
	}
	st.payments[p.ID] = *p
	return nil
}

func (r *paymentRepo) GetPayment(_ context.Context, id uuid.UUID) (*models.PaymentRecord, error) {
	st := r.db.lock()
	defer r.db.unlock()

	p, ok := st.payments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (r *paymentRepo) GetPaymentByCompetition(_ context.Context, competitionID uuid.UUID) (*models.PaymentRecord, error) {
	st := r.db.lock()
	defer r.db.unlock()

	for _, p := range st.payments {
		if p.CompetitionID == competitionID {
			return &p, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *paymentRepo) UpdatePayment(_ context.Context, p *models.PaymentRecord) error {
	st := r.db.lock()
	defer r.db.unlock()

	if _, ok := st.payments[p.ID]; !ok {
		return repository.ErrNotFound
	}
	if p.TransactionReference != nil {
		for id, existing := range st.payments {
			if id != p.ID && existing.TransactionReference != nil &&
				*existing.TransactionReference == *p.TransactionReference {
				return repository.ErrConflict
			}
		}
	}
	st.payments[p.ID] = *p
	return nil
}

func (r *paymentRepo) ListPayments(_ context.Context, f models.PaymentFilter) ([]models.PaymentRecord, error) {
	st := r.db.lock()
	defer r.db.unlock()

	var out []models.PaymentRecord
	for _, p := range st.payments {
		if f.ClientID != nil && p.ClientID != *f.ClientID {
			continue
		}
		if f.FreelancerID != nil && (p.FreelancerID == nil || *p.FreelancerID != *f.FreelancerID) {
			continue
		}
		if f.Status != nil && p.Status != *f.Status {
			continue
		}
		if f.From != nil && p.CreatedAt.Before(*f.From) {
			continue
		}
		if f.To != nil && p.CreatedAt.After(*f.To) {
			continue
		}
		out = append(out, p)
	}
	sortNewestFirst(out, func(p models.PaymentRecord) time.Time { return p.CreatedAt })
	return paginate(out, f.Limit, f.Offset), nil
}

type notificationRepo struct {
	db *shared
}

func (r *notificationRepo) CreateNotification(_ context.Context, n *models.Notification) error {
	st := r.db.lock()
	defer r.db.unlock()

	st.notifications[n.ID] = *n
	return nil
}

func (r *notificationRepo) NotificationExists(_ context.Context, t models.NotificationType, competitionID, recipientID uuid.UUID) (bool, error) {
	st := r.db.lock()
	defer r.db.unlock()

	for _, n := range st.notifications {
		if n.Type == t && n.RecipientID == recipientID &&
			n.RelatedCompetitionID != nil && *n.RelatedCompetitionID == competitionID {
			return true, nil
		}
	}
	return false, nil
}

func (r *notificationRepo) ListNotifications(_ context.Context, recipientID uuid.UUID, f models.NotificationFilter) ([]models.Notification, error) {
	st := r.db.lock()
	defer r.db.unlock()

	var out []models.Notification
	for _, n := range st.notifications {
		if n.RecipientID != recipientID {
			continue
		}
		if f.IsRead != nil && n.IsRead != *f.IsRead {
			continue
		}
		if f.Type != nil && n.Type != *f.Type {
			continue
		}
		out = append(out, n)
	}
	sortNewestFirst(out, func(n models.Notification) time.Time { return n.CreatedAt })
	return paginate(out, f.Limit, f.Offset), nil
}

func (r *notificationRepo) MarkRead(_ context.Context, recipientID uuid.UUID, ids []uuid.UUID, at time.Time) (int64, error) {
	st := r.db.lock()
	defer r.db.unlock()

	var updated int64
	for _, id := range ids {
		n, ok := st.notifications[id]
		if !ok || n.RecipientID != recipientID || n.IsRead {
			continue
		}
		n.IsRead = true
		n.ReadAt = &at
		st.notifications[id] = n
		updated++
	}
	return updated, nil
}

func (r *notificationRepo) MarkAllRead(_ context.Context, recipientID uuid.UUID, at time.Time) (int64, error) {
	st := r.db.lock()
	defer r.db.unlock()

	var updated int64
	for id, n := range st.notifications {
		if n.RecipientID != recipientID || n.IsRead {
			continue
		}
		n.IsRead = true
		n.ReadAt = &at
		st.notifications[id] = n
		updated++
	}
	return updated, nil
}

func (r *notificationRepo) CountUnread(_ context.Context, recipientID uuid.UUID) (int, error) {
	st := r.db.lock()
	defer r.db.unlock()

	count := 0
	for _, n := range st.notifications {
		if n.RecipientID == recipientID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

type reviewRepo struct {
	db *shared
}

func (r *reviewRepo) CreateReview(_ context.Context, rv *models.Review) error {
	st := r.db.lock()
	defer r.db.unlock()

	for _, existing := range st.reviews {
		if existing.ReviewerID == rv.ReviewerID && existing.CompetitionID == rv.CompetitionID {
			return repository.ErrConflict
		}
	}
	st.reviews[rv.ID] = *rv
	return nil
}

func (r *reviewRepo) ReviewExists(_ context.Context, reviewerID, competitionID uuid.UUID) (bool, error) {
	st := r.db.lock()
	defer r.db.unlock()

	for _, rv := range st.reviews {
		if rv.ReviewerID == reviewerID && rv.CompetitionID == competitionID {
			return true, nil
		}
	}
	return false, nil
}

func (r *reviewRepo) filter(match func(models.Review) bool) []models.Review {
	st := r.db.lock()
	defer r.db.unlock()

	var out []models.Review
	for _, rv := range st.reviews {
		if match(rv) {
			out = append(out, rv)
		}
	}
	sortNewestFirst(out, func(rv models.Review) time.Time { return rv.CreatedAt })
	return out
}

func (r *reviewRepo) ListPublicReviewsFor(_ context.Context, revieweeID uuid.UUID) ([]models.Review, error) {
	return r.filter(func(rv models.Review) bool {
		return rv.RevieweeID == revieweeID && rv.IsPublic
	}), nil
}

func (r *reviewRepo) ListCompetitionReviews(_ context.Context, competitionID uuid.UUID) ([]models.Review, error) {
	return r.filter(func(rv models.Review) bool {
		return rv.CompetitionID == competitionID
	}), nil
}

func (r *reviewRepo) PublicRatings(ctx context.Context, revieweeID uuid.UUID) ([]int, error) {
	reviews, _ := r.ListPublicReviewsFor(ctx, revieweeID)
	ratings := make([]int, 0, len(reviews))
	for _, rv := range reviews {
		ratings = append(ratings, rv.Rating)
	}
	return ratings, nil
}

func (r *reviewRepo) SaveUserRating(_ context.Context, rating models.UserRating) error {
	st := r.db.lock()
	defer r.db.unlock()

	st.ratings[rating.UserID] = rating
	return nil
}

func (r *reviewRepo) GetUserRating(_ context.Context, userID uuid.UUID) (*models.UserRating, error) {
	st := r.db.lock()
	defer r.db.unlock()

	rating, ok := st.ratings[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &rating, nil
}

type outboxRepo struct {
	db *shared
}

func (r *outboxRepo) AppendEvent(_ context.Context, e *models.OutboxEvent) error {
	st := r.db.lock()
	defer r.db.unlock()

	st.outbox[e.ID] = *e
	return nil
}

func (r *outboxRepo) ClaimEvents(_ context.Context, limit int, now time.Time, lease time.Duration) ([]models.OutboxEvent, error) {
	st := r.db.lock()
	defer r.db.unlock()

	var ready []models.OutboxEvent
	for _, e := range st.outbox {
		if e.PublishedAt == nil && !e.AvailableAt.After(now) {
			ready = append(ready, e)
		}
	}
	sort.SliceStable(ready, func(i, j int) bool { return ready[i].CreatedAt.Before(ready[j].CreatedAt) })
	ready = paginate(ready, limit, 0)

	for i := range ready {
		ready[i].AvailableAt = now.Add(lease)
		st.outbox[ready[i].ID] = ready[i]
	}
	return ready, nil
}

func (r *outboxRepo) MarkEventPublished(_ context.Context, id uuid.UUID, at time.Time) error {
	st := r.db.lock()
	defer r.db.unlock()

	e, ok := st.outbox[id]
	if !ok {
		return repository.ErrNotFound
	}
	e.PublishedAt = &at
	e.LastError = ""
	st.outbox[id] = e
	return nil
}

func (r *outboxRepo) MarkEventFailed(_ context.Context, id uuid.UUID, retryAt time.Time, reason string) error {
	st := r.db.lock()
	defer r.db.unlock()

	e, ok := st.outbox[id]
	if !ok {
		return repository.ErrNotFound
	}
	e.Attempts++
	e.AvailableAt = retryAt
	e.LastError = reason
	st.outbox[id] = e
	return nil
}

// PendingEvents возвращает неотправленные события.
func (s *Store) PendingEvents() []models.OutboxEvent {
	st := s.db.lock()
	defer s.db.unlock()

	var out []models.OutboxEvent
	for _, e := range st.outbox {
		if e.PublishedAt == nil {
			out = append(out, e)
		}
	}
	return out
}
