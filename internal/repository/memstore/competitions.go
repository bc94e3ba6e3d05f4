package memstore

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/senyabanana/freelance-service/internal/models"
	"github.com/senyabanana/freelance-service/internal/repository"

	"github.com/google/uuid"
)

type competitionRepo struct {
	db *shared
}

func (r *competitionRepo) CreateCompetition(_ context.Context, c *models.Competition) error {
	st := r.db.lock()
	defer r.db.unlock()

	if _, ok := st.competitions[c.ID]; ok {
		return repository.ErrConflict
	}
	st.competitions[c.ID] = *c
	return nil
}

func (r *competitionRepo) GetCompetition(_ context.Context, id uuid.UUID) (*models.Competition, error) {
	st := r.db.lock()
	defer r.db.unlock()

	c, ok := st.competitions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

// GetCompetitionForUpdate не блокирует отдельно: транзакции уже сериализованы.
func (r *competitionRepo) GetCompetitionForUpdate(ctx context.Context, id uuid.UUID) (*models.Competition, error) {
	return r.GetCompetition(ctx, id)
}

func (r *competitionRepo) UpdateCompetition(_ context.Context, c *models.Competition) error {
	st := r.db.lock()
	defer r.db.unlock()

	if _, ok := st.competitions[c.ID]; !ok {
		return repository.ErrNotFound
	}
	st.competitions[c.ID] = *c
	return nil
}

func matchesCompetition(c models.Competition, f models.CompetitionFilter) bool {
	if f.Status != nil && c.Status != *f.Status {
		return false
	}
	if f.ClientID != nil && c.ClientID != *f.ClientID {
		return false
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(c.Title), needle) &&
			!strings.Contains(strings.ToLower(c.Description), needle) &&
			!strings.Contains(strings.ToLower(c.Category), needle) {
			return false
		}
	}
	if len(f.Categories) > 0 {
		found := false
		for _, category := range f.Categories {
			if c.Category == category {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.MinBudget != nil && c.Budget.LessThan(*f.MinBudget) {
		return false
	}
	if f.MaxBudget != nil && c.Budget.GreaterThan(*f.MaxBudget) {
		return false
	}
	return true
}

func sortCompetitions(items []models.Competition, ordering string) {
	less := map[string]func(a, b models.Competition) bool{
		"budget":      func(a, b models.Competition) bool { return a.Budget.LessThan(b.Budget) },
		"-budget":     func(a, b models.Competition) bool { return a.Budget.GreaterThan(b.Budget) },
		"deadline":    func(a, b models.Competition) bool { return a.Deadline.Before(b.Deadline) },
		"-deadline":   func(a, b models.Competition) bool { return a.Deadline.After(b.Deadline) },
		"created_at":  func(a, b models.Competition) bool { return a.CreatedAt.Before(b.CreatedAt) },
		"-created_at": func(a, b models.Competition) bool { return a.CreatedAt.After(b.CreatedAt) },
	}
	fn, ok := less[ordering]
	if !ok {
		fn = less["-created_at"]
	}
	sort.SliceStable(items, func(i, j int) bool { return fn(items[i], items[j]) })
}

func (r *competitionRepo) ListCompetitions(_ context.Context, f models.CompetitionFilter) ([]models.Competition, error) {
	st := r.db.lock()
	defer r.db.unlock()

	var out []models.Competition
	for _, c := range st.competitions {
		if matchesCompetition(c, f) {
			out = append(out, c)
		}
	}
	sortCompetitions(out, f.Ordering)
	return paginate(out, f.Limit, f.Offset), nil
}

func (r *competitionRepo) listOpen(match func(models.Competition) bool) []models.Competition {
	st := r.db.lock()
	defer r.db.unlock()

	var out []models.Competition
	for _, c := range st.competitions {
		if c.Status == models.OpenCompetition && match(c) {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SubmissionDeadline.Before(out[j].SubmissionDeadline)
	})
	return out
}

func (r *competitionRepo) ListExpiredOpen(_ context.Context, now time.Time) ([]models.Competition, error) {
	return r.listOpen(func(c models.Competition) bool {
		return c.SubmissionDeadline.Before(now)
	}), nil
}

func (r *competitionRepo) ListClosingSoon(_ context.Context, from, to time.Time) ([]models.Competition, error) {
	return r.listOpen(func(c models.Competition) bool {
		return c.SubmissionDeadline.After(from) && !c.SubmissionDeadline.After(to)
	}), nil
}

func (r *competitionRepo) ToggleBookmark(_ context.Context, competitionID, userID uuid.UUID, at time.Time) (bool, error) {
	st := r.db.lock()
	defer r.db.unlock()

	key := bookmarkKey{competitionID: competitionID, userID: userID}
	if _, ok := st.bookmarks[key]; ok {
		delete(st.bookmarks, key)
		return false, nil
	}
	st.bookmarks[key] = at
	return true, nil
}

func (r *competitionRepo) ListBookmarkUserIDs(_ context.Context, competitionID uuid.UUID) ([]uuid.UUID, error) {
	st := r.db.lock()
	defer r.db.unlock()

	type entry struct {
		userID uuid.UUID
		at     time.Time
	}
	var entries []entry
	for key, at := range st.bookmarks {
		if key.competitionID == competitionID {
			entries = append(entries, entry{userID: key.userID, at: at})
		}
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].at.Before(entries[j].at) })

	ids := make([]uuid.UUID, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.userID)
	}
	return ids, nil
}

func (r *competitionRepo) ListBookmarkedCompetitions(_ context.Context, userID uuid.UUID) ([]models.Competition, error) {
	st := r.db.lock()
	defer r.db.unlock()

	var out []models.Competition
	for key := range st.bookmarks {
		if key.userID != userID {
			continue
		}
		if c, ok := st.competitions[key.competitionID]; ok {
			out = append(out, c)
		}
	}
	sortNewestFirst(out, func(c models.Competition) time.Time { return c.CreatedAt })
	return out, nil
}

func (r *competitionRepo) CreateQuestion(_ context.Context, q *models.CompetitionQuestion) error {
	st := r.db.lock()
	defer r.db.unlock()

	if _, ok := st.competitions[q.CompetitionID]; !ok {
		return repository.ErrNotFound
	}
	st.questions[q.ID] = *q
	return nil
}

func (r *competitionRepo) GetQuestion(_ context.Context, competitionID, questionID uuid.UUID) (*models.CompetitionQuestion, error) {
	st := r.db.lock()
	defer r.db.unlock()

	q, ok := st.questions[questionID]
	if !ok || q.CompetitionID != competitionID {
		return nil, repository.ErrNotFound
	}
	return &q, nil
}

func (r *competitionRepo) UpdateQuestion(_ context.Context, q *models.CompetitionQuestion) error {
	st := r.db.lock()
	defer r.db.unlock()

	if _, ok := st.questions[q.ID]; !ok {
		return repository.ErrNotFound
	}
	st.questions[q.ID] = *q
	return nil
}

func (r *competitionRepo) ListPublicQuestions(_ context.Context, competitionID uuid.UUID) ([]models.CompetitionQuestion, error) {
	st := r.db.lock()
	defer r.db.unlock()

	var out []models.CompetitionQuestion
	for _, q := range st.questions {
		if q.CompetitionID == competitionID && q.IsPublic {
			out = append(out, q)
		}
	}
	sortNewestFirst(out, func(q models.CompetitionQuestion) time.Time { return q.CreatedAt })
	return out, nil
}
