package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/senyabanana/freelance-service/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/lib/pq"
)

const competitionColumns = `id, client_id, title, description, requirements, budget, currency, deadline,
	submission_deadline, status, category, tags, max_proposals, allow_questions, winner_id,
	winning_proposal_id, created_at, updated_at`

const questionColumns = `id, competition_id, asked_by_id, question, answer, answered_at, answered_by_id, is_public, created_at`

var competitionOrdering = map[string]string{
	"budget":      "budget ASC",
	"-budget":     "budget DESC",
	"deadline":    "deadline ASC",
	"-deadline":   "deadline DESC",
	"created_at":  "created_at ASC",
	"-created_at": "created_at DESC",
}

// PostgresCompetitionRepository - реализация CompetitionRepository для базы данных.
type PostgresCompetitionRepository struct {
	DB DBTX
}

// NewPostgresCompetitionRepository создаёт новый экземпляр PostgresCompetitionRepository.
func NewPostgresCompetitionRepository(db DBTX) *PostgresCompetitionRepository {
	return &PostgresCompetitionRepository{DB: db}
}

func scanCompetition(row scanner) (*models.Competition, error) {
	var c models.Competition
	err := row.Scan(
		&c.ID,
		&c.ClientID,
		&c.Title,
		&c.Description,
		&c.Requirements,
		&c.Budget,
		&c.Currency,
		&c.Deadline,
		&c.SubmissionDeadline,
		&c.Status,
		&c.Category,
		&c.Tags,
		&c.MaxProposals,
		&c.AllowQuestions,
		&c.WinnerID,
		&c.WinningProposalID,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, mapError(err)
	}
	return &c, nil
}

func collectCompetitions(rows pgx.Rows) ([]models.Competition, error) {
	defer rows.Close()

	var competitions []models.Competition
	for rows.Next() {
		c, err := scanCompetition(rows)
		if err != nil {
			return nil, err
		}
		competitions = append(competitions, *c)
	}
	return competitions, rows.Err()
}

// CreateCompetition создает новый конкурс.
func (r *PostgresCompetitionRepository) CreateCompetition(ctx context.Context, c *models.Competition) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO competitions (`+competitionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		c.ID,
		c.ClientID,
		c.Title,
		c.Description,
		c.Requirements,
		c.Budget,
		c.Currency,
		c.Deadline,
		c.SubmissionDeadline,
		c.Status,
		c.Category,
		c.Tags,
		c.MaxProposals,
		c.AllowQuestions,
		c.WinnerID,
		c.WinningProposalID,
		c.CreatedAt,
		c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert competition: %w", mapError(err))
	}
	return nil
}

// GetCompetition получает конкурс по ID.
func (r *PostgresCompetitionRepository) GetCompetition(ctx context.Context, id uuid.UUID) (*models.Competition, error) {
	return scanCompetition(r.DB.QueryRow(ctx, `SELECT `+competitionColumns+` FROM competitions WHERE id = $1`, id))
}

// GetCompetitionForUpdate получает конкурс с блокировкой строки.
func (r *PostgresCompetitionRepository) GetCompetitionForUpdate(ctx context.Context, id uuid.UUID) (*models.Competition, error) {
	return scanCompetition(r.DB.QueryRow(ctx, `SELECT `+competitionColumns+` FROM competitions WHERE id = $1 FOR UPDATE`, id))
}

// UpdateCompetition сохраняет все изменяемые поля конкурса.
func (r *PostgresCompetitionRepository) UpdateCompetition(ctx context.Context, c *models.Competition) error {
	tag, err := r.DB.Exec(ctx, `
		UPDATE competitions
		SET title = $1, description = $2, requirements = $3, budget = $4, currency = $5, deadline = $6,
		    submission_deadline = $7, status = $8, category = $9, tags = $10, max_proposals = $11,
		    allow_questions = $12, winner_id = $13, winning_proposal_id = $14, updated_at = $15
		WHERE id = $16`,
		c.Title,
		c.Description,
		c.Requirements,
		c.Budget,
		c.Currency,
		c.Deadline,
		c.SubmissionDeadline,
		c.Status,
		c.Category,
		c.Tags,
		c.MaxProposals,
		c.AllowQuestions,
		c.WinnerID,
		c.WinningProposalID,
		c.UpdatedAt,
		c.ID)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListCompetitions возвращает список конкурсов по фильтру.
func (r *PostgresCompetitionRepository) ListCompetitions(ctx context.Context, f models.CompetitionFilter) ([]models.Competition, error) {
	query := `SELECT ` + competitionColumns + ` FROM competitions`
	var filters []string
	var args []interface{}
	argIndex := 1

	if f.Status != nil {
		filters = append(filters, fmt.Sprintf("status = $%d", argIndex))
		args = append(args, *f.Status)
		argIndex++
	}

	if f.ClientID != nil {
		filters = append(filters, fmt.Sprintf("client_id = $%d", argIndex))
		args = append(args, *f.ClientID)
		argIndex++
	}

	if f.Search != "" {
		filters = append(filters, fmt.Sprintf("(title ILIKE $%d OR description ILIKE $%d OR category ILIKE $%d)", argIndex, argIndex, argIndex))
		args = append(args, "%"+f.Search+"%")
		argIndex++
	}

	if len(f.Categories) > 0 {
		filters = append(filters, fmt.Sprintf("category = ANY($%d)", argIndex))
		args = append(args, pq.Array(f.Categories))
		argIndex++
	}

	if f.MinBudget != nil {
		filters = append(filters, fmt.Sprintf("budget >= $%d", argIndex))
		args = append(args, *f.MinBudget)
		argIndex++
	}

	if f.MaxBudget != nil {
		filters = append(filters, fmt.Sprintf("budget <= $%d", argIndex))
		args = append(args, *f.MaxBudget)
		argIndex++
	}

	if len(filters) > 0 {
		query += " WHERE " + strings.Join(filters, " AND ")
	}

	ordering, ok := competitionOrdering[f.Ordering]
	if !ok {
		ordering = "created_at DESC"
	}
	query += fmt.Sprintf(" ORDER BY %s LIMIT $%d OFFSET $%d", ordering, argIndex, argIndex+1)
	args = append(args, limitArg(f.Limit), f.Offset)

	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collectCompetitions(rows)
}

// ListExpiredOpen возвращает открытые конкурсы с истекшим сроком подачи.
func (r *PostgresCompetitionRepository) ListExpiredOpen(ctx context.Context, now time.Time) ([]models.Competition, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT `+competitionColumns+` FROM competitions
		WHERE status = $1 AND submission_deadline < $2
		ORDER BY submission_deadline`,
		models.OpenCompetition, now)
	if err != nil {
		return nil, err
	}
	return collectCompetitions(rows)
}

// ListClosingSoon возвращает открытые конкурсы со сроком подачи в (from, to].
func (r *PostgresCompetitionRepository) ListClosingSoon(ctx context.Context, from, to time.Time) ([]models.Competition, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT `+competitionColumns+` FROM competitions
		WHERE status = $1 AND submission_deadline > $2 AND submission_deadline <= $3
		ORDER BY submission_deadline`,
		models.OpenCompetition, from, to)
	if err != nil {
		return nil, err
	}
	return collectCompetitions(rows)
}

// ToggleBookmark добавляет закладку или снимает существующую. Возвращает true, если закладка добавлена.
func (r *PostgresCompetitionRepository) ToggleBookmark(ctx context.Context, competitionID, userID uuid.UUID, at time.Time) (bool, error) {
	tag, err := r.DB.Exec(ctx, `DELETE FROM competition_bookmarks WHERE competition_id = $1 AND user_id = $2`, competitionID, userID)
	if err != nil {
		return false, mapError(err)
	}
	if tag.RowsAffected() > 0 {
		return false, nil
	}

	_, err = r.DB.Exec(ctx, `
		INSERT INTO competition_bookmarks (id, competition_id, user_id, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (competition_id, user_id) DO NOTHING`,
		uuid.New(), competitionID, userID, at)
	if err != nil {
		return false, mapError(err)
	}
	return true, nil
}

// ListBookmarkUserIDs возвращает пользователей, добавивших конкурс в закладки.
func (r *PostgresCompetitionRepository) ListBookmarkUserIDs(ctx context.Context, competitionID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.DB.Query(ctx, `SELECT user_id FROM competition_bookmarks WHERE competition_id = $1 ORDER BY created_at`, competitionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListBookmarkedCompetitions возвращает конкурсы из закладок пользователя.
func (r *PostgresCompetitionRepository) ListBookmarkedCompetitions(ctx context.Context, userID uuid.UUID) ([]models.Competition, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT `+competitionColumns+` FROM competitions
		WHERE id IN (SELECT competition_id FROM competition_bookmarks WHERE user_id = $1)
		ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	return collectCompetitions(rows)
}

func scanQuestion(row scanner) (*models.CompetitionQuestion, error) {
	var q models.CompetitionQuestion
	err := row.Scan(
		&q.ID,
		&q.CompetitionID,
		&q.AskedByID,
		&q.Question,
		&q.Answer,
		&q.AnsweredAt,
		&q.AnsweredByID,
		&q.IsPublic,
		&q.CreatedAt,
	)
	if err != nil {
		return nil, mapError(err)
	}
	return &q, nil
}

// CreateQuestion сохраняет вопрос по конкурсу.
func (r *PostgresCompetitionRepository) CreateQuestion(ctx context.Context, q *models.CompetitionQuestion) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO competition_questions (`+questionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		q.ID, q.CompetitionID, q.AskedByID, q.Question, q.Answer, q.AnsweredAt, q.AnsweredByID, q.IsPublic, q.CreatedAt)
	return mapError(err)
}

// GetQuestion получает вопрос конкурса.
func (r *PostgresCompetitionRepository) GetQuestion(ctx context.Context, competitionID, questionID uuid.UUID) (*models.CompetitionQuestion, error) {
	return scanQuestion(r.DB.QueryRow(ctx,
		`SELECT `+questionColumns+` FROM competition_questions WHERE id = $1 AND competition_id = $2`,
		questionID, competitionID))
}

// UpdateQuestion сохраняет ответ на вопрос.
func (r *PostgresCompetitionRepository) UpdateQuestion(ctx context.Context, q *models.CompetitionQuestion) error {
	tag, err := r.DB.Exec(ctx, `
		UPDATE competition_questions SET answer = $1, answered_at = $2, answered_by_id = $3, is_public = $4
		WHERE id = $5`,
		q.Answer, q.AnsweredAt, q.AnsweredByID, q.IsPublic, q.ID)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListPublicQuestions возвращает публичные вопросы конкурса.
func (r *PostgresCompetitionRepository) ListPublicQuestions(ctx context.Context, competitionID uuid.UUID) ([]models.CompetitionQuestion, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT `+questionColumns+` FROM competition_questions
		WHERE competition_id = $1 AND is_public
		ORDER BY created_at DESC`, competitionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []models.CompetitionQuestion
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		questions = append(questions, *q)
	}
	return questions, rows.Err()
}
