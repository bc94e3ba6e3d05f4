package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/senyabanana/freelance-service/internal/models"

	"github.com/google/uuid"
)

const proposalColumns = `id, competition_id, freelancer_id, title, description, proposed_budget, estimated_duration,
	status, submission_note, client_score, client_note, is_winner, created_at, updated_at`

const attachmentColumns = `id, proposal_id, storage_key, original_filename, file_size, file_type, description, uploaded_at`

// PostgresProposalRepository - реализация ProposalRepository для базы данных.
type PostgresProposalRepository struct {
	DB DBTX
}

// NewPostgresProposalRepository создаёт новый экземпляр PostgresProposalRepository.
func NewPostgresProposalRepository(db DBTX) *PostgresProposalRepository {
	return &PostgresProposalRepository{DB: db}
}

func scanProposal(row scanner) (*models.Proposal, error) {
	var p models.Proposal
	err := row.Scan(
		&p.ID,
		&p.CompetitionID,
		&p.FreelancerID,
		&p.Title,
		&p.Description,
		&p.ProposedBudget,
		&p.EstimatedDuration,
		&p.Status,
		&p.SubmissionNote,
		&p.ClientScore,
		&p.ClientNote,
		&p.IsWinner,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, mapError(err)
	}
	return &p, nil
}

func (r *PostgresProposalRepository) queryProposals(ctx context.Context, query string, args ...interface{}) ([]models.Proposal, error) {
	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var proposals []models.Proposal
	for rows.Next() {
		p, err := scanProposal(rows)
		if err != nil {
			return nil, err
		}
		proposals = append(proposals, *p)
	}
	return proposals, rows.Err()
}

// CreateProposal создает новое предложение.
func (r *PostgresProposalRepository) CreateProposal(ctx context.Context, p *models.Proposal) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO proposals (`+proposalColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		p.ID,
		p.CompetitionID,
		p.FreelancerID,
		p.Title,
		p.Description,
		p.ProposedBudget,
		p.EstimatedDuration,
		p.Status,
		p.SubmissionNote,
		p.ClientScore,
		p.ClientNote,
		p.IsWinner,
		p.CreatedAt,
		p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert proposal: %w", mapError(err))
	}
	return nil
}

// GetProposal получает предложение по ID.
func (r *PostgresProposalRepository) GetProposal(ctx context.Context, id uuid.UUID) (*models.Proposal, error) {
	return scanProposal(r.DB.QueryRow(ctx, `SELECT `+proposalColumns+` FROM proposals WHERE id = $1`, id))
}

// GetProposalForUpdate получает предложение с блокировкой строки.
func (r *PostgresProposalRepository) GetProposalForUpdate(ctx context.Context, id uuid.UUID) (*models.Proposal, error) {
	return scanProposal(r.DB.QueryRow(ctx, `SELECT `+proposalColumns+` FROM proposals WHERE id = $1 FOR UPDATE`, id))
}

// UpdateProposal сохраняет изменяемые поля предложения.
func (r *PostgresProposalRepository) UpdateProposal(ctx context.Context, p *models.Proposal) error {
	tag, err := r.DB.Exec(ctx, `
		UPDATE proposals
		SET title = $1, description = $2, proposed_budget = $3, estimated_duration = $4, status = $5,
		    submission_note = $6, client_score = $7, client_note = $8, is_winner = $9, updated_at = $10
		WHERE id = $11`,
		p.Title,
		p.Description,
		p.ProposedBudget,
		p.EstimatedDuration,
		p.Status,
		p.SubmissionNote,
		p.ClientScore,
		p.ClientNote,
		p.IsWinner,
		p.UpdatedAt,
		p.ID)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListCompetitionProposals возвращает все предложения конкурса.
func (r *PostgresProposalRepository) ListCompetitionProposals(ctx context.Context, competitionID uuid.UUID) ([]models.Proposal, error) {
	return r.queryProposals(ctx,
		`SELECT `+proposalColumns+` FROM proposals WHERE competition_id = $1 ORDER BY created_at DESC`,
		competitionID)
}

// ListFreelancerProposals возвращает предложения фрилансера по фильтру.
func (r *PostgresProposalRepository) ListFreelancerProposals(ctx context.Context, freelancerID uuid.UUID, f models.ProposalFilter) ([]models.Proposal, error) {
	filters := []string{"freelancer_id = $1"}
	args := []interface{}{freelancerID}
	argIndex := 2

	if f.CompetitionID != nil {
		filters = append(filters, fmt.Sprintf("competition_id = $%d", argIndex))
		args = append(args, *f.CompetitionID)
		argIndex++
	}

	if f.Status != nil {
		filters = append(filters, fmt.Sprintf("status = $%d", argIndex))
		args = append(args, *f.Status)
		argIndex++
	}

	query := fmt.Sprintf(`SELECT %s FROM proposals WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		proposalColumns, strings.Join(filters, " AND "), argIndex, argIndex+1)
	args = append(args, limitArg(f.Limit), f.Offset)

	return r.queryProposals(ctx, query, args...)
}

// HasActiveProposal проверяет, есть ли у фрилансера неотозванное предложение на конкурс.
func (r *PostgresProposalRepository) HasActiveProposal(ctx context.Context, competitionID, freelancerID uuid.UUID) (bool, error) {
	var exists bool
	err := r.DB.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM proposals
			WHERE competition_id = $1 AND freelancer_id = $2 AND status <> $3
		)`, competitionID, freelancerID, models.WithdrawnProposal).Scan(&exists)
	return exists, mapError(err)
}

// CountActiveProposals считает неотозванные предложения конкурса.
func (r *PostgresProposalRepository) CountActiveProposals(ctx context.Context, competitionID uuid.UUID) (int, error) {
	var count int
	err := r.DB.QueryRow(ctx,
		`SELECT COUNT(*) FROM proposals WHERE competition_id = $1 AND status <> $2`,
		competitionID, models.WithdrawnProposal).Scan(&count)
	return count, mapError(err)
}

// RejectOtherProposals отклоняет все неотозванные предложения конкурса, кроме победителя.
func (r *PostgresProposalRepository) RejectOtherProposals(ctx context.Context, competitionID, winnerID uuid.UUID, at time.Time) (int64, error) {
	tag, err := r.DB.Exec(ctx, `
		UPDATE proposals SET status = $1, updated_at = $2
		WHERE competition_id = $3 AND id <> $4 AND status <> $5`,
		models.RejectedProposal, at, competitionID, winnerID, models.WithdrawnProposal)
	if err != nil {
		return 0, mapError(err)
	}
	return tag.RowsAffected(), nil
}

// AddRevision сохраняет ревизию с номером MAX(revision_number)+1.
func (r *PostgresProposalRepository) AddRevision(ctx context.Context, rev *models.ProposalRevision) error {
	err := r.DB.QueryRow(ctx, `
		INSERT INTO proposal_revisions (id, proposal_id, revised_by_id, description, revision_number, created_at)
		SELECT $1, $2, $3, $4, COALESCE(MAX(revision_number), 0) + 1, $5
		FROM proposal_revisions WHERE proposal_id = $2
		RETURNING revision_number`,
		rev.ID, rev.ProposalID, rev.RevisedByID, rev.Description, rev.CreatedAt).Scan(&rev.RevisionNumber)
	if err != nil {
		return fmt.Errorf("failed to insert proposal revision: %w", mapError(err))
	}
	return nil
}

func scanAttachment(row scanner) (*models.ProposalAttachment, error) {
	var a models.ProposalAttachment
	err := row.Scan(
		&a.ID,
		&a.ProposalID,
		&a.StorageKey,
		&a.OriginalFilename,
		&a.FileSize,
		&a.FileType,
		&a.Description,
		&a.UploadedAt,
	)
	if err != nil {
		return nil, mapError(err)
	}
	return &a, nil
}

// CreateAttachment сохраняет метаданные вложения.
func (r *PostgresProposalRepository) CreateAttachment(ctx context.Context, a *models.ProposalAttachment) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO proposal_attachments (`+attachmentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		a.ID, a.ProposalID, a.StorageKey, a.OriginalFilename, a.FileSize, a.FileType, a.Description, a.UploadedAt)
	return mapError(err)
}

// GetAttachment получает вложение предложения.
func (r *PostgresProposalRepository) GetAttachment(ctx context.Context, proposalID, attachmentID uuid.UUID) (*models.ProposalAttachment, error) {
	return scanAttachment(r.DB.QueryRow(ctx,
		`SELECT `+attachmentColumns+` FROM proposal_attachments WHERE id = $1 AND proposal_id = $2`,
		attachmentID, proposalID))
}

// DeleteAttachment удаляет вложение.
func (r *PostgresProposalRepository) DeleteAttachment(ctx context.Context, attachmentID uuid.UUID) error {
	tag, err := r.DB.Exec(ctx, `DELETE FROM proposal_attachments WHERE id = $1`, attachmentID)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListAttachments возвращает вложения предложения.
func (r *PostgresProposalRepository) ListAttachments(ctx context.Context, proposalID uuid.UUID) ([]models.ProposalAttachment, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT `+attachmentColumns+` FROM proposal_attachments WHERE proposal_id = $1 ORDER BY uploaded_at`,
		proposalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attachments []models.ProposalAttachment
	for rows.Next() {
		a, err := scanAttachment(rows)
		if err != nil {
			return nil, err
		}
		attachments = append(attachments, *a)
	}
	return attachments, rows.Err()
}
