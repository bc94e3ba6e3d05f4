package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/senyabanana/freelance-service/internal/models"

	"github.com/google/uuid"
)

const paymentColumns = `id, competition_id, client_id, freelancer_id, amount, currency, status, platform_fee,
	net_amount, transaction_reference, notes, created_at, updated_at, completed_at`

// PostgresPaymentRepository - реализация PaymentRepository для базы данных.
type PostgresPaymentRepository struct {
	DB DBTX
}

// NewPostgresPaymentRepository создаёт новый экземпляр PostgresPaymentRepository.
func NewPostgresPaymentRepository(db DBTX) *PostgresPaymentRepository {
	return &PostgresPaymentRepository{DB: db}
}

func scanPayment(row scanner) (*models.PaymentRecord, error) {
	var p models.PaymentRecord
	err := row.Scan(
		&p.ID,
		&p.CompetitionID,
		&p.ClientID,
		&p.FreelancerID,
		&p.Amount,
		&p.Currency,
		&p.Status,
		&p.PlatformFee,
		&p.NetAmount,
		&p.TransactionReference,
		&p.Notes,
		&p.CreatedAt,
		&p.UpdatedAt,
		&p.CompletedAt,
	)
	if err != nil {
		return nil, mapError(err)
	}
	return &p, nil
}

// CreatePayment создает платёж. Второй платёж по тому же конкурсу даёт ErrConflict.
func (r *PostgresPaymentRepository) CreatePayment(ctx context.Context, p *models.PaymentRecord) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO payment_records (`+paymentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		p.ID,
		p.CompetitionID,
		p.ClientID,
		p.FreelancerID,
		p.Amount,
		p.Currency,
		p.Status,
		p.PlatformFee,
		p.NetAmount,
		p.TransactionReference,
		p.Notes,
		p.CreatedAt,
		p.UpdatedAt,
		p.CompletedAt)
	if err != nil {
		return fmt.Errorf("failed to insert payment: %w", mapError(err))
	}
	return nil
}

// GetPayment получает платёж по ID.
func (r *PostgresPaymentRepository) GetPayment(ctx context.Context, id uuid.UUID) (*models.PaymentRecord, error) {
	return scanPayment(r.DB.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payment_records WHERE id = $1`, id))
}

// GetPaymentByCompetition получает платёж конкурса.
func (r *PostgresPaymentRepository) GetPaymentByCompetition(ctx context.Context, competitionID uuid.UUID) (*models.PaymentRecord, error) {
	return scanPayment(r.DB.QueryRow(ctx,
		`SELECT `+paymentColumns+` FROM payment_records WHERE competition_id = $1`, competitionID))
}

// UpdatePayment сохраняет статус и учётные поля платежа.
func (r *PostgresPaymentRepository) UpdatePayment(ctx context.Context, p *models.PaymentRecord) error {
	tag, err := r.DB.Exec(ctx, `
		UPDATE payment_records
		SET amount = $1, platform_fee = $2, net_amount = $3, status = $4, transaction_reference = $5,
		    notes = $6, updated_at = $7, completed_at = $8
		WHERE id = $9`,
		p.Amount,
		p.PlatformFee,
		p.NetAmount,
		p.Status,
		p.TransactionReference,
		p.Notes,
		p.UpdatedAt,
		p.CompletedAt,
		p.ID)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListPayments возвращает платежи по фильтру.
func (r *PostgresPaymentRepository) ListPayments(ctx context.Context, f models.PaymentFilter) ([]models.PaymentRecord, error) {
	query := `SELECT ` + paymentColumns + ` FROM payment_records`
	var filters []string
	var args []interface{}
	argIndex := 1

	if f.ClientID != nil {
		filters = append(filters, fmt.Sprintf("client_id = $%d", argIndex))
		args = append(args, *f.ClientID)
		argIndex++
	}

	if f.FreelancerID != nil {
		filters = append(filters, fmt.Sprintf("freelancer_id = $%d", argIndex))
		args = append(args, *f.FreelancerID)
		argIndex++
	}

	if f.Status != nil {
		filters = append(filters, fmt.Sprintf("status = $%d", argIndex))
		args = append(args, *f.Status)
		argIndex++
	}

	if f.From != nil {
		filters = append(filters, fmt.Sprintf("created_at >= $%d", argIndex))
		args = append(args, *f.From)
		argIndex++
	}

	if f.To != nil {
		filters = append(filters, fmt.Sprintf("created_at <= $%d", argIndex))
		args = append(args, *f.To)
		argIndex++
	}

	if len(filters) > 0 {
		query += " WHERE " + strings.Join(filters, " AND ")
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
	args = append(args, limitArg(f.Limit), f.Offset)

	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []models.PaymentRecord
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, *p)
	}
	return payments, rows.Err()
}
