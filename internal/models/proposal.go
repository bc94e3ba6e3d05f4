package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ProposalStatus string // Статус предложения

const (
	SubmittedProposal   ProposalStatus = "SUBMITTED"    // Предложение отправлено
	UnderReviewProposal ProposalStatus = "UNDER_REVIEW" // Предложение на рассмотрении
	AcceptedProposal    ProposalStatus = "ACCEPTED"     // Предложение победило
	RejectedProposal    ProposalStatus = "REJECTED"     // Предложение отклонено
	WithdrawnProposal   ProposalStatus = "WITHDRAWN"    // Предложение отозвано автором
)

// IsTerminal - предложение больше не меняется.
func (s ProposalStatus) IsTerminal() bool {
	return s == AcceptedProposal || s == RejectedProposal || s == WithdrawnProposal
}

// Proposal представляет модель предложения фрилансера.
type Proposal struct {
	ID                uuid.UUID       `json:"id"`
	CompetitionID     uuid.UUID       `json:"competition"`
	FreelancerID      uuid.UUID       `json:"freelancer"`
	Title             string          `json:"title"`
	Description       string          `json:"description"`
	ProposedBudget    decimal.Decimal `json:"proposed_budget"`
	EstimatedDuration int             `json:"estimated_duration"`
	Status            ProposalStatus  `json:"status"`
	SubmissionNote    string          `json:"submission_note"`
	ClientScore       *int            `json:"client_score"`
	ClientNote        *string         `json:"client_note"`
	IsWinner          bool            `json:"is_winner"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// ProposalDetail - предложение с вложениями.
type ProposalDetail struct {
	Proposal
	Attachments []ProposalAttachment `json:"attachments"`
}

// BlindProposal - предложение для слепого просмотра заказчиком, без данных фрилансера.
type BlindProposal struct {
	ID                uuid.UUID       `json:"id"`
	Title             string          `json:"title"`
	Description       string          `json:"description"`
	ProposedBudget    decimal.Decimal `json:"proposed_budget"`
	EstimatedDuration int             `json:"estimated_duration"`
	ClientScore       *int            `json:"client_score"`
	CreatedAt         time.Time       `json:"created_at"`
}

// Blind скрывает личность автора.
func (p Proposal) Blind() BlindProposal {
	return BlindProposal{
		ID:                p.ID,
		Title:             p.Title,
		Description:       p.Description,
		ProposedBudget:    p.ProposedBudget,
		EstimatedDuration: p.EstimatedDuration,
		ClientScore:       p.ClientScore,
		CreatedAt:         p.CreatedAt,
	}
}

// ProposalRequest представляет структуру запроса для создания предложения.
type ProposalRequest struct {
	CompetitionID     uuid.UUID       `json:"competition" validate:"required"`
	Title             string          `json:"title" validate:"required,max=200"`
	Description       string          `json:"description" validate:"required"`
	ProposedBudget    decimal.Decimal `json:"proposed_budget"`
	EstimatedDuration int             `json:"estimated_duration" validate:"gt=0"`
	SubmissionNote    string          `json:"submission_note"`
}

// ProposalUpdate - правка предложения, nil поля не меняются.
type ProposalUpdate struct {
	Title             *string          `json:"title" validate:"omitempty,min=1,max=200"`
	Description       *string          `json:"description" validate:"omitempty,min=1"`
	ProposedBudget    *decimal.Decimal `json:"proposed_budget"`
	EstimatedDuration *int             `json:"estimated_duration" validate:"omitempty,gt=0"`
	SubmissionNote    *string          `json:"submission_note"`
}

// ScoreRequest - оценка предложения заказчиком.
type ScoreRequest struct {
	ClientScore int    `json:"client_score" validate:"min=1,max=5"`
	ClientNote  string `json:"client_note"`
}

// ProposalFilter - параметры выборки предложений фрилансера.
type ProposalFilter struct {
	CompetitionID *uuid.UUID
	Status        *ProposalStatus
	Limit         int
	Offset        int
}

// ProposalRevision - запись истории правок предложения.
type ProposalRevision struct {
	ID             uuid.UUID `json:"id"`
	ProposalID     uuid.UUID `json:"proposal"`
	RevisedByID    uuid.UUID `json:"revised_by"`
	Description    string    `json:"description"`
	RevisionNumber int       `json:"revision_number"`
	CreatedAt      time.Time `json:"created_at"`
}

// ProposalAttachment - файл, приложенный к предложению.
type ProposalAttachment struct {
	ID               uuid.UUID `json:"id"`
	ProposalID       uuid.UUID `json:"proposal"`
	StorageKey       string    `json:"-"`
	OriginalFilename string    `json:"original_filename"`
	FileSize         int64     `json:"file_size"`
	FileType         string    `json:"file_type"`
	Description      string    `json:"description"`
	UploadedAt       time.Time `json:"uploaded_at"`
}
