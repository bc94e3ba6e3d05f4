package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CompetitionStatus string // Статус конкурса

const (
	DraftCompetition     CompetitionStatus = "DRAFT"     // Черновик
	OpenCompetition      CompetitionStatus = "OPEN"      // Приём предложений
	ReviewCompetition    CompetitionStatus = "REVIEW"    // Рассмотрение предложений
	ClosedCompetition    CompetitionStatus = "CLOSED"    // Победитель выбран
	CancelledCompetition CompetitionStatus = "CANCELLED" // Конкурс отменён
)

// competitionTransitions - допустимые переходы статуса конкурса.
var competitionTransitions = map[CompetitionStatus][]CompetitionStatus{
	DraftCompetition:     {OpenCompetition, CancelledCompetition},
	OpenCompetition:      {ReviewCompetition, CancelledCompetition},
	ReviewCompetition:    {ClosedCompetition},
	ClosedCompetition:    {},
	CancelledCompetition: {},
}

// AllowedTransitions возвращает статусы, в которые можно перейти из текущего.
func (s CompetitionStatus) AllowedTransitions() []CompetitionStatus {
	allowed := competitionTransitions[s]
	out := make([]CompetitionStatus, len(allowed))
	copy(out, allowed)
	return out
}

// CanTransitionTo проверяет переход по таблице.
func (s CompetitionStatus) CanTransitionTo(target CompetitionStatus) bool {
	for _, st := range competitionTransitions[s] {
		if st == target {
			return true
		}
	}
	return false
}

// IsTerminal - конкурс закрыт или отменён.
func (s CompetitionStatus) IsTerminal() bool {
	return s == ClosedCompetition || s == CancelledCompetition
}

// Valid проверяет, что статус известен.
func (s CompetitionStatus) Valid() bool {
	_, ok := competitionTransitions[s]
	return ok
}

// Competition представляет модель конкурса.
type Competition struct {
	ID                 uuid.UUID         `json:"id"`
	ClientID           uuid.UUID         `json:"client"`
	Title              string            `json:"title"`
	Description        string            `json:"description"`
	Requirements       string            `json:"requirements"`
	Budget             decimal.Decimal   `json:"budget"`
	Currency           string            `json:"currency"`
	Deadline           time.Time         `json:"deadline"`
	SubmissionDeadline time.Time         `json:"submission_deadline"`
	Status             CompetitionStatus `json:"status"`
	Category           string            `json:"category"`
	Tags               string            `json:"tags"`
	MaxProposals       *int              `json:"max_proposals"`
	AllowQuestions     bool              `json:"allow_questions"`
	WinnerID           *uuid.UUID        `json:"winner"`
	WinningProposalID  *uuid.UUID        `json:"winning_proposal"`
	CreatedAt          time.Time         `json:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at"`
}

// IsOpen - конкурс принимает предложения в момент now.
func (c *Competition) IsOpen(now time.Time) bool {
	return c.Status == OpenCompetition && c.SubmissionDeadline.After(now)
}

// CompetitionDetail - конкурс с производными полями для карточки.
type CompetitionDetail struct {
	Competition
	ClientUsername string                `json:"client_username"`
	ProposalCount  int                   `json:"proposal_count"`
	IsOpen         bool                  `json:"is_open"`
	Questions      []CompetitionQuestion `json:"questions"`
}

// CompetitionRequest представляет структуру запроса для создания конкурса.
type CompetitionRequest struct {
	Title              string          `json:"title" validate:"required,max=200"`
	Description        string          `json:"description" validate:"required"`
	Requirements       string          `json:"requirements" validate:"required"`
	Budget             decimal.Decimal `json:"budget"`
	Currency           string          `json:"currency" validate:"omitempty,len=3,alpha"`
	Deadline           time.Time       `json:"deadline" validate:"required"`
	SubmissionDeadline time.Time       `json:"submission_deadline" validate:"required"`
	Category           string          `json:"category" validate:"required,max=100"`
	Tags               string          `json:"tags"`
	MaxProposals       *int            `json:"max_proposals" validate:"omitempty,gt=0"`
	AllowQuestions     *bool           `json:"allow_questions"`
}

// CompetitionUpdate - частичное обновление конкурса, nil поля не меняются.
type CompetitionUpdate struct {
	Title              *string          `json:"title" validate:"omitempty,min=1,max=200"`
	Description        *string          `json:"description" validate:"omitempty,min=1"`
	Requirements       *string          `json:"requirements" validate:"omitempty,min=1"`
	Budget             *decimal.Decimal `json:"budget"`
	Deadline           *time.Time       `json:"deadline"`
	SubmissionDeadline *time.Time       `json:"submission_deadline"`
	Category           *string          `json:"category" validate:"omitempty,min=1,max=100"`
	Tags               *string          `json:"tags"`
	MaxProposals       *int             `json:"max_proposals" validate:"omitempty,gt=0"`
	AllowQuestions     *bool            `json:"allow_questions"`
}

// StatusRequest - тело запроса смены статуса.
type StatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// SelectWinnerRequest - тело запроса выбора победителя.
type SelectWinnerRequest struct {
	ProposalID string `json:"proposal_id"`
}

// CompetitionFilter - параметры выборки конкурсов.
type CompetitionFilter struct {
	Status     *CompetitionStatus
	ClientID   *uuid.UUID
	Search     string
	Categories []string
	MinBudget  *decimal.Decimal
	MaxBudget  *decimal.Decimal
	Ordering   string
	Limit      int
	Offset     int
}

// CompetitionQuestion - вопрос фрилансера по конкурсу.
type CompetitionQuestion struct {
	ID            uuid.UUID  `json:"id"`
	CompetitionID uuid.UUID  `json:"competition"`
	AskedByID     uuid.UUID  `json:"asked_by"`
	Question      string     `json:"question"`
	Answer        *string    `json:"answer"`
	AnsweredAt    *time.Time `json:"answered_at"`
	AnsweredByID  *uuid.UUID `json:"answered_by"`
	IsPublic      bool       `json:"is_public"`
	CreatedAt     time.Time  `json:"created_at"`
}

// QuestionRequest - тело запроса вопроса.
type QuestionRequest struct {
	Question string `json:"question" validate:"required"`
}

// AnswerRequest - тело запроса ответа на вопрос.
type AnswerRequest struct {
	Answer   string `json:"answer" validate:"required"`
	IsPublic *bool  `json:"is_public"`
}
