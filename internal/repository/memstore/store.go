// Package memstore - хранилище в памяти процесса для тестов и локального запуска.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/senyabanana/freelance-service/internal/models"
	"github.com/senyabanana/freelance-service/internal/repository"

	"github.com/google/uuid"
)

type bookmarkKey struct {
	competitionID uuid.UUID
	userID        uuid.UUID
}

type state struct {
	users         map[uuid.UUID]models.User
	competitions  map[uuid.UUID]models.Competition
	bookmarks     map[bookmarkKey]time.Time
	questions     map[uuid.UUID]models.CompetitionQuestion
	proposals     map[uuid.UUID]models.Proposal
	revisions     []models.ProposalRevision
	attachments   map[uuid.UUID]models.ProposalAttachment
	payments      map[uuid.UUID]models.PaymentRecord
	notifications map[uuid.UUID]models.Notification
	reviews       map[uuid.UUID]models.Review
	ratings       map[uuid.UUID]models.UserRating
	outbox        map[uuid.UUID]models.OutboxEvent
}

func newState() *state {
	return &state{
		users:         make(map[uuid.UUID]models.User),
		competitions:  make(map[uuid.UUID]models.Competition),
		bookmarks:     make(map[bookmarkKey]time.Time),
		questions:     make(map[uuid.UUID]models.CompetitionQuestion),
		proposals:     make(map[uuid.UUID]models.Proposal),
		attachments:   make(map[uuid.UUID]models.ProposalAttachment),
		payments:      make(map[uuid.UUID]models.PaymentRecord),
		notifications: make(map[uuid.UUID]models.Notification),
		reviews:       make(map[uuid.UUID]models.Review),
		ratings:       make(map[uuid.UUID]models.UserRating),
		outbox:        make(map[uuid.UUID]models.OutboxEvent),
	}
}

func cloneMap[K comparable, V any](src map[K]V) map[K]V {
	dst := make(map[K]V, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func (s *state) clone() *state {
	return &state{
		users:         cloneMap(s.users),
		competitions:  cloneMap(s.competitions),
		bookmarks:     cloneMap(s.bookmarks),
		questions:     cloneMap(s.questions),
		proposals:     cloneMap(s.proposals),
		revisions:     append([]models.ProposalRevision(nil), s.revisions...),
		attachments:   cloneMap(s.attachments),
		payments:      cloneMap(s.payments),
		notifications: cloneMap(s.notifications),
		reviews:       cloneMap(s.reviews),
		ratings:       cloneMap(s.ratings),
		outbox:        cloneMap(s.outbox),
	}
}

type shared struct {
	mu   sync.Mutex // защищает data
	txMu sync.Mutex // транзакции выполняются строго по очереди
	data *state
}

// Store - реализация repository.Store в памяти.
// Транзакции сериализуются, ошибка fn восстанавливает снимок состояния.
type Store struct {
	db   *shared
	inTx bool
}

var _ repository.Store = (*Store)(nil)

// New создаёт пустое хранилище.
func New() *Store {
	return &Store{db: &shared{data: newState()}}
}

func (s *Store) Users() repository.UserRepository { return &userRepo{db: s.db} }
func (s *Store) Competitions() repository.CompetitionRepository { return &competitionRepo{db: s.db} }
func (s *Store) Proposals() repository.ProposalRepository { return &proposalRepo{db: s.db} }
func (s *Store) Payments() repository.PaymentRepository { return &paymentRepo{db: s.db} }
func (s *Store) Notifications() repository.NotificationRepository { return &notificationRepo{db: s.db} }
func (s *Store) Reviews() repository.ReviewRepository { return &reviewRepo{db: s.db} }
func (s *Store) Outbox() repository.OutboxRepository { return &outboxRepo{db: s.db} }

// InTx выполняет fn под эксклюзивной блокировкой транзакций.
func (s *Store) InTx(ctx context.Context, fn func(tx repository.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.db.txMu.Lock()
	defer s.db.txMu.Unlock()

	s.db.mu.Lock()
	snapshot := s.db.data.clone()
	s.db.mu.Unlock()

	if err := fn(&Store{db: s.db, inTx: true}); err != nil {
		s.db.mu.Lock()
		s.db.data = snapshot
		s.db.mu.Unlock()
		return err
	}
	return nil
}

func (db *shared) lock() *state {
	db.mu.Lock()
	return db.data
}

func (db *shared) unlock() {
	db.mu.Unlock()
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

func sortNewestFirst[T any](items []T, created func(T) time.Time) {
	sort.SliceStable(items, func(i, j int) bool {
		return created(items[i]).After(created(items[j]))
	})
}
