package repository_test

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/senyabanana/freelance-service/internal/models"
	"github.com/senyabanana/freelance-service/internal/repository"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

var (
	testPool   *pgxpool.Pool
	skipReason string
)

func TestMain(m *testing.M) {
	flag.Parse()
	if testing.Short() {
		skipReason = "postgres tests are skipped in short mode"
		os.Exit(m.Run())
	}

	ctx := context.Background()
	container, dsn, err := startPostgres(ctx)
	if err != nil {
		skipReason = fmt.Sprintf("postgres container unavailable: %v", err)
		os.Exit(m.Run())
	}

	code := func() int {
		defer func() { _ = container.Terminate(ctx) }()

		if err := migrateUp(dsn); err != nil {
			fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
			return 1
		}
		pool, err := pgxpool.New(ctx, dsn)
		if err != nil {
			fmt.Fprintf(os.Stderr, "connect: %v\n", err)
			return 1
		}
		defer pool.Close()
		testPool = pool
		return m.Run()
	}()
	os.Exit(code)
}

func startPostgres(ctx context.Context) (testcontainers.Container, string, error) {
	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "freelance",
			"POSTGRES_PASSWORD": "secret",
			"POSTGRES_DB":       "freelance",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(90 * time.Second),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, "", err
	}

	host, err := container.Host(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, "", err
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, "", err
	}
	dsn := fmt.Sprintf("postgres://freelance:secret@%s:%s/freelance?sslmode=disable", host, port.Port())
	return container, dsn, nil
}

func migrateUp(dsn string) error {
	migration, err := migrate.New("file://../../migrations", dsn)
	if err != nil {
		return err
	}
	defer migration.Close()
	if err := migration.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

// newPostgresStore возвращает хранилище поверх чистой схемы.
func newPostgresStore(t *testing.T) *repository.PostgresStore {
	t.Helper()
	if testPool == nil {
		t.Skip(skipReason)
	}
	_, err := testPool.Exec(context.Background(), `
		TRUNCATE users, competitions, proposals, payment_records, notifications, reviews, user_ratings, outbox_events CASCADE`)
	require.NoError(t, err)
	return repository.NewPostgresStore(testPool)
}

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func createUser(t *testing.T, store repository.Store, role models.Role) *models.User {
	t.Helper()
	id := uuid.New()
	u := &models.User{
		ID:           id,
		Email:        id.String() + "@example.com",
		Username:     "user-" + id.String()[:8],
		Role:         role,
		PasswordHash: "hash",
		IsActive:     true,
		DateJoined:   testNow,
	}
	require.NoError(t, store.Users().CreateUser(context.Background(), u))
	return u
}

func createCompetition(t *testing.T, store repository.Store, clientID uuid.UUID, status models.CompetitionStatus, mutate ...func(*models.Competition)) *models.Competition {
	t.Helper()
	c := &models.Competition{
		ID:                 uuid.New(),
		ClientID:           clientID,
		Title:              "Landing page",
		Description:        "Design a landing page",
		Requirements:       "Figma source",
		Budget:             decimal.RequireFromString("500.00"),
		Currency:           "USD",
		Deadline:           testNow.Add(30 * 24 * time.Hour),
		SubmissionDeadline: testNow.Add(7 * 24 * time.Hour),
		Status:             status,
		Category:           "design",
		AllowQuestions:     true,
		CreatedAt:          testNow,
		UpdatedAt:          testNow,
	}
	for _, fn := range mutate {
		fn(c)
	}
	require.NoError(t, store.Competitions().CreateCompetition(context.Background(), c))
	return c
}

func newProposal(competitionID, freelancerID uuid.UUID, created time.Time) *models.Proposal {
	return &models.Proposal{
		ID:                uuid.New(),
		CompetitionID:     competitionID,
		FreelancerID:      freelancerID,
		Title:             "My proposal",
		Description:       "I will do it",
		ProposedBudget:    decimal.RequireFromString("450.00"),
		EstimatedDuration: 10,
		Status:            models.SubmittedProposal,
		CreatedAt:         created,
		UpdatedAt:         created,
	}
}

func createProposal(t *testing.T, store repository.Store, competitionID, freelancerID uuid.UUID, created time.Time) *models.Proposal {
	t.Helper()
	p := newProposal(competitionID, freelancerID, created)
	require.NoError(t, store.Proposals().CreateProposal(context.Background(), p))
	return p
}
