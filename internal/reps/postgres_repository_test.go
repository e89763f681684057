package reps

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/wolfman30/practice-crm/internal/documents"
	"github.com/wolfman30/practice-crm/internal/events"
)

var repCols = []string{"id", "first_name", "last_name", "personal_email", "corp_email", "status", "invited_at", "activated_at", "created_at", "updated_at"}

func newInvitedRep() *Rep {
	now := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)
	return &Rep{
		ID:            uuid.NewString(),
		FirstName:     "Jordan",
		LastName:      "Lee",
		PersonalEmail: "jordan@personal.example",
		CorpEmail:     "jordan.lee@crm.example",
		Status:        StatusInvited,
		InvitedAt:     now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func TestPostgresRepository_CreateInvitedTransaction(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()
	repo := newPostgresRepositoryWithDB(mock)
	rep := newInvitedRep()
	docs := documents.OnboardingStubs(rep.ID, rep.CreatedAt)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO reps").
		WithArgs(rep.ID, "Jordan", "Lee", rep.PersonalEmail, rep.CorpEmail, "INVITED", rep.InvitedAt, rep.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	for range docs {
		mock.ExpectExec("INSERT INTO documents").WillReturnResult(pgxmock.NewResult("INSERT", 1))
	}
	mock.ExpectExec("INSERT INTO outbox").
		WithArgs(pgxmock.AnyArg(), rep.ID, events.TypeRepInvited, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	if err := repo.CreateInvited(context.Background(), rep, docs, events.RepInvitedV1{RepID: rep.ID}); err != nil {
		t.Fatalf("create invited: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPostgresRepository_CreateInvitedUniqueViolation(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()
	repo := newPostgresRepositoryWithDB(mock)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO reps").WillReturnError(&pgconn.PgError{Code: "23505"})
	mock.ExpectRollback()

	err = repo.CreateInvited(context.Background(), newInvitedRep(), nil, events.RepInvitedV1{})
	if !errors.Is(err, ErrCorpEmailTaken) {
		t.Fatalf("expected ErrCorpEmailTaken, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPostgresRepository_Activate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()
	repo := newPostgresRepositoryWithDB(mock)
	rep := newInvitedRep()
	at := rep.CreatedAt.Add(time.Hour)

	mock.ExpectQuery("UPDATE reps").
		WithArgs(rep.ID, "ACTIVE", at).
		WillReturnRows(pgxmock.NewRows(repCols).AddRow(rep.ID, rep.FirstName, rep.LastName, rep.PersonalEmail,
			rep.CorpEmail, "ACTIVE", rep.InvitedAt, &at, rep.CreatedAt, at))

	got, err := repo.Activate(context.Background(), rep.ID, at)
	if err != nil {
		t.Fatalf("activate: %v", err)
	}
	if got.Status != StatusActive || got.ActivatedAt == nil {
		t.Fatalf("unexpected rep %#v", got)
	}
	if _, err := repo.Activate(context.Background(), "nope", at); !errors.Is(err, ErrRepNotFound) {
		t.Fatalf("expected ErrRepNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
