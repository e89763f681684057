package submissions

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/wolfman30/practice-crm/internal/accounts"
	"github.com/wolfman30/practice-crm/internal/events"
)

var submissionCols = []string{
	"id", "account_id", "rep_id", "idempotency_key", "status", "http_code",
	"request_payload", "response_payload", "error_message", "created_at", "resolved_at",
}

func intPtr(v int) *int { return &v }

func TestPostgresStore_ResolveRunsInOneTransaction(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()
	store := newPostgresStoreWithDB(mock)

	subID := uuid.NewString()
	accountID := uuid.NewString()
	created := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	resolved := created.Add(2 * time.Second)
	vendorID := "cg-9"

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE submissions").
		WithArgs(subID, "SUCCESS", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), resolved).
		WillReturnRows(pgxmock.NewRows(submissionCols).AddRow(
			subID, accountID, (*string)(nil), "key-1", "SUCCESS", intPtr(201),
			[]byte(`{"external_id":"x"}`), []byte(`{"practice_id":"cg-9"}`), (*string)(nil), created, &resolved,
		))
	mock.ExpectExec("UPDATE accounts").
		WithArgs(accountID, "SUBMITTED", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("INSERT INTO outbox").
		WithArgs(pgxmock.AnyArg(), accountID, events.TypeSubmissionResolved, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	sub, err := store.Resolve(context.Background(), Resolution{
		SubmissionID:  subID,
		AccountID:     accountID,
		Status:        StatusSuccess,
		HTTPCode:      intPtr(201),
		Response:      []byte(`{"practice_id":"cg-9"}`),
		AccountStatus: accounts.StatusSubmitted,
		VendorUserID:  &vendorID,
		ResolvedAt:    resolved,
		Event:         events.SubmissionResolvedV1{SubmissionID: subID, AccountID: accountID, Status: "SUCCESS"},
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if sub.Status != StatusSuccess || sub.HTTPCode == nil || *sub.HTTPCode != 201 || sub.ResolvedAt == nil {
		t.Fatalf("unexpected submission %#v", sub)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPostgresStore_ResolveAlreadyResolved(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()
	store := newPostgresStoreWithDB(mock)

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE submissions").WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()

	_, err = store.Resolve(context.Background(), Resolution{SubmissionID: uuid.NewString(), Status: StatusFailed})
	if !errors.Is(err, ErrSubmissionResolved) {
		t.Fatalf("expected ErrSubmissionResolved, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPostgresStore_ResolveRollsBackWhenAccountMissing(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()
	store := newPostgresStoreWithDB(mock)
	subID := uuid.NewString()
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE submissions").
		WillReturnRows(pgxmock.NewRows(submissionCols).AddRow(
			subID, "gone", (*string)(nil), "key-1", "FAILED", intPtr(422),
			[]byte(`{}`), []byte(`{}`), strPtr("rejected"), now, &now,
		))
	mock.ExpectExec("UPDATE accounts").WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectRollback()

	_, err = store.Resolve(context.Background(), Resolution{SubmissionID: subID, AccountID: "gone", Status: StatusFailed, AccountStatus: accounts.StatusPending})
	if !errors.Is(err, accounts.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPostgresStore_LatestForAccount(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()
	store := newPostgresStoreWithDB(mock)
	accountID := uuid.NewString()

	mock.ExpectQuery("FROM submissions").WithArgs(accountID).WillReturnError(pgx.ErrNoRows)
	latest, err := store.LatestForAccount(context.Background(), accountID)
	if err != nil || latest != nil {
		t.Fatalf("expected no submission, got %#v / %v", latest, err)
	}

	created := time.Now().UTC()
	mock.ExpectQuery("FROM submissions").WithArgs(accountID).
		WillReturnRows(pgxmock.NewRows(submissionCols).AddRow(
			uuid.NewString(), accountID, strPtr("rep-1"), "key-7", "FAILED", (*int)(nil),
			[]byte(`{}`), []byte(nil), strPtr("Could not reach CuraGenesis."), created, &created,
		))
	latest, err = store.LatestForAccount(context.Background(), accountID)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest.IdempotencyKey != "key-7" || latest.Status != StatusFailed || latest.HTTPCode != nil {
		t.Fatalf("unexpected latest %#v", latest)
	}
	if latest.ResponsePayload != nil {
		t.Fatalf("expected empty response payload, got %s", latest.ResponsePayload)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPostgresStore_CreatePendingAndHasSubmissions(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()
	store := newPostgresStoreWithDB(mock)
	sub := &Submission{
		ID:             uuid.NewString(),
		AccountID:      uuid.NewString(),
		IdempotencyKey: "key-1",
		RequestPayload: []byte(`{"external_id":"a"}`),
		CreatedAt:      time.Now().UTC(),
	}

	mock.ExpectExec("INSERT INTO submissions").
		WithArgs(sub.ID, sub.AccountID, pgxmock.AnyArg(), "key-1", "PENDING", pgxmock.AnyArg(), sub.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery("SELECT EXISTS").WithArgs(sub.AccountID).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	if err := store.CreatePending(context.Background(), sub); err != nil {
		t.Fatalf("create pending: %v", err)
	}
	has, err := store.HasSubmissions(context.Background(), sub.AccountID)
	if err != nil || !has {
		t.Fatalf("expected submissions, got %v / %v", has, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPostgresStore_GetRejectsMalformedID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()
	store := newPostgresStoreWithDB(mock)

	if _, err := store.Get(context.Background(), "not-a-uuid"); !errors.Is(err, ErrSubmissionNotFound) {
		t.Fatalf("expected ErrSubmissionNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
