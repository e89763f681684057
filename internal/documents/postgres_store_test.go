package documents

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

var documentCols = []string{"id", "rep_id", "kind", "title", "status", "s3_key", "content_type", "size_bytes", "created_at", "uploaded_at"}

func TestPostgresStore_MarkUploaded(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()
	store := newPostgresStoreWithDB(mock)

	id := uuid.NewString()
	repID := uuid.NewString()
	key := "reps/" + repID + "/" + id + "/nda.pdf"
	ct := "application/pdf"
	now := time.Now().UTC()

	mock.ExpectQuery("UPDATE documents").
		WithArgs(id, StatusUploaded, key, ct, int64(42), now).
		WillReturnRows(pgxmock.NewRows(documentCols).AddRow(id, repID, "NDA", "Non-Disclosure Agreement", StatusUploaded, &key, &ct, int64(42), now, &now))

	doc, err := store.MarkUploaded(context.Background(), id, key, ct, 42, now)
	if err != nil {
		t.Fatalf("mark uploaded: %v", err)
	}
	if doc.Kind != KindNDA || doc.S3Key == nil || *doc.S3Key != key {
		t.Fatalf("unexpected document %#v", doc)
	}

	mock.ExpectQuery("UPDATE documents").WillReturnError(pgx.ErrNoRows)
	if _, err := store.MarkUploaded(context.Background(), id, key, ct, 42, now); !errors.Is(err, ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPostgresStore_CreateAndList(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()
	store := newPostgresStoreWithDB(mock)
	repID := uuid.NewString()
	docs := OnboardingStubs(repID, time.Now().UTC())

	mock.ExpectExec("INSERT INTO documents").
		WithArgs(docs[0].ID, repID, "W9", "W-9", StatusPending, docs[0].CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	if err := store.Create(context.Background(), &docs[0]); err != nil {
		t.Fatalf("create: %v", err)
	}

	rows := pgxmock.NewRows(documentCols)
	for _, d := range docs {
		rows.AddRow(d.ID, repID, string(d.Kind), d.Title, d.Status, (*string)(nil), (*string)(nil), int64(0), d.CreatedAt, (*time.Time)(nil))
	}
	mock.ExpectQuery("FROM documents WHERE rep_id").WithArgs(repID).WillReturnRows(rows)
	list, err := store.ListByRep(context.Background(), repID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 documents, got %d", len(list))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
