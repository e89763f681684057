package documents

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Execer runs a statement inside a caller-owned transaction.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type pgxDB interface {
	Execer
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const documentColumns = `id::text, rep_id::text, kind, title, status, s3_key, content_type, size_bytes, created_at, uploaded_at`

// PostgresStore stores document metadata in Postgres.
type PostgresStore struct {
	db pgxDB
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	if pool == nil {
		panic("documents: pgx pool required")
	}
	return &PostgresStore{db: pool}
}

func newPostgresStoreWithDB(db pgxDB) *PostgresStore {
	if db == nil {
		panic("documents: db required")
	}
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, doc *Document) error {
	return InsertTx(ctx, s.db, doc)
}

// InsertTx inserts a document row with exec, typically a transaction that
// also creates the owning rep.
func InsertTx(ctx context.Context, exec Execer, doc *Document) error {
	_, err := exec.Exec(ctx, `
		INSERT INTO documents (id, rep_id, kind, title, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		doc.ID, doc.RepID, string(doc.Kind), doc.Title, doc.Status, doc.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("documents: insert: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*Document, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrDocumentNotFound
	}
	doc, err := scanDocument(s.db.QueryRow(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDocumentNotFound
		}
		return nil, fmt.Errorf("documents: get: %w", err)
	}
	return doc, nil
}

func (s *PostgresStore) ListByRep(ctx context.Context, repID string) ([]*Document, error) {
	if _, err := uuid.Parse(repID); err != nil {
		return []*Document{}, nil
	}
	rows, err := s.db.Query(ctx, `SELECT `+documentColumns+` FROM documents WHERE rep_id = $1 ORDER BY created_at, kind`, repID)
	if err != nil {
		return nil, fmt.Errorf("documents: list: %w", err)
	}
	defer rows.Close()
	out := []*Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("documents: scan: %w", err)
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

func (s *PostgresStore) MarkUploaded(ctx context.Context, id, key, contentType string, size int64, at time.Time) (*Document, error) {
	doc, err := scanDocument(s.db.QueryRow(ctx, `
		UPDATE documents
		SET status = $2, s3_key = $3, content_type = $4, size_bytes = $5, uploaded_at = $6
		WHERE id = $1
		RETURNING `+documentColumns,
		id, StatusUploaded, key, contentType, size, at,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDocumentNotFound
		}
		return nil, fmt.Errorf("documents: mark uploaded: %w", err)
	}
	return doc, nil
}

func scanDocument(row pgx.Row) (*Document, error) {
	var (
		doc  Document
		kind string
	)
	if err := row.Scan(&doc.ID, &doc.RepID, &kind, &doc.Title, &doc.Status, &doc.S3Key, &doc.ContentType,
		&doc.SizeBytes, &doc.CreatedAt, &doc.UploadedAt); err != nil {
		return nil, err
	}
	doc.Kind = Kind(kind)
	return &doc, nil
}
