package submissions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/wolfman30/practice-crm/internal/accounts"
	"github.com/wolfman30/practice-crm/internal/events"
)

type pgxDB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

const submissionColumns = `id::text, account_id::text, rep_id::text, idempotency_key, status, http_code,
	request_payload, response_payload, error_message, created_at, resolved_at`

// PostgresStore stores submissions in Postgres.
type PostgresStore struct {
	db pgxDB
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	if pool == nil {
		panic("submissions: pgx pool required")
	}
	return &PostgresStore{db: pool}
}

func newPostgresStoreWithDB(db pgxDB) *PostgresStore {
	if db == nil {
		panic("submissions: db required")
	}
	return &PostgresStore{db: db}
}

func (s *PostgresStore) LatestForAccount(ctx context.Context, accountID string) (*Submission, error) {
	sub, err := scanSubmission(s.db.QueryRow(ctx, `
		SELECT `+submissionColumns+`
		FROM submissions
		WHERE account_id = $1
		ORDER BY created_at DESC
		LIMIT 1`, accountID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("submissions: latest for account: %w", err)
	}
	return sub, nil
}

func (s *PostgresStore) CreatePending(ctx context.Context, sub *Submission) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO submissions (id, account_id, rep_id, idempotency_key, status, request_payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		sub.ID, sub.AccountID, sub.RepID, sub.IdempotencyKey, string(StatusPending), []byte(sub.RequestPayload), sub.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("submissions: insert pending: %w", err)
	}
	return nil
}

// Resolve runs the three post-call writes in one transaction.
func (s *PostgresStore) Resolve(ctx context.Context, res Resolution) (*Submission, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("submissions: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	sub, err := scanSubmission(tx.QueryRow(ctx, `
		UPDATE submissions
		SET status = $2, http_code = $3, response_payload = $4, error_message = $5, resolved_at = $6
		WHERE id = $1 AND status = 'PENDING'
		RETURNING `+submissionColumns,
		res.SubmissionID, string(res.Status), res.HTTPCode, []byte(res.Response), res.ErrorMessage, res.ResolvedAt,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSubmissionResolved
		}
		return nil, fmt.Errorf("submissions: resolve: %w", err)
	}

	if err := accounts.ReconcileDispatchTx(ctx, tx, res.AccountID, res.AccountStatus, res.VendorUserID); err != nil {
		return nil, err
	}
	if _, err := events.AppendEvent(ctx, tx, res.AccountID, res.Event); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("submissions: commit: %w", err)
	}
	return sub, nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*Submission, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrSubmissionNotFound
	}
	sub, err := scanSubmission(s.db.QueryRow(ctx, `SELECT `+submissionColumns+` FROM submissions WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSubmissionNotFound
		}
		return nil, fmt.Errorf("submissions: get: %w", err)
	}
	return sub, nil
}

func (s *PostgresStore) ListByAccount(ctx context.Context, accountID string, limit int) ([]*Submission, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.list(ctx, `
		SELECT `+submissionColumns+`
		FROM submissions
		WHERE account_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, accountID, limit)
}

func (s *PostgresStore) ListStalePending(ctx context.Context, createdBefore time.Time, limit int) ([]*Submission, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.list(ctx, `
		SELECT `+submissionColumns+`
		FROM submissions
		WHERE status = 'PENDING' AND created_at < $1
		ORDER BY created_at
		LIMIT $2`, createdBefore, limit)
}

func (s *PostgresStore) HasSubmissions(ctx context.Context, accountID string) (bool, error) {
	var exists bool
	if err := s.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM submissions WHERE account_id = $1)`, accountID).Scan(&exists); err != nil {
		return false, fmt.Errorf("submissions: has submissions: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) list(ctx context.Context, query string, args ...any) ([]*Submission, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("submissions: list: %w", err)
	}
	defer rows.Close()
	out := []*Submission{}
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("submissions: scan: %w", err)
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

func scanSubmission(row pgx.Row) (*Submission, error) {
	var (
		sub      Submission
		status   string
		request  []byte
		response []byte
	)
	if err := row.Scan(&sub.ID, &sub.AccountID, &sub.RepID, &sub.IdempotencyKey, &status, &sub.HTTPCode,
		&request, &response, &sub.ErrorMessage, &sub.CreatedAt, &sub.ResolvedAt); err != nil {
		return nil, err
	}
	sub.Status = Status(status)
	sub.RequestPayload = request
	if len(response) > 0 {
		sub.ResponsePayload = response
	}
	return &sub, nil
}
