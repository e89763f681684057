package reps

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/wolfman30/practice-crm/internal/documents"
	"github.com/wolfman30/practice-crm/internal/events"
)

type pgxDB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

const repColumns = `id::text, first_name, last_name, personal_email, corp_email, status, invited_at, activated_at, created_at, updated_at`

// PostgresRepository stores reps in Postgres.
type PostgresRepository struct {
	db pgxDB
}

func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("reps: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

func newPostgresRepositoryWithDB(db pgxDB) *PostgresRepository {
	if db == nil {
		panic("reps: db required")
	}
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) CorpEmailTaken(ctx context.Context, email string) (bool, error) {
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM reps WHERE lower(corp_email) = lower($1))`, email).Scan(&exists); err != nil {
		return false, fmt.Errorf("reps: corp email lookup: %w", err)
	}
	return exists, nil
}

func (r *PostgresRepository) CreateInvited(ctx context.Context, rep *Rep, docs []documents.Document, evt events.RepInvitedV1) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("reps: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO reps (id, first_name, last_name, personal_email, corp_email, status, invited_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)`,
		rep.ID, rep.FirstName, rep.LastName, rep.PersonalEmail, rep.CorpEmail, string(rep.Status), rep.InvitedAt, rep.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrCorpEmailTaken
		}
		return fmt.Errorf("reps: insert: %w", err)
	}
	for i := range docs {
		if err := documents.InsertTx(ctx, tx, &docs[i]); err != nil {
			return err
		}
	}
	if _, err := events.AppendEvent(ctx, tx, rep.ID, evt); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("reps: commit: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Rep, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrRepNotFound
	}
	rep, err := scanRep(r.db.QueryRow(ctx, `SELECT `+repColumns+` FROM reps WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRepNotFound
		}
		return nil, fmt.Errorf("reps: get: %w", err)
	}
	return rep, nil
}

func (r *PostgresRepository) Activate(ctx context.Context, id string, at time.Time) (*Rep, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrRepNotFound
	}
	rep, err := scanRep(r.db.QueryRow(ctx, `
		UPDATE reps
		SET status = $2, activated_at = COALESCE(activated_at, $3), updated_at = $3
		WHERE id = $1
		RETURNING `+repColumns, id, string(StatusActive), at))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRepNotFound
		}
		return nil, fmt.Errorf("reps: activate: %w", err)
	}
	return rep, nil
}

func (r *PostgresRepository) List(ctx context.Context, status Status) ([]*Rep, error) {
	query := `SELECT ` + repColumns + ` FROM reps`
	args := []any{}
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at DESC`
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("reps: list: %w", err)
	}
	defer rows.Close()
	out := []*Rep{}
	for rows.Next() {
		rep, err := scanRep(rows)
		if err != nil {
			return nil, fmt.Errorf("reps: scan: %w", err)
		}
		out = append(out, rep)
	}
	return out, rows.Err()
}

func scanRep(row pgx.Row) (*Rep, error) {
	var (
		rep    Rep
		status string
	)
	if err := row.Scan(&rep.ID, &rep.FirstName, &rep.LastName, &rep.PersonalEmail, &rep.CorpEmail, &status,
		&rep.InvitedAt, &rep.ActivatedAt, &rep.CreatedAt, &rep.UpdatedAt); err != nil {
		return nil, err
	}
	rep.Status = Status(status)
	return &rep, nil
}
