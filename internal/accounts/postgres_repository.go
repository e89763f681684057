package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Execer is satisfied by pgx pools and transactions.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type pgxDB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

const accountColumns = `id::text, name, specialty, state, address_line1, address_line2, city, zip,
	tax_id, npi, phone, email, website, status, vendor_user_id, rep_id::text,
	order_count, sync_count, last_order_at, created_at, updated_at`

const contactColumns = `id::text, account_id::text, kind, first_name, last_name, title, email, phone, created_at, updated_at`

// PostgresRepository stores accounts and contacts in Postgres.
type PostgresRepository struct {
	db pgxDB
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("accounts: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

func newPostgresRepositoryWithDB(db pgxDB) *PostgresRepository {
	if db == nil {
		panic("accounts: db required")
	}
	return &PostgresRepository{db: db}
}

// Create inserts the account and any initial contacts in one transaction.
func (r *PostgresRepository) Create(ctx context.Context, req *CreateAccountRequest) (*Account, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("accounts: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	id := uuid.NewString()
	row := tx.QueryRow(ctx, `
		INSERT INTO accounts (id, name, specialty, state, address_line1, address_line2, city, zip,
			tax_id, npi, phone, email, website, status, rep_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING `+accountColumns,
		id, req.Name, req.Specialty, req.State, req.AddressLine1, req.AddressLine2, req.City, req.Zip,
		req.TaxID, req.NPI, req.Phone, req.Email, req.Website, string(StatusPending), req.RepID,
	)
	acct, err := scanAccount(row)
	if err != nil {
		return nil, fmt.Errorf("accounts: insert failed: %w", err)
	}

	for i := range req.Contacts {
		c, err := insertContact(ctx, tx, acct.ID, &req.Contacts[i])
		if err != nil {
			return nil, err
		}
		acct.Contacts = append(acct.Contacts, *c)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("accounts: commit: %w", err)
	}
	return acct, nil
}

// GetByID fetches an account with its contacts.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Account, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrAccountNotFound
	}
	acct, err := scanAccount(r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("accounts: select failed: %w", err)
	}
	contacts, err := r.ListContacts(ctx, id)
	if err != nil {
		return nil, err
	}
	acct.Contacts = contacts
	return acct, nil
}

func (r *PostgresRepository) GetByVendorUserID(ctx context.Context, vendorUserID string) (*Account, error) {
	acct, err := scanAccount(r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE vendor_user_id = $1`, vendorUserID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("accounts: select by vendor id failed: %w", err)
	}
	return acct, nil
}

func (r *PostgresRepository) List(ctx context.Context, filter ListFilter) ([]*Account, error) {
	var (
		where []string
		args  []any
	)
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.RepID != "" {
		args = append(args, filter.RepID)
		where = append(where, fmt.Sprintf("rep_id = $%d", len(args)))
	}
	query := `SELECT ` + accountColumns + ` FROM accounts`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit, filter.Offset)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("accounts: list failed: %w", err)
	}
	defer rows.Close()

	out := []*Account{}
	for rows.Next() {
		acct, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("accounts: scan failed: %w", err)
		}
		out = append(out, acct)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) Update(ctx context.Context, id string, req *UpdateAccountRequest) (*Account, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	acct, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	req.apply(acct)
	row := r.db.QueryRow(ctx, `
		UPDATE accounts SET name = $2, specialty = $3, state = $4, address_line1 = $5, address_line2 = $6,
			city = $7, zip = $8, tax_id = $9, npi = $10, phone = $11, email = $12, website = $13,
			rep_id = $14, updated_at = now()
		WHERE id = $1
		RETURNING `+accountColumns,
		id, acct.Name, acct.Specialty, acct.State, acct.AddressLine1, acct.AddressLine2, acct.City,
		acct.Zip, acct.TaxID, acct.NPI, acct.Phone, acct.Email, acct.Website, acct.RepID,
	)
	updated, err := scanAccount(row)
	if err != nil {
		return nil, fmt.Errorf("accounts: update failed: %w", err)
	}
	updated.Contacts = acct.Contacts
	return updated, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrAccountNotFound
	}
	ct, err := r.db.Exec(ctx, `
		DELETE FROM accounts
		WHERE id = $1 AND NOT EXISTS (SELECT 1 FROM submissions WHERE account_id = $1)`, id)
	if err != nil {
		return fmt.Errorf("accounts: delete failed: %w", err)
	}
	if ct.RowsAffected() > 0 {
		return nil
	}
	var exists int
	if err := r.db.QueryRow(ctx, `SELECT 1 FROM accounts WHERE id = $1`, id).Scan(&exists); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrAccountNotFound
		}
		return fmt.Errorf("accounts: delete lookup failed: %w", err)
	}
	return ErrHasSubmissions
}

func (r *PostgresRepository) ListContacts(ctx context.Context, accountID string) ([]Contact, error) {
	rows, err := r.db.Query(ctx, `SELECT `+contactColumns+` FROM contacts WHERE account_id = $1 ORDER BY created_at ASC`, accountID)
	if err != nil {
		return nil, fmt.Errorf("accounts: list contacts failed: %w", err)
	}
	defer rows.Close()

	out := []Contact{}
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, fmt.Errorf("accounts: scan contact failed: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) AddContact(ctx context.Context, accountID string, req *CreateContactRequest) (*Contact, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(accountID); err != nil {
		return nil, ErrAccountNotFound
	}
	c, err := insertContact(ctx, r.db, accountID, req)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return c, nil
}

func (r *PostgresRepository) UpdateContact(ctx context.Context, accountID, contactID string, req *CreateContactRequest) (*Contact, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	row := r.db.QueryRow(ctx, `
		UPDATE contacts SET kind = $3, first_name = $4, last_name = $5, title = $6, email = $7, phone = $8,
			updated_at = now()
		WHERE id = $1 AND account_id = $2
		RETURNING `+contactColumns,
		contactID, accountID, string(req.Kind), req.FirstName, req.LastName, req.Title, req.Email, req.Phone,
	)
	c, err := scanContact(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrContactNotFound
		}
		return nil, fmt.Errorf("accounts: update contact failed: %w", err)
	}
	return c, nil
}

func (r *PostgresRepository) DeleteContact(ctx context.Context, accountID, contactID string) error {
	ct, err := r.db.Exec(ctx, `DELETE FROM contacts WHERE id = $1 AND account_id = $2`, contactID, accountID)
	if err != nil {
		return fmt.Errorf("accounts: delete contact failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrContactNotFound
	}
	return nil
}

func (r *PostgresRepository) SetStatus(ctx context.Context, id string, status Status) error {
	ct, err := r.db.Exec(ctx, `UPDATE accounts SET status = $2, updated_at = now() WHERE id = $1`, id, string(status))
	if err != nil {
		return fmt.Errorf("accounts: set status failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (r *PostgresRepository) ReconcileDispatch(ctx context.Context, id string, status Status, vendorUserID *string) error {
	return ReconcileDispatchTx(ctx, r.db, id, status, vendorUserID)
}

// ReconcileDispatchTx updates the account after a dispatch inside the
// caller's transaction. An ACTIVE account keeps its status.
func ReconcileDispatchTx(ctx context.Context, exec Execer, id string, status Status, vendorUserID *string) error {
	ct, err := exec.Exec(ctx, `
		UPDATE accounts
		SET status = CASE WHEN status = 'ACTIVE' THEN status ELSE $2 END,
			vendor_user_id = COALESCE(vendor_user_id, $3), updated_at = now()
		WHERE id = $1`, id, string(status), vendorUserID)
	if err != nil {
		return fmt.Errorf("accounts: reconcile dispatch failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// ApplyVendorUpdate folds a webhook event into the account counters.
func (r *PostgresRepository) ApplyVendorUpdate(ctx context.Context, upd VendorUpdate) (*Account, error) {
	orderInc := 0
	var lastOrder any
	if upd.OrderPlaced {
		orderInc = 1
		lastOrder = upd.OccurredAt
	}
	row := r.db.QueryRow(ctx, `
		UPDATE accounts SET
			vendor_user_id = COALESCE($2, vendor_user_id),
			order_count = order_count + $3,
			last_order_at = COALESCE($4, last_order_at),
			status = CASE WHEN $5 THEN 'ACTIVE' ELSE status END,
			sync_count = sync_count + 1,
			updated_at = now()
		WHERE id = $1
		RETURNING `+accountColumns,
		upd.AccountID, upd.VendorUserID, orderInc, lastOrder, upd.Activate || upd.OrderPlaced,
	)
	acct, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("accounts: apply vendor update failed: %w", err)
	}
	return acct, nil
}

type contactInserter interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func insertContact(ctx context.Context, db contactInserter, accountID string, req *CreateContactRequest) (*Contact, error) {
	row := db.QueryRow(ctx, `
		INSERT INTO contacts (id, account_id, kind, first_name, last_name, title, email, phone)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+contactColumns,
		uuid.NewString(), accountID, string(req.Kind), req.FirstName, req.LastName, req.Title, req.Email, req.Phone,
	)
	c, err := scanContact(row)
	if err != nil {
		return nil, fmt.Errorf("accounts: insert contact failed: %w", err)
	}
	return c, nil
}

func scanAccount(row pgx.Row) (*Account, error) {
	var (
		a      Account
		status string
	)
	if err := row.Scan(
		&a.ID, &a.Name, &a.Specialty, &a.State, &a.AddressLine1, &a.AddressLine2, &a.City, &a.Zip,
		&a.TaxID, &a.NPI, &a.Phone, &a.Email, &a.Website, &status, &a.VendorUserID, &a.RepID,
		&a.OrderCount, &a.SyncCount, &a.LastOrderAt, &a.CreatedAt, &a.UpdatedAt,
	); err != nil {
		return nil, err
	}
	a.Status = NormalizeStatus(status)
	return &a, nil
}

func scanContact(row pgx.Row) (*Contact, error) {
	var (
		c    Contact
		kind string
	)
	if err := row.Scan(&c.ID, &c.AccountID, &kind, &c.FirstName, &c.LastName, &c.Title, &c.Email, &c.Phone, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.Kind = ContactKind(kind)
	return &c, nil
}
