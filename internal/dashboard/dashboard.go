// Package dashboard serves the sales KPI overview.
package dashboard

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/wolfman30/practice-crm/internal/accounts"
	"github.com/wolfman30/practice-crm/internal/submissions"
	"github.com/wolfman30/practice-crm/pkg/logging"
)

const (
	submissionWindow  = 30 * 24 * time.Hour
	defaultStaleAfter = 15 * time.Minute
)

var accountStatuses = []string{
	string(accounts.StatusPending),
	string(accounts.StatusSubmitted),
	string(accounts.StatusActive),
}

// Handler serves GET /dashboard.
type Handler struct {
	db         *sql.DB
	staleAfter time.Duration
	logger     *logging.Logger
	now        func() time.Time
}

// NewHandler creates a dashboard handler. staleAfter controls when a PENDING
// submission counts as stuck.
func NewHandler(db *sql.DB, staleAfter time.Duration, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	if staleAfter <= 0 {
		staleAfter = defaultStaleAfter
	}
	return &Handler{db: db, staleAfter: staleAfter, logger: logger, now: time.Now}
}

// Overview is the dashboard response.
type Overview struct {
	RepID              string         `json:"rep_id,omitempty"`
	GeneratedAt        time.Time      `json:"generated_at"`
	AccountsByStatus   map[string]int `json:"accounts_by_status"`
	ActiveAccounts     int            `json:"active_accounts"`
	SubmissionsByState map[string]int `json:"submissions_last_30_days"`
	SuccessRate        float64        `json:"success_rate"`
	TotalVendorOrders  int            `json:"total_vendor_orders"`
	StalePending       int            `json:"stale_pending_submissions"`
}

// Routes registers the dashboard endpoint.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/dashboard", h.GetOverview)
}

// GetOverview returns KPIs, optionally scoped to one rep.
// GET /dashboard?rep_id=
func (h *Handler) GetOverview(w http.ResponseWriter, r *http.Request) {
	repID := strings.TrimSpace(r.URL.Query().Get("rep_id"))
	if repID != "" {
		if _, err := uuid.Parse(repID); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "rep_id must be a UUID"})
			return
		}
	}

	overview, err := h.Load(r.Context(), repID)
	if err != nil {
		h.logger.Error("dashboard: load overview", "rep_id", repID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "error": "Failed to load dashboard"})
		return
	}
	writeJSON(w, http.StatusOK, overview)
}

// Load runs the KPI queries. An empty repID covers every account.
func (h *Handler) Load(ctx context.Context, repID string) (*Overview, error) {
	now := h.now().UTC()
	out := &Overview{
		RepID:              repID,
		GeneratedAt:        now,
		AccountsByStatus:   map[string]int{},
		SubmissionsByState: map[string]int{},
	}
	for _, status := range accountStatuses {
		out.AccountsByStatus[status] = 0
	}

	if err := h.countByStatus(ctx, out.AccountsByStatus,
		`SELECT status, COUNT(*) FROM accounts
		WHERE status = ANY($1) AND ($2 = '' OR rep_id::text = $2)
		GROUP BY status`,
		pq.Array(accountStatuses), repID,
	); err != nil {
		return nil, fmt.Errorf("dashboard: accounts by status: %w", err)
	}
	out.ActiveAccounts = out.AccountsByStatus[string(accounts.StatusActive)]

	if err := h.countByStatus(ctx, out.SubmissionsByState,
		`SELECT status, COUNT(*) FROM submissions
		WHERE created_at >= $1 AND ($2 = '' OR rep_id::text = $2)
		GROUP BY status`,
		now.Add(-submissionWindow), repID,
	); err != nil {
		return nil, fmt.Errorf("dashboard: submissions by status: %w", err)
	}
	out.SuccessRate = successRate(out.SubmissionsByState)

	if err := h.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(order_count), 0) FROM accounts WHERE ($1 = '' OR rep_id::text = $1)`,
		repID,
	).Scan(&out.TotalVendorOrders); err != nil {
		return nil, fmt.Errorf("dashboard: vendor orders: %w", err)
	}

	if err := h.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM submissions
		WHERE status = $1 AND created_at < $2 AND ($3 = '' OR rep_id::text = $3)`,
		string(submissions.StatusPending), now.Add(-h.staleAfter), repID,
	).Scan(&out.StalePending); err != nil {
		return nil, fmt.Errorf("dashboard: stale pending: %w", err)
	}

	return out, nil
}

func (h *Handler) countByStatus(ctx context.Context, into map[string]int, query string, args ...any) error {
	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return err
		}
		into[status] = count
	}
	return rows.Err()
}

// successRate is SUCCESS over resolved submissions, rounded to a percent
// with one decimal. PENDING rows are excluded.
func successRate(byStatus map[string]int) float64 {
	ok := byStatus[string(submissions.StatusSuccess)]
	resolved := ok + byStatus[string(submissions.StatusFailed)]
	if resolved == 0 {
		return 0
	}
	rate := float64(ok) / float64(resolved) * 100
	return float64(int(rate*10+0.5)) / 10
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
