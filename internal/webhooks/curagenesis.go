package webhooks

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/wolfman30/practice-crm/internal/accounts"
	"github.com/wolfman30/practice-crm/internal/curagenesis"
	"github.com/wolfman30/practice-crm/internal/events"
	"github.com/wolfman30/practice-crm/internal/observability/metrics"
	"github.com/wolfman30/practice-crm/pkg/logging"
)

const (
	provider = "curagenesis"

	EventOrderPlaced       = "order.placed"
	EventPracticeUpdated   = "practice.updated"
	EventPracticeActivated = "practice.activated"

	maxBodyBytes = 1 << 20
)

// AccountUpdater is the slice of the account repository the webhook needs.
type AccountUpdater interface {
	GetByID(ctx context.Context, id string) (*accounts.Account, error)
	GetByVendorUserID(ctx context.Context, vendorUserID string) (*accounts.Account, error)
	ApplyVendorUpdate(ctx context.Context, upd accounts.VendorUpdate) (*accounts.Account, error)
}

// CuraGenesisHandler applies vendor practice and order events to accounts.
type CuraGenesisHandler struct {
	verifier  *curagenesis.Verifier
	accounts  AccountUpdater
	processed events.ProcessedTracker
	metrics   *metrics.WebhookMetrics
	logger    *logging.Logger
}

func NewCuraGenesisHandler(
	verifier *curagenesis.Verifier,
	accts AccountUpdater,
	processed events.ProcessedTracker,
	m *metrics.WebhookMetrics,
	logger *logging.Logger,
) *CuraGenesisHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &CuraGenesisHandler{
		verifier:  verifier,
		accounts:  accts,
		processed: processed,
		metrics:   m,
		logger:    logger,
	}
}

type envelope struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	CreatedAt string      `json:"created_at"`
	Data      eventFields `json:"data"`
}

type eventFields struct {
	ExternalID string `json:"external_id"`
	PracticeID string `json:"practice_id"`
	UserID     string `json:"user_id"`
	Status     string `json:"status"`
	OrderID    string `json:"order_id"`
	OrderedAt  string `json:"ordered_at"`
}

func (f eventFields) vendorID() string {
	if f.PracticeID != "" {
		return f.PracticeID
	}
	return f.UserID
}

// Handle processes POST /webhooks/curagenesis.
func (h *CuraGenesisHandler) Handle(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		h.metrics.ObserveEvent("unknown", "bad_request")
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	if err := h.verifier.Verify(r.Header.Get(curagenesis.HeaderTimestamp), r.Header.Get(curagenesis.HeaderSignature), payload); err != nil {
		h.logger.Warn("curagenesis webhook signature rejected", "error", err)
		h.metrics.ObserveEvent("unknown", "invalid_signature")
		if errors.Is(err, curagenesis.ErrWebhookSecret) {
			http.Error(w, "webhook not configured", http.StatusServiceUnavailable)
			return
		}
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	var evt envelope
	if err := json.Unmarshal(payload, &evt); err != nil {
		h.logger.Error("failed to decode curagenesis event", "error", err)
		h.metrics.ObserveEvent("unknown", "bad_request")
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if evt.ID == "" {
		h.metrics.ObserveEvent(evt.Type, "bad_request")
		http.Error(w, "missing event id", http.StatusBadRequest)
		return
	}
	defer func() { h.metrics.ObserveLatency(evt.Type, time.Since(started).Seconds()) }()

	upd, ok := updateFor(evt)
	if !ok {
		h.logger.Info("ignoring curagenesis event", "event_id", evt.ID, "type", evt.Type)
		h.metrics.ObserveEvent(evt.Type, "ignored")
		w.WriteHeader(http.StatusOK)
		return
	}

	if processed, err := h.processed.AlreadyProcessed(r.Context(), provider, evt.ID); err != nil {
		h.logger.Error("processed lookup failed", "error", err)
		h.metrics.ObserveEvent(evt.Type, "error")
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	} else if processed {
		h.metrics.ObserveEvent(evt.Type, "duplicate")
		w.WriteHeader(http.StatusOK)
		return
	}

	acct, err := h.resolveAccount(r.Context(), evt.Data)
	if err != nil {
		if errors.Is(err, accounts.ErrAccountNotFound) {
			// Acknowledge so the vendor stops retrying an event we cannot place.
			h.logger.Warn("curagenesis event for unknown account",
				"event_id", evt.ID,
				"type", evt.Type,
				"external_id", evt.Data.ExternalID,
				"practice_id", evt.Data.vendorID(),
			)
			h.metrics.ObserveEvent(evt.Type, "unknown_account")
			w.WriteHeader(http.StatusOK)
			return
		}
		h.logger.Error("account lookup failed", "event_id", evt.ID, "error", err)
		h.metrics.ObserveEvent(evt.Type, "error")
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	upd.AccountID = acct.ID
	updated, err := h.accounts.ApplyVendorUpdate(r.Context(), upd)
	if err != nil {
		h.logger.Error("failed to apply curagenesis event", "event_id", evt.ID, "account_id", acct.ID, "error", err)
		h.metrics.ObserveEvent(evt.Type, "error")
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	if _, err := h.processed.MarkProcessed(r.Context(), provider, evt.ID); err != nil {
		h.logger.Error("failed to record processed event", "event_id", evt.ID, "error", err)
	}
	h.logger.Info("curagenesis event applied",
		"event_id", evt.ID,
		"type", evt.Type,
		"account_id", updated.ID,
		"status", updated.Status,
		"order_count", updated.OrderCount,
	)
	h.metrics.ObserveEvent(evt.Type, "applied")
	w.WriteHeader(http.StatusOK)
}

func (h *CuraGenesisHandler) resolveAccount(ctx context.Context, data eventFields) (*accounts.Account, error) {
	if id := strings.TrimSpace(data.ExternalID); id != "" {
		acct, err := h.accounts.GetByID(ctx, id)
		if err == nil || !errors.Is(err, accounts.ErrAccountNotFound) {
			return acct, err
		}
	}
	if vid := strings.TrimSpace(data.vendorID()); vid != "" {
		return h.accounts.GetByVendorUserID(ctx, vid)
	}
	return nil, accounts.ErrAccountNotFound
}

// updateFor maps an event onto an account update. ok is false for event
// types we do not act on.
func updateFor(evt envelope) (accounts.VendorUpdate, bool) {
	upd := accounts.VendorUpdate{OccurredAt: parseTime(evt.CreatedAt)}
	if vid := strings.TrimSpace(evt.Data.vendorID()); vid != "" {
		upd.VendorUserID = &vid
	}
	switch evt.Type {
	case EventOrderPlaced:
		upd.OrderPlaced = true
		if at := parseTime(evt.Data.OrderedAt); !at.IsZero() {
			upd.OccurredAt = at
		}
	case EventPracticeActivated:
		upd.Activate = true
	case EventPracticeUpdated:
		upd.Activate = strings.EqualFold(evt.Data.Status, "active")
	default:
		return upd, false
	}
	if upd.OccurredAt.IsZero() {
		upd.OccurredAt = time.Now().UTC()
	}
	return upd, true
}

func parseTime(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}
