package submissions

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/wolfman30/practice-crm/internal/accounts"
	"github.com/wolfman30/practice-crm/pkg/logging"
)

// Handler serves the dispatch and submission history endpoints.
type Handler struct {
	dispatch   DispatchFunc
	bulk       *BulkDispatcher
	store      Store
	accounts   AccountReader
	staleAfter time.Duration
	logger     *logging.Logger
}

// HandlerConfig wires the handler.
type HandlerConfig struct {
	Dispatch   DispatchFunc
	Bulk       *BulkDispatcher
	Store      Store
	Accounts   AccountReader
	StaleAfter time.Duration
	Logger     *logging.Logger
}

func NewHandler(cfg HandlerConfig) *Handler {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = 15 * time.Minute
	}
	return &Handler{
		dispatch:   cfg.Dispatch,
		bulk:       cfg.Bulk,
		store:      cfg.Store,
		accounts:   cfg.Accounts,
		staleAfter: cfg.StaleAfter,
		logger:     cfg.Logger,
	}
}

// Routes mounts the rep-facing endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/submissions/send", h.Send)
	r.Post("/accounts/bulk-send", h.BulkSend)
	r.Get("/accounts/{accountID}/submissions", h.ListForAccount)
	r.Get("/submissions/{submissionID}", h.Get)
}

// AdminRoutes mounts reconciliation endpoints.
func (h *Handler) AdminRoutes(r chi.Router) {
	r.Get("/submissions/stale", h.ListStale)
}

type sendRequest struct {
	AccountID string `json:"accountId"`
}

type sendResponse struct {
	Success    bool            `json:"success"`
	Submission *Submission     `json:"submission,omitempty"`
	Data       json.RawMessage `json:"data,omitempty"`
	Message    string          `json:"message,omitempty"`
	Error      string          `json:"error,omitempty"`
	Details    string          `json:"details,omitempty"`
	Retryable  *bool           `json:"retryable,omitempty"`
}

// Send handles POST /submissions/send
func (h *Handler) Send(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, sendResponse{Error: "invalid request body"})
		return
	}

	outcome, err := h.dispatch(r.Context(), req.AccountID)
	if err != nil {
		status, message := StatusFor(err)
		resp := sendResponse{Error: message}
		var vendorErr *VendorError
		if errors.As(err, &vendorErr) {
			retryable := vendorErr.Retryable()
			resp.Submission = vendorErr.Submission
			resp.Details = vendorErr.Detail
			resp.Retryable = &retryable
		} else if status == http.StatusInternalServerError {
			h.logger.Error("dispatch failed", "account_id", req.AccountID, "error", err)
		}
		writeJSON(w, status, resp)
		return
	}

	writeJSON(w, http.StatusOK, sendResponse{
		Success:    true,
		Submission: outcome.Submission,
		Data:       outcome.Data,
		Message:    outcome.Message,
	})
}

type bulkRequest struct {
	AccountIDs []string `json:"accountIds"`
}

// BulkSend handles POST /accounts/bulk-send
func (h *Handler) BulkSend(w http.ResponseWriter, r *http.Request) {
	var req bulkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "invalid request body"})
		return
	}
	result, err := h.bulk.Run(r.Context(), req.AccountIDs)
	if err != nil {
		status, message := StatusFor(err)
		writeJSON(w, status, map[string]any{"success": false, "error": message})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "results": result})
}

// ListForAccount handles GET /accounts/{accountID}/submissions
func (h *Handler) ListForAccount(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")
	if _, err := h.accounts.GetByID(r.Context(), accountID); err != nil {
		if errors.Is(err, accounts.ErrAccountNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": ErrAccountNotFound.Error()})
			return
		}
		h.logger.Error("failed to load account", "account_id", accountID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if v, err := strconv.Atoi(limitStr); err == nil && v > 0 && v <= 200 {
			limit = v
		}
	}
	list, err := h.store.ListByAccount(r.Context(), accountID, limit)
	if err != nil {
		h.logger.Error("failed to list submissions", "account_id", accountID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"submissions": list, "count": len(list)})
}

// Get handles GET /submissions/{submissionID}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	sub, err := h.store.Get(r.Context(), chi.URLParam(r, "submissionID"))
	if err != nil {
		if errors.Is(err, ErrSubmissionNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
			return
		}
		h.logger.Error("failed to get submission", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

// ListStale handles GET /admin/submissions/stale
func (h *Handler) ListStale(w http.ResponseWriter, r *http.Request) {
	olderThan := h.staleAfter
	if raw := r.URL.Query().Get("older_than"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "older_than must be a positive duration such as 15m"})
			return
		}
		olderThan = d
	}
	list, err := h.store.ListStalePending(r.Context(), time.Now().UTC().Add(-olderThan), 200)
	if err != nil {
		h.logger.Error("failed to list stale submissions", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"submissions": list,
		"count":       len(list),
		"older_than":  olderThan.String(),
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
