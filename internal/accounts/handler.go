package accounts

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/wolfman30/practice-crm/internal/actor"
	"github.com/wolfman30/practice-crm/pkg/logging"
)

const maxImportBytes = 5 << 20

// Handler serves the account and contact endpoints.
type Handler struct {
	repo   Repository
	logger *logging.Logger
}

// NewHandler creates a new accounts handler
func NewHandler(repo Repository, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		repo:   repo,
		logger: logger,
	}
}

// Routes mounts the account endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/accounts", h.CreateAccount)
	r.Get("/accounts", h.ListAccounts)
	r.Post("/accounts/import", h.ImportCSV)
	r.Get("/accounts/{accountID}", h.GetAccount)
	r.Patch("/accounts/{accountID}", h.UpdateAccount)
	r.Delete("/accounts/{accountID}", h.DeleteAccount)
	r.Post("/accounts/{accountID}/contacts", h.AddContact)
	r.Put("/accounts/{accountID}/contacts/{contactID}", h.UpdateContact)
	r.Delete("/accounts/{accountID}/contacts/{contactID}", h.DeleteContact)
}

// CreateAccount handles POST /api/accounts
func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.RepID == nil {
		req.RepID = actor.RepIDPtr(r.Context())
	}

	acct, err := h.repo.Create(r.Context(), &req)
	if err != nil {
		h.writeError(w, "create account", err)
		return
	}

	h.logger.Info("account created", "account_id", acct.ID, "name", acct.Name)
	writeJSON(w, http.StatusCreated, acct)
}

// ListAccountsResponse is the response for listing accounts
type ListAccountsResponse struct {
	Accounts []*Account `json:"accounts"`
	Count    int        `json:"count"`
	Offset   int        `json:"offset"`
	Limit    int        `json:"limit"`
}

// ListAccounts handles GET /api/accounts
func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	filter := ListFilter{Limit: 50}
	q := r.URL.Query()
	if limitStr := q.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil && limit > 0 && limit <= 100 {
			filter.Limit = limit
		}
	}
	if offsetStr := q.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil && offset >= 0 {
			filter.Offset = offset
		}
	}
	if status := q.Get("status"); status != "" {
		filter.Status = NormalizeStatus(status)
	}
	filter.RepID = q.Get("rep_id")

	list, err := h.repo.List(r.Context(), filter)
	if err != nil {
		h.writeError(w, "list accounts", err)
		return
	}
	writeJSON(w, http.StatusOK, ListAccountsResponse{
		Accounts: list,
		Count:    len(list),
		Offset:   filter.Offset,
		Limit:    filter.Limit,
	})
}

// GetAccount handles GET /api/accounts/{accountID}
func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	acct, err := h.repo.GetByID(r.Context(), chi.URLParam(r, "accountID"))
	if err != nil {
		h.writeError(w, "get account", err)
		return
	}
	writeJSON(w, http.StatusOK, acct)
}

// UpdateAccount handles PATCH /api/accounts/{accountID}
func (h *Handler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	var req UpdateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	acct, err := h.repo.Update(r.Context(), chi.URLParam(r, "accountID"), &req)
	if err != nil {
		h.writeError(w, "update account", err)
		return
	}
	writeJSON(w, http.StatusOK, acct)
}

// DeleteAccount handles DELETE /api/accounts/{accountID}
func (h *Handler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "accountID")
	if err := h.repo.Delete(r.Context(), id); err != nil {
		h.writeError(w, "delete account", err)
		return
	}
	h.logger.Info("account deleted", "account_id", id)
	w.WriteHeader(http.StatusNoContent)
}

// AddContact handles POST /api/accounts/{accountID}/contacts
func (h *Handler) AddContact(w http.ResponseWriter, r *http.Request) {
	var req CreateContactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	c, err := h.repo.AddContact(r.Context(), chi.URLParam(r, "accountID"), &req)
	if err != nil {
		h.writeError(w, "add contact", err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// UpdateContact handles PUT /api/accounts/{accountID}/contacts/{contactID}
func (h *Handler) UpdateContact(w http.ResponseWriter, r *http.Request) {
	var req CreateContactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	c, err := h.repo.UpdateContact(r.Context(), chi.URLParam(r, "accountID"), chi.URLParam(r, "contactID"), &req)
	if err != nil {
		h.writeError(w, "update contact", err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// DeleteContact handles DELETE /api/accounts/{accountID}/contacts/{contactID}
func (h *Handler) DeleteContact(w http.ResponseWriter, r *http.Request) {
	if err := h.repo.DeleteContact(r.Context(), chi.URLParam(r, "accountID"), chi.URLParam(r, "contactID")); err != nil {
		h.writeError(w, "delete contact", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ImportCSV handles POST /api/accounts/import. The file may arrive as the
// multipart field "file" or as a raw text/csv body.
func (h *Handler) ImportCSV(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportBytes)

	body := r.Body
	if err := r.ParseMultipartForm(maxImportBytes); err == nil {
		file, _, err := r.FormFile("file")
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing file field"})
			return
		}
		defer file.Close()
		body = file
	}

	result, err := Import(r.Context(), h.repo, body, actor.RepIDPtr(r.Context()))
	if err != nil {
		if errors.Is(err, ErrImportHeader) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		h.writeError(w, "import accounts", err)
		return
	}

	h.logger.Info("accounts imported", "created", len(result.Created), "failed", len(result.Errors))
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) writeError(w http.ResponseWriter, op string, err error) {
	switch {
	case IsValidation(err):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, ErrAccountNotFound), errors.Is(err, ErrContactNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, ErrHasSubmissions):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	default:
		h.logger.Error("failed to "+op, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
