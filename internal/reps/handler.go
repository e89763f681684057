package reps

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/wolfman30/practice-crm/pkg/logging"
)

// Handler exposes rep onboarding.
type Handler struct {
	svc    *Service
	logger *logging.Logger
}

func NewHandler(svc *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{svc: svc, logger: logger}
}

// AdminRoutes mounts invite and listing endpoints.
func (h *Handler) AdminRoutes(r chi.Router) {
	r.Post("/reps/invite", h.Invite)
	r.Get("/reps", h.List)
}

// PublicRoutes mounts the unauthenticated invite acceptance endpoint.
func (h *Handler) PublicRoutes(r chi.Router) {
	r.Post("/onboarding/accept", h.Accept)
}

// Invite handles POST /admin/reps/invite
func (h *Handler) Invite(w http.ResponseWriter, r *http.Request) {
	var req InviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	result, err := h.svc.Invite(r.Context(), req)
	if err != nil {
		h.writeError(w, "invite", err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

type acceptRequest struct {
	Token string `json:"token"`
}

// Accept handles POST /onboarding/accept
func (h *Handler) Accept(w http.ResponseWriter, r *http.Request) {
	var req acceptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	rep, err := h.svc.Accept(r.Context(), strings.TrimSpace(req.Token))
	if err != nil {
		h.writeError(w, "accept", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "rep": rep})
}

// List handles GET /admin/reps?status=
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	status := Status(strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("status"))))
	list, err := h.svc.List(r.Context(), status)
	if err != nil {
		h.writeError(w, "list", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reps": list, "count": len(list)})
}

func (h *Handler) writeError(w http.ResponseWriter, op string, err error) {
	switch {
	case IsValidation(err):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, ErrInvalidToken), errors.Is(err, ErrTokenExpired):
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": err.Error()})
	case errors.Is(err, ErrRepNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, ErrNoCorpEmailSlot):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, ErrTokensDisabled):
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
	default:
		h.logger.Error("rep request failed", "op", op, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
