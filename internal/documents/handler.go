package documents

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/wolfman30/practice-crm/pkg/logging"
)

const maxUploadBytes = 10 << 20

// Handler serves document upload, download links and listings.
type Handler struct {
	store   Store
	objects *ObjectStore
	logger  *logging.Logger
	now     func() time.Time
}

func NewHandler(store Store, objects *ObjectStore, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{store: store, objects: objects, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/documents/{documentID}/upload", h.Upload)
	r.Get("/documents/{documentID}/link", h.Link)
	r.Get("/reps/{repID}/documents", h.ListForRep)
}

// Upload handles POST /documents/{documentID}/upload?filename=
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.load(w, r)
	if !ok {
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxUploadBytes+1))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}
	switch {
	case len(body) == 0:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": ErrEmptyUpload.Error()})
		return
	case len(body) > maxUploadBytes:
		writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": ErrUploadTooLarge.Error()})
		return
	}

	contentType := strings.TrimSpace(r.Header.Get("Content-Type"))
	if contentType == "" {
		contentType = http.DetectContentType(body)
	}
	filename := r.URL.Query().Get("filename")
	if filename == "" {
		filename = strings.ToLower(string(doc.Kind))
	}
	key := ObjectKey(doc.RepID, doc.ID, filename)

	if err := h.objects.Put(r.Context(), key, contentType, bytes.NewReader(body), int64(len(body))); err != nil {
		h.writeStorageError(w, "upload", doc.ID, err)
		return
	}
	updated, err := h.store.MarkUploaded(r.Context(), doc.ID, key, contentType, int64(len(body)), h.now())
	if err != nil {
		h.logger.Error("failed to mark document uploaded", "document_id", doc.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// Link handles GET /documents/{documentID}/link
func (h *Handler) Link(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.load(w, r)
	if !ok {
		return
	}
	if doc.Status != StatusUploaded || doc.S3Key == nil {
		writeJSON(w, http.StatusConflict, map[string]string{"error": ErrNotUploaded.Error()})
		return
	}
	url, expires, err := h.objects.PresignGet(r.Context(), *doc.S3Key)
	if err != nil {
		h.writeStorageError(w, "presign", doc.ID, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"url": url, "expires_at": expires})
}

// ListForRep handles GET /reps/{repID}/documents
func (h *Handler) ListForRep(w http.ResponseWriter, r *http.Request) {
	docs, err := h.store.ListByRep(r.Context(), chi.URLParam(r, "repID"))
	if err != nil {
		h.logger.Error("failed to list documents", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": docs, "count": len(docs)})
}

func (h *Handler) load(w http.ResponseWriter, r *http.Request) (*Document, bool) {
	doc, err := h.store.Get(r.Context(), chi.URLParam(r, "documentID"))
	if err != nil {
		if errors.Is(err, ErrDocumentNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
			return nil, false
		}
		h.logger.Error("failed to load document", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return nil, false
	}
	return doc, true
}

func (h *Handler) writeStorageError(w http.ResponseWriter, op, docID string, err error) {
	if errors.Is(err, ErrStorageDisabled) {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
		return
	}
	h.logger.Error("document storage failed", "op", op, "document_id", docID, "error", err)
	writeJSON(w, http.StatusBadGateway, map[string]string{"error": "document storage unavailable"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
