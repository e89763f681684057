package reps

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfman30/practice-crm/internal/documents"
	"github.com/wolfman30/practice-crm/internal/events"
)

type repHarness struct {
	repo   *MemoryRepository
	docs   *documents.MemoryStore
	outbox *events.MemoryOutbox
	svc    *Service
}

func newRepHarness(t *testing.T) *repHarness {
	t.Helper()
	h := &repHarness{docs: documents.NewMemoryStore(), outbox: events.NewMemoryOutbox()}
	h.repo = NewMemoryRepository(h.docs, h.outbox)
	h.svc = NewService(h.repo, ServiceConfig{
		CorpEmailDomain: "crm.example",
		PublicBaseURL:   "https://app.crm.example",
		Tokens:          NewInviteTokens("invite-secret", 7*24*time.Hour),
	})
	return h
}

func validInvite() InviteRequest {
	return InviteRequest{FirstName: "Jordan", LastName: "Lee", PersonalEmail: " Jordan@Personal.example "}
}

func TestService_InviteCreatesRepDocumentsAndEvent(t *testing.T) {
	h := newRepHarness(t)

	res, err := h.svc.Invite(context.Background(), validInvite())
	require.NoError(t, err)
	assert.Equal(t, StatusInvited, res.Rep.Status)
	assert.Equal(t, "jordan.lee@crm.example", res.Rep.CorpEmail)
	assert.Equal(t, "jordan@personal.example", res.Rep.PersonalEmail)
	assert.True(t, strings.HasPrefix(res.InviteURL, "https://app.crm.example/onboarding/accept?token="))

	docs, err := h.docs.ListByRep(context.Background(), res.Rep.ID)
	require.NoError(t, err)
	assert.Len(t, docs, 3)

	pending := h.outbox.Pending(events.TypeRepInvited)
	require.Len(t, pending, 1)
	var evt events.RepInvitedV1
	require.NoError(t, json.Unmarshal(pending[0].Payload, &evt))
	assert.Equal(t, res.Rep.ID, evt.RepID)
	assert.Equal(t, res.InviteURL, evt.InviteURL)

	second, err := h.svc.Invite(context.Background(), validInvite())
	require.NoError(t, err)
	assert.Equal(t, "jordan.lee2@crm.example", second.Rep.CorpEmail)
}

func TestService_InviteValidation(t *testing.T) {
	h := newRepHarness(t)
	_, err := h.svc.Invite(context.Background(), InviteRequest{FirstName: "Jordan", PersonalEmail: "j@p.example"})
	assert.ErrorIs(t, err, ErrInvalidName)
	_, err = h.svc.Invite(context.Background(), InviteRequest{FirstName: "Jordan", LastName: "Lee", PersonalEmail: "not-an-email"})
	assert.ErrorIs(t, err, ErrInvalidEmail)
	assert.Empty(t, h.outbox.Pending(""))
}

type racingRepo struct {
	*MemoryRepository
	collisions int
}

func (r *racingRepo) CreateInvited(ctx context.Context, rep *Rep, docs []documents.Document, evt events.RepInvitedV1) error {
	if r.collisions > 0 {
		r.collisions--
		return ErrCorpEmailTaken
	}
	return r.MemoryRepository.CreateInvited(ctx, rep, docs, evt)
}

func TestService_InviteRetriesCorpEmailRace(t *testing.T) {
	repo := &racingRepo{MemoryRepository: NewMemoryRepository(nil, nil), collisions: 2}
	svc := NewService(repo, ServiceConfig{CorpEmailDomain: "crm.example", Tokens: NewInviteTokens("s", time.Hour)})

	res, err := svc.Invite(context.Background(), validInvite())
	require.NoError(t, err)
	assert.Equal(t, "jordan.lee@crm.example", res.Rep.CorpEmail)

	repo.collisions = maxInviteAttempts
	_, err = svc.Invite(context.Background(), InviteRequest{FirstName: "Sam", LastName: "Park", PersonalEmail: "sam@p.example"})
	assert.ErrorIs(t, err, ErrNoCorpEmailSlot)
}

func TestService_AcceptIsIdempotent(t *testing.T) {
	h := newRepHarness(t)
	res, err := h.svc.Invite(context.Background(), validInvite())
	require.NoError(t, err)
	token := tokenFrom(t, res.InviteURL)

	rep, err := h.svc.Accept(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, rep.Status)
	require.NotNil(t, rep.ActivatedAt)
	first := *rep.ActivatedAt

	again, err := h.svc.Accept(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, again.Status)
	assert.Equal(t, first, *again.ActivatedAt)

	_, err = h.svc.Accept(context.Background(), "")
	assert.ErrorIs(t, err, ErrMissingToken)
}

func TestService_AcceptUnknownRep(t *testing.T) {
	h := newRepHarness(t)
	token, _, err := h.svc.tokens.Issue("ghost")
	require.NoError(t, err)
	_, err = h.svc.Accept(context.Background(), token)
	assert.True(t, errors.Is(err, ErrRepNotFound))
}

func tokenFrom(t *testing.T, inviteURL string) string {
	t.Helper()
	u, err := url.Parse(inviteURL)
	require.NoError(t, err)
	return u.Query().Get("token")
}

func newRepRouter(h *repHarness) http.Handler {
	handler := NewHandler(h.svc, nil)
	r := chi.NewRouter()
	handler.PublicRoutes(r)
	r.Route("/admin", handler.AdminRoutes)
	return r
}

func postJSON(router http.Handler, path string, body any) *httptest.ResponseRecorder {
	data, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHandler_InviteAcceptList(t *testing.T) {
	h := newRepHarness(t)
	router := newRepRouter(h)

	rec := postJSON(router, "/admin/reps/invite", validInvite())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var res InviteResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))

	rec = postJSON(router, "/onboarding/accept", map[string]string{"token": tokenFrom(t, res.InviteURL)})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ACTIVE"`)

	rec = postJSON(router, "/onboarding/accept", map[string]string{"token": "forged"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = postJSON(router, "/admin/reps/invite", map[string]string{"first_name": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/admin/reps?status=active", nil)
	list := httptest.NewRecorder()
	router.ServeHTTP(list, req)
	require.Equal(t, http.StatusOK, list.Code)
	assert.Contains(t, list.Body.String(), `"count":1`)
}
