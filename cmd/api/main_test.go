package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/wolfman30/practice-crm/internal/accounts"
	appconfig "github.com/wolfman30/practice-crm/internal/config"
	"github.com/wolfman30/practice-crm/internal/locking"
	"github.com/wolfman30/practice-crm/internal/reps"
	"github.com/wolfman30/practice-crm/pkg/logging"
)

func TestSetupMetricsExposesCollectors(t *testing.T) {
	handler, dispatch, webhook := setupMetrics()
	if handler == nil || dispatch == nil || webhook == nil {
		t.Fatalf("expected non-nil handler and metrics")
	}

	dispatch.ObserveDispatch("SUCCESS", "none")
	webhook.ObserveEvent("order.placed", "applied")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	body := rr.Body.String()
	for _, name := range []string{"crm_dispatch_total", "crm_webhook_events_total", "go_goroutines"} {
		if !strings.Contains(body, name) {
			t.Fatalf("expected %s to be exported", name)
		}
	}
}

func TestConnectPostgresPoolEmptyURLReturnsNil(t *testing.T) {
	logger := logging.New("error")
	if pool := connectPostgresPool(context.Background(), "", logger); pool != nil {
		t.Fatalf("expected nil pool for empty URL")
	}
}

func TestBuildStoresInMemoryGuardsAccountDelete(t *testing.T) {
	ctx := context.Background()
	st := buildStores(nil)

	acct, err := st.accounts.Create(ctx, &accounts.CreateAccountRequest{Name: "Harbor Dermatology"})
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	if err := st.accounts.Delete(ctx, acct.ID); err != nil {
		t.Fatalf("expected delete without submissions to succeed: %v", err)
	}
	if st.outbox == nil || st.processed == nil || st.documents == nil || st.reps == nil {
		t.Fatalf("expected every in-memory store to be wired")
	}
}

func TestSetupLockerFallsBackToLocal(t *testing.T) {
	locker, closeFn := setupLocker(context.Background(), &appconfig.Config{}, logging.New("error"))
	defer closeFn()
	if _, ok := locker.(*locking.LocalLocker); !ok {
		t.Fatalf("expected local locker, got %T", locker)
	}
}

func TestSetupLockerUsesRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	locker, closeFn := setupLocker(context.Background(), &appconfig.Config{RedisAddr: mr.Addr()}, logging.New("error"))
	defer closeFn()

	if _, ok := locker.(*locking.RedisLocker); !ok {
		t.Fatalf("expected redis locker, got %T", locker)
	}
	release, err := locker.Acquire(context.Background(), "acct-1", time.Minute)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if _, err := locker.Acquire(context.Background(), "acct-1", time.Minute); err == nil {
		t.Fatalf("expected second acquire to conflict")
	}
	_ = release(context.Background())
}

func TestSetupAWSSkipsWhenUnused(t *testing.T) {
	clients := setupAWS(context.Background(), &appconfig.Config{EmailProvider: "stub"}, logging.New("error"))
	if clients.ses != nil {
		t.Fatalf("expected no SES client")
	}
	if clients.objects == nil || clients.objects.Enabled() {
		t.Fatalf("expected a disabled object store")
	}
}

func TestSetupAWSBuildsClients(t *testing.T) {
	t.Setenv("AWS_EC2_METADATA_DISABLED", "true")
	cfg := &appconfig.Config{
		AWSRegion:          "us-east-1",
		AWSAccessKeyID:     "test",
		AWSSecretAccessKey: "test",
		DocumentsBucket:    "crm-documents",
		EmailProvider:      "ses",
	}
	clients := setupAWS(context.Background(), cfg, logging.New("error"))
	if clients.ses == nil {
		t.Fatalf("expected SES client")
	}
	if !clients.objects.Enabled() {
		t.Fatalf("expected documents storage to be enabled")
	}
}

func TestRepDirectoryAdapter(t *testing.T) {
	repo := reps.NewMemoryRepository(nil, nil)
	svc := reps.NewService(repo, reps.ServiceConfig{
		CorpEmailDomain: "crm.example",
		Tokens:          reps.NewInviteTokens("secret", time.Hour),
	})
	res, err := svc.Invite(context.Background(), reps.InviteRequest{
		FirstName:     "Ada",
		LastName:      "Byrne",
		PersonalEmail: "ada@personal.example",
	})
	if err != nil {
		t.Fatalf("invite: %v", err)
	}

	info, err := repDirectory(svc).LookupRep(context.Background(), res.Rep.ID)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if info.Name != "Ada Byrne" || info.Email == nil || *info.Email != "ada.byrne@crm.example" {
		t.Fatalf("unexpected rep info %+v", info)
	}
	if _, err := repDirectory(svc).LookupRep(context.Background(), "missing"); err == nil {
		t.Fatalf("expected lookup of unknown rep to fail")
	}
}
