package submissions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/wolfman30/practice-crm/internal/accounts"
	"github.com/wolfman30/practice-crm/internal/actor"
	"github.com/wolfman30/practice-crm/internal/curagenesis"
	"github.com/wolfman30/practice-crm/internal/events"
	"github.com/wolfman30/practice-crm/internal/locking"
	"github.com/wolfman30/practice-crm/internal/observability/metrics"
	"github.com/wolfman30/practice-crm/pkg/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("crm.internal.submissions")

const (
	defaultReuseWindow = 24 * time.Hour
	defaultLockTTL     = 2 * time.Minute
)

// AccountReader loads an account with its contacts.
type AccountReader interface {
	GetByID(ctx context.Context, id string) (*accounts.Account, error)
}

// VendorClient submits intakes to CuraGenesis.
type VendorClient interface {
	SubmitIntake(ctx context.Context, payload *curagenesis.IntakePayload, idempotencyKey string) (*curagenesis.IntakeResult, error)
}

// RepDirectory resolves the owning rep for the payload rep block.
type RepDirectory interface {
	LookupRep(ctx context.Context, repID string) (*RepInfo, error)
}

// RepDirectoryFunc adapts a function to RepDirectory.
type RepDirectoryFunc func(ctx context.Context, repID string) (*RepInfo, error)

func (f RepDirectoryFunc) LookupRep(ctx context.Context, repID string) (*RepInfo, error) {
	return f(ctx, repID)
}

// Config tunes the dispatcher.
type Config struct {
	ReuseWindow time.Duration
	LockTTL     time.Duration
}

// Outcome is a successful dispatch.
type Outcome struct {
	Submission *Submission     `json:"submission"`
	Data       json.RawMessage `json:"data,omitempty"`
	Message    string          `json:"message"`
}

// Dispatcher pushes one account to the vendor and records the attempt.
type Dispatcher struct {
	accounts AccountReader
	reps     RepDirectory
	store    Store
	vendor   VendorClient
	locker   locking.Locker
	metrics  *metrics.DispatchMetrics
	logger   *logging.Logger
	cfg      Config
	now      func() time.Time
	newKey   func() string
}

// DispatcherDeps groups the dispatcher collaborators.
type DispatcherDeps struct {
	Accounts AccountReader
	Reps     RepDirectory
	Store    Store
	Vendor   VendorClient
	Locker   locking.Locker
	Metrics  *metrics.DispatchMetrics
	Logger   *logging.Logger
}

func NewDispatcher(deps DispatcherDeps, cfg Config) *Dispatcher {
	if deps.Accounts == nil || deps.Store == nil || deps.Vendor == nil {
		panic("submissions: accounts, store and vendor are required")
	}
	if deps.Locker == nil {
		deps.Locker = locking.NewLocalLocker()
	}
	if deps.Logger == nil {
		deps.Logger = logging.Default()
	}
	if cfg.ReuseWindow <= 0 {
		cfg.ReuseWindow = defaultReuseWindow
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = defaultLockTTL
	}
	return &Dispatcher{
		accounts: deps.Accounts,
		reps:     deps.Reps,
		store:    deps.Store,
		vendor:   deps.Vendor,
		locker:   deps.Locker,
		metrics:  deps.Metrics,
		logger:   deps.Logger,
		cfg:      cfg,
		now:      func() time.Time { return time.Now().UTC() },
		newKey:   uuid.NewString,
	}
}

// Dispatch sends one account to the vendor. Validation and lookup failures
// return before anything is written. Every vendor failure is persisted on
// the submission before a *VendorError is returned.
func (d *Dispatcher) Dispatch(ctx context.Context, accountID string) (*Outcome, error) {
	if accountID == "" {
		return nil, ErrMissingAccountID
	}
	ctx, span := tracer.Start(ctx, "submissions.dispatch")
	defer span.End()
	span.SetAttributes(attribute.String("crm.account_id", accountID))

	acct, err := d.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, accounts.ErrAccountNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, d.internal(span, "load account", err)
	}
	if len(acct.Contacts) == 0 {
		d.metrics.ObserveDispatch("REJECTED", "validation")
		return nil, ErrNoContacts
	}

	release, err := d.locker.Acquire(ctx, "dispatch:"+accountID, d.cfg.LockTTL)
	if err != nil {
		if errors.Is(err, locking.ErrLocked) {
			d.metrics.ObserveDispatch("REJECTED", "conflict")
			return nil, ErrDispatchInFlight
		}
		return nil, d.internal(span, "acquire dispatch lock", err)
	}
	// Writes after the vendor call must land even if the caller goes away.
	writeCtx := context.WithoutCancel(ctx)
	defer func() {
		if err := release(writeCtx); err != nil {
			d.logger.Warn("failed to release dispatch lock", "account_id", accountID, "error", err)
		}
	}()

	key, reused, err := d.resolveKey(ctx, accountID)
	if err != nil {
		return nil, d.internal(span, "resolve idempotency key", err)
	}
	span.SetAttributes(attribute.Bool("crm.idempotency_key_reused", reused))

	payload := BuildPayload(acct, d.lookupRep(ctx, acct))
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, d.internal(span, "marshal payload", err)
	}

	sub := &Submission{
		ID:             uuid.NewString(),
		AccountID:      acct.ID,
		RepID:          actor.RepIDPtr(ctx),
		IdempotencyKey: key,
		Status:         StatusPending,
		RequestPayload: body,
		CreatedAt:      d.now(),
	}
	if err := d.store.CreatePending(ctx, sub); err != nil {
		return nil, d.internal(span, "create submission", err)
	}
	d.logger.Info("dispatching account",
		"account_id", acct.ID,
		"submission_id", sub.ID,
		"idempotency_key_reused", reused,
	)

	started := time.Now()
	result, callErr := d.vendor.SubmitIntake(ctx, payload, key)
	res, vendorErr := d.buildResolution(acct, sub, result, callErr)
	d.metrics.ObserveVendorLatency(latencyOutcome(result, callErr), time.Since(started).Seconds())

	resolved, err := d.store.Resolve(writeCtx, res)
	if err != nil {
		// The row stays PENDING and shows up in the stale listing.
		d.logger.Error("failed to resolve submission", "submission_id", sub.ID, "account_id", acct.ID, "error", err)
		return nil, d.internal(span, "resolve submission", err)
	}

	if vendorErr != nil {
		vendorErr.Submission = resolved
		span.SetStatus(codes.Error, string(vendorErr.Kind))
		d.metrics.ObserveDispatch(string(StatusFailed), string(vendorErr.Kind))
		d.logger.Warn("dispatch failed",
			"account_id", acct.ID,
			"submission_id", sub.ID,
			"status", vendorErr.StatusCode,
			"kind", vendorErr.Kind,
		)
		return nil, vendorErr
	}

	d.metrics.ObserveDispatch(string(StatusSuccess), "")
	d.logger.Info("dispatch succeeded", "account_id", acct.ID, "submission_id", sub.ID)
	return &Outcome{
		Submission: resolved,
		Data:       result.Body,
		Message:    "Practice submitted to CuraGenesis",
	}, nil
}

// resolveKey reuses the key of the latest submission only when that attempt
// failed inside the reuse window. A key that ever reached the vendor as part
// of a success is never the latest FAILED one, so it is never reused.
func (d *Dispatcher) resolveKey(ctx context.Context, accountID string) (string, bool, error) {
	latest, err := d.store.LatestForAccount(ctx, accountID)
	if err != nil {
		return "", false, err
	}
	if latest != nil && latest.Status == StatusFailed && d.now().Sub(latest.CreatedAt) < d.cfg.ReuseWindow {
		return latest.IdempotencyKey, true, nil
	}
	return d.newKey(), false, nil
}

func (d *Dispatcher) lookupRep(ctx context.Context, acct *accounts.Account) *RepInfo {
	if d.reps == nil || acct.RepID == nil {
		return nil
	}
	rep, err := d.reps.LookupRep(ctx, *acct.RepID)
	if err != nil {
		d.logger.Warn("rep lookup failed, sending without rep block", "account_id", acct.ID, "rep_id", *acct.RepID, "error", err)
		return nil
	}
	return rep
}

func (d *Dispatcher) buildResolution(acct *accounts.Account, sub *Submission, result *curagenesis.IntakeResult, callErr error) (Resolution, *VendorError) {
	now := d.now()
	res := Resolution{
		SubmissionID: sub.ID,
		AccountID:    acct.ID,
		ResolvedAt:   now,
	}
	evt := events.SubmissionResolvedV1{
		SubmissionID:   sub.ID,
		AccountID:      acct.ID,
		AccountName:    acct.Name,
		IdempotencyKey: sub.IdempotencyKey,
		ResolvedAt:     now,
	}
	if acct.RepID != nil {
		evt.RepID = *acct.RepID
	}

	if callErr == nil && result.OK() {
		code := result.StatusCode
		res.Status = StatusSuccess
		res.HTTPCode = &code
		res.Response = nonEmptyJSON(result.Body)
		res.AccountStatus = accounts.StatusSubmitted
		if result.VendorUserID != "" {
			vid := result.VendorUserID
			res.VendorUserID = &vid
		}
		evt.Status = string(StatusSuccess)
		evt.HTTPCode = code
		res.Event = evt
		return res, nil
	}

	var (
		statusCode int
		timedOut   bool
		detail     string
	)
	if callErr != nil {
		timedOut = errors.Is(callErr, curagenesis.ErrTimeout)
		detail = callErr.Error()
		res.Response, _ = json.Marshal(map[string]string{"error": detail})
	} else {
		statusCode = result.StatusCode
		detail = result.Message
		res.Response = nonEmptyJSON(result.Body)
		res.HTTPCode = &statusCode
	}
	kind, _ := classify(statusCode, timedOut)
	friendly := FriendlyMessage(statusCode, timedOut)
	errMsg := friendly
	if detail != "" {
		errMsg = fmt.Sprintf("%s Vendor said: %s", friendly, detail)
	}

	res.Status = StatusFailed
	res.ErrorMessage = &errMsg
	res.AccountStatus = accounts.StatusPending
	evt.Status = string(StatusFailed)
	evt.HTTPCode = statusCode
	evt.Message = friendly
	res.Event = evt

	return res, &VendorError{
		Kind:       kind,
		StatusCode: statusCode,
		TimedOut:   timedOut,
		Message:    friendly,
		Detail:     detail,
	}
}

func (d *Dispatcher) internal(span trace.Span, op string, err error) error {
	wrapped := fmt.Errorf("submissions: %s: %w", op, err)
	span.RecordError(wrapped)
	d.metrics.ObserveDispatch("ERROR", "internal")
	return wrapped
}

func latencyOutcome(result *curagenesis.IntakeResult, err error) string {
	switch {
	case errors.Is(err, curagenesis.ErrTimeout):
		return "timeout"
	case err != nil:
		return "transport_error"
	case result.OK():
		return "success"
	default:
		return "vendor_error"
	}
}

func nonEmptyJSON(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage(`null`)
	}
	return raw
}
