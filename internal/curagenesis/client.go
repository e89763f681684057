package curagenesis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/wolfman30/practice-crm/pkg/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	defaultBaseURL   = "https://api.curagenesis.com"
	defaultUserAgent = "practice-crm/1.0"
	defaultTimeout   = 10 * time.Second
	maxResponseBytes = 1 << 20
)

var tracer = otel.Tracer("crm.internal.curagenesis")

// Config controls how the vendor client behaves.
type Config struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	DryRun     bool
	HTTPClient *http.Client
	Logger     *logging.Logger
	UserAgent  string
}

// Client submits practice intakes to the vendor. It never retries; callers
// retry by dispatching again with the same idempotency key.
type Client struct {
	apiKey     string
	baseURL    string
	timeout    time.Duration
	dryRun     bool
	httpClient *http.Client
	logger     *logging.Logger
	userAgent  string
}

// IntakeResult captures any HTTP response the vendor returned.
type IntakeResult struct {
	StatusCode   int
	Body         json.RawMessage
	VendorUserID string
	Message      string
}

// OK reports whether the vendor accepted the intake.
func (r *IntakeResult) OK() bool {
	return r != nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// New creates a configured Client with sane defaults.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" && !cfg.DryRun {
		return nil, ErrMissingAPIKey
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		timeout:    timeout,
		dryRun:     cfg.DryRun,
		httpClient: httpClient,
		logger:     logger,
		userAgent:  userAgent,
	}, nil
}

// SubmitIntake posts the payload with the given idempotency key. A non-nil
// result is returned for every HTTP response, 2xx or not. An error is
// returned only when no response was received; ErrTimeout marks expiry of
// the configured call timeout.
func (c *Client) SubmitIntake(ctx context.Context, payload *IntakePayload, idempotencyKey string) (*IntakeResult, error) {
	if payload == nil {
		return nil, errors.New("curagenesis: payload required")
	}
	if strings.TrimSpace(idempotencyKey) == "" {
		return nil, ErrMissingIdempotencyKey
	}
	ctx, span := tracer.Start(ctx, "curagenesis.submit_intake")
	defer span.End()
	span.SetAttributes(
		attribute.String("crm.account_id", payload.ExternalID),
		attribute.String("crm.idempotency_key", idempotencyKey),
	)

	if c.dryRun {
		c.logger.Info("curagenesis dry run", "account_id", payload.ExternalID, "idempotency_key", idempotencyKey)
		return dryRunResult(idempotencyKey), nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("curagenesis: marshal intake: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, c.baseURL+"/v1/intake", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("curagenesis: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Idempotency-Key", idempotencyKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		err = classifyTransportError(ctx, callCtx, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport error")
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		err = classifyTransportError(ctx, callCtx, fmt.Errorf("read response: %w", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "read error")
		return nil, err
	}

	result := parseResult(resp.StatusCode, raw)
	span.SetAttributes(attribute.Int("http.status_code", result.StatusCode))
	if !result.OK() {
		span.SetStatus(codes.Error, fmt.Sprintf("vendor status %d", result.StatusCode))
		c.logger.Warn("curagenesis intake rejected",
			"account_id", payload.ExternalID,
			"status", result.StatusCode,
			"message", result.Message,
		)
	}
	return result, nil
}

type responseEnvelope struct {
	PracticeID string `json:"practice_id"`
	UserID     string `json:"user_id"`
	Message    string `json:"message"`
	Error      any    `json:"error"`
	Data       *struct {
		PracticeID string `json:"practice_id"`
		UserID     string `json:"user_id"`
	} `json:"data"`
}

func parseResult(status int, raw []byte) *IntakeResult {
	result := &IntakeResult{StatusCode: status}
	if len(bytes.TrimSpace(raw)) == 0 {
		return result
	}
	if json.Valid(raw) {
		result.Body = json.RawMessage(raw)
	} else {
		quoted, _ := json.Marshal(string(raw))
		result.Body = json.RawMessage(quoted)
		result.Message = strings.TrimSpace(string(raw))
		return result
	}

	var env responseEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return result
	}
	result.VendorUserID = firstNonEmpty(env.UserID, env.PracticeID)
	if env.Data != nil && result.VendorUserID == "" {
		result.VendorUserID = firstNonEmpty(env.Data.UserID, env.Data.PracticeID)
	}
	result.Message = env.Message
	switch v := env.Error.(type) {
	case string:
		if result.Message == "" {
			result.Message = v
		}
	case map[string]any:
		if msg, ok := v["message"].(string); ok && result.Message == "" {
			result.Message = msg
		}
	}
	return result
}

func dryRunResult(key string) *IntakeResult {
	body, _ := json.Marshal(map[string]any{"dry_run": true, "practice_id": "dryrun-" + key})
	return &IntakeResult{StatusCode: http.StatusOK, Body: body, VendorUserID: "dryrun-" + key}
}

func classifyTransportError(parent, call context.Context, err error) error {
	if parent.Err() != nil {
		return fmt.Errorf("curagenesis: %w", parent.Err())
	}
	if errors.Is(call.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("curagenesis: http error: %w", err)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
