package submissions

import (
	"context"
	"errors"
	"net/http"

	"github.com/wolfman30/practice-crm/internal/observability/metrics"
	"github.com/wolfman30/practice-crm/pkg/logging"
	"golang.org/x/sync/errgroup"
)

const (
	defaultBatchSize = 5
	maxBulkAccounts  = 500
)

// DispatchFunc is the single-account operation the bulk runner fans out.
type DispatchFunc func(ctx context.Context, accountID string) (*Outcome, error)

// BulkSuccess is one dispatched account.
type BulkSuccess struct {
	AccountID    string `json:"accountId"`
	SubmissionID string `json:"submissionId"`
}

// BulkFailure is one account that did not dispatch, with the reason.
type BulkFailure struct {
	AccountID    string  `json:"accountId"`
	Reason       string  `json:"reason"`
	StatusCode   int     `json:"status"`
	SubmissionID *string `json:"submissionId,omitempty"`
}

// BulkResult reports every requested id in exactly one of Success or Failed.
type BulkResult struct {
	Success []BulkSuccess `json:"success"`
	Failed  []BulkFailure `json:"failed"`
	Total   int           `json:"total"`
}

// BulkDispatcher runs dispatches in fixed-size batches, waiting for each batch
// to finish before starting the next.
type BulkDispatcher struct {
	dispatch  DispatchFunc
	batchSize int
	metrics   *metrics.DispatchMetrics
	logger    *logging.Logger
}

func NewBulkDispatcher(dispatch DispatchFunc, batchSize int, m *metrics.DispatchMetrics, logger *logging.Logger) *BulkDispatcher {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &BulkDispatcher{dispatch: dispatch, batchSize: batchSize, metrics: m, logger: logger}
}

// Run dispatches every id. Per-account failures never abort the batch.
func (b *BulkDispatcher) Run(ctx context.Context, accountIDs []string) (*BulkResult, error) {
	if len(accountIDs) == 0 {
		return nil, ErrMissingAccountIDs
	}
	if len(accountIDs) > maxBulkAccounts {
		return nil, ErrTooManyAccounts
	}
	b.metrics.ObserveBulk(len(accountIDs))

	type slot struct {
		outcome *Outcome
		err     error
	}
	slots := make([]slot, len(accountIDs))

	for start := 0; start < len(accountIDs); start += b.batchSize {
		end := start + b.batchSize
		if end > len(accountIDs) {
			end = len(accountIDs)
		}
		var g errgroup.Group
		for i := start; i < end; i++ {
			g.Go(func() error {
				if err := ctx.Err(); err != nil {
					slots[i].err = err
					return nil
				}
				slots[i].outcome, slots[i].err = b.dispatch(ctx, accountIDs[i])
				return nil
			})
		}
		_ = g.Wait()
	}

	result := &BulkResult{Success: []BulkSuccess{}, Failed: []BulkFailure{}, Total: len(accountIDs)}
	for i, id := range accountIDs {
		s := slots[i]
		if s.err == nil && s.outcome != nil {
			result.Success = append(result.Success, BulkSuccess{AccountID: id, SubmissionID: s.outcome.Submission.ID})
			continue
		}
		result.Failed = append(result.Failed, describeFailure(id, s.err))
	}
	b.logger.Info("bulk dispatch finished", "total", result.Total, "success", len(result.Success), "failed", len(result.Failed))
	return result, nil
}

func describeFailure(accountID string, err error) BulkFailure {
	failure := BulkFailure{AccountID: accountID}
	if err == nil {
		err = errors.New("dispatch returned no result")
	}
	status, message := StatusFor(err)
	failure.StatusCode = status
	failure.Reason = message
	var vendorErr *VendorError
	if errors.As(err, &vendorErr) && vendorErr.Submission != nil {
		id := vendorErr.Submission.ID
		failure.SubmissionID = &id
	}
	return failure
}

// StatusFor maps a dispatch error onto the HTTP status and the message shown
// to the rep.
func StatusFor(err error) (int, string) {
	var vendorErr *VendorError
	switch {
	case errors.As(err, &vendorErr):
		return vendorErr.HTTPStatus(), vendorErr.Message
	case IsValidation(err):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, ErrAccountNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, ErrDispatchInFlight):
		return http.StatusConflict, err.Error()
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "request cancelled before dispatch"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}
