package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/wolfman30/practice-crm/internal/events"
	"github.com/wolfman30/practice-crm/internal/reps"
	"github.com/wolfman30/practice-crm/pkg/logging"
)

// RepDirectory resolves the rep an email goes to.
type RepDirectory interface {
	GetByID(ctx context.Context, id string) (*reps.Rep, error)
}

// Service turns outbox events into emails.
type Service struct {
	email   EmailSender
	reps    RepDirectory
	baseURL string
	logger  *logging.Logger
}

// NewService creates a notification service.
func NewService(email EmailSender, repDir RepDirectory, publicBaseURL string, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	if email == nil {
		email = NewStubEmailSender(logger)
	}
	return &Service{
		email:   email,
		reps:    repDir,
		baseURL: strings.TrimRight(publicBaseURL, "/"),
		logger:  logger,
	}
}

// Handle implements events.DeliveryHandler. Unknown event types are
// acknowledged so they do not block the outbox.
func (s *Service) Handle(ctx context.Context, entry events.OutboxEntry) error {
	switch entry.Type {
	case events.TypeSubmissionResolved:
		var evt events.SubmissionResolvedV1
		if err := json.Unmarshal(entry.Payload, &evt); err != nil {
			s.logger.Error("notify: undecodable submission event", "outbox_id", entry.ID, "error", err)
			return nil
		}
		return s.NotifySubmissionResolved(ctx, evt)
	case events.TypeRepInvited:
		var evt events.RepInvitedV1
		if err := json.Unmarshal(entry.Payload, &evt); err != nil {
			s.logger.Error("notify: undecodable invite event", "outbox_id", entry.ID, "error", err)
			return nil
		}
		return s.SendRepInvite(ctx, evt)
	default:
		s.logger.Debug("notify: no handler for event", "type", entry.Type)
		return nil
	}
}

// NotifySubmissionResolved emails the owning rep the dispatch outcome.
func (s *Service) NotifySubmissionResolved(ctx context.Context, evt events.SubmissionResolvedV1) error {
	if evt.RepID == "" || s.reps == nil {
		s.logger.Debug("notify: submission has no owning rep, skipping email", "submission_id", evt.SubmissionID)
		return nil
	}
	rep, err := s.reps.GetByID(ctx, evt.RepID)
	if err != nil {
		if errors.Is(err, reps.ErrRepNotFound) {
			s.logger.Warn("notify: owning rep not found", "rep_id", evt.RepID, "submission_id", evt.SubmissionID)
			return nil
		}
		return fmt.Errorf("notify: load rep: %w", err)
	}

	accountURL := fmt.Sprintf("%s/accounts/%s", s.baseURL, evt.AccountID)
	var subject, body string
	if evt.Status == "SUCCESS" {
		subject = fmt.Sprintf("Submitted to CuraGenesis: %s", evt.AccountName)
		body = fmt.Sprintf("Hi %s,\n\n%s was accepted by CuraGenesis.\n\nView the account: %s\n",
			rep.FirstName, evt.AccountName, accountURL)
	} else {
		subject = fmt.Sprintf("Submission failed: %s", evt.AccountName)
		reason := evt.Message
		if reason == "" {
			reason = "CuraGenesis did not accept the submission."
		}
		body = fmt.Sprintf("Hi %s,\n\nThe submission for %s did not go through.\n\n%s\n\nFix the account and send it again: %s\n",
			rep.FirstName, evt.AccountName, reason, accountURL)
	}

	if err := s.email.Send(ctx, EmailMessage{
		To:       rep.CorpEmail,
		ToName:   rep.FullName(),
		Subject:  subject,
		Body:     body,
		Category: CategorySubmissionOutcome,
	}); err != nil {
		return fmt.Errorf("notify: submission email: %w", err)
	}
	s.logger.Info("notify: submission outcome emailed", "submission_id", evt.SubmissionID, "rep_id", rep.ID, "status", evt.Status)
	return nil
}

// SendRepInvite emails the invite link to the rep's personal address.
func (s *Service) SendRepInvite(ctx context.Context, evt events.RepInvitedV1) error {
	if evt.PersonalEmail == "" {
		s.logger.Warn("notify: invite without personal email", "rep_id", evt.RepID)
		return nil
	}
	body := fmt.Sprintf(
		"Hi %s,\n\nYou have been invited to join the sales team. Your work address will be %s.\n\n"+
			"Accept the invite: %s\n\nThis link expires on %s.\n",
		evt.FirstName, evt.CorpEmail, evt.InviteURL, evt.ExpiresAt.Format("January 2, 2006"),
	)
	htmlBody := fmt.Sprintf(
		"<p>Hi %s,</p><p>You have been invited to join the sales team. Your work address will be <strong>%s</strong>.</p>"+
			"<p><a href=\"%s\">Accept the invite</a></p><p>This link expires on %s.</p>",
		html.EscapeString(evt.FirstName), html.EscapeString(evt.CorpEmail), html.EscapeString(evt.InviteURL), evt.ExpiresAt.Format("January 2, 2006"),
	)
	if err := s.email.Send(ctx, EmailMessage{
		To:       evt.PersonalEmail,
		ToName:   evt.FirstName,
		Subject:  "Your sales rep invitation",
		Body:     body,
		HTML:     htmlBody,
		Category: CategoryRepInvite,
	}); err != nil {
		return fmt.Errorf("notify: invite email: %w", err)
	}
	s.logger.Info("notify: invite emailed", "rep_id", evt.RepID)
	return nil
}
