package reps

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/wolfman30/practice-crm/internal/documents"
	"github.com/wolfman30/practice-crm/internal/events"
	"github.com/wolfman30/practice-crm/pkg/logging"
)

const maxInviteAttempts = 3

// ServiceConfig wires the onboarding service.
type ServiceConfig struct {
	CorpEmailDomain string
	PublicBaseURL   string
	Tokens          *InviteTokens
	Logger          *logging.Logger
}

// Service invites and activates reps.
type Service struct {
	repo          Repository
	tokens        *InviteTokens
	domain        string
	publicBaseURL string
	logger        *logging.Logger
	now           func() time.Time
}

func NewService(repo Repository, cfg ServiceConfig) *Service {
	if repo == nil {
		panic("reps: repository required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.Tokens == nil {
		cfg.Tokens = NewInviteTokens("", 0)
	}
	return &Service{
		repo:          repo,
		tokens:        cfg.Tokens,
		domain:        cfg.CorpEmailDomain,
		publicBaseURL: cfg.PublicBaseURL,
		logger:        cfg.Logger,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// InviteResult is returned to the admin who sent the invite.
type InviteResult struct {
	Rep       *Rep      `json:"rep"`
	InviteURL string    `json:"invite_url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Invite creates an INVITED rep with a corporate address, queues onboarding
// documents and the invite email.
func (s *Service) Invite(ctx context.Context, req InviteRequest) (*InviteResult, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	for attempt := 1; attempt <= maxInviteAttempts; attempt++ {
		corp, err := CorpEmail(ctx, req.FirstName, req.LastName, s.domain, s.repo.CorpEmailTaken)
		if err != nil {
			return nil, err
		}
		now := s.now()
		rep := &Rep{
			ID:            uuid.NewString(),
			FirstName:     req.FirstName,
			LastName:      req.LastName,
			PersonalEmail: req.PersonalEmail,
			CorpEmail:     corp,
			Status:        StatusInvited,
			InvitedAt:     now,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		token, expires, err := s.tokens.Issue(rep.ID)
		if err != nil {
			return nil, err
		}
		inviteURL := s.inviteURL(token)
		evt := events.RepInvitedV1{
			RepID:         rep.ID,
			FirstName:     rep.FirstName,
			PersonalEmail: rep.PersonalEmail,
			CorpEmail:     rep.CorpEmail,
			InviteURL:     inviteURL,
			ExpiresAt:     expires,
		}

		err = s.repo.CreateInvited(ctx, rep, documents.OnboardingStubs(rep.ID, now), evt)
		if errors.Is(err, ErrCorpEmailTaken) {
			// Another invite took the address between the check and the insert.
			s.logger.Warn("corp email collision, retrying", "corp_email", corp, "attempt", attempt)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("reps: create invited rep: %w", err)
		}
		s.logger.Info("rep invited", "rep_id", rep.ID, "corp_email", rep.CorpEmail)
		return &InviteResult{Rep: rep, InviteURL: inviteURL, ExpiresAt: expires}, nil
	}
	return nil, ErrNoCorpEmailSlot
}

// Accept activates the rep named by an invite token. Accepting twice returns
// the already active rep.
func (s *Service) Accept(ctx context.Context, token string) (*Rep, error) {
	if token == "" {
		return nil, ErrMissingToken
	}
	repID, err := s.tokens.Verify(token)
	if err != nil {
		return nil, err
	}
	rep, err := s.repo.GetByID(ctx, repID)
	if err != nil {
		return nil, err
	}
	if rep.Status == StatusActive {
		return rep, nil
	}
	rep, err = s.repo.Activate(ctx, repID, s.now())
	if err != nil {
		return nil, err
	}
	s.logger.Info("rep activated", "rep_id", rep.ID)
	return rep, nil
}

func (s *Service) List(ctx context.Context, status Status) ([]*Rep, error) {
	return s.repo.List(ctx, status)
}

func (s *Service) Get(ctx context.Context, id string) (*Rep, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) inviteURL(token string) string {
	return s.publicBaseURL + "/onboarding/accept?token=" + url.QueryEscape(token)
}
