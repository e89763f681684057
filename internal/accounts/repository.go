package accounts

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for account and contact storage
type Repository interface {
	Create(ctx context.Context, req *CreateAccountRequest) (*Account, error)
	GetByID(ctx context.Context, id string) (*Account, error)
	GetByVendorUserID(ctx context.Context, vendorUserID string) (*Account, error)
	List(ctx context.Context, filter ListFilter) ([]*Account, error)
	Update(ctx context.Context, id string, req *UpdateAccountRequest) (*Account, error)
	Delete(ctx context.Context, id string) error
	ListContacts(ctx context.Context, accountID string) ([]Contact, error)
	AddContact(ctx context.Context, accountID string, req *CreateContactRequest) (*Contact, error)
	UpdateContact(ctx context.Context, accountID, contactID string, req *CreateContactRequest) (*Contact, error)
	DeleteContact(ctx context.Context, accountID, contactID string) error
	SetStatus(ctx context.Context, id string, status Status) error
	ReconcileDispatch(ctx context.Context, id string, status Status, vendorUserID *string) error
	ApplyVendorUpdate(ctx context.Context, upd VendorUpdate) (*Account, error)
}

// SubmissionChecker reports whether an account already has dispatch history.
type SubmissionChecker func(ctx context.Context, accountID string) (bool, error)

// InMemoryRepository backs local development and tests when no database is configured.
type InMemoryRepository struct {
	mu             sync.RWMutex
	accounts       map[string]*Account
	contacts       map[string][]Contact
	hasSubmissions SubmissionChecker
	now            func() time.Time
}

// NewInMemoryRepository creates a new in-memory repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		accounts: make(map[string]*Account),
		contacts: make(map[string][]Contact),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithSubmissionChecker guards Delete the same way the SQL NOT EXISTS clause does.
func (r *InMemoryRepository) WithSubmissionChecker(check SubmissionChecker) *InMemoryRepository {
	r.hasSubmissions = check
	return r
}

func (r *InMemoryRepository) Create(ctx context.Context, req *CreateAccountRequest) (*Account, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	now := r.now()
	acct := &Account{
		ID:           uuid.NewString(),
		Name:         req.Name,
		Specialty:    req.Specialty,
		State:        req.State,
		AddressLine1: req.AddressLine1,
		AddressLine2: req.AddressLine2,
		City:         req.City,
		Zip:          req.Zip,
		TaxID:        req.TaxID,
		NPI:          req.NPI,
		Phone:        req.Phone,
		Email:        req.Email,
		Website:      req.Website,
		RepID:        req.RepID,
		Status:       StatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.accounts[acct.ID] = acct
	for i := range req.Contacts {
		r.contacts[acct.ID] = append(r.contacts[acct.ID], r.newContact(acct.ID, &req.Contacts[i], now))
	}
	return r.snapshot(acct), nil
}

func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	acct, ok := r.accounts[id]
	if !ok {
		return nil, ErrAccountNotFound
	}
	return r.snapshot(acct), nil
}

func (r *InMemoryRepository) GetByVendorUserID(ctx context.Context, vendorUserID string) (*Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, acct := range r.accounts {
		if acct.VendorUserID != nil && *acct.VendorUserID == vendorUserID {
			return r.snapshot(acct), nil
		}
	}
	return nil, ErrAccountNotFound
}

func (r *InMemoryRepository) List(ctx context.Context, filter ListFilter) ([]*Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*Account{}
	for _, acct := range r.accounts {
		if filter.Status != "" && acct.Status != filter.Status {
			continue
		}
		if filter.RepID != "" && (acct.RepID == nil || *acct.RepID != filter.RepID) {
			continue
		}
		cp := *acct
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if filter.Offset >= len(out) {
		return []*Account{}, nil
	}
	out = out[filter.Offset:]
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *InMemoryRepository) Update(ctx context.Context, id string, req *UpdateAccountRequest) (*Account, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	acct, ok := r.accounts[id]
	if !ok {
		return nil, ErrAccountNotFound
	}
	req.apply(acct)
	acct.UpdatedAt = r.now()
	return r.snapshot(acct), nil
}

func (r *InMemoryRepository) Delete(ctx context.Context, id string) error {
	if r.hasSubmissions != nil {
		has, err := r.hasSubmissions(ctx, id)
		if err != nil {
			return err
		}
		if has {
			return ErrHasSubmissions
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.accounts[id]; !ok {
		return ErrAccountNotFound
	}
	delete(r.accounts, id)
	delete(r.contacts, id)
	return nil
}

func (r *InMemoryRepository) ListContacts(ctx context.Context, accountID string) ([]Contact, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.accounts[accountID]; !ok {
		return nil, ErrAccountNotFound
	}
	return append([]Contact{}, r.contacts[accountID]...), nil
}

func (r *InMemoryRepository) AddContact(ctx context.Context, accountID string, req *CreateContactRequest) (*Contact, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.accounts[accountID]; !ok {
		return nil, ErrAccountNotFound
	}
	c := r.newContact(accountID, req, r.now())
	r.contacts[accountID] = append(r.contacts[accountID], c)
	return &c, nil
}

func (r *InMemoryRepository) UpdateContact(ctx context.Context, accountID, contactID string, req *CreateContactRequest) (*Contact, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	list := r.contacts[accountID]
	for i := range list {
		if list[i].ID != contactID {
			continue
		}
		list[i].Kind = req.Kind
		list[i].FirstName = req.FirstName
		list[i].LastName = req.LastName
		list[i].Title = req.Title
		list[i].Email = req.Email
		list[i].Phone = req.Phone
		list[i].UpdatedAt = r.now()
		c := list[i]
		return &c, nil
	}
	return nil, ErrContactNotFound
}

func (r *InMemoryRepository) DeleteContact(ctx context.Context, accountID, contactID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := r.contacts[accountID]
	for i := range list {
		if list[i].ID == contactID {
			r.contacts[accountID] = append(list[:i:i], list[i+1:]...)
			return nil
		}
	}
	return ErrContactNotFound
}

func (r *InMemoryRepository) SetStatus(ctx context.Context, id string, status Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	acct, ok := r.accounts[id]
	if !ok {
		return ErrAccountNotFound
	}
	acct.Status = status
	acct.UpdatedAt = r.now()
	return nil
}

// ReconcileDispatch sets the post-dispatch status and keeps the first vendor
// user id the vendor assigned. ACTIVE is only ever set by vendor updates, so
// a later dispatch leaves it in place.
func (r *InMemoryRepository) ReconcileDispatch(ctx context.Context, id string, status Status, vendorUserID *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	acct, ok := r.accounts[id]
	if !ok {
		return ErrAccountNotFound
	}
	if acct.Status != StatusActive {
		acct.Status = status
	}
	if acct.VendorUserID == nil && vendorUserID != nil && *vendorUserID != "" {
		v := *vendorUserID
		acct.VendorUserID = &v
	}
	acct.UpdatedAt = r.now()
	return nil
}

func (r *InMemoryRepository) ApplyVendorUpdate(ctx context.Context, upd VendorUpdate) (*Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	acct, ok := r.accounts[upd.AccountID]
	if !ok {
		return nil, ErrAccountNotFound
	}
	if upd.VendorUserID != nil {
		v := *upd.VendorUserID
		acct.VendorUserID = &v
	}
	if upd.OrderPlaced {
		acct.OrderCount++
		at := upd.OccurredAt
		acct.LastOrderAt = &at
	}
	if upd.Activate || upd.OrderPlaced {
		acct.Status = StatusActive
	}
	acct.SyncCount++
	acct.UpdatedAt = r.now()
	return r.snapshot(acct), nil
}

func (r *InMemoryRepository) newContact(accountID string, req *CreateContactRequest, now time.Time) Contact {
	return Contact{
		ID:        uuid.NewString(),
		AccountID: accountID,
		Kind:      req.Kind,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Title:     req.Title,
		Email:     req.Email,
		Phone:     req.Phone,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// snapshot copies an account with its contacts; callers must hold the lock.
func (r *InMemoryRepository) snapshot(acct *Account) *Account {
	cp := *acct
	cp.Contacts = append([]Contact{}, r.contacts[acct.ID]...)
	return &cp
}
