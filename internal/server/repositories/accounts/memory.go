package accounts

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/google/uuid"
)

// MemoryRepository keeps accounts in process memory. All indexes are updated
// under one lock, so email uniqueness is checked and claimed atomically.
type MemoryRepository struct {
	mu             sync.RWMutex
	byID           map[string]*models.Account
	byEmail        map[string]string
	byVerification map[string]string
	now            func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:           make(map[string]*models.Account),
		byEmail:        make(map[string]string),
		byVerification: make(map[string]string),
		now:            time.Now,
	}
}

func (r *MemoryRepository) FindByEmail(_ context.Context, email string) (*models.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lookup(r.byEmail, email)
}

func (r *MemoryRepository) FindByID(_ context.Context, id string) (*models.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.byID[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return clone(a), nil
}

func (r *MemoryRepository) FindByVerificationToken(_ context.Context, token string) (*models.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lookup(r.byVerification, token)
}

func (r *MemoryRepository) lookup(index map[string]string, key string) (*models.Account, error) {
	id, ok := index[key]
	if !ok {
		return nil, common.ErrNotFound
	}
	return clone(r.byID[id]), nil
}

func (r *MemoryRepository) Insert(_ context.Context, account *models.Account) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byEmail[account.Email]; exists {
		return nil, common.ErrConflict
	}
	if vt := account.VerificationToken; vt != nil {
		if _, exists := r.byVerification[*vt]; exists {
			return nil, common.ErrConflict
		}
	}

	a := clone(account)
	a.ID = uuid.NewString()
	if a.Subscription == "" {
		a.Subscription = models.TierStarter
	}
	a.CreatedAt = r.now()
	a.UpdatedAt = a.CreatedAt

	r.byID[a.ID] = a
	r.byEmail[a.Email] = a.ID
	if a.VerificationToken != nil {
		r.byVerification[*a.VerificationToken] = a.ID
	}

	return clone(a), nil
}

func (r *MemoryRepository) UpdateFields(_ context.Context, id string, fields models.AccountFields) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.byID[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	if fields.Empty() {
		return clone(a), nil
	}

	if !fields.ClearVerificationToken && fields.VerificationToken != nil {
		if owner, exists := r.byVerification[*fields.VerificationToken]; exists && owner != id {
			return nil, common.ErrConflict
		}
	}

	if a.VerificationToken != nil {
		delete(r.byVerification, *a.VerificationToken)
	}
	fields.Apply(a)
	if a.VerificationToken != nil {
		r.byVerification[*a.VerificationToken] = id
	}
	a.UpdatedAt = r.now()

	return clone(a), nil
}

func clone(a *models.Account) *models.Account {
	c := *a
	if a.VerificationToken != nil {
		v := *a.VerificationToken
		c.VerificationToken = &v
	}
	if a.SessionToken != nil {
		v := *a.SessionToken
		c.SessionToken = &v
	}
	return &c
}
