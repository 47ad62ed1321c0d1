package services

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/dmitrijs2005/gophauth/internal/server/mailer"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
	"golang.org/x/crypto/bcrypt"
)

// --- fakes ---

type fakeDispatcher struct {
	mu   sync.Mutex
	sent []mailer.Message
	err  error
}

func (d *fakeDispatcher) Send(_ context.Context, msg mailer.Message) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.sent = append(d.sent, msg)
	return nil
}

func (d *fakeDispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.sent)
}

// failingRepo wraps a real repository and injects errors per method.
type failingRepo struct {
	accounts.Repository
	findByEmailErr error
	findByIDErr    error
	insertErr      error
	updateErr      error
}

func (r *failingRepo) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	if r.findByEmailErr != nil {
		return nil, r.findByEmailErr
	}
	return r.Repository.FindByEmail(ctx, email)
}

func (r *failingRepo) FindByID(ctx context.Context, id string) (*models.Account, error) {
	if r.findByIDErr != nil {
		return nil, r.findByIDErr
	}
	return r.Repository.FindByID(ctx, id)
}

func (r *failingRepo) Insert(ctx context.Context, a *models.Account) (*models.Account, error) {
	if r.insertErr != nil {
		return nil, r.insertErr
	}
	return r.Repository.Insert(ctx, a)
}

func (r *failingRepo) UpdateFields(ctx context.Context, id string, f models.AccountFields) (*models.Account, error) {
	if r.updateErr != nil {
		return nil, r.updateErr
	}
	return r.Repository.UpdateFields(ctx, id, f)
}

type fakeRepoManager struct {
	repo accounts.Repository
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Accounts(dbx.DBTX) accounts.Repository       { return m.repo }

var errDBDown = errors.New("db down")

// --- fixtures ---

type env struct {
	repo     *failingRepo
	mail     *fakeDispatcher
	tokens   *auth.TokenService
	accounts *AccountService
	gate     *Gate
	clock    time.Time
}

func newTestConfig() *config.Config {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.BcryptCost = bcrypt.MinCost
	cfg.PublicBaseURL = "http://localhost:3000"
	return cfg
}

func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{
		repo:  &failingRepo{Repository: accounts.NewMemoryRepository()},
		mail:  &fakeDispatcher{},
		clock: time.Unix(1_700_000_000, 0),
	}
	var rm repomanager.RepositoryManager = &fakeRepoManager{repo: e.repo}
	cfg := newTestConfig()

	e.tokens = auth.NewTokenService([]byte(cfg.SecretKey), cfg.SessionTokenValidityDuration,
		auth.WithClock(func() time.Time { return e.clock }))
	e.accounts = NewAccountService(nil, rm, cfg, e.tokens, e.mail, logging.Nop{})
	e.gate = NewGate(nil, rm, e.tokens, logging.Nop{})
	return e
}

func (e *env) signup(t *testing.T, email, password string) *models.Account {
	t.Helper()
	if _, err := e.accounts.Signup(context.Background(), email, password); err != nil {
		t.Fatalf("Signup error: %v", err)
	}
	a, err := e.repo.FindByEmail(context.Background(), email)
	if err != nil {
		t.Fatalf("FindByEmail error: %v", err)
	}
	return a
}

func (e *env) reload(t *testing.T, id string) *models.Account {
	t.Helper()
	a, err := e.repo.Repository.FindByID(context.Background(), id)
	if err != nil {
		t.Fatalf("FindByID error: %v", err)
	}
	return a
}

// assertVerificationInvariant checks verified == (token == nil).
func assertVerificationInvariant(t *testing.T, a *models.Account) {
	t.Helper()
	if a.Verified != (a.VerificationToken == nil) {
		t.Fatalf("verification invariant broken: verified=%v token=%v", a.Verified, a.VerificationToken)
	}
}
