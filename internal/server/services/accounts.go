// Package services contains server-side business logic. This file implements
// AccountService: signup, email verification, login/logout and subscription
// changes.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/avatar"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/dmitrijs2005/gophauth/internal/server/mailer"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
)

const defaultMailTimeout = 10 * time.Second

// AccountService orchestrates the account lifecycle on top of the store,
// the password hasher, the token service and the mail dispatcher.
type AccountService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	tokens      *auth.TokenService
	hasher      *auth.PasswordHasher
	mailer      mailer.Dispatcher
	baseURL     string
	mailTimeout time.Duration
	log         logging.Logger

	newVerificationToken func() (string, error)

	dummyOnce sync.Once
	dummyHash string
}

// NewAccountService constructs an AccountService. tokens is shared with the
// Gate so both sides agree on the secret.
func NewAccountService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config,
	tokens *auth.TokenService, d mailer.Dispatcher, log logging.Logger) *AccountService {
	mailTimeout := cfg.MailTimeout
	if mailTimeout <= 0 {
		mailTimeout = defaultMailTimeout
	}
	return &AccountService{
		db:                   db,
		repomanager:          m,
		tokens:               tokens,
		hasher:               auth.NewPasswordHasher(cfg.BcryptCost),
		mailer:               d,
		baseURL:              cfg.PublicBaseURL,
		mailTimeout:          mailTimeout,
		log:                  log.With("module", "accounts"),
		newVerificationToken: auth.NewVerificationToken,
	}
}

func (s *AccountService) repo() accounts.Repository {
	return s.repomanager.Accounts(s.db)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Signup registers an unverified account and emails the verification link.
// Nothing is stored when the email cannot be sent.
func (s *AccountService) Signup(ctx context.Context, email, password string) (*models.AccountView, error) {
	in := CredentialsPayload{Email: normalizeEmail(email), Password: password}
	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrValidation, err)
	}

	repo := s.repo()

	// Fast path only; the unique constraint on insert is authoritative.
	if _, err := repo.FindByEmail(ctx, in.Email); err == nil {
		return nil, common.ErrConflict
	} else if !errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("find account: %w", err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("%w: hash password: %w", common.ErrInternal, err)
	}

	verificationToken, err := s.newVerificationToken()
	if err != nil {
		return nil, fmt.Errorf("%w: verification token: %w", common.ErrInternal, err)
	}

	if err := s.sendVerification(ctx, in.Email, verificationToken); err != nil {
		return nil, err
	}

	created, err := repo.Insert(ctx, &models.Account{
		Email:             in.Email,
		PasswordHash:      hash,
		AvatarURL:         avatar.PlaceholderURL(in.Email),
		Subscription:      models.TierStarter,
		Verified:          false,
		VerificationToken: &verificationToken,
	})
	if err != nil {
		if errors.Is(err, common.ErrConflict) {
			s.log.Warn(ctx, "signup lost insert race, verification mail already sent", "email", in.Email)
			return nil, common.ErrConflict
		}
		return nil, fmt.Errorf("insert account: %w", err)
	}

	s.log.Info(ctx, "account created", "account_id", created.ID)

	return &models.AccountView{
		Email:             created.Email,
		Subscription:      created.Subscription,
		AvatarURL:         created.AvatarURL,
		VerificationToken: created.VerificationToken,
	}, nil
}

// Login checks credentials and starts a new session, replacing any previous
// one. Unknown email and wrong password fail the same way.
func (s *AccountService) Login(ctx context.Context, email, password string) (*models.SessionView, error) {
	in := CredentialsPayload{Email: normalizeEmail(email), Password: password}
	if err := in.Validate(); err != nil {
		return nil, common.ErrAuthentication
	}

	repo := s.repo()

	account, err := repo.FindByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			// Spend the same bcrypt work as for a real account.
			_ = s.hasher.Compare(in.Password, s.getDummyHash())
			return nil, common.ErrAuthentication
		}
		return nil, fmt.Errorf("find account: %w", err)
	}

	if err := s.hasher.Compare(in.Password, account.PasswordHash); err != nil {
		if !errors.Is(err, auth.ErrMismatchedPassword) {
			s.log.Error(ctx, "stored password hash unusable", "account_id", account.ID, "error", err)
		}
		return nil, common.ErrAuthentication
	}

	token, err := s.tokens.Issue(account.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: issue token: %w", common.ErrInternal, err)
	}

	updated, err := repo.UpdateFields(ctx, account.ID, models.AccountFields{SessionToken: &token})
	if err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}

	return &models.SessionView{
		Token: token,
		User:  models.UserView{Email: updated.Email, Subscription: updated.Subscription},
	}, nil
}

// Logout clears the persisted session token. Calling it on an account with
// no session is not an error.
func (s *AccountService) Logout(ctx context.Context, accountID string) error {
	_, err := s.repo().UpdateFields(ctx, accountID, models.AccountFields{ClearSessionToken: true})
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// Current returns the identity the gate already loaded.
func (s *AccountService) Current(identity models.Identity) models.Identity {
	return identity
}

// UpdateSubscription moves the account to tier. Unknown tiers are rejected
// before anything is written.
func (s *AccountService) UpdateSubscription(ctx context.Context, accountID string, tier models.SubscriptionTier) (*models.Identity, error) {
	in := SubscriptionPayload{Subscription: tier}
	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrValidation, err)
	}

	updated, err := s.repo().UpdateFields(ctx, accountID, models.AccountFields{Subscription: &in.Subscription})
	if err != nil {
		return nil, fmt.Errorf("update subscription: %w", err)
	}

	return models.IdentityOf(updated), nil
}

// VerifyEmail consumes a verification token. Unknown, consumed and empty
// tokens are all common.ErrNotFound.
func (s *AccountService) VerifyEmail(ctx context.Context, token string) error {
	if token == "" {
		return common.ErrNotFound
	}

	repo := s.repo()

	account, err := repo.FindByVerificationToken(ctx, token)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return common.ErrNotFound
		}
		return fmt.Errorf("find account: %w", err)
	}

	verified := true
	if _, err := repo.UpdateFields(ctx, account.ID, models.AccountFields{
		Verified:               &verified,
		ClearVerificationToken: true,
	}); err != nil {
		return fmt.Errorf("mark verified: %w", err)
	}

	s.log.Info(ctx, "email verified", "account_id", account.ID)
	return nil
}

// ResendVerification emails the existing verification token again.
func (s *AccountService) ResendVerification(ctx context.Context, email string) error {
	in := EmailPayload{Email: normalizeEmail(email)}
	if err := in.Validate(); err != nil {
		return fmt.Errorf("%w: %w", common.ErrValidation, err)
	}

	account, err := s.repo().FindByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return common.ErrNotFound
		}
		return fmt.Errorf("find account: %w", err)
	}

	if account.Verified {
		return common.ErrAlreadyVerified
	}
	if account.VerificationToken == nil {
		return fmt.Errorf("%w: unverified account %s has no verification token", common.ErrInternal, account.ID)
	}

	return s.sendVerification(ctx, account.Email, *account.VerificationToken)
}

func (s *AccountService) sendVerification(ctx context.Context, to, token string) error {
	ctx, cancel := context.WithTimeout(ctx, s.mailTimeout)
	defer cancel()

	if err := s.mailer.Send(ctx, mailer.VerificationMessage(s.baseURL, to, token)); err != nil {
		s.log.Error(ctx, "verification mail failed", "to", to, "error", err)
		return fmt.Errorf("%w: send verification: %w", common.ErrDependency, err)
	}
	return nil
}

func (s *AccountService) getDummyHash() string {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = s.hasher.Hash("not-a-real-password-0")
	})
	return s.dummyHash
}
