package services

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
)

// Gate authenticates session tokens. A token is accepted only if it is
// validly signed, unexpired, and still the account's persisted session token.
type Gate struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	tokens      *auth.TokenService
	log         logging.Logger
}

func NewGate(db *sql.DB, m repomanager.RepositoryManager, tokens *auth.TokenService, log logging.Logger) *Gate {
	return &Gate{db: db, repomanager: m, tokens: tokens, log: log.With("module", "gate")}
}

// Authenticate returns the identity behind rawToken. Every rejection is
// common.ErrUnauthenticated; store failures other than a missing account are
// returned wrapped so they surface as server errors.
func (g *Gate) Authenticate(ctx context.Context, rawToken string) (*models.Identity, error) {
	if rawToken == "" {
		return nil, common.ErrUnauthenticated
	}

	accountID, err := g.tokens.Validate(rawToken)
	if err != nil {
		return nil, common.ErrUnauthenticated
	}

	account, err := g.repomanager.Accounts(g.db).FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrUnauthenticated
		}
		g.log.Error(ctx, "load account for session", "account_id", accountID, "error", err)
		return nil, err
	}

	if account.SessionToken == nil || *account.SessionToken == "" ||
		subtle.ConstantTimeCompare([]byte(*account.SessionToken), []byte(rawToken)) != 1 {
		return nil, common.ErrUnauthenticated
	}

	return models.IdentityOf(account), nil
}
