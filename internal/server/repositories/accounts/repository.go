// Package accounts is the credential store: lookups, inserts and field-level
// updates of account records.
package accounts

import (
	"context"

	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

// Repository is the store contract the account services depend on.
//
// Missing rows yield common.ErrNotFound. Insert reports a duplicate email as
// common.ErrConflict; uniqueness is enforced by the store itself.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
	FindByID(ctx context.Context, id string) (*models.Account, error)
	FindByVerificationToken(ctx context.Context, token string) (*models.Account, error)
	Insert(ctx context.Context, account *models.Account) (*models.Account, error)
	UpdateFields(ctx context.Context, id string, fields models.AccountFields) (*models.Account, error)
}
