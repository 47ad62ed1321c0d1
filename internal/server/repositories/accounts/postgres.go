package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

const accountColumns = `id, email, password_hash, avatar_url, subscription, verified, verification_token, session_token, created_at, updated_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*models.Account, error) {
	var (
		a            models.Account
		subscription string
		verification sql.NullString
		session      sql.NullString
	)

	err := row.Scan(&a.ID, &a.Email, &a.PasswordHash, &a.AvatarURL, &subscription, &a.Verified,
		&verification, &session, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	a.Subscription = models.SubscriptionTier(subscription)
	if verification.Valid {
		a.VerificationToken = &verification.String
	}
	if session.Valid {
		a.SessionToken = &session.String
	}
	return &a, nil
}

func (r *PostgresRepository) findOne(ctx context.Context, where string, arg any) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE ` + where
	return scanAccount(r.db.QueryRowContext(ctx, query, arg))
}

func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	return r.findOne(ctx, `email = $1`, email)
}

func (r *PostgresRepository) FindByID(ctx context.Context, id string) (*models.Account, error) {
	return r.findOne(ctx, `id = $1`, id)
}

func (r *PostgresRepository) FindByVerificationToken(ctx context.Context, token string) (*models.Account, error) {
	return r.findOne(ctx, `verification_token = $1`, token)
}

func (r *PostgresRepository) Insert(ctx context.Context, account *models.Account) (*models.Account, error) {
	query :=
		`INSERT INTO accounts (email, password_hash, avatar_url, subscription, verified, verification_token)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING ` + accountColumns

	created, err := scanAccount(r.db.QueryRowContext(ctx, query,
		account.Email, account.PasswordHash, account.AvatarURL, string(account.Subscription),
		account.Verified, nullable(account.VerificationToken)))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, fmt.Errorf("%w: %s", common.ErrConflict, pgErr.ConstraintName)
		}
		return nil, err
	}

	return created, nil
}

// UpdateFields writes only the columns present in fields, in one statement.
// An empty update returns the current row.
func (r *PostgresRepository) UpdateFields(ctx context.Context, id string, fields models.AccountFields) (*models.Account, error) {
	if fields.Empty() {
		return r.FindByID(ctx, id)
	}

	sets := make([]string, 0, 6)
	args := []any{id}
	add := func(column string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if fields.AvatarURL != nil {
		add("avatar_url", *fields.AvatarURL)
	}
	if fields.Subscription != nil {
		add("subscription", string(*fields.Subscription))
	}
	if fields.Verified != nil {
		add("verified", *fields.Verified)
	}
	if fields.ClearVerificationToken {
		sets = append(sets, "verification_token = NULL")
	} else if fields.VerificationToken != nil {
		add("verification_token", *fields.VerificationToken)
	}
	if fields.ClearSessionToken {
		sets = append(sets, "session_token = NULL")
	} else if fields.SessionToken != nil {
		add("session_token", *fields.SessionToken)
	}
	sets = append(sets, "updated_at = now()")

	query := `UPDATE accounts SET ` + strings.Join(sets, ", ") + ` WHERE id = $1 RETURNING ` + accountColumns

	return scanAccount(r.db.QueryRowContext(ctx, query, args...))
}

func nullable(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
