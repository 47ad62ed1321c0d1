// Package models defines server-side data models persisted in the database
// and the public projections returned to callers.
package models

import "time"

// SubscriptionTier is the closed set of plans an account can be on.
type SubscriptionTier string

const (
	TierStarter  SubscriptionTier = "starter"
	TierPro      SubscriptionTier = "pro"
	TierBusiness SubscriptionTier = "business"
)

// Valid reports whether t is one of the known tiers.
func (t SubscriptionTier) Valid() bool {
	switch t {
	case TierStarter, TierPro, TierBusiness:
		return true
	}
	return false
}

// Account is the stored identity record.
//
// VerificationToken is non-nil exactly while Verified is false.
// SessionToken holds the single active session; nil means logged out.
type Account struct {
	ID                string
	Email             string
	PasswordHash      string
	AvatarURL         string
	Subscription      SubscriptionTier
	Verified          bool
	VerificationToken *string
	SessionToken      *string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// AccountFields is a partial update. Only non-nil fields are written.
//
// ClearVerificationToken and ClearSessionToken set the column to NULL; they
// take precedence over the corresponding value pointers.
type AccountFields struct {
	AvatarURL              *string
	Subscription           *SubscriptionTier
	Verified               *bool
	VerificationToken      *string
	ClearVerificationToken bool
	SessionToken           *string
	ClearSessionToken      bool
}

// Empty reports whether the update would not change anything.
func (f AccountFields) Empty() bool {
	return f.AvatarURL == nil && f.Subscription == nil && f.Verified == nil &&
		f.VerificationToken == nil && !f.ClearVerificationToken &&
		f.SessionToken == nil && !f.ClearSessionToken
}

// Apply writes the set fields onto a.
func (f AccountFields) Apply(a *Account) {
	if f.AvatarURL != nil {
		a.AvatarURL = *f.AvatarURL
	}
	if f.Subscription != nil {
		a.Subscription = *f.Subscription
	}
	if f.Verified != nil {
		a.Verified = *f.Verified
	}
	if f.ClearVerificationToken {
		a.VerificationToken = nil
	} else if f.VerificationToken != nil {
		v := *f.VerificationToken
		a.VerificationToken = &v
	}
	if f.ClearSessionToken {
		a.SessionToken = nil
	} else if f.SessionToken != nil {
		v := *f.SessionToken
		a.SessionToken = &v
	}
}

// AccountView is returned from signup.
type AccountView struct {
	Email             string           `json:"email"`
	Subscription      SubscriptionTier `json:"subscription"`
	AvatarURL         string           `json:"avatarURL"`
	VerificationToken *string          `json:"verificationToken,omitempty"`
}

// UserView is the public email/tier pair.
type UserView struct {
	Email        string           `json:"email"`
	Subscription SubscriptionTier `json:"subscription"`
}

// SessionView is returned from login.
type SessionView struct {
	Token string   `json:"token"`
	User  UserView `json:"user"`
}

// Identity is the authenticated caller produced by the auth gate.
type Identity struct {
	ID           string
	Email        string
	Subscription SubscriptionTier
}

// View drops the id.
func (i Identity) View() UserView {
	return UserView{Email: i.Email, Subscription: i.Subscription}
}

// IdentityOf projects an account to its identity.
func IdentityOf(a *Account) *Identity {
	return &Identity{ID: a.ID, Email: a.Email, Subscription: a.Subscription}
}

// Ptr returns a pointer to v. Handy for building AccountFields.
func Ptr[T any](v T) *T {
	return &v
}
