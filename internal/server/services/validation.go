package services

import (
	"errors"
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

var (
	hasLetter = regexp.MustCompile(`\pL`)
	hasDigit  = regexp.MustCompile(`\d`)
)

var errPasswordBytes = errors.New("must be at most 72 bytes")

// fitsBcrypt caps the byte length. validation.Length counts runes.
func fitsBcrypt(value interface{}) error {
	s, _ := value.(string)
	if len(s) > auth.MaxPasswordBytes {
		return errPasswordBytes
	}
	return nil
}

// CredentialsPayload is the signup and login body.
type CredentialsPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate applies the signup rules: a well-formed email and a password of
// 8 to 72 characters (and at most 72 bytes) with at least one letter and one
// digit.
func (r CredentialsPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(
			&r.Password,
			validation.Required,
			validation.Length(8, auth.MaxPasswordBytes),
			validation.By(fitsBcrypt),
			validation.Match(hasLetter).Error("must contain a letter"),
			validation.Match(hasDigit).Error("must contain a digit"),
		),
	)
}

// EmailPayload is the resend-verification body.
type EmailPayload struct {
	Email string `json:"email"`
}

func (r EmailPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
	)
}

// SubscriptionPayload is the subscription update body.
type SubscriptionPayload struct {
	Subscription models.SubscriptionTier `json:"subscription"`
}

func (r SubscriptionPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Subscription,
			validation.Required,
			validation.In(models.TierStarter, models.TierPro, models.TierBusiness),
		),
	)
}
