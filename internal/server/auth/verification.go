package auth

import gonanoid "github.com/matoous/go-nanoid/v2"

// VerificationTokenLength is the nanoid default size (~126 bits of entropy).
const VerificationTokenLength = 21

// newNanoID is a seam for tests.
var newNanoID = gonanoid.New

// NewVerificationToken returns a URL-safe random token for email ownership
// proof.
func NewVerificationToken() (string, error) {
	return newNanoID(VerificationTokenLength)
}
