// Package avatar normalizes uploaded profile images and publishes them to
// public storage. It also derives the placeholder avatar used at signup.
package avatar

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
)

const gravatarBase = "http://www.gravatar.com/avatar/"

// PlaceholderURL returns the Gravatar URL for email. It is pure: no network
// call is made, Gravatar serves its default image for unknown hashes.
func PlaceholderURL(email string) string {
	sum := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(email))))
	return gravatarBase + hex.EncodeToString(sum[:])
}
