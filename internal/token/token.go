// Package token derives the opaque per-user identifier used throughout the server.
//
// A token is the lower-case hex SHA-256 digest of the normalized username and the
// secret joined by a colon. The same pair always resolves to the same token, which
// lets a repeated login skip the upstream fetch entirely.
package token

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// schoolMailSuffix is stripped from usernames; the portal accepts both forms.
const schoolMailSuffix = "@skole.hr"

// Length is the number of hex characters in a token.
const Length = sha256.Size * 2

// Normalize canonicalizes a username so that differing case, surrounding
// whitespace and the optional school mail suffix resolve to the same account.
func Normalize(username string) string {
	u := strings.ToLower(strings.TrimSpace(username))
	return strings.TrimSuffix(u, schoolMailSuffix)
}

// Derive returns the token for the given username and secret.
func Derive(username, secret string) string {
	sum := sha256.Sum256([]byte(Normalize(username) + ":" + secret))
	return hex.EncodeToString(sum[:])
}

// Valid reports whether s has the shape of a token.
func Valid(s string) bool {
	if len(s) != Length {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// Short returns a prefix of the token suitable for log lines.
func Short(t string) string {
	if len(t) <= 8 {
		return t
	}
	return t[:8]
}
