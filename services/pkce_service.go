package services

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"regexp"

	serrors "github.com/edustack/authserver/errors"
)

const (
	// CodeChallengeMethodPlain compares verifier and challenge directly.
	CodeChallengeMethodPlain = "plain"
	// CodeChallengeMethodS256 compares base64url(sha256(verifier)).
	CodeChallengeMethodS256 = "S256"
)

// RFC 7636 §4.1: unreserved characters, 43 to 128 of them.
var codeChallengeFormat = regexp.MustCompile(`^[A-Za-z0-9\-._~]{43,128}$`)

// ValidateCodeChallenge checks the challenge format and method at authorize
// time, so malformed challenges are rejected before a code is ever issued.
func ValidateCodeChallenge(challenge, method string) error {
	switch method {
	case CodeChallengeMethodPlain, CodeChallengeMethodS256:
	default:
		return serrors.ErrInvalidCodeChallengeMethod
	}
	if !codeChallengeFormat.MatchString(challenge) {
		return serrors.ErrInvalidCodeChallenge
	}
	return nil
}

// VerifyCodeVerifier validates a code verifier against the stored challenge.
// Unknown methods fail closed.
func VerifyCodeVerifier(verifier, challenge, method string) bool {
	switch method {
	case CodeChallengeMethodPlain:
		return subtle.ConstantTimeCompare([]byte(verifier), []byte(challenge)) == 1
	case CodeChallengeMethodS256:
		h := sha256.Sum256([]byte(verifier))
		computed := base64.RawURLEncoding.EncodeToString(h[:])
		return subtle.ConstantTimeCompare([]byte(computed), []byte(challenge)) == 1
	default:
		return false
	}
}
