// Package hmacsig implements the request-signing scheme devices use during
// the handshake: HMAC-SHA256 over an ASCII canonical string, base64-encoded.
package hmacsig

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
)

// ErrNonASCII is returned when the secret or message contains bytes outside
// the ASCII range. Signatures are defined over ASCII only.
var ErrNonASCII = errors.New("hmacsig: input is not ASCII")

// Sign computes HMAC-SHA256 over message with secret and returns the base64
// encoding of the raw digest.
func Sign(secret, message string) (string, error) {
	if !isASCII(secret) || !isASCII(message) {
		return "", ErrNonASCII
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(message))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}

// Compare reports whether two signatures are equal, in constant time.
// Non-ASCII input yields false rather than an error.
func Compare(expected, provided string) bool {
	if !isASCII(expected) || !isASCII(provided) {
		return false
	}
	return hmac.Equal([]byte(expected), []byte(provided))
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] > 127 {
			return false
		}
	}
	return true
}
