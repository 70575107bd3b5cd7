package anonymize

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// pseudonymBytes is how much of the digest is kept
const pseudonymBytes = 16

// Pseudonymizer replaces identifiers with a keyed BLAKE2b-256 digest. The
// same key maps the same id to the same token across runs.
type Pseudonymizer struct {
	key []byte
}

// NewPseudonymizer creates a pseudonymizer; key must be at most 64 bytes
func NewPseudonymizer(key []byte) (*Pseudonymizer, error) {
	// validate the key once so Token cannot fail
	if _, err := blake2b.New256(key); err != nil {
		return nil, err
	}
	return &Pseudonymizer{key: append([]byte(nil), key...)}, nil
}

// Token returns the hex pseudonym for value. Blank values stay blank.
func (p *Pseudonymizer) Token(value string) string {
	if value == "" {
		return ""
	}
	h, _ := blake2b.New256(p.key)
	h.Write([]byte(value))
	sum := h.Sum(nil)
	return hex.EncodeToString(sum[:pseudonymBytes])
}
