// Package authsvc is the pluggable credential verifier spec.md §1 treats
// as out of scope ("the core accepts any password"). SPEC_FULL.md §10
// keeps that default but adds an optional bcrypt-backed verifier so the
// module has somewhere for golang.org/x/crypto/bcrypt to live.
package authsvc

import "golang.org/x/crypto/bcrypt"

// Verifier checks a cleartext password presented during the handshake's
// authentication step against whatever credential store backs it.
type Verifier interface {
	Verify(user, password string) bool
}

// AcceptAny is the spec-mandated default: every password is accepted.
type AcceptAny struct{}

func (AcceptAny) Verify(string, string) bool { return true }

// Bcrypt verifies a password against a per-user bcrypt hash. Users
// absent from the map are rejected.
type Bcrypt struct {
	hashByUser map[string]string
}

// NewBcrypt constructs a Bcrypt verifier from a user->hash map, as loaded
// from config.AuthConfig.BcryptHashByUser.
func NewBcrypt(hashByUser map[string]string) *Bcrypt {
	cp := make(map[string]string, len(hashByUser))
	for k, v := range hashByUser {
		cp[k] = v
	}
	return &Bcrypt{hashByUser: cp}
}

func (b *Bcrypt) Verify(user, password string) bool {
	hash, ok := b.hashByUser[user]
	if !ok {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
