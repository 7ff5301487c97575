// Package auth checks the single shared admin credential.
package auth

import (
	"crypto/subtle"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

type Authenticator struct {
	user string
	hash []byte
}

// New accepts either a bcrypt hash or a plain password, preferring the hash.
// Without either every check fails.
func New(user, password, passwordHash string) (*Authenticator, error) {
	const op = "auth.New"

	a := &Authenticator{user: user}

	switch {
	case passwordHash != "":
		if _, err := bcrypt.Cost([]byte(passwordHash)); err != nil {
			return nil, fmt.Errorf("%s: invalid password hash: %w", op, err)
		}
		a.hash = []byte(passwordHash)
	case password != "":
		h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("%s:%w", op, err)
		}
		a.hash = h
	}

	return a, nil
}

func (a *Authenticator) Configured() bool {
	return len(a.hash) > 0
}

// Check reports whether user and password match the admin credential.
func (a *Authenticator) Check(user, password string) bool {
	if !a.Configured() {
		return false
	}

	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(a.user)) == 1
	passOK := bcrypt.CompareHashAndPassword(a.hash, []byte(password)) == nil

	return userOK && passOK
}
