// Package vault abstracts the secure credential store backing the SDK's
// session state. Four logical entries live under one service namespace and
// are always written and cleared together.
package vault

import "errors"

// Logical keys within the namespace. The names are fixed; other clients of
// the same account share them.
const (
	KeyToken       = "userToken"
	KeyUserID      = "userId"
	KeyRole        = "userRole"
	KeyDisplayName = "username"
)

// ErrNotFound is returned by Get when the key has no stored value.
var ErrNotFound = errors.New("vault: key not found")

// Vault is a secure key/value store for a single service namespace.
type Vault interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
}

// Credentials is the full credential set persisted on login.
type Credentials struct {
	Token       string
	UserID      string
	Role        string
	DisplayName string
}

// Save writes all four entries. Writers must never persist a partial set;
// on the first failed write the vault is cleared so readers cannot observe
// a half-written credential set.
func Save(v Vault, c Credentials) error {
	entries := []struct{ key, value string }{
		{KeyToken, c.Token},
		{KeyUserID, c.UserID},
		{KeyRole, c.Role},
		{KeyDisplayName, c.DisplayName},
	}
	for _, e := range entries {
		if err := v.Set(e.key, e.value); err != nil {
			_ = Clear(v)
			return err
		}
	}
	return nil
}

// Load reads the stored credential set. Absent keys yield empty fields
// rather than an error.
func Load(v Vault) (Credentials, error) {
	var c Credentials
	var err error
	if c.Token, err = getOptional(v, KeyToken); err != nil {
		return Credentials{}, err
	}
	if c.UserID, err = getOptional(v, KeyUserID); err != nil {
		return Credentials{}, err
	}
	if c.Role, err = getOptional(v, KeyRole); err != nil {
		return Credentials{}, err
	}
	if c.DisplayName, err = getOptional(v, KeyDisplayName); err != nil {
		return Credentials{}, err
	}
	return c, nil
}

// Clear removes all four entries. Missing keys are not an error; the
// namespace is never left partially cleared.
func Clear(v Vault) error {
	var firstErr error
	for _, key := range []string{KeyToken, KeyUserID, KeyRole, KeyDisplayName} {
		if err := v.Delete(key); err != nil && !errors.Is(err, ErrNotFound) && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func getOptional(v Vault, key string) (string, error) {
	value, err := v.Get(key)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	return value, err
}
