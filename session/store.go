// Package session holds the process-wide authenticated-identity state.
// The store is the single writer of its own fields; everything else reads
// snapshots or subscribes.
package session

import (
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/healthsyncai/healthsync-go/vault"
)

// Role is the account role carried by the session.
type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
)

// ParseRole normalizes a stored role tag. Unknown tags yield "".
func ParseRole(s string) Role {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "patient":
		return RolePatient
	case "doctor":
		return RoleDoctor
	default:
		return ""
	}
}

// Session is an immutable snapshot of the auth state. Authenticated
// implies Role and UserID are set.
type Session struct {
	Authenticated bool
	Role          Role
	UserID        int
}

// Store owns the session state. Mutated only by Login and Logout.
type Store struct {
	mu      sync.RWMutex
	session Session
	subs    []func(Session)

	vault vault.Vault
	log   *zap.Logger
}

// New constructs a Store over the given vault. Pass nil to disable logging.
func New(v vault.Vault, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{vault: v, log: log}
}

// Init restores the session from the vault. A stored non-empty token is
// trusted without server-side revalidation; a revoked token surfaces as
// unauthorized on the first authenticated call.
func (s *Store) Init() error {
	creds, err := vault.Load(s.vault)
	if err != nil {
		return err
	}
	next := Session{}
	if creds.Token != "" {
		userID, _ := strconv.Atoi(creds.UserID)
		next = Session{Authenticated: true, Role: ParseRole(creds.Role), UserID: userID}
		s.log.Warn("session restored from stored token without revalidation",
			zap.String("role", string(next.Role)), zap.Int("user_id", next.UserID))
	}
	s.set(next)
	return nil
}

// Login marks the session authenticated. Callers must have persisted the
// credential set to the vault first: in-memory state never claims an
// authentication that is not yet durable.
func (s *Store) Login(role Role, userID int) {
	s.set(Session{Authenticated: true, Role: role, UserID: userID})
	s.log.Info("session authenticated", zap.String("role", string(role)), zap.Int("user_id", userID))
}

// Logout clears the vault namespace and resets the session, synchronously.
func (s *Store) Logout() {
	if err := vault.Clear(s.vault); err != nil {
		s.log.Error("clear credentials on logout", zap.Error(err))
	}
	s.set(Session{})
	s.log.Info("session cleared")
}

// Snapshot returns the current session.
func (s *Store) Snapshot() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session
}

// Authenticated reports whether the session is currently authenticated.
func (s *Store) Authenticated() bool {
	return s.Snapshot().Authenticated
}

// Subscribe registers an observer invoked on every state change with the
// new snapshot. Observers run synchronously on the mutating goroutine.
func (s *Store) Subscribe(fn func(Session)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}

func (s *Store) set(next Session) {
	s.mu.Lock()
	s.session = next
	subs := make([]func(Session), len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()

	for _, fn := range subs {
		fn(next)
	}
}
