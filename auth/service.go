// Package auth orchestrates login and registration: credentials go through
// the pipeline, the full credential set is persisted, and only then is the
// in-memory session notified.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/healthsyncai/healthsync-go/api"
	"github.com/healthsyncai/healthsync-go/session"
	"github.com/healthsyncai/healthsync-go/vault"
)

// ErrMissingCredentials rejects a login attempt with blank fields before
// any network call.
var ErrMissingCredentials = errors.New("auth: username and password are required")

// Service wires the pipeline, the vault, and the session store together.
type Service struct {
	client   *api.Client
	vault    vault.Vault
	sessions *session.Store
	log      *zap.Logger
}

// New constructs a Service.
func New(client *api.Client, v vault.Vault, sessions *session.Store, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{client: client, vault: v, sessions: sessions, log: log}
}

// Login authenticates and establishes the session. The credential set is
// durable in the vault before the session store learns about it; the
// in-memory session must never claim an authentication that could be lost
// on restart.
func (s *Service) Login(ctx context.Context, username, password string, role session.Role) error {
	if username == "" || password == "" {
		return ErrMissingCredentials
	}
	resp, err := s.client.Login(ctx, username, password)
	if err != nil {
		return err
	}
	if err := s.establish(resp, username, role); err != nil {
		return err
	}
	s.log.Info("login succeeded", zap.String("username", username), zap.String("role", string(role)))
	return nil
}

// RegisterPatient creates a patient account and establishes the session.
func (s *Service) RegisterPatient(ctx context.Context, reg api.PatientRegistration) error {
	resp, err := s.client.RegisterPatient(ctx, reg)
	if err != nil {
		return err
	}
	return s.establish(resp, reg.Username, session.RolePatient)
}

// RegisterDoctor creates a doctor account and establishes the session.
func (s *Service) RegisterDoctor(ctx context.Context, reg api.DoctorRegistration) error {
	resp, err := s.client.RegisterDoctor(ctx, reg)
	if err != nil {
		return err
	}
	return s.establish(resp, reg.Username, session.RoleDoctor)
}

// establish persists all four credential entries, then notifies the
// session store. Persist-then-notify order is an invariant.
func (s *Service) establish(resp api.AuthResponse, username string, role session.Role) error {
	creds := vault.Credentials{
		Token:       resp.AccessToken,
		UserID:      strconv.Itoa(resp.UserID),
		Role:        string(role),
		DisplayName: username,
	}
	if err := vault.Save(s.vault, creds); err != nil {
		return fmt.Errorf("auth: persist credentials: %w", err)
	}
	s.sessions.Login(role, resp.UserID)
	return nil
}
