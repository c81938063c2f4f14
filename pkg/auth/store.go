package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// secretsFile is the on-disk layout of the token store.
type secretsFile struct {
	Tokens map[string]string `yaml:"tokens"`
}

// TokenStore is a SessionProvider backed by a YAML secrets file. A token
// supplied through configuration takes precedence over the stored one.
type TokenStore struct {
	path     string
	override string
	prompter Prompter
	logger   *logrus.Entry

	mu sync.Mutex
}

// StoreOption configures a TokenStore.
type StoreOption func(*TokenStore)

// WithOverrideToken makes every session use token, ignoring the file.
func WithOverrideToken(token string) StoreOption {
	return func(s *TokenStore) { s.override = strings.TrimSpace(token) }
}

// WithPrompter sets how a missing token is asked for.
func WithPrompter(p Prompter) StoreOption {
	return func(s *TokenStore) { s.prompter = p }
}

// WithLogger sets the logger.
func WithLogger(l *logrus.Entry) StoreOption {
	return func(s *TokenStore) { s.logger = l }
}

// NewTokenStore creates a store persisting tokens at path.
func NewTokenStore(path string, opts ...StoreOption) *TokenStore {
	s := &TokenStore{path: path}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		s.logger = logrus.NewEntry(l)
	}
	return s
}

// DisablePrompt makes later GetSession calls fail with ErrNoSession instead of
// prompting when no token is stored.
func (s *TokenStore) DisablePrompt() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompter = nil
}

// GetSession returns the stored session for providerID. With CreateIfNone the
// user is prompted for a token, which is stored before returning.
func (s *TokenStore) GetSession(ctx context.Context, providerID string, opts SessionOptions) (*Session, error) {
	if s.override != "" {
		return NewPATSession(s.override), nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	secrets, err := s.read()
	if err != nil {
		return nil, err
	}
	if token := secrets.Tokens[providerID]; token != "" {
		return NewPATSession(token), nil
	}

	if !opts.CreateIfNone {
		return nil, ErrNoSession
	}
	return s.create(ctx, providerID, secrets)
}

// create must be called with s.mu held.
func (s *TokenStore) create(ctx context.Context, providerID string, secrets *secretsFile) (*Session, error) {
	if s.prompter == nil {
		return nil, ErrNoSession
	}

	token, err := s.prompter.Prompt(ctx, "Enter an Azure DevOps Personal Access Token (PAT): ")
	if err != nil {
		return nil, fmt.Errorf("prompt for token: %w", err)
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrTokenRequired
	}

	secrets.Tokens[providerID] = token
	if err := s.write(secrets); err != nil {
		return nil, err
	}
	s.logger.WithField("provider", providerID).Info("Stored personal access token")

	return NewPATSession(token), nil
}

// Store saves token for providerID, replacing any previous one.
func (s *TokenStore) Store(providerID, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrTokenRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	secrets, err := s.read()
	if err != nil {
		return err
	}
	secrets.Tokens[providerID] = token
	return s.write(secrets)
}

// Delete removes the token for providerID. Deleting a missing token is not an error.
func (s *TokenStore) Delete(providerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	secrets, err := s.read()
	if err != nil {
		return err
	}
	if _, ok := secrets.Tokens[providerID]; !ok {
		return nil
	}
	delete(secrets.Tokens, providerID)
	return s.write(secrets)
}

func (s *TokenStore) read() (*secretsFile, error) {
	secrets := &secretsFile{}
	data, err := os.ReadFile(s.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read secrets: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, secrets); err != nil {
			return nil, fmt.Errorf("parse secrets: %w", err)
		}
	}
	if secrets.Tokens == nil {
		secrets.Tokens = make(map[string]string)
	}
	return secrets, nil
}

func (s *TokenStore) write(secrets *secretsFile) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("create secrets dir: %w", err)
	}
	data, err := yaml.Marshal(secrets)
	if err != nil {
		return fmt.Errorf("marshal secrets: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("write secrets: %w", err)
	}
	return nil
}
