// Package auth supplies personal access token sessions for outgoing requests.
package auth

import (
	"context"
	"encoding/base64"
	"errors"
)

// ProviderID names the credential used for every Azure DevOps request.
const ProviderID = "AzureDevOpsPAT"

// ErrTokenRequired is returned when a session had to be created interactively
// and no token was entered.
var ErrTokenRequired = errors.New("personal access token is required")

// ErrNoSession is returned when no token is stored and creation was not requested.
var ErrNoSession = errors.New("no session available, run 'wi login'")

// Account identifies the holder of a session.
type Account struct {
	ID    string
	Label string
}

// Session is an authenticated personal access token.
type Session struct {
	ID          string
	AccessToken string
	Account     Account
	Scopes      []string
}

// NewPATSession wraps a personal access token.
func NewPATSession(token string) *Session {
	return &Session{
		ID:          ProviderID,
		AccessToken: token,
		Account: Account{
			ID:    ProviderID,
			Label: "Azure DevOps Personal Access Token",
		},
		Scopes: []string{},
	}
}

// SessionOptions controls GetSession.
type SessionOptions struct {
	// CreateIfNone prompts for a new token when none is stored.
	CreateIfNone bool
}

// SessionProvider hands out sessions keyed by a provider id.
type SessionProvider interface {
	GetSession(ctx context.Context, providerID string, opts SessionOptions) (*Session, error)
}

// BasicAuthHeader renders the Authorization header value for a token: the
// token is sent as the password with an empty user name.
func BasicAuthHeader(token string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(":"+token))
}
