package cmd

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattsolo1/grove-workitems/pkg/auth"
)

func TestEnsureSessionPromptsOnceThenStopsPrompting(t *testing.T) {
	tokens := auth.NewTokenStore(filepath.Join(t.TempDir(), "secrets.yaml"),
		auth.WithPrompter(auth.ReaderPrompter{R: strings.NewReader("pat-123\n")}))
	ctx := context.Background()

	require.NoError(t, ensureSession(ctx, tokens))

	session, err := tokens.GetSession(ctx, auth.ProviderID, auth.SessionOptions{})
	require.NoError(t, err)
	assert.Equal(t, "pat-123", session.AccessToken)

	// A token removed while the browser runs must not trigger a prompt.
	require.NoError(t, tokens.Delete(auth.ProviderID))
	_, err = tokens.GetSession(ctx, auth.ProviderID, auth.SessionOptions{CreateIfNone: true})
	assert.ErrorIs(t, err, auth.ErrNoSession)
}

func TestEnsureSessionFailsWithoutToken(t *testing.T) {
	tokens := auth.NewTokenStore(filepath.Join(t.TempDir(), "secrets.yaml"),
		auth.WithPrompter(auth.ReaderPrompter{R: strings.NewReader("\n")}))

	err := ensureSession(context.Background(), tokens)
	assert.ErrorIs(t, err, auth.ErrTokenRequired)
}
