package devops

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientTimeoutKeepsTransport(t *testing.T) {
	c := NewClient(nil, WithTimeout(5*time.Second))

	assert.Equal(t, 5*time.Second, c.http.Timeout)
	transport, ok := c.http.Transport.(*http.Transport)
	require.True(t, ok, "the tuned transport is kept")
	assert.Equal(t, 10, transport.MaxIdleConnsPerHost)
}

func TestNewClientDefaults(t *testing.T) {
	c := NewClient(nil)
	assert.Equal(t, 30*time.Second, c.http.Timeout)
	assert.Equal(t, DefaultMaxBatchSize, c.batch.MaxBatchSize)
	assert.Equal(t, DefaultMaxURLLength, c.batch.MaxURLLength)
}

func TestNewClientTimeoutAppliesToCustomClient(t *testing.T) {
	custom := &http.Client{}
	c := NewClient(nil, WithHTTPClient(custom), WithTimeout(time.Second))
	assert.Same(t, custom, c.http)
	assert.Equal(t, time.Second, custom.Timeout)
}
