package ipc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseHandshakeStripsSentinelAndVersion(t *testing.T) {
	raw := []byte("alice:hunter2\n\x06\x00\x00")
	creds := ParseHandshake(raw)
	require.Equal(t, "alice", creds.User)
	require.Equal(t, "hunter2", creds.Password)
	require.Equal(t, byte(6), creds.Version)
}

func TestParseHandshakeEmptyUserIsAnonymous(t *testing.T) {
	raw := []byte(":\n\x03\x00\x00")
	creds := ParseHandshake(raw)
	require.Equal(t, "anonymous", creds.User)
}

func TestNegotiateVersionRejectsBelowMinimum(t *testing.T) {
	require.Equal(t, byte(0), NegotiateVersion(2))
}

func TestNegotiateVersionCapsAtHighest(t *testing.T) {
	require.Equal(t, byte(9), NegotiateVersion(12))
}

func TestNegotiateVersionPassesThroughSupported(t *testing.T) {
	require.Equal(t, byte(6), NegotiateVersion(6))
}

func TestAuthorizeAllowlist(t *testing.T) {
	require.True(t, Authorize("alice", []string{"alice", "bob"}))
	require.False(t, Authorize("eve", []string{"alice", "bob"}))
	require.True(t, Authorize("anyone", nil))
	require.False(t, Authorize("anonymous", nil))
	require.False(t, Authorize("", nil))
}
