package ipc

import (
	"testing"

	"github.com/chilidb/chili/engine"
	"github.com/stretchr/testify/require"
)

func TestParseURIQDialect(t *testing.T) {
	p, err := ParseURI("q://localhost:5001")
	require.NoError(t, err)
	require.Equal(t, "localhost", p.Host)
	require.Equal(t, 5001, p.Port)
	require.Equal(t, engine.DialectV6, p.Dialect)
	require.Equal(t, "localhost:5001", p.Socket())
}

func TestParseURIChiliDialectWithCreds(t *testing.T) {
	p, err := ParseURI("chili://db.internal:6001:alice:secret")
	require.NoError(t, err)
	require.Equal(t, engine.DialectV9, p.Dialect)
	require.Equal(t, "alice", p.User)
	require.Equal(t, "secret", p.Password)
}

func TestParseURIFile(t *testing.T) {
	p, err := ParseURI("file:///var/lib/chili/seq.log")
	require.NoError(t, err)
	require.Equal(t, "/var/lib/chili/seq.log", p.Path)
}

func TestParseURIUnsupportedScheme(t *testing.T) {
	_, err := ParseURI("http://example.com")
	require.Error(t, err)
}

func TestParseURIMissingPort(t *testing.T) {
	_, err := ParseURI("q://localhost")
	require.Error(t, err)
}

func TestParseURIMalformed(t *testing.T) {
	_, err := ParseURI("not-a-uri")
	require.Error(t, err)
}
