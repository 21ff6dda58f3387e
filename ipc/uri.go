// Package ipc implements connection establishment, the authentication
// handshake, handle role transitions, and sync() for both wire dialects
// (§4.4). It depends on engine but never the reverse.
package ipc

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/chilidb/chili/engine"
	"github.com/chilidb/chili/value"
)

// ParsedURI is the decomposed form of a handle URI (§4.4.1, §6.1).
type ParsedURI struct {
	Scheme   string
	Host     string
	Port     int
	User     string
	Password string
	Path     string // set only for file://
	Dialect  engine.Dialect
}

// ParseURI parses q://, chili:// and file:// URIs. Any other scheme, a
// missing port, or a malformed socket string fails with an EvalErr-kind
// value.Error.
func ParseURI(uri string) (ParsedURI, error) {
	scheme, rest, ok := strings.Cut(uri, "://")
	if !ok {
		return ParsedURI{}, evalErrf("ipc: malformed uri %q", uri)
	}

	switch scheme {
	case "file":
		if rest == "" {
			return ParsedURI{}, evalErrf("ipc: file uri missing path: %q", uri)
		}
		return ParsedURI{Scheme: scheme, Path: rest}, nil
	case "q", "chili":
		parts := strings.Split(rest, ":")
		if len(parts) != 1 && len(parts) != 2 && len(parts) != 4 {
			return ParsedURI{}, evalErrf("ipc: malformed socket string %q", uri)
		}
		host := parts[0]
		if host == "" {
			return ParsedURI{}, evalErrf("ipc: malformed socket string %q", uri)
		}
		if len(parts) < 2 {
			return ParsedURI{}, evalErrf("ipc: missing port in %q", uri)
		}
		port, err := strconv.Atoi(parts[1])
		if err != nil || port <= 0 || port > 65535 {
			return ParsedURI{}, evalErrf("ipc: invalid port in %q", uri)
		}
		p := ParsedURI{Scheme: scheme, Host: host, Port: port}
		if scheme == "q" {
			p.Dialect = engine.DialectV6
		} else {
			p.Dialect = engine.DialectV9
		}
		if len(parts) == 4 {
			p.User, p.Password = parts[2], parts[3]
		}
		return p, nil
	default:
		return ParsedURI{}, evalErrf("ipc: unsupported scheme %q", scheme)
	}
}

// Socket renders the canonical "host:port" socket string stored on a
// Handle.
func (p ParsedURI) Socket() string {
	return fmt.Sprintf("%s:%d", p.Host, p.Port)
}

func evalErrf(format string, args ...interface{}) error {
	return value.NewError(value.KindEval, format, args...)
}
