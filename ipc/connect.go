package ipc

import (
	"bufio"
	"fmt"
	"net"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/chilidb/chili/engine"
	"github.com/chilidb/chili/value"
)

// Open implements open_handle(uri) (§6.5, §4.4.1/§4.4.2): it parses uri,
// dials the peer for q:// and chili:// schemes, performs the client side
// of the authentication handshake, registers a new Outgoing Handle in the
// engine, and returns its id. file:// handles are opened by the broker's
// sequence-log writer instead (§4.5.1).
func Open(eng *engine.Engine, uri string) (int64, error) {
	p, err := ParseURI(uri)
	if err != nil {
		return 0, err
	}
	if p.Scheme == "file" {
		return 0, value.NewError(value.KindEval, "open_handle: file uri %q must go through the sequence-log opener", uri)
	}

	conn, err := net.DialTimeout("tcp", p.Socket(), 10*time.Second)
	if err != nil {
		return 0, value.NewError(value.KindEval, "open_handle: dial %s: %v", p.Socket(), err)
	}

	version := byte(6)
	if p.Dialect == engine.DialectV9 {
		version = 9
	}
	hs := fmt.Sprintf("%s:%s\n%c\x00\x00", p.User, p.Password, version)
	if _, err := conn.Write([]byte(hs)); err != nil {
		conn.Close()
		return 0, value.NewError(value.KindEval, "open_handle: handshake write: %v", err)
	}
	resp := make([]byte, 1)
	if _, err := conn.Read(resp); err != nil {
		conn.Close()
		return 0, value.NewError(value.KindEval, "open_handle: handshake response: %v", err)
	}
	if resp[0] < minSupportedVersion {
		conn.Close()
		return 0, value.NewError(value.KindEval, "open_handle: peer rejected version")
	}

	h := &engine.Handle{
		Stream:  conn,
		Socket:  p.Socket(),
		URI:     uri,
		Local:   isLocalAddr(conn),
		Dialect: p.Dialect,
		Role:    engine.RoleOutgoing,
	}
	id := eng.AddHandle(h)
	return id, nil
}

// OpenWithRetry retries Open with an exponential backoff, matching the
// reconnection behavior expected of a long-lived tickerplant client.
func OpenWithRetry(eng *engine.Engine, uri string, maxElapsed time.Duration) (int64, error) {
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = maxElapsed

	var id int64
	op := func() error {
		var err error
		id, err = Open(eng, uri)
		return err
	}
	if err := backoff.Retry(op, b); err != nil {
		return 0, err
	}
	return id, nil
}

// AcceptIncoming accepts one connection on ln, performs the server side
// of the authentication handshake (§4.4.2), and registers a new Incoming
// Handle. allowlist is empty to accept any non-empty username.
func AcceptIncoming(eng *engine.Engine, ln net.Listener, dialect engine.Dialect, allowlist []string, allowAnonymous bool) (int64, error) {
	conn, err := ln.Accept()
	if err != nil {
		return 0, err
	}

	r := bufio.NewReader(conn)
	creds, err := ReadHandshake(r)
	if err != nil {
		conn.Close()
		return 0, err
	}

	negotiated := NegotiateVersion(creds.Version)
	if _, err := conn.Write([]byte{negotiated}); err != nil {
		conn.Close()
		return 0, err
	}
	if negotiated == 0 {
		conn.Close()
		return 0, value.NewError(value.KindEval, "accept: unsupported handshake version")
	}

	if !Authorize(creds.User, allowlist) && !(allowAnonymous && creds.User == "anonymous") {
		conn.Close()
		return 0, value.NewError(value.KindEval, "accept: unauthorized user %q", creds.User)
	}

	h := &engine.Handle{
		Stream:  conn,
		Socket:  conn.RemoteAddr().String(),
		Local:   isLocalAddr(conn),
		Dialect: dialect,
		Role:    engine.RoleIncoming,
	}
	id := eng.AddHandle(h)
	return id, nil
}

func isLocalAddr(conn net.Conn) bool {
	remote, ok := conn.RemoteAddr().(*net.TCPAddr)
	if !ok {
		return true
	}
	return remote.IP.IsLoopback()
}
