// Package remote drives the per-host SSH sequence: read the miner config,
// patch it, keep backups, write it back, and optionally poke the miner's
// control port through the same SSH connection.
package remote

import (
	"bytes"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"
)

// session is the minimal remote surface the driver needs. The real
// implementation wraps an ssh.Client; tests substitute a fake.
type session interface {
	// output runs cmd in the remote shell and returns its stdout.
	output(cmd string) ([]byte, error)
	// runInput runs cmd with input piped to its stdin.
	runInput(cmd string, input []byte) error
	// dialControl opens a TCP connection to 127.0.0.1:port on the remote
	// host, tunneled through the SSH connection. The control port is bound
	// to the miner's loopback interface and has no other path.
	dialControl(port int) (net.Conn, error)
	close() error
}

// sshSession wraps one ssh.Client. Each exec creates a fresh SSH session
// (stateless, the way sessions are meant to be used).
type sshSession struct {
	client *ssh.Client
}

// dialSSH connects and authenticates to host:port with password auth.
// Miner fleets are flat password-provisioned networks, so host keys are not
// verified.
func dialSSH(host string, port int, user, pass string, timeout time.Duration) (session, error) {
	config := &ssh.ClientConfig{
		User: user,
		Auth: []ssh.AuthMethod{
			ssh.Password(pass),
		},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         timeout,
	}

	addr := net.JoinHostPort(host, strconv.Itoa(port))
	client, err := ssh.Dial("tcp", addr, config)
	if err != nil {
		return nil, err
	}
	return &sshSession{client: client}, nil
}

func (s *sshSession) output(cmd string) ([]byte, error) {
	sess, err := s.client.NewSession()
	if err != nil {
		return nil, fmt.Errorf("SSH session: %w", err)
	}
	defer sess.Close()

	var stdout, stderr bytes.Buffer
	sess.Stdout = &stdout
	sess.Stderr = &stderr
	if err := sess.Run(cmd); err != nil {
		return nil, remoteError(cmd, err, stderr.Bytes())
	}
	return stdout.Bytes(), nil
}

func (s *sshSession) runInput(cmd string, input []byte) error {
	sess, err := s.client.NewSession()
	if err != nil {
		return fmt.Errorf("SSH session: %w", err)
	}
	defer sess.Close()

	sess.Stdin = bytes.NewReader(input)
	var stderr bytes.Buffer
	sess.Stderr = &stderr
	if err := sess.Run(cmd); err != nil {
		return remoteError(cmd, err, stderr.Bytes())
	}
	return nil
}

func (s *sshSession) dialControl(port int) (net.Conn, error) {
	return s.client.Dial("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)))
}

func (s *sshSession) close() error {
	return s.client.Close()
}

// remoteError folds captured stderr into the error text so failures carry
// the remote diagnostic, not just an exit status.
func remoteError(cmd string, err error, stderr []byte) error {
	msg := strings.TrimSpace(string(stderr))
	if msg == "" {
		return fmt.Errorf("remote command %q: %w", cmd, err)
	}
	return fmt.Errorf("remote command %q: %w: %s", cmd, err, msg)
}

// shellQuote quotes a path for safe use in remote shell commands.
// Paths starting with ~/ preserve tilde expansion while quoting the rest.
// Other paths are fully single-quoted.
func shellQuote(path string) string {
	if strings.HasPrefix(path, "~/") {
		return "~/" + singleQuote(path[2:])
	}
	return singleQuote(path)
}

// singleQuote wraps a string in single quotes, escaping any embedded single quotes.
func singleQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "'\\''") + "'"
}
