package remote

import (
	"bufio"
	"strings"
	"time"
)

// DefaultControlPort is the miner API port on the remote loopback.
const DefaultControlPort = 4068

// controlTimeout bounds the switchpool round trip. SSH channels do not
// support read deadlines, so the read is raced against a timer instead.
const controlTimeout = 5 * time.Second

// triggerSwitchPool tells the running miner to re-evaluate its pool
// selection. The command travels over a TCP channel tunneled through the
// already-open SSH connection, because the API port listens on the remote
// loopback only.
//
// Failure here is an expected condition (miners with the API disabled are
// common) and is reported as (false, reason), never as a host failure.
func triggerSwitchPool(sess session, port int) (ok bool, detail string) {
	conn, err := sess.dialControl(port)
	if err != nil {
		return false, "no api access: " + err.Error()
	}
	defer conn.Close()

	if _, err := conn.Write([]byte("switchpool\n")); err != nil {
		return false, "control write failed: " + err.Error()
	}

	line, err := readLineTimeout(conn, controlTimeout)
	if line == "" && err != nil {
		return false, "control read failed: " + err.Error()
	}
	if strings.Contains(strings.ToLower(line), "ok|") {
		return true, "switchpool ok"
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return false, "empty response"
	}
	return false, line
}

// readLineTimeout reads the first response line, giving up after timeout.
// The miner replies in one line and closes, so EOF with partial data still
// counts as a response.
func readLineTimeout(conn interface {
	Read(p []byte) (int, error)
	Close() error
}, timeout time.Duration) (string, error) {
	type result struct {
		line string
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		line, err := bufio.NewReader(conn).ReadString('\n')
		ch <- result{line: line, err: err}
	}()

	select {
	case r := <-ch:
		return r.line, r.err
	case <-time.After(timeout):
		conn.Close() // unblocks the reader goroutine
		return "", errControlTimeout
	}
}

var errControlTimeout = timeoutError{}

type timeoutError struct{}

func (timeoutError) Error() string { return "control port timed out" }
func (timeoutError) Timeout() bool { return true }
