package control

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"syscall"
	"time"
)

// ErrNotRunning means no daemon answered on the socket.
var ErrNotRunning = errors.New("daemon is not running")

// Send delivers one command word to the daemon at path and returns the
// response line. It is the whole client: connect, one line out, one
// line back.
func Send(path, word string) (string, error) {
	conn, err := net.DialTimeout("unix", path, time.Second)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) || errors.Is(err, syscall.ECONNREFUSED) {
			return "", fmt.Errorf("%w (socket %s)", ErrNotRunning, path)
		}
		return "", err
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(connDeadline))

	if _, err := fmt.Fprintln(conn, word); err != nil {
		return "", err
	}
	resp, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil && resp == "" {
		return "", fmt.Errorf("reading response: %w", err)
	}
	return strings.TrimSpace(resp), nil
}
