package control

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"murmur/log"
)

// Handler executes one parsed command and returns the response line.
// Serialization across concurrent connections is the handler's job; the
// server just delivers commands as they arrive.
type Handler interface {
	Do(cmd Command) string
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(Command) string

func (f HandlerFunc) Do(cmd Command) string { return f(cmd) }

const (
	// connDeadline bounds one connection end to end. A stuck client must
	// not pin a daemon goroutine.
	connDeadline = 5 * time.Second

	// maxLine is far above any valid command; longer input is garbage.
	maxLine = 256
)

type Server struct {
	path    string
	handler Handler

	ln        net.Listener
	closeOnce sync.Once
	closeErr  error
}

func NewServer(path string, h Handler) *Server {
	return &Server{path: path, handler: h}
}

// Listen claims the socket path. A leftover socket file from a crashed
// daemon is dialed first: if nobody answers it is stale and removed, if
// someone answers another instance owns it.
func (s *Server) Listen() error {
	if _, err := os.Stat(s.path); err == nil {
		conn, err := net.DialTimeout("unix", s.path, time.Second)
		if err == nil {
			conn.Close()
			return fmt.Errorf("another instance is listening on %s", s.path)
		}
		if err := os.Remove(s.path); err != nil {
			return fmt.Errorf("remove stale socket: %w", err)
		}
		log.Infof("removed stale socket %s", s.path)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("socket directory: %w", err)
	}
	ln, err := net.Listen("unix", s.path)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.path, err)
	}
	// Commands can start and stop recordings; keep them owner-only.
	if err := os.Chmod(s.path, 0600); err != nil {
		ln.Close()
		return fmt.Errorf("chmod socket: %w", err)
	}
	s.ln = ln
	return nil
}

// Serve accepts connections until ctx ends or the listener fails. Each
// connection carries exactly one command.
func (s *Server) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.Close()
	}()

	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}
		go s.handle(conn)
	}
}

// Close stops accepting and unlinks the socket file.
func (s *Server) Close() error {
	s.closeOnce.Do(func() {
		if s.ln != nil {
			s.closeErr = s.ln.Close()
		}
	})
	return s.closeErr
}

func (s *Server) handle(conn net.Conn) {
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(connDeadline))

	line, err := bufio.NewReader(io.LimitReader(conn, maxLine)).ReadString('\n')
	if err != nil && line == "" {
		return
	}
	word := strings.TrimSpace(line)
	if word == "" {
		respond(conn, "error: empty command")
		return
	}

	cmd, ok := ParseCommand(word)
	if !ok {
		resp := fmt.Sprintf("error: unknown command %q", word)
		log.Command(word, resp)
		respond(conn, resp)
		return
	}

	resp := s.handler.Do(cmd)
	log.Command(cmd.String(), resp)
	respond(conn, resp)
}

func respond(conn net.Conn, line string) {
	fmt.Fprintln(conn, line)
}
