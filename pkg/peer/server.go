package peer

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/bastiangx/wordtrie/internal/logger"
	"github.com/charmbracelet/log"
)

// Server answers get requests from a Completer. Each connection is served by
// its own goroutine and may carry any number of requests.
type Server struct {
	completer Completer
	limit     int
	idle      time.Duration
	log       *log.Logger

	mu      sync.Mutex
	conns   map[net.Conn]struct{}
	closing bool
	wg      sync.WaitGroup
}

// NewServer creates a server replying with at most limit completions per request.
// idle closes connections that send nothing for that long; 0 disables it.
func NewServer(completer Completer, limit int, idle time.Duration) *Server {
	return &Server{
		completer: completer,
		limit:     limit,
		idle:      idle,
		log:       logger.New("peer"),
		conns:     make(map[net.Conn]struct{}),
	}
}

// ListenAndServe listens on addr and serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done, then closes ln and every
// open connection and waits for their handlers to return.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.log.Infof("Listening on %s", ln.Addr())

	stop := context.AfterFunc(ctx, func() {
		ln.Close()
		s.closeConns()
	})
	defer stop()

	for {
		conn, err := ln.Accept()
		if err != nil {
			s.wg.Wait()
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		if !s.track(conn) {
			conn.Close()
			continue
		}
		s.wg.Add(1)
		go s.handle(conn)
	}
}

// track registers conn for shutdown. It reports false once shutdown has begun,
// since closeConns would never see the connection.
func (s *Server) track(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		return false
	}
	s.conns[conn] = struct{}{}
	return true
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
}

func (s *Server) closeConns() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closing = true
	for conn := range s.conns {
		conn.Close()
	}
}

func (s *Server) handle(conn net.Conn) {
	defer s.wg.Done()
	defer s.untrack(conn)
	defer conn.Close()

	remote := conn.RemoteAddr()
	s.log.Debugf("Peer connected: %s", remote)
	reader := bufio.NewReader(conn)

	for {
		if s.idle > 0 {
			conn.SetReadDeadline(time.Now().Add(s.idle))
		}
		line, err := reader.ReadString('\n')
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				s.log.Debugf("Peer %s: %v", remote, err)
			}
			return
		}

		prefix, ok := parseRequest(line)
		var words []string
		if ok {
			words = s.completer.Complete(prefix, s.limit)
			s.log.Debug("Served", "prefix", prefix, "count", len(words))
		} else {
			if strings.Trim(line, "\r\n") == "" {
				continue
			}
			s.log.Debugf("Peer %s sent unknown request %q", remote, line)
		}

		if _, err := io.WriteString(conn, EncodeReply(words)); err != nil {
			s.log.Debugf("Peer %s: write failed: %v", remote, err)
			return
		}
	}
}
