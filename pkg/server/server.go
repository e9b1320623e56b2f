package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"time"
	"unicode/utf8"

	"github.com/bastiangx/wordtrie/internal/logger"
	"github.com/bastiangx/wordtrie/pkg/config"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"
)

// Completer is the vocabulary the server answers from.
type Completer interface {
	Complete(prefix string, limit int) []string
	Scan(prefix string, limit int) []string
	Stats() map[string]int
}

// Server handles the IPC for word completions
type Server struct {
	completer Completer
	config    config.ServerConfig
	dec       *msgpack.Decoder
	out       *bufio.Writer
	enc       *msgpack.Encoder
	log       *log.Logger

	requestCount int
}

// NewServer creates a server reading requests from r and writing responses to w.
func NewServer(completer Completer, cfg config.ServerConfig, r io.Reader, w io.Writer) *Server {
	out := bufio.NewWriter(w)
	return &Server{
		completer: completer,
		config:    cfg,
		dec:       msgpack.NewDecoder(r),
		out:       out,
		enc:       msgpack.NewEncoder(out),
		log:       logger.New("ipc"),
	}
}

// Serve processes requests until the input ends, ctx is done, or the stream
// can no longer be decoded. A clean end of input returns nil.
func (s *Server) Serve(ctx context.Context) error {
	s.log.Debug("Starting msgpack server")
	for ctx.Err() == nil {
		var req CompletionRequest
		if err := s.dec.Decode(&req); err != nil {
			if errors.Is(err, io.EOF) {
				s.log.Debugf("Input closed after %d requests", s.requestCount)
				return nil
			}
			// the stream position is unknown after a bad message, so stop here
			s.sendError("", "invalid request", codeBadRequest)
			return fmt.Errorf("decoding request: %w", err)
		}
		s.requestCount++
		s.handleRequest(req)
	}
	return nil
}

// RequestCount returns how many requests were decoded so far.
func (s *Server) RequestCount() int {
	return s.requestCount
}

func (s *Server) handleRequest(req CompletionRequest) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	switch req.Action {
	case "", actionComplete:
		s.handleCompletion(req, s.completer.Complete)
	case actionScan:
		s.handleCompletion(req, s.completer.Scan)
	case actionStats:
		s.send(StatsResponse{ID: req.ID, Stats: s.completer.Stats()})
	default:
		s.sendError(req.ID, fmt.Sprintf("unknown action: %s", req.Action), codeBadRequest)
	}
}

func (s *Server) handleCompletion(req CompletionRequest, lookup func(string, int) []string) {
	length := utf8.RuneCountInString(req.Prefix)
	if length < s.config.MinPrefix {
		s.sendError(req.ID, fmt.Sprintf("prefix must be at least %d characters", s.config.MinPrefix), codeBadRequest)
		return
	}
	if s.config.MaxPrefix > 0 && length > s.config.MaxPrefix {
		s.sendError(req.ID, fmt.Sprintf("prefix exceeds maximum length of %d characters", s.config.MaxPrefix), codeBadRequest)
		return
	}

	limit := s.clampLimit(req.Limit)

	start := time.Now()
	words := lookup(req.Prefix, limit)
	elapsed := time.Since(start)
	s.log.Debugf("Took [ %v ] for prefix '%s'", elapsed, req.Prefix)

	suggestions := make([]CompletionSuggestion, len(words))
	for i, w := range words {
		suggestions[i] = CompletionSuggestion{Word: w, Rank: uint16(i + 1)}
	}
	s.send(CompletionResponse{
		ID:          req.ID,
		Suggestions: suggestions,
		Count:       len(suggestions),
		TimeTaken:   elapsed.Microseconds(),
	})
}

func (s *Server) clampLimit(limit int) int {
	if limit <= 0 {
		limit = s.config.DefaultLimit
	}
	if s.config.MaxLimit > 0 && limit > s.config.MaxLimit {
		limit = s.config.MaxLimit
	}
	// ranks are sent as uint16
	return min(limit, math.MaxUint16)
}

func (s *Server) send(response any) {
	if err := s.enc.Encode(response); err != nil {
		s.log.Errorf("Encoding response: %v", err)
		return
	}
	if err := s.out.Flush(); err != nil {
		s.log.Errorf("Writing response: %v", err)
	}
}

func (s *Server) sendError(id, message string, code int) {
	s.log.Debugf("Request %s failed: %s", id, message)
	s.send(CompletionError{ID: id, Error: message, Code: code})
}
