package server

import (
	"bytes"
	"context"
	"io"
	"math"
	"reflect"
	"strings"
	"testing"

	"github.com/bastiangx/wordtrie/pkg/config"
	"github.com/charmbracelet/log"
	"github.com/vmihailenco/msgpack/v5"
)

func init() {
	log.SetLevel(log.ErrorLevel)
}

// fakeCompleter ranks a fixed list and records requested limits.
// Complete is capped at two results.
type fakeCompleter struct {
	words []string
	calls []int
}

func (f *fakeCompleter) match(prefix string, limit int) []string {
	result := []string{}
	for _, w := range f.words {
		if len(result) == limit {
			break
		}
		if strings.HasPrefix(w, prefix) {
			result = append(result, w)
		}
	}
	return result
}

func (f *fakeCompleter) Complete(prefix string, limit int) []string {
	f.calls = append(f.calls, limit)
	return f.match(prefix, min(limit, 2))
}

func (f *fakeCompleter) Scan(prefix string, limit int) []string {
	f.calls = append(f.calls, limit)
	return f.match(prefix, limit)
}

func (f *fakeCompleter) Stats() map[string]int {
	return map[string]int{"words": len(f.words)}
}

func encodeRequests(t *testing.T, requests ...any) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	for _, r := range requests {
		if err := enc.Encode(r); err != nil {
			t.Fatal(err)
		}
	}
	return &buf
}

func testConfig() config.ServerConfig {
	cfg := config.DefaultConfig().Server
	cfg.DefaultLimit = 3
	cfg.MaxLimit = 5
	cfg.MinPrefix = 0
	cfg.MaxPrefix = 8
	return cfg
}

func serve(t *testing.T, completer Completer, in io.Reader) *msgpack.Decoder {
	t.Helper()
	var out bytes.Buffer
	srv := NewServer(completer, testConfig(), in, &out)
	if err := srv.Serve(context.Background()); err != nil {
		t.Fatalf("Serve: %v", err)
	}
	return msgpack.NewDecoder(&out)
}

func TestCompletionRequest(t *testing.T) {
	completer := &fakeCompleter{words: []string{"help", "hello", "helium", "world"}}
	in := encodeRequests(t,
		CompletionRequest{ID: "req1", Prefix: "hel", Limit: 10},
		CompletionRequest{ID: "req2", Prefix: "zzz"},
	)
	dec := serve(t, completer, in)

	var resp CompletionResponse
	if err := dec.Decode(&resp); err != nil {
		t.Fatal(err)
	}
	expected := []CompletionSuggestion{{"help", 1}, {"hello", 2}}
	if resp.ID != "req1" || resp.Count != 2 || !reflect.DeepEqual(resp.Suggestions, expected) {
		t.Errorf("unexpected response %+v", resp)
	}

	var empty CompletionResponse
	if err := dec.Decode(&empty); err != nil {
		t.Fatal(err)
	}
	if empty.ID != "req2" || empty.Count != 0 || len(empty.Suggestions) != 0 {
		t.Errorf("expected empty response, got %+v", empty)
	}

	// limit 10 clamped to max 5, missing limit defaults to 3
	if !reflect.DeepEqual(completer.calls, []int{5, 3}) {
		t.Errorf("unexpected effective limits %v", completer.calls)
	}
}

func TestLimitClamping(t *testing.T) {
	srv := NewServer(&fakeCompleter{}, testConfig(), strings.NewReader(""), io.Discard)
	testCases := []struct {
		limit    int
		expected int
	}{
		{0, 3},
		{-4, 3},
		{4, 4},
		{50, 5},
	}
	for _, tc := range testCases {
		if got := srv.clampLimit(tc.limit); got != tc.expected {
			t.Errorf("clampLimit(%d): expected %d, got %d", tc.limit, tc.expected, got)
		}
	}
}

func TestUncappedLimitFitsRank(t *testing.T) {
	cfg := testConfig()
	cfg.MaxLimit = 0
	srv := NewServer(&fakeCompleter{}, cfg, strings.NewReader(""), io.Discard)

	if got := srv.clampLimit(70000); got != math.MaxUint16 {
		t.Errorf("clampLimit(70000): expected %d, got %d", math.MaxUint16, got)
	}
	if got := srv.clampLimit(100); got != 100 {
		t.Errorf("clampLimit(100): expected 100, got %d", got)
	}
}

func TestScanAndStats(t *testing.T) {
	completer := &fakeCompleter{words: []string{"aa", "ab", "ac", "ad"}}
	in := encodeRequests(t,
		CompletionRequest{ID: "s", Prefix: "a", Limit: 4, Action: "scan"},
		CompletionRequest{ID: "st", Action: "stats"},
	)
	dec := serve(t, completer, in)

	var scan CompletionResponse
	if err := dec.Decode(&scan); err != nil {
		t.Fatal(err)
	}
	if scan.Count != 4 {
		t.Errorf("scan should not be capped, got %+v", scan)
	}

	var stats StatsResponse
	if err := dec.Decode(&stats); err != nil {
		t.Fatal(err)
	}
	if stats.ID != "st" || stats.Stats["words"] != 4 {
		t.Errorf("unexpected stats %+v", stats)
	}
}

func TestInvalidRequests(t *testing.T) {
	testCases := []struct {
		request     CompletionRequest
		description string
	}{
		{CompletionRequest{ID: "long", Prefix: "abcdefghij"}, "Prefix too long"},
		{CompletionRequest{ID: "act", Prefix: "a", Action: "delete"}, "Unknown action"},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			dec := serve(t, &fakeCompleter{}, encodeRequests(t, tc.request))
			var resp CompletionError
			if err := dec.Decode(&resp); err != nil {
				t.Fatal(err)
			}
			if resp.ID != tc.request.ID || resp.Code != 400 || resp.Error == "" {
				t.Errorf("unexpected error response %+v", resp)
			}
		})
	}
}

func TestMissingIDIsGenerated(t *testing.T) {
	dec := serve(t, &fakeCompleter{words: []string{"x"}}, encodeRequests(t, CompletionRequest{Prefix: "x"}))
	var resp CompletionResponse
	if err := dec.Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.ID) != 36 {
		t.Errorf("expected a generated uuid, got %q", resp.ID)
	}
}

func TestMalformedStream(t *testing.T) {
	var out bytes.Buffer
	// 0xc1 is never used in msgpack
	srv := NewServer(&fakeCompleter{}, testConfig(), bytes.NewReader([]byte{0xc1}), &out)
	if err := srv.Serve(context.Background()); err == nil {
		t.Fatalf("expected a decode error")
	}

	var resp CompletionError
	if err := msgpack.NewDecoder(&out).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Code != 400 {
		t.Errorf("expected 400, got %+v", resp)
	}
}
