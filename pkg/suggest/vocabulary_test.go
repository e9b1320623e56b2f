package suggest

import (
	"context"
	"errors"
	"net"
	"reflect"
	"testing"
	"time"

	"github.com/bastiangx/wordtrie/pkg/dictionary"
	"github.com/bastiangx/wordtrie/pkg/peer"
	"github.com/charmbracelet/log"
)

func init() {
	log.SetLevel(log.ErrorLevel)
}

var sample = []dictionary.Entry{
	{Word: "kare", Weight: 10},
	{Word: "kanojo", Weight: 20},
	{Word: "karetachi", Weight: 1},
	{Word: "korosu", Weight: 7},
	{Word: "sakura", Weight: 3},
}

func TestComplete(t *testing.T) {
	v := New(sample)

	testCases := []struct {
		prefix   string
		limit    int
		expected []string
	}{
		{"k", 10, []string{"kanojo", "kare", "korosu", "karetachi"}},
		{"ka", 10, []string{"kanojo", "kare", "karetachi"}},
		{"kar", 10, []string{"kare", "karetachi"}},
		{"k", 2, []string{"kanojo", "kare"}},
		{"x", 10, []string{}},
		{"", 2, []string{"kanojo", "kare"}},
		{"k", 0, []string{}},
	}

	for _, tc := range testCases {
		got := v.Complete(tc.prefix, tc.limit)
		if !reflect.DeepEqual(got, tc.expected) {
			t.Errorf("Complete(%q, %d): expected %v, got %v", tc.prefix, tc.limit, tc.expected, got)
		}
	}
}

func TestCasePolicy(t *testing.T) {
	entries := []dictionary.Entry{{Word: "Apple", Weight: 5}, {Word: "apricot", Weight: 3}, {Word: "APPLE", Weight: 9}}

	t.Run("Insensitive", func(t *testing.T) {
		v := New(entries)
		got := v.Complete("AP", 10)
		expected := []string{"apple", "apricot"}
		if !reflect.DeepEqual(got, expected) {
			t.Errorf("expected %v, got %v", expected, got)
		}
		s, err := v.Suggestions("Ap", 1)
		if err != nil {
			t.Fatal(err)
		}
		// folded duplicates keep the later weight
		if len(s) != 1 || s[0].Weight != 9 {
			t.Errorf("expected apple with weight 9, got %v", s)
		}
	})

	t.Run("Sensitive", func(t *testing.T) {
		v := New(entries, WithCaseSensitive(true))
		if got := v.Complete("A", 10); !reflect.DeepEqual(got, []string{"APPLE", "Apple"}) {
			t.Errorf("expected [APPLE Apple], got %v", got)
		}
		if got := v.Complete("ap", 10); !reflect.DeepEqual(got, []string{"apricot"}) {
			t.Errorf("expected [apricot], got %v", got)
		}
	})

	t.Run("Unicode", func(t *testing.T) {
		v := New([]dictionary.Entry{{Word: "Ёлка", Weight: 2}, {Word: "ёж", Weight: 4}})
		if got := v.Complete("Ё", 10); !reflect.DeepEqual(got, []string{"ёж", "ёлка"}) {
			t.Errorf("expected [ёж ёлка], got %v", got)
		}
	})
}

func TestScanIsNotCapped(t *testing.T) {
	v := New(sample, WithTopK(2))

	if got := v.Complete("k", 10); len(got) != 2 {
		t.Errorf("Complete should be capped at 2, got %v", got)
	}

	expected := []string{"kanojo", "kare", "korosu", "karetachi"}
	if got := v.Scan("k", 10); !reflect.DeepEqual(got, expected) {
		t.Errorf("Scan: expected %v, got %v", expected, got)
	}
	if got := v.Scan("K", 3); !reflect.DeepEqual(got, expected[:3]) {
		t.Errorf("Scan with limit: expected %v, got %v", expected[:3], got)
	}
	if got := v.Scan(" ", 10); len(got) != len(sample) {
		t.Errorf("blank Scan should match every word, got %v", got)
	}
	if got := v.Scan("z", 10); len(got) != 0 {
		t.Errorf("expected no matches, got %v", got)
	}
	if got := v.Scan("k", 0); len(got) != 0 {
		t.Errorf("expected empty result for zero limit, got %v", got)
	}
}

func TestInvalidUTF8WordsSkipped(t *testing.T) {
	v := New([]dictionary.Entry{
		{Word: "ab", Weight: 1},
		{Word: "a\xff", Weight: 5},
		{Word: "a\xfe", Weight: 9},
	}, WithCaseSensitive(true))

	if v.Len() != 1 {
		t.Errorf("expected 1 word, got %d", v.Len())
	}
	complete, scan := v.Complete("a", 10), v.Scan("a", 10)
	if !reflect.DeepEqual(complete, []string{"ab"}) || !reflect.DeepEqual(scan, complete) {
		t.Errorf("Complete %q and Scan %q should both be [ab]", complete, scan)
	}
}

func TestStats(t *testing.T) {
	v := New(sample, WithTopK(3))
	v.Complete("ka", 5)
	v.Complete("zz", 5)

	stats := v.Stats()
	expected := map[string]int{
		"words":   5,
		"topK":    3,
		"queries": 2,
		"misses":  1,
		"remote":  0,
	}
	for key, want := range expected {
		if stats[key] != want {
			t.Errorf("stats[%q]: expected %d, got %d", key, want, stats[key])
		}
	}
}

func TestNetworkVocabulary(t *testing.T) {
	local := New(sample)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go peer.NewServer(local, 10, time.Second).Serve(ctx, ln)

	client := peer.NewClient(ln.Addr().String(), time.Second)
	defer client.Close()
	remote := NewNetwork(client)

	if !remote.Remote() || remote.Len() != 0 {
		t.Errorf("network vocabulary should have no local words")
	}

	got := remote.Complete("KA", 2)
	if !reflect.DeepEqual(got, []string{"kanojo", "kare"}) {
		t.Errorf("expected [kanojo kare], got %v", got)
	}
	if got := remote.Complete("none", 5); len(got) != 0 {
		t.Errorf("expected no results, got %v", got)
	}
	if remote.Scan("k", 10) != nil {
		t.Errorf("Scan on a network vocabulary should return nil")
	}
	if _, err := remote.Suggestions("k", 10); !errors.Is(err, ErrNoLocalTree) {
		t.Errorf("expected ErrNoLocalTree, got %v", err)
	}
}

func TestNetworkVocabularyUnreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	ln.Close()

	remote := NewNetwork(peer.NewClient(addr, 200*time.Millisecond))

	if _, err := remote.TryComplete(context.Background(), "a", 5); !errors.Is(err, peer.ErrPeerUnavailable) {
		t.Errorf("expected ErrPeerUnavailable, got %v", err)
	}
	if got := remote.Complete("a", 5); len(got) != 0 {
		t.Errorf("expected empty result, got %v", got)
	}
	if remote.Stats()["remoteErrors"] != 2 {
		t.Errorf("expected 2 remote errors, got %d", remote.Stats()["remoteErrors"])
	}
}
