package suggest

import "time"

type options struct {
	topK          int
	caseSensitive bool
	lockTimeout   time.Duration
}

// Option configures a Vocabulary.
type Option func(*options)

// WithTopK sets how many completions every trie node keeps. 0 keeps all of them.
func WithTopK(k int) Option {
	return func(o *options) { o.topK = k }
}

// WithCaseSensitive disables lowercasing of words and prefixes.
func WithCaseSensitive(sensitive bool) Option {
	return func(o *options) { o.caseSensitive = sensitive }
}

// WithLockTimeout bounds how long a lookup or insert waits for the trie guard.
func WithLockTimeout(d time.Duration) Option {
	return func(o *options) { o.lockTimeout = d }
}

func buildOptions(opts []Option) options {
	o := options{topK: DefaultTopK}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
