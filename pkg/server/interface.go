/*
Package server implements msgpack IPC for word completion over stdin/stdout.

Clients write a stream of msgpack maps and read one msgpack map back per
request, in order. Requests are processed synchronously with timing info
included in responses.

# IPC

A completion request carries an id, a prefix and an optional limit:

	{"id": "req_001", "p": "ame", "l": 24}

The server responds with words in rank order, best first:

	{"id": "req_001", "s": [{"w": "america", "r": 1}, {"w": "amenity", "r": 2}], "c": 2, "t": 145}

t is the lookup time in microseconds. A request without an id is answered
under a generated one. A missing or non-positive limit selects the configured
default; larger limits are clamped to server.max_limit.

The "a" field selects other actions:

	{"id": "req_002", "p": "ame", "l": 200, "a": "scan"}
	{"id": "req_003", "a": "stats"}

scan walks the whole subtree and is not capped by the per-node top-k cache.
stats returns the vocabulary counters.

Failed requests get an error response:

	{"id": "req_004", "e": "prefix exceeds maximum length of 60 characters", "c": 400}
*/
package server

const (
	actionComplete = "complete"
	actionScan     = "scan"
	actionStats    = "stats"
)

const codeBadRequest = 400

// CompletionRequest - minimal completion request
type CompletionRequest struct {
	ID     string `msgpack:"id"`
	Prefix string `msgpack:"p"`
	Limit  int    `msgpack:"l,omitempty"`
	Action string `msgpack:"a,omitempty"`
}

// CompletionSuggestion - one word and its 1-based position
type CompletionSuggestion struct {
	Word string `msgpack:"w"`
	Rank uint16 `msgpack:"r"`
}

// CompletionResponse - completion response
type CompletionResponse struct {
	ID          string                 `msgpack:"id"`
	Suggestions []CompletionSuggestion `msgpack:"s"`
	Count       int                    `msgpack:"c"`
	TimeTaken   int64                  `msgpack:"t"`
}

// StatsResponse - vocabulary counters
type StatsResponse struct {
	ID    string         `msgpack:"id"`
	Stats map[string]int `msgpack:"st"`
}

// CompletionError holds basic error information for failed requests
type CompletionError struct {
	ID    string `msgpack:"id"`
	Error string `msgpack:"e"`
	Code  int    `msgpack:"c"`
}
