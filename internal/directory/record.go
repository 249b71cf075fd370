// Package directory holds the in-memory registry of game servers that
// have successfully (or are in the process of) registering with the
// master. All mutation is expected to come from a single goroutine —
// the protocol engine's event loop — so the type performs no locking
// of its own; see the concurrency notes in internal/engine.
package directory

import "fmt"

// Addr is the (host, port) primary key of a server record.
type Addr struct {
	Host string
	Port int
}

// String renders the address the way the wire protocol and ban list
// both expect: "host:port".
func (a Addr) String() string {
	return fmt.Sprintf("%s:%d", a.Host, a.Port)
}

// Metadata is the last successfully parsed QUERY_RESPONSE from a
// server, augmented with fields derived at serialisation time. It is
// the typed replacement for the original's open key/value bag,
// matching spec.md's design note in favour of a fixed-field record.
type Metadata struct {
	Version    string `json:"version"`
	MaxPlayers int    `json:"max_players"`
	Name       string `json:"name"`
	Address    string `json:"address"`
	Port       int    `json:"port"`
	Age        int    `json:"age"`
}
