// Package banlist implements the master's source-address blocklist:
// a set of shell-style glob patterns (not regex) matched against the
// "host:port" rendering of an incoming registration's address.
package banlist

import "github.com/gobwas/glob"

// List is a compiled set of glob patterns.
type List struct {
	patterns []glob.Glob
}

// Compile builds a List from shell-style patterns such as "10.0.0.*"
// or "*.evil.example:*". Matching is case-sensitive, per spec.
func Compile(patterns []string) (*List, error) {
	l := &List{patterns: make([]glob.Glob, 0, len(patterns))}
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, err
		}
		l.patterns = append(l.patterns, g)
	}
	return l, nil
}

// Blocked reports whether hostPort matches any configured pattern.
func (l *List) Blocked(hostPort string) bool {
	if l == nil {
		return false
	}
	for _, g := range l.patterns {
		if g.Match(hostPort) {
			return true
		}
	}
	return false
}
