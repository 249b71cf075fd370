// Package signer implements the signed-demo issuance protocol's
// cryptographic half. The master never sees demo content — it only
// binds an opaque client-supplied hash to a signature, the way the
// original's GPG-backed SecureSigner did, using ed25519 instead of
// OpenPGP clear-signing.
package signer

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/crypto/ed25519"
)

const nonceSize = 16

// Signer is the contract the protocol engine depends on. A nil Signer
// means the signed-demo feature is disabled; callers must check for
// that themselves (see the sign field of engine.Engine).
type Signer interface {
	// SignStart returns a fresh nonce and an opaque signature blob that
	// the client must echo back, verbatim, inside a later SIGN_END.
	SignStart() (nonce, signature []byte, err error)
	// SignEnd verifies the signature embedded in startMessage and, if
	// valid and not already consumed, returns a new signature binding
	// startMessage to hash. ok is false on any verification failure.
	SignEnd(startMessage, hash []byte) (signature []byte, ok bool)
	// HexEncode renders data for logging, matching the original's
	// bin_to_hex helper.
	HexEncode(data []byte) string
}

// Ed25519Signer is the concrete Signer backed by a single ed25519 key
// pair. It tracks issued nonces in a bounded LRU so a SIGN_END can be
// answered at most once per SIGN_START, closing the replay gap the
// original left to GPG's own state.
type Ed25519Signer struct {
	priv ed25519.PrivateKey
	pub  ed25519.PublicKey

	nonces *lru.Cache[string, struct{}]
}

// NewEd25519Signer builds a signer from a 32-byte ed25519 seed. The
// seed is the SIGNING_KEY configuration value; nonceCacheSize bounds
// the number of outstanding SIGN_START calls the signer will honour a
// matching SIGN_END for.
func NewEd25519Signer(seed []byte, nonceCacheSize int) (*Ed25519Signer, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("signer: seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	if nonceCacheSize <= 0 {
		nonceCacheSize = 4096
	}
	cache, err := lru.New[string, struct{}](nonceCacheSize)
	if err != nil {
		return nil, err
	}
	priv := ed25519.NewKeyFromSeed(seed)
	return &Ed25519Signer{
		priv:   priv,
		pub:    priv.Public().(ed25519.PublicKey),
		nonces: cache,
	}, nil
}

func nowString() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// SignStart implements Signer.
func (s *Ed25519Signer) SignStart() (nonce, signature []byte, err error) {
	nonce = make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, err
	}
	message := []byte(fmt.Sprintf("Start-Time: %s\nNonce: %s\n", nowString(), hex.EncodeToString(nonce)))
	sig := ed25519.Sign(s.priv, message)

	startMessage := append(append([]byte{}, message...), sig...)
	s.nonces.Add(hex.EncodeToString(nonce), struct{}{})
	return nonce, startMessage, nil
}

// SignEnd implements Signer.
func (s *Ed25519Signer) SignEnd(startMessage, hash []byte) ([]byte, bool) {
	if len(startMessage) <= ed25519.SignatureSize {
		return nil, false
	}
	split := len(startMessage) - ed25519.SignatureSize
	plaintext := startMessage[:split]
	sig := startMessage[split:]

	if !ed25519.Verify(s.pub, plaintext, sig) {
		return nil, false
	}

	nonce, err := extractNonce(string(plaintext))
	if err != nil {
		return nil, false
	}
	if _, ok := s.nonces.Get(nonce); !ok {
		// Never issued, or already consumed by a prior SIGN_END.
		return nil, false
	}
	s.nonces.Remove(nonce)

	body := plaintext
	if len(body) == 0 || body[len(body)-1] != '\n' {
		body = append(append([]byte{}, body...), '\n')
	}
	end := fmt.Sprintf("End-Time: %s\nDemo-Checksum: %s\n", nowString(), hex.EncodeToString(hash))
	message := append(append([]byte{}, body...), []byte(end)...)

	return ed25519.Sign(s.priv, message), true
}

// HexEncode implements Signer.
func (s *Ed25519Signer) HexEncode(data []byte) string {
	return hex.EncodeToString(data)
}

func extractNonce(plaintext string) (string, error) {
	for _, line := range strings.Split(plaintext, "\n") {
		if v, ok := strings.CutPrefix(line, "Nonce: "); ok {
			return strings.TrimSpace(v), nil
		}
	}
	return "", errors.New("signer: no Nonce field in start message")
}
