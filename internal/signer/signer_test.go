package signer

import (
	"bytes"
	"testing"
)

func testSeed() []byte {
	seed := make([]byte, 32)
	for i := range seed {
		seed[i] = byte(i)
	}
	return seed
}

func TestSignStartThenEnd(t *testing.T) {
	s, err := NewEd25519Signer(testSeed(), 16)
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}

	nonce, startMessage, err := s.SignStart()
	if err != nil {
		t.Fatalf("sign start: %v", err)
	}
	if len(nonce) != nonceSize {
		t.Fatalf("unexpected nonce size %d", len(nonce))
	}

	hash := bytes.Repeat([]byte{0xAB}, 20)
	sig, ok := s.SignEnd(startMessage, hash)
	if !ok {
		t.Fatal("expected sign end to succeed")
	}
	if len(sig) == 0 {
		t.Fatal("expected non-empty end signature")
	}
}

func TestSignEndRejectsReplay(t *testing.T) {
	s, err := NewEd25519Signer(testSeed(), 16)
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}
	_, startMessage, _ := s.SignStart()
	hash := bytes.Repeat([]byte{0x01}, 20)

	if _, ok := s.SignEnd(startMessage, hash); !ok {
		t.Fatal("expected first sign end to succeed")
	}
	if _, ok := s.SignEnd(startMessage, hash); ok {
		t.Fatal("expected replayed sign end to fail")
	}
}

func TestSignEndRejectsTamperedMessage(t *testing.T) {
	s, err := NewEd25519Signer(testSeed(), 16)
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}
	_, startMessage, _ := s.SignStart()
	tampered := append([]byte{}, startMessage...)
	tampered[0] ^= 0xFF

	if _, ok := s.SignEnd(tampered, bytes.Repeat([]byte{0x02}, 20)); ok {
		t.Fatal("expected tampered start message to fail verification")
	}
}

func TestSignEndRejectsUnknownSigner(t *testing.T) {
	a, _ := NewEd25519Signer(testSeed(), 16)
	seedB := make([]byte, 32)
	for i := range seedB {
		seedB[i] = byte(255 - i)
	}
	b, _ := NewEd25519Signer(seedB, 16)

	_, startMessage, _ := a.SignStart()
	if _, ok := b.SignEnd(startMessage, bytes.Repeat([]byte{0x03}, 20)); ok {
		t.Fatal("expected sign end against a different key to fail")
	}
}

func TestHexEncode(t *testing.T) {
	s, _ := NewEd25519Signer(testSeed(), 4)
	if got := s.HexEncode([]byte{0xDE, 0xAD}); got != "dead" {
		t.Fatalf("got %q", got)
	}
}
