// Package wire implements the master server's binary datagram format:
// a 16-bit big-endian type header followed by a type-specific payload
// of NUL-terminated UTF-8 strings and fixed-width big-endian integers.
package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
)

// Type identifies the kind of packet carried after the header.
type Type uint16

const (
	TypeAdd                 Type = 0
	TypeAddResponse          Type = 1
	TypeQuery                Type = 2
	TypeQueryResponse        Type = 3
	TypeGetMetadata          Type = 4
	TypeGetMetadataResponse  Type = 5
	TypeSignStart            Type = 6
	TypeSignStartResponse    Type = 7
	TypeSignEnd              Type = 8
	TypeSignEndResponse      Type = 9
	TypeNatHolePunch         Type = 10
	TypeNatHolePunchAll      Type = 11
	// TypeVerifyQuery is sent by the master on the verification socket to
	// probe a registering server; it is never sent on the public socket.
	TypeVerifyQuery Type = 13
	// TypeVerifyQueryResponse is the reply a game server sends back to
	// the verification socket.
	TypeVerifyQueryResponse Type = 14
	// TypeVerifyHolePunch is the notification a server sends to the
	// verification socket once it has acted on a self-directed hole
	// punch, asking for a retry.
	TypeVerifyHolePunch Type = 16
)

// MaxResponseLen bounds the size of a single outbound datagram's payload.
const MaxResponseLen = 1400

// HashSize is the length of the demo SHA-1 hash carried in SIGN_END.
const HashSize = 20

var (
	// ErrShortHeader is returned when a packet is too small to contain
	// the 16-bit type header.
	ErrShortHeader = errors.New("wire: packet shorter than header")
	// ErrNoTerminator is returned when a string field is not NUL
	// terminated.
	ErrNoTerminator = errors.New("wire: string missing NUL terminator")
	// ErrTruncated is returned when a fixed-width field runs past the
	// end of the payload.
	ErrTruncated = errors.New("wire: payload truncated")
)

// DecodeHeader splits a received datagram into its type and payload.
func DecodeHeader(packet []byte) (Type, []byte, error) {
	if len(packet) < 2 {
		return 0, nil, ErrShortHeader
	}
	t := Type(binary.BigEndian.Uint16(packet[0:2]))
	return t, packet[2:], nil
}

// Encode prepends the type header to payload, producing a full datagram.
func Encode(t Type, payload []byte) []byte {
	buf := make([]byte, 2+len(payload))
	binary.BigEndian.PutUint16(buf[0:2], uint16(t))
	copy(buf[2:], payload)
	return buf
}

// ReadString scans packet for a NUL-terminated UTF-8 string, returning
// the decoded value and the remainder of packet following the
// terminator.
func ReadString(packet []byte) (value string, rest []byte, err error) {
	idx := bytes.IndexByte(packet, 0)
	if idx < 0 {
		return "", nil, ErrNoTerminator
	}
	return string(packet[:idx]), packet[idx+1:], nil
}

// PutString appends s followed by a NUL terminator to buf.
func PutString(buf *bytes.Buffer, s string) {
	buf.WriteString(s)
	buf.WriteByte(0)
}

// DecodeStringList decodes a payload consisting solely of concatenated
// NUL-terminated strings, as used by QUERY_RESPONSE.
func DecodeStringList(payload []byte) ([]string, error) {
	var out []string
	for len(payload) > 0 {
		s, rest, err := ReadString(payload)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
		payload = rest
	}
	return out, nil
}

// EncodeAddResponse builds the payload for ADD_RESPONSE.
func EncodeAddResponse(success bool) []byte {
	v := uint16(0)
	if success {
		v = 1
	}
	buf := make([]byte, 2)
	binary.BigEndian.PutUint16(buf, v)
	return buf
}

// DecodeAddResponse parses an ADD_RESPONSE payload.
func DecodeAddResponse(payload []byte) (success bool, err error) {
	if len(payload) < 2 {
		return false, ErrTruncated
	}
	return binary.BigEndian.Uint16(payload[0:2]) != 0, nil
}

// ServerStatus carries the fixed-width block a game server reports in
// its QUERY_RESPONSE, plus the surrounding strings.
type ServerStatus struct {
	Version    string
	State      byte
	NumPlayers byte
	MaxPlayers byte
	Mode       byte
	Mission    byte
	Name       string
}

// DecodeVerifyQueryResponse parses the payload of a type-14 packet
// arriving on the verification socket: version string, a 5-byte fixed
// block, then the server name string.
func DecodeVerifyQueryResponse(payload []byte) (ServerStatus, error) {
	var st ServerStatus
	version, rest, err := ReadString(payload)
	if err != nil {
		return st, err
	}
	if len(rest) < 5 {
		return st, ErrTruncated
	}
	st.Version = version
	st.State, st.NumPlayers, st.MaxPlayers, st.Mode, st.Mission =
		rest[0], rest[1], rest[2], rest[3], rest[4]
	name, rest, err := ReadString(rest[5:])
	if err != nil {
		return st, err
	}
	st.Name = name
	_ = rest
	return st, nil
}

// SignEndRequest is the parsed payload of a SIGN_END packet.
type SignEndRequest struct {
	Hash         [HashSize]byte
	StartMessage []byte
}

// DecodeSignEnd parses a SIGN_END payload: a 20-byte demo hash followed
// by the opaque start message produced by an earlier SIGN_START_RESPONSE.
func DecodeSignEnd(payload []byte) (SignEndRequest, error) {
	var req SignEndRequest
	if len(payload) < HashSize {
		return req, ErrTruncated
	}
	copy(req.Hash[:], payload[:HashSize])
	req.StartMessage = payload[HashSize:]
	return req, nil
}

// ParseHolePunchTarget parses the "host:port" string carried by a
// client's NAT_HOLE_PUNCH request. A missing port falls back to
// defaultPort, matching the original's loose parsing: the host is
// never validated against any registered server.
func ParseHolePunchTarget(s string, defaultPort int) (host string, port int) {
	idx := bytes.LastIndexByte([]byte(s), ':')
	if idx < 0 {
		return s, defaultPort
	}
	host = s[:idx]
	p := s[idx+1:]
	n := 0
	for _, c := range p {
		if c < '0' || c > '9' {
			return s, defaultPort
		}
		n = n*10 + int(c-'0')
	}
	if p == "" {
		return host, defaultPort
	}
	return host, n
}

// ChunkStrings splits items into the smallest sequence of payloads each
// at most limit bytes, such that no string (plus its NUL terminator)
// is split across payloads. Behaviour for a single string longer than
// limit is undefined, matching spec.
func ChunkStrings(items []string, limit int) [][]byte {
	var chunks [][]byte
	var cur bytes.Buffer
	for _, s := range items {
		need := len(s) + 1
		if cur.Len() > 0 && cur.Len()+need > limit {
			chunks = append(chunks, append([]byte(nil), cur.Bytes()...))
			cur.Reset()
		}
		PutString(&cur, s)
	}
	if cur.Len() > 0 {
		chunks = append(chunks, append([]byte(nil), cur.Bytes()...))
	}
	return chunks
}
