package engine

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"doommaster/internal/directory"
	"doommaster/internal/wire"
)

func addrFromUDP(a *net.UDPAddr) directory.Addr {
	return directory.Addr{Host: a.IP.String(), Port: a.Port}
}

func udpFromAddr(a directory.Addr) *net.UDPAddr {
	return &net.UDPAddr{IP: net.ParseIP(a.Host), Port: a.Port}
}

func (e *Engine) sendAddResponse(to *net.UDPAddr, success bool) {
	pkt := wire.Encode(wire.TypeAddResponse, wire.EncodeAddResponse(success))
	_, _ = e.publicConn.WriteToUDP(pkt, to)
}

func (e *Engine) sendVerifyQuery(addr directory.Addr) {
	if e.verifyConn == nil {
		return
	}
	pkt := wire.Encode(wire.TypeVerifyQuery, nil)
	_, _ = e.verifyConn.WriteToUDP(pkt, udpFromAddr(addr))
}

// handleAdd implements spec.md §4.3 ADD.
func (e *Engine) handleAdd(from *net.UDPAddr) {
	addr := addrFromUDP(from)
	hostPort := addr.String()

	if e.bans.Blocked(hostPort) {
		e.log.Event(hostPort, "blocked ADD from banned address")
		return
	}

	now := time.Now()
	rec, _ := e.dir.Upsert(addr, now)

	if rec.Verified && !rec.MetadataTime.IsZero() && now.Sub(rec.MetadataTime) > e.metadataRefresh {
		rec.Verified = false
		rec.NeedsHolePunch = false
		e.log.Event(hostPort, "metadata stale, re-querying")
	}

	if rec.Verified {
		e.sendAddResponse(from, true)
		return
	}

	e.sendVerifyQuery(addr)
}

// handleVerifyQueryResponse implements spec.md §4.3 QUERY_RESPONSE
// arriving on the verification socket.
func (e *Engine) handleVerifyQueryResponse(from *net.UDPAddr, payload []byte) {
	addr := addrFromUDP(from)
	hostPort := addr.String()

	rec, ok := e.dir.Get(addr)
	if !ok {
		e.log.Event(hostPort, "query response from unregistered address")
		return
	}

	st, err := wire.DecodeVerifyQueryResponse(payload)
	if err != nil {
		e.log.Event(hostPort, "malformed query response: %v", err)
		return
	}

	rec.Metadata = &directory.Metadata{
		Version:    st.Version,
		MaxPlayers: int(st.MaxPlayers),
		Name:       st.Name,
		Address:    addr.Host,
		Port:       addr.Port,
	}
	rec.MetadataTime = time.Now()

	if !rec.Verified {
		rec.Verified = true
		e.sendAddResponse(udpFromAddr(addr), true)
		e.log.Event(hostPort, "verified (%s, %q)", rec.Metadata.Version, rec.Metadata.Name)
	}
}

// handleVerifyHolePunch implements spec.md §4.3 NAT_HOLE_PUNCH (type
// 16) arriving on the verification socket.
func (e *Engine) handleVerifyHolePunch(from *net.UDPAddr) {
	addr := addrFromUDP(from)
	rec, ok := e.dir.Get(addr)
	if !ok {
		return
	}
	if !rec.Verified && rec.NeedsHolePunch {
		e.sendVerifyQuery(addr)
	}
}

// handleQuery implements spec.md §4.3 QUERY from a client.
func (e *Engine) handleQuery(from *net.UDPAddr) {
	recs := e.dir.VerifiedSnapshot()
	items := make([]string, 0, len(recs))
	for _, r := range recs {
		items = append(items, r.Addr.String())
	}

	for _, chunk := range wire.ChunkStrings(items, wire.MaxResponseLen) {
		pkt := wire.Encode(wire.TypeQueryResponse, chunk)
		_, _ = e.publicConn.WriteToUDP(pkt, from)
	}
}

// handleGetMetadata implements spec.md §4.3 GET_METADATA from a client.
func (e *Engine) handleGetMetadata(from *net.UDPAddr) {
	recs := e.dir.VerifiedSnapshot()
	now := time.Now()

	items := make([]string, 0, len(recs))
	for _, r := range recs {
		if r.Metadata == nil {
			continue
		}
		md := *r.Metadata
		md.Age = int(now.Sub(r.AddTime).Seconds())
		b, err := json.Marshal(md)
		if err != nil {
			e.log.Event(r.Addr.String(), "failed to encode metadata: %v", err)
			continue
		}
		items = append(items, string(b))
	}

	for _, chunk := range wire.ChunkStrings(items, wire.MaxResponseLen) {
		pkt := wire.Encode(wire.TypeGetMetadataResponse, chunk)
		_, _ = e.publicConn.WriteToUDP(pkt, from)
	}
}

// handleSignStart implements spec.md §4.3 SIGN_START.
func (e *Engine) handleSignStart(from *net.UDPAddr) {
	if e.sign == nil {
		return
	}
	nonce, sig, err := e.sign.SignStart()
	if err != nil {
		e.log.Event(from.String(), "sign-start failed: %v", err)
		return
	}
	payload := append(append([]byte{}, nonce...), sig...)
	pkt := wire.Encode(wire.TypeSignStartResponse, payload)
	_, _ = e.publicConn.WriteToUDP(pkt, from)
	e.log.Event(from.String(), "issued sign-start nonce %s", e.sign.HexEncode(nonce))
}

// handleSignEnd implements spec.md §4.3 SIGN_END.
func (e *Engine) handleSignEnd(from *net.UDPAddr, payload []byte) {
	if e.sign == nil {
		return
	}
	req, err := wire.DecodeSignEnd(payload)
	if err != nil {
		e.log.Event(from.String(), "malformed sign-end: %v", err)
		return
	}
	sig, ok := e.sign.SignEnd(req.StartMessage, req.Hash[:])
	if !ok {
		e.log.Event(from.String(), "sign-end verification failed")
		return
	}
	pkt := wire.Encode(wire.TypeSignEndResponse, sig)
	_, _ = e.publicConn.WriteToUDP(pkt, from)
}

// forwardHolePunch sends a NAT_HOLE_PUNCH to target whose payload is
// the NUL-terminated "host:port" of client.
func (e *Engine) forwardHolePunch(target directory.Addr, client *net.UDPAddr) {
	var buf bytes.Buffer
	wire.PutString(&buf, fmt.Sprintf("%s:%d", client.IP.String(), client.Port))
	pkt := wire.Encode(wire.TypeNatHolePunch, buf.Bytes())
	_, _ = e.publicConn.WriteToUDP(pkt, udpFromAddr(target))
}

// handleHolePunch implements spec.md §4.3 NAT_HOLE_PUNCH (type 10)
// from a client.
func (e *Engine) handleHolePunch(from *net.UDPAddr, payload []byte) {
	targetStr, _, err := wire.ReadString(payload)
	if err != nil {
		e.log.Event(from.String(), "malformed hole punch request: %v", err)
		return
	}

	host, port := wire.ParseHolePunchTarget(targetStr, DefaultHolePunchPort)
	target := directory.Addr{Host: host, Port: port}

	rec, ok := e.dir.Get(target)
	if !ok {
		e.log.Event(from.String(), "hole punch request for unknown server %s", target.String())
		return
	}
	if rec.NeedsHolePunch {
		e.forwardHolePunch(rec.Addr, from)
	}
}

// handleHolePunchAll implements spec.md §4.3 NAT_HOLE_PUNCH_ALL.
func (e *Engine) handleHolePunchAll(from *net.UDPAddr) {
	for _, r := range e.dir.AllSnapshot() {
		if r.NeedsHolePunch {
			e.forwardHolePunch(r.Addr, from)
		}
	}
}
