package engine

import (
	"bytes"
	"time"

	"doommaster/internal/directory"
	"doommaster/internal/wire"
)

const (
	holePunchProbeDelay = 2 * time.Second
	verifyDeadline       = 5 * time.Second
)

// agingPass implements spec.md §4.4, run once per tick before packet
// handling. now is sampled once so every record in this pass is judged
// against the same instant.
func (e *Engine) agingPass(now time.Time) {
	for _, r := range e.dir.AllSnapshot() {
		if now.Sub(r.RefreshTime) > e.serverTimeout {
			e.dir.Remove(r.Addr)
			e.log.Event(r.Addr.String(), "removed: heartbeat timeout")
			continue
		}

		if r.Verified {
			continue
		}

		if e.verifyConn != nil && !r.NeedsHolePunch && now.Sub(r.RefreshTime) > holePunchProbeDelay {
			r.NeedsHolePunch = true
			e.sendSelfHolePunch(r.Addr)
			e.log.Event(r.Addr.String(), "marked needs-hole-punch, probing")
		}

		if now.Sub(r.RefreshTime) > verifyDeadline {
			e.sendAddResponse(udpFromAddr(r.Addr), false)
			e.dir.Remove(r.Addr)
			e.log.Event(r.Addr.String(), "removed: verification deadline expired")
		}
	}
}

// sendSelfHolePunch asks a yet-unverified server to open a pinhole
// back toward the master's own verification socket, so a retried
// QUERY can get through. Sent over the public socket, which the
// server has already proven it can receive on by virtue of its ADD.
func (e *Engine) sendSelfHolePunch(addr directory.Addr) {
	if e.verifyAdvertise == "" {
		return
	}
	var buf bytes.Buffer
	wire.PutString(&buf, e.verifyAdvertise)
	pkt := wire.Encode(wire.TypeNatHolePunch, buf.Bytes())
	_, _ = e.publicConn.WriteToUDP(pkt, udpFromAddr(addr))
}
