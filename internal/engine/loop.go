package engine

import (
	"context"
	"net"
	"time"

	"doommaster/internal/wire"
)

// socket identifies which of the two sockets a datagram arrived on.
type socket int

const (
	socketPublic socket = iota
	socketVerify
)

type inboundPacket struct {
	sock socket
	data []byte
	from *net.UDPAddr
}

// Run drives the event loop until ctx is cancelled: it multiplexes
// readiness on both sockets with a 1-second aging tick, running the
// aging pass before handling any packets that arrived in the same
// tick, per spec.md §5.
func (e *Engine) Run(ctx context.Context) error {
	publicCh := make(chan inboundPacket, 256)
	verifyCh := make(chan inboundPacket, 256)

	go e.readLoop(e.publicConn, socketPublic, publicCh)
	if e.verifyConn != nil {
		go e.readLoop(e.verifyConn, socketVerify, verifyCh)
	}

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		// A tick that is already due is handled before any packet that
		// is ready at the same moment.
		select {
		case <-ticker.C:
			e.agingPass(time.Now())
		default:
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			e.agingPass(time.Now())
		case pkt := <-publicCh:
			e.dispatch(pkt)
			e.drain(publicCh)
		case pkt := <-verifyCh:
			e.dispatch(pkt)
		case req := <-e.snapshotCh:
			req.resp <- e.buildSnapshot(time.Now())
		}
	}
}

// drain handles every packet already queued on ch without blocking,
// so the main socket empties before the loop gives the verification
// socket another chance at the select — an ordering spec.md §5 calls
// out as unobservable but convenient to keep deterministic.
func (e *Engine) drain(ch <-chan inboundPacket) {
	for {
		select {
		case pkt := <-ch:
			e.dispatch(pkt)
		default:
			return
		}
	}
}

func (e *Engine) readLoop(conn *net.UDPConn, sock socket, out chan<- inboundPacket) {
	buf := make([]byte, 2048)
	for {
		n, from, err := conn.ReadFromUDP(buf)
		if err != nil {
			// Socket closed (shutdown) or a transient read error; either
			// way there is nothing more this goroutine can do.
			return
		}
		data := make([]byte, n)
		copy(data, buf[:n])
		out <- inboundPacket{sock: sock, data: data, from: from}
	}
}

func (e *Engine) dispatch(pkt inboundPacket) {
	peer := pkt.from.String()
	t, payload, err := wire.DecodeHeader(pkt.data)
	if err != nil {
		e.log.Event(peer, "dropped malformed packet: %v", err)
		return
	}

	switch pkt.sock {
	case socketPublic:
		switch t {
		case wire.TypeAdd:
			e.handleAdd(pkt.from)
		case wire.TypeQuery:
			e.handleQuery(pkt.from)
		case wire.TypeGetMetadata:
			e.handleGetMetadata(pkt.from)
		case wire.TypeSignStart:
			e.handleSignStart(pkt.from)
		case wire.TypeSignEnd:
			e.handleSignEnd(pkt.from, payload)
		case wire.TypeNatHolePunch:
			e.handleHolePunch(pkt.from, payload)
		case wire.TypeNatHolePunchAll:
			e.handleHolePunchAll(pkt.from)
		default:
			e.log.Event(peer, "unexpected packet type %d on public socket", t)
		}
	case socketVerify:
		switch t {
		case wire.TypeVerifyQueryResponse:
			e.handleVerifyQueryResponse(pkt.from, payload)
		case wire.TypeVerifyHolePunch:
			e.handleVerifyHolePunch(pkt.from)
		default:
			e.log.Event(peer, "unexpected packet type %d on verification socket", t)
		}
	}
}
