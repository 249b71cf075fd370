// Package engine is the protocol engine: it owns the two UDP sockets,
// the 1-second aging tick, and every packet handler described in
// spec.md §4.3–§4.4. All directory mutation happens on the single
// goroutine that calls Run; see loop.go.
package engine

import (
	"fmt"
	"net"
	"time"

	"github.com/thibran/pubip"

	"doommaster/internal/banlist"
	"doommaster/internal/config"
	"doommaster/internal/directory"
	"doommaster/internal/logging"
	"doommaster/internal/signer"
)

// DefaultHolePunchPort is the port NAT_HOLE_PUNCH targets fall back to
// when the client-supplied string carries no ":port" suffix.
const DefaultHolePunchPort = 2342

// Engine holds every collaborator the protocol handlers need.
type Engine struct {
	dir  *directory.Directory
	bans *banlist.List
	sign signer.Signer
	log  *logging.Logger

	serverTimeout   time.Duration
	metadataRefresh time.Duration

	publicConn *net.UDPConn
	verifyConn *net.UDPConn // nil disables verification entirely

	// verifyAdvertise is the "host:port" the master tells servers to
	// hole-punch toward when asking for a self-directed retry; see
	// aging.go.
	verifyAdvertise string

	// snapshotCh carries requests for a copy of the directory from
	// goroutines other than Run's own, such as the HTTP dashboard; see
	// snapshot.go.
	snapshotCh chan snapshotRequest
}

// New constructs an Engine. publicConn must be non-nil; verifyConn may
// be nil to disable registration verification, matching spec.md §6
// ("if unconfigured, verification ... is disabled").
func New(publicConn, verifyConn *net.UDPConn, bans *banlist.List, sign signer.Signer, log *logging.Logger, serverTimeout, metadataRefresh time.Duration, verifyAdvertise string) *Engine {
	return &Engine{
		dir:             directory.New(),
		bans:            bans,
		sign:            sign,
		log:             log,
		serverTimeout:   serverTimeout,
		metadataRefresh: metadataRefresh,
		publicConn:      publicConn,
		verifyConn:      verifyConn,
		verifyAdvertise: verifyAdvertise,
		snapshotCh:      make(chan snapshotRequest),
	}
}

// Bind opens the public and, if configured, verification sockets
// described by cfg. Failure to bind either socket is fatal per
// spec.md §7 and is returned, wrapped with the name of the socket that
// failed, so the caller can abort with a diagnostic.
func Bind(cfg *config.Config) (publicConn, verifyConn *net.UDPConn, verifyAdvertise string, err error) {
	publicConn, err = listen(cfg.ServerAddress.Host, cfg.ServerAddress.Port)
	if err != nil {
		return nil, nil, "", fmt.Errorf("bind public socket: %w", err)
	}

	if cfg.QueryAddress == nil {
		return publicConn, nil, "", nil
	}

	verifyConn, err = listen(cfg.QueryAddress.Host, cfg.QueryAddress.Port)
	if err != nil {
		publicConn.Close()
		return nil, nil, "", fmt.Errorf("bind verification socket: %w", err)
	}

	host := cfg.QueryAddress.Host
	if host == "" {
		host, err = advertiseHost(cfg.QueryAdvertiseHost)
		if err != nil {
			publicConn.Close()
			verifyConn.Close()
			return nil, nil, "", fmt.Errorf("determine advertised verification host: %w", err)
		}
	}
	verifyAdvertise = fmt.Sprintf("%s:%d", host, cfg.QueryAddress.Port)
	return publicConn, verifyConn, verifyAdvertise, nil
}

// advertiseHost is the address registering servers are told to
// hole-punch back toward when the verification socket is bound to all
// interfaces and so has no outbound-facing address of its own.
// configured, from query_advertise_host, takes priority; otherwise the
// master discovers its own public IP by querying a handful of
// external services in parallel.
func advertiseHost(configured string) (string, error) {
	if configured != "" {
		return configured, nil
	}
	m := pubip.NewMaster()
	m.Parallel = 4
	m.Format = pubip.IPv4
	return m.Address()
}

func listen(host string, port int) (*net.UDPConn, error) {
	addr := &net.UDPAddr{Port: port}
	if host != "" {
		ip := net.ParseIP(host)
		if ip == nil {
			resolved, err := net.ResolveIPAddr("ip", host)
			if err != nil {
				return nil, fmt.Errorf("resolve %s: %w", host, err)
			}
			ip = resolved.IP
		}
		addr.IP = ip
	}
	return net.ListenUDP("udp", addr)
}
