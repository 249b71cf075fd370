// doompulse is a trivial liveness probe: it sends one QUERY packet to
// a master address and exits 0 if a QUERY_RESPONSE comes back before
// the timeout, 1 otherwise. Meant to be run from cron, the way the
// original deployment checked the master was still answering.
package main

import (
	"fmt"
	"net"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"doommaster/internal/wire"
)

func main() {
	app := &cli.App{
		Name:  "doompulse",
		Usage: "check that a doommaster instance is answering QUERY packets",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "addr",
				Aliases: []string{"a"},
				Usage:   "master's public host:port",
				Value:   "127.0.0.1:2342",
			},
			&cli.DurationFlag{
				Name:    "timeout",
				Aliases: []string{"t"},
				Usage:   "how long to wait for a QUERY_RESPONSE",
				Value:   3 * time.Second,
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	addr, err := net.ResolveUDPAddr("udp", c.String("addr"))
	if err != nil {
		return fmt.Errorf("resolve %s: %w", c.String("addr"), err)
	}

	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()

	if _, err := conn.Write(wire.Encode(wire.TypeQuery, nil)); err != nil {
		return fmt.Errorf("send QUERY: %w", err)
	}

	if err := conn.SetReadDeadline(time.Now().Add(c.Duration("timeout"))); err != nil {
		return fmt.Errorf("set read deadline: %w", err)
	}

	buf := make([]byte, wire.MaxResponseLen)
	n, err := conn.Read(buf)
	if err != nil {
		return fmt.Errorf("no response from %s: %w", addr, err)
	}

	t, _, err := wire.DecodeHeader(buf[:n])
	if err != nil {
		return fmt.Errorf("malformed response from %s: %w", addr, err)
	}
	if t != wire.TypeQueryResponse {
		return fmt.Errorf("unexpected packet type %d from %s", t, addr)
	}

	fmt.Printf("%s is alive\n", addr)
	return nil
}
