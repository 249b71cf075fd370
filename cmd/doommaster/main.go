package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"doommaster/internal/banlist"
	"doommaster/internal/config"
	"doommaster/internal/engine"
	"doommaster/internal/httpapi"
	"doommaster/internal/logging"
	"doommaster/internal/signer"
)

func main() {
	app := &cli.App{
		Name:  "doommaster",
		Usage: "UDP master-server registry for Chocolate Doom-style game servers",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the YAML configuration file",
				Value:   "doommaster.yaml",
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "doommaster: %v\n", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}

	log, err := logging.New(cfg.LogFile)
	if err != nil {
		return err
	}
	defer log.Close()

	bans, err := banlist.Compile(cfg.BlockAddresses)
	if err != nil {
		return fmt.Errorf("compile ban list: %w", err)
	}

	var sign signer.Signer
	if cfg.SigningEnabled() {
		seed, err := os.ReadFile(cfg.SigningKeySeedPath)
		if err != nil {
			return fmt.Errorf("read signing key: %w", err)
		}
		s, err := signer.NewEd25519Signer(seed, cfg.NonceCacheSize)
		if err != nil {
			return fmt.Errorf("init signer: %w", err)
		}
		sign = s
	}

	publicConn, verifyConn, verifyAdvertise, err := engine.Bind(cfg)
	if err != nil {
		return err
	}
	defer publicConn.Close()
	if verifyConn != nil {
		defer verifyConn.Close()
	} else {
		log.System("no query_address configured; registration verification is disabled")
	}

	serverTimeout := secondsToDuration(cfg.ServerTimeoutSeconds)
	metadataRefresh := secondsToDuration(cfg.MetadataRefreshTimeSeconds)

	e := engine.New(publicConn, verifyConn, bans, sign, log, serverTimeout, metadataRefresh, verifyAdvertise)

	if cfg.HTTPAddr != "" {
		go serveDashboard(cfg.HTTPAddr, e, log)
	}

	log.System("listening on %s (public) %s (verify)", publicConn.LocalAddr(), connAddr(verifyConn))
	return e.Run(context.Background())
}

func connAddr(conn *net.UDPConn) string {
	if conn == nil {
		return "-"
	}
	return conn.LocalAddr().String()
}

func serveDashboard(addr string, e *engine.Engine, log *logging.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/servers", httpapi.WithCORS(httpapi.ServeServersAPI(e)))
	mux.HandleFunc("/", httpapi.ServeIndex(e))
	log.System("dashboard listening on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.System("dashboard server stopped: %v", err)
	}
}

func secondsToDuration(s int) time.Duration {
	return time.Duration(s) * time.Second
}
