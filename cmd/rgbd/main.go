package main

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"os"

	"RGBStd/internal/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main entry point with error handling.
func run() error {
	cfg := parseFlags()

	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger.Init(level)

	cfg.PrivateKey, err = loadOrGenerateKey(cfg.KeyPath)
	if err != nil {
		return fmt.Errorf("load key:\n%w", err)
	}

	d, err := newDaemon(cfg)
	if err != nil {
		return fmt.Errorf("create daemon:\n%w", err)
	}

	logger.Info("starting rgbd",
		"pubkey", hex.EncodeToString(cfg.PrivateKey.Public().(ed25519.PublicKey)),
		"quic", cfg.QUICAddress,
		"data", cfg.DataPath,
	)

	return d.run()
}
