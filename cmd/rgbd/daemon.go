package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"RGBStd/internal/containers"
	"RGBStd/internal/logger"
	"RGBStd/internal/relay"
	"RGBStd/internal/script"
	"RGBStd/internal/sigs"
	"RGBStd/internal/stash"
)

// daemon wires the stash, the script pool and the relay node.
type daemon struct {
	cfg   *Config
	stash *stash.Stash
	pool  *script.Pool
	node  *relay.Node
}

// newDaemon opens the stash and prepares the relay node.
func newDaemon(cfg *Config) (*daemon, error) {
	st, err := stash.Open(cfg.DataPath)
	if err != nil {
		return nil, fmt.Errorf("open stash:\n%w", err)
	}

	node, err := relay.NewNode(relay.Config{PrivateKey: cfg.PrivateKey, ListenAddr: cfg.QUICAddress})
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("create relay node:\n%w", err)
	}

	d := &daemon{
		cfg:   cfg,
		stash: st,
		pool:  script.New(context.Background()),
		node:  node,
	}

	node.OnTransfer(d.accept)

	return d, nil
}

// accept checks an incoming transfer and stores it.
func (d *daemon) accept(ctx context.Context, from relay.Peer, id containers.TransferID, c *containers.Consignment) error {
	if d.cfg.RequireSigs {
		if err := sigs.VerifyConsignment(c); err != nil {
			return err
		}
	}

	if err := d.pool.Resolve(ctx, containers.NewIndexed(c)); err != nil {
		return fmt.Errorf("resolve scripts:\n%w", err)
	}

	if _, err := d.stash.Put(c); err != nil {
		return fmt.Errorf("store transfer:\n%w", err)
	}

	logger.Info("transfer stored", "id", id, "contract", c.ContractID(), "from", from)

	return nil
}

// run starts the relay and blocks until a shutdown signal.
func (d *daemon) run() error {
	if err := d.node.Start(); err != nil {
		d.close()
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", "signal", sig.String())

	return d.close()
}

// close stops the relay first so no transfer is stored after the stash closes.
func (d *daemon) close() error {
	if err := d.node.Close(); err != nil {
		logger.Warn("close relay", "error", err)
	}

	if err := d.pool.Close(context.Background()); err != nil {
		logger.Warn("close script pool", "error", err)
	}

	return d.stash.Close()
}
