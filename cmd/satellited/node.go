package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"Satellite/internal/api"
	"Satellite/internal/genesis"
	"Satellite/internal/logger"
	"Satellite/internal/runtime"
	"Satellite/internal/snapshot"
	"Satellite/internal/storage"
)

// Node represents a running satellite node.
type Node struct {
	cfg     *Config
	storage *storage.Storage
	runtime *runtime.Runtime
	api     *api.Server
}

// NewNode creates and initializes a new node.
func NewNode(cfg *Config) (*Node, error) {
	n := &Node{cfg: cfg}

	if err := n.initStorage(); err != nil {
		return nil, err
	}

	if err := n.restore(); err != nil {
		n.Close()
		return nil, err
	}

	if err := n.applyGenesis(); err != nil {
		n.Close()
		return nil, err
	}

	rt, err := runtime.New(n.storage, cfg.ProgramID)
	if err != nil {
		n.Close()
		return nil, fmt.Errorf("init runtime:\n%w", err)
	}

	n.runtime = rt

	return n, nil
}

// initStorage initializes the Pebble storage.
func (n *Node) initStorage() error {
	if err := os.MkdirAll(n.cfg.DataPath, 0755); err != nil {
		return fmt.Errorf("create data directory:\n%w", err)
	}

	db, err := storage.New(filepath.Join(n.cfg.DataPath, "db"))
	if err != nil {
		return fmt.Errorf("init storage:\n%w", err)
	}

	n.storage = db

	return nil
}

// restore imports the --restore snapshot into the empty database.
func (n *Node) restore() error {
	if n.cfg.RestorePath == "" {
		return nil
	}

	data, err := os.ReadFile(n.cfg.RestorePath)
	if err != nil {
		return fmt.Errorf("read snapshot:\n%w", err)
	}

	count, err := snapshot.Import(n.storage, data)
	if err != nil {
		return fmt.Errorf("restore snapshot:\n%w", err)
	}

	logger.Info("snapshot restored", "path", n.cfg.RestorePath, "entries", count)

	return nil
}

// applyGenesis seeds the --genesis fixture. Already seeded databases are left alone.
func (n *Node) applyGenesis() error {
	if n.cfg.GenesisPath == "" {
		return nil
	}

	g, err := genesis.Load(n.cfg.GenesisPath)
	if err != nil {
		return fmt.Errorf("load genesis:\n%w", err)
	}

	seeded, err := genesis.Apply(n.storage, n.cfg.ProgramID, g)
	if err != nil {
		return fmt.Errorf("apply genesis:\n%w", err)
	}

	if seeded == nil && len(g.Collectibles) > 0 {
		logger.Warn("genesis already applied, fixture ignored", "path", n.cfg.GenesisPath)
	}

	return nil
}

// Run starts the HTTP API and blocks until shutdown.
func (n *Node) Run() error {
	n.api = api.New(n.cfg.HTTPAddress, n.runtime, api.NewMetrics())
	if err := n.api.Start(); err != nil {
		return fmt.Errorf("start api:\n%w", err)
	}

	return n.waitForShutdown()
}

// waitForShutdown blocks until SIGINT or SIGTERM, then closes the node.
func (n *Node) waitForShutdown() error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", "signal", sig.String())

	return n.Close()
}

// Close shuts down all node components gracefully.
func (n *Node) Close() error {
	if n.api != nil {
		n.api.Stop()
	}

	if n.storage != nil {
		return n.storage.Close()
	}

	return nil
}
