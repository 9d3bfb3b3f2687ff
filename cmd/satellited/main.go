package main

import (
	"fmt"
	"os"

	"Satellite/internal/logger"
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

	if err := resolveProgramID(cfg); err != nil {
		return fmt.Errorf("resolve program id:\n%w", err)
	}

	node, err := NewNode(cfg)
	if err != nil {
		return fmt.Errorf("create node:\n%w", err)
	}

	printStartupInfo(cfg, node)

	return node.Run()
}

// printStartupInfo displays node configuration at startup.
func printStartupInfo(cfg *Config, node *Node) {
	custody, bump := node.runtime.Custody()

	logger.Info("starting satellite node",
		"program", cfg.ProgramID,
		"custody", custody,
		"bump", bump,
		"http", cfg.HTTPAddress,
		"data", cfg.DataPath,
		"executed", node.runtime.Executed(),
	)
}
