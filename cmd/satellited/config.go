package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gagliardetto/solana-go"
)

// Config holds the node configuration.
type Config struct {
	// DataPath is the directory for persistent storage.
	DataPath string

	// HTTPAddress is the HTTP API listen address.
	HTTPAddress string

	// Program is the base58 custody program id. Empty means use ProgramKeyPath.
	Program string

	// ProgramKeyPath is the keypair file whose public key is the program id.
	ProgramKeyPath string

	// ProgramID is the resolved custody program id.
	ProgramID solana.PublicKey

	// GenesisPath is an optional TOML fixture applied on first start.
	GenesisPath string

	// RestorePath is an optional snapshot restored into an empty database.
	RestorePath string

	// LogLevel is the minimum log level.
	LogLevel string
}

// parseFlags parses command-line flags into Config.
func parseFlags() *Config {
	cfg := &Config{}

	flag.StringVar(&cfg.DataPath, "data", "./data", "Data directory path")
	flag.StringVar(&cfg.HTTPAddress, "http", ":8080", "HTTP API address")
	flag.StringVar(&cfg.Program, "program", "", "Custody program id (base58)")
	flag.StringVar(&cfg.ProgramKeyPath, "program-key", "", "Program keypair path (default <data>/program.key, generated if missing)")
	flag.StringVar(&cfg.GenesisPath, "genesis", "", "Genesis fixture path (TOML)")
	flag.StringVar(&cfg.RestorePath, "restore", "", "Snapshot to restore before starting")
	flag.StringVar(&cfg.LogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	return cfg
}

// resolveProgramID sets cfg.ProgramID from --program or the program keypair.
func resolveProgramID(cfg *Config) error {
	if cfg.Program != "" {
		id, err := solana.PublicKeyFromBase58(cfg.Program)
		if err != nil {
			return fmt.Errorf("parse --program:\n%w", err)
		}

		cfg.ProgramID = id
		return nil
	}

	path := cfg.ProgramKeyPath
	if path == "" {
		path = filepath.Join(cfg.DataPath, "program.key")
	}

	key, err := loadOrGenerateKey(path)
	if err != nil {
		return err
	}

	cfg.ProgramID = key.PublicKey()

	return nil
}

// loadOrGenerateKey loads a base58 keypair from file or generates and saves a new one.
func loadOrGenerateKey(keyPath string) (solana.PrivateKey, error) {
	data, err := os.ReadFile(keyPath)
	if os.IsNotExist(err) {
		return generateAndSaveKey(keyPath)
	}

	if err != nil {
		return nil, fmt.Errorf("read key file:\n%w", err)
	}

	key, err := solana.PrivateKeyFromBase58(strings.TrimSpace(string(data)))
	if err != nil {
		return nil, fmt.Errorf("parse key file %s:\n%w", keyPath, err)
	}

	return key, nil
}

// generateAndSaveKey creates a new key and saves it to the given path.
func generateAndSaveKey(path string) (solana.PrivateKey, error) {
	key, err := solana.NewRandomPrivateKey()
	if err != nil {
		return nil, fmt.Errorf("generate key:\n%w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create key directory:\n%w", err)
	}

	if err := os.WriteFile(path, []byte(key.String()), 0600); err != nil {
		return nil, fmt.Errorf("save key to %s:\n%w", path, err)
	}

	return key, nil
}
