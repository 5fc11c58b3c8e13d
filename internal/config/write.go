// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ManuGH/segplay/internal/log"
	"github.com/google/renameio/v2"
	"gopkg.in/yaml.v3"
)

const defaultHeader = `# segplay configuration
# Precedence: SEGPLAY_* environment variables > this file > built-in defaults.
# server.baseUrl and server.userId must be set before playback can resolve.
`

// WriteDefault writes the default configuration to path atomically.
// An existing file is left untouched unless overwrite is set.
func WriteDefault(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file %s already exists", path)
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString(defaultHeader)
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(Defaults()); err != nil {
		return fmt.Errorf("encode defaults: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("encode defaults: %w", err)
	}

	pending, err := renameio.NewPendingFile(path, renameio.WithPermissions(0o600))
	if err != nil {
		return fmt.Errorf("create pending config file: %w", err)
	}
	defer func() {
		if err := pending.Cleanup(); err != nil {
			logger := log.WithComponent("config")
			logger.Debug().Err(err).Msg("cleanup pending config file")
		}
	}()

	if _, err := pending.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("write config data: %w", err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("commit config file: %w", err)
	}
	return nil
}
