package provider

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Config is the top-level JSON configuration schema (§6.1): a list of
// databases a Provider should register at startup.
type Config struct {
	Databases []DatabaseConfig `json:"databases"`
}

// DatabaseConfig describes one database entry: the backend type tag and
// its normalized JSON config, stored verbatim on the resulting Database.
//
// ID holds the provider-assigned UUID under the "__id__" key (§6.1). It is
// the only channel a client has to learn a database's wire UUID, since the
// protocol has no "list databases" verb: the provider fills it in on first
// registration and every config write-back after that must carry it
// forward unchanged, or a restart would hand out a fresh UUID and strand
// every client that had the old one.
type DatabaseConfig struct {
	Name   string          `json:"name"`
	Type   string          `json:"type"`
	Config json.RawMessage `json:"config,omitempty"`
	ID     uuid.UUID       `json:"__id__,omitempty"`
}

// ParseConfig decodes the JSON provider configuration file format described
// in §6.1.
func ParseConfig(raw []byte) (Config, error) {
	var cfg Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse provider config: %w", err)
	}
	return cfg, nil
}
