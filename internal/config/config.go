// Package config loads the ensemble configuration from a YAML file: the
// member list, the oracle path for two-member ensembles, and the
// notification-interval overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"fastelect/internal/election/quorum"
)

// Member describes one ensemble member.
type Member struct {
	ID int64 `yaml:"id"`
	// Address is the host:port the member's election transport listens on.
	Address string `yaml:"address"`
	// Role is "participant" (default) or "observer".
	Role string `yaml:"role"`
}

// Config is the on-disk ensemble configuration.
type Config struct {
	Members []Member `yaml:"members"`
	// Version is the configuration version carried on the wire.
	Version int64 `yaml:"version"`
	// OraclePath enables the oracle-majority verifier when set.
	OraclePath string `yaml:"oraclePath"`
	// DataDir is where members keep their persistent state.
	DataDir string `yaml:"dataDir"`
	// MinNotificationIntervalMs overrides the floor poll timeout.
	MinNotificationIntervalMs int `yaml:"minNotificationIntervalMs"`
	// MaxNotificationIntervalMs overrides the backoff ceiling.
	MaxNotificationIntervalMs int `yaml:"maxNotificationIntervalMs"`
}

// Read loads and validates a configuration file.
func Read(file string) (*Config, error) {
	raw, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", file, err)
	}
	if len(c.Members) == 0 {
		return nil, errors.New("config contains no members")
	}
	seen := make(map[int64]struct{}, len(c.Members))
	for _, m := range c.Members {
		if m.ID <= 0 {
			return nil, fmt.Errorf("member id %d must be a positive integer", m.ID)
		}
		if _, dup := seen[m.ID]; dup {
			return nil, fmt.Errorf("duplicate member id %d", m.ID)
		}
		seen[m.ID] = struct{}{}
		if m.Role != "" && m.Role != "participant" && m.Role != "observer" {
			return nil, fmt.Errorf("member %d has unknown role %q", m.ID, m.Role)
		}
	}
	return &c, nil
}

// Member returns the member with the given id.
func (c *Config) Member(id int64) (Member, error) {
	for _, m := range c.Members {
		if m.ID == id {
			return m, nil
		}
	}
	return Member{}, fmt.Errorf("member %d not found in config", id)
}

// Addresses returns the sid-to-address map the transport dials.
func (c *Config) Addresses() map[int64]string {
	addrs := make(map[int64]string, len(c.Members))
	for _, m := range c.Members {
		addrs[m.ID] = m.Address
	}
	return addrs
}

// Verifier builds the initial quorum verifier for this configuration. With
// an oracle path set, the oracle-majority variant is used.
func (c *Config) Verifier() quorum.Verifier {
	servers := make([]quorum.Server, 0, len(c.Members))
	for _, m := range c.Members {
		role := quorum.Participant
		if m.Role == "observer" {
			role = quorum.Observer
		}
		servers = append(servers, quorum.Server{ID: m.ID, Addr: m.Address, Role: role})
	}
	maj := quorum.NewMajority(servers, c.Version)
	if c.OraclePath != "" {
		return quorum.NewOracleMajority(maj, c.OraclePath)
	}
	return maj
}

// MinNotificationInterval returns the configured floor poll timeout, or 0
// when unset so the election default applies.
func (c *Config) MinNotificationInterval() time.Duration {
	return time.Duration(c.MinNotificationIntervalMs) * time.Millisecond
}

// MaxNotificationInterval returns the configured backoff ceiling, or 0 when
// unset so the election default applies.
func (c *Config) MaxNotificationInterval() time.Duration {
	return time.Duration(c.MaxNotificationIntervalMs) * time.Millisecond
}
