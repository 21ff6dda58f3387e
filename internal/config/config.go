// Package config defines the process-level configuration for chilid,
// following the same range-validated Config/Valid/DefaultConfig shape
// used for the IEC 60870-5-104 connection parameters this module's
// teacher carries, loaded from TOML via pelletier/go-toml/v2.
package config

import (
	"fmt"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// defines the configuration ranges honored by Valid.
const (
	ListenPortMin = 1
	ListenPortMax = 65535

	JobTickIntervalMin = 100 * time.Millisecond
	JobTickIntervalMax = 1 * time.Hour

	NetworkBandwidthKbpsMin = 1
	NetworkBandwidthKbpsMax = 1_000_000
)

// Config is chilid's top-level configuration. The default applies for
// each unspecified value.
type Config struct {
	// ListenPort is the TCP port chilid accepts incoming handles on.
	ListenPort int `toml:"listen_port"`

	// SequenceLogDir is the directory holding the append-only sequence
	// file chilid replays on restart (§4.5.1/§4.5.2).
	SequenceLogDir string `toml:"sequence_log_dir"`

	// PartitionedTableRoot is the filesystem root LoadParDF resolves
	// table directories against (§3.4/§4.3).
	PartitionedTableRoot string `toml:"partitioned_table_root"`

	// JobTickInterval is how often execute_jobs wakes to scan the job
	// table (§4.5.6).
	JobTickInterval time.Duration `toml:"job_tick_interval"`

	// NetworkBandwidthKbps is the link bandwidth in kilobits per second.
	// Valid range-checks and defaults it; codec9's selectCompression does
	// not read it and takes the bandwidth (in Mbps) from the
	// CHILI_NETWORK_BANDWIDTH environment variable only.
	NetworkBandwidthKbps int `toml:"network_bandwidth_kbps"`

	// AllowAnonymous permits the empty-credential fallback in the auth
	// handshake (§4.4.2).
	AllowAnonymous bool `toml:"allow_anonymous"`

	// AllowedUsers is the credential allowlist checked during the auth
	// handshake; empty means "accept any non-empty credential".
	AllowedUsers []string `toml:"allowed_users"`
}

// Valid applies defaults for unspecified fields and range-checks the rest.
func (c *Config) Valid() error {
	if c == nil {
		return fmt.Errorf("config: invalid pointer")
	}

	if c.ListenPort == 0 {
		c.ListenPort = 5001
	} else if c.ListenPort < ListenPortMin || c.ListenPort > ListenPortMax {
		return fmt.Errorf("config: listen_port not in [%d, %d]", ListenPortMin, ListenPortMax)
	}

	if c.SequenceLogDir == "" {
		c.SequenceLogDir = "./seqlog"
	}

	if c.PartitionedTableRoot == "" {
		c.PartitionedTableRoot = "."
	}

	if c.JobTickInterval == 0 {
		c.JobTickInterval = 1 * time.Second
	} else if c.JobTickInterval < JobTickIntervalMin || c.JobTickInterval > JobTickIntervalMax {
		return fmt.Errorf("config: job_tick_interval not in [%s, %s]", JobTickIntervalMin, JobTickIntervalMax)
	}

	if c.NetworkBandwidthKbps == 0 {
		c.NetworkBandwidthKbps = 10_000
	} else if c.NetworkBandwidthKbps < NetworkBandwidthKbpsMin || c.NetworkBandwidthKbps > NetworkBandwidthKbpsMax {
		return fmt.Errorf("config: network_bandwidth_kbps not in [%d, %d]", NetworkBandwidthKbpsMin, NetworkBandwidthKbpsMax)
	}

	return nil
}

// DefaultConfig returns the zero-value config after Valid has filled in
// every default.
func DefaultConfig() Config {
	c := Config{}
	_ = c.Valid()
	return c
}

// Load parses TOML configuration from data and validates the result.
func Load(data []byte) (Config, error) {
	var c Config
	if err := toml.Unmarshal(data, &c); err != nil {
		return Config{}, fmt.Errorf("config: parse: %w", err)
	}
	if err := c.Valid(); err != nil {
		return Config{}, err
	}
	return c, nil
}
