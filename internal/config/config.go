// Package config loads the engine's only configuration surface: the
// topology_config block of spec §6 ({local_dc_rack,
// disable_proximity_sorting?, snitch_kind}). Everything else about the
// engine is purely embedded — no other env vars, files, or CLI flags.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// SnitchKind names which DC/rack resolution strategy the topology
// sub-object should use; the engine treats the value as opaque and
// passes it straight through to whichever snitch implementation the
// embedder wires up (see internal/snitch).
type SnitchKind string

const (
	SnitchSimple       SnitchKind = "simple"
	SnitchGossip       SnitchKind = "gossip"
	SnitchPropertyFile SnitchKind = "property_file"
)

// DcRack is the local node's own (datacenter, rack), read at startup
// and never consulted for any other endpoint (those come from the
// caller-supplied resolver).
type DcRack struct {
	Datacenter string `mapstructure:"datacenter"`
	Rack       string `mapstructure:"rack"`
}

// TopologyConfig is the engine's single configuration block.
type TopologyConfig struct {
	LocalDcRack             DcRack     `mapstructure:"local_dc_rack"`
	DisableProximitySorting bool       `mapstructure:"disable_proximity_sorting"`
	SnitchKind              SnitchKind `mapstructure:"snitch_kind"`
}

// DefaultTopologyConfig returns the configuration a freshly embedded
// engine starts with absent any file or environment override.
func DefaultTopologyConfig() *TopologyConfig {
	return &TopologyConfig{
		LocalDcRack: DcRack{Datacenter: "datacenter1", Rack: "rack1"},
		SnitchKind:  SnitchSimple,
	}
}

// Load reads topology configuration from configPath (optional — a
// missing file falls back to defaults) and environment variables
// prefixed RINGMETA_, following the teacher's config.Load /
// applyEnvironmentOverrides split between file defaults and env
// overrides.
func Load(configPath string) (*TopologyConfig, error) {
	cfg := DefaultTopologyConfig()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("RINGMETA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		if _, statErr := os.Stat(configPath); statErr == nil {
			v.SetConfigFile(configPath)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read topology config %s: %w", configPath, err)
			}
			if err := v.Unmarshal(cfg); err != nil {
				return nil, fmt.Errorf("failed to unmarshal topology config: %w", err)
			}
		}
	}

	if dc := v.GetString("local_dc_rack.datacenter"); dc != "" {
		cfg.LocalDcRack.Datacenter = dc
	}
	if rack := v.GetString("local_dc_rack.rack"); rack != "" {
		cfg.LocalDcRack.Rack = rack
	}
	if kind := v.GetString("snitch_kind"); kind != "" {
		cfg.SnitchKind = SnitchKind(kind)
	}
	if v.IsSet("disable_proximity_sorting") {
		cfg.DisableProximitySorting = v.GetBool("disable_proximity_sorting")
	}

	return cfg, nil
}
