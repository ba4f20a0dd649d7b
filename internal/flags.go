package internal

import (
	"fmt"
	"strconv"

	"github.com/caarlos0/env/v11"
)

// AggregateAtomsFlag selects aggregated storage for event metrics.
const AggregateAtomsFlag = "aggregate_atoms"

// FlagProvider reads flags fixed at boot.
type FlagProvider interface {
	GetBootFlagBool(name string, defaultValue bool) bool
}

// BootFlags holds boot flags as read from the environment. Empty means unset.
type BootFlags struct {
	AggregateAtoms string `env:"STATSD_AGGREGATE_ATOMS"`
}

// EnvFlagProvider serves boot flags parsed once from the environment.
type EnvFlagProvider struct {
	flags BootFlags
}

func NewEnvFlagProvider() (*EnvFlagProvider, error) {
	var flags BootFlags
	if err := env.Parse(&flags); err != nil {
		return nil, fmt.Errorf("parse boot flags: %w", err)
	}
	return &EnvFlagProvider{flags: flags}, nil
}

// GetBootFlagBool returns defaultValue for unknown, unset or unparseable flags.
func (p *EnvFlagProvider) GetBootFlagBool(name string, defaultValue bool) bool {
	var raw string
	switch name {
	case AggregateAtomsFlag:
		raw = p.flags.AggregateAtoms
	}
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return defaultValue
	}
	return v
}

// StaticFlagProvider serves fixed flag values.
type StaticFlagProvider map[string]bool

func (p StaticFlagProvider) GetBootFlagBool(name string, defaultValue bool) bool {
	if v, ok := p[name]; ok {
		return v
	}
	return defaultValue
}
