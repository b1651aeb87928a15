package emu

import (
	"encoding/json"
	"fmt"
	"os"
)

// InvalidModePolicy selects how an unrecognized 5-bit mode pattern is
// handled when it is written to the CPSR.
type InvalidModePolicy string

// Invalid mode policies.
const (
	// InvalidModeReject fails the write with ErrInvalidMode.
	InvalidModeReject InvalidModePolicy = "reject"
	// InvalidModeUser falls back to User mode.
	InvalidModeUser InvalidModePolicy = "user"
)

// Config holds the CPU settings that are not fixed by the architecture.
type Config struct {
	// InitialMode is the operating mode after reset. Default: "user".
	InitialMode string `json:"initial_mode"`

	// ResetPC is the program counter after reset. Default: 0.
	ResetPC uint32 `json:"reset_pc"`

	// StorePCOffset is added to the instruction address when STR, STRH or
	// STM stores R15. Default: 12.
	StorePCOffset uint32 `json:"store_pc_offset"`

	// InvalidModePolicy is "reject" or "user". Default: "reject".
	InvalidModePolicy InvalidModePolicy `json:"invalid_mode_policy"`
}

// DefaultConfig returns a Config with the ARM7TDMI defaults.
func DefaultConfig() *Config {
	return &Config{
		InitialMode:       "user",
		ResetPC:           0,
		StorePCOffset:     12,
		InvalidModePolicy: InvalidModeReject,
	}
}

// LoadConfig loads a Config from a JSON file. Fields missing from the file
// keep their defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read cpu config file: %w", err)
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse cpu config: %w", err)
	}

	return config, nil
}

// SaveConfig writes a Config to a JSON file.
func (c *Config) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize cpu config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write cpu config file: %w", err)
	}

	return nil
}

// Validate checks that every field holds a supported value.
func (c *Config) Validate() error {
	if _, err := ParseOperatingMode(c.InitialMode); err != nil {
		return fmt.Errorf("initial_mode: %w", err)
	}
	if c.StorePCOffset != 8 && c.StorePCOffset != 12 {
		return fmt.Errorf("store_pc_offset must be 8 or 12, got %d", c.StorePCOffset)
	}
	switch c.InvalidModePolicy {
	case InvalidModeReject, InvalidModeUser:
	default:
		return fmt.Errorf("invalid_mode_policy must be %q or %q, got %q",
			InvalidModeReject, InvalidModeUser, c.InvalidModePolicy)
	}
	return nil
}

// Clone returns a copy of the Config.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// operatingMode returns the parsed initial mode. Validate must have
// succeeded.
func (c *Config) operatingMode() OperatingMode {
	m, err := ParseOperatingMode(c.InitialMode)
	if err != nil {
		return ModeUser
	}
	return m
}
