package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// ServerConfig defines how to reach (or launch) scsynth
type ServerConfig struct {
	Addr         string `json:"addr,omitempty"`         // UDP address, default 127.0.0.1:57110
	AutoStart    bool   `json:"autoStart,omitempty"`    // spawn scsynth on launch
	SynthdefDir  string `json:"synthdefDir,omitempty"`  // extra .scsyndef directory
	InputDevice  string `json:"inputDevice,omitempty"`  // -H input half
	OutputDevice string `json:"outputDevice,omitempty"` // -H output half
}

// MidiConfig defines the live MIDI keyboard input
type MidiConfig struct {
	PortName string `json:"portName,omitempty"`
	Channel  int    `json:"channel,omitempty"`
}

// UIConfig stores UI preferences
type UIConfig struct {
	LastBpm float64 `json:"lastBpm,omitempty"`
}

// Config is the main configuration structure
type Config struct {
	Server       ServerConfig `json:"server,omitempty"`
	Midi         MidiConfig   `json:"midi,omitempty"`
	UI           UIConfig     `json:"ui,omitempty"`
	DisableAudio bool         `json:"disableAudio,omitempty"` // run the engine without server I/O
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr: "127.0.0.1:57110",
		},
		UI: UIConfig{
			LastBpm: 120,
		},
	}
}

// ConfigDir returns the config directory path
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "go-daw"), nil
}

// ConfigPath returns the full path to config.json
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the config file, falling back to defaults if missing
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return DefaultConfig(), err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return DefaultConfig(), nil
	}
	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return DefaultConfig(), err
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = "127.0.0.1:57110"
	}
	return cfg, nil
}

// Save writes the config file, creating the directory if needed
func (c *Config) Save() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	path := filepath.Join(dir, "config.json")
	return os.WriteFile(path, data, 0644)
}
