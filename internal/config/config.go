// Package config handles fitcoach configuration loading.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultSearchPaths returns the config file search order.
// An explicit path (from -config flag) is checked first.
// Then: ./config.yaml, ~/.config/fitcoach/config.yaml, /etc/fitcoach/config.yaml.
func DefaultSearchPaths() []string {
	paths := []string{"config.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "fitcoach", "config.yaml"))
	}

	paths = append(paths, "/etc/fitcoach/config.yaml")
	return paths
}

// FindConfig locates a config file. If explicit is non-empty, it must exist.
// Otherwise, searches DefaultSearchPaths and returns the first that exists.
// Returns the path found, or an error if nothing was found.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	for _, p := range DefaultSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("no config file found (searched: %v)", DefaultSearchPaths())
}

// Config holds all fitcoach configuration.
type Config struct {
	Listen   ListenConfig   `yaml:"listen"`
	Model    ModelConfig    `yaml:"model"`
	Cache    CacheConfig    `yaml:"cache"`
	Search   SearchConfig   `yaml:"search"`
	Agent    AgentConfig    `yaml:"agent"`
	Journal  JournalConfig  `yaml:"journal"`
	DataDir  string         `yaml:"data_dir"`
	LogLevel string         `yaml:"log_level"`
}

// ListenConfig defines the API server settings.
type ListenConfig struct {
	Address string `yaml:"address"` // Bind address (default: "" = all interfaces)
	Port    int    `yaml:"port"`
}

// ModelConfig defines the chat model and its sampling parameters.
type ModelConfig struct {
	// Provider selects the backend: "gemini" or "ollama".
	Provider string `yaml:"provider"`
	// Name is the model identifier passed to the provider.
	Name string `yaml:"name"`
	// Temperature is the fixed sampling temperature for all coach tasks.
	Temperature float64 `yaml:"temperature"`
	// TimeoutSec bounds each model call. Zero means 120 seconds.
	TimeoutSec int `yaml:"timeout_sec"`

	Gemini GeminiConfig `yaml:"gemini"`
	Ollama OllamaConfig `yaml:"ollama"`
}

// GeminiConfig defines Google Generative Language API settings.
type GeminiConfig struct {
	APIKey string `yaml:"api_key"`
}

// OllamaConfig defines the local Ollama backend.
type OllamaConfig struct {
	URL string `yaml:"url"`
}

// CacheConfig defines the durable response cache.
type CacheConfig struct {
	// TTLSec is how long a cached response stays fresh. Zero means 3600.
	TTLSec int `yaml:"ttl_sec"`
}

// SearchConfig defines web search providers for the agent's search tool.
// When no provider is configured the search tool is not registered.
type SearchConfig struct {
	// Provider names the primary backend: "serpapi" or "brave".
	Provider string        `yaml:"provider"`
	SerpAPI  SerpAPIConfig `yaml:"serpapi"`
	Brave    BraveConfig   `yaml:"brave"`
}

// SerpAPIConfig holds SerpAPI settings.
type SerpAPIConfig struct {
	APIKey   string `yaml:"api_key"`
	Language string `yaml:"language"` // e.g. "en"
	Country  string `yaml:"country"`  // e.g. "us"
}

// Configured reports whether a SerpAPI key is set.
func (c SerpAPIConfig) Configured() bool {
	return c.APIKey != ""
}

// BraveConfig holds Brave Search settings.
type BraveConfig struct {
	APIKey string `yaml:"api_key"`
}

// Configured reports whether a Brave API key is set.
func (c BraveConfig) Configured() bool {
	return c.APIKey != ""
}

// AgentConfig bounds the reasoning agent loop.
type AgentConfig struct {
	// MaxSteps is the hard cap on think/act/observe iterations.
	// Zero means 10.
	MaxSteps int `yaml:"max_steps"`
	// MaxParseRetries caps recoveries from malformed tool invocations.
	// Zero means 5.
	MaxParseRetries int `yaml:"max_parse_retries"`
}

// JournalConfig defines progress journal settings.
type JournalConfig struct {
	AssemblyAI AssemblyAIConfig `yaml:"assemblyai"`
}

// AssemblyAIConfig holds voice transcription settings.
type AssemblyAIConfig struct {
	APIKey string `yaml:"api_key"`
}

// Configured reports whether an AssemblyAI key is set.
func (c AssemblyAIConfig) Configured() bool {
	return c.APIKey != ""
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Default returns a default configuration.
func Default() *Config {
	return &Config{
		Listen: ListenConfig{Port: 8080},
		Model: ModelConfig{
			Provider:    "gemini",
			Name:        "gemini-1.5-flash",
			Temperature: 0.7,
			TimeoutSec:  120,
		},
		Cache: CacheConfig{TTLSec: 3600},
		Agent: AgentConfig{
			MaxSteps:        10,
			MaxParseRetries: 5,
		},
		DataDir: ".",
	}
}
